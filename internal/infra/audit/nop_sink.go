package audit

import (
	"context"

	"jpk2json-service/internal/domain/ports/repository"
)

var _ repository.AuditSink = (*NopSink)(nil)

// NopSink discards every record. Used when no database is configured.
type NopSink struct{}

func NewNopSink() *NopSink { return &NopSink{} }

func (NopSink) RecordConversion(ctx context.Context, rec repository.ConversionRecord) error {
	return nil
}

func (NopSink) RecordLogin(ctx context.Context, rec repository.LoginRecord) error { return nil }

func (NopSink) RecordRateLimit(ctx context.Context, identity, operation, clientIP string) error {
	return nil
}

func (NopSink) RecordBlocked(ctx context.Context, clientIP, path string) error { return nil }

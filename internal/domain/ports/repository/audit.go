package repository

import (
	"context"
	"time"
)

// ConversionRecord is the durable terminal record for one job.
type ConversionRecord struct {
	JobID         string
	Identity      string
	ClientIP      string
	InputFilename string
	InputSize     int64
	OutputSize    int64
	Status        string
	ErrorDetail   string
	Duration      time.Duration
}

// LoginRecord captures one authentication attempt, successful or not.
type LoginRecord struct {
	Identity    string
	ClientIP    string
	Method      string
	UserAgent   string
	Success     bool
	ErrorDetail string
}

// AuditSink receives append-only historical records. All writes are
// best-effort: callers log failures and move on, they never propagate them.
type AuditSink interface {
	RecordConversion(ctx context.Context, rec ConversionRecord) error
	RecordLogin(ctx context.Context, rec LoginRecord) error
	RecordRateLimit(ctx context.Context, identity, operation, clientIP string) error
	RecordBlocked(ctx context.Context, clientIP, path string) error
}

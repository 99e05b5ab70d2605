package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/domain/model"
	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/domain/ports/repository"
	"jpk2json-service/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const OpUpload = "upload"

// UploadRequest carries one upload through the intake pipeline.
type UploadRequest struct {
	Identity string
	ClientIP string
	Filename string
	Size     int64
	Content  io.Reader
}

// UploadResult is what the caller gets back immediately; the conversion
// itself runs asynchronously.
type UploadResult struct {
	JobID    string
	Filename string
	Message  string
}

// ConversionUseCase is the request-facing facade over the orchestration
// core. Upload applies the fixed check order: access gate, authentication
// and approval, rate limit, input validation. A caller rejected early never
// consumes budget from a later stage.
type ConversionUseCase interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	Status(ctx context.Context, jobID string) (*model.ConversionJob, error)
	Download(ctx context.Context, jobID string) (path, downloadName string, err error)
	Cleanup(ctx context.Context, jobID string) error
	QueueStats(ctx context.Context) model.QueueStats
}

type convertUC struct {
	gate       adapter.AccessGate
	approver   adapter.Approver
	limiter    adapter.RateLimiter
	registry   repository.JobRegistry
	store      repository.ArtifactStore
	queue      adapter.TaskQueue
	audit      repository.AuditSink
	allowedExt string
	maxBytes   int64
	log        *zerolog.Logger
}

var _ ConversionUseCase = (*convertUC)(nil)

func NewConversionUseCase(
	gate adapter.AccessGate,
	approver adapter.Approver,
	limiter adapter.RateLimiter,
	reg repository.JobRegistry,
	store repository.ArtifactStore,
	queue adapter.TaskQueue,
	audit repository.AuditSink,
	allowedExt string,
	maxBytes int64,
	logger *zerolog.Logger,
) ConversionUseCase {
	if allowedExt == "" {
		allowedExt = ".jpk"
	}
	return &convertUC{
		gate:       gate,
		approver:   approver,
		limiter:    limiter,
		registry:   reg,
		store:      store,
		queue:      queue,
		audit:      audit,
		allowedExt: strings.ToLower(allowedExt),
		maxBytes:   maxBytes,
		log:        logger,
	}
}

func (u *convertUC) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	// 1. access gate, before anything that costs budget or writes audit
	if u.gate.IsBlocked(ctx, req.ClientIP) {
		metrics.IncBlockedRequest()
		if err := u.audit.RecordBlocked(ctx, req.ClientIP, OpUpload); err != nil {
			u.log.Warn().Err(err).Msg("blocked-event audit write failed")
		}
		return nil, domain.ErrAccessDenied
	}

	// 2. authentication and approval
	if req.Identity == "" {
		return nil, domain.ErrUnauthenticated
	}
	approved, err := u.approver.Approved(ctx, req.Identity)
	if err != nil {
		return nil, fmt.Errorf("approval check: %w", err)
	}
	if !approved {
		return nil, domain.ErrNotApproved
	}

	// 3. rate limit
	ok, err := u.limiter.Allow(ctx, req.Identity, OpUpload)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !ok {
		metrics.IncRateLimitRejection()
		if err := u.audit.RecordRateLimit(ctx, req.Identity, OpUpload, req.ClientIP); err != nil {
			u.log.Warn().Err(err).Msg("rate-limit audit write failed")
		}
		return nil, domain.ErrRateLimited
	}

	// 4. input validation
	if err := u.validate(req); err != nil {
		return nil, err
	}

	// 5. persist the input and register the job before the pool sees it,
	// so a status poll racing the worker always finds the entry
	jobID := uuid.NewString()
	inputPath, size, err := u.store.SaveInput(ctx, jobID, req.Filename, req.Content)
	if err != nil {
		return nil, fmt.Errorf("persist upload: %w", err)
	}
	if u.maxBytes > 0 && size > u.maxBytes {
		_ = u.store.RemoveAll(jobID)
		return nil, fmt.Errorf("file exceeds %d bytes: %w", u.maxBytes, domain.ErrInvalidArgument)
	}

	job := &model.ConversionJob{
		ID:            jobID,
		Status:        model.JobStatusQueued,
		Progress:      0,
		Message:       "File uploaded successfully, queued for conversion",
		InputFilename: req.Filename,
		InputSize:     size,
		OwnerIdentity: req.Identity,
		CreatedAt:     time.Now(),
	}
	if err := u.registry.Create(ctx, job); err != nil {
		_ = u.store.RemoveAll(jobID)
		return nil, err
	}

	if err := u.audit.RecordConversion(ctx, repository.ConversionRecord{
		JobID:         jobID,
		Identity:      req.Identity,
		ClientIP:      req.ClientIP,
		InputFilename: req.Filename,
		InputSize:     size,
		Status:        "processing",
	}); err != nil {
		u.log.Warn().Err(err).Str("job_id", jobID).Msg("intake audit write failed")
	}

	task := model.ConversionTask{
		JobID:      jobID,
		InputPath:  inputPath,
		OutputPath: u.store.OutputPath(jobID, req.Filename),
		Filename:   req.Filename,
		Identity:   req.Identity,
		ClientIP:   req.ClientIP,
	}
	if err := u.queue.Submit(task); err != nil {
		// the job exists; leave a terminal record rather than a zombie
		_ = u.registry.Update(ctx, jobID, func(j *model.ConversionJob) {
			j.Status = model.JobStatusFailed
			j.ErrorDetail = domain.ErrQueueFull.Error()
			j.Message = "Conversion queue is full, please retry later"
			j.FinishedAt = time.Now()
		})
		return nil, err
	}

	u.log.Info().Str("job_id", jobID).Str("identity", req.Identity).
		Str("filename", req.Filename).Int64("size", size).Msg("conversion queued")

	return &UploadResult{
		JobID:    jobID,
		Filename: req.Filename,
		Message:  "File uploaded successfully, conversion started asynchronously",
	}, nil
}

func (u *convertUC) validate(req UploadRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("no file provided: %w", domain.ErrInvalidArgument)
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if ext != u.allowedExt {
		return fmt.Errorf("only %s files are allowed: %w", strings.TrimPrefix(u.allowedExt, "."), domain.ErrInvalidArgument)
	}
	if u.maxBytes > 0 && req.Size > u.maxBytes {
		return fmt.Errorf("file exceeds %d bytes: %w", u.maxBytes, domain.ErrInvalidArgument)
	}
	if req.Content == nil {
		return fmt.Errorf("empty upload body: %w", domain.ErrInvalidArgument)
	}
	return nil
}

func (u *convertUC) Status(ctx context.Context, jobID string) (*model.ConversionJob, error) {
	return u.registry.Get(ctx, jobID)
}

func (u *convertUC) Download(ctx context.Context, jobID string) (string, string, error) {
	job, err := u.registry.Get(ctx, jobID)
	if err != nil {
		return "", "", err
	}
	if job.Status != model.JobStatusCompleted {
		return "", "", domain.ErrNotReady
	}
	if _, ok := u.store.Size(job.OutputPath); !ok {
		return "", "", fmt.Errorf("output artifact missing: %w", domain.ErrNotFound)
	}
	base := strings.TrimSuffix(job.InputFilename, filepath.Ext(job.InputFilename))
	if base == "" {
		base = "converted"
	}
	return job.OutputPath, base + ".json", nil
}

func (u *convertUC) Cleanup(ctx context.Context, jobID string) error {
	if err := u.registry.Delete(ctx, jobID); err != nil {
		u.log.Debug().Str("job_id", jobID).Msg("cleanup of unknown job")
	}
	return u.store.RemoveAll(jobID)
}

func (u *convertUC) QueueStats(ctx context.Context) model.QueueStats {
	snap := u.registry.Snapshot(ctx)
	stats := model.QueueStats{
		TotalJobs:  len(snap),
		PoolSize:   u.queue.Size(),
		QueueDepth: u.queue.Depth(),
	}
	for _, j := range snap {
		switch j.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusProcessing:
			stats.Processing++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

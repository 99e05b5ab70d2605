package worker

import (
	"context"
	"fmt"
	"time"

	"jpk2json-service/internal/domain/model"
	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/domain/ports/repository"
	"jpk2json-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Runner executes a single conversion task end to end: the lifecycle
// transitions, the engine call, the output verification and the terminal
// audit record. Every failure mode, including a panic out of the engine,
// ends in a Failed transition; a task never leaves its job stuck in
// Processing.
type Runner struct {
	registry repository.JobRegistry
	store    repository.ArtifactStore
	engine   adapter.ConversionEngine
	audit    repository.AuditSink
	log      *zerolog.Logger
}

func NewRunner(
	registry repository.JobRegistry,
	store repository.ArtifactStore,
	engine adapter.ConversionEngine,
	audit repository.AuditSink,
	logger *zerolog.Logger,
) *Runner {
	return &Runner{
		registry: registry,
		store:    store,
		engine:   engine,
		audit:    audit,
		log:      logger,
	}
}

func (r *Runner) Run(ctx context.Context, workerID int, task model.ConversionTask) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Int("worker", workerID).Str("job_id", task.JobID).
				Interface("panic", rec).Msg("conversion task panicked")
			r.finish(ctx, task, start, 0, fmt.Sprintf("conversion panic: %v", rec))
		}
	}()

	r.log.Info().Int("worker", workerID).Str("job_id", task.JobID).
		Str("filename", task.Filename).Msg("processing conversion")

	r.progress(ctx, task.JobID, 10, "Starting conversion...")
	r.progress(ctx, task.JobID, 30, "Loading JPK file...")
	r.progress(ctx, task.JobID, 60, "Converting JPK to JSON...")

	err := r.engine.Convert(ctx, task.InputPath, task.OutputPath)

	size, exists := r.store.Size(task.OutputPath)
	switch {
	case err != nil:
		r.finish(ctx, task, start, 0, fmt.Sprintf("conversion error: %v", err))
	case !exists || size == 0:
		r.finish(ctx, task, start, 0, "conversion produced no output artifact")
	default:
		r.finish(ctx, task, start, size, "")
	}
}

func (r *Runner) progress(ctx context.Context, jobID string, pct int, msg string) {
	err := r.registry.Update(ctx, jobID, func(j *model.ConversionJob) {
		j.Status = model.JobStatusProcessing
		j.Progress = pct
		j.Message = msg
	})
	if err != nil {
		// Job was cleaned up mid-flight; keep converting, the terminal
		// update will no-op the same way.
		r.log.Debug().Str("job_id", jobID).Err(err).Msg("progress update on missing job")
	}
}

// finish applies the terminal transition and writes the audit record.
// errDetail == "" means success.
func (r *Runner) finish(ctx context.Context, task model.ConversionTask, start time.Time, outputSize int64, errDetail string) {
	status := model.JobStatusCompleted
	if errDetail != "" {
		status = model.JobStatusFailed
	}

	_ = r.registry.Update(ctx, task.JobID, func(j *model.ConversionJob) {
		j.Status = status
		j.FinishedAt = time.Now()
		if errDetail != "" {
			j.ErrorDetail = errDetail
			j.Message = "Conversion failed - please check your JPK file"
			return
		}
		j.Progress = 100
		j.OutputPath = task.OutputPath
		j.OutputSize = outputSize
		j.Message = fmt.Sprintf("Conversion completed successfully! Output size: %.1f MB",
			float64(outputSize)/(1024*1024))
	})

	metrics.IncJobProcessed(string(status))

	rec := repository.ConversionRecord{
		JobID:         task.JobID,
		Identity:      task.Identity,
		ClientIP:      task.ClientIP,
		InputFilename: task.Filename,
		OutputSize:    outputSize,
		Status:        string(status),
		ErrorDetail:   errDetail,
		Duration:      time.Since(start),
	}
	if size, ok := r.store.Size(task.InputPath); ok {
		rec.InputSize = size
	}
	if err := r.audit.RecordConversion(ctx, rec); err != nil {
		r.log.Warn().Err(err).Str("job_id", task.JobID).Msg("audit write failed")
	}

	r.log.Info().Str("job_id", task.JobID).Str("status", string(status)).
		Dur("duration", time.Since(start)).Msg("conversion finished")
}

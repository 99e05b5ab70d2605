package model

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are permitted.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ConversionJob is the operational view of one conversion request.
// The registry owns the canonical copy; workers write updates through it.
type ConversionJob struct {
	ID            string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progress"`
	Message       string    `json:"message"`
	InputFilename string    `json:"filename"`
	InputSize     int64     `json:"input_size"`
	OutputPath    string    `json:"-"`
	OutputSize    int64     `json:"output_size,omitempty"`
	ErrorDetail   string    `json:"error,omitempty"`
	OwnerIdentity string    `json:"owner,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// QueueStats is a point-in-time aggregate over the registry and pool.
type QueueStats struct {
	TotalJobs  int `json:"total_jobs"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	PoolSize   int `json:"max_workers"`
	QueueDepth int `json:"queue_depth"`
}

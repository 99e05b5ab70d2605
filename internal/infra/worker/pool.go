package worker

import (
	"context"
	"sync"

	"jpk2json-service/internal/domain"
	"jpk2json-service/internal/domain/model"
	"jpk2json-service/internal/domain/ports/adapter"
	"jpk2json-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.TaskQueue = (*Pool)(nil)

// Pool runs conversion tasks on a fixed set of workers fed by a bounded
// queue. Submission never blocks: when the queue is full the caller gets
// domain.ErrQueueFull and decides what to do about it, instead of the
// process accumulating unbounded background work.
type Pool struct {
	wg     sync.WaitGroup
	tasks  chan model.ConversionTask
	quit   chan struct{}
	n      int
	runner *Runner
	log    *zerolog.Logger
}

func NewPool(workers, queueSize int, runner *Runner, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = workers * 16
	}
	return &Pool{
		tasks:  make(chan model.ConversionTask, queueSize),
		quit:   make(chan struct{}),
		n:      workers,
		runner: runner,
		log:    logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.tasks:
					metrics.SetQueueDepth(len(p.tasks))
					p.runner.Run(ctx, id, task)
				}
			}
		}(i)
	}
	if p.log != nil {
		p.log.Info().Int("workers", p.n).Int("queue_size", cap(p.tasks)).Msg("worker pool started")
	}
}

// Stop signals the workers and waits for in-flight tasks to finish.
// Queued tasks that never got a slot are abandoned; their jobs stay queued.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task model.ConversionTask) error {
	select {
	case p.tasks <- task:
		metrics.SetQueueDepth(len(p.tasks))
		return nil
	default:
		return domain.ErrQueueFull
	}
}

func (p *Pool) Size() int { return p.n }

func (p *Pool) Depth() int { return len(p.tasks) }

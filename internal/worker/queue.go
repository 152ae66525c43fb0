package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrQueueFull is returned when the submission buffer has no room; callers
// surface it instead of blocking the request path.
var ErrQueueFull = errors.New("processing queue full")

// ErrQueueClosed is returned for submissions arriving after Shutdown started.
var ErrQueueClosed = errors.New("processing queue stopped")

// Task is a scheduled processing request.
type Task struct {
	JobID       uuid.UUID
	SubmittedAt time.Time
}

type queueOptions struct {
	workers   int
	queueSize int
}

type Option func(*queueOptions)

func WithWorkers(n int) Option {
	return func(o *queueOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(o *queueOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// Queue fans job processing out across a fixed pool. Submissions are
// fire-and-forget: the HTTP layer enqueues and answers immediately while the
// pool drains the buffer in the background.
type Queue struct {
	worker *Worker
	logger *slog.Logger

	tasks chan Task
	wg    sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	stopOnce sync.Once
}

func NewQueue(worker *Worker, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	o := queueOptions{workers: 4, queueSize: 256}
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue{
		worker: worker,
		logger: logger,
		tasks:  make(chan Task, o.queueSize),
	}
	for i := 0; i < o.workers; i++ {
		q.wg.Add(1)
		go q.loop(i)
	}
	logger.Info("processing queue started", "workers", o.workers, "queue_size", o.queueSize)
	return q
}

// Enqueue schedules a job without waiting for a worker. A full buffer is a
// submission error, not a blocking wait; a stopped queue never accepts.
func (q *Queue) Enqueue(jobID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- Task{JobID: jobID, SubmittedAt: time.Now()}:
		q.logger.Debug("job enqueued", "job_id", jobID)
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) loop(id int) {
	defer q.wg.Done()
	for task := range q.tasks {
		wait := time.Since(task.SubmittedAt)
		q.logger.Debug("job picked up", "job_id", task.JobID, "worker", id, "queue_wait", wait)
		// a processing run outlives the HTTP call that scheduled it
		q.worker.Process(context.Background(), task.JobID)
	}
}

// Shutdown stops intake and waits for in-flight jobs, bounded by ctx.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.tasks)
		q.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("processing queue drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

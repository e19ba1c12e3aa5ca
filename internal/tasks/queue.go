// Package tasks runs best-effort background work off the request path.
//
// Submit never blocks: when the buffer is full the task is dropped and
// logged. Task failures are logged and otherwise ignored.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("queue closed")

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Config sizes the queue.
type Config struct {
	Workers int
	Size    int
	// Rate caps task starts per second; zero means unlimited.
	Rate float64
	// Timeout bounds a single task; zero means no per-task deadline.
	Timeout time.Duration
}

type job struct {
	name string
	run  Task
}

// Queue is a fixed pool of workers draining a bounded buffer.
type Queue struct {
	jobs    chan job
	limiter *rate.Limiter
	timeout time.Duration
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts cfg.Workers workers.
func New(cfg Config, logger zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Size < 0 {
		cfg.Size = 0
	}

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:    make(chan job, cfg.Size),
		limiter: rate.NewLimiter(limit, cfg.Workers),
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "tasks").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}
	return q
}

// Submit enqueues fn without waiting. It reports false when the task was dropped.
func (q *Queue) Submit(name string, fn Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn().Str("task", name).Msg("queue closed, dropping task")
		return false
	}

	select {
	case q.jobs <- job{name: name, run: fn}:
		return true
	default:
		q.logger.Warn().Str("task", name).Msg("queue full, dropping task")
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
// If ctx expires first, in-flight tasks are cancelled and ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		if err := q.limiter.Wait(q.ctx); err != nil {
			q.logger.Warn().Str("task", j.name).Err(err).Msg("task skipped")
			continue
		}
		q.run(j)
	}
}

func (q *Queue) run(j job) {
	ctx := q.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Str("task", j.name).Interface("panic", r).Msg("task panicked")
		}
	}()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		q.logger.Warn().Str("task", j.name).Err(err).Dur("duration", time.Since(start)).Msg("task failed")
		return
	}
	q.logger.Debug().Str("task", j.name).Dur("duration", time.Since(start)).Msg("task done")
}

// Package worker drains queued prediction submissions into the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smfc/matchday/internal/adapters/mq/queue"
	"github.com/smfc/matchday/internal/adapters/repository"
	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/pkg/logger"
	"github.com/smfc/matchday/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Writer persists a prediction. It fails with repository.ErrNotFound or
// repository.ErrPredictionsClosed when the match stopped taking forecasts
// after the submission was queued.
type Writer interface {
	UpsertPrediction(ctx context.Context, p model.Prediction) (model.Prediction, error)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Submission
}

// Worker processes submissions until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	processed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:    q,
		writer:   w,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.logger == nil {
		wk.logger = logger.Get().Named(wk.name)
	}
	return wk
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error storing prediction", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for the current submission.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.signalStop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) signalStop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Processed returns how many submissions this worker stored.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many submissions this worker could not store.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

// Rejected returns how many submissions arrived after their match closed.
func (w *InMemoryWorker) Rejected() int64 { return w.rejected.Load() }

func (w *InMemoryWorker) process(ctx context.Context, s queue.Submission) (err error) { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessed(float64(time.Since(start).Microseconds())/1000, err)
	}()

	stored, err := w.writer.UpsertPrediction(ctx, s.Prediction)
	if errors.Is(err, repository.ErrPredictionsClosed) || errors.Is(err, repository.ErrNotFound) {
		w.rejected.Add(1)
		metrics.RecordPredictionRejected("closed")
		w.logger.Info(ctx, "late prediction dropped",
			logger.String("submission_id", s.SubmissionID),
			logger.String("match_id", s.MatchID),
			logger.String("player", s.PlayerName),
			logger.Error(err),
		)
		return nil
	}
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("submission %s (%s/%s): %w", s.SubmissionID, s.MatchID, s.PlayerName, err)
	}
	w.processed.Add(1)
	metrics.RecordPredictionStored()
	w.logger.Debug(ctx, "prediction stored",
		logger.String("submission_id", s.SubmissionID),
		logger.String("prediction_id", stored.ID),
		logger.String("match_id", stored.MatchID),
		logger.String("player", stored.PlayerName),
	)
	return nil
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, w Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, w, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums the submissions stored by every worker.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums the submissions every worker failed to store.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Rejected sums the submissions dropped because their match had closed.
func (p *Pool) Rejected() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Rejected()
	}
	return n
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// busy when ctx (capped at 30s) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.signalStop()
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, drainCtx.Err())
	}
	return nil
}

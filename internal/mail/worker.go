package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prperemyshlev/media-favourites/pkg/observability"
	"go.uber.org/zap"
)

// WorkerOptions tunes the Worker loop
type WorkerOptions struct {
	// MaxAttempts is how many sends are tried before a job is dead-lettered
	MaxAttempts int
	// PollTimeout bounds each blocking pop so Stop is observed promptly
	PollTimeout time.Duration
	// RetryDelay is the pause after a failed send or a Redis error
	RetryDelay time.Duration
}

// Worker drains the mail queue and sends each job
type Worker struct {
	queue     *Queue
	templates *Templates
	sender    Sender
	opts      WorkerOptions
	metrics   *observability.Metrics
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a worker. It does nothing until Start is called.
func NewWorker(queue *Queue, templates *Templates, sender Sender, opts WorkerOptions, metrics *observability.Metrics, logger *zap.Logger) *Worker {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	return &Worker{
		queue:     queue,
		templates: templates,
		sender:    sender,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start requeues jobs left in flight by a previous process and starts the
// consume loop. The loop runs until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return errors.New("mail worker already started")
	}

	recovered, err := w.queue.Recover(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		w.logger.Warn("Requeued unfinished mail jobs", zap.Int("count", recovered))
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, w.done)

	w.logger.Info("Mail worker started", zap.Int("max_attempts", w.opts.MaxAttempts))
	return nil
}

// Stop ends the consume loop and waits for the in-flight job to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("Mail worker stopped")
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		job, raw, err := w.queue.Pop(ctx, w.opts.PollTimeout)
		if err != nil {
			if errors.Is(err, ErrNoJob) || ctx.Err() != nil {
				continue
			}
			if raw != "" {
				// undecodable payload, nothing to retry
				w.logger.Error("Dropping malformed mail job", zap.Error(err))
				if err := w.queue.DeadLetter(ctx, raw, nil); err != nil {
					w.logger.Error("Failed to dead-letter mail job", zap.Error(err))
				}
				continue
			}
			w.logger.Error("Failed to pop mail job", zap.Error(err))
			w.sleep(ctx, w.opts.RetryDelay)
			continue
		}

		w.process(ctx, job, raw)
	}
}

func (w *Worker) process(ctx context.Context, job *Job, raw string) {
	kind := string(job.Kind)
	logger := w.logger.With(zap.String("job_id", job.ID), zap.String("kind", kind))

	// A job already taken off the queue is finished even after Stop.
	sendCtx := context.WithoutCancel(ctx)

	msg, err := w.templates.Render(job)
	if err != nil {
		logger.Error("Cannot render mail job", zap.Error(err))
		w.metrics.MailJob(sendCtx, kind, observability.ResultDead)
		if err := w.queue.DeadLetter(sendCtx, raw, job); err != nil {
			logger.Error("Failed to dead-letter mail job", zap.Error(err))
		}
		return
	}

	if err := w.sender.Send(sendCtx, msg); err != nil {
		job.Attempts++
		if job.Attempts >= w.opts.MaxAttempts {
			logger.Error("Mail job exhausted retries", zap.Int("attempts", job.Attempts), zap.Error(err))
			w.metrics.MailJob(sendCtx, kind, observability.ResultDead)
			if err := w.queue.DeadLetter(sendCtx, raw, job); err != nil {
				logger.Error("Failed to dead-letter mail job", zap.Error(err))
			}
			return
		}

		logger.Warn("Mail send failed, retrying", zap.Int("attempts", job.Attempts), zap.Error(err))
		w.metrics.MailJob(sendCtx, kind, observability.ResultRetry)
		if err := w.queue.Retry(sendCtx, raw, job); err != nil {
			logger.Error("Failed to requeue mail job", zap.Error(err))
		}
		w.sleep(ctx, w.opts.RetryDelay)
		return
	}

	w.metrics.MailJob(sendCtx, kind, observability.ResultSuccess)
	if err := w.queue.Ack(sendCtx, raw); err != nil {
		logger.Error("Failed to ack mail job", zap.Error(err))
	}
	logger.Debug("Mail job sent")
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

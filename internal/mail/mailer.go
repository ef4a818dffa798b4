package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/media-favourites/pkg/observability"
	"go.uber.org/zap"
)

// DirectMailer renders and sends within the caller's request
type DirectMailer struct {
	templates *Templates
	sender    Sender
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewDirectMailer creates a mailer that sends synchronously
func NewDirectMailer(templates *Templates, sender Sender, metrics *observability.Metrics, logger *zap.Logger) *DirectMailer {
	return &DirectMailer{
		templates: templates,
		sender:    sender,
		metrics:   metrics,
		logger:    logger,
	}
}

func (m *DirectMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, &Job{Kind: KindVerification, To: to, Token: token})
}

func (m *DirectMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	return m.send(ctx, &Job{Kind: KindPasswordReset, To: to, Token: token})
}

func (m *DirectMailer) send(ctx context.Context, job *Job) error {
	msg, err := m.templates.Render(job)
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		m.metrics.MailJob(ctx, string(job.Kind), observability.ResultFailure)
		return err
	}

	m.metrics.MailJob(ctx, string(job.Kind), observability.ResultSuccess)
	m.logger.Info("Email sent", zap.String("kind", string(job.Kind)))
	return nil
}

// QueuedMailer hands emails to the job queue and returns immediately
type QueuedMailer struct {
	queue *Queue
}

// NewQueuedMailer creates a mailer that enqueues jobs for the Worker
func NewQueuedMailer(queue *Queue) *QueuedMailer {
	return &QueuedMailer{queue: queue}
}

func (m *QueuedMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	return m.enqueue(ctx, KindVerification, to, token)
}

func (m *QueuedMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	return m.enqueue(ctx, KindPasswordReset, to, token)
}

func (m *QueuedMailer) enqueue(ctx context.Context, kind Kind, to, token string) error {
	job := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		To:        to,
		Token:     token,
		CreatedAt: time.Now(),
	}

	if err := m.queue.Push(ctx, job); err != nil {
		return fmt.Errorf("enqueue %s email: %w", kind, err)
	}
	return nil
}

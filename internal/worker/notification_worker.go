package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/notification"
)

// Renderer turns a job into a sendable message.
type Renderer interface {
	Render(job notification.Job) (notification.Message, error)
}

// NotificationWorkerConfig tunes delivery.
type NotificationWorkerConfig struct {
	MaxAttempts int
	PollTimeout time.Duration
	ErrorPause  time.Duration
}

// NotificationWorker drains the notification queue and sends email.
type NotificationWorker struct {
	queue    notification.Queue
	renderer Renderer
	mailer   notification.Mailer
	logger   *zap.Logger
	cfg      NotificationWorkerConfig
}

// NewNotificationWorker wires a worker.
func NewNotificationWorker(queue notification.Queue, renderer Renderer, mailer notification.Mailer, logger *zap.Logger, cfg NotificationWorkerConfig) *NotificationWorker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = time.Second
	}
	return &NotificationWorker{
		queue:    queue,
		renderer: renderer,
		mailer:   mailer,
		logger:   logger.Named("notification_worker"),
		cfg:      cfg,
	}
}

// Run processes jobs until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) error {
	recovered, err := w.queue.Recover(ctx)
	if err != nil {
		w.logger.Warn("recover in-flight jobs failed", zap.Error(err))
	} else if recovered > 0 {
		w.logger.Info("requeued in-flight jobs", zap.Int("count", recovered))
	}

	w.logger.Info("notification worker started", zap.Int("max_attempts", w.cfg.MaxAttempts))
	for {
		if ctx.Err() != nil {
			w.logger.Info("notification worker stopped")
			return nil
		}
		if _, err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("dequeue notification failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.cfg.ErrorPause):
			}
		}
	}
}

// ProcessNext handles at most one job. It reports whether a job was taken.
func (w *NotificationWorker) ProcessNext(ctx context.Context) (bool, error) {
	d, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
	if errors.Is(err, notification.ErrMalformedJob) {
		w.logger.Warn("dropped malformed notification job", zap.Error(err))
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, nil
	}

	logger := w.logger.With(
		zap.String("job_id", d.Job.ID),
		zap.String("template", string(d.Job.Template)),
		zap.Int("attempt", d.Job.Attempts+1),
	)

	msg, err := w.renderer.Render(d.Job)
	if err != nil {
		logger.Error("render notification failed", zap.Error(err))
		if dlErr := w.queue.DeadLetter(ctx, d, err); dlErr != nil {
			logger.Error("dead-letter notification failed", zap.Error(dlErr))
		}
		return true, nil
	}

	if err := w.mailer.Send(ctx, msg); err != nil {
		if d.Job.Attempts+1 >= w.cfg.MaxAttempts {
			logger.Warn("email delivery exhausted retries", zap.Error(err))
			if dlErr := w.queue.DeadLetter(ctx, d, err); dlErr != nil {
				logger.Error("dead-letter notification failed", zap.Error(dlErr))
			}
			return true, nil
		}
		logger.Warn("email delivery failed; will retry", zap.Error(err))
		if rErr := w.queue.Retry(ctx, d, err); rErr != nil {
			logger.Error("requeue notification failed", zap.Error(rErr))
		}
		return true, nil
	}

	if err := w.queue.Ack(ctx, d); err != nil {
		logger.Error("ack notification failed", zap.Error(err))
	}
	logger.Debug("email delivered")
	return true, nil
}

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/config"
	"github.com/supportdesk/helpdesk-api/internal/mail"
	"github.com/supportdesk/helpdesk-api/internal/observability"
)

const sendTimeout = time.Minute

// Job is one notification to render and deliver.
type Job struct {
	ID       string
	To       string
	Template string
	Params   map[string]any
}

// Renderer produces the message parts for a template.
type Renderer interface {
	Render(name string, params map[string]any) (mail.Rendered, error)
}

// NotificationPool delivers jobs on a fixed set of goroutines fed by a
// bounded queue. Enqueue never blocks; failures are logged once and dropped.
type NotificationPool struct {
	jobs     chan Job
	workers  int
	renderer Renderer
	sender   mail.Sender
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewNotificationPool builds a pool; call Start before enqueueing.
func NewNotificationPool(cfg config.NotificationConfig, renderer Renderer, sender mail.Sender, logger *zap.Logger, metrics *observability.Metrics) *NotificationPool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &NotificationPool{
		jobs:     make(chan Job, size),
		workers:  workers,
		renderer: renderer,
		sender:   sender,
		logger:   logger,
		metrics:  metrics,
	}
}

// Start launches the worker goroutines. It is safe to call once.
func (p *NotificationPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.logger.Info("notification workers started", zap.Int("workers", p.workers), zap.Int("queue_size", cap(p.jobs)))
}

// Enqueue schedules job and reports whether it was accepted.
func (p *NotificationPool) Enqueue(job Job) bool {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("notification pool closed; dropping job", jobFields(job)...)
		p.metrics.RecordNotification(job.Template, observability.NotificationDropped)
		return false
	}

	select {
	case p.jobs <- job:
		p.metrics.RecordNotification(job.Template, observability.NotificationQueued)
		return true
	default:
		p.logger.Error("notification queue full; dropping job", jobFields(job)...)
		p.metrics.RecordNotification(job.Template, observability.NotificationDropped)
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued ones to drain or ctx to end.
func (p *NotificationPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *NotificationPool) run(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.deliver(id, job)
	}
}

func (p *NotificationPool) deliver(workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(job, "", fmt.Errorf("panic: %v", r))
		}
	}()

	rendered, err := p.renderer.Render(job.Template, job.Params)
	if err != nil {
		p.fail(job, "", err)
		return
	}

	// Detached from any request: a client disconnect must not cancel delivery.
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	msg := mail.Message{
		To:      job.To,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	}
	if err := p.sender.Send(ctx, msg); err != nil {
		p.fail(job, rendered.Subject, err)
		return
	}

	p.metrics.RecordNotification(job.Template, observability.NotificationSent)
	p.logger.Debug("notification sent",
		append(jobFields(job), zap.Int("worker", workerID), zap.String("subject", rendered.Subject))...)
}

func (p *NotificationPool) fail(job Job, subject string, err error) {
	p.metrics.RecordNotification(job.Template, observability.NotificationFailed)
	p.logger.Error("notification failed",
		append(jobFields(job), zap.String("subject", subject), zap.Error(err))...)
}

func jobFields(job Job) []zap.Field {
	return []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("recipient", job.To),
		zap.String("template", job.Template),
	}
}

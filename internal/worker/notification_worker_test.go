package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/config"
	"github.com/supportdesk/helpdesk-api/internal/mail"
	"github.com/supportdesk/helpdesk-api/internal/observability"
)

type stubRenderer struct {
	failFor string
}

func (r stubRenderer) Render(name string, params map[string]any) (mail.Rendered, error) {
	if name == r.failFor {
		return mail.Rendered{}, errors.New("template exploded")
	}
	return mail.Rendered{Subject: "subject " + name, Text: "text", HTML: "<p>html</p>"}, nil
}

type recordingSender struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo string
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	if msg.To == s.failTo {
		return errors.New("smtp 550 mailbox unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, msg := range s.sent {
		out = append(out, msg.To)
	}
	return out
}

func newPool(t *testing.T, cfg config.NotificationConfig, renderer Renderer, sender mail.Sender) (*NotificationPool, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	return NewNotificationPool(cfg, renderer, sender, zap.NewNop(), metrics), metrics
}

func shutdown(t *testing.T, p *NotificationPool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestPoolDeliversAndIsolatesFailures(t *testing.T) {
	sender := &recordingSender{failTo: "bounce@msi.test"}
	pool, metrics := newPool(t, config.NotificationConfig{Workers: 2, QueueSize: 8}, stubRenderer{failFor: "broken"}, sender)
	pool.Start()

	jobs := []Job{
		{To: "support@msi.test", Template: "ticket_created_support"},
		{To: "bounce@msi.test", Template: "ticket_created_submitter"},
		{To: "cc@msi.test", Template: "broken"},
		{To: "ada@msi.test", Template: "ticket_status"},
	}
	for _, job := range jobs {
		if !pool.Enqueue(job) {
			t.Fatalf("enqueue %s rejected", job.To)
		}
	}
	shutdown(t, pool)

	got := map[string]bool{}
	for _, to := range sender.recipients() {
		got[to] = true
	}
	if len(got) != 2 || !got["support@msi.test"] || !got["ada@msi.test"] {
		t.Errorf("unexpected deliveries %v", got)
	}

	snap := metrics.Snapshot()
	if snap.Notifications["ticket_created_submitter|failed"] != 1 {
		t.Errorf("expected send failure to be counted, got %v", snap.Notifications)
	}
	if snap.Notifications["broken|failed"] != 1 {
		t.Errorf("expected render failure to be counted, got %v", snap.Notifications)
	}
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	pool, metrics := newPool(t, config.NotificationConfig{Workers: 1, QueueSize: 1}, stubRenderer{}, &recordingSender{})

	if !pool.Enqueue(Job{To: "a@msi.test", Template: "t"}) {
		t.Fatal("first job should fit")
	}
	if pool.Enqueue(Job{To: "b@msi.test", Template: "t"}) {
		t.Fatal("second job should be dropped without blocking")
	}
	if metrics.Snapshot().Notifications["t|dropped"] != 1 {
		t.Error("expected a dropped counter")
	}
	pool.Start()
	shutdown(t, pool)
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	sender := &recordingSender{}
	pool, _ := newPool(t, config.NotificationConfig{Workers: 1, QueueSize: 4}, stubRenderer{}, sender)
	pool.Start()
	shutdown(t, pool)

	if pool.Enqueue(Job{To: "late@msi.test", Template: "t"}) {
		t.Error("enqueue after shutdown should be rejected")
	}
	shutdown(t, pool)
}

func TestPoolShutdownDrainsQueue(t *testing.T) {
	sender := &recordingSender{}
	pool, _ := newPool(t, config.NotificationConfig{Workers: 1, QueueSize: 16}, stubRenderer{}, sender)
	for i := 0; i < 10; i++ {
		pool.Enqueue(Job{To: "ada@msi.test", Template: "t"})
	}
	pool.Start()
	shutdown(t, pool)

	if n := len(sender.recipients()); n != 10 {
		t.Errorf("expected 10 deliveries after drain, got %d", n)
	}
}

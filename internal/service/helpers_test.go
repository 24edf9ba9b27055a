package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-api/internal/config"
	"github.com/supportdesk/helpdesk-api/internal/domain"
	"github.com/supportdesk/helpdesk-api/internal/events"
	"github.com/supportdesk/helpdesk-api/internal/persistence"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	"github.com/supportdesk/helpdesk-api/internal/worker"
)

// stepClock returns a strictly increasing time, one second per call.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []worker.Job
	full bool
}

func (q *recordingQueue) Enqueue(job worker.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func (q *recordingQueue) snapshot() []worker.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]worker.Job(nil), q.jobs...)
}

func (q *recordingQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = nil
}

func (q *recordingQueue) templatesFor(to string) []string {
	var out []string
	for _, job := range q.snapshot() {
		if job.To == to {
			out = append(out, job.Template)
		}
	}
	return out
}

type failingAttachments struct{}

func (failingAttachments) SaveAll(context.Context, []storage.Upload) ([]string, error) {
	return nil, errors.New("disk full")
}

func (failingAttachments) Discard([]string) {}

type memoryNames struct {
	mu    sync.Mutex
	names map[string]string
	gets  int
}

func (m *memoryNames) Get(_ context.Context, email string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	name, ok := m.names[email]
	return name, ok, nil
}

func (m *memoryNames) Set(_ context.Context, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.names == nil {
		m.names = map[string]string{}
	}
	m.names[email] = name
	return nil
}

func (m *memoryNames) Forget(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.names, email)
	return nil
}

type fixture struct {
	clock   *stepClock
	queue   *recordingQueue
	users   repository.UserRepository
	tickets *TicketService
	tasks   *TaskService
	auth    *AuthService
	store   *persistence.SQLite
}

type fixtureOption func(*TicketDependencies)

func withAttachments(a AttachmentStore) fixtureOption {
	return func(d *TicketDependencies) { d.Attachments = a }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := persistence.NewSQLite(ctx, filepath.Join(t.TempDir(), "helpdesk.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)

	ticketRepo := repository.NewSQLiteTicketRepository(store.DB)
	taskRepo := repository.NewSQLiteTaskRepository(store.DB)
	userRepo := repository.NewSQLiteUserRepository(store.DB)
	historyRepo := repository.NewSQLiteTicketHistoryRepository(store.DB)

	clock := newStepClock()
	queue := &recordingQueue{}
	dispatcher := events.NewInMemoryDispatcher(logger)

	NewNotificationService(dispatcher, queue, logger,
		config.MailConfig{SupportAddress: "support@helpdesk.test"},
		config.NotificationConfig{CompanyName: "Helpdesk"},
		clock.Now,
	).RegisterHandlers()
	NewHistoryRecorder(historyRepo, logger).RegisterHandlers(dispatcher)

	local, err := storage.NewLocal(config.StorageConfig{UploadDir: t.TempDir(), PublicPrefix: "/uploads"})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	engine := NewPatchEngine(ticketRepo, taskRepo, clock.Now)
	deps := TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Engine:      engine,
		Projector:   NewProjector(userRepo, nil, logger),
		Attachments: local,
		Dispatcher:  dispatcher,
		Clock:       clock.Now,
		Logger:      logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &fixture{
		clock:   clock,
		queue:   queue,
		users:   userRepo,
		tickets: NewTicketService(deps),
		tasks:   NewTaskService(taskRepo, engine, local, clock.Now),
		auth: NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 30, BcryptCost: 4}, AuthDependencies{
			UserRepo:   userRepo,
			Dispatcher: dispatcher,
			Clock:      clock.Now,
			Logger:     logger,
		}),
		store: store,
	}
}

func (f *fixture) createTicket(t *testing.T, input TicketCreateInput) *domain.TicketView {
	t.Helper()
	if input.Title == "" {
		input.Title = "Printer jammed"
	}
	if input.SubmittedBy == "" {
		input.SubmittedBy = "ada@helpdesk.test"
	}
	view, err := f.tickets.CreateTicket(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return view
}

func ptr[T any](v T) *T {
	return &v
}

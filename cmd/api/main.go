package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/helpdesk-api/internal/api/http"
	"github.com/supportdesk/helpdesk-api/internal/api/http/handlers"
	"github.com/supportdesk/helpdesk-api/internal/cache"
	"github.com/supportdesk/helpdesk-api/internal/config"
	"github.com/supportdesk/helpdesk-api/internal/events"
	"github.com/supportdesk/helpdesk-api/internal/mail"
	"github.com/supportdesk/helpdesk-api/internal/observability"
	"github.com/supportdesk/helpdesk-api/internal/persistence"
	"github.com/supportdesk/helpdesk-api/internal/repository"
	"github.com/supportdesk/helpdesk-api/internal/service"
	"github.com/supportdesk/helpdesk-api/internal/storage"
	"github.com/supportdesk/helpdesk-api/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// repositories is the record store selected by STORE_DRIVER.
type repositories struct {
	tickets repository.TicketRepository
	tasks   repository.TaskRepository
	users   repository.UserRepository
	history repository.TicketHistoryRepository
	pinger  handlers.Pinger
	close   func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open record store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer repos.close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	displayNames := cache.NewDisplayNames(redis.Client, cfg.Redis.DisplayNameTTL)

	uploads, err := storage.NewLocal(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to prepare upload storage", zap.Error(err))
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		logger.Fatal("failed to load mail templates", zap.Error(err))
	}
	metrics := observability.NewMetrics()
	notifications := worker.NewNotificationPool(cfg.Notification, renderer, mail.NewSender(cfg.Mail, logger), logger, metrics)
	notifications.Start()

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(dispatcher, notifications, logger, cfg.Mail, cfg.Notification, nil).RegisterHandlers()
	service.NewHistoryRecorder(repos.history, logger).RegisterHandlers(dispatcher)

	engine := service.NewPatchEngine(repos.tickets, repos.tasks, nil)
	projector := service.NewProjector(repos.users, displayNames, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		HistoryRepo: repos.history,
		Engine:      engine,
		Projector:   projector,
		Attachments: uploads,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	taskService := service.NewTaskService(repos.tasks, engine, uploads, nil)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   repos.users,
		Names:      displayNames,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	deps := map[string]handlers.Pinger{"store": repos.pinger}
	if redis.Client != nil {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: bodyLimit(cfg.Storage),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.CORSOrigins)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		Users:        handlers.NewUsersHandler(authService),
		Tickets:      handlers.NewTicketsHandler(ticketService),
		Tasks:        handlers.NewTasksHandler(taskService),
		Tokens:       authService.TokenManager(),
		UploadPrefix: uploads.Prefix(),
		UploadDir:    uploads.Dir(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := notifications.Shutdown(drainCtx); err != nil {
		logger.Error("notification queue not drained", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repositories, error) {
	if cfg.Store.Driver == config.StoreDriverSQLite {
		db, err := persistence.NewSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &repositories{
			tickets: repository.NewSQLiteTicketRepository(db.DB),
			tasks:   repository.NewSQLiteTaskRepository(db.DB),
			users:   repository.NewSQLiteUserRepository(db.DB),
			history: repository.NewSQLiteTicketHistoryRepository(db.DB),
			pinger:  db,
			close:   db.Close,
		}, nil
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	pool := pg.PoolHandle()
	return &repositories{
		tickets: repository.NewTicketRepository(pool),
		tasks:   repository.NewTaskRepository(pool),
		users:   repository.NewUserRepository(pool),
		history: repository.NewTicketHistoryRepository(pool),
		pinger:  pg,
		close:   pg.Close,
	}, nil
}

// bodyLimit leaves room for several attachments plus form fields.
func bodyLimit(cfg config.StorageConfig) int {
	if cfg.MaxUploadBytes <= 0 {
		return fiber.DefaultBodyLimit
	}
	return cfg.MaxUploadBytes*8 + 1<<20
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

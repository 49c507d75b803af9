package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EagleChen/mapmutex"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type repositories struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	technicians repository.TechnicianRepository
	history     repository.TicketHistoryRepository
	comments    repository.TicketCommentRepository
	resets      repository.PasswordResetRepository
	emailConfig repository.EmailConfigRepository
	departments repository.DepartmentRepository
	categories  repository.TicketCategoryRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	readiness := map[string]handlers.Pinger{}
	var repos repositories
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repositories{
			tickets:     repository.NewTicketRepository(pool),
			users:       repository.NewUserRepository(pool),
			technicians: repository.NewTechnicianRepository(pool),
			history:     repository.NewTicketHistoryRepository(pool),
			comments:    repository.NewTicketCommentRepository(pool),
			resets:      repository.NewPasswordResetRepository(pool),
			emailConfig: repository.NewEmailConfigRepository(pool),
			departments: repository.NewDepartmentRepository(pool),
			categories:  repository.NewTicketCategoryRepository(pool),
		}
		readiness["postgres"] = pg
	} else {
		store := memory.NewStore()
		repos = repositories{
			tickets:     store.Tickets(),
			users:       store.Users(),
			technicians: store.Technicians(),
			history:     store.History(),
			comments:    store.Comments(),
			resets:      store.PasswordResets(),
			emailConfig: store.EmailConfig(),
			departments: store.Departments(),
			categories:  store.Categories(),
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	if redis != nil {
		readiness["redis"] = redis
	}
	outbox := redis.Outbox(cfg.Notification)

	directory, err := repository.NewCachedTechnicianDirectory(repos.technicians,
		cfg.Lifecycle.TechnicianCacheSize, cfg.Lifecycle.TechnicianCacheTTL())
	if err != nil {
		logger.Fatal("failed to build technician directory", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	locks := mapmutex.NewCustomizedMapMutex(
		cfg.Lifecycle.LockMaxRetries,
		float64(time.Duration(cfg.Lifecycle.LockMaxDelayMillis)*time.Millisecond),
		10, 1.1, 0.2)
	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Store:     repos.tickets,
		Directory: directory,
		Notifier:  events.NewNotifier(dispatcher),
		History:   repos.history,
		Observer:  metrics,
		Logger:    logger,
		Locks:     locks,
	})

	catalogService := service.NewCatalogService(service.CatalogDependencies{
		DepartmentRepo: repos.departments,
		CategoryRepo:   repos.categories,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		HistoryRepo: repos.history,
		Catalog:     catalogService,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: repos.tickets,
		Directory:  directory,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:      dispatcher,
		UserRepo:        repos.users,
		EmailConfigRepo: repos.emailConfig,
		Outbox:          outbox,
		Observer:        metrics,
		Logger:          logger,
		Config:          cfg.Notification,
	})
	emailConfigService := service.NewEmailConfigService(service.EmailConfigDependencies{
		EmailConfigRepo: repos.emailConfig,
		Outbox:          outbox,
		Dispatcher:      dispatcher,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          repos.users,
		PasswordResetRepo: repos.resets,
		Outbox:            outbox,
		Logger:            logger,
	})
	userAdminService := service.NewUserAdminService(service.UserAdminDependencies{
		UserRepo:        repos.users,
		DepartmentRepo:  repos.departments,
		TechnicianCache: directory,
		BcryptCost:      cfg.Auth.BcryptCost,
	})

	worker.StartNotificationWorker(notificationService, logger)

	if err := authService.BootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService, cfg.App.Env != "production"),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Technicians:    handlers.NewTechniciansHandler(assignmentService, ticketService),
		EmailAdmin:     handlers.NewEmailAdminHandler(emailConfigService),
		UsersAdmin:     handlers.NewUsersAdminHandler(userAdminService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.users),
		Gatherer:       registry,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

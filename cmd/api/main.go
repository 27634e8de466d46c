package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/Thinkpad-Django-Lenovo/helpdesk/internal/api/http"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/api/http/handlers"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/auth"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/config"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/events"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/notify"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/observability"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/persistence"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/repository/memstore"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/service"
	"github.com/Thinkpad-Django-Lenovo/helpdesk/internal/worker"
)

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	var store repository.Store
	if pool != nil {
		store = repository.NewStore(pool)
	} else {
		store = memstore.New()
	}

	dispatcher := events.NewInMemoryDispatcher()

	var sink notify.Sink
	if redisConn.Client != nil {
		sink = notify.NewRedisSink(redisConn.Client, cfg.Notification.ChannelPrefix, logger)
	} else {
		sink = notify.NopSink{}
	}

	notificationService := service.NewNotificationService(dispatcher, sink, logger)
	worker.StartNotificationWorker(notificationService)

	ticketService := service.NewTicketService(store, dispatcher, cfg.Ticket)
	taskService := service.NewTaskService(store, dispatcher)
	userService := service.NewUserService(store)
	auditService := service.NewAuditService(store)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, store.Users())

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Users:          handlers.NewUsersHandler(userService),
		Audit:          handlers.NewAuditHandler(auditService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

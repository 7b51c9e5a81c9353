package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/dealerkit/chat-orchestrator/internal/api/http"
	"github.com/dealerkit/chat-orchestrator/internal/api/http/handlers"
	"github.com/dealerkit/chat-orchestrator/internal/auth"
	"github.com/dealerkit/chat-orchestrator/internal/config"
	"github.com/dealerkit/chat-orchestrator/internal/domain"
	"github.com/dealerkit/chat-orchestrator/internal/events"
	"github.com/dealerkit/chat-orchestrator/internal/gateway"
	"github.com/dealerkit/chat-orchestrator/internal/lock"
	"github.com/dealerkit/chat-orchestrator/internal/observability"
	"github.com/dealerkit/chat-orchestrator/internal/persistence"
	"github.com/dealerkit/chat-orchestrator/internal/repository"
	"github.com/dealerkit/chat-orchestrator/internal/service"
	"github.com/dealerkit/chat-orchestrator/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	conversationRepo := repository.NewConversationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	identityRepo := repository.NewIdentityRepository(pool)

	conversationService := service.NewConversationService(conversationRepo, messageRepo, dispatcher, logger)
	resolver := service.NewIdentityResolver(identityRepo, conversationRepo, dispatcher, logger, cfg.Phone.CountryCode)
	classifier := service.NewIntentClassifier(resolver, logger)

	gatewayClient := gateway.NewHTTPClient(cfg.Gateway, logger)

	registry := service.NewOperationRegistry()
	registry.Register(domain.CommandReport, service.NewReportHandler(service.NewStubArtifactGenerator(logger)))
	registry.Register(domain.CommandInventory, service.NewInventoryHandler(service.StubInventoryReader{}))
	registry.Register(domain.CommandStatus, service.NewStatusHandler(cfg.App.Version))
	registry.Register(domain.CommandStatistics, service.NewStatisticsHandler(service.StubStatisticsReader{}))
	registry.Register(domain.CommandAnalytics, service.NewAnalyticsHandler(service.StubAnalyticsReader{}))

	broadcaster := service.NewBroadcastService(
		identityRepo, gatewayClient, service.NoRetry{}, dispatcher, metrics, logger, cfg.Phone.CountryCode)

	// Redis serializes conversations across replicas; single-node deployments
	// still get correct serialization from it, and the in-process mutex is the
	// fallback when Redis is down at startup.
	var locker lock.Locker = lock.NewKeyedMutex()
	if redis.Ping(ctx) == nil {
		locker = lock.NewRedisLocker(redis.Client)
	}

	orchestrator := service.NewOrchestrator(service.OrchestratorDependencies{
		Conversations:   conversationService,
		Resolver:        resolver,
		Classifier:      classifier,
		Registry:        registry,
		Broadcaster:     broadcaster,
		Gateway:         gatewayClient,
		Locker:          locker,
		Deduper:         redis,
		Metrics:         metrics,
		Logger:          logger,
		CountryCode:     cfg.Phone.CountryCode,
		DefaultClientID: cfg.Gateway.DefaultClientID,
	})

	auditService := service.NewAuditService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, identityRepo)
	webhookVerifier := auth.NewWebhookVerifier(cfg.Gateway)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:         handlers.NewWebhookHandler(orchestrator),
		Conversations:   handlers.NewConversationsHandler(conversationService, orchestrator, broadcaster),
		AuthMiddleware:  authMiddleware,
		WebhookVerifier: webhookVerifier,
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

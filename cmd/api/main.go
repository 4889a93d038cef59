package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/medhaven/portal-auth/internal/api/http"
	"github.com/medhaven/portal-auth/internal/api/http/handlers"
	"github.com/medhaven/portal-auth/internal/auth"
	"github.com/medhaven/portal-auth/internal/config"
	"github.com/medhaven/portal-auth/internal/identity"
	"github.com/medhaven/portal-auth/internal/observability"
	"github.com/medhaven/portal-auth/internal/persistence"
	"github.com/medhaven/portal-auth/internal/service"
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

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var verifier identity.Verifier
	switch cfg.Identity.Mode {
	case "memory":
		logger.Warn("using in-memory identity backend, development only")
		verifier = identity.NewMemory(identity.DevAccounts()...)
	default:
		verifier = identity.NewClient(cfg.Identity, logger)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTLMinutes)
	provider := identity.NewProvider(cfg.OAuth, logger)
	limiter := service.NewAttemptLimiter(redis.Client, cfg.RateLimit, logger)

	authService := service.NewAuthService(service.AuthDependencies{
		Verifier: verifier,
		Tokens:   tokens,
		Limiter:  limiter,
		Provider: provider,
		Metrics:  metrics,
		Logger:   logger,
	})

	guard := auth.NewGuard(tokens, metrics)
	pageGate := auth.NewPageGate(tokens, metrics)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, redis),
		Auth:     handlers.NewAuthHandler(authService, cfg.Auth.SecureCookies),
		Pages:    handlers.NewPagesHandler(),
		Records:  handlers.NewRecordsHandler(),
		Guard:    guard,
		PageGate: pageGate,
		Metrics:  adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
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

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
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

	credentials, err := buildCredentialStore(cfg, pg, logger)
	if err != nil {
		logger.Fatal("failed to build credential store", zap.Error(err))
	}
	attempts := repository.NewLoginAttemptStore(redis.Client, cfg.Auth.LoginFailureWindow(), logger)

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	authService, err := service.NewAuthService(*cfg, service.AuthDependencies{
		Credentials: credentials,
		Attempts:    attempts,
		Dispatcher:  dispatcher,
	})
	if err != nil {
		logger.Fatal("failed to build auth service", zap.Error(err))
	}
	accessGate := auth.NewAccessGate(authService.TokenManager(), logger)

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     healthHandler,
		Auth:       authHandler,
		AccessGate: accessGate,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildCredentialStore prefers Postgres; without a DSN it falls back to the
// in-memory seed table so the service stays usable in local development.
func buildCredentialStore(cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) (repository.CredentialStore, error) {
	if pg.PoolHandle() != nil {
		return repository.NewCredentialRepository(pg.PoolHandle()), nil
	}

	logger.Warn("no database configured; using in-memory credential seed")
	seeded := make(map[string]string, len(cfg.Auth.SeedUsers))
	for _, pair := range cfg.Auth.SeedUsers {
		username, secret, ok := strings.Cut(pair, ":")
		if !ok || username == "" || secret == "" {
			logger.Warn("skipping malformed seed entry")
			continue
		}
		hash, err := auth.HashSecret(secret, cfg.Auth.BcryptCost)
		if err != nil {
			return nil, err
		}
		seeded[username] = hash
	}
	return repository.NewStaticCredentialStore(seeded), nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

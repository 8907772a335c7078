package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/smallbiznis/valora-accounts/internal/adapter/cache"
	mailadapter "github.com/smallbiznis/valora-accounts/internal/adapter/mail"
	"github.com/smallbiznis/valora-accounts/internal/config"
	httptransport "github.com/smallbiznis/valora-accounts/internal/http"
	"github.com/smallbiznis/valora-accounts/internal/http/handler"
	"github.com/smallbiznis/valora-accounts/internal/http/middleware"
	"github.com/smallbiznis/valora-accounts/internal/jwt"
	"github.com/smallbiznis/valora-accounts/internal/repository"
	"github.com/smallbiznis/valora-accounts/internal/server"
	"github.com/smallbiznis/valora-accounts/internal/service"
	"github.com/smallbiznis/valora-accounts/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newMongoClient,
			newMongoDatabase,
			newUserRepository,
			newOrganizationRepository,
			newRedisClient,
			newCache,
			newMailer,
			newTokenGenerator,
			service.NewAuthService,
			service.NewUserService,
			service.NewOrganizationService,
			handler.NewAuthHandler,
			handler.NewUserHandler,
			handler.NewOrganizationHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, ensureIndexes, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newMongoClient(lc fx.Lifecycle, cfg config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client, nil
}

func newMongoDatabase(client *mongo.Client, cfg config.Config) *mongo.Database {
	return client.Database(cfg.MongoDatabase)
}

func newUserRepository(db *mongo.Database) repository.UserRepository {
	return repository.NewMongoUserRepo(db)
}

func newOrganizationRepository(db *mongo.Database) repository.OrganizationRepository {
	return repository.NewMongoOrganizationRepo(db)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newCache(client redis.UniversalClient, logger *zap.Logger) service.Cache {
	return cacheadapter.NewRedisCache(client, logger)
}

func newMailer(cfg config.Config, logger *zap.Logger) (service.Mailer, error) {
	return mailadapter.NewSMTPMailer(cfg, logger)
}

func newTokenGenerator(cfg config.Config) *jwt.Generator {
	return jwt.NewGenerator(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}

func newAuthMiddleware(tokens *jwt.Generator) *middleware.Auth {
	return &middleware.Auth{Tokens: tokens}
}

func ensureIndexes(lc fx.Lifecycle, db *mongo.Database) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repository.EnsureIndexes(ctx, db)
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				logger.Info("http server listening", zap.String("addr", addr))
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}

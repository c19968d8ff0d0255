// Package service wires the application together and owns the HTTP server
// lifecycle.
package service

import (
	"context"
	"database/sql"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wisefido-ppg-auth/internal/auth"
	"wisefido-ppg-auth/internal/config"
	"wisefido-ppg-auth/internal/httpapi"
	"wisefido-ppg-auth/internal/mlclient"
	"wisefido-ppg-auth/internal/repository"
	"wisefido-ppg-auth/internal/store"
)

// App holds every long-lived component of the service.
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	server      *Server
}

// NewApp connects the backing stores and builds the request pipeline.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := repository.OpenDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	redisClient := store.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := store.Ping(context.Background(), redisClient); err != nil {
		// the cache is an optimization; vitals lookups degrade to misses
		logger.Warn("Redis unreachable at startup", zap.Error(err))
	}

	enrollments := repository.NewEnrollmentRepository(db, logger)
	sessions := repository.NewSessionRepository(db, logger)
	kv := store.NewRedisKV(redisClient)
	ml := mlclient.NewClient(&cfg.ML, logger)

	authenticator := auth.New(cfg, enrollments, sessions, kv, logger,
		auth.WithMLAnalyzer(ml),
	)

	handler := httpapi.NewHandler(authenticator, enrollments, logger,
		httpapi.HealthCheck{Name: "database", Check: db.PingContext},
		httpapi.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return store.Ping(ctx, redisClient)
		}},
	)
	router := httpapi.NewRouter(logger)
	router.RegisterRoutes(handler)

	return &App{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		server:      NewServer(cfg.HTTP.Addr, router, logger),
	}, nil
}

// Start runs the HTTP server until it stops.
func (a *App) Start() error {
	return a.server.Start()
}

// Stop shuts the server down and closes the backing connections.
func (a *App) Stop(ctx context.Context) error {
	err := a.server.Stop(ctx)
	_ = a.redisClient.Close()
	_ = a.db.Close()
	return err
}

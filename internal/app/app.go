package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fleettrack/internal/config"
	"fleettrack/internal/db"
	httpserver "fleettrack/internal/http"
	"fleettrack/internal/http/handlers"
	"fleettrack/internal/http/middleware"
	"fleettrack/internal/livefeed"
	"fleettrack/internal/redisclient"
	"fleettrack/internal/repository"
	"fleettrack/internal/service"
	"fleettrack/internal/tracking"
	"fleettrack/internal/ws"
)

// App wires the fleettrack service dependencies.
type App struct {
	server      *httpserver.Server
	svc         *service.TrackingService
	hub         *ws.Hub
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisclient.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	positionRepo := repository.NewPositionRepository(sqlDB)
	vehicleRepo := repository.NewVehicleRepository(sqlDB)
	liveStore := livefeed.NewStore(redisClient, cfg.LivePositionTTL())
	hub := ws.NewHub(30*time.Second, logger)

	svc := service.New(positionRepo, vehicleRepo, liveStore, hub, logger, service.Options{
		PollInterval: cfg.PollInterval(),
		StoreTimeout: cfg.StoreTimeout(),
		Alerts: tracking.AlertConfig{
			SpeedLimitKmh: cfg.Tracking.SpeedLimitKmh,
			ProlongedStop: cfg.ProlongedStop(),
		},
	})

	ingestHandler := handlers.NewIngestHandler(svc, logger)

	routes := httpserver.Routes{
		FleetSnapshot:  handlers.NewFleetSnapshotHandler(svc),
		VehicleStatus:  handlers.NewVehicleStatusHandler(svc),
		Trajectory:     handlers.NewTrajectoryHandler(svc),
		Alerts:         handlers.NewAlertsHandler(svc),
		LiveFeed:       handlers.NewLiveFeedHandler(hub, logger),
		IngestPosition: ingestHandler.HandlePosition,
		Health:         handlers.NewHealthHandler(),
	}

	var auth func(http.Handler) http.Handler
	if secret := strings.TrimSpace(cfg.Auth.JWTSecret); secret != "" {
		auth = middleware.AuthMiddleware(secret)
	} else {
		logger.Warn("jwt secret not set, dashboard endpoints are unauthenticated")
	}

	router := httpserver.NewRouter(routes, auth)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		svc:         svc,
		hub:         hub,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the poll loop, the hub ping loop and the HTTP server.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)
	go func() {
		if err := a.svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("tracking loop stopped", zap.Error(err))
		}
	}()
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

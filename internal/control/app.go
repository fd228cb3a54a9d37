package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brazyl/brazyl/internal/core/config"
	"github.com/brazyl/brazyl/internal/delivery"
	"github.com/brazyl/brazyl/internal/follow"
	"github.com/brazyl/brazyl/internal/health"
	"github.com/brazyl/brazyl/internal/infra/cache"
	"github.com/brazyl/brazyl/internal/infra/emitter"
	"github.com/brazyl/brazyl/internal/infra/gateway"
	redisclient "github.com/brazyl/brazyl/internal/infra/redis"
	"github.com/brazyl/brazyl/internal/infra/storage"
	"github.com/brazyl/brazyl/internal/infra/storage/memory"
	"github.com/brazyl/brazyl/internal/infra/storage/postgres"
	"github.com/brazyl/brazyl/internal/infra/upstream"
	"github.com/brazyl/brazyl/internal/ingest/camara"
	"github.com/brazyl/brazyl/internal/ingest/roster"
	"github.com/brazyl/brazyl/internal/ingest/senado"
	"github.com/brazyl/brazyl/internal/ingest/transparencia"
)

// App owns every long-lived collaborator. Nothing is a package-level singleton.
type App struct {
	cfg *config.AppConfig

	Notifications storage.NotificationRepository
	Users         storage.UserRepository
	Politicians   storage.PoliticianRepository
	Follows       storage.FollowRepository

	Camara        *camara.Client
	Senado        *senado.Client
	Transparencia *transparencia.Client

	Dispatcher *delivery.Dispatcher
	Sweeper    *delivery.Sweeper
	Service    *delivery.Service
	Following  *follow.Service
	Roster     *roster.Syncer

	clients      []*upstream.RetryingClient
	emitter      emitter.Emitter
	db           *postgres.DB
	store        *memory.MemoryStorage
	redisClient  *redisclient.Client
	healthMon    *health.Monitor
	healthServer *health.Server
	grpcServer   *health.GRPCServer
	cancel       context.CancelFunc
	log          *slog.Logger
}

// NewApp builds the application graph from cfg.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.Notifications = postgres.NewNotificationRepo(db)
		a.Users = postgres.NewUserRepo(db)
		a.Politicians = postgres.NewPoliticianRepo(db)
		a.Follows = postgres.NewFollowRepo(db)
		a.log.Info("Using PostgreSQL storage")
	} else {
		a.store = memory.NewMemoryStorage()
		a.Notifications = memory.NewNotificationRepo(a.store)
		a.Users = memory.NewUserRepo(a.store)
		a.Politicians = memory.NewPoliticianRepo(a.store)
		a.Follows = memory.NewFollowRepo(a.store)
		a.log.Info("Using Memory storage")
	}

	// 2. Redis (optional)
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.log.Warn("Failed to connect to Redis, continuing without it", "error", err)
		} else {
			a.redisClient = rc
		}
	}

	// 3. Upstream clients behind the shared response cache
	responses := cache.New(a.cacheBackend())

	camaraClient := upstream.NewClient(cfg.Upstreams.Camara)
	senadoClient := upstream.NewClient(cfg.Upstreams.Senado)
	transparenciaCfg := cfg.Upstreams.Transparencia
	if cfg.Upstreams.TransparenciaAPIKey != "" {
		headers := map[string]string{transparencia.APIKeyHeader: cfg.Upstreams.TransparenciaAPIKey}
		for k, v := range transparenciaCfg.Headers {
			headers[k] = v
		}
		transparenciaCfg.Headers = headers
	}
	transparenciaClient := upstream.NewClient(transparenciaCfg)
	a.clients = []*upstream.RetryingClient{camaraClient, senadoClient, transparenciaClient}

	a.Camara = camara.New(cache.NewCachingClient(responses, camaraClient), cfg.Cache.TTL)
	a.Senado = senado.New(cache.NewCachingClient(responses, senadoClient), cfg.Cache.TTL)
	a.Transparencia = transparencia.New(cache.NewCachingClient(responses, transparenciaClient), cfg.Cache.TTL)
	a.Roster = roster.NewSyncer(a.Camara, a.Senado, a.Politicians)

	// 4. Delivery pipeline
	if len(cfg.Kafka.Brokers) > 0 {
		a.emitter = emitter.NewKafkaEmitter(cfg.Kafka)
	} else {
		a.emitter = emitter.NewLogEmitter()
	}
	if cfg.Gateway.BaseURL == "" {
		a.log.Warn("No gateway configured, every send will fail")
	}
	gw := gateway.NewAvisa(cfg.Gateway)

	a.Dispatcher = delivery.NewDispatcher(a.Notifications, gw, a.emitter)
	var locker delivery.Locker
	if a.redisClient != nil {
		locker = a.redisClient
	}
	a.Sweeper = delivery.NewSweeper(cfg.Sweep, a.Notifications, a.Dispatcher, locker)
	a.Service = delivery.NewService(a.Notifications, a.Users, a.Dispatcher)
	a.Following = follow.NewService(a.Follows, a.Users, a.Politicians)

	// 5. Health
	a.healthMon = health.NewMonitor(10 * time.Second)
	if a.db != nil {
		a.healthMon.AddCheck("database", true, a.db.Health)
	}
	if a.redisClient != nil {
		a.healthMon.AddCheck("redis", false, a.redisClient.Ping)
	}
	for _, c := range a.clients {
		a.healthMon.AddPermitPool(c.Host(), c.Permits())
	}
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)
	if cfg.Server.GRPCPort > 0 {
		a.grpcServer = health.NewGRPCServer(a.healthMon, cfg.Server.GRPCPort)
	}

	return a, nil
}

func (a *App) cacheBackend() cache.Backend {
	switch a.cfg.Cache.Backend {
	case "none":
		return cache.NoopBackend{}
	case "redis":
		if a.redisClient != nil {
			return a.redisClient
		}
		a.log.Warn("Redis cache requested but unavailable, using memory cache")
	}
	return cache.NewMemoryBackend()
}

// Start launches the background services: health servers, DB metrics and the sweep.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.grpcServer != nil {
		go func() {
			if err := a.grpcServer.Start(ctx); err != nil {
				a.log.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	a.log.Info("Starting sweeper", "interval", a.cfg.Sweep.Interval, "batch_size", a.cfg.Sweep.BatchSize)
	go a.Sweeper.Start(ctx)

	return nil
}

// Stop stops background work and releases connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping Brazyl...")

	if a.cancel != nil {
		a.cancel()
	}
	if a.grpcServer != nil {
		a.grpcServer.Stop()
	}

	var errs []error
	if err := a.healthServer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(append(errs, a.Close())...)
}

// Close releases connections without touching servers. Commands that never
// call Start use it directly.
func (a *App) Close() error {
	var errs []error
	if err := a.emitter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close emitter: %w", err))
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

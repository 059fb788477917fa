package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"grandresort/internal/api"
	"grandresort/internal/booking"
	"grandresort/internal/config"
	"grandresort/internal/dashboard"
	"grandresort/internal/database"
	"grandresort/internal/events"
	"grandresort/internal/kv"
	"grandresort/internal/metrics"
	"grandresort/internal/models"
	"grandresort/internal/repository"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("RESORT_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sqliteStore, err := openStore(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store error")
	}
	defer store.Close()

	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load room catalog")
	}

	repos := repository.New(store, &logger)
	if err := repos.Init(ctx, catalog); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}

	bus := events.NewEventBus(&logger)
	svc := booking.NewService(repos, &logger, booking.WithEventBus(bus))
	agg := dashboard.NewAggregator(repos, svc, &logger,
		dashboard.WithRecentLimit(cfg.DashboardRecentLimit()),
		dashboard.WithMonths(cfg.DashboardMonths()),
	)
	agg.Attach(bus)

	if interval := cfg.CatalogWatchInterval(); interval > 0 {
		err := config.WatchCatalog(ctx, cfg.Catalog.Path, interval, nil, &logger, func(rooms []models.Room) {
			if err := repos.Rooms.Replace(ctx, rooms); err != nil {
				logger.Error().Err(err).Msg("failed to store reloaded catalog")
				return
			}
			agg.Invalidate()
		})
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.Catalog.Path).Msg("catalog watch disabled")
		}
	}

	if cfg.Kafka.Enabled {
		writer := events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		forwarder := events.NewKafkaForwarder(writer, cfg.Kafka.BufferSize, cfg.Kafka.MaxRetries, &logger)
		forwarder.Attach(bus)
		go func() {
			if err := forwarder.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("kafka forwarder stopped")
			}
		}()
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka forwarding enabled")
	}

	if cfg.Backup.Enabled {
		if sqliteStore == nil {
			logger.Warn().Str("backend", cfg.StoreBackend()).Msg("backups need a sqlite store; skipping")
		} else {
			backups := database.NewBackupService(sqliteStore, database.BackupConfig{
				Enabled:       true,
				Interval:      cfg.BackupInterval(),
				StoragePath:   cfg.BackupPath(),
				RetentionDays: cfg.Backup.RetentionDays,
			}, &logger)
			go backups.Start(ctx)
		}
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.PrometheusPort(), &logger)
	}

	rateLimit, burst := cfg.RateLimit()
	server := api.NewHTTPServer(svc, agg, store, api.Options{
		Addr:         cfg.HTTPAddress(),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		RateLimit:    rateLimit,
		Burst:        burst,
	}, &logger)

	logger.Info().Str("backend", cfg.StoreBackend()).Msg("Grand Resort booking service started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("http server error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Logging.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// openStore builds the configured backend. The sqlite store is returned
// separately when one is in use so it can be backed up.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (kv.Store, *kv.SQLiteStore, error) {
	switch cfg.StoreBackend() {
	case config.BackendMemory:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return kv.NewMemoryStore(), nil, nil

	case config.BackendSQLite:
		s, err := kv.NewSQLiteStore(cfg.SQLitePath(), logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case config.BackendRedis:
		return openRedis(ctx, cfg, logger), nil, nil

	case config.BackendFailover:
		fallback, err := kv.NewSQLiteStore(cfg.SQLitePath(), logger)
		if err != nil {
			return nil, nil, err
		}
		primary := openRedis(ctx, cfg, logger)
		l := logger.With().Str("component", "failover_store").Logger()
		return kv.NewFailoverStore(primary, fallback, &l, kv.WithRecoveryInterval(cfg.FailoverRecovery())), fallback, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend())
}

func openRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *kv.RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Store.Redis.Address,
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
	})

	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctxPing).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Store.Redis.Address).Msg("redis not reachable at startup")
	}
	return kv.NewRedisStore(rdb, cfg.RedisPrefix())
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

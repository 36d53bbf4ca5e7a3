package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"energy_usage/internal/bus"
	"energy_usage/internal/config"
	"energy_usage/internal/directory"
	"energy_usage/internal/handlers"
	"energy_usage/internal/logger"
	"energy_usage/internal/models"
	"energy_usage/internal/repository"
	"energy_usage/internal/repository/db"
	"energy_usage/internal/server"
	"energy_usage/internal/service"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.uber.org/zap"
)

func main() {
	// load configs/config.yml + env overrides
	cfg, err := config.Load("configs", ".")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	// open DB
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// time-series store
	influx := influxdb2.NewClientWithOptions(cfg.Influx.URL, cfg.Influx.Token,
		influxdb2.DefaultOptions().SetPrecision(time.Millisecond))
	defer influx.Close()
	store := repository.NewInfluxStore(influx, cfg.Influx.Org, repository.InfluxOptions{
		Bucket:           cfg.Influx.Bucket,
		Measurement:      cfg.Influx.Measurement,
		Field:            cfg.Influx.Field,
		MaxFilterDevices: cfg.Influx.MaxFilterDevices,
	}, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dirs := openDirectories(ctx, cfg, log)

	publisher := bus.NewAlertPublisher(cfg.Kafka.Brokers, cfg.Kafka.AlertTopic)
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Errorw("failed to close alert publisher", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(store, sqlDB)
	services := service.NewService(repos, dirs, publisher, service.Options{
		Window:         cfg.Aggregation.Window,
		StoreTimeout:   cfg.Influx.Timeout,
		PublishTimeout: cfg.Kafka.PublishTimeout,
		MaxDays:        cfg.Usage.MaxDays,
		Log:            log,
	})
	apiHandler := handlers.NewHandler(services, log, cfg.Usage.DefaultDays)

	// background workers; deferred closes run only after they return
	var workers sync.WaitGroup
	defer workers.Wait()

	// start aggregation (via composed service)
	workers.Add(1)
	go func() {
		defer workers.Done()
		services.Aggregator.Run(ctx, cfg.Aggregation.Interval)
	}()

	// start ingest consumer
	consumer := bus.NewReadingConsumer(bus.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.UsageTopic,
		GroupID: cfg.Kafka.GroupID,
	}, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		consumer.Run(ctx, ingestHandler(services.Ingest, log))
	}()

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openDirectories builds the directory clients, fronted by redis when configured.
func openDirectories(ctx context.Context, cfg config.Config, log *logger.Logger) directory.Directories {
	clientCfg := func(base string) directory.ClientConfig {
		return directory.ClientConfig{
			BaseURL:            base,
			Timeout:            cfg.Directory.Timeout,
			BreakerMaxFailures: cfg.Directory.BreakerMaxFailures,
			BreakerReset:       cfg.Directory.BreakerReset,
		}
	}
	hc := &http.Client{}
	dirs := directory.Directories{
		Devices: directory.NewDeviceClient(clientCfg(cfg.Directory.DeviceURL), hc, log),
		Users:   directory.NewUserClient(clientCfg(cfg.Directory.UserURL), hc, log),
	}
	if cfg.Redis.Addr == "" {
		return dirs
	}

	rdb, err := directory.NewRedisClient(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Warnw("redis unavailable; directory cache disabled", "addr", cfg.Redis.Addr, "err", err)
		return dirs
	}
	log.Infow("directory cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	return directory.NewCache(rdb, cfg.Redis.TTL, dirs, log).Directories()
}

// ingestHandler persists readings. Invalid readings are dropped so the bus
// does not redeliver them forever.
func ingestHandler(ingest service.Ingest, log *logger.Logger) bus.ReadingHandler {
	return func(ctx context.Context, r models.Reading) error {
		err := ingest.WriteReading(ctx, r)
		if errors.Is(err, service.ErrInvalidReading) {
			log.Warnw("reading_rejected", "deviceId", r.DeviceID, "err", err)
			return nil
		}
		return err
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	accessLog := zap.NewStdLog(log.Desugar().Named("http")).Writer()
	go func() {
		if err := srv.Run(port, handler.InitRoutes(), accessLog); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("http server started", "port", port)
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

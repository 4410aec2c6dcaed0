package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/config"
	"github.com/satfarm/farmcarbon/internal/logging"
	"github.com/satfarm/farmcarbon/internal/metrics"
	"github.com/satfarm/farmcarbon/internal/ndvi"
	"github.com/satfarm/farmcarbon/internal/rpc"
	"github.com/satfarm/farmcarbon/internal/scheduler"
	"github.com/satfarm/farmcarbon/internal/server"
	"github.com/satfarm/farmcarbon/internal/snapshot"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "[farmcarbon-server] Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	coeffs, err := config.LoadCalibration(cfg.CalibrationFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var fetcher ndvi.Fetcher
	if cfg.NDVI.BaseURL != "" {
		client, err := ndvi.NewClient(ndvi.Config{
			BaseURL:     cfg.NDVI.BaseURL,
			MaxAttempts: cfg.NDVI.MaxAttempts,
			Backoff:     cfg.NDVI.Backoff,
			Timeout:     cfg.NDVI.Timeout,
		}, logger.With().Str(logging.FieldComponent, "ndvi").Logger(), m)
		if err != nil {
			return err
		}
		fetcher = client
	} else {
		logger.Warn().Msg("ndvi.base_url not set, analyses can only use cached snapshots")
	}

	cache, closeCache, err := newCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	svc := analysis.NewService(fetcher, cache, coeffs, logger, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.NewRouter(server.NewHandler(svc, logger), reg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer := rpc.NewServer(svc, logger)

	var refresher *scheduler.Refresher
	if cfg.Scheduler.Enabled {
		refresher, err = scheduler.New(cfg.Scheduler.Spec, cfg.Scheduler.Farmers, svc, logger)
		if err != nil {
			return err
		}
		refresher.Start()
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.GRPC.Addr).Msg("starting grpc server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
	}

	shutdown(logger, httpServer, grpcServer.GracefulStop, grpcServer.Stop, refresher)
	return runErr
}

func newCache(cfg config.CacheConfig) (snapshot.Cache, func(), error) {
	if cfg.Backend != config.CacheRedis {
		return snapshot.NewMemory(), func() {}, nil
	}
	r, err := snapshot.NewRedis(snapshot.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.TTL,
	})
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, nil, fmt.Errorf("redis %s unreachable: %w", cfg.Redis.Addr, err)
	}
	return r, func() { _ = r.Close() }, nil
}

func shutdown(logger zerolog.Logger, httpServer *http.Server, gracefulStop, forceStop func(), refresher *scheduler.Refresher) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if refresher != nil {
		if err := refresher.Stop(ctx); err != nil {
			logger.Error().Err(err).Msg("scheduler shutdown failed")
		}
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}

	done := make(chan struct{})
	go func() {
		gracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		forceStop()
	}
	logger.Info().Msg("shutdown complete")
}

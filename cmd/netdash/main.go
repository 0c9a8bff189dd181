package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pobradovic08/netdash/internal/api"
	"github.com/pobradovic08/netdash/internal/config"
	"github.com/pobradovic08/netdash/internal/grpcserver"
	"github.com/pobradovic08/netdash/internal/ipindex"
	"github.com/pobradovic08/netdash/internal/monitor"
	"github.com/pobradovic08/netdash/internal/ratelimit"
	"github.com/pobradovic08/netdash/internal/schema"
	"github.com/pobradovic08/netdash/internal/store"
	"github.com/pobradovic08/netdash/internal/tlsutil"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and environment only when empty)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Configure structured logging
	level, err := cfg.LogLevel()
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "text" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, handlerOpts)))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts)))
	}

	slog.Info("starting netdash",
		"environment", cfg.Environment,
		"store", cfg.Store.Driver,
		"monitor_mode", cfg.Monitor.Mode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the store
	base, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer base.Close()

	// Address index over the store
	subnets := make([]ipindex.Subnet, 0, len(cfg.Subnets))
	for _, sc := range cfg.Subnets {
		sn, err := ipindex.ParseSubnet(sc.Name, sc.Prefix)
		if err != nil {
			slog.Error("invalid subnet", "error", err)
			os.Exit(1)
		}
		subnets = append(subnets, sn)
	}
	st, err := ipindex.NewIndexedStore(ctx, base, ipindex.New(subnets))
	if err != nil {
		slog.Error("failed to build address index", "error", err)
		os.Exit(1)
	}

	validator, err := schema.New(ctx)
	if err != nil {
		slog.Error("failed to load request schemas", "error", err)
		os.Exit(1)
	}

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics := api.NewMetrics(reg, reg)

	// Monitoring service
	var prober monitor.Prober = monitor.SimulatedProber{}
	if cfg.Monitor.Mode == config.ModeExec {
		execProber := monitor.NewExecProber(cfg.Monitor.PingBinary, cfg.Monitor.PingTimeout)
		if err := execProber.Check(); err != nil {
			slog.Error("exec monitor mode unavailable", "error", err)
			os.Exit(1)
		}
		prober = execProber
	}
	mon, err := monitor.New(monitor.Options{
		Store:       st,
		Prober:      prober,
		Notifier:    monitor.NewDispatcher(cfg.Notifications.WebhookURL, cfg.Notifications.WebhookTimeout, slog.Default()),
		Metrics:     monitor.NewMetrics(reg),
		Logger:      slog.Default(),
		Mode:        cfg.Monitor.Mode,
		Interval:    cfg.Monitor.Interval,
		Alerting:    cfg.Alerting(),
		DedupWindow: cfg.Monitor.DedupWindow,
		Rules:       cfg.Monitor.Rules,
	})
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	// Create rate limiter
	var rateLimiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rateLimiter, err = ratelimit.New(
			cfg.RateLimit.RequestsPerInterval,
			cfg.RateLimit.Interval,
			cfg.RateLimit.CleanupInterval,
			cfg.RateLimit.StaleAfter,
		)
		if err != nil {
			slog.Error("failed to create rate limiter", "error", err)
			os.Exit(1)
		}
		defer rateLimiter.Close()
		if err := rateLimiter.SetTrustedProxies(cfg.RateLimit.TrustedProxies); err != nil {
			slog.Error("invalid trusted proxies", "error", err)
			os.Exit(1)
		}
	}

	// Set up TLS (optional for dev)
	var certLoader *tlsutil.CertificateLoader
	if cfg.TLS.Enabled() {
		certLoader, err = tlsutil.NewCertificateLoader(cfg.TLS.Cert, cfg.TLS.Key)
		if err != nil {
			slog.Error("failed to load TLS certificate", "error", err)
			os.Exit(1)
		}
		defer certLoader.Close()
	}

	apiServerDeps := api.ServerDeps{
		Handler: api.NewHandler(api.Deps{
			Store:       st,
			Validator:   validator,
			Index:       st.Index(),
			Monitor:     mon,
			Limiter:     rateLimiter,
			Metrics:     apiMetrics,
			StoreDriver: cfg.Store.Driver,
			StaticDir:   cfg.API.StaticDir,
			CORSOrigin:  cfg.API.CORSOrigin,
		}),
		ListenAddr:   cfg.API.ListenAddr,
		WriteTimeout: cfg.API.WriteTimeout,
		ReadTimeout:  cfg.API.ReadTimeout,
	}
	if certLoader != nil {
		apiServerDeps.TLSConfig = tlsutil.NewServerTLSConfig(certLoader)
	}
	apiServer := api.NewServer(apiServerDeps)

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcSrv = grpcserver.NewServer(grpcserver.ServerDeps{
			ListenAddr: cfg.GRPC.ListenAddr,
			CertLoader: certLoader,
		})
		mon.AddListener(grpcSrv)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", apiMetrics.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// Start servers in goroutines
	errCh := make(chan error, 3)

	go func() {
		errCh <- apiServer.Start()
	}()

	if grpcSrv != nil {
		go func() {
			errCh <- grpcSrv.Start()
		}()
	}

	if metricsServer != nil {
		go func() {
			slog.Info("starting metrics server", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	if cfg.Monitor.Enabled {
		mon.Start(ctx)
	} else {
		slog.Info("device monitoring disabled")
	}

	slog.Info("netdash running",
		"api_addr", cfg.API.ListenAddr,
		"grpc_enabled", cfg.GRPC.Enabled,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		slog.Error("server error, initiating shutdown", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Force exit goroutine: if the shutdown context expires, force-quit the process
	go func() {
		<-shutdownCtx.Done()
		if shutdownCtx.Err() == context.DeadlineExceeded {
			slog.Error("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}()

	// Step 1: Stop the monitoring loop so no cycle writes during drain
	mon.Stop()
	cancel()

	// Step 2: Stop accepting new HTTP connections, drain in-flight API requests
	slog.Info("shutting down API server, draining in-flight requests")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}

	// Step 3: Gracefully stop gRPC server
	if grpcSrv != nil {
		grpcSrv.Shutdown(shutdownCtx)
	}

	// Step 4: Close store, rate limiter and TLS reloader (deferred)
	slog.Info("netdash stopped gracefully")
}

// openStore opens the configured backend. A fresh database is seeded when
// seeding is enabled.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver != config.DriverPostgres {
		var opts []store.MemOption
		if cfg.Store.Seed {
			opts = append(opts, store.WithSeed())
		}
		return store.NewMemStore(opts...), nil
	}

	db, err := store.NewDB(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Seed {
		empty, err := db.Empty(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		if empty {
			slog.Info("seeding empty database with demo inventory")
			if err := store.Seed(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
	}
	return db, nil
}

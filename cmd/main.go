package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/inactives/internal/adapters/http/api"
	"github.com/okian/inactives/internal/adapters/http/swagger"
	"github.com/okian/inactives/internal/adapters/provider"
	service "github.com/okian/inactives/internal/app"
	"github.com/okian/inactives/internal/config"
	"github.com/okian/inactives/pkg/logger"
	"github.com/okian/inactives/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants. The write timeout covers two snapshot
// downloads plus retries, so it is longer than a plain API would need.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 90 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Default Go collectors live on the global registry; ours has its own.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> optional YAML file -> INACTIVES_* env
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newService builds the inactive finder on top of the game API client.
func newService(cfg *config.Config, log logger.Logger) *service.Service {
	client := provider.New(
		provider.WithBaseURL(cfg.ProviderBaseURL),
		provider.WithTimeout(cfg.ProviderTimeout()),
		provider.WithRateLimit(cfg.ProviderRatePerSec),
		provider.WithRetry(provider.RetryConfig{MaxAttempts: cfg.ProviderMaxAttempts}),
		provider.WithSiteURL(cfg.APIKeySiteURL),
		provider.WithLogger(log.Named("provider")),
	)
	return service.New(
		service.WithProvider(client),
		service.WithWorkerCount(cfg.ClassifyWorkers),
		service.WithLogger(log.Named("service")),
	)
}

// newHandler registers every route and wraps the mux with request ids and CORS.
func newHandler(ctx context.Context, cfg *config.Config, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithQueryDefaults(queryDefaults(cfg)),
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithLogger(logger.Named("http")),
	)
	apiServer.Register(ctx, mux)
	return apiServer.Handler(mux)
}

func queryDefaults(cfg *config.Config) api.QueryDefaults {
	return api.QueryDefaults{
		InactiveFor:   cfg.DefaultInactiveFor,
		MinVillagePop: cfg.DefaultMinVillagePop,
		MaxVillagePop: cfg.DefaultMaxVillagePop,
		MinPlayerPop:  cfg.DefaultMinPlayerPop,
		MaxPlayerPop:  cfg.DefaultMaxPlayerPop,
		MinDistance:   api.DefaultQueryDefaults().MinDistance,
		MaxDistance:   cfg.DefaultMaxDistance,
	}
}

// startSystemMetricsUpdater refreshes the runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

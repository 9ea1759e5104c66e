package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/deuce/internal/adapters/http/api"
	"github.com/okian/deuce/internal/adapters/http/swagger"
	"github.com/okian/deuce/internal/adapters/repository"
	app "github.com/okian/deuce/internal/app"
	"github.com/okian/deuce/internal/config"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/pkg/logger"
	"github.com/okian/deuce/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging with defaults until the config is known.
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to configure logging: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger.Get()); err != nil {
		logger.Get().Error(ctx, "server exited with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run starts the service and HTTP server and blocks until ctx is done and
// everything has shut down.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}

	srv := newHTTPServer(cfg, svc, log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Stop intake first so queued jobs drain into the store.
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		log.Info(context.Background(), "server stopped")
		return errors.Join(errs...)
	})

	g.Go(func() error {
		sm, err := app.NewSystemMetrics(gctx, log.Named("sysmetrics"))
		if err != nil {
			log.Warn(gctx, "system metrics disabled", logger.Error(err))
			return nil
		}
		return sm.Run(gctx, cfg.SystemMetricsInterval)
	})

	g.Go(func() error {
		ticker := time.NewTicker(serviceMetricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				updateServiceMetrics(svc)
			}
		}
	})

	return g.Wait()
}

func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	driver, err := repository.ParseDriver(cfg.StoreDriver)
	if err != nil {
		return nil, err
	}
	regOpts, err := cfg.RegistryOptions()
	if err != nil {
		return nil, err
	}
	reg, err := profile.NewRegistry(regOpts...)
	if err != nil {
		return nil, err
	}
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithWorkerMaxTries(cfg.WorkerMaxTries),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithStore(driver, cfg.StoreDSN),
		app.WithRegistry(reg),
	), nil
}

func newHTTPServer(cfg *config.Config, svc *app.Service, log logger.Logger) *http.Server {
	mux := http.NewServeMux()

	// API reference under /api-docs
	swagger.Register(mux)

	api.NewServer(svc, svc,
		api.WithDefaultSeason(cfg.DefaultSeason),
		api.WithMaxListLimit(cfg.MaxListLimit),
		api.WithLogger(log),
	).Register(mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	queueLen, _ := stats["queueLength"].(int)
	queueSize, _ := stats["queueSize"].(int)
	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateQueueCapacity(queueSize)
	if queueSize > 0 {
		metrics.UpdateQueueUtilization(float64(queueLen) / float64(queueSize))
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/deuce/internal/loadtest"
	"github.com/okian/deuce/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers        = 1000
	defaultDuplicateRatio = 0.1
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultSettle         = 2 * time.Minute
	defaultTestTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players    = flag.Int("players", defaultPlayers, "Number of players to place")
		dupRatio   = flag.Float64("duplicates", defaultDuplicateRatio, "Share of submissions sent twice")
		season     = flag.String("season", "", "Season id for every submission (service default when empty)")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "How long to wait for records to appear")
		outputFile = flag.String("output", "", "Write generated submissions to this JSON file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	_, err := loadtest.Run(ctx, &loadtest.Config{
		BaseURL:        *baseURL,
		Players:        *players,
		DuplicateRatio: *dupRatio,
		SeasonID:       *season,
		Workers:        *workers,
		Timeout:        *timeout,
		SettleTimeout:  *settle,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
	}, logger.Named("loadtest"))
	if err != nil {
		logger.Get().Error(ctx, "load test failed", logger.Error(err))
		cancel()
		os.Exit(1) //nolint:gocritic // deferred cancel already called
	}
}

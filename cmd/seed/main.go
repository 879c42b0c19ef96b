package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/flowsense/internal/seed"
	"github.com/okian/flowsense/pkg/logger"
)

// Default configuration constants.
const (
	defaultUsers      = 25
	defaultCycles     = 12
	defaultDays       = 90
	defaultBatchSize  = 250
	defaultSeed       = 20250101
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users     = flag.Int("users", defaultUsers, "Number of simulated users")
		cycles    = flag.Int("cycles", defaultCycles, "Completed cycles per user")
		days      = flag.Int("days", defaultDays, "Days of biometric samples per user")
		batchSize = flag.Int("batch", defaultBatchSize, "Samples per request")
		seedValue = flag.Uint64("seed", defaultSeed, "Simulator seed")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of users seeded concurrently")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log a summary for every user")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp(os.Stdout)
		return
	}

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := seed.Run(ctx, seed.Config{
		BaseURL:   *baseURL,
		Users:     *users,
		Cycles:    *cycles,
		Days:      *days,
		BatchSize: *batchSize,
		Seed:      *seedValue,
		Workers:   *workers,
		Timeout:   *timeout,
		Verbose:   *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}

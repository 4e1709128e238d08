package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekamanam/studysync/internal/cli"
	"github.com/ekamanam/studysync/internal/config"
	"github.com/ekamanam/studysync/internal/logging"
)

// shutdownGrace bounds how long main waits for an interrupted command.
const shutdownGrace = 3 * time.Second

// waitForRun blocks until done is closed or, once ctx is done, until grace
// has passed. It reports whether the run finished.
func waitForRun(ctx context.Context, done <-chan struct{}, grace time.Duration) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

func main() {

	cfg := config.LoadConfig()

	logger, err := logging.New(os.Stderr, logging.Options{
		Backend: cfg.LogBackend,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	if s, ok := logger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer app.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Run(ctx)
	}()

	if !waitForRun(ctx, done, shutdownGrace) {
		logger.Info(ctx, "shutting down with the prompt still waiting for input")
	}
}

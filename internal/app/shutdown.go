package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-extractor/internal/observability"
)

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM,
// or after shutdownTimeout when it is positive.
func GracefulShutdown(logger *observability.Logger, shutdownTimeout time.Duration) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if shutdownTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

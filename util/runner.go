package util

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// GracefulShutdown waits for a signal or context close and then calls the shutdown function in a blocking fashion.
// If the shutdown function does not complete within the timeout, the function exits early.
func GracefulShutdown(ctx context.Context, handleShutdown func(ctx context.Context), timeout time.Duration) {
	// Listen for signals
	s := make(chan os.Signal, 1)
	signal.Notify(s, shutdownSignals...)
	defer signal.Stop(s)

	// Do graceful shutdown on signal or context close
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case sig := <-s:
			log.Info().Msgf("caught signal %s", sig)
			if sig != unix.SIGHUP {
				break loop
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		handleShutdown(shutdownCtx)
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("graceful shutdown complete")
	case <-shutdownCtx.Done():
		log.Warn().Msg("graceful shutdown timed out")
	}
}

package util

import (
	"context"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// shutdownSignals end the process, SIGHUP is logged and ignored
var shutdownSignals = []os.Signal{unix.SIGHUP, unix.SIGINT, unix.SIGTERM}

// HandleSignal cancels ctx on SIGINT or SIGTERM.
func HandleSignal(ctx context.Context, cancel context.CancelFunc) {
	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	c := make(chan os.Signal, 1)
	signal.Notify(c, shutdownSignals...)

	go func() {
		defer signal.Stop(c)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-c:
				log.Info().Msgf("caught signal %s", s)
				if s == unix.SIGHUP {
					continue
				}
				cancel()
			}
		}
	}()
}

package util

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestGracefulShutdownOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	GracefulShutdown(ctx, func(context.Context) {
		called = true
	}, time.Second)
	assert.Assert(t, called)
}

func TestGracefulShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	release := make(chan struct{})
	defer close(release)
	GracefulShutdown(ctx, func(context.Context) {
		<-release
	}, 50*time.Millisecond)
	assert.Assert(t, time.Since(start) < time.Second)
}

func TestHandleSignalStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	HandleSignal(ctx, cancel)
	cancel()
	<-ctx.Done()
}

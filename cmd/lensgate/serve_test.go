package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lensgate/internal/reconcile"
)

// slowSync blocks until released and then checks the store is still open.
type slowSync struct {
	a        *app
	release  chan struct{}
	started  chan struct{}
	finished atomic.Bool
	pingErr  error
}

func (s *slowSync) Sync(ctx context.Context) (reconcile.Summary, error) {
	close(s.started)
	<-s.release
	s.pingErr = s.a.db.PingContext(context.Background())
	s.finished.Store(true)
	return reconcile.Summary{OK: true}, nil
}

func TestRun_WaitsForStartupSync(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIPort = "0"
	cfg.SyncOnStart = true

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	fake := &slowSync{a: a, release: make(chan struct{}), started: make(chan struct{})}
	a.sync = fake

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, a, cfg)
	}()

	<-fake.started
	cancel()

	select {
	case <-done:
		t.Fatal("run() returned while the startup sync was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(fake.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after the startup sync finished")
	}
	assert.True(t, fake.finished.Load())
	assert.NoError(t, fake.pingErr)
}

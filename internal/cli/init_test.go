package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"budgetadvisor/internal/config"
	applog "budgetadvisor/internal/log"
)

type fakeServer struct {
	listenErr error
	stopped   chan struct{}
	shutdowns int32
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stopped: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	if atomic.AddInt32(&f.shutdowns, 1) == 1 {
		close(f.stopped)
	}
	return nil
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Format: "text", Component: applog.ComponentApp, Output: io.Discard})
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := newFakeServer(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, testLogger(), srv, time.Second) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if atomic.LoadInt32(&srv.shutdowns) != 1 {
		t.Errorf("shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestServeReturnsListenError(t *testing.T) {
	listenErr := errors.New("address already in use")
	srv := newFakeServer(listenErr)

	err := Serve(context.Background(), testLogger(), srv, time.Second)
	if !errors.Is(err, listenErr) {
		t.Fatalf("Serve() error = %v, want %v", err, listenErr)
	}
	if atomic.LoadInt32(&srv.shutdowns) != 1 {
		t.Errorf("listener failure should still shut the server down")
	}
}

func TestSetupLogger(t *testing.T) {
	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	logger := SetupLogger(cfg, applog.ComponentApp)
	if logger.Component() != applog.ComponentApp {
		t.Errorf("Component() = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}

	cfg.LogLevel = "loud"
	logger = SetupLogger(cfg, applog.ComponentCLI)
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("unknown level should fall back to info")
	}
}

func TestShutdownSignalsCancelPropagates(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := ShutdownSignals(parent, testLogger())
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled with its parent")
	}
}

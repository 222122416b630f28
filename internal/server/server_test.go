package server_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"resttimer/internal/metrics"
	"resttimer/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, cfg server.Config, opts ...server.Option) *server.Server {
	t.Helper()

	srv := server.New(cfg, opts...)
	go func() {
		_ = srv.Start()
	}()

	waitForServer(t, "http://localhost:"+strconv.Itoa(cfg.Port)+"/health", 2*time.Second)
	return srv
}

func TestServer_StartsAndRespondsToHealthCheck(t *testing.T) {
	cfg := server.Config{Port: 18181, ShutdownTimeout: 5 * time.Second}
	srv := startServer(t, cfg)

	resp, err := http.Get("http://localhost:18181/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Processing-Time-Micros"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func TestServer_GracefulShutdown_WaitsForInFlightRequests(t *testing.T) {
	cfg := server.Config{Port: 18182, ShutdownTimeout: 5 * time.Second}
	srv := server.New(cfg)

	srv.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		_ = srv.Start()
	}()
	waitForServer(t, "http://localhost:18182/health", 2*time.Second)

	requestCompleted := make(chan bool, 1)
	go func() {
		resp, err := http.Get("http://localhost:18182/slow")
		if err != nil {
			requestCompleted <- false
			return
		}
		resp.Body.Close()
		requestCompleted <- resp.StatusCode == http.StatusOK
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))

	select {
	case completed := <-requestCompleted:
		assert.True(t, completed, "in-flight request should complete")
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}
}

func TestServer_GracefulShutdown_TimesOutIfRequestsTooSlow(t *testing.T) {
	cfg := server.Config{Port: 18183, ShutdownTimeout: 100 * time.Millisecond}
	srv := server.New(cfg)

	srv.HandleFunc("GET /very-slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		_ = srv.Start()
	}()
	waitForServer(t, "http://localhost:18183/health", 2*time.Second)

	go func() {
		http.Get("http://localhost:18183/very-slow")
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	assert.ErrorIs(t, srv.Shutdown(ctx), context.DeadlineExceeded)
}

func TestServer_Run_ShutdownOnContextCancel(t *testing.T) {
	cfg := server.Config{Port: 18184, ShutdownTimeout: 5 * time.Second}
	srv := server.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	waitForServer(t, "http://localhost:18184/health", 2*time.Second)
	cancel()

	select {
	case err := <-done:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown")
	}
}

func TestServer_Run_PortInUse(t *testing.T) {
	cfg := server.Config{Port: 18185, ShutdownTimeout: time.Second}
	first := startServer(t, cfg)
	defer first.Shutdown(context.Background())

	err := server.New(cfg).Run(context.Background())
	assert.Error(t, err)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := server.New(server.Config{}, server.WithMetrics(m, reg))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body.String(), `resttimer_http_request_duration_seconds_count{code="200",method="GET"} 1`)
}

func TestServer_MetricsDisabledWithoutGatherer(t *testing.T) {
	srv := server.New(server.Config{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RecoversHandlerPanic(t *testing.T) {
	var logs bytes.Buffer
	srv := server.New(server.Config{}, server.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	srv.HandleFunc("GET /panic", func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(logs.String(), "handler exploded"))
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

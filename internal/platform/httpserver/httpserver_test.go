package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantBody   readiness
	}{
		{
			name:       "no backends",
			checks:     nil,
			wantStatus: http.StatusOK,
			wantBody:   readiness{Status: "ready"},
		},
		{
			name:       "all healthy",
			checks:     map[string]Check{"postgres": ok, "redis": ok},
			wantStatus: http.StatusOK,
			wantBody:   readiness{Status: "ready", Checks: map[string]string{"postgres": "ok", "redis": "ok"}},
		},
		{
			name:       "one down",
			checks:     map[string]Check{"postgres": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: readiness{Status: "unavailable", Checks: map[string]string{
				"postgres": "ok",
				"redis":    "connection refused",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Readiness(time.Second, tt.checks)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var got readiness
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestReadiness_ChecksSeeDeadline(t *testing.T) {
	var hadDeadline bool
	check := func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}
	rr := httptest.NewRecorder()
	Readiness(50*time.Millisecond, map[string]Check{"postgres": check})(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.True(t, hadDeadline)
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv := New("127.0.0.1:0", http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, time.Second, logger) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ReportsListenFailure(t *testing.T) {
	srv := New("127.0.0.1:99999", http.NotFoundHandler())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := Serve(context.Background(), srv, time.Second, logger)
	assert.Error(t, err)
}

package telemetry_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"voicebridge/internal/telemetry"
)

func TestSetup_ExposesCounters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, handler, err := telemetry.Setup("voicebridge-test", "test", logger)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer shutdown(context.Background())

	if handler == nil {
		t.Fatal("expected a metrics handler")
	}

	counter, err := otel.Meter("voicebridge/test").Int64Counter("voicebridge.test.events")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voicebridge_test_events") {
		t.Errorf("scrape output missing counter:\n%s", rec.Body.String())
	}
}

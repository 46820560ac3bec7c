package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/envelopeledger/internal/infrastructure/metrics"
)

func TestRequestLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		replay    bool
		wantLevel string
	}{
		{"success", http.StatusCreated, false, "info"},
		{"client error", http.StatusNotFound, false, "warn"},
		{"server error", http.StatusBadGateway, false, "error"},
		{"replayed", http.StatusOK, true, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := chi.NewRouter()
			r.Use(RequestLog(zerolog.New(&buf)))
			r.Post("/api/v1/books/{key}/transfers", func(w http.ResponseWriter, r *http.Request) {
				if tt.replay {
					w.Header().Set(IdempotencyReplayHeader, "true")
				}
				w.WriteHeader(tt.status)
				w.Write([]byte("{}"))
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/books/household/transfers", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Fatalf("expected level %s, got %v", tt.wantLevel, entry["level"])
			}
			if entry["route"] != "/api/v1/books/{key}/transfers" || entry["book"] != "household" {
				t.Fatalf("expected route pattern and book key, got %+v", entry)
			}
			if entry["status"] != float64(tt.status) || entry["bytes"] != float64(2) {
				t.Fatalf("unexpected status or size in %+v", entry)
			}
			if _, replayed := entry["replayed"]; replayed != tt.replay {
				t.Fatalf("expected replayed=%v, got %+v", tt.replay, entry)
			}
		})
	}
}

func TestRequestLog_OutsideBooks(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLog(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["status"] != float64(http.StatusOK) || entry["route"] != "/health" {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if _, ok := entry["book"]; ok {
		t.Fatalf("expected no book field, got %+v", entry)
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestRateLimiter(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	rl := NewRateLimiter(1, 1, m)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("1.2.3.4:1234"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("1.2.3.4:5678"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same host on another port to be throttled, got %d", code)
	}
	if code := send("5.6.7.8:1234"); code != http.StatusOK {
		t.Fatalf("expected other host to pass, got %d", code)
	}
	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/health")); got != 1 {
		t.Fatalf("expected one rate limit hit, got %v", got)
	}
}

func TestRateLimiter_CleanupLimiters(t *testing.T) {
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1, nil)
	rl.now = func() time.Time { return now }

	rl.getLimiter("1.1.1.1")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("2.2.2.2")

	if removed := rl.CleanupLimiters(time.Hour); removed != 1 {
		t.Fatalf("expected one idle limiter removed, got %d", removed)
	}
	if _, ok := rl.visitors["2.2.2.2"]; !ok {
		t.Fatalf("expected recent limiter to be kept")
	}
}

package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/infrastructure/resilience"
)

func newTestExecutor(retries int) *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		MaxRetries:     retries,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	})
}

func TestCallRetriesTransient5xxExactlyRetriesPlusOne(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "agent overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(time.Second, newTestExecutor(2))
	_, err := client.Call(context.Background(), server.URL, map[string]any{"prompt": "x"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts for 2 retries, got %d", attempts)
	}
	var dse *domain.DownstreamStatusError
	if !errors.As(err, &dse) {
		t.Fatalf("expected downstream status error, got %v", err)
	}
	if dse.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected original 500 preserved, got %d", dse.StatusCode)
	}
}

func TestCallDoesNotRetryCallerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "missing prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(time.Second, newTestExecutor(3))
	_, err := client.Call(context.Background(), server.URL, map[string]any{}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a 400, got %d", attempts)
	}
	var dse *domain.DownstreamStatusError
	if !errors.As(err, &dse) {
		t.Fatalf("expected downstream status error, got %v", err)
	}
	if dse.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 preserved, got %d", dse.StatusCode)
	}
	if dse.Body != "missing prompt" {
		t.Fatalf("expected downstream body attached, got %q", dse.Body)
	}
}

func TestCallMapsAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(20*time.Millisecond, newTestExecutor(0))
	_, err := client.Call(context.Background(), server.URL, map[string]any{}, nil)
	if !domain.IsKind(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout class, got %v", err)
	}
}

func TestCallMapsConnectionFailureToUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(time.Second, newTestExecutor(0))
	_, err := client.Call(context.Background(), url, map[string]any{}, nil)
	if !domain.IsKind(err, domain.ErrUnreachable) {
		t.Fatalf("expected unreachable class, got %v", err)
	}
}

func TestCallMapsUnparseableBodyToMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := New(time.Second, newTestExecutor(1))
	_, err := client.Call(context.Background(), server.URL, map[string]any{}, nil)
	if !domain.IsKind(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response class, got %v", err)
	}
}

func TestCallForwardsHeaders(t *testing.T) {
	var gotAuth, gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get("X-Correlation-Id")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := New(time.Second, newTestExecutor(0))
	body, err := client.Call(context.Background(), server.URL, map[string]any{"q": "hello"}, map[string]string{
		"Authorization":    "Bearer tok-1",
		"X-Correlation-Id": "corr-1",
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected forwarded authorization, got %q", gotAuth)
	}
	if gotCorrelation != "corr-1" {
		t.Fatalf("expected forwarded correlation id, got %q", gotCorrelation)
	}
	if ok, _ := body["ok"].(bool); !ok {
		t.Fatalf("expected decoded body, got %v", body)
	}
}

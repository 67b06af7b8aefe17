package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func notifyServer(t *testing.T, sent *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		exp := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
		_, _ = w.Write([]byte(`{"token":"tok","expires_at":"` + exp + `"}`))
	})
	mux.HandleFunc("/api/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		sent.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBestEffortHonorsEnabledGate(t *testing.T) {
	var sent atomic.Int64
	srv := notifyServer(t, &sent)

	enabled := false
	client := &Client{
		BaseURL: srv.URL,
		APIKey:  "key",
		HTTP:    srv.Client(),
		Enabled: func(context.Context) bool { return enabled },
	}
	ctx := WithClient(context.Background(), client)

	BestEffort(ctx, "alice", "purchase", "info", "Token sold", nil)
	if got := sent.Load(); got != 0 {
		t.Fatalf("expected no send while disabled, got %d", got)
	}

	enabled = true
	BestEffort(ctx, "alice", "purchase", "info", "Token sold", nil)
	if got := sent.Load(); got != 1 {
		t.Fatalf("expected one send after enabling, got %d", got)
	}
}

func TestBestEffortWithoutClientIsNoop(t *testing.T) {
	BestEffort(context.Background(), "alice", "purchase", "info", "Token sold", nil)
}

package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
)

func TestStreamEventsUpdateReadModel(t *testing.T) {
	repo := newStubRepo()
	svc := &RegistryStreamService{Repo: repo}
	ctx := context.Background()

	svc.Apply(ctx, chain.RegistryEvent{
		EventType: chain.EventListed,
		TokenID:   42,
		Seller:    "alice",
		PriceE8s:  5_000_000_000,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	l := repo.listings[42]
	if l == nil || l.Status != models.ListingStatusListed || l.Seller != "alice" {
		t.Fatalf("listed event not applied: %+v", l)
	}

	svc.Apply(ctx, chain.RegistryEvent{EventType: chain.EventSold, TokenID: 42, Buyer: "bob"})
	if repo.listings[42].Status != models.ListingStatusSold {
		t.Fatalf("sold event not applied: %s", repo.listings[42].Status)
	}

	svc.Apply(ctx, chain.RegistryEvent{EventType: "unknown", TokenID: 42})
	if repo.listings[42].Status != models.ListingStatusSold {
		t.Fatalf("unknown events must be ignored")
	}
}

func TestStreamUnlistedEvent(t *testing.T) {
	repo := newStubRepo()
	now := time.Now().UTC()
	repo.listings[7] = &models.Listing{TokenID: 7, Status: models.ListingStatusListed, LastSeenAt: now}
	svc := &RegistryStreamService{Repo: repo}

	svc.Apply(context.Background(), chain.RegistryEvent{EventType: chain.EventUnlisted, TokenID: 7})
	if repo.listings[7].Status != models.ListingStatusUnlisted {
		t.Fatalf("unlisted event not applied: %s", repo.listings[7].Status)
	}
}

// streamStub counts sessions and blocks each one until its context ends.
type streamStub struct {
	sessions atomic.Int64
	ended    atomic.Int64
}

func (s *streamStub) Run(ctx context.Context, _ func(chain.RegistryEvent, []byte)) error {
	s.sessions.Add(1)
	<-ctx.Done()
	s.ended.Add(1)
	return ctx.Err()
}

func waitCount(t *testing.T, counter *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("counter stuck at %d, want %d", counter.Load(), want)
}

func TestStreamSwitchToggleTakesEffectAtRuntime(t *testing.T) {
	repo := newStubRepo()
	flags := &SystemSettingsService{Repo: repo}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := flags.SetEnabled(ctx, FeatureRegistryStream, true); err != nil {
		t.Fatalf("set enabled: %v", err)
	}

	stream := &streamStub{}
	svc := &RegistryStreamService{
		Repo:    repo,
		Stream:  stream,
		Flags:   flags,
		Recheck: 2 * time.Millisecond,
	}
	runDone := make(chan error, 1)
	go func() { runDone <- svc.Run(ctx) }()

	waitCount(t, &stream.sessions, 1)

	// Toggling off mid-run must end the session without a restart.
	if err := flags.SetEnabled(ctx, FeatureRegistryStream, false); err != nil {
		t.Fatalf("set disabled: %v", err)
	}
	waitCount(t, &stream.ended, 1)

	// Toggling back on resumes with a fresh session.
	if err := flags.SetEnabled(ctx, FeatureRegistryStream, true); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	waitCount(t, &stream.sessions, 2)

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop on context cancel")
	}
}

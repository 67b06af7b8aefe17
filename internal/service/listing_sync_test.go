package service

import (
	"context"
	"testing"
	"time"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
)

type pagedSource struct {
	pages   [][]chain.RemoteListing
	cursors []string
	calls   []string
}

func (s *pagedSource) GetListed(ctx context.Context, cursor string, limit int) ([]chain.RemoteListing, string, error) {
	s.calls = append(s.calls, cursor)
	idx := 0
	for i, c := range s.cursors {
		if c == cursor {
			idx = i
			break
		}
	}
	next := ""
	if idx+1 < len(s.cursors) {
		next = s.cursors[idx+1]
	}
	return s.pages[idx], next, nil
}

func TestListingSyncMirrorsPages(t *testing.T) {
	repo := newStubRepo()
	src := &pagedSource{
		cursors: []string{"", "p2"},
		pages: [][]chain.RemoteListing{
			{{TokenID: 1, Seller: "alice", PriceE8s: 100}, {TokenID: 2, Seller: "bob", PriceE8s: 200}},
			{{TokenID: 3, Seller: "carol", PriceE8s: 300}},
		},
	}
	svc := &ListingSyncService{Repo: repo, Registry: src}

	res, err := svc.Sync(context.Background(), SyncOptions{Limit: 10, MaxPages: 10})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.Done || res.Listings != 3 || res.Pages != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(repo.listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(repo.listings))
	}
	if repo.listings[2].Seller != "bob" || repo.listings[2].Status != models.ListingStatusListed {
		t.Fatalf("unexpected listing: %+v", repo.listings[2])
	}
}

func TestListingSyncStalesVanishedListings(t *testing.T) {
	repo := newStubRepo()
	old := time.Now().UTC().Add(-time.Hour)
	repo.listings[99] = &models.Listing{
		TokenID:    99,
		Seller:     "mallory",
		Status:     models.ListingStatusListed,
		LastSeenAt: old,
	}
	src := &pagedSource{
		cursors: []string{""},
		pages:   [][]chain.RemoteListing{{{TokenID: 1, Seller: "alice", PriceE8s: 100}}},
	}
	svc := &ListingSyncService{Repo: repo, Registry: src}

	res, err := svc.Sync(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Staled != 1 {
		t.Fatalf("expected 1 staled listing, got %d", res.Staled)
	}
	if repo.listings[99].Status != models.ListingStatusUnlisted {
		t.Fatalf("vanished listing should be unlisted, got %s", repo.listings[99].Status)
	}
	if repo.listings[1].Status != models.ListingStatusListed {
		t.Fatalf("fresh listing must stay listed")
	}
}

func TestListingSyncResumesFromCursor(t *testing.T) {
	repo := newStubRepo()
	cur := "p2"
	repo.syncState[syncScopeListings] = &models.SyncState{Scope: syncScopeListings, Cursor: &cur}
	src := &pagedSource{
		cursors: []string{"", "p2"},
		pages: [][]chain.RemoteListing{
			{{TokenID: 1, Seller: "alice", PriceE8s: 100}},
			{{TokenID: 3, Seller: "carol", PriceE8s: 300}},
		},
	}
	svc := &ListingSyncService{Repo: repo, Registry: src}

	if _, err := svc.Sync(context.Background(), SyncOptions{Resume: true}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(src.calls) == 0 || src.calls[0] != "p2" {
		t.Fatalf("expected the first fetch to resume from p2, got %v", src.calls)
	}
}

func TestListingSyncHonorsFeatureSwitch(t *testing.T) {
	repo := newStubRepo()
	flags := &SystemSettingsService{Repo: repo}
	if err := flags.SetEnabled(context.Background(), FeatureListingSync, false); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	src := &pagedSource{
		cursors: []string{""},
		pages:   [][]chain.RemoteListing{{{TokenID: 1, Seller: "alice", PriceE8s: 100}}},
	}
	svc := &ListingSyncService{Repo: repo, Registry: src, Flags: flags}

	res, err := svc.SyncIfEnabled(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Pages != 0 || len(src.calls) != 0 {
		t.Fatalf("disabled sync must not fetch: %+v %v", res, src.calls)
	}
}

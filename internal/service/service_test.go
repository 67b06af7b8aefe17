package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

// stubRepo is an in-memory repository.Repository for service tests. Settings
// are mutex-guarded so feature switches can be toggled while a service loop
// reads them from another goroutine.
type stubRepo struct {
	listings  map[uint64]*models.Listing
	runs      map[string]*models.WorkflowRun
	purchases []models.Purchase
	syncState map[string]*models.SyncState

	settingsMu sync.Mutex
	settings   map[string]*models.SystemSetting

	runUpdates map[string][]map[string]any
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		listings:   map[uint64]*models.Listing{},
		runs:       map[string]*models.WorkflowRun{},
		syncState:  map[string]*models.SyncState{},
		settings:   map[string]*models.SystemSetting{},
		runUpdates: map[string][]map[string]any{},
	}
}

var _ repository.Repository = (*stubRepo)(nil)

func (r *stubRepo) UpsertListing(ctx context.Context, item *models.Listing) error {
	cp := *item
	r.listings[item.TokenID] = &cp
	return nil
}

func (r *stubRepo) MarkListingStatus(ctx context.Context, tokenID uint64, status string, seenAt time.Time) error {
	if l, ok := r.listings[tokenID]; ok {
		l.Status = status
		l.LastSeenAt = seenAt
	}
	return nil
}

func (r *stubRepo) GetListingByTokenID(ctx context.Context, tokenID uint64) (*models.Listing, error) {
	return r.listings[tokenID], nil
}

func (r *stubRepo) ListListings(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	out := make([]models.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		out = append(out, *l)
	}
	return out, nil
}

func (r *stubRepo) CountListings(ctx context.Context, params repository.ListListingsParams) (int64, error) {
	return int64(len(r.listings)), nil
}

func (r *stubRepo) MarkListingsStaleBefore(ctx context.Context, seenBefore time.Time) (int64, error) {
	var n int64
	for _, l := range r.listings {
		if l.Status == models.ListingStatusListed && l.LastSeenAt.Before(seenBefore) {
			l.Status = models.ListingStatusUnlisted
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) ListingsSummary(ctx context.Context) (repository.ListingsSummary, error) {
	return repository.ListingsSummary{TotalValueTokens: decimal.Zero}, nil
}

func (r *stubRepo) InsertWorkflowRun(ctx context.Context, item *models.WorkflowRun) error {
	cp := *item
	r.runs[item.RunID] = &cp
	return nil
}

func (r *stubRepo) UpdateWorkflowRun(ctx context.Context, runID string, updates map[string]any) error {
	r.runUpdates[runID] = append(r.runUpdates[runID], updates)
	if run, ok := r.runs[runID]; ok {
		if v, ok := updates["status"].(string); ok {
			run.Status = v
		}
		if v, ok := updates["error"].(string); ok {
			run.Error = v
		}
	}
	return nil
}

func (r *stubRepo) GetWorkflowRunByRunID(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	return r.runs[runID], nil
}

func (r *stubRepo) ListWorkflowRuns(ctx context.Context, params repository.ListWorkflowRunsParams) ([]models.WorkflowRun, error) {
	out := make([]models.WorkflowRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, *run)
	}
	return out, nil
}

func (r *stubRepo) CountWorkflowRuns(ctx context.Context, params repository.ListWorkflowRunsParams) (int64, error) {
	return int64(len(r.runs)), nil
}

func (r *stubRepo) ListWorkflowRunsByStatus(ctx context.Context, status string, limit int) ([]models.WorkflowRun, error) {
	out := []models.WorkflowRun{}
	for _, run := range r.runs {
		if run.Status == status && len(out) < limit {
			out = append(out, *run)
		}
	}
	return out, nil
}

func (r *stubRepo) InsertPurchase(ctx context.Context, item *models.Purchase) error {
	r.purchases = append(r.purchases, *item)
	return nil
}

func (r *stubRepo) ListPurchases(ctx context.Context, params repository.ListPurchasesParams) ([]models.Purchase, error) {
	return r.purchases, nil
}

func (r *stubRepo) CountPurchases(ctx context.Context, params repository.ListPurchasesParams) (int64, error) {
	return int64(len(r.purchases)), nil
}

func (r *stubRepo) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	return r.syncState[scope], nil
}

func (r *stubRepo) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	cp := *state
	r.syncState[state.Scope] = &cp
	return nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()
	cp := *item
	r.settings[item.Key] = &cp
	return nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()
	return r.settings[key], nil
}

func (r *stubRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	r.settingsMu.Lock()
	defer r.settingsMu.Unlock()
	out := make([]models.SystemSetting, 0, len(r.settings))
	for _, s := range r.settings {
		out = append(out, *s)
	}
	return out, nil
}

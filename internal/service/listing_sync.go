package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

// ListedSource is the registry read path the sync pulls from.
type ListedSource interface {
	GetListed(ctx context.Context, cursor string, limit int) ([]chain.RemoteListing, string, error)
}

// ListingSyncService mirrors the registry's active listings into the local
// read model. The registry stays authoritative; a listing that stops showing
// up in the feed is flipped to unlisted once a full pass completes.
type ListingSyncService struct {
	Repo     repository.Repository
	Registry ListedSource
	Logger   *zap.Logger
	Flags    *SystemSettingsService
}

type SyncOptions struct {
	Limit    int
	MaxPages int
	Resume   bool
}

type SyncResult struct {
	Pages      int    `json:"pages"`
	Listings   int    `json:"listings"`
	Staled     int64  `json:"staled"`
	NextCursor string `json:"next_cursor,omitempty"`
	Done       bool   `json:"done"`
}

const syncScopeListings = "listings"

func (s *ListingSyncService) SyncIfEnabled(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if s != nil && s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureListingSync, true) {
		return SyncResult{}, nil
	}
	return s.Sync(ctx, opts)
}

func (s *ListingSyncService) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if s == nil || s.Repo == nil || s.Registry == nil {
		return SyncResult{}, nil
	}
	limit := normalizeLimit(opts.Limit)
	maxPages := normalizeMaxPages(opts.MaxPages)

	cursor := ""
	if opts.Resume {
		state, err := s.Repo.GetSyncState(ctx, syncScopeListings)
		if err != nil {
			return SyncResult{}, err
		}
		if state != nil && state.Cursor != nil {
			cursor = *state.Cursor
		}
	}

	startedAt := time.Now().UTC()
	result := SyncResult{}
	for page := 0; page < maxPages; page++ {
		items, next, err := s.Registry.GetListed(ctx, cursor, limit)
		if err != nil {
			s.saveState(ctx, cursor, startedAt, err)
			return result, err
		}
		result.Pages++
		for _, it := range items {
			listedAt := it.ListedAt
			if listedAt == nil {
				now := time.Now().UTC()
				listedAt = &now
			}
			if err := s.Repo.UpsertListing(ctx, &models.Listing{
				TokenID:        it.TokenID,
				Seller:         it.Seller,
				PriceE8s:       it.PriceE8s,
				SellerApproval: true,
				Status:         models.ListingStatusListed,
				ListedAt:       listedAt,
				LastSeenAt:     time.Now().UTC(),
			}); err != nil {
				s.saveState(ctx, cursor, startedAt, err)
				return result, err
			}
			result.Listings++
		}
		cursor = next
		if cursor == "" {
			result.Done = true
			break
		}
	}
	result.NextCursor = cursor

	if result.Done {
		// Resume restarts from the top after a full pass. Anything the
		// pass never touched is no longer on the registry.
		staled, err := s.Repo.MarkListingsStaleBefore(ctx, startedAt)
		if err != nil {
			s.saveState(ctx, "", startedAt, err)
			return result, err
		}
		result.Staled = staled
		cursor = ""
	}
	s.saveStateWithStats(ctx, cursor, startedAt, result)

	if s.Logger != nil {
		s.Logger.Info("listing sync finished",
			zap.Int("pages", result.Pages),
			zap.Int("listings", result.Listings),
			zap.Int64("staled", result.Staled),
			zap.Bool("done", result.Done))
	}
	return result, nil
}

func (s *ListingSyncService) saveState(ctx context.Context, cursor string, attemptAt time.Time, cause error) {
	state := &models.SyncState{Scope: syncScopeListings, LastAttemptAt: &attemptAt}
	if cursor != "" {
		state.Cursor = &cursor
	}
	if cause != nil {
		msg := cause.Error()
		state.LastError = &msg
	}
	_ = s.Repo.SaveSyncState(ctx, state)
}

func (s *ListingSyncService) saveStateWithStats(ctx context.Context, cursor string, attemptAt time.Time, result SyncResult) {
	now := time.Now().UTC()
	state := &models.SyncState{
		Scope:         syncScopeListings,
		LastAttemptAt: &attemptAt,
		LastSuccessAt: &now,
	}
	if cursor != "" {
		state.Cursor = &cursor
	}
	if raw, err := json.Marshal(result); err == nil {
		state.StatsJSON = datatypes.JSON(raw)
	}
	_ = s.Repo.SaveSyncState(ctx, state)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeMaxPages(pages int) int {
	if pages <= 0 {
		return 50
	}
	return pages
}

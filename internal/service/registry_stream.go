package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

// EventSource delivers registry events until the context ends.
type EventSource interface {
	Run(ctx context.Context, onEvent func(chain.RegistryEvent, []byte)) error
}

// RegistryStreamService applies live registry events to the listings read
// model, keeping the browse view fresh between sync passes.
type RegistryStreamService struct {
	Repo   repository.Repository
	Stream EventSource
	Logger *zap.Logger
	Flags  *SystemSettingsService

	// Recheck is how often the feature switch is re-read while the stream
	// is running or parked. Zero means one minute.
	Recheck time.Duration
}

func (s *RegistryStreamService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Stream == nil {
		return nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.enabled(ctx) {
			if s.Logger != nil {
				s.Logger.Info("registry stream disabled by feature switch")
			}
			if err := waitInterval(ctx, s.recheckInterval()); err != nil {
				return err
			}
			continue
		}
		if err := s.consumeUntilDisabled(ctx); err != nil {
			return err
		}
	}
}

func (s *RegistryStreamService) enabled(ctx context.Context) bool {
	return s.Flags == nil || s.Flags.IsEnabled(ctx, FeatureRegistryStream, true)
}

func (s *RegistryStreamService) recheckInterval() time.Duration {
	if s.Recheck > 0 {
		return s.Recheck
	}
	return time.Minute
}

// consumeUntilDisabled runs one stream session. It returns nil when the
// feature switch is toggled off so the caller parks and re-checks, and
// propagates context errors when the service is shutting down.
func (s *RegistryStreamService) consumeUntilDisabled(ctx context.Context) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- s.Stream.Run(sessionCtx, func(ev chain.RegistryEvent, _ []byte) {
			s.Apply(sessionCtx, ev)
		})
	}()

	t := time.NewTicker(s.recheckInterval())
	defer t.Stop()
	for {
		select {
		case err := <-done:
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return err
		case <-t.C:
			if !s.enabled(ctx) {
				cancel()
				<-done
				return nil
			}
		}
	}
}

func waitInterval(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *RegistryStreamService) Apply(ctx context.Context, ev chain.RegistryEvent) {
	if s == nil || s.Repo == nil {
		return
	}
	now := time.Now().UTC()
	var err error
	switch ev.EventType {
	case chain.EventListed:
		listedAt := now
		if ts, perr := time.Parse(time.RFC3339, ev.Timestamp); perr == nil {
			listedAt = ts.UTC()
		}
		err = s.Repo.UpsertListing(ctx, &models.Listing{
			TokenID:        ev.TokenID,
			Seller:         ev.Seller,
			PriceE8s:       ev.PriceE8s,
			SellerApproval: true,
			Status:         models.ListingStatusListed,
			ListedAt:       &listedAt,
			LastSeenAt:     now,
		})
	case chain.EventUnlisted:
		err = s.Repo.MarkListingStatus(ctx, ev.TokenID, models.ListingStatusUnlisted, now)
	case chain.EventSold:
		err = s.Repo.MarkListingStatus(ctx, ev.TokenID, models.ListingStatusSold, now)
	default:
		return
	}
	if err != nil && s.Logger != nil {
		s.Logger.Warn("registry event apply failed",
			zap.String("event", ev.EventType),
			zap.Uint64("token_id", ev.TokenID),
			zap.Error(err))
	}
}

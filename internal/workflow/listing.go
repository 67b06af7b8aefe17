package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
	"ipmarket/internal/repository"
	"ipmarket/internal/session"
)

// ListingWorkflow puts a token up for sale: make sure the marketplace holds
// a transfer approval, then register the listing. The two calls are not
// atomic, so the run is driven through the listing state machine and an
// approval that landed before a failed list call is left standing for the
// retry.
type ListingWorkflow struct {
	Ledger      TokenLedger
	Registry    Registry
	Spender     string
	ApprovalTTL time.Duration
	Runs        *Recorder
	Repo        repository.Repository
	Logger      *zap.Logger
}

type ListingArgs struct {
	TokenID  uint64
	PriceE8s uint64
}

type ListingResult struct {
	RunID    string
	TokenID  uint64
	PriceE8s uint64
	Seller   string
	Phase    ListingPhase
}

func (w *ListingWorkflow) Invoke(ctx context.Context, sess session.Session, args ListingArgs) (*ListingResult, error) {
	if w == nil || w.Ledger == nil || w.Registry == nil {
		return nil, failPrecondition("listing workflow is not configured")
	}
	if !sess.Valid() {
		return nil, failPrecondition("no active session")
	}
	if args.TokenID == 0 {
		return nil, failPrecondition("token id is required")
	}
	if args.PriceE8s == 0 {
		return nil, failPrecondition("price must be positive")
	}
	ctx = session.WithSession(ctx, sess)

	run := w.Runs.Start(ctx, models.RunKindListing, args.TokenID, sess.Principal)
	phase, _ := NextListingPhase(PhaseIdle, EventStart)

	approved, err := w.Ledger.IsApproved(ctx, args.TokenID, w.Spender)
	if err != nil {
		return nil, w.failListing(ctx, run, &phase, EventApprovalFailed, StepCheckApproval, err)
	}
	if approved {
		run.Step(ctx, StepCheckApproval, "reused", nil)
	} else {
		var expiresAt *time.Time
		if w.ApprovalTTL > 0 {
			t := time.Now().UTC().Add(w.ApprovalTTL)
			expiresAt = &t
		}
		// A fresh approval always starts from a zero prior grant; a
		// concurrent grant shows up as StaleAllowance and fails the run
		// before anything is listed.
		if _, err := w.Ledger.GrantApproval(ctx, args.TokenID, w.Spender, 0, expiresAt); err != nil {
			return nil, w.failListing(ctx, run, &phase, EventApprovalFailed, StepGrantApproval, err)
		}
		run.Step(ctx, StepGrantApproval, "ok", nil)
	}
	phase, _ = NextListingPhase(phase, EventApproved)

	listing, err := w.Registry.List(ctx, args.TokenID, args.PriceE8s)
	if err != nil {
		// The approval stays in place: the registry never saw the token
		// change hands, and the next attempt reuses the grant.
		return nil, w.failListing(ctx, run, &phase, EventListFailed, StepList, err)
	}
	run.Step(ctx, StepList, "ok", nil)
	phase, _ = NextListingPhase(phase, EventListed)

	res := &ListingResult{
		RunID:    run.ID(),
		TokenID:  args.TokenID,
		PriceE8s: args.PriceE8s,
		Seller:   sess.Principal,
		Phase:    phase,
	}
	if listing != nil && listing.Seller != "" {
		res.Seller = listing.Seller
	}
	if w.Repo != nil {
		now := time.Now().UTC()
		_ = w.Repo.UpsertListing(ctx, &models.Listing{
			TokenID:        args.TokenID,
			Seller:         res.Seller,
			PriceE8s:       args.PriceE8s,
			SellerApproval: true,
			Status:         models.ListingStatusListed,
			ListedAt:       &now,
			LastSeenAt:     now,
		})
	}
	run.Finish(ctx, models.RunStatusDone, "", "", nil)
	if w.Logger != nil {
		w.Logger.Info("token listed",
			zap.Uint64("token_id", args.TokenID),
			zap.Uint64("price_e8s", args.PriceE8s),
			zap.String("seller", res.Seller),
			zap.String("run_id", run.ID()))
	}
	return res, nil
}

func (w *ListingWorkflow) failListing(ctx context.Context, run *Run, phase *ListingPhase, ev ListingEvent, step string, err error) error {
	next, _ := NextListingPhase(*phase, ev)
	*phase = next
	werr := stepError(step, err)
	run.Step(ctx, step, "failed", err)
	run.Finish(ctx, models.RunStatusFailed, step, werr.Class, err)
	if w.Logger != nil {
		w.Logger.Warn("listing failed",
			zap.String("step", step),
			zap.String("phase", string(next)),
			zap.String("code", chain.RejectCode(err)),
			zap.Error(err))
	}
	return werr
}

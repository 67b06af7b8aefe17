package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
	"ipmarket/internal/notify"
	"ipmarket/internal/repository"
	"ipmarket/internal/session"
)

// DeletionWorkflow permanently destroys a token: remove any listing first,
// then burn. A completed unlist with a failed burn leaves the token off the
// market but alive, so that state is reported as burn_pending and picked up
// again by the reconciliation sweep.
type DeletionWorkflow struct {
	Ledger   TokenLedger
	Registry Registry
	Runs     *Recorder
	Repo     repository.Repository
	Logger   *zap.Logger
}

type DeletionResult struct {
	RunID   string
	TokenID uint64
	// WasListed is false when the token had no listing to remove.
	WasListed bool
	Burned    bool
	// BurnPending means the unlist landed but the burn did not. The run is
	// retried by the reconciler until the burn succeeds.
	BurnPending bool
}

func (w *DeletionWorkflow) Invoke(ctx context.Context, sess session.Session, tokenID uint64) (*DeletionResult, error) {
	if w == nil || w.Ledger == nil || w.Registry == nil {
		return nil, failPrecondition("deletion workflow is not configured")
	}
	if !sess.Valid() {
		return nil, failPrecondition("no active session")
	}
	if tokenID == 0 {
		return nil, failPrecondition("token id is required")
	}
	ctx = session.WithSession(ctx, sess)

	run := w.Runs.Start(ctx, models.RunKindDeletion, tokenID, sess.Principal)
	res := &DeletionResult{RunID: run.ID(), TokenID: tokenID, WasListed: true}

	err := w.Registry.Unlist(ctx, tokenID)
	switch {
	case err == nil:
		run.Step(ctx, StepUnlist, "ok", nil)
	case chain.IsReject(err, chain.CodeNotListed):
		res.WasListed = false
		run.Step(ctx, StepUnlist, "skipped", nil)
	default:
		werr := stepError(StepUnlist, err)
		run.Step(ctx, StepUnlist, "failed", err)
		run.Finish(ctx, models.RunStatusFailed, StepUnlist, werr.Class, err)
		if w.Logger != nil {
			w.Logger.Warn("deletion failed before burn", zap.Uint64("token_id", tokenID), zap.Error(err))
		}
		return nil, werr
	}

	if err := w.Ledger.Burn(ctx, tokenID); err != nil {
		if chain.IsReject(err, chain.CodeNotFound) {
			// The token is already gone. Nothing remains to retry.
			werr := stepError(StepBurn, err)
			run.Step(ctx, StepBurn, "failed", err)
			run.Finish(ctx, models.RunStatusFailed, StepBurn, werr.Class, err)
			return nil, werr
		}
		// The unlist committed, so the run is parked rather than failed.
		run.Step(ctx, StepBurn, "failed", err)
		run.Finish(ctx, models.RunStatusBurnPending, StepBurn, FailurePartial, err)
		res.BurnPending = true
		if w.Repo != nil {
			_ = w.Repo.MarkListingStatus(ctx, tokenID, models.ListingStatusUnlisted, time.Now().UTC())
		}
		notify.BestEffort(ctx, sess.Principal, "deletion", "warning", "Token deletion incomplete", map[string]any{
			"token_id": tokenID,
			"detail":   "unlisted but the burn did not complete; it will be retried",
		})
		if w.Logger != nil {
			w.Logger.Warn("burn pending",
				zap.Uint64("token_id", tokenID),
				zap.String("run_id", run.ID()),
				zap.Error(err))
		}
		return res, &Error{Class: FailurePartial, Step: StepBurn, Err: err}
	}
	run.Step(ctx, StepBurn, "ok", nil)
	res.Burned = true

	if w.Repo != nil {
		_ = w.Repo.MarkListingStatus(ctx, tokenID, models.ListingStatusUnlisted, time.Now().UTC())
	}
	run.Finish(ctx, models.RunStatusDone, "", "", nil)
	if w.Logger != nil {
		w.Logger.Info("token deleted",
			zap.Uint64("token_id", tokenID),
			zap.Bool("was_listed", res.WasListed),
			zap.String("run_id", run.ID()))
	}
	return res, nil
}

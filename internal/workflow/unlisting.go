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

// UnlistingWorkflow takes a token off the market and withdraws the
// marketplace's transfer approval. The approval is only revoked when it is
// actually in place; a listing whose approval already lapsed is still
// removable.
type UnlistingWorkflow struct {
	Ledger   TokenLedger
	Registry Registry
	Spender  string
	Runs     *Recorder
	Repo     repository.Repository
	Logger   *zap.Logger
}

type UnlistingResult struct {
	RunID   string
	TokenID uint64
	// RevokeSkipped is set when the ledger reported no standing approval,
	// so there was nothing to revoke.
	RevokeSkipped bool
	// WasListed is false when the registry had no listing to remove. That
	// still counts as success: the desired end state holds.
	WasListed bool
}

func (w *UnlistingWorkflow) Invoke(ctx context.Context, sess session.Session, tokenID uint64) (*UnlistingResult, error) {
	if w == nil || w.Ledger == nil || w.Registry == nil {
		return nil, failPrecondition("unlisting workflow is not configured")
	}
	if !sess.Valid() {
		return nil, failPrecondition("no active session")
	}
	if tokenID == 0 {
		return nil, failPrecondition("token id is required")
	}
	ctx = session.WithSession(ctx, sess)

	run := w.Runs.Start(ctx, models.RunKindUnlisting, tokenID, sess.Principal)
	res := &UnlistingResult{RunID: run.ID(), TokenID: tokenID, WasListed: true}

	approved, err := w.Ledger.IsApproved(ctx, tokenID, w.Spender)
	if err != nil {
		return nil, w.fail(ctx, run, StepCheckApproval, err)
	}
	if approved {
		err := w.Ledger.RevokeApproval(ctx, tokenID, w.Spender)
		switch {
		case err == nil:
			run.Step(ctx, StepRevoke, "ok", nil)
		case chain.IsReject(err, chain.CodeApprovalMissing):
			// The grant expired between the check and the revoke. The end
			// state is what we wanted.
			res.RevokeSkipped = true
			run.Step(ctx, StepRevoke, "skipped", nil)
		default:
			return nil, w.fail(ctx, run, StepRevoke, err)
		}
	} else {
		res.RevokeSkipped = true
		run.Step(ctx, StepRevoke, "skipped", nil)
	}

	err = w.Registry.Unlist(ctx, tokenID)
	switch {
	case err == nil:
		run.Step(ctx, StepUnlist, "ok", nil)
	case chain.IsReject(err, chain.CodeNotListed):
		res.WasListed = false
		run.Step(ctx, StepUnlist, "skipped", nil)
	default:
		return nil, w.fail(ctx, run, StepUnlist, err)
	}

	if w.Repo != nil {
		_ = w.Repo.MarkListingStatus(ctx, tokenID, models.ListingStatusUnlisted, time.Now().UTC())
	}
	run.Finish(ctx, models.RunStatusDone, "", "", nil)
	if w.Logger != nil {
		w.Logger.Info("token unlisted",
			zap.Uint64("token_id", tokenID),
			zap.Bool("revoke_skipped", res.RevokeSkipped),
			zap.Bool("was_listed", res.WasListed),
			zap.String("run_id", run.ID()))
	}
	return res, nil
}

func (w *UnlistingWorkflow) fail(ctx context.Context, run *Run, step string, err error) error {
	werr := stepError(step, err)
	run.Step(ctx, step, "failed", err)
	run.Finish(ctx, models.RunStatusFailed, step, werr.Class, err)
	if w.Logger != nil {
		w.Logger.Warn("unlisting failed", zap.String("step", step), zap.Error(err))
	}
	return werr
}

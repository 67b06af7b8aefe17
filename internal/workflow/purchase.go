package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/models"
	"ipmarket/internal/notify"
	"ipmarket/internal/repository"
	"ipmarket/internal/session"
)

// PurchaseWorkflow buys a listed token: check the buyer can pay, raise the
// payment allowance to the quoted price when it is short, then execute the
// buy. A listing that disappears between quote and buy is an expected
// outcome, not an error.
type PurchaseWorkflow struct {
	Payment  PaymentLedger
	Registry Registry
	Spender  string
	Runs     *Recorder
	Repo     repository.Repository
	Logger   *zap.Logger
}

type PurchaseArgs struct {
	TokenID  uint64
	PriceE8s uint64
}

type PurchaseResult struct {
	RunID    string
	TokenID  uint64
	PriceE8s uint64
	Buyer    string
	Seller   string
	// Completed is false when the listing was gone or already owned by the
	// buyer. Reason carries the rejection code in that case.
	Completed bool
	Reason    string
}

func (w *PurchaseWorkflow) Invoke(ctx context.Context, sess session.Session, args PurchaseArgs) (*PurchaseResult, error) {
	if w == nil || w.Payment == nil || w.Registry == nil {
		return nil, failPrecondition("purchase workflow is not configured")
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

	run := w.Runs.Start(ctx, models.RunKindPurchase, args.TokenID, sess.Principal)

	balance, err := w.Payment.BalanceOf(ctx, sess.Principal)
	if err != nil {
		return nil, w.fail(ctx, run, StepBalance, err)
	}
	if balance < args.PriceE8s {
		err := fmt.Errorf("balance %d below price %d", balance, args.PriceE8s)
		run.Step(ctx, StepBalance, "failed", err)
		run.Finish(ctx, models.RunStatusFailed, StepBalance, FailurePrecondition, err)
		return nil, &Error{Class: FailurePrecondition, Step: StepBalance, Err: err}
	}
	run.Step(ctx, StepBalance, "ok", nil)

	allowance, err := w.Payment.AllowanceOf(ctx, sess.Principal, w.Spender)
	if err != nil {
		return nil, w.fail(ctx, run, StepAllowance, err)
	}
	if allowance < args.PriceE8s {
		// The expected current allowance rides along so a concurrent
		// approval from the same account is detected, not overwritten.
		if err := w.Payment.ApproveSpend(ctx, args.PriceE8s, w.Spender, allowance); err != nil {
			return nil, w.fail(ctx, run, StepApproveSpend, err)
		}
		run.Step(ctx, StepApproveSpend, "ok", nil)
	} else {
		run.Step(ctx, StepApproveSpend, "skipped", nil)
	}

	receipt, err := w.Registry.Buy(ctx, args.TokenID)
	if err != nil {
		if chain.IsReject(err, chain.CodeNotListed, chain.CodeAlreadyOwned) {
			// Someone else got there first, or the buyer already holds the
			// token. Report it as an unavailable outcome.
			run.Step(ctx, StepBuy, "unavailable", err)
			run.Finish(ctx, models.RunStatusDone, "", "", nil)
			res := &PurchaseResult{
				RunID:    run.ID(),
				TokenID:  args.TokenID,
				PriceE8s: args.PriceE8s,
				Buyer:    sess.Principal,
				Reason:   chain.RejectCode(err),
			}
			w.recordPurchase(ctx, res, models.PurchaseStatusUnavailable)
			if w.Logger != nil {
				w.Logger.Info("purchase unavailable",
					zap.Uint64("token_id", args.TokenID),
					zap.String("reason", res.Reason))
			}
			return res, nil
		}
		return nil, w.fail(ctx, run, StepBuy, err)
	}
	run.Step(ctx, StepBuy, "ok", nil)
	run.Finish(ctx, models.RunStatusDone, "", "", nil)

	res := &PurchaseResult{
		RunID:     run.ID(),
		TokenID:   args.TokenID,
		PriceE8s:  args.PriceE8s,
		Buyer:     sess.Principal,
		Completed: true,
	}
	if receipt != nil {
		res.Seller = receipt.Seller
		if receipt.PriceE8s > 0 {
			res.PriceE8s = receipt.PriceE8s
		}
	}
	w.recordPurchase(ctx, res, models.PurchaseStatusCompleted)
	if w.Repo != nil {
		_ = w.Repo.MarkListingStatus(ctx, args.TokenID, models.ListingStatusSold, time.Now().UTC())
	}
	if res.Seller != "" {
		notify.BestEffort(ctx, res.Seller, "purchase", "info", "Token sold", map[string]any{
			"token_id":  res.TokenID,
			"buyer":     res.Buyer,
			"price_e8s": res.PriceE8s,
		})
	}
	if w.Logger != nil {
		w.Logger.Info("purchase completed",
			zap.Uint64("token_id", args.TokenID),
			zap.Uint64("price_e8s", res.PriceE8s),
			zap.String("buyer", res.Buyer),
			zap.String("seller", res.Seller),
			zap.String("run_id", run.ID()))
	}
	return res, nil
}

func (w *PurchaseWorkflow) recordPurchase(ctx context.Context, res *PurchaseResult, status string) {
	if w.Repo == nil {
		return
	}
	reason := res.Reason
	_ = w.Repo.InsertPurchase(ctx, &models.Purchase{
		RunID:         res.RunID,
		TokenID:       res.TokenID,
		Buyer:         res.Buyer,
		Seller:        res.Seller,
		PriceE8s:      res.PriceE8s,
		Status:        status,
		FailureReason: reason,
	})
}

func (w *PurchaseWorkflow) fail(ctx context.Context, run *Run, step string, err error) error {
	werr := stepError(step, err)
	run.Step(ctx, step, "failed", err)
	run.Finish(ctx, models.RunStatusFailed, step, werr.Class, err)
	if w.Logger != nil {
		w.Logger.Warn("purchase failed",
			zap.String("step", step),
			zap.String("code", chain.RejectCode(err)),
			zap.Error(err))
	}
	return werr
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/config"
	"ipmarket/internal/models"
	"ipmarket/internal/repository"
	"ipmarket/internal/session"
)

// Burner is the one ledger call the reconciler needs.
type Burner interface {
	Burn(ctx context.Context, tokenID uint64) error
}

// ReconcileService retries deletions that got stuck between unlist and burn.
// Each parked run is retried on behalf of the caller that started it, so the
// ledger sees the same principal as the original request.
type ReconcileService struct {
	Repo   repository.Repository
	Ledger Burner
	Config config.ReconcileConfig
	Logger *zap.Logger
	Flags  *SystemSettingsService
}

func (s *ReconcileService) Run(ctx context.Context) error {
	if s == nil || s.Repo == nil || s.Ledger == nil {
		return nil
	}
	interval := s.Config.ScanInterval
	if interval <= 0 {
		interval = time.Minute
	}
	_ = s.sweepIfEnabled(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_ = s.sweepIfEnabled(ctx)
		}
	}
}

func (s *ReconcileService) sweepIfEnabled(ctx context.Context) error {
	if s != nil && s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureReconcile, true) {
		return nil
	}
	_, err := s.Sweep(ctx)
	return err
}

type SweepResult struct {
	Scanned int `json:"scanned"`
	Burned  int `json:"burned"`
	Gone    int `json:"gone"`
	Retried int `json:"retried"`
}

func (s *ReconcileService) Sweep(ctx context.Context) (SweepResult, error) {
	if s == nil || s.Repo == nil || s.Ledger == nil {
		return SweepResult{}, nil
	}
	batch := s.Config.BatchSize
	if batch <= 0 {
		batch = 50
	}
	runs, err := s.Repo.ListWorkflowRunsByStatus(ctx, models.RunStatusBurnPending, batch)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Scanned: len(runs)}
	for _, run := range runs {
		callCtx := session.WithSession(ctx, session.Session{Principal: run.Caller})
		err := s.Ledger.Burn(callCtx, run.TokenID)
		switch {
		case err == nil:
			result.Burned++
			s.closeRun(ctx, run.RunID, models.RunStatusDone, "")
			if s.Logger != nil {
				s.Logger.Info("pending burn completed",
					zap.Uint64("token_id", run.TokenID),
					zap.String("run_id", run.RunID))
			}
		case chain.IsReject(err, chain.CodeNotFound):
			// Burned out of band. The desired end state holds.
			result.Gone++
			s.closeRun(ctx, run.RunID, models.RunStatusDone, err.Error())
		default:
			result.Retried++
			_ = s.Repo.UpdateWorkflowRun(ctx, run.RunID, map[string]any{"error": err.Error()})
			if s.Logger != nil {
				s.Logger.Warn("pending burn retry failed",
					zap.Uint64("token_id", run.TokenID),
					zap.String("run_id", run.RunID),
					zap.Error(err))
			}
		}
	}
	return result, nil
}

func (s *ReconcileService) closeRun(ctx context.Context, runID, status, errMsg string) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":      status,
		"finished_at": &now,
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	_ = s.Repo.UpdateWorkflowRun(ctx, runID, updates)
}

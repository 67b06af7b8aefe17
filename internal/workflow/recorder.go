package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

// Recorder persists workflow runs for the audit API. Every write is
// best-effort: a storage failure is logged and the workflow carries on.
type Recorder struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Run accumulates the step log for one invocation. A nil Run is usable and
// does nothing, so workflows never guard their recording calls.
type Run struct {
	rec     *Recorder
	id      string
	kind    string
	tokenID uint64
	caller  string
	started time.Time
	steps   []StepRecord
}

type StepRecord struct {
	Step   string    `json:"step"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

func (r *Recorder) Start(ctx context.Context, kind string, tokenID uint64, caller string) *Run {
	if r == nil || r.Repo == nil {
		return nil
	}
	run := &Run{
		rec:     r,
		id:      uuid.NewString(),
		kind:    kind,
		tokenID: tokenID,
		caller:  caller,
		started: time.Now().UTC(),
	}
	err := r.Repo.InsertWorkflowRun(ctx, &models.WorkflowRun{
		RunID:     run.id,
		Kind:      kind,
		TokenID:   tokenID,
		Caller:    caller,
		Status:    models.RunStatusRunning,
		StartedAt: run.started,
	})
	if err != nil && r.Logger != nil {
		r.Logger.Warn("workflow run insert failed", zap.String("run_id", run.id), zap.Error(err))
	}
	return run
}

// Step appends one step outcome and flushes the step log.
func (run *Run) Step(ctx context.Context, step, status string, err error) {
	if run == nil {
		return
	}
	rec := StepRecord{Step: step, Status: status, At: time.Now().UTC()}
	if err != nil {
		rec.Error = err.Error()
	}
	run.steps = append(run.steps, rec)
	run.flush(ctx, map[string]any{"steps": run.stepsJSON()})
}

// Finish closes the run with a final status. failedStep and class are empty
// on success.
func (run *Run) Finish(ctx context.Context, status, failedStep string, class FailureClass, err error) {
	if run == nil {
		return
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"status":        status,
		"failed_step":   failedStep,
		"failure_class": string(class),
		"finished_at":   &now,
		"steps":         run.stepsJSON(),
	}
	if err != nil {
		updates["error"] = err.Error()
	}
	run.flush(ctx, updates)
}

func (run *Run) flush(ctx context.Context, updates map[string]any) {
	if run.rec == nil || run.rec.Repo == nil {
		return
	}
	if err := run.rec.Repo.UpdateWorkflowRun(ctx, run.id, updates); err != nil && run.rec.Logger != nil {
		run.rec.Logger.Warn("workflow run update failed", zap.String("run_id", run.id), zap.Error(err))
	}
}

func (run *Run) stepsJSON() datatypes.JSON {
	raw, err := json.Marshal(run.steps)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

// ID is safe on a nil run and returns "" when recording is disabled.
func (run *Run) ID() string {
	if run == nil {
		return ""
	}
	return run.id
}

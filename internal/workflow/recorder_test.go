package workflow

import (
	"context"
	"errors"
	"testing"

	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

// runRepoStub captures run writes. The embedded interface is nil so any
// other repository call panics loudly.
type runRepoStub struct {
	repository.Repository
	inserted []*models.WorkflowRun
	updates  map[string][]map[string]any
}

func (r *runRepoStub) InsertWorkflowRun(_ context.Context, item *models.WorkflowRun) error {
	cp := *item
	r.inserted = append(r.inserted, &cp)
	return nil
}

func (r *runRepoStub) UpdateWorkflowRun(_ context.Context, runID string, updates map[string]any) error {
	if r.updates == nil {
		r.updates = map[string][]map[string]any{}
	}
	r.updates[runID] = append(r.updates[runID], updates)
	return nil
}

func TestNilRunRecordsNothing(t *testing.T) {
	var run *Run
	run.Step(context.Background(), StepList, "ok", nil)
	run.Finish(context.Background(), models.RunStatusDone, "", "", nil)
	if got := run.ID(); got != "" {
		t.Fatalf("nil run must have empty id, got %q", got)
	}
}

func TestRecorderKeepsOneIdentityPerRun(t *testing.T) {
	repo := &runRepoStub{}
	rec := &Recorder{Repo: repo}
	ctx := context.Background()

	run := rec.Start(ctx, models.RunKindListing, 42, "alice")
	if run.ID() == "" {
		t.Fatalf("started run must have an id")
	}
	if len(repo.inserted) != 1 || repo.inserted[0].RunID != run.ID() {
		t.Fatalf("insert must carry the run id, got %+v", repo.inserted)
	}

	run.Step(ctx, StepList, "failed", errors.New("boom"))
	run.Finish(ctx, models.RunStatusFailed, StepList, FailureRejected, errors.New("boom"))
	if len(repo.updates[run.ID()]) != 2 {
		t.Fatalf("step and finish must flush under the same id, got %+v", repo.updates)
	}
}

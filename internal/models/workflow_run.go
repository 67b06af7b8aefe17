package models

import (
	"time"

	"gorm.io/datatypes"
)

// WorkflowRun is the audit record of one workflow invocation. Runs are
// written best-effort: a failed insert never changes the workflow outcome.
type WorkflowRun struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"type:varchar(40);not null;uniqueIndex"`

	Kind    string `gorm:"type:varchar(20);not null;index"`
	TokenID uint64 `gorm:"not null;index"`
	Caller  string `gorm:"type:varchar(100);not null;index"`

	Status       string `gorm:"type:varchar(20);not null;default:'running';index"`
	FailedStep   string `gorm:"type:varchar(30)"`
	FailureClass string `gorm:"type:varchar(20)"`
	Error        string `gorm:"type:text"`

	// Steps is an append-only JSON array of {step, status, error, at}.
	Steps datatypes.JSON `gorm:"type:jsonb"`

	StartedAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	FinishedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WorkflowRun) TableName() string {
	return "workflow_runs"
}

const (
	RunKindListing   = "listing"
	RunKindUnlisting = "unlisting"
	RunKindPurchase  = "purchase"
	RunKindDeletion  = "deletion"
)

const (
	RunStatusRunning     = "running"
	RunStatusDone        = "done"
	RunStatusFailed      = "failed"
	RunStatusBurnPending = "burn_pending"
)

package workflow

import (
	"errors"
	"fmt"

	"ipmarket/internal/client/chain"
)

// FailureClass says what kind of thing went wrong, independent of which
// workflow it happened in. Callers branch on the class, not on error text.
type FailureClass string

const (
	// FailurePrecondition means the workflow never issued a mutating call:
	// missing session, bad arguments, or a failed local check.
	FailurePrecondition FailureClass = "precondition"
	// FailureTransport means a remote call did not complete. The remote
	// state is unknown and the operation may be retried as a whole.
	FailureTransport FailureClass = "transport"
	// FailureRejected means the remote service answered with an explicit
	// error. The remote state is known.
	FailureRejected FailureClass = "rejected"
	// FailurePartial means the workflow committed some of its effects and
	// a later step did not land. The remaining step is named by Step.
	FailurePartial FailureClass = "partial"
)

// Step names as they appear in run records and failure reports.
const (
	StepCheckApproval = "check_approval"
	StepGrantApproval = "grant_approval"
	StepRevoke        = "revoke_approval"
	StepList          = "list"
	StepUnlist        = "unlist"
	StepBalance       = "check_balance"
	StepAllowance     = "check_allowance"
	StepApproveSpend  = "approve_spend"
	StepBuy           = "buy"
	StepBurn          = "burn"
)

// Error is the single error type workflows return. Step names the call that
// failed and Err carries the underlying chain error when there is one.
type Error struct {
	Class FailureClass
	Step  string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Class, e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClassOf extracts the failure class from an error chain, defaulting to
// transport for anything unclassified.
func ClassOf(err error) FailureClass {
	var we *Error
	if errors.As(err, &we) {
		return we.Class
	}
	return FailureTransport
}

func failPrecondition(msg string) *Error {
	return &Error{Class: FailurePrecondition, Err: errors.New(msg)}
}

// stepError classifies a chain-client error for the given step. Transport
// and rejection are kept apart so callers know whether the remote state
// actually changed.
func stepError(step string, err error) *Error {
	class := FailureRejected
	if chain.IsTransport(err) {
		class = FailureTransport
	}
	return &Error{Class: class, Step: step, Err: err}
}

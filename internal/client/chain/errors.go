package chain

import (
	"errors"
	"fmt"
)

// Remote rejection codes shared by the ledgers and the registry.
const (
	CodeNotApproved       = "NotApproved"
	CodeNotListed         = "NotListed"
	CodeAlreadyListed     = "AlreadyListed"
	CodeAlreadyOwned      = "AlreadyOwned"
	CodeInsufficientFunds = "InsufficientFunds"
	CodeStaleAllowance    = "StaleAllowance"
	CodeApprovalMissing   = "ApprovalMissing"
	CodeNotFound          = "NotFound"
	CodeUnauthorized      = "Unauthorized"
	CodeTransferFailed    = "TransferFailed"
)

// RejectError means the remote service received the call and returned an
// explicit error value. The remote state is whatever the service says it is.
type RejectError struct {
	Code    string
	Message string
}

func (e *RejectError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote rejection %s", e.Code)
	}
	return fmt.Sprintf("remote rejection %s: %s", e.Code, e.Message)
}

// TransportError means the call never completed: the request may not have
// reached the service at all. Safe to surface as retryable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsReject reports whether err is a remote rejection carrying one of the
// given codes. With no codes it matches any rejection.
func IsReject(err error, codes ...string) bool {
	var re *RejectError
	if !errors.As(err, &re) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if re.Code == c {
			return true
		}
	}
	return false
}

// RejectCode extracts the rejection code, or "" for non-rejection errors.
func RejectCode(err error) string {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

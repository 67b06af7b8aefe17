package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/session"
)

// callLog records the remote calls a workflow issued, in order. The ordering
// assertions in the tests below are the point: approvals must land before
// the mutating registry call that depends on them.
type callLog struct {
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

type ledgerStub struct {
	log *callLog

	approved      bool
	isApprovedErr error
	grantErr      error
	revokeErr     error
	burnErr       error
}

func (s *ledgerStub) GrantApproval(ctx context.Context, tokenID uint64, spender string, expectedPrior uint64, expiresAt *time.Time) (*chain.ApprovalGrant, error) {
	s.log.add("grant(%d,%s,%d)", tokenID, spender, expectedPrior)
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	return &chain.ApprovalGrant{TokenID: tokenID, Spender: spender}, nil
}

func (s *ledgerStub) RevokeApproval(ctx context.Context, tokenID uint64, spender string) error {
	s.log.add("revoke(%d,%s)", tokenID, spender)
	return s.revokeErr
}

func (s *ledgerStub) IsApproved(ctx context.Context, tokenID uint64, spender string) (bool, error) {
	s.log.add("is_approved(%d,%s)", tokenID, spender)
	return s.approved, s.isApprovedErr
}

func (s *ledgerStub) Burn(ctx context.Context, tokenID uint64) error {
	s.log.add("burn(%d)", tokenID)
	return s.burnErr
}

type paymentStub struct {
	log *callLog

	balance      uint64
	balanceErr   error
	allowance    uint64
	allowanceErr error
	approveErr   error
}

func (s *paymentStub) ApproveSpend(ctx context.Context, amountE8s uint64, spender string, expectedAllowance uint64) error {
	s.log.add("approve_spend(%d,%s,%d)", amountE8s, spender, expectedAllowance)
	return s.approveErr
}

func (s *paymentStub) BalanceOf(ctx context.Context, account string) (uint64, error) {
	s.log.add("balance(%s)", account)
	return s.balance, s.balanceErr
}

func (s *paymentStub) AllowanceOf(ctx context.Context, account, spender string) (uint64, error) {
	s.log.add("allowance(%s,%s)", account, spender)
	return s.allowance, s.allowanceErr
}

type registryStub struct {
	log *callLog

	listErr   error
	unlistErr error
	buyErr    error
	receipt   *chain.PurchaseReceipt
}

func (s *registryStub) List(ctx context.Context, tokenID, priceE8s uint64) (*chain.RemoteListing, error) {
	s.log.add("list(%d,%d)", tokenID, priceE8s)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &chain.RemoteListing{TokenID: tokenID, PriceE8s: priceE8s, Seller: "alice"}, nil
}

func (s *registryStub) Unlist(ctx context.Context, tokenID uint64) error {
	s.log.add("unlist(%d)", tokenID)
	return s.unlistErr
}

func (s *registryStub) Buy(ctx context.Context, tokenID uint64) (*chain.PurchaseReceipt, error) {
	s.log.add("buy(%d)", tokenID)
	if s.buyErr != nil {
		return nil, s.buyErr
	}
	if s.receipt != nil {
		return s.receipt, nil
	}
	return &chain.PurchaseReceipt{TokenID: tokenID, Seller: "alice"}, nil
}

func testSession() session.Session {
	return session.Session{Principal: "alice"}
}

func reject(code string) error {
	return &chain.RejectError{Code: code, Message: code}
}

func transport() error {
	return &chain.TransportError{Op: "POST /x", Err: errors.New("connection refused")}
}

func mustClass(t *testing.T, err error, want FailureClass) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error of class %s, got nil", want)
	}
	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *workflow.Error, got %T: %v", err, err)
	}
	if werr.Class != want {
		t.Fatalf("expected class %s, got %s (%v)", want, werr.Class, err)
	}
}

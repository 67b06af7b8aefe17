package workflow

import (
	"context"
	"time"

	"ipmarket/internal/client/chain"
)

// TokenLedger is the slice of the token ledger the workflows call. The chain
// client satisfies it; tests substitute recording stubs.
type TokenLedger interface {
	GrantApproval(ctx context.Context, tokenID uint64, spender string, expectedPrior uint64, expiresAt *time.Time) (*chain.ApprovalGrant, error)
	RevokeApproval(ctx context.Context, tokenID uint64, spender string) error
	IsApproved(ctx context.Context, tokenID uint64, spender string) (bool, error)
	Burn(ctx context.Context, tokenID uint64) error
}

// PaymentLedger covers the payment-side calls a purchase needs.
type PaymentLedger interface {
	ApproveSpend(ctx context.Context, amountE8s uint64, spender string, expectedAllowance uint64) error
	BalanceOf(ctx context.Context, account string) (uint64, error)
	AllowanceOf(ctx context.Context, account, spender string) (uint64, error)
}

// Registry covers the marketplace registry mutations.
type Registry interface {
	List(ctx context.Context, tokenID, priceE8s uint64) (*chain.RemoteListing, error)
	Unlist(ctx context.Context, tokenID uint64) error
	Buy(ctx context.Context, tokenID uint64) (*chain.PurchaseReceipt, error)
}

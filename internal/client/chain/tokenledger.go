package chain

import (
	"context"
	"net/http"
	"time"
)

// TokenLedgerClient talks to the IP token ledger. The ledger owns token
// custody and the approval records; this client never caches its answers.
type TokenLedgerClient struct {
	*Client
}

func NewTokenLedgerClient(httpClient *http.Client, host string) *TokenLedgerClient {
	return &TokenLedgerClient{Client: NewClient(httpClient, host)}
}

type ApprovalGrant struct {
	TokenID   uint64     `json:"token_id"`
	Spender   string     `json:"spender"`
	Owner     string     `json:"owner"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	GrantedAt time.Time  `json:"granted_at"`
}

type grantApprovalRequest struct {
	TokenID           uint64     `json:"token_id"`
	Spender           string     `json:"spender"`
	ExpectedAllowance uint64     `json:"expected_allowance"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// GrantApproval authorizes spender to transfer the token. The ledger
// compares expectedPrior against its current recorded allowance and rejects
// with StaleAllowance on mismatch, so two racing grants cannot silently
// clobber each other.
func (c *TokenLedgerClient) GrantApproval(ctx context.Context, tokenID uint64, spender string, expectedPrior uint64, expiresAt *time.Time) (*ApprovalGrant, error) {
	req := grantApprovalRequest{
		TokenID:           tokenID,
		Spender:           spender,
		ExpectedAllowance: expectedPrior,
		ExpiresAt:         expiresAt,
	}
	var grant ApprovalGrant
	if err := c.doJSON(ctx, http.MethodPost, "/approvals/grant", req, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

type revokeApprovalRequest struct {
	TokenID uint64 `json:"token_id"`
	Spender string `json:"spender"`
}

// RevokeApproval removes a standing approval. The ledger rejects with
// ApprovalMissing when none exists; callers decide whether that matters.
func (c *TokenLedgerClient) RevokeApproval(ctx context.Context, tokenID uint64, spender string) error {
	req := revokeApprovalRequest{TokenID: tokenID, Spender: spender}
	return c.doJSON(ctx, http.MethodPost, "/approvals/revoke", req, nil)
}

type isApprovedRequest struct {
	TokenID uint64 `json:"token_id"`
	Spender string `json:"spender"`
}

type isApprovedResponse struct {
	Approved bool `json:"approved"`
}

func (c *TokenLedgerClient) IsApproved(ctx context.Context, tokenID uint64, spender string) (bool, error) {
	req := isApprovedRequest{TokenID: tokenID, Spender: spender}
	var resp isApprovedResponse
	if err := c.doJSON(ctx, http.MethodPost, "/approvals/check", req, &resp); err != nil {
		return false, err
	}
	return resp.Approved, nil
}

type burnRequest struct {
	TokenID uint64 `json:"token_id"`
}

// Burn destroys the token. Rejects NotFound when the token was already
// burned; burned tokens cannot be re-burned.
func (c *TokenLedgerClient) Burn(ctx context.Context, tokenID uint64) error {
	return c.doJSON(ctx, http.MethodPost, "/tokens/burn", burnRequest{TokenID: tokenID}, nil)
}

type ownerOfRequest struct {
	TokenID uint64 `json:"token_id"`
}

type ownerOfResponse struct {
	Owner string `json:"owner"`
}

func (c *TokenLedgerClient) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	var resp ownerOfResponse
	req := ownerOfRequest{TokenID: tokenID}
	if err := c.doJSON(ctx, http.MethodPost, "/tokens/owner", req, &resp); err != nil {
		return "", err
	}
	return resp.Owner, nil
}

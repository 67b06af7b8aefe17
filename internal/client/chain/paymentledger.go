package chain

import (
	"context"
	"net/http"
)

// PaymentLedgerClient talks to the payment token ledger. Amounts are e8s
// minor units throughout; conversion to display units happens at the edge.
type PaymentLedgerClient struct {
	*Client
}

func NewPaymentLedgerClient(httpClient *http.Client, host string) *PaymentLedgerClient {
	return &PaymentLedgerClient{Client: NewClient(httpClient, host)}
}

type approveSpendRequest struct {
	AmountE8s         uint64 `json:"amount_e8s"`
	Spender           string `json:"spender"`
	ExpectedAllowance uint64 `json:"expected_allowance"`
}

// ApproveSpend authorizes spender to move amountE8s from the caller's
// account. Same expected-allowance guard as the token ledger: a mismatch
// with the ledger's current allowance rejects with StaleAllowance.
func (c *PaymentLedgerClient) ApproveSpend(ctx context.Context, amountE8s uint64, spender string, expectedAllowance uint64) error {
	req := approveSpendRequest{
		AmountE8s:         amountE8s,
		Spender:           spender,
		ExpectedAllowance: expectedAllowance,
	}
	return c.doJSON(ctx, http.MethodPost, "/approve", req, nil)
}

type balanceOfRequest struct {
	Account string `json:"account"`
}

type amountResponse struct {
	AmountE8s uint64 `json:"amount_e8s"`
}

func (c *PaymentLedgerClient) BalanceOf(ctx context.Context, account string) (uint64, error) {
	var resp amountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/balance", balanceOfRequest{Account: account}, &resp); err != nil {
		return 0, err
	}
	return resp.AmountE8s, nil
}

type allowanceOfRequest struct {
	Account string `json:"account"`
	Spender string `json:"spender"`
}

func (c *PaymentLedgerClient) AllowanceOf(ctx context.Context, account, spender string) (uint64, error) {
	var resp amountResponse
	req := allowanceOfRequest{Account: account, Spender: spender}
	if err := c.doJSON(ctx, http.MethodPost, "/allowance", req, &resp); err != nil {
		return 0, err
	}
	return resp.AmountE8s, nil
}

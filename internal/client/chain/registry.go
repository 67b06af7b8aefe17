package chain

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RegistryClient talks to the marketplace registry, the service that records
// listings and settles purchases. It is the serialization point for races:
// the loser of a double-buy gets NotListed or AlreadyOwned back from here.
type RegistryClient struct {
	*Client
}

func NewRegistryClient(httpClient *http.Client, host string) *RegistryClient {
	return &RegistryClient{Client: NewClient(httpClient, host)}
}

type RemoteListing struct {
	TokenID  uint64     `json:"token_id"`
	Seller   string     `json:"seller"`
	PriceE8s uint64     `json:"price_e8s"`
	ListedAt *time.Time `json:"listed_at,omitempty"`
}

type listRequest struct {
	TokenID  uint64 `json:"token_id"`
	PriceE8s uint64 `json:"price_e8s"`
}

// List records a sale offer. The registry verifies transfer rights at
// listing time and rejects with NotApproved when the marketplace holds no
// standing approval for the token.
func (c *RegistryClient) List(ctx context.Context, tokenID, priceE8s uint64) (*RemoteListing, error) {
	var listing RemoteListing
	req := listRequest{TokenID: tokenID, PriceE8s: priceE8s}
	if err := c.doJSON(ctx, http.MethodPost, "/listings", req, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

type unlistRequest struct {
	TokenID uint64 `json:"token_id"`
}

// Unlist removes the offer. The registry itself rejects with NotListed when
// there is none; downgrading that to success is the caller's decision.
func (c *RegistryClient) Unlist(ctx context.Context, tokenID uint64) error {
	return c.doJSON(ctx, http.MethodPost, "/listings/unlist", unlistRequest{TokenID: tokenID}, nil)
}

type buyRequest struct {
	TokenID uint64 `json:"token_id"`
}

type PurchaseReceipt struct {
	TokenID  uint64    `json:"token_id"`
	Buyer    string    `json:"buyer"`
	Seller   string    `json:"seller"`
	PriceE8s uint64    `json:"price_e8s"`
	BoughtAt time.Time `json:"bought_at"`
}

// Buy settles a purchase: payment transfer, token transfer, listing removal,
// atomically from the caller's perspective. Rejects InsufficientFunds,
// NotListed, AlreadyOwned, or TransferFailed.
func (c *RegistryClient) Buy(ctx context.Context, tokenID uint64) (*PurchaseReceipt, error) {
	var receipt PurchaseReceipt
	if err := c.doJSON(ctx, http.MethodPost, "/listings/buy", buyRequest{TokenID: tokenID}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

type listedPage struct {
	Items []RemoteListing `json:"items"`
	Next  *string         `json:"next,omitempty"`
}

// GetListed returns one page of active listings. cursor is the opaque value
// from a previous page, empty for the first.
func (c *RegistryClient) GetListed(ctx context.Context, cursor string, limit int) ([]RemoteListing, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/listings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page listedPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, "", err
	}
	next := ""
	if page.Next != nil {
		next = *page.Next
	}
	return page.Items, next, nil
}

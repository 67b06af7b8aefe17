package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/session"
	"ipmarket/internal/workflow"
)

type fakeLedger struct {
	approved bool
	grantErr error
	burnErr  error
}

func (f *fakeLedger) GrantApproval(ctx context.Context, tokenID uint64, spender string, expectedPrior uint64, expiresAt *time.Time) (*chain.ApprovalGrant, error) {
	if f.grantErr != nil {
		return nil, f.grantErr
	}
	return &chain.ApprovalGrant{TokenID: tokenID, Spender: spender}, nil
}

func (f *fakeLedger) RevokeApproval(ctx context.Context, tokenID uint64, spender string) error {
	return nil
}

func (f *fakeLedger) IsApproved(ctx context.Context, tokenID uint64, spender string) (bool, error) {
	return f.approved, nil
}

func (f *fakeLedger) Burn(ctx context.Context, tokenID uint64) error {
	return f.burnErr
}

type fakeRegistry struct {
	listErr   error
	unlistErr error
}

func (f *fakeRegistry) List(ctx context.Context, tokenID, priceE8s uint64) (*chain.RemoteListing, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &chain.RemoteListing{TokenID: tokenID, PriceE8s: priceE8s, Seller: "alice"}, nil
}

func (f *fakeRegistry) Unlist(ctx context.Context, tokenID uint64) error {
	return f.unlistErr
}

func (f *fakeRegistry) Buy(ctx context.Context, tokenID uint64) (*chain.PurchaseReceipt, error) {
	return &chain.PurchaseReceipt{TokenID: tokenID, Seller: "alice"}, nil
}

func newTestRouter(h *WorkflowsHandler, withSession bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if withSession {
		r.Use(func(c *gin.Context) {
			ctx := session.WithSession(c.Request.Context(), session.Session{Principal: "alice"})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
	h.Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestListEndpointHappyPath(t *testing.T) {
	h := &WorkflowsHandler{
		Listing: &workflow.ListingWorkflow{
			Ledger:   &fakeLedger{},
			Registry: &fakeRegistry{},
			Spender:  "marketplace",
		},
	}
	r := newTestRouter(h, true)

	w, resp := doRequest(t, r, http.MethodPost, "/api/v1/tokens/42/list", `{"price_e8s":5000000000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp.Code != 0 {
		t.Fatalf("expected ok envelope, got %+v", resp)
	}
}

func TestListEndpointRequiresSession(t *testing.T) {
	h := &WorkflowsHandler{
		Listing: &workflow.ListingWorkflow{Ledger: &fakeLedger{}, Registry: &fakeRegistry{}},
	}
	r := newTestRouter(h, false)

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/tokens/42/list", `{"price_e8s":100}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListEndpointRejectsBadTokenID(t *testing.T) {
	h := &WorkflowsHandler{
		Listing: &workflow.ListingWorkflow{Ledger: &fakeLedger{}, Registry: &fakeRegistry{}},
	}
	r := newTestRouter(h, true)

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/tokens/abc/list", `{"price_e8s":100}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRemoteRejectionMapsToConflict(t *testing.T) {
	h := &WorkflowsHandler{
		Listing: &workflow.ListingWorkflow{
			Ledger:   &fakeLedger{},
			Registry: &fakeRegistry{listErr: &chain.RejectError{Code: chain.CodeAlreadyListed}},
			Spender:  "marketplace",
		},
	}
	r := newTestRouter(h, true)

	w, resp := doRequest(t, r, http.MethodPost, "/api/v1/tokens/42/list", `{"price_e8s":100}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if resp.Meta["code"] != chain.CodeAlreadyListed {
		t.Fatalf("expected the rejection code in meta, got %+v", resp.Meta)
	}
}

func TestTransportFailureMapsToBadGateway(t *testing.T) {
	h := &WorkflowsHandler{
		Listing: &workflow.ListingWorkflow{
			Ledger:   &fakeLedger{grantErr: &chain.TransportError{Op: "POST /approvals/grant", Err: errors.New("refused")}},
			Registry: &fakeRegistry{},
			Spender:  "marketplace",
		},
	}
	r := newTestRouter(h, true)

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/tokens/42/list", `{"price_e8s":100}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestDeleteEndpointReportsBurnPending(t *testing.T) {
	h := &WorkflowsHandler{
		Deletion: &workflow.DeletionWorkflow{
			Ledger:   &fakeLedger{burnErr: &chain.TransportError{Op: "POST /tokens/burn", Err: errors.New("timeout")}},
			Registry: &fakeRegistry{},
		},
	}
	r := newTestRouter(h, true)

	w, resp := doRequest(t, r, http.MethodDelete, "/api/v1/tokens/42", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if resp.Message != "unlisted, burn pending" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

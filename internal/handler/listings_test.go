package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"

	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

// listingsRepoStub records the params handed to the listings queries. The
// embedded interface is nil so any other repository call panics loudly.
type listingsRepoStub struct {
	repository.Repository
	lastParams repository.ListListingsParams
}

func (s *listingsRepoStub) ListListings(_ context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	s.lastParams = params
	return nil, nil
}

func (s *listingsRepoStub) CountListings(_ context.Context, params repository.ListListingsParams) (int64, error) {
	return 0, nil
}

func listingsRouter(repo *listingsRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &ListingsHandler{Repo: repo}
	h.Register(r)
	return r
}

func getListings(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBrowseOrderByAllowsKnownColumns(t *testing.T) {
	repo := &listingsRepoStub{}
	r := listingsRouter(repo)

	w := getListings(t, r, "/api/v1/listings?order_by=price_e8s")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if repo.lastParams.OrderBy != "price_e8s" {
		t.Fatalf("expected order by price_e8s, got %q", repo.lastParams.OrderBy)
	}
}

func TestBrowseOrderByRejectsUnknownColumns(t *testing.T) {
	repo := &listingsRepoStub{}
	r := listingsRouter(repo)

	for _, raw := range []string{
		"(SELECT pg_sleep(10))",
		"price_e8s; DROP TABLE listings",
		"nonsense",
	} {
		w := getListings(t, r, "/api/v1/listings?order_by="+url.QueryEscape(raw))
		if w.Code != http.StatusOK {
			t.Fatalf("order_by %q: expected 200, got %d", raw, w.Code)
		}
		if repo.lastParams.OrderBy != "listed_at" {
			t.Fatalf("order_by %q: expected fallback to listed_at, got %q", raw, repo.lastParams.OrderBy)
		}
	}
}

func TestBrowseOrderByDefaultsWhenAbsent(t *testing.T) {
	repo := &listingsRepoStub{}
	r := listingsRouter(repo)

	if w := getListings(t, r, "/api/v1/listings"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if repo.lastParams.OrderBy != "listed_at" {
		t.Fatalf("expected default listed_at, got %q", repo.lastParams.OrderBy)
	}
}

func TestParseOrderMapsAliases(t *testing.T) {
	if got := parseOrder("PRICE", listingOrderColumns); got != "price_e8s" {
		t.Fatalf("expected alias to map to price_e8s, got %q", got)
	}
	if got := parseOrder("  updated_at ", listingOrderColumns); got != "updated_at" {
		t.Fatalf("expected trimmed key to map, got %q", got)
	}
	if got := parseOrder("created_at", listingOrderColumns); got != "" {
		t.Fatalf("expected unknown key to map to empty, got %q", got)
	}
}

package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ipmarket/internal/repository"
	"ipmarket/internal/service"
)

type ListingsHandler struct {
	Repo repository.Repository
	Sync *service.ListingSyncService
}

// listingOrderColumns is the sortable-column allowlist for listing queries.
var listingOrderColumns = map[string]string{
	"listed_at":  "listed_at",
	"price_e8s":  "price_e8s",
	"price":      "price_e8s",
	"updated_at": "updated_at",
	"token_id":   "token_id",
}

func (h *ListingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/listings")
	g.GET("", h.list)
	g.GET("/stats", h.stats)
	g.GET("/:token_id", h.get)
	r.POST("/api/v1/sync", h.sync)
	r.GET("/api/v1/sync/state", h.syncState)
}

// @Summary Browse listings
// @Tags listings
// @Param status query string false "listed, unlisted or sold"
// @Param seller query string false "filter by seller principal"
// @Param min_price query int false "minimum price in e8s"
// @Param max_price query int false "maximum price in e8s"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Param order_by query string false "listed_at, price_e8s, updated_at or token_id"
// @Param asc query bool false "sort ascending"
// @Success 200 {object} apiResponse
// @Router /api/v1/listings [get]
func (h *ListingsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	var status, seller *string
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	if v := strings.TrimSpace(c.Query("seller")); v != "" {
		seller = &v
	}
	orderBy := parseOrder(c.Query("order_by"), listingOrderColumns)
	if orderBy == "" {
		orderBy = "listed_at"
	}
	params := repository.ListListingsParams{
		Limit:    limit,
		Offset:   offset,
		Status:   status,
		Seller:   seller,
		MinPrice: uint64QueryPtr(c, "min_price"),
		MaxPrice: uint64QueryPtr(c, "max_price"),
		OrderBy:  orderBy,
		Asc:      boolPtr(c.Query("asc") == "true"),
	}
	items, err := h.Repo.ListListings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountListings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Listing detail
// @Tags listings
// @Param token_id path int true "token id"
// @Success 200 {object} apiResponse
// @Router /api/v1/listings/{token_id} [get]
func (h *ListingsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tokenID := parseUint64(c.Param("token_id"))
	if tokenID == 0 {
		Error(c, http.StatusBadRequest, "invalid token id", nil)
		return
	}
	item, err := h.Repo.GetListingByTokenID(c.Request.Context(), tokenID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "listing not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Marketplace stats
// @Tags listings
// @Success 200 {object} apiResponse
// @Router /api/v1/listings/stats [get]
func (h *ListingsHandler) stats(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	summary, err := h.Repo.ListingsSummary(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, summary, nil)
}

// @Summary Sync bookkeeping state
// @Tags listings
// @Success 200 {object} apiResponse
// @Router /api/v1/sync/state [get]
func (h *ListingsHandler) syncState(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	state, err := h.Repo.GetSyncState(c.Request.Context(), "listings")
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if state == nil {
		Error(c, http.StatusNotFound, "no sync has run yet", nil)
		return
	}
	Ok(c, state, nil)
}

// @Summary Trigger a listing sync pass
// @Tags listings
// @Param limit query int false "page size"
// @Param max_pages query int false "page cap for this pass"
// @Param resume query bool false "resume from the stored cursor"
// @Success 200 {object} apiResponse
// @Router /api/v1/sync [post]
func (h *ListingsHandler) sync(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusInternalServerError, "sync unavailable", nil)
		return
	}
	opts := service.SyncOptions{
		Limit:    intQuery(c, "limit", 0),
		MaxPages: intQuery(c, "max_pages", 0),
		Resume:   c.Query("resume") == "true",
	}
	result, err := h.Sync.Sync(c.Request.Context(), opts)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), map[string]any{"partial": result})
		return
	}
	Ok(c, result, nil)
}

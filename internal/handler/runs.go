package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ipmarket/internal/repository"
)

type RunsHandler struct {
	Repo repository.Repository
}

func (h *RunsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/runs")
	g.GET("", h.list)
	g.GET("/:run_id", h.get)
	r.GET("/api/v1/purchases", h.purchases)
}

// @Summary Workflow run audit log
// @Tags runs
// @Param kind query string false "listing, unlisting, purchase or deletion"
// @Param status query string false "running, done, failed or burn_pending"
// @Param token_id query int false "filter by token id"
// @Param caller query string false "filter by caller principal"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/runs [get]
func (h *RunsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	var kind, status, caller *string
	if v := strings.TrimSpace(c.Query("kind")); v != "" {
		kind = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	if v := strings.TrimSpace(c.Query("caller")); v != "" {
		caller = &v
	}
	params := repository.ListWorkflowRunsParams{
		Limit:   limit,
		Offset:  offset,
		Kind:    kind,
		Status:  status,
		TokenID: uint64QueryPtr(c, "token_id"),
		Caller:  caller,
		OrderBy: "started_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListWorkflowRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountWorkflowRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Run detail with step log
// @Tags runs
// @Param run_id path string true "run id"
// @Success 200 {object} apiResponse
// @Router /api/v1/runs/{run_id} [get]
func (h *RunsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	runID := strings.TrimSpace(c.Param("run_id"))
	if runID == "" {
		Error(c, http.StatusBadRequest, "invalid run id", nil)
		return
	}
	item, err := h.Repo.GetWorkflowRunByRunID(c.Request.Context(), runID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "run not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Purchase history
// @Tags runs
// @Param buyer query string false "filter by buyer principal"
// @Param status query string false "completed, unavailable or failed"
// @Param token_id query int false "filter by token id"
// @Success 200 {object} apiResponse
// @Router /api/v1/purchases [get]
func (h *RunsHandler) purchases(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	var buyer, status *string
	if v := strings.TrimSpace(c.Query("buyer")); v != "" {
		buyer = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	params := repository.ListPurchasesParams{
		Limit:   limit,
		Offset:  offset,
		Buyer:   buyer,
		Status:  status,
		TokenID: uint64QueryPtr(c, "token_id"),
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListPurchases(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPurchases(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/session"
	"ipmarket/internal/workflow"
)

// OwnerSource answers token ownership queries.
type OwnerSource interface {
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)
}

// WorkflowsHandler exposes the transaction workflows. Every route requires a
// session; the middleware rejects unauthenticated calls before they land
// here.
type WorkflowsHandler struct {
	Listing   *workflow.ListingWorkflow
	Unlisting *workflow.UnlistingWorkflow
	Purchase  *workflow.PurchaseWorkflow
	Deletion  *workflow.DeletionWorkflow
	Ledger    OwnerSource
}

func (h *WorkflowsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/tokens")
	g.POST("/:token_id/list", h.list)
	g.POST("/:token_id/unlist", h.unlist)
	g.POST("/:token_id/buy", h.buy)
	g.GET("/:token_id/owner", h.owner)
	g.DELETE("/:token_id", h.remove)
}

type listRequest struct {
	PriceE8s uint64 `json:"price_e8s" binding:"required"`
}

// @Summary List a token for sale
// @Tags workflows
// @Param token_id path int true "token id"
// @Param body body listRequest true "asking price in e8s"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{token_id}/list [post]
func (h *WorkflowsHandler) list(c *gin.Context) {
	if h.Listing == nil {
		Error(c, http.StatusInternalServerError, "listing workflow unavailable", nil)
		return
	}
	sess, tokenID, ok := callerAndToken(c)
	if !ok {
		return
	}
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	res, err := h.Listing.Invoke(c.Request.Context(), sess, workflow.ListingArgs{
		TokenID:  tokenID,
		PriceE8s: req.PriceE8s,
	})
	if err != nil {
		workflowError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Take a token off the market
// @Tags workflows
// @Param token_id path int true "token id"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{token_id}/unlist [post]
func (h *WorkflowsHandler) unlist(c *gin.Context) {
	if h.Unlisting == nil {
		Error(c, http.StatusInternalServerError, "unlisting workflow unavailable", nil)
		return
	}
	sess, tokenID, ok := callerAndToken(c)
	if !ok {
		return
	}
	res, err := h.Unlisting.Invoke(c.Request.Context(), sess, tokenID)
	if err != nil {
		workflowError(c, err)
		return
	}
	Ok(c, res, nil)
}

type buyRequest struct {
	PriceE8s uint64 `json:"price_e8s" binding:"required"`
}

// @Summary Buy a listed token
// @Tags workflows
// @Param token_id path int true "token id"
// @Param body body buyRequest true "quoted price in e8s"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{token_id}/buy [post]
func (h *WorkflowsHandler) buy(c *gin.Context) {
	if h.Purchase == nil {
		Error(c, http.StatusInternalServerError, "purchase workflow unavailable", nil)
		return
	}
	sess, tokenID, ok := callerAndToken(c)
	if !ok {
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	res, err := h.Purchase.Invoke(c.Request.Context(), sess, workflow.PurchaseArgs{
		TokenID:  tokenID,
		PriceE8s: req.PriceE8s,
	})
	if err != nil {
		workflowError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Permanently delete a token
// @Tags workflows
// @Param token_id path int true "token id"
// @Success 200 {object} apiResponse
// @Success 202 {object} apiResponse "unlisted, burn still pending"
// @Router /api/v1/tokens/{token_id} [delete]
func (h *WorkflowsHandler) remove(c *gin.Context) {
	if h.Deletion == nil {
		Error(c, http.StatusInternalServerError, "deletion workflow unavailable", nil)
		return
	}
	sess, tokenID, ok := callerAndToken(c)
	if !ok {
		return
	}
	res, err := h.Deletion.Invoke(c.Request.Context(), sess, tokenID)
	if err != nil {
		if res != nil && res.BurnPending {
			// The listing is gone but the token still exists. The
			// reconciler owns the retry from here.
			c.JSON(http.StatusAccepted, apiResponse{
				Code:    http.StatusAccepted,
				Message: "unlisted, burn pending",
				Data:    res,
			})
			return
		}
		workflowError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Current owner of a token
// @Tags workflows
// @Param token_id path int true "token id"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{token_id}/owner [get]
func (h *WorkflowsHandler) owner(c *gin.Context) {
	if h.Ledger == nil {
		Error(c, http.StatusInternalServerError, "ledger unavailable", nil)
		return
	}
	tokenID := parseUint64(c.Param("token_id"))
	if tokenID == 0 {
		Error(c, http.StatusBadRequest, "invalid token id", nil)
		return
	}
	owner, err := h.Ledger.OwnerOf(c.Request.Context(), tokenID)
	if err != nil {
		if chain.IsReject(err, chain.CodeNotFound) {
			Error(c, http.StatusNotFound, "token not found", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"token_id": tokenID, "owner": owner}, nil)
}

func callerAndToken(c *gin.Context) (session.Session, uint64, bool) {
	sess, ok := session.FromGin(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "no active session", nil)
		return session.Session{}, 0, false
	}
	tokenID := parseUint64(c.Param("token_id"))
	if tokenID == 0 {
		Error(c, http.StatusBadRequest, "invalid token id", nil)
		return session.Session{}, 0, false
	}
	return sess, tokenID, true
}

// workflowError maps a workflow failure onto an HTTP status: caller mistakes
// are 4xx, remote rejections are 409, and unreachable ledgers are 502.
func workflowError(c *gin.Context, err error) {
	meta := map[string]any{"class": string(workflow.ClassOf(err))}
	if code := chain.RejectCode(err); code != "" {
		meta["code"] = code
	}
	var werr *workflow.Error
	if errors.As(err, &werr) && werr.Step != "" {
		meta["step"] = werr.Step
	}
	switch workflow.ClassOf(err) {
	case workflow.FailurePrecondition:
		Error(c, http.StatusBadRequest, err.Error(), meta)
	case workflow.FailureRejected:
		status := http.StatusConflict
		if chain.IsReject(err, chain.CodeUnauthorized) {
			status = http.StatusForbidden
		}
		if chain.IsReject(err, chain.CodeNotFound) {
			status = http.StatusNotFound
		}
		Error(c, status, err.Error(), meta)
	default:
		Error(c, http.StatusBadGateway, err.Error(), meta)
	}
}

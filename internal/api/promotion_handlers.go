package api

import (
	"net/http"

	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// promotionRequest is the body of validate and apply. Products is accepted
// and ignored.
type promotionRequest struct {
	Code       string          `json:"code" binding:"required"`
	OrderValue decimal.Decimal `json:"orderValue"`
	Products   interface{}     `json:"products,omitempty"`
	UserID     string          `json:"userId"`
}

// respondPromotionError marks ineligible codes with valid:false
func (h *Handler) respondPromotionError(c *gin.Context, err error) {
	if service.KindOf(err) == service.KindValidation {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "valid": false, "message": err.Error()})
		return
	}
	h.respondError(c, err)
}

func (h *Handler) validatePromotion(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req promotionRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.promotions.Validate(c.Request.Context(), caller, req.Code, req.OrderValue)
	if err != nil {
		h.respondPromotionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"valid":   true,
		"message": "Promotion code is valid",
		"data":    res,
	})
}

func (h *Handler) applyPromotion(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req promotionRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := uuid.Nil
	if req.UserID != "" {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			badRequest(c, "invalid user id")
			return
		}
		userID = parsed
	}

	res, err := h.promotions.Apply(c.Request.Context(), caller, userID, req.Code, req.OrderValue)
	if err != nil {
		h.respondPromotionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"valid":   true,
		"message": "Promotion code applied",
		"data":    res,
	})
}

func (h *Handler) createPromotion(c *gin.Context) {
	var req service.CreatePromotionRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.promotions.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Promotion created", "data": p})
}

func (h *Handler) listPromotions(c *gin.Context) {
	page := parsePaginationParams(c)

	promotions, total, err := h.promotions.List(c.Request.Context(), page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": promotions, "meta": pageMeta(page, total)})
}

func (h *Handler) getPromotion(c *gin.Context) {
	id, ok := uuidParam(c, "id", "promotion")
	if !ok {
		return
	}

	p, err := h.promotions.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

func (h *Handler) deactivatePromotion(c *gin.Context) {
	id, ok := uuidParam(c, "id", "promotion")
	if !ok {
		return
	}

	p, err := h.promotions.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Promotion deactivated", "data": p})
}

func (h *Handler) deletePromotion(c *gin.Context) {
	id, ok := uuidParam(c, "id", "promotion")
	if !ok {
		return
	}

	if err := h.promotions.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Promotion deleted"})
}

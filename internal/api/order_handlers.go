package api

import (
	"net/http"

	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

type refundRequest struct {
	Reason string `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type fulfillmentRequest struct {
	Step string `json:"step" binding:"required"`
}

// createOrder handles checkout
func (h *Handler) createOrder(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req service.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyHeader)

	res, err := h.orders.Checkout(c.Request.Context(), caller, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if res.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"order":   res.Order,
	})
}

func (h *Handler) getMyOrders(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	page := parsePaginationParams(c)

	orders, total, err := h.orders.GetMine(c.Request.Context(), caller, page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders, "meta": pageMeta(page, total)})
}

func (h *Handler) getOrder(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), caller, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": order})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), caller, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order cancelled successfully", "data": order})
}

func (h *Handler) requestRefund(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}
	var req refundRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	refund, err := h.orders.RequestRefund(c.Request.Context(), caller, id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Refund requested", "data": refund})
}

func (h *Handler) listAllOrders(c *gin.Context) {
	page := parsePaginationParams(c)

	orders, total, err := h.orders.ListAll(c.Request.Context(), c.Query("status"), page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders, "meta": pageMeta(page, total)})
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order status updated", "data": order})
}

func (h *Handler) updateFulfillment(c *gin.Context) {
	id, ok := uuidParam(c, "id", "order")
	if !ok {
		return
	}
	var req fulfillmentRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateFulfillment(c.Request.Context(), id, req.Step)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Fulfillment updated", "data": order})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *Handler) getCart(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	items, err := h.carts.GetCart(c.Request.Context(), caller.CallerID())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": items})
}

func (h *Handler) getCartCount(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	n, err := h.carts.Count(c.Request.Context(), caller.CallerID())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"count": n}})
}

func (h *Handler) addCartItem(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req addCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.carts.AddItem(c.Request.Context(), caller.CallerID(), req.ProductID, req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Item added to cart"})
}

func (h *Handler) updateCartItem(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "productId", "product")
	if !ok {
		return
	}
	var req updateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.carts.UpdateItem(c.Request.Context(), caller.CallerID(), productID, req.Quantity); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cart item updated"})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "productId", "product")
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(c.Request.Context(), caller.CallerID(), productID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item removed from cart"})
}

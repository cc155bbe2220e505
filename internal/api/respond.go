package api

import (
	"net/http"
	"strconv"

	"checkout-service/internal/auth"
	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindConflict:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {success:false, message}. Uncategorized
// failures echo the underlying message with a 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(service.KindOf(err))
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
}

// callerOrAbort returns the authenticated caller or writes a 401
func callerOrAbort(c *gin.Context) (auth.Caller, bool) {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authentication required"})
		return nil, false
	}
	return caller, true
}

// uuidParam parses a path parameter, writing a 400 when it is malformed
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+label+" id")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the body, writing a 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func parsePaginationParams(c *gin.Context) service.PageRequest {
	page := service.PageRequest{Page: defaultPage, Limit: defaultLimit}

	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page.Page = p
	}
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 {
		page.Limit = l
		if page.Limit > maxLimit {
			page.Limit = maxLimit
		}
	}
	return page
}

func pageMeta(page service.PageRequest, total int) gin.H {
	totalPages := (total + page.Limit - 1) / page.Limit
	return gin.H{
		"page":        page.Page,
		"limit":       page.Limit,
		"total":       total,
		"total_pages": totalPages,
		"has_more":    page.Page < totalPages,
	}
}

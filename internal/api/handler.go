package api

import (
	"context"
	"net/http"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService is the cart API the handlers depend on
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) ([]models.CartItemView, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

// PromotionService is the promotion API the handlers depend on
type PromotionService interface {
	Validate(ctx context.Context, caller auth.Caller, code string, orderValue decimal.Decimal) (*service.PromotionResult, error)
	Apply(ctx context.Context, caller auth.Caller, userID uuid.UUID, code string, orderValue decimal.Decimal) (*service.PromotionResult, error)
	Create(ctx context.Context, req *service.CreatePromotionRequest) (*models.Promotion, error)
	List(ctx context.Context, page service.PageRequest) ([]models.Promotion, int, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrderService is the order API the handlers depend on
type OrderService interface {
	Checkout(ctx context.Context, caller auth.Caller, req *service.CheckoutRequest) (*service.CheckoutResult, error)
	Get(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error)
	GetMine(ctx context.Context, caller auth.Caller, page service.PageRequest) ([]models.Order, int, error)
	Cancel(ctx context.Context, caller auth.Caller, id uuid.UUID) (*models.Order, error)
	RequestRefund(ctx context.Context, caller auth.Caller, id uuid.UUID, reason string) (*models.RefundRequest, error)
	ListAll(ctx context.Context, status string, page service.PageRequest) ([]models.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
	UpdateFulfillment(ctx context.Context, id uuid.UUID, step string) (*models.Order, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	carts      CartService
	promotions PromotionService
	orders     OrderService
	authn      *auth.Authenticator
	limiter    *auth.RateLimiter
	probes     map[string]Pinger
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler. A nil limiter disables rate
// limiting on the promotion endpoints.
func NewHandler(
	carts CartService,
	promotions PromotionService,
	orders OrderService,
	authn *auth.Authenticator,
	limiter *auth.RateLimiter,
) *Handler {
	return &Handler{
		carts:      carts,
		promotions: promotions,
		orders:     orders,
		authn:      authn,
		limiter:    limiter,
		probes:     map[string]Pinger{},
		logger:     util.GetLogger(),
	}
}

// AddReadinessProbe registers a dependency that /ready must be able to reach
func (h *Handler) AddReadinessProbe(name string, p Pinger) {
	h.probes[name] = p
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(h.logger))
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := router.Group("/", h.authn.Middleware())

	cart := authed.Group("/cart")
	{
		cart.GET("", h.getCart)
		cart.GET("/count", h.getCartCount)
		cart.POST("/items", h.addCartItem)
		cart.PATCH("/items/:productId", h.updateCartItem)
		cart.DELETE("/items/:productId", h.removeCartItem)
	}

	promotions := authed.Group("/promotions")
	if h.limiter != nil {
		promotions.Use(h.limiter.Middleware())
	}
	{
		promotions.POST("/validate", h.validatePromotion)
		promotions.POST("/apply", h.applyPromotion)
	}

	orders := authed.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("/mine", h.getMyOrders)
		orders.GET("/:id", h.getOrder)
		orders.PATCH("/:id/cancel", h.cancelOrder)
		orders.POST("/:id/refund", h.requestRefund)
	}

	admin := authed.Group("/admin", auth.RequireAdmin())
	{
		admin.POST("/promotions", h.createPromotion)
		admin.GET("/promotions", h.listPromotions)
		admin.GET("/promotions/:id", h.getPromotion)
		admin.PATCH("/promotions/:id/deactivate", h.deactivatePromotion)
		admin.DELETE("/promotions/:id", h.deletePromotion)

		admin.GET("/orders", h.listAllOrders)
		admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		admin.PATCH("/orders/:id/fulfillment", h.updateFulfillment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every registered dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.probes {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"errors": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created at checkout",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of orders cancelled by their owner",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of administrative order status changes",
	}, []string{"to"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of the checkout pipeline",
		Buckets: prometheus.DefBuckets,
	})

	PromotionEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promotion_evaluations_total",
		Help: "Total number of promotion evaluations",
	}, []string{"result"})

	PromotionDiscountAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "promotion_discount_amount",
		Help:    "Discount granted per successful promotion evaluation",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	StockRestockedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_restocked_total",
		Help: "Total number of units returned to stock after cancellation",
	})

	ProductCacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_cache_results_total",
		Help: "Product view cache lookups by result",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionKind is the discount rule of a promotion code
type PromotionKind string

const (
	PromotionPercentage   PromotionKind = "percentage"
	PromotionFixedAmount  PromotionKind = "fixed_amount"
	PromotionFreeShipping PromotionKind = "free_shipping"
	PromotionBuyXGetY     PromotionKind = "buy_x_get_y"
)

// DefaultMaxUsagePerUser applies when a promotion does not set its own cap
const DefaultMaxUsagePerUser = 1

// Promotion is an administrator-defined discount rule keyed by a unique code
type Promotion struct {
	ID                uuid.UUID           `db:"id" json:"id"`
	Code              string              `db:"code" json:"code"`
	Description       string              `db:"description" json:"description"`
	Kind              PromotionKind       `db:"kind" json:"discountType"`
	Value             decimal.Decimal     `db:"value" json:"discountValue"`
	MaxDiscount       decimal.NullDecimal `db:"max_discount" json:"maxDiscountAmount"`
	MinimumOrderValue decimal.Decimal     `db:"minimum_order_value" json:"minimumOrderValue"`
	StartDate         time.Time           `db:"start_date" json:"startDate"`
	EndDate           time.Time           `db:"end_date" json:"endDate"`
	UsageLimit        *int                `db:"usage_limit" json:"usageLimit"`
	UsedCount         int                 `db:"used_count" json:"usedCount"`
	MaxUsagePerUser   int                 `db:"max_usage_per_user" json:"maxUsagePerUser"`
	Active            bool                `db:"active" json:"isActive"`
	CreatedAt         time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updatedAt"`
}

// PromotionUsage is one entry of a promotion's usage ledger
type PromotionUsage struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	PromotionID     uuid.UUID       `db:"promotion_id" json:"promotionId"`
	UserID          uuid.UUID       `db:"user_id" json:"userId"`
	OrderID         *uuid.UUID      `db:"order_id" json:"orderId,omitempty"`
	UsedAt          time.Time       `db:"used_at" json:"usedAt"`
	OrderValue      decimal.Decimal `db:"order_value" json:"orderValue"`
	DiscountApplied decimal.Decimal `db:"discount_applied" json:"discountApplied"`
}

// NormalizeCode returns the canonical lookup key of a promotion code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PerUserLimit returns the effective per-user usage cap
func (p *Promotion) PerUserLimit() int {
	if p.MaxUsagePerUser <= 0 {
		return DefaultMaxUsagePerUser
	}
	return p.MaxUsagePerUser
}

package service

import (
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluation is the outcome of checking one promotion against one order value
type Evaluation struct {
	Valid    bool
	Discount decimal.Decimal
	Message  string
}

func ineligible(format string, args ...interface{}) Evaluation {
	return Evaluation{Discount: decimal.Zero, Message: fmt.Sprintf(format, args...)}
}

// EvaluatePromotion decides whether p applies to subtotal for a caller who
// has already used it priorUses times, and computes the discount.
//
// The validity window is inclusive at both ends, as is the minimum order
// value. Kinds without a discount rule yield a valid zero discount.
func EvaluatePromotion(p *models.Promotion, subtotal decimal.Decimal, priorUses int, now time.Time) Evaluation {
	switch {
	case !p.Active:
		return ineligible("promotion code is not active")
	case now.Before(p.StartDate):
		return ineligible("promotion code is not yet valid")
	case now.After(p.EndDate):
		return ineligible("promotion code has expired")
	case p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit:
		return ineligible("promotion code usage limit reached")
	case subtotal.LessThan(p.MinimumOrderValue):
		return ineligible("minimum order value of %s required", p.MinimumOrderValue.StringFixed(2))
	case priorUses >= p.PerUserLimit():
		return ineligible("you have already used this promotion code")
	}

	discount := decimal.Zero
	switch p.Kind {
	case models.PromotionPercentage:
		discount = subtotal.Mul(p.Value).Div(hundred)
		if p.MaxDiscount.Valid && discount.GreaterThan(p.MaxDiscount.Decimal) {
			discount = p.MaxDiscount.Decimal
		}
	case models.PromotionFixedAmount:
		discount = decimal.Min(p.Value, subtotal)
	}

	discount = discount.Round(2)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return Evaluation{Valid: true, Discount: discount, Message: "promotion code applied"}
}

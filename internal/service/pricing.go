package service

import (
	"checkout-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Price snapshots each cart line against the authoritative product records.
// Lines whose product no longer exists are dropped. The subtotal is summed
// exactly and rounded to cents once at the end. Zero surviving lines yields
// ErrCartEmpty.
func Price(lines []models.CartLine, products map[uuid.UUID]models.Product) ([]models.OrderLine, decimal.Decimal, error) {
	items := make([]models.OrderLine, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		p, ok := products[line.ProductID]
		if !ok || line.Quantity < 1 {
			continue
		}
		items = append(items, models.OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if len(items) == 0 {
		return nil, decimal.Zero, ErrCartEmpty
	}
	return items, subtotal.Round(2), nil
}

func productIDs(lines []models.CartLine) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}

func indexProducts(products []models.Product) map[uuid.UUID]models.Product {
	m := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

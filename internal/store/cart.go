package store

import (
	"context"
	"fmt"

	"checkout-service/internal/models"

	"github.com/google/uuid"
)

// GetCartLines returns the user's cart lines, oldest first
func (s *Store) GetCartLines(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := s.db.SelectContext(ctx, &lines,
		"SELECT product_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY added_at, product_id", userID)
	if err != nil {
		return nil, fmt.Errorf("get cart lines: %w", err)
	}
	return lines, nil
}

// CountCartItems returns the sum of quantities in the user's cart
func (s *Store) CountCartItems(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return count, nil
}

// AddCartItem adds quantity of a product, merging into an existing line
func (s *Store) AddCartItem(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// SetCartItemQuantity replaces the quantity of an existing line
func (s *Store) SetCartItemQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND product_id = $3",
		quantity, userID, productID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

// RemoveCartItem deletes a line from the cart
func (s *Store) RemoveCartItem(ctx context.Context, userID, productID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

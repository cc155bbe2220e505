package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const promotionColumns = `id, code, description, kind, value, max_discount, minimum_order_value,
	start_date, end_date, usage_limit, used_count, max_usage_per_user, active, created_at, updated_at`

// CreatePromotion inserts a promotion. The code must already be normalized.
func (s *Store) CreatePromotion(ctx context.Context, p *models.Promotion) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO promotions (id, code, description, kind, value, max_discount, minimum_order_value,
			start_date, end_date, usage_limit, used_count, max_usage_per_user, active, created_at, updated_at)
		VALUES (:id, :code, :description, :kind, :value, :max_discount, :minimum_order_value,
			:start_date, :end_date, :usage_limit, :used_count, :max_usage_per_user, :active, :created_at, :updated_at)`,
		p)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

// GetPromotionByCode looks a promotion up by its canonical code
func (s *Store) GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	return s.getPromotion(ctx, "code", code)
}

// GetPromotionByID retrieves a promotion by ID
func (s *Store) GetPromotionByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	return s.getPromotion(ctx, "id", id)
}

func (s *Store) getPromotion(ctx context.Context, column string, value interface{}) (*models.Promotion, error) {
	var p models.Promotion
	err := s.db.GetContext(ctx, &p,
		"SELECT "+promotionColumns+" FROM promotions WHERE "+column+" = $1", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	return &p, nil
}

// ListPromotions returns one page of promotions, newest first, and the total count
func (s *Store) ListPromotions(ctx context.Context, limit, offset int) ([]models.Promotion, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM promotions"); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	promotions := []models.Promotion{}
	err := s.db.SelectContext(ctx, &promotions,
		"SELECT "+promotionColumns+" FROM promotions ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	return promotions, total, nil
}

// DeactivatePromotion clears the active flag
func (s *Store) DeactivatePromotion(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var p models.Promotion
	err := s.db.GetContext(ctx, &p, `
		UPDATE promotions SET active = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+promotionColumns, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deactivate promotion: %w", err)
	}
	return &p, nil
}

// DeletePromotion removes a promotion that was never used
func (s *Store) DeletePromotion(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var used bool
	err = tx.GetContext(ctx, &used,
		"SELECT EXISTS(SELECT 1 FROM promotion_usages WHERE promotion_id = $1)", id)
	if err != nil {
		return fmt.Errorf("check promotion usage: %w", err)
	}
	if used {
		return ErrPromotionInUse
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM promotions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	if err := expectOneRow(res, ErrNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

// CountUserPromotionUsages counts the user's recorded uses of a promotion
func (s *Store) CountUserPromotionUsages(ctx context.Context, promotionID, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = $1 AND user_id = $2",
		promotionID, userID)
	if err != nil {
		return 0, fmt.Errorf("count promotion usages: %w", err)
	}
	return n, nil
}

// RecordPromotionUsage appends a ledger entry and bumps the usage counter
func (s *Store) RecordPromotionUsage(ctx context.Context, u *models.PromotionUsage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := recordUsage(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit()
}

func recordUsage(ctx context.Context, tx *sqlx.Tx, u *models.PromotionUsage) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO promotion_usages (id, promotion_id, user_id, order_id, used_at, order_value, discount_applied)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.PromotionID, u.UserID, u.OrderID, u.UsedAt, u.OrderValue, u.DiscountApplied)
	if err != nil {
		return fmt.Errorf("insert promotion usage: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE promotions SET used_count = used_count + 1, updated_at = NOW() WHERE id = $1", u.PromotionID)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	return expectOneRow(res, ErrNotFound)
}

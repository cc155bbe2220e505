package service

import (
	"context"
	"errors"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PromotionService validates, applies and administers promotion codes
type PromotionService struct {
	store     PromotionStore
	publisher EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewPromotionService creates a new promotion service
func NewPromotionService(store PromotionStore, publisher EventPublisher) *PromotionService {
	return &PromotionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

// PromotionResult is the payload of a successful validate or apply
type PromotionResult struct {
	PromotionID    uuid.UUID         `json:"promotionId"`
	DiscountAmount decimal.Decimal   `json:"discountAmount"`
	Promotion      *models.Promotion `json:"promotion"`
	FinalTotal     *decimal.Decimal  `json:"finalTotal,omitempty"`
}

// Validate checks code against orderValue for caller without recording anything
func (s *PromotionService) Validate(ctx context.Context, caller auth.Caller, code string, orderValue decimal.Decimal) (*PromotionResult, error) {
	ctx, span := util.StartSpan(ctx, "PromotionService.Validate")
	defer span.End()

	p, ev, err := s.evaluate(ctx, caller.CallerID(), code, orderValue)
	if err != nil {
		return nil, err
	}
	if !ev.Valid {
		return nil, Validation(ev.Message)
	}

	return &PromotionResult{PromotionID: p.ID, DiscountAmount: ev.Discount, Promotion: p}, nil
}

// Apply validates code for userID and records one usage. Users may only
// apply codes for themselves; admins may apply on behalf of any user.
func (s *PromotionService) Apply(ctx context.Context, caller auth.Caller, userID uuid.UUID, code string, orderValue decimal.Decimal) (*PromotionResult, error) {
	ctx, span := util.StartSpan(ctx, "PromotionService.Apply")
	defer span.End()

	if userID == uuid.Nil {
		userID = caller.CallerID()
	}
	if !auth.IsAdmin(caller) && userID != caller.CallerID() {
		return nil, Forbidden("promotions can only be applied to your own account")
	}

	p, ev, err := s.evaluate(ctx, userID, code, orderValue)
	if err != nil {
		return nil, err
	}
	if !ev.Valid {
		return nil, Validation(ev.Message)
	}

	usage := &models.PromotionUsage{
		ID:              uuid.New(),
		PromotionID:     p.ID,
		UserID:          userID,
		UsedAt:          s.now(),
		OrderValue:      orderValue,
		DiscountApplied: ev.Discount,
	}
	if err := s.store.RecordPromotionUsage(ctx, usage); err != nil {
		util.RecordError(span, err)
		return nil, Internal(err)
	}

	event := &models.PromotionAppliedEvent{
		BaseEvent:      models.NewBaseEvent(models.EventTypePromotionApplied),
		PromotionID:    p.ID,
		Code:           p.Code,
		UserID:         userID,
		OrderValue:     orderValue,
		DiscountAmount: ev.Discount,
	}
	if err := s.publisher.PublishPromotionApplied(ctx, event); err != nil {
		s.logger.Error("Failed to publish PromotionApplied event", zap.String("code", p.Code), zap.Error(err))
	}

	finalTotal := orderValue.Sub(ev.Discount)
	p.UsedCount++
	return &PromotionResult{
		PromotionID:    p.ID,
		DiscountAmount: ev.Discount,
		Promotion:      p,
		FinalTotal:     &finalTotal,
	}, nil
}

// Quote evaluates code for checkout. Every failure, including store errors,
// yields a nil promotion and a zero discount so checkout is never blocked
// by a bad code. A valid code whose discount rounds to zero is not applied.
func (s *PromotionService) Quote(ctx context.Context, userID uuid.UUID, code string, subtotal decimal.Decimal) (*models.Promotion, decimal.Decimal) {
	ctx, span := util.StartSpan(ctx, "PromotionService.Quote")
	defer span.End()

	p, ev, err := s.evaluate(ctx, userID, code, subtotal)
	if err != nil {
		s.logger.Info("Promotion ignored at checkout", zap.String("code", code), zap.Error(err))
		return nil, decimal.Zero
	}
	if !ev.Valid || !ev.Discount.IsPositive() {
		s.logger.Info("Promotion not applied at checkout",
			zap.String("code", p.Code),
			zap.String("reason", ev.Message))
		return nil, decimal.Zero
	}
	return p, ev.Discount
}

func (s *PromotionService) evaluate(ctx context.Context, userID uuid.UUID, code string, orderValue decimal.Decimal) (*models.Promotion, Evaluation, error) {
	code = models.NormalizeCode(code)
	if code == "" {
		return nil, Evaluation{}, Validation("promotion code is required")
	}
	if orderValue.IsNegative() {
		return nil, Evaluation{}, Validation("order value must not be negative")
	}

	p, err := s.store.GetPromotionByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		util.PromotionEvaluationsTotal.WithLabelValues("not_found").Inc()
		return nil, Evaluation{}, ErrPromotionNotFound
	}
	if err != nil {
		return nil, Evaluation{}, Internal(err)
	}

	prior, err := s.store.CountUserPromotionUsages(ctx, p.ID, userID)
	if err != nil {
		return nil, Evaluation{}, Internal(err)
	}

	ev := EvaluatePromotion(p, orderValue, prior, s.now())
	if ev.Valid {
		util.PromotionEvaluationsTotal.WithLabelValues("valid").Inc()
		f, _ := ev.Discount.Float64()
		util.PromotionDiscountAmount.Observe(f)
	} else {
		util.PromotionEvaluationsTotal.WithLabelValues("ineligible").Inc()
	}
	return p, ev, nil
}

// CreatePromotionRequest is the admin payload for a new promotion
type CreatePromotionRequest struct {
	Code              string               `json:"code" binding:"required"`
	Description       string               `json:"description"`
	DiscountType      models.PromotionKind `json:"discountType" binding:"required"`
	DiscountValue     decimal.Decimal      `json:"discountValue"`
	MaxDiscountAmount decimal.NullDecimal  `json:"maxDiscountAmount"`
	MinimumOrderValue decimal.Decimal      `json:"minimumOrderValue"`
	StartDate         *time.Time           `json:"startDate"`
	EndDate           time.Time            `json:"endDate" binding:"required"`
	UsageLimit        *int                 `json:"usageLimit"`
	MaxUsagePerUser   int                  `json:"maxUsagePerUser"`
	IsActive          *bool                `json:"isActive"`
}

// Create stores a new promotion under its normalized code
func (s *PromotionService) Create(ctx context.Context, req *CreatePromotionRequest) (*models.Promotion, error) {
	ctx, span := util.StartSpan(ctx, "PromotionService.Create")
	defer span.End()

	now := s.now()
	start := now
	if req.StartDate != nil {
		start = *req.StartDate
	}

	code := models.NormalizeCode(req.Code)
	switch {
	case code == "":
		return nil, Validation("promotion code is required")
	case !validKind(req.DiscountType):
		return nil, Validation("invalid discount type %q", req.DiscountType)
	case req.DiscountValue.IsNegative():
		return nil, Validation("discount value must not be negative")
	case req.DiscountType == models.PromotionPercentage && req.DiscountValue.GreaterThan(hundred):
		return nil, Validation("percentage discount cannot exceed 100")
	case req.MaxDiscountAmount.Valid && req.MaxDiscountAmount.Decimal.IsNegative():
		return nil, Validation("maximum discount must not be negative")
	case req.MinimumOrderValue.IsNegative():
		return nil, Validation("minimum order value must not be negative")
	case req.EndDate.Before(start):
		return nil, Validation("end date must not be before start date")
	case req.UsageLimit != nil && *req.UsageLimit < 0:
		return nil, Validation("usage limit must not be negative")
	case req.MaxUsagePerUser < 0:
		return nil, Validation("max usage per user must not be negative")
	}

	perUser := req.MaxUsagePerUser
	if perUser == 0 {
		perUser = models.DefaultMaxUsagePerUser
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	p := &models.Promotion{
		ID:                uuid.New(),
		Code:              code,
		Description:       req.Description,
		Kind:              req.DiscountType,
		Value:             req.DiscountValue,
		MaxDiscount:       req.MaxDiscountAmount,
		MinimumOrderValue: req.MinimumOrderValue,
		StartDate:         start,
		EndDate:           req.EndDate,
		UsageLimit:        req.UsageLimit,
		MaxUsagePerUser:   perUser,
		Active:            active,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.CreatePromotion(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, Conflict("promotion code %s already exists", code)
		}
		util.RecordError(span, err)
		return nil, Internal(err)
	}

	s.logger.Info("Promotion created", zap.String("code", p.Code), zap.String("kind", string(p.Kind)))
	return p, nil
}

func validKind(k models.PromotionKind) bool {
	switch k {
	case models.PromotionPercentage, models.PromotionFixedAmount, models.PromotionFreeShipping, models.PromotionBuyXGetY:
		return true
	}
	return false
}

// List returns one page of promotions and the total count
func (s *PromotionService) List(ctx context.Context, page PageRequest) ([]models.Promotion, int, error) {
	promotions, total, err := s.store.ListPromotions(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, Internal(err)
	}
	return promotions, total, nil
}

// Get retrieves a promotion by ID
func (s *PromotionService) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	p, err := s.store.GetPromotionByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPromotionNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}
	return p, nil
}

// Deactivate stops a promotion from being applied
func (s *PromotionService) Deactivate(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	p, err := s.store.DeactivatePromotion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPromotionNotFound
	}
	if err != nil {
		return nil, Internal(err)
	}

	s.logger.Info("Promotion deactivated", zap.String("code", p.Code))
	return p, nil
}

// Delete removes a promotion that has never been used
func (s *PromotionService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeletePromotion(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("Promotion deleted", zap.String("promotion_id", id.String()))
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrPromotionNotFound
	case errors.Is(err, store.ErrPromotionInUse):
		return Conflict("cannot delete a promotion that has been used; deactivate it instead")
	default:
		return Internal(err)
	}
}

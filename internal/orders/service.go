package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
)

// CreateParams describes a new conditional order.
type CreateParams struct {
	UserID      uuid.UUID
	Symbol      string
	AssetType   enums.AssetType
	Direction   enums.OrderDirection
	Quantity    decimal.Decimal
	TargetPrice decimal.Decimal
	ExpiresAt   *time.Time
}

// Service defines conditional order operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.ConditionalOrder, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.ConditionalOrder, error)
	List(ctx context.Context, userID uuid.UUID, status *enums.ConditionalOrderStatus, limit int) ([]models.ConditionalOrder, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the conditional order service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.ConditionalOrder, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))
	if symbol == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "symbol required")
	}
	if !params.AssetType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid asset type")
	}
	if !params.Direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order direction")
	}
	if params.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if params.TargetPrice.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target price must be positive")
	}
	if params.ExpiresAt != nil && !params.ExpiresAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	order := &models.ConditionalOrder{
		UserID:      params.UserID,
		Symbol:      symbol,
		AssetType:   params.AssetType,
		Direction:   params.Direction,
		Quantity:    params.Quantity,
		TargetPrice: params.TargetPrice,
		Status:      enums.ConditionalOrderStatusPending,
		ExpiresAt:   params.ExpiresAt,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conditional order")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.ConditionalOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, status *enums.ConditionalOrderStatus, limit int) ([]models.ConditionalOrder, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	orders, err := s.repo.ListByUser(ctx, userID, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) error {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	affected, err := s.repo.Cancel(ctx, userID, orderID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	if affected == 0 {
		// Either the order does not exist for this user or it already
		// reached a terminal state.
		if _, getErr := s.Get(ctx, userID, orderID); getErr != nil {
			return getErr
		}
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "order is no longer pending")
	}
	return nil
}

package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// Repository exposes persistence helpers for conditional orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.ConditionalOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ConditionalOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *enums.ConditionalOrderStatus, limit int) ([]models.ConditionalOrder, error)
	ListPending(ctx context.Context, now time.Time) ([]models.ConditionalOrder, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID, now time.Time) (int64, error)
	MarkExecuted(ctx context.Context, orderID uuid.UUID, price decimal.Decimal, transactionID uuid.UUID, now time.Time) (int64, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string, now time.Time) (int64, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.ConditionalOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.ConditionalOrder, error) {
	var order models.ConditionalOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, status *enums.ConditionalOrderStatus, limit int) ([]models.ConditionalOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var orders []models.ConditionalOrder
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPending returns pending orders that have not expired, oldest first
// so long-waiting orders are evaluated ahead of fresh ones.
func (r *repositoryImpl) ListPending(ctx context.Context, now time.Time) ([]models.ConditionalOrder, error) {
	var orders []models.ConditionalOrder
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ConditionalOrderStatusPending).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repositoryImpl) Cancel(ctx context.Context, userID, orderID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConditionalOrder{}).
		Where("id = ? AND user_id = ? AND status = ?", orderID, userID, enums.ConditionalOrderStatusPending).
		Updates(map[string]any{
			"status":     enums.ConditionalOrderStatusCancelled,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkExecuted(ctx context.Context, orderID uuid.UUID, price decimal.Decimal, transactionID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConditionalOrder{}).
		Where("id = ? AND status = ?", orderID, enums.ConditionalOrderStatusPending).
		Updates(map[string]any{
			"status":         enums.ConditionalOrderStatusExecuted,
			"executed_price": price,
			"transaction_id": transactionID,
			"executed_at":    now,
			"updated_at":     now,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConditionalOrder{}).
		Where("id = ? AND status = ?", orderID, enums.ConditionalOrderStatusPending).
		Updates(map[string]any{
			"status":         enums.ConditionalOrderStatusFailed,
			"failure_reason": reason,
			"updated_at":     now,
		})
	return result.RowsAffected, result.Error
}

// MarkExpired sweeps pending orders whose expiry has passed.
func (r *repositoryImpl) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConditionalOrder{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.ConditionalOrderStatusPending, now).
		Updates(map[string]any{
			"status":     enums.ConditionalOrderStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

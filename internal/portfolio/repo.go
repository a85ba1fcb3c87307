package portfolio

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
)

// Repository exposes persistence helpers for positions and the trade ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetPositionForUpdate(ctx context.Context, userID uuid.UUID, symbol string) (*models.Position, error)
	CreatePosition(ctx context.Context, position *models.Position) error
	SavePosition(ctx context.Context, position *models.Position) error
	ListPositions(ctx context.Context, userID uuid.UUID) ([]models.Position, error)
	CreateTransaction(ctx context.Context, transaction *models.LedgerTransaction) error
	SetTransactionAllocation(ctx context.Context, transactionID, allocationID uuid.UUID) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a portfolio repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// GetPositionForUpdate locks the position row for the duration of the
// enclosing transaction so concurrent trades on the same holding
// serialize instead of clobbering each other.
func (r *repositoryImpl) GetPositionForUpdate(ctx context.Context, userID uuid.UUID, symbol string) (*models.Position, error) {
	query := r.db.WithContext(ctx)
	// sqlite has no row locks; its single-writer model already
	// serializes trades.
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var position models.Position
	err := query.
		Where("user_id = ? AND symbol = ?", userID, symbol).
		First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *repositoryImpl) CreatePosition(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *repositoryImpl) SavePosition(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Save(position).Error
}

func (r *repositoryImpl) ListPositions(ctx context.Context, userID uuid.UUID) ([]models.Position, error) {
	var positions []models.Position
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND quantity > 0", userID).
		Order("symbol ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repositoryImpl) CreateTransaction(ctx context.Context, transaction *models.LedgerTransaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repositoryImpl) SetTransactionAllocation(ctx context.Context, transactionID, allocationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("id = ?", transactionID).
		UpdateColumn("allocation_id", allocationID).Error
}

func (r *repositoryImpl) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var transactions []models.LedgerTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("executed_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	"github.com/givefolio/givefolio-backend/pkg/pagination"
)

// Repository exposes persistence helpers for allocation records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.AllocationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AllocationRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AllocationRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.AllocationStatus, now time.Time) (int64, error)
	UserTotals(ctx context.Context, userID uuid.UUID) (*UserTotals, error)
	PlatformTotals(ctx context.Context) (*PlatformTotals, error)
	TopCategories(ctx context.Context, userID uuid.UUID, limit int) ([]CategoryTotal, error)
	MonthlyTotals(ctx context.Context, userID uuid.UUID, since time.Time) ([]MonthlyTotal, error)
}

// UserTotals aggregates a user's lifetime giving.
type UserTotals struct {
	TotalDonated      decimal.Decimal
	AllocationCount   int64
	AveragePercentage decimal.Decimal
}

// PlatformTotals aggregates giving across every user.
type PlatformTotals struct {
	TotalDonated      decimal.Decimal
	DonorCount        int64
	AllocationCount   int64
	AveragePercentage decimal.Decimal
}

// CategoryTotal is a per-category giving aggregate.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlyTotal is a per-month giving aggregate.
type MonthlyTotal struct {
	Month  time.Time       `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an allocation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, record *models.AllocationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.AllocationRecord, error) {
	var record models.AllocationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AllocationRecord, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var records []models.AllocationRecord
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateStatus advances an allocation through its lifecycle. The from
// status guards against concurrent transitions; zero rows affected means
// the record was not in the expected state.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.AllocationStatus, now time.Time) (int64, error) {
	updates := map[string]any{"status": to, "updated_at": now}
	switch to {
	case enums.AllocationStatusTransferred:
		updates["transferred_at"] = now
	case enums.AllocationStatusConfirmed:
		updates["confirmed_at"] = now
	}
	result := r.db.WithContext(ctx).
		Model(&models.AllocationRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) UserTotals(ctx context.Context, userID uuid.UUID) (*UserTotals, error) {
	var row struct {
		TotalDonated      decimal.Decimal
		AllocationCount   int64
		AveragePercentage decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.AllocationRecord{}).
		Select("COALESCE(SUM(amount), 0) AS total_donated, COUNT(*) AS allocation_count, COALESCE(AVG(applied_percentage), 0) AS average_percentage").
		Where("user_id = ? AND status <> ?", userID, enums.AllocationStatusFailed).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &UserTotals{
		TotalDonated:      row.TotalDonated,
		AllocationCount:   row.AllocationCount,
		AveragePercentage: row.AveragePercentage,
	}, nil
}

func (r *repositoryImpl) PlatformTotals(ctx context.Context) (*PlatformTotals, error) {
	var row struct {
		TotalDonated      decimal.Decimal
		DonorCount        int64
		AllocationCount   int64
		AveragePercentage decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.AllocationRecord{}).
		Select("COALESCE(SUM(amount), 0) AS total_donated, COUNT(DISTINCT user_id) AS donor_count, COUNT(*) AS allocation_count, COALESCE(AVG(applied_percentage), 0) AS average_percentage").
		Where("status <> ?", enums.AllocationStatusFailed).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &PlatformTotals{
		TotalDonated:      row.TotalDonated,
		DonorCount:        row.DonorCount,
		AllocationCount:   row.AllocationCount,
		AveragePercentage: row.AveragePercentage,
	}, nil
}

func (r *repositoryImpl) TopCategories(ctx context.Context, userID uuid.UUID, limit int) ([]CategoryTotal, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []CategoryTotal
	err := r.db.WithContext(ctx).
		Table("allocation_records AS a").
		Select("b.category AS category, SUM(a.amount) AS amount").
		Joins("JOIN beneficiary_organizations b ON b.id = a.charity_id").
		Where("a.user_id = ? AND a.status <> ?", userID, enums.AllocationStatusFailed).
		Group("b.category").
		Order("amount DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) MonthlyTotals(ctx context.Context, userID uuid.UUID, since time.Time) ([]MonthlyTotal, error) {
	var rows []MonthlyTotal
	err := r.db.WithContext(ctx).
		Model(&models.AllocationRecord{}).
		Select("date_trunc('month', created_at) AS month, SUM(amount) AS amount").
		Where("user_id = ? AND status <> ? AND created_at >= ?", userID, enums.AllocationStatusFailed, since).
		Group("date_trunc('month', created_at)").
		Order("month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/pagination"
)

const impactTrendMonths = 12

// Service exposes the allocation ledger: listing, lifecycle transitions
// and impact aggregates.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
	Get(ctx context.Context, userID, allocationID uuid.UUID) (*models.AllocationRecord, error)
	MarkTransferred(ctx context.Context, allocationID uuid.UUID) error
	MarkConfirmed(ctx context.Context, allocationID uuid.UUID) error
	Impact(ctx context.Context, userID uuid.UUID) (*ImpactSummary, error)
	PlatformImpact(ctx context.Context) (*PlatformImpact, error)
}

// Page is one cursor-bounded slice of the allocation ledger, newest
// first. NextCursor is empty on the final page.
type Page struct {
	Records    []models.AllocationRecord `json:"records"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

// PlatformImpact is the public transparency aggregate across all users.
type PlatformImpact struct {
	TotalDonated      decimal.Decimal `json:"total_donated"`
	DonorCount        int64           `json:"donor_count"`
	AllocationCount   int64           `json:"allocation_count"`
	AveragePercentage decimal.Decimal `json:"average_percentage"`
}

// ImpactSummary aggregates a user's giving history.
type ImpactSummary struct {
	TotalDonated      decimal.Decimal `json:"total_donated"`
	AllocationCount   int64           `json:"allocation_count"`
	AveragePercentage decimal.Decimal `json:"average_percentage"`
	TopCategories     []CategoryTotal `json:"top_categories"`
	MonthlyTrend      []MonthlyTotal  `json:"monthly_trend"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the allocation ledger service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "allocation repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	records, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list allocations")
	}

	page := &Page{Records: records}
	if len(records) > limit {
		page.Records = records[:limit]
		last := page.Records[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, userID, allocationID uuid.UUID) (*models.AllocationRecord, error) {
	if allocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	record, err := s.repo.GetByID(ctx, allocationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
	}
	if userID != uuid.Nil && record.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "allocation not found")
	}
	return record, nil
}

func (s *service) MarkTransferred(ctx context.Context, allocationID uuid.UUID) error {
	return s.transition(ctx, allocationID, enums.AllocationStatusAllocated, enums.AllocationStatusTransferred)
}

func (s *service) MarkConfirmed(ctx context.Context, allocationID uuid.UUID) error {
	return s.transition(ctx, allocationID, enums.AllocationStatusTransferred, enums.AllocationStatusConfirmed)
}

func (s *service) transition(ctx context.Context, allocationID uuid.UUID, from, to enums.AllocationStatus) error {
	if allocationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "allocation id required")
	}
	affected, err := s.repo.UpdateStatus(ctx, allocationID, from, to, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update allocation status")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, "allocation is not in the expected state")
	}
	return nil
}

func (s *service) Impact(ctx context.Context, userID uuid.UUID) (*ImpactSummary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	totals, err := s.repo.UserTotals(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate donations")
	}
	categories, err := s.repo.TopCategories(ctx, userID, 5)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate categories")
	}
	since := s.now().AddDate(0, -impactTrendMonths, 0)
	trend, err := s.repo.MonthlyTotals(ctx, userID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate monthly trend")
	}

	return &ImpactSummary{
		TotalDonated:      totals.TotalDonated,
		AllocationCount:   totals.AllocationCount,
		AveragePercentage: totals.AveragePercentage,
		TopCategories:     categories,
		MonthlyTrend:      trend,
	}, nil
}

// PlatformImpact reports giving totals across the whole platform. It
// backs the public transparency page and requires no authentication.
func (s *service) PlatformImpact(ctx context.Context) (*PlatformImpact, error) {
	totals, err := s.repo.PlatformTotals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate platform totals")
	}
	return &PlatformImpact{
		TotalDonated:      totals.TotalDonated,
		DonorCount:        totals.DonorCount,
		AllocationCount:   totals.AllocationCount,
		AveragePercentage: totals.AveragePercentage,
	}, nil
}

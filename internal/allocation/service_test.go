package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/pagination"
)

type fakeAllocationRepo struct {
	records    []models.AllocationRecord
	lastCursor *pagination.Cursor
	lastLimit  int
	updateFrom enums.AllocationStatus
	updateTo   enums.AllocationStatus
	updateRows int64
	totals     UserTotals
	categories []CategoryTotal
	monthly    []MonthlyTotal
}

func (f *fakeAllocationRepo) WithTx(*gorm.DB) Repository { return f }

func (f *fakeAllocationRepo) Create(context.Context, *models.AllocationRecord) error { return nil }

func (f *fakeAllocationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AllocationRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAllocationRepo) ListByUser(_ context.Context, _ uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.AllocationRecord, error) {
	f.lastCursor = cursor
	f.lastLimit = limit
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func (f *fakeAllocationRepo) UpdateStatus(_ context.Context, _ uuid.UUID, from, to enums.AllocationStatus, _ time.Time) (int64, error) {
	f.updateFrom = from
	f.updateTo = to
	return f.updateRows, nil
}

func (f *fakeAllocationRepo) UserTotals(context.Context, uuid.UUID) (*UserTotals, error) {
	totals := f.totals
	return &totals, nil
}

func (f *fakeAllocationRepo) PlatformTotals(context.Context) (*PlatformTotals, error) {
	return &PlatformTotals{
		TotalDonated:      f.totals.TotalDonated,
		AllocationCount:   f.totals.AllocationCount,
		AveragePercentage: f.totals.AveragePercentage,
	}, nil
}

func (f *fakeAllocationRepo) TopCategories(context.Context, uuid.UUID, int) ([]CategoryTotal, error) {
	return f.categories, nil
}

func (f *fakeAllocationRepo) MonthlyTotals(context.Context, uuid.UUID, time.Time) ([]MonthlyTotal, error) {
	return f.monthly, nil
}

func ledgerRecords(n int) []models.AllocationRecord {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := make([]models.AllocationRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.AllocationRecord{
			ID:        uuid.New(),
			UserID:    uuid.New(),
			Amount:    decimal.NewFromInt(int64(i + 1)),
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	return records
}

func TestListReturnsNextCursorWhenMoreRowsExist(t *testing.T) {
	repo := &fakeAllocationRepo{records: ledgerRecords(3)}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	page, err := svc.List(context.Background(), uuid.New(), pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected buffered limit 3, got %d", repo.lastLimit)
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("parse next cursor: %v", err)
	}
	last := page.Records[1]
	if !cursor.CreatedAt.Equal(last.CreatedAt) || cursor.ID != last.ID {
		t.Fatalf("cursor does not point at the last returned record")
	}
}

func TestListOmitsCursorOnFinalPage(t *testing.T) {
	repo := &fakeAllocationRepo{records: ledgerRecords(2)}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	page, err := svc.List(context.Background(), uuid.New(), pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(page.Records))
	}
	if page.NextCursor != "" {
		t.Fatalf("expected no next cursor, got %q", page.NextCursor)
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	repo := &fakeAllocationRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "not-a-cursor"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransitionRequiresExpectedState(t *testing.T) {
	repo := &fakeAllocationRepo{updateRows: 0}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.MarkConfirmed(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule) {
		t.Fatalf("expected business rule error, got %v", err)
	}
	if repo.updateFrom != enums.AllocationStatusTransferred || repo.updateTo != enums.AllocationStatusConfirmed {
		t.Fatalf("unexpected transition %s -> %s", repo.updateFrom, repo.updateTo)
	}
}

func TestMarkTransferredAdvancesAllocatedRecords(t *testing.T) {
	repo := &fakeAllocationRepo{updateRows: 1}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.MarkTransferred(context.Background(), uuid.New()); err != nil {
		t.Fatalf("mark transferred: %v", err)
	}
	if repo.updateFrom != enums.AllocationStatusAllocated || repo.updateTo != enums.AllocationStatusTransferred {
		t.Fatalf("unexpected transition %s -> %s", repo.updateFrom, repo.updateTo)
	}
}

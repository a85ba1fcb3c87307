package portfolio

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/charity"
	"github.com/givefolio/givefolio-backend/internal/users"
	"github.com/givefolio/givefolio-backend/pkg/config"
	"github.com/givefolio/givefolio-backend/pkg/db"
	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
)

func setupTradeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:portfolio_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL DEFAULT '',
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'investor',
  charity_percentage NUMERIC NOT NULL DEFAULT 10,
  preferred_charity_id TEXT,
  preferred_charity_category TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS positions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  asset_type TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  average_cost NUMERIC NOT NULL,
  realized_pnl NUMERIC NOT NULL DEFAULT 0,
  total_donated NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS ledger_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  position_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  type TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  price NUMERIC NOT NULL,
  realized_pnl NUMERIC,
  allocation_id TEXT,
  order_id TEXT,
  executed_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS allocation_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  transaction_id TEXT NOT NULL,
  charity_id TEXT,
  profit_amount NUMERIC NOT NULL,
  applied_percentage NUMERIC NOT NULL,
  amount NUMERIC NOT NULL,
  selection_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'allocated',
  transferred_at DATETIME,
  confirmed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS beneficiary_organizations (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  description TEXT,
  website TEXT,
  ein TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_verified INTEGER NOT NULL DEFAULT 0,
  total_received NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type tradeFixture struct {
	svc       Service
	conn      *gorm.DB
	userID    uuid.UUID
	charityID uuid.UUID
}

func newTradeFixture(t *testing.T) *tradeFixture {
	t.Helper()
	conn := setupTradeTestDB(t)

	engine, err := allocation.NewEngine(config.CharityConfig{FloorPercentage: 10, DefaultPercentage: 10}, nil)
	require.NoError(t, err)

	charityRepo := charity.NewRepository(conn)
	selector, err := charity.NewSelector(charityRepo, nil)
	require.NoError(t, err)

	svc, err := NewService(Config{
		DB:          db.NewFromConn(conn),
		Repo:        NewRepository(conn),
		Users:       users.NewRepository(conn),
		Charities:   charityRepo,
		Selector:    selector,
		Allocations: allocation.NewRepository(conn),
		Engine:      engine,
	})
	require.NoError(t, err)

	user := models.User{
		Email:             "investor@example.com",
		Role:              enums.UserRoleInvestor,
		CharityPercentage: 10,
		IsActive:          true,
	}
	require.NoError(t, conn.Create(&user).Error)

	org := models.BeneficiaryOrganization{
		Name:          "River Cleanup Fund",
		Category:      "environment",
		IsActive:      true,
		IsVerified:    true,
		TotalReceived: decimal.Zero,
	}
	require.NoError(t, conn.Create(&org).Error)

	return &tradeFixture{svc: svc, conn: conn, userID: user.ID, charityID: org.ID}
}

func (f *tradeFixture) buy(t *testing.T, qty, price string) *TradeResult {
	t.Helper()
	result, err := f.svc.Buy(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.RequireFromString(qty),
		Price:     decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return result
}

func TestBuyComputesWeightedAverageCost(t *testing.T) {
	f := newTradeFixture(t)

	first := f.buy(t, "10", "100")
	assert.True(t, first.Position.AverageCost.Equal(decimal.NewFromInt(100)),
		"expected avg 100, got %s", first.Position.AverageCost)

	second := f.buy(t, "10", "200")
	assert.True(t, second.Position.Quantity.Equal(decimal.NewFromInt(20)),
		"expected qty 20, got %s", second.Position.Quantity)
	assert.True(t, second.Position.AverageCost.Equal(decimal.NewFromInt(150)),
		"expected avg 150, got %s", second.Position.AverageCost)

	var count int64
	require.NoError(t, f.conn.Model(&models.LedgerTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSellRealizesProfitAndAllocates(t *testing.T) {
	f := newTradeFixture(t)
	f.buy(t, "10", "100")
	f.buy(t, "10", "200")

	result, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.NewFromInt(15),
		Price:     decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	// P/L: (200 - 150) * 15 = 750, allocation 10% = 75.
	require.NotNil(t, result.Transaction.RealizedPnL)
	assert.True(t, result.Transaction.RealizedPnL.Equal(decimal.NewFromInt(750)),
		"expected pnl 750, got %s", result.Transaction.RealizedPnL)

	require.NotNil(t, result.Allocation)
	assert.True(t, result.Allocation.Amount.Equal(decimal.NewFromInt(75)),
		"expected allocation 75, got %s", result.Allocation.Amount)
	assert.Equal(t, enums.SelectionMethodBalanced, result.Allocation.SelectionMethod)
	assert.Equal(t, "River Cleanup Fund", result.CharityName)

	assert.True(t, result.Position.Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, result.Position.TotalDonated.Equal(decimal.NewFromInt(75)))

	var org models.BeneficiaryOrganization
	require.NoError(t, f.conn.First(&org, "id = ?", f.charityID).Error)
	assert.True(t, org.TotalReceived.Equal(decimal.NewFromInt(75)),
		"expected charity total 75, got %s", org.TotalReceived)

	var stored models.LedgerTransaction
	require.NoError(t, f.conn.First(&stored, "id = ?", result.Transaction.ID).Error)
	require.NotNil(t, stored.AllocationID)
	assert.Equal(t, result.Allocation.ID, *stored.AllocationID)
}

func TestSellAtLossSkipsAllocation(t *testing.T) {
	f := newTradeFixture(t)
	f.buy(t, "10", "100")

	result, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.NewFromInt(5),
		Price:     decimal.NewFromInt(80),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Transaction.RealizedPnL)
	assert.True(t, result.Transaction.RealizedPnL.Equal(decimal.NewFromInt(-100)))
	assert.Nil(t, result.Allocation)

	var count int64
	require.NoError(t, f.conn.Model(&models.AllocationRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSellRejectsInsufficientQuantity(t *testing.T) {
	f := newTradeFixture(t)
	f.buy(t, "10", "100")

	_, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.NewFromInt(25),
		Price:     decimal.NewFromInt(120),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	// No sell may be recorded when the trade is rejected.
	var count int64
	require.NoError(t, f.conn.Model(&models.LedgerTransaction{}).
		Where("type = ?", enums.TransactionTypeSell).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSellWithoutPositionRejected(t *testing.T) {
	f := newTradeFixture(t)

	_, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "MISSING",
		AssetType: enums.AssetTypeStock,
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
}

func TestProfitableSellRecordsUnassignedAllocationWhenNoCharityEligible(t *testing.T) {
	f := newTradeFixture(t)
	f.buy(t, "10", "100")

	// Deactivate the only charity so no organization is eligible.
	require.NoError(t, f.conn.Model(&models.BeneficiaryOrganization{}).
		Where("id = ?", f.charityID).
		Update("is_active", false).Error)

	result, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.NewFromInt(5),
		Price:     decimal.NewFromInt(150),
	})
	require.NoError(t, err)

	// The amount is still carved out; the record waits for a beneficiary.
	require.NotNil(t, result.Allocation)
	assert.Nil(t, result.Allocation.CharityID)
	assert.True(t, result.Allocation.Amount.Equal(decimal.NewFromInt(25)),
		"expected allocation 25, got %s", result.Allocation.Amount)
	assert.Equal(t, enums.SelectionMethodBalanced, result.Allocation.SelectionMethod)
	assert.Empty(t, result.CharityName)

	// The inactive organization must not be credited.
	var org models.BeneficiaryOrganization
	require.NoError(t, f.conn.First(&org, "id = ?", f.charityID).Error)
	assert.True(t, org.TotalReceived.IsZero(),
		"expected untouched total, got %s", org.TotalReceived)
}

func TestBuyClampsBelowFloorPreferenceOnSell(t *testing.T) {
	f := newTradeFixture(t)

	// A stale stored preference below the floor must still yield the
	// mandated share.
	require.NoError(t, f.conn.Model(&models.User{}).
		Where("id = ?", f.userID).
		Update("charity_percentage", 2).Error)

	f.buy(t, "10", "100")
	result, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(200),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Allocation)
	// Profit 1000, clamped to the 10% floor: 100.
	assert.True(t, result.Allocation.Amount.Equal(decimal.NewFromInt(100)),
		"expected allocation 100, got %s", result.Allocation.Amount)
	assert.True(t, result.Allocation.AppliedPercentage.Equal(decimal.NewFromInt(10)))
}

func TestConcurrentBuysNeverLoseAnUpdate(t *testing.T) {
	f := newTradeFixture(t)

	// A single connection forces the two transactions to serialize the way
	// row locks do on Postgres.
	sqlDB, err := f.conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	f.buy(t, "10", "100")

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, price := range []string{"200", "300"} {
		wg.Add(1)
		go func(price string) {
			defer wg.Done()
			_, err := f.svc.Buy(context.Background(), TradeParams{
				UserID:    f.userID,
				Symbol:    "VTI",
				AssetType: enums.AssetTypeETF,
				Quantity:  decimal.NewFromInt(5),
				Price:     decimal.RequireFromString(price),
			})
			errs <- err
		}(price)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Both fills must survive: 10@100 + 5@200 + 5@300 = 20 units at
	// average 175 regardless of which buy committed first.
	var position models.Position
	require.NoError(t, f.conn.First(&position, "user_id = ? AND symbol = ?", f.userID, "VTI").Error)
	assert.True(t, position.Quantity.Equal(decimal.NewFromInt(20)),
		"expected qty 20, got %s", position.Quantity)
	assert.True(t, position.AverageCost.Equal(decimal.NewFromInt(175)),
		"expected avg 175, got %s", position.AverageCost)

	var count int64
	require.NoError(t, f.conn.Model(&models.LedgerTransaction{}).
		Where("type = ?", enums.TransactionTypeBuy).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestSellRollsBackWhenAllocationCollapsesToZero(t *testing.T) {
	f := newTradeFixture(t)
	f.buy(t, "1", "1")

	// Profit 0.0001 allocates 0.00001, which rounds to zero and trips the
	// floor self-check inside the transaction.
	_, err := f.svc.Sell(context.Background(), TradeParams{
		UserID:    f.userID,
		Symbol:    "VTI",
		AssetType: enums.AssetTypeETF,
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.RequireFromString("1.0001"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvariant))

	// The whole sell must roll back: position untouched, no sell row, no
	// allocation record.
	var position models.Position
	require.NoError(t, f.conn.First(&position, "user_id = ? AND symbol = ?", f.userID, "VTI").Error)
	assert.True(t, position.Quantity.Equal(decimal.NewFromInt(1)),
		"expected qty 1 after rollback, got %s", position.Quantity)
	assert.True(t, position.RealizedPnL.IsZero(),
		"expected untouched pnl, got %s", position.RealizedPnL)

	var sells int64
	require.NoError(t, f.conn.Model(&models.LedgerTransaction{}).
		Where("type = ?", enums.TransactionTypeSell).Count(&sells).Error)
	assert.Zero(t, sells)

	var allocations int64
	require.NoError(t, f.conn.Model(&models.AllocationRecord{}).Count(&allocations).Error)
	assert.Zero(t, allocations)
}

package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/charity"
	"github.com/givefolio/givefolio-backend/internal/users"
	"github.com/givefolio/givefolio-backend/pkg/config"
	"github.com/givefolio/givefolio-backend/pkg/db"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	"github.com/givefolio/givefolio-backend/pkg/quotes"
)

type staticQuotes struct {
	prices map[string]string
}

func (s *staticQuotes) GetQuote(_ context.Context, symbol string) (*quotes.Quote, error) {
	raw, ok := s.prices[symbol]
	if !ok {
		return nil, errors.New("no quote")
	}
	return &quotes.Quote{
		Symbol: symbol,
		Price:  decimal.RequireFromString(raw),
		AsOf:   time.Now(),
	}, nil
}

func newSummaryFixture(t *testing.T, provider quotes.Provider) *tradeFixture {
	t.Helper()
	fixture := newTradeFixture(t)

	engine, err := allocation.NewEngine(config.CharityConfig{FloorPercentage: 10, DefaultPercentage: 10}, nil)
	require.NoError(t, err)
	charityRepo := charity.NewRepository(fixture.conn)
	selector, err := charity.NewSelector(charityRepo, nil)
	require.NoError(t, err)

	svc, err := NewService(Config{
		DB:          db.NewFromConn(fixture.conn),
		Repo:        NewRepository(fixture.conn),
		Users:       users.NewRepository(fixture.conn),
		Charities:   charityRepo,
		Selector:    selector,
		Allocations: allocation.NewRepository(fixture.conn),
		Engine:      engine,
		Quotes:      provider,
	})
	require.NoError(t, err)
	fixture.svc = svc
	return fixture
}

func TestSummaryValuesHoldingsAtCurrentPrices(t *testing.T) {
	provider := &staticQuotes{prices: map[string]string{"VTI": "180"}}
	fixture := newSummaryFixture(t, provider)

	fixture.buy(t, "10", "100")
	fixture.buy(t, "10", "200")

	summary, err := fixture.svc.Summary(context.Background(), fixture.userID)
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 1)

	holding := summary.Holdings[0]
	require.Equal(t, "VTI", holding.Symbol)
	require.Equal(t, enums.AssetTypeStock, holding.AssetType)
	require.True(t, holding.AverageCost.Equal(decimal.NewFromInt(150)), "avg cost %s", holding.AverageCost)
	require.NotNil(t, holding.CurrentPrice)
	require.True(t, holding.CurrentPrice.Equal(decimal.NewFromInt(180)))
	require.NotNil(t, holding.MarketValue)
	require.True(t, holding.MarketValue.Equal(decimal.NewFromInt(3600)), "market value %s", holding.MarketValue)
	require.NotNil(t, holding.UnrealizedPnL)
	require.True(t, holding.UnrealizedPnL.Equal(decimal.NewFromInt(600)), "unrealized %s", holding.UnrealizedPnL)
	require.True(t, summary.TotalMarketValue.Equal(decimal.NewFromInt(3600)))
}

func TestSummaryToleratesQuoteOutage(t *testing.T) {
	fixture := newSummaryFixture(t, &staticQuotes{prices: map[string]string{}})

	fixture.buy(t, "5", "100")

	summary, err := fixture.svc.Summary(context.Background(), fixture.userID)
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 1)
	require.Nil(t, summary.Holdings[0].CurrentPrice)
	require.Nil(t, summary.Holdings[0].MarketValue)
	require.True(t, summary.TotalMarketValue.IsZero())
}

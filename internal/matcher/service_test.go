package matcher

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/internal/notifications"
	"github.com/givefolio/givefolio-backend/internal/orders"
	"github.com/givefolio/givefolio-backend/internal/portfolio"
	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
	"github.com/givefolio/givefolio-backend/pkg/quotes"
)

type fakeLock struct {
	acquired   bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) { return f.acquired, f.acquireErr }
func (f *fakeLock) Release(context.Context) error         { f.releases++; return nil }

type fakeOrders struct {
	pending []models.ConditionalOrder
	expired int64

	listCalls     int
	executed      []uuid.UUID
	executedPrice decimal.Decimal
	executedTxID  uuid.UUID
	failed        map[uuid.UUID]string
}

func (f *fakeOrders) WithTx(*gorm.DB) orders.Repository { return f }
func (f *fakeOrders) Create(context.Context, *models.ConditionalOrder) error {
	return errors.New("unexpected Create")
}
func (f *fakeOrders) GetByID(context.Context, uuid.UUID) (*models.ConditionalOrder, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrders) ListByUser(context.Context, uuid.UUID, *enums.ConditionalOrderStatus, int) ([]models.ConditionalOrder, error) {
	return nil, errors.New("unexpected ListByUser")
}
func (f *fakeOrders) Cancel(context.Context, uuid.UUID, uuid.UUID, time.Time) (int64, error) {
	return 0, errors.New("unexpected Cancel")
}

func (f *fakeOrders) ListPending(context.Context, time.Time) ([]models.ConditionalOrder, error) {
	f.listCalls++
	return f.pending, nil
}

func (f *fakeOrders) MarkExecuted(_ context.Context, orderID uuid.UUID, price decimal.Decimal, transactionID uuid.UUID, _ time.Time) (int64, error) {
	f.executed = append(f.executed, orderID)
	f.executedPrice = price
	f.executedTxID = transactionID
	return 1, nil
}

func (f *fakeOrders) MarkFailed(_ context.Context, orderID uuid.UUID, reason string, _ time.Time) (int64, error) {
	if f.failed == nil {
		f.failed = make(map[uuid.UUID]string)
	}
	f.failed[orderID] = reason
	return 1, nil
}

func (f *fakeOrders) MarkExpired(context.Context, time.Time) (int64, error) {
	return f.expired, nil
}

type fakeTrades struct {
	buyFn  func(ctx context.Context, params portfolio.TradeParams) (*portfolio.TradeResult, error)
	sellFn func(ctx context.Context, params portfolio.TradeParams) (*portfolio.TradeResult, error)

	buys  []portfolio.TradeParams
	sells []portfolio.TradeParams
}

func (f *fakeTrades) Buy(ctx context.Context, params portfolio.TradeParams) (*portfolio.TradeResult, error) {
	f.buys = append(f.buys, params)
	if f.buyFn == nil {
		return nil, errors.New("unexpected Buy")
	}
	return f.buyFn(ctx, params)
}

func (f *fakeTrades) Sell(ctx context.Context, params portfolio.TradeParams) (*portfolio.TradeResult, error) {
	f.sells = append(f.sells, params)
	if f.sellFn == nil {
		return nil, errors.New("unexpected Sell")
	}
	return f.sellFn(ctx, params)
}

func (f *fakeTrades) Positions(context.Context, uuid.UUID) ([]models.Position, error) {
	return nil, errors.New("unexpected Positions")
}

func (f *fakeTrades) Transactions(context.Context, uuid.UUID, int) ([]models.LedgerTransaction, error) {
	return nil, errors.New("unexpected Transactions")
}

func (f *fakeTrades) Summary(context.Context, uuid.UUID) (*portfolio.Summary, error) {
	return nil, errors.New("unexpected Summary")
}

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  map[string]int
}

func (f *fakeQuotes) GetQuote(_ context.Context, symbol string) (*quotes.Quote, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return &quotes.Quote{Symbol: symbol, Price: price, AsOf: time.Now()}, nil
}

type fakeNotifier struct {
	sent []notifications.NotifyParams
}

func (f *fakeNotifier) Notify(_ context.Context, params notifications.NotifyParams) {
	f.sent = append(f.sent, params)
}
func (f *fakeNotifier) List(context.Context, uuid.UUID, bool, int) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (f *fakeNotifier) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

type matcherFixture struct {
	service  *Service
	lock     *fakeLock
	orders   *fakeOrders
	trades   *fakeTrades
	quotes   *fakeQuotes
	notifier *fakeNotifier
}

func newMatcherFixture(t *testing.T) *matcherFixture {
	t.Helper()
	fixture := &matcherFixture{
		lock:     &fakeLock{acquired: true},
		orders:   &fakeOrders{},
		trades:   &fakeTrades{},
		quotes:   &fakeQuotes{prices: map[string]decimal.Decimal{}, errs: map[string]error{}},
		notifier: &fakeNotifier{},
	}
	service, err := NewService(ServiceParams{
		Logger:        logger.New(logger.Options{ServiceName: "matcher-test", Output: io.Discard}),
		Lock:          fixture.lock,
		Orders:        fixture.orders,
		Trades:        fixture.trades,
		Quotes:        fixture.quotes,
		Notifications: fixture.notifier,
		Clock:         func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixture.service = service
	return fixture
}

func pendingOrder(direction enums.OrderDirection, symbol string, target string) models.ConditionalOrder {
	return models.ConditionalOrder{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Symbol:      symbol,
		AssetType:   enums.AssetTypeStock,
		Direction:   direction,
		Quantity:    decimal.NewFromInt(15),
		TargetPrice: decimal.RequireFromString(target),
		Status:      enums.ConditionalOrderStatusPending,
	}
}

func TestTickExecutesTriggeredSellOrder(t *testing.T) {
	fixture := newMatcherFixture(t)
	order := pendingOrder(enums.OrderDirectionSell, "AAPL", "150")
	fixture.orders.pending = []models.ConditionalOrder{order}
	fixture.quotes.prices["AAPL"] = decimal.NewFromInt(200)

	transactionID := uuid.New()
	fixture.trades.sellFn = func(_ context.Context, params portfolio.TradeParams) (*portfolio.TradeResult, error) {
		if params.OrderID == nil || *params.OrderID != order.ID {
			t.Fatalf("expected order id %s on trade, got %v", order.ID, params.OrderID)
		}
		if !params.Price.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("expected trade at quote price 200, got %s", params.Price)
		}
		return &portfolio.TradeResult{
			Transaction: &models.LedgerTransaction{ID: transactionID},
			Allocation:  &models.AllocationRecord{ID: uuid.New(), Amount: decimal.NewFromInt(75)},
			CharityName: "Ocean Cleanup Fund",
		}, nil
	}

	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("run tick: %v", err)
	}

	if len(fixture.orders.executed) != 1 || fixture.orders.executed[0] != order.ID {
		t.Fatalf("expected order %s marked executed, got %v", order.ID, fixture.orders.executed)
	}
	if fixture.orders.executedTxID != transactionID {
		t.Fatalf("expected transaction linkage %s, got %s", transactionID, fixture.orders.executedTxID)
	}
	if fixture.lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", fixture.lock.releases)
	}

	var types []enums.NotificationType
	for _, sent := range fixture.notifier.sent {
		types = append(types, sent.Type)
	}
	if len(types) != 2 || types[0] != enums.NotificationTypeOrderExecuted || types[1] != enums.NotificationTypeAllocation {
		t.Fatalf("expected executed + allocation notifications, got %v", types)
	}
}

func TestTickBuysAtOrBelowTarget(t *testing.T) {
	fixture := newMatcherFixture(t)
	triggered := pendingOrder(enums.OrderDirectionBuy, "VTI", "100")
	waiting := pendingOrder(enums.OrderDirectionBuy, "MSFT", "300")
	fixture.orders.pending = []models.ConditionalOrder{triggered, waiting}
	fixture.quotes.prices["VTI"] = decimal.RequireFromString("99.50")
	fixture.quotes.prices["MSFT"] = decimal.NewFromInt(310)

	fixture.trades.buyFn = func(_ context.Context, _ portfolio.TradeParams) (*portfolio.TradeResult, error) {
		return &portfolio.TradeResult{Transaction: &models.LedgerTransaction{ID: uuid.New()}}, nil
	}

	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("run tick: %v", err)
	}

	if len(fixture.trades.buys) != 1 || fixture.trades.buys[0].Symbol != "VTI" {
		t.Fatalf("expected a single buy for VTI, got %v", fixture.trades.buys)
	}
	if len(fixture.orders.executed) != 1 || fixture.orders.executed[0] != triggered.ID {
		t.Fatalf("expected only the triggered order executed, got %v", fixture.orders.executed)
	}
}

func TestQuoteFailureDefersOrdersOnSymbol(t *testing.T) {
	fixture := newMatcherFixture(t)
	first := pendingOrder(enums.OrderDirectionSell, "AAPL", "150")
	second := pendingOrder(enums.OrderDirectionSell, "AAPL", "180")
	healthy := pendingOrder(enums.OrderDirectionSell, "VTI", "100")
	fixture.orders.pending = []models.ConditionalOrder{first, second, healthy}
	fixture.quotes.errs["AAPL"] = errors.New("upstream down")
	fixture.quotes.prices["VTI"] = decimal.NewFromInt(120)

	fixture.trades.sellFn = func(_ context.Context, _ portfolio.TradeParams) (*portfolio.TradeResult, error) {
		return &portfolio.TradeResult{Transaction: &models.LedgerTransaction{ID: uuid.New()}}, nil
	}

	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("run tick: %v", err)
	}

	if fixture.quotes.calls["AAPL"] != 1 {
		t.Fatalf("expected a single quote attempt for the failing symbol, got %d", fixture.quotes.calls["AAPL"])
	}
	if len(fixture.orders.failed) != 0 {
		t.Fatalf("quote outages must not fail orders, got %v", fixture.orders.failed)
	}
	if len(fixture.orders.executed) != 1 || fixture.orders.executed[0] != healthy.ID {
		t.Fatalf("expected only the healthy symbol executed, got %v", fixture.orders.executed)
	}
}

func TestBusinessRuleRejectionFailsOrder(t *testing.T) {
	fixture := newMatcherFixture(t)
	order := pendingOrder(enums.OrderDirectionSell, "AAPL", "150")
	fixture.orders.pending = []models.ConditionalOrder{order}
	fixture.quotes.prices["AAPL"] = decimal.NewFromInt(200)

	fixture.trades.sellFn = func(_ context.Context, _ portfolio.TradeParams) (*portfolio.TradeResult, error) {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient quantity to sell")
	}

	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("run tick: %v", err)
	}

	reason, ok := fixture.orders.failed[order.ID]
	if !ok {
		t.Fatalf("expected order marked failed")
	}
	if reason != "insufficient quantity to sell" {
		t.Fatalf("unexpected failure reason %q", reason)
	}
	if len(fixture.notifier.sent) != 1 || fixture.notifier.sent[0].Type != enums.NotificationTypeOrderFailed {
		t.Fatalf("expected a failure notification, got %v", fixture.notifier.sent)
	}
}

func TestDependencyErrorLeavesOrderPending(t *testing.T) {
	fixture := newMatcherFixture(t)
	order := pendingOrder(enums.OrderDirectionSell, "AAPL", "150")
	fixture.orders.pending = []models.ConditionalOrder{order}
	fixture.quotes.prices["AAPL"] = decimal.NewFromInt(200)

	fixture.trades.sellFn = func(_ context.Context, _ portfolio.TradeParams) (*portfolio.TradeResult, error) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("connection reset"), "create transaction")
	}

	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("run tick: %v", err)
	}

	if len(fixture.orders.failed) != 0 {
		t.Fatalf("transient errors must keep the order pending, got %v", fixture.orders.failed)
	}
	if len(fixture.orders.executed) != 0 {
		t.Fatalf("expected no execution, got %v", fixture.orders.executed)
	}
}

func TestTransientFailureRetriesAndExecutesOnce(t *testing.T) {
	fixture := newMatcherFixture(t)
	order := pendingOrder(enums.OrderDirectionSell, "AAPL", "150")
	fixture.orders.pending = []models.ConditionalOrder{order}
	fixture.quotes.prices["AAPL"] = decimal.NewFromInt(200)

	attempts := 0
	fixture.trades.sellFn = func(_ context.Context, _ portfolio.TradeParams) (*portfolio.TradeResult, error) {
		attempts++
		if attempts == 1 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("connection reset"), "create transaction")
		}
		return &portfolio.TradeResult{Transaction: &models.LedgerTransaction{ID: uuid.New()}}, nil
	}

	// First tick hits the transient error: the order stays pending and
	// nothing is recorded.
	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if len(fixture.orders.failed) != 0 || len(fixture.orders.executed) != 0 {
		t.Fatalf("transient error must leave the order pending, failed=%v executed=%v",
			fixture.orders.failed, fixture.orders.executed)
	}

	// The next tick retries the same order and executes it.
	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected a retry on the second tick, got %d attempts", attempts)
	}
	if len(fixture.orders.executed) != 1 || fixture.orders.executed[0] != order.ID {
		t.Fatalf("expected the order executed once, got %v", fixture.orders.executed)
	}

	// Execution removes the order from the pending scan; further ticks
	// must not touch it again.
	fixture.orders.pending = nil
	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("third tick: %v", err)
	}
	if len(fixture.orders.executed) != 1 || attempts != 2 {
		t.Fatalf("expected exactly one execution, got %v after %d attempts",
			fixture.orders.executed, attempts)
	}
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	fixture := newMatcherFixture(t)
	fixture.lock.acquired = false
	fixture.orders.pending = []models.ConditionalOrder{pendingOrder(enums.OrderDirectionBuy, "VTI", "100")}

	if err := fixture.service.runTick(context.Background()); err != nil {
		t.Fatalf("run tick: %v", err)
	}

	if fixture.orders.listCalls != 0 {
		t.Fatalf("expected no pending scan without the lock, got %d", fixture.orders.listCalls)
	}
	if fixture.lock.releases != 0 {
		t.Fatalf("must not release a lock it never acquired, got %d releases", fixture.lock.releases)
	}
}

package matcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/givefolio/givefolio-backend/internal/audit"
	"github.com/givefolio/givefolio-backend/internal/notifications"
	"github.com/givefolio/givefolio-backend/internal/orders"
	"github.com/givefolio/givefolio-backend/internal/portfolio"
	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
	"github.com/givefolio/givefolio-backend/pkg/metrics"
	"github.com/givefolio/givefolio-backend/pkg/quotes"
)

const defaultInterval = time.Minute

// ServiceParams configure the order matcher.
type ServiceParams struct {
	Logger        *logger.Logger
	Lock          Lock
	Orders        orders.Repository
	Trades        portfolio.Service
	Quotes        quotes.Provider
	Notifications notifications.Service
	Audit         *audit.Recorder
	Metrics       *metrics.MatcherMetrics
	Interval      time.Duration
	Clock         func() time.Time
}

// Service sweeps pending conditional orders on a fixed cadence, fetches
// current prices and executes every order whose trigger has been hit.
type Service struct {
	logg     *logger.Logger
	lock     Lock
	orders   orders.Repository
	trades   portfolio.Service
	quotes   quotes.Provider
	notifier notifications.Service
	audit    *audit.Recorder
	metrics  *metrics.MatcherMetrics
	interval time.Duration
	clock    func() time.Time
}

// NewService builds the matcher service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	case params.Lock == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lock required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	case params.Trades == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "trade service required")
	case params.Quotes == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quote provider required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		logg:     params.Logger,
		lock:     params.Lock,
		orders:   params.Orders,
		trades:   params.Trades,
		quotes:   params.Quotes,
		notifier: params.Notifications,
		audit:    params.Audit,
		metrics:  params.Metrics,
		interval: interval,
		clock:    clock,
	}, nil
}

// Run starts the matcher loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runTick(ctx); err != nil {
		s.logg.Error(ctx, "matcher tick failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "matcher context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runTick(ctx); err != nil {
				s.logg.Error(ctx, "matcher tick failed", err)
			}
		}
	}
}

func (s *Service) runTick(ctx context.Context) (err error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another matcher instance holds the lock; skipping tick")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("release lock: %w", relErr))
		}
	}()

	start := time.Now()
	outcome := "success"
	err = s.evaluate(ctx)
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveTick(outcome, time.Since(start))
	return err
}

// evaluate runs one matcher pass: expire stale orders, then walk the
// pending queue oldest first and execute every order whose trigger
// price has been reached.
func (s *Service) evaluate(ctx context.Context) error {
	now := s.clock()

	expired, err := s.orders.MarkExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("expire sweep: %w", err)
	}
	if expired > 0 {
		s.metrics.AddExpired(expired)
		s.logg.Info(s.logg.WithField(ctx, "count", expired), "expired stale conditional orders")
	}

	pending, err := s.orders.ListPending(ctx, now)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	prices := make(map[string]decimal.Decimal)
	unavailable := make(map[string]bool)
	for _, order := range pending {
		if unavailable[order.Symbol] {
			continue
		}
		price, ok := prices[order.Symbol]
		if !ok {
			quote, err := s.quotes.GetQuote(ctx, order.Symbol)
			if err != nil {
				// Leave every order on this symbol pending; the next
				// tick retries with a fresh quote.
				symbolCtx := s.logg.WithSymbol(ctx, order.Symbol)
				s.logg.Warn(symbolCtx, "quote unavailable, deferring orders on symbol")
				unavailable[order.Symbol] = true
				continue
			}
			price = quote.Price
			prices[order.Symbol] = price
		}
		if !triggered(order, price) {
			continue
		}
		s.execute(ctx, order, price)
	}
	return nil
}

// triggered reports whether the current price satisfies the order's
// trigger rule: buys fire at or below target, sells at or above.
func triggered(order models.ConditionalOrder, price decimal.Decimal) bool {
	switch order.Direction {
	case enums.OrderDirectionBuy:
		return price.LessThanOrEqual(order.TargetPrice)
	case enums.OrderDirectionSell:
		return price.GreaterThanOrEqual(order.TargetPrice)
	default:
		return false
	}
}

// execute runs the trade for one triggered order. Errors are isolated
// per order so one bad order never stalls the rest of the queue.
func (s *Service) execute(ctx context.Context, order models.ConditionalOrder, price decimal.Decimal) {
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	ctx = s.logg.WithSymbol(ctx, order.Symbol)

	orderID := order.ID
	params := portfolio.TradeParams{
		UserID:    order.UserID,
		Symbol:    order.Symbol,
		AssetType: order.AssetType,
		Quantity:  order.Quantity,
		Price:     price,
		OrderID:   &orderID,
	}

	var result *portfolio.TradeResult
	var err error
	switch order.Direction {
	case enums.OrderDirectionBuy:
		result, err = s.trades.Buy(ctx, params)
	case enums.OrderDirectionSell:
		result, err = s.trades.Sell(ctx, params)
	default:
		err = pkgerrors.New(pkgerrors.CodeInvariant, "unknown order direction")
	}
	if err != nil {
		s.handleTradeError(ctx, order, err)
		return
	}

	now := s.clock()
	affected, err := s.orders.MarkExecuted(ctx, order.ID, price, result.Transaction.ID, now)
	if err != nil {
		s.logg.Error(ctx, "failed to mark order executed", err)
		return
	}
	if affected == 0 {
		// The order left the pending state between listing and
		// execution, most likely a concurrent cancel.
		s.logg.Warn(ctx, "executed trade for an order no longer pending")
		return
	}

	s.metrics.IncExecuted(string(order.Direction))
	s.audit.Record(ctx, audit.Entry{
		UserID:   &order.UserID,
		Action:   "order.executed",
		Severity: enums.AuditSeverityInfo,
		EntityID: &orderID,
		Detail: map[string]any{
			"symbol":         order.Symbol,
			"direction":      order.Direction,
			"quantity":       order.Quantity,
			"executed_price": price,
			"transaction_id": result.Transaction.ID,
		},
	})
	s.notifyExecuted(ctx, order, price, result)
	s.logg.Info(ctx, "conditional order executed")
}

// handleTradeError decides whether a failed trade is permanent. Domain
// rejections fail the order; infrastructure errors leave it pending so
// the next tick can retry.
func (s *Service) handleTradeError(ctx context.Context, order models.ConditionalOrder, tradeErr error) {
	typed := pkgerrors.As(tradeErr)
	if typed == nil || typed.Code() == pkgerrors.CodeDependency || typed.Code() == pkgerrors.CodeInternal {
		s.logg.Error(ctx, "trade failed, order stays pending", tradeErr)
		return
	}

	now := s.clock()
	reason := typed.Message()
	affected, err := s.orders.MarkFailed(ctx, order.ID, reason, now)
	if err != nil {
		s.logg.Error(ctx, "failed to mark order failed", err)
		return
	}
	if affected == 0 {
		return
	}

	s.metrics.IncFailed(failureLabel(typed.Code()))
	orderID := order.ID
	s.audit.Record(ctx, audit.Entry{
		UserID:   &order.UserID,
		Action:   "order.failed",
		Severity: enums.AuditSeverityWarning,
		EntityID: &orderID,
		Detail: map[string]any{
			"symbol":    order.Symbol,
			"direction": order.Direction,
			"reason":    reason,
		},
	})
	if s.notifier != nil {
		s.notifier.Notify(ctx, notifications.NotifyParams{
			UserID: order.UserID,
			Type:   enums.NotificationTypeOrderFailed,
			Title:  fmt.Sprintf("Order for %s could not be executed", order.Symbol),
			Body:   reason,
			Payload: map[string]any{
				"order_id": order.ID,
				"symbol":   order.Symbol,
				"reason":   reason,
			},
		})
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "conditional order failed")
}

func (s *Service) notifyExecuted(ctx context.Context, order models.ConditionalOrder, price decimal.Decimal, result *portfolio.TradeResult) {
	if s.notifier == nil {
		return
	}
	payload := map[string]any{
		"order_id":       order.ID,
		"symbol":         order.Symbol,
		"direction":      order.Direction,
		"quantity":       order.Quantity,
		"executed_price": price,
		"transaction_id": result.Transaction.ID,
	}
	body := fmt.Sprintf("%s %s %s at %s", strings.ToUpper(string(order.Direction)), order.Quantity, order.Symbol, price)
	s.notifier.Notify(ctx, notifications.NotifyParams{
		UserID:  order.UserID,
		Type:    enums.NotificationTypeOrderExecuted,
		Title:   fmt.Sprintf("Order for %s executed", order.Symbol),
		Body:    body,
		Payload: payload,
	})

	if result.Allocation == nil {
		return
	}
	charityName := result.CharityName
	if charityName == "" {
		charityName = "a charitable cause"
	}
	s.notifier.Notify(ctx, notifications.NotifyParams{
		UserID: order.UserID,
		Type:   enums.NotificationTypeAllocation,
		Title:  fmt.Sprintf("%s donated to %s", result.Allocation.Amount, charityName),
		Body:   fmt.Sprintf("Your profitable sale of %s allocated %s to %s.", order.Symbol, result.Allocation.Amount, charityName),
		Payload: map[string]any{
			"allocation_id": result.Allocation.ID,
			"charity_name":  result.CharityName,
			"amount":        result.Allocation.Amount,
		},
	})
}

func failureLabel(code pkgerrors.Code) string {
	return strings.ToLower(string(code))
}

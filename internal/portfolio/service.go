package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/internal/allocation"
	"github.com/givefolio/givefolio-backend/internal/charity"
	"github.com/givefolio/givefolio-backend/internal/transparency"
	"github.com/givefolio/givefolio-backend/internal/users"
	"github.com/givefolio/givefolio-backend/pkg/db"
	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
	"github.com/givefolio/givefolio-backend/pkg/quotes"
)

const (
	// costScale is the precision kept for weighted-average cost.
	costScale = 8
	// pnlScale is the precision kept for realized profit and loss.
	pnlScale = 4
)

// TradeParams describes a buy or sell request.
type TradeParams struct {
	UserID    uuid.UUID
	Symbol    string
	AssetType enums.AssetType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	OrderID   *uuid.UUID
}

// TradeResult reports the ledger outcome of one executed trade.
type TradeResult struct {
	Position    *models.Position          `json:"position"`
	Transaction *models.LedgerTransaction `json:"transaction"`
	Allocation  *models.AllocationRecord  `json:"allocation,omitempty"`
	CharityName string                    `json:"charity_name,omitempty"`
}

// AllocationMetrics is the counter surface trades feed.
type AllocationMetrics interface {
	IncAllocation(amount float64)
}

// Service defines position ledger operations.
type Service interface {
	Buy(ctx context.Context, params TradeParams) (*TradeResult, error)
	Sell(ctx context.Context, params TradeParams) (*TradeResult, error)
	Positions(ctx context.Context, userID uuid.UUID) ([]models.Position, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error)
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
}

type service struct {
	dbc          *db.Client
	repo         Repository
	users        users.Repository
	charities    charity.Repository
	selector     *charity.Selector
	allocations  allocation.Repository
	engine       *allocation.Engine
	transparency transparency.Logger
	quotes       quotes.Provider
	metrics      AllocationMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// Config wires the portfolio service dependencies.
type Config struct {
	DB           *db.Client
	Repo         Repository
	Users        users.Repository
	Charities    charity.Repository
	Selector     *charity.Selector
	Allocations  allocation.Repository
	Engine       *allocation.Engine
	Transparency transparency.Logger
	// Quotes is optional; Summary reports holdings without market
	// values when no provider is configured.
	Quotes  quotes.Provider
	Metrics AllocationMetrics
	Logger  *logger.Logger
}

// NewService validates dependencies and returns the position ledger service.
func NewService(cfg Config) (Service, error) {
	switch {
	case cfg.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	case cfg.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "portfolio repository required")
	case cfg.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	case cfg.Charities == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "charity repository required")
	case cfg.Selector == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "charity selector required")
	case cfg.Allocations == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "allocation repository required")
	case cfg.Engine == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "allocation engine required")
	}

	tl := cfg.Transparency
	if tl == nil {
		tl = transparency.NewNoopLogger()
	}

	return &service{
		dbc:          cfg.DB,
		repo:         cfg.Repo,
		users:        cfg.Users,
		charities:    cfg.Charities,
		selector:     cfg.Selector,
		allocations:  cfg.Allocations,
		engine:       cfg.Engine,
		transparency: tl,
		quotes:       cfg.Quotes,
		metrics:      cfg.Metrics,
		logg:         cfg.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func validateTrade(params TradeParams) error {
	if params.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if strings.TrimSpace(params.Symbol) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "symbol required")
	}
	if !params.AssetType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid asset type")
	}
	if params.Quantity.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if params.Price.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	return nil
}

// Buy folds the purchase into the weighted-average cost of the position,
// creating the position on first purchase.
func (s *service) Buy(ctx context.Context, params TradeParams) (*TradeResult, error) {
	if err := validateTrade(params); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))

	var result TradeResult
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		position, err := repo.GetPositionForUpdate(ctx, params.UserID, symbol)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			position = &models.Position{
				UserID:       params.UserID,
				Symbol:       symbol,
				AssetType:    params.AssetType,
				Quantity:     params.Quantity,
				AverageCost:  params.Price.Round(costScale),
				RealizedPnL:  decimal.Zero,
				TotalDonated: decimal.Zero,
			}
			if err := repo.CreatePosition(ctx, position); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create position")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load position")
		default:
			// Weighted-average cost: existing basis plus the new lot,
			// divided by the combined quantity.
			totalCost := position.Quantity.Mul(position.AverageCost).Add(params.Quantity.Mul(params.Price))
			newQuantity := position.Quantity.Add(params.Quantity)
			position.AverageCost = totalCost.Div(newQuantity).Round(costScale)
			position.Quantity = newQuantity
			if err := repo.SavePosition(ctx, position); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update position")
			}
		}

		transaction := &models.LedgerTransaction{
			UserID:     params.UserID,
			PositionID: position.ID,
			Symbol:     symbol,
			Type:       enums.TransactionTypeBuy,
			Quantity:   params.Quantity,
			Price:      params.Price,
			OrderID:    params.OrderID,
			ExecutedAt: s.now(),
		}
		if err := repo.CreateTransaction(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record buy transaction")
		}

		result.Position = position
		result.Transaction = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Sell realizes profit or loss against the weighted-average cost and,
// when the sale is profitable, carves out the charitable allocation
// inside the same transaction. Either everything commits or nothing does.
func (s *service) Sell(ctx context.Context, params TradeParams) (*TradeResult, error) {
	if err := validateTrade(params); err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))

	var (
		result TradeResult
		event  *transparency.Event
	)
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		position, err := repo.GetPositionForUpdate(ctx, params.UserID, symbol)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient quantity to sell")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load position")
		}
		if position.Quantity.LessThan(params.Quantity) {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient quantity to sell")
		}

		pnl := params.Price.Sub(position.AverageCost).Mul(params.Quantity).Round(pnlScale)

		position.Quantity = position.Quantity.Sub(params.Quantity)
		position.RealizedPnL = position.RealizedPnL.Add(pnl)

		transaction := &models.LedgerTransaction{
			UserID:      params.UserID,
			PositionID:  position.ID,
			Symbol:      symbol,
			Type:        enums.TransactionTypeSell,
			Quantity:    params.Quantity,
			Price:       params.Price,
			RealizedPnL: &pnl,
			OrderID:     params.OrderID,
			ExecutedAt:  s.now(),
		}
		if err := repo.CreateTransaction(ctx, transaction); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sell transaction")
		}

		if pnl.GreaterThan(decimal.Zero) {
			record, charityName, err := s.allocate(ctx, tx, params.UserID, transaction, pnl)
			if err != nil {
				return err
			}
			position.TotalDonated = position.TotalDonated.Add(record.Amount)
			result.Allocation = record
			result.CharityName = charityName
			event = &transparency.Event{
				AllocationID:      record.ID,
				CharityID:         record.CharityID,
				CharityName:       charityName,
				Amount:            record.Amount,
				AppliedPercentage: record.AppliedPercentage,
				SelectionMethod:   string(record.SelectionMethod),
				OccurredAt:        record.CreatedAt,
			}
		}

		if err := repo.SavePosition(ctx, position); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update position")
		}

		result.Position = position
		result.Transaction = transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The feed only sees committed allocations; failures here never undo
	// the trade.
	if event != nil {
		s.transparency.Publish(ctx, *event)
		if s.metrics != nil {
			amount, _ := result.Allocation.Amount.Float64()
			s.metrics.IncAllocation(amount)
		}
	}
	return &result, nil
}

// allocate runs the charitable carve-out inside the sell transaction.
func (s *service) allocate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, transaction *models.LedgerTransaction, profit decimal.Decimal) (*models.AllocationRecord, string, error) {
	user, err := s.users.WithTx(tx).GetByID(ctx, userID)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user for allocation")
	}

	requested := decimal.NewFromFloat(user.CharityPercentage)
	comp, err := s.engine.Compute(ctx, profit, &requested)
	if err != nil {
		return nil, "", err
	}

	selection, err := s.selector.WithTx(tx).Select(ctx, charity.Preference{
		CharityID: user.PreferredCharityID,
		Category:  user.PreferredCharityCategory,
	})
	if err != nil {
		return nil, "", err
	}

	// No eligible charity still carves the amount out; the record stays
	// unassigned until a beneficiary exists.
	record := &models.AllocationRecord{
		UserID:            userID,
		TransactionID:     transaction.ID,
		ProfitAmount:      comp.ProfitAmount,
		AppliedPercentage: comp.AppliedPercentage,
		Amount:            comp.Amount,
		SelectionMethod:   enums.SelectionMethodBalanced,
		Status:            enums.AllocationStatusAllocated,
	}
	charityName := ""
	if selection != nil {
		orgID := selection.Organization.ID
		record.CharityID = &orgID
		record.SelectionMethod = selection.Method
		charityName = selection.Organization.Name
	}
	if err := s.allocations.WithTx(tx).Create(ctx, record); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create allocation record")
	}
	if selection != nil {
		if err := s.charities.WithTx(tx).IncrementTotalReceived(ctx, selection.Organization.ID, comp.Amount); err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment charity total")
		}
	}
	if err := s.repo.WithTx(tx).SetTransactionAllocation(ctx, transaction.ID, record.ID); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link allocation to transaction")
	}
	transaction.AllocationID = &record.ID

	return record, charityName, nil
}

func (s *service) Positions(ctx context.Context, userID uuid.UUID) ([]models.Position, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	positions, err := s.repo.ListPositions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list positions")
	}
	return positions, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	transactions, err := s.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return transactions, nil
}

package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
)

// Holding is one open position valued at the current market price.
type Holding struct {
	Symbol        string           `json:"symbol"`
	AssetType     enums.AssetType  `json:"asset_type"`
	Quantity      decimal.Decimal  `json:"quantity"`
	AverageCost   decimal.Decimal  `json:"average_cost"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	MarketValue   *decimal.Decimal `json:"market_value,omitempty"`
	UnrealizedPnL *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	RealizedPnL   decimal.Decimal  `json:"realized_pnl"`
	TotalDonated  decimal.Decimal  `json:"total_donated"`
}

// Summary aggregates the portfolio across all open positions. Totals
// that depend on market prices only cover holdings a quote was
// available for.
type Summary struct {
	Holdings         []Holding       `json:"holdings"`
	TotalMarketValue decimal.Decimal `json:"total_market_value"`
	TotalRealizedPnL decimal.Decimal `json:"total_realized_pnl"`
	TotalDonated     decimal.Decimal `json:"total_donated"`
}

// Summary values the user's open positions at current market prices.
// A quote outage for one symbol leaves that holding unpriced rather
// than failing the whole summary.
func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	positions, err := s.repo.ListPositions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list positions")
	}

	summary := &Summary{Holdings: make([]Holding, 0, len(positions))}
	for _, position := range positions {
		holding := Holding{
			Symbol:       position.Symbol,
			AssetType:    position.AssetType,
			Quantity:     position.Quantity,
			AverageCost:  position.AverageCost,
			RealizedPnL:  position.RealizedPnL,
			TotalDonated: position.TotalDonated,
		}
		summary.TotalRealizedPnL = summary.TotalRealizedPnL.Add(position.RealizedPnL)
		summary.TotalDonated = summary.TotalDonated.Add(position.TotalDonated)

		if s.quotes != nil {
			if quote, quoteErr := s.quotes.GetQuote(ctx, position.Symbol); quoteErr != nil {
				if s.logg != nil {
					s.logg.Warn(s.logg.WithSymbol(ctx, position.Symbol), "quote unavailable for summary")
				}
			} else {
				price := quote.Price
				value := price.Mul(position.Quantity).Round(pnlScale)
				unrealized := price.Sub(position.AverageCost).Mul(position.Quantity).Round(pnlScale)
				holding.CurrentPrice = &price
				holding.MarketValue = &value
				holding.UnrealizedPnL = &unrealized
				summary.TotalMarketValue = summary.TotalMarketValue.Add(value)
			}
		}
		summary.Holdings = append(summary.Holdings, holding)
	}
	return summary, nil
}

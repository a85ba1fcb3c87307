package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/api/responses"
	"github.com/givefolio/givefolio-backend/api/validators"
	"github.com/givefolio/givefolio-backend/internal/portfolio"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// TradeRequest is the request body for buy and sell endpoints. Quantity
// and price travel as strings so clients keep full decimal precision.
type TradeRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	AssetType string `json:"asset_type" validate:"required"`
	Quantity  string `json:"quantity" validate:"required"`
	Price     string `json:"price" validate:"required"`
}

func (t TradeRequest) toParams(r *http.Request) (portfolio.TradeParams, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return portfolio.TradeParams{}, err
	}
	assetType, err := enums.ParseAssetType(t.AssetType)
	if err != nil {
		return portfolio.TradeParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid asset type")
	}
	quantity, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return portfolio.TradeParams{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a decimal number")
	}
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return portfolio.TradeParams{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
	}
	return portfolio.TradeParams{
		UserID:    userID,
		Symbol:    t.Symbol,
		AssetType: assetType,
		Quantity:  quantity,
		Price:     price,
	}, nil
}

// PortfolioBuy records a purchase into the position ledger.
func PortfolioBuy(svc portfolio.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, func(r *http.Request, params portfolio.TradeParams) (*portfolio.TradeResult, error) {
		return svc.Buy(r.Context(), params)
	})
}

// PortfolioSell realizes profit or loss and allocates the charitable share.
func PortfolioSell(svc portfolio.Service, logg *logger.Logger) http.HandlerFunc {
	return tradeHandler(svc, logg, func(r *http.Request, params portfolio.TradeParams) (*portfolio.TradeResult, error) {
		return svc.Sell(r.Context(), params)
	})
}

func tradeHandler(svc portfolio.Service, logg *logger.Logger, run func(*http.Request, portfolio.TradeParams) (*portfolio.TradeResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "portfolio service unavailable"))
			return
		}

		var body TradeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := body.toParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := run(r, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PortfolioPositions lists the caller's open positions.
func PortfolioPositions(svc portfolio.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "portfolio service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		positions, err := svc.Positions(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, positions)
	}
}

// PortfolioTransactions lists the caller's trade ledger, newest first.
func PortfolioTransactions(svc portfolio.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "portfolio service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		transactions, err := svc.Transactions(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactions)
	}
}

// PortfolioSummary values open positions at current market prices.
func PortfolioSummary(svc portfolio.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "portfolio service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

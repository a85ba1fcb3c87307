package allocation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/config"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

const (
	// amountScale is the decimal precision allocations are rounded to.
	amountScale = 4
	// amountTolerance bounds the drift allowed between the computed
	// amount and an exact recomputation during self-validation.
	amountTolerance = "0.0001"
	// percentSlack absorbs rounding when checking the applied rate
	// against the floor.
	percentSlack = "0.01"
)

var (
	hundred   = decimal.NewFromInt(100)
	tolerance = decimal.RequireFromString(amountTolerance)
	slack     = decimal.RequireFromString(percentSlack)
)

// Computation is the outcome of applying the allocation rule to one
// realized profit. AppliedPercentage may exceed the requested rate when
// the floor was enforced.
type Computation struct {
	ProfitAmount        decimal.Decimal
	RequestedPercentage decimal.Decimal
	AppliedPercentage   decimal.Decimal
	Amount              decimal.Decimal
	FloorApplied        bool
}

// Engine applies the charitable allocation rule. The floor percentage is
// injected from configuration and every computed amount is re-validated
// against it before being returned.
type Engine struct {
	floor      decimal.Decimal
	defaultPct decimal.Decimal
	logg       *logger.Logger
}

// NewEngine builds the allocation engine from charity configuration.
func NewEngine(cfg config.CharityConfig, logg *logger.Logger) (*Engine, error) {
	floor := decimal.NewFromFloat(cfg.FloorPercentage)
	if floor.LessThanOrEqual(decimal.Zero) || floor.GreaterThan(hundred) {
		return nil, fmt.Errorf("charity floor percentage must be in (0, 100], got %s", floor)
	}
	defaultPct := decimal.NewFromFloat(cfg.DefaultPercentage)
	if defaultPct.LessThan(floor) || defaultPct.GreaterThan(hundred) {
		return nil, fmt.Errorf("charity default percentage must be in [floor, 100], got %s", defaultPct)
	}
	return &Engine{floor: floor, defaultPct: defaultPct, logg: logg}, nil
}

// Floor returns the mandated minimum percentage.
func (e *Engine) Floor() decimal.Decimal {
	return e.floor
}

// DefaultPercentage returns the rate used when a user has no stored preference.
func (e *Engine) DefaultPercentage() decimal.Decimal {
	return e.defaultPct
}

// ClampPercentage normalizes a user-supplied rate into [floor, 100].
// A nil rate falls back to the default. Rates below the floor are raised
// to it rather than rejected so a stale preference can never reduce the
// mandated share.
func (e *Engine) ClampPercentage(ctx context.Context, requested *decimal.Decimal) (decimal.Decimal, bool) {
	if requested == nil {
		return e.defaultPct, false
	}
	pct := *requested
	if pct.LessThan(e.floor) {
		if e.logg != nil {
			e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
				"requested_percentage": pct.String(),
				"floor_percentage":     e.floor.String(),
			}), "allocation percentage below floor, clamping")
		}
		return e.floor, true
	}
	if pct.GreaterThan(hundred) {
		return hundred, true
	}
	return pct, false
}

// Compute applies the allocation rule to a realized profit. Non-positive
// profits yield a zero amount with the percentage still clamped for
// record keeping. The returned amount is rounded half away from zero to
// four decimal places and re-validated against the floor before being
// handed back.
func (e *Engine) Compute(ctx context.Context, profit decimal.Decimal, requested *decimal.Decimal) (*Computation, error) {
	if e == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation engine not configured")
	}

	applied, clamped := e.ClampPercentage(ctx, requested)
	requestedPct := e.defaultPct
	if requested != nil {
		requestedPct = *requested
	}

	if profit.LessThanOrEqual(decimal.Zero) {
		return &Computation{
			ProfitAmount:        profit,
			RequestedPercentage: requestedPct,
			AppliedPercentage:   applied,
			Amount:              decimal.Zero,
			FloorApplied:        clamped,
		}, nil
	}

	amount := profit.Mul(applied).Div(hundred).Round(amountScale)

	comp := &Computation{
		ProfitAmount:        profit,
		RequestedPercentage: requestedPct,
		AppliedPercentage:   applied,
		Amount:              amount,
		FloorApplied:        clamped,
	}
	if err := e.validate(comp); err != nil {
		return nil, err
	}
	return comp, nil
}

// validate recomputes the amount and checks the effective rate against
// the floor. A failure here means the ledger would record an allocation
// below the mandate, so it surfaces as an invariant violation that must
// abort the enclosing transaction.
func (e *Engine) validate(comp *Computation) error {
	exact := comp.ProfitAmount.Mul(comp.AppliedPercentage).Div(hundred)
	if comp.Amount.Sub(exact).Abs().GreaterThan(tolerance) {
		return pkgerrors.New(pkgerrors.CodeInvariant,
			fmt.Sprintf("allocation amount %s drifted from exact value %s", comp.Amount, exact))
	}

	actualPct := comp.Amount.Div(comp.ProfitAmount).Mul(hundred)
	if actualPct.LessThan(e.floor.Sub(slack)) {
		return pkgerrors.New(pkgerrors.CodeInvariant,
			fmt.Sprintf("effective allocation rate %s is below the %s%% floor", actualPct, e.floor))
	}
	return nil
}

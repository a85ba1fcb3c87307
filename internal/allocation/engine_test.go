package allocation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/config"
	pkgerrors "github.com/givefolio/givefolio-backend/pkg/errors"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(config.CharityConfig{FloorPercentage: 10, DefaultPercentage: 10}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func pct(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestComputeAppliesRequestedPercentage(t *testing.T) {
	engine := newTestEngine(t)

	comp, err := engine.Compute(context.Background(), decimal.NewFromInt(750), pct("10"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if comp == nil {
		t.Fatalf("expected a computation for positive profit")
	}
	if !comp.Amount.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected amount 75, got %s", comp.Amount)
	}
	if comp.FloorApplied {
		t.Fatalf("floor should not apply to a valid rate")
	}
}

func TestComputeFloorEnforcement(t *testing.T) {
	engine := newTestEngine(t)
	profit := decimal.NewFromInt(1000)

	tests := []struct {
		name        string
		requested   *decimal.Decimal
		wantApplied string
		wantAmount  string
		wantClamped bool
	}{
		{name: "nil falls back to default", requested: nil, wantApplied: "10", wantAmount: "100"},
		{name: "below floor clamps up", requested: pct("5"), wantApplied: "10", wantAmount: "100", wantClamped: true},
		{name: "zero clamps up", requested: pct("0"), wantApplied: "10", wantAmount: "100", wantClamped: true},
		{name: "negative clamps up", requested: pct("-3"), wantApplied: "10", wantAmount: "100", wantClamped: true},
		{name: "above hundred clamps down", requested: pct("150"), wantApplied: "100", wantAmount: "1000", wantClamped: true},
		{name: "valid rate passes through", requested: pct("25"), wantApplied: "25", wantAmount: "250"},
		{name: "exact floor passes through", requested: pct("10"), wantApplied: "10", wantAmount: "100"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			comp, err := engine.Compute(context.Background(), profit, tc.requested)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if !comp.AppliedPercentage.Equal(decimal.RequireFromString(tc.wantApplied)) {
				t.Fatalf("expected applied %s, got %s", tc.wantApplied, comp.AppliedPercentage)
			}
			if !comp.Amount.Equal(decimal.RequireFromString(tc.wantAmount)) {
				t.Fatalf("expected amount %s, got %s", tc.wantAmount, comp.Amount)
			}
			if comp.FloorApplied != tc.wantClamped {
				t.Fatalf("expected clamped=%v, got %v", tc.wantClamped, comp.FloorApplied)
			}
		})
	}
}

func TestComputeNonPositiveProfitYieldsZeroAmount(t *testing.T) {
	engine := newTestEngine(t)

	for _, profit := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-500),
	} {
		comp, err := engine.Compute(context.Background(), profit, pct("5"))
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if comp == nil {
			t.Fatalf("expected a computation for profit %s", profit)
		}
		if !comp.Amount.IsZero() {
			t.Fatalf("expected zero amount for profit %s, got %s", profit, comp.Amount)
		}
		// The rate is still clamped for record keeping.
		if !comp.AppliedPercentage.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("expected applied 10, got %s", comp.AppliedPercentage)
		}
		if !comp.FloorApplied {
			t.Fatalf("expected floor clamp to be recorded")
		}
	}
}

func TestComputeRoundsToFourDecimalPlaces(t *testing.T) {
	engine := newTestEngine(t)

	// 333.3333 * 10% = 33.33333, rounds half away from zero to 33.3333.
	comp, err := engine.Compute(context.Background(), decimal.RequireFromString("333.3333"), pct("10"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if comp.Amount.String() != "33.3333" {
		t.Fatalf("expected 33.3333, got %s", comp.Amount)
	}

	// 0.005 * 15% = 0.00075, rounds to 0.0008.
	comp, err = engine.Compute(context.Background(), decimal.RequireFromString("0.005"), pct("15"))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if comp.Amount.String() != "0.0008" {
		t.Fatalf("expected 0.0008, got %s", comp.Amount)
	}
}

func TestComputeRejectsVanishingAllocations(t *testing.T) {
	engine := newTestEngine(t)

	// A profit so small the rounded allocation collapses to zero must not
	// pass the floor check silently.
	_, err := engine.Compute(context.Background(), decimal.RequireFromString("0.0001"), pct("10"))
	if err == nil {
		t.Fatalf("expected invariant violation")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		t.Fatalf("expected invariant code, got %v", err)
	}
}

func TestNewEngineValidatesConfiguration(t *testing.T) {
	if _, err := NewEngine(config.CharityConfig{FloorPercentage: 0, DefaultPercentage: 10}, nil); err == nil {
		t.Fatalf("expected error for zero floor")
	}
	if _, err := NewEngine(config.CharityConfig{FloorPercentage: 120, DefaultPercentage: 120}, nil); err == nil {
		t.Fatalf("expected error for floor above 100")
	}
	if _, err := NewEngine(config.CharityConfig{FloorPercentage: 10, DefaultPercentage: 5}, nil); err == nil {
		t.Fatalf("expected error for default below floor")
	}
}

package transparency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is the public record of one allocation: enough for an external
// audience to verify giving totals without exposing trade details.
type Event struct {
	AllocationID      uuid.UUID       `json:"allocation_id"`
	CharityID         *uuid.UUID      `json:"charity_id,omitempty"`
	CharityName       string          `json:"charity_name"`
	Amount            decimal.Decimal `json:"amount"`
	AppliedPercentage decimal.Decimal `json:"applied_percentage"`
	SelectionMethod   string          `json:"selection_method"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// Logger publishes allocation events to the transparency feed. Publishing
// is best effort: implementations must never fail the allocating
// transaction, and callers invoke Publish only after commit.
type Logger interface {
	Publish(ctx context.Context, event Event)
}

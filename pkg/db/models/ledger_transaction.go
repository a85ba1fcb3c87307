package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// LedgerTransaction records an immutable trade event. Realized profit or
// loss is populated only for sells and is computed against the position's
// weighted-average cost at execution time.
type LedgerTransaction struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	PositionID   uuid.UUID             `gorm:"column:position_id;type:uuid;not null;index"`
	Symbol       string                `gorm:"column:symbol;not null"`
	Type         enums.TransactionType `gorm:"column:type;type:transaction_type;not null"`
	Quantity     decimal.Decimal       `gorm:"column:quantity;type:numeric(20,8);not null"`
	Price        decimal.Decimal       `gorm:"column:price;type:numeric(20,8);not null"`
	RealizedPnL  *decimal.Decimal      `gorm:"column:realized_pnl;type:numeric(20,4)"`
	AllocationID *uuid.UUID            `gorm:"column:allocation_id;type:uuid"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	ExecutedAt   time.Time             `gorm:"column:executed_at;not null"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// Position holds a user's current stake in one asset. Quantity and the
// weighted-average cost are maintained together inside the trade
// transaction, never updated independently.
type Position struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_positions_user_symbol"`
	Symbol       string          `gorm:"column:symbol;not null;uniqueIndex:idx_positions_user_symbol"`
	AssetType    enums.AssetType `gorm:"column:asset_type;type:asset_type;not null"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(20,8);not null"`
	AverageCost  decimal.Decimal `gorm:"column:average_cost;type:numeric(20,8);not null"`
	RealizedPnL  decimal.Decimal `gorm:"column:realized_pnl;type:numeric(20,4);not null;default:0"`
	TotalDonated decimal.Decimal `gorm:"column:total_donated;type:numeric(20,4);not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

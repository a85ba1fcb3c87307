package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// ConditionalOrder is a standing instruction to trade once the market
// price crosses the target. Sell orders fire at or above the target,
// buy orders at or below it.
type ConditionalOrder struct {
	ID            uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID                    `gorm:"column:user_id;type:uuid;not null;index"`
	Symbol        string                       `gorm:"column:symbol;not null;index"`
	AssetType     enums.AssetType              `gorm:"column:asset_type;type:asset_type;not null"`
	Direction     enums.OrderDirection         `gorm:"column:direction;type:order_direction;not null"`
	Quantity      decimal.Decimal              `gorm:"column:quantity;type:numeric(20,8);not null"`
	TargetPrice   decimal.Decimal              `gorm:"column:target_price;type:numeric(20,8);not null"`
	Status        enums.ConditionalOrderStatus `gorm:"column:status;type:conditional_order_status;not null;default:pending;index"`
	FailureReason *string                      `gorm:"column:failure_reason"`
	ExecutedPrice *decimal.Decimal             `gorm:"column:executed_price;type:numeric(20,8)"`
	TransactionID *uuid.UUID                   `gorm:"column:transaction_id;type:uuid"`
	ExpiresAt     *time.Time                   `gorm:"column:expires_at"`
	ExecutedAt    *time.Time                   `gorm:"column:executed_at"`
	CreatedAt     time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

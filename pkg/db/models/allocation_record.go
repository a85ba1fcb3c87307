package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// AllocationRecord is the immutable record of a charitable allocation
// carved out of a profitable sale. AppliedPercentage is the rate that was
// actually applied after floor clamping, which may differ from the user's
// stored preference. CharityID is nil when no eligible organization
// existed at allocation time; the amount is still carved out and
// reconciled once a beneficiary is assigned.
type AllocationRecord struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	TransactionID     uuid.UUID              `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	CharityID         *uuid.UUID             `gorm:"column:charity_id;type:uuid;index"`
	ProfitAmount      decimal.Decimal        `gorm:"column:profit_amount;type:numeric(20,4);not null"`
	AppliedPercentage decimal.Decimal        `gorm:"column:applied_percentage;type:numeric(5,2);not null"`
	Amount            decimal.Decimal        `gorm:"column:amount;type:numeric(20,4);not null"`
	SelectionMethod   enums.SelectionMethod  `gorm:"column:selection_method;type:selection_method;not null"`
	Status            enums.AllocationStatus `gorm:"column:status;type:allocation_status;not null;default:allocated"`
	TransferredAt     *time.Time             `gorm:"column:transferred_at"`
	ConfirmedAt       *time.Time             `gorm:"column:confirmed_at"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BeneficiaryOrganization is a charity eligible to receive allocations.
// TotalReceived is denormalized and bumped inside the allocating
// transaction so the balanced selection strategy can order by it cheaply.
type BeneficiaryOrganization struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Category      string          `gorm:"column:category;not null;index"`
	Description   *string         `gorm:"column:description"`
	Website       *string         `gorm:"column:website"`
	EIN           *string         `gorm:"column:ein;uniqueIndex"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	IsVerified    bool            `gorm:"column:is_verified;not null;default:false"`
	TotalReceived decimal.Decimal `gorm:"column:total_received;type:numeric(20,4);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

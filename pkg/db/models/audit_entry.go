package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/givefolio/givefolio-backend/pkg/enums"
)

// AuditEntry records a system event for later inspection, primarily
// matcher activity and allocation failures.
type AuditEntry struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	Action    string              `gorm:"column:action;not null;index"`
	Severity  enums.AuditSeverity `gorm:"column:severity;type:audit_severity;not null;default:info"`
	EntityID  *uuid.UUID          `gorm:"column:entity_id;type:uuid"`
	Detail    json.RawMessage     `gorm:"column:detail;type:jsonb"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

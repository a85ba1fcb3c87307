package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/givefolio/givefolio-backend/pkg/db/models"
	"github.com/givefolio/givefolio-backend/pkg/enums"
	"github.com/givefolio/givefolio-backend/pkg/logger"
)

// Recorder persists audit entries. Write failures are logged rather than
// propagated; audit must never break the operation it describes.
type Recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRecorder wires an audit recorder on the shared connection.
func NewRecorder(db *gorm.DB, logg *logger.Logger) *Recorder {
	return &Recorder{db: db, logg: logg}
}

// Entry describes one audit event before persistence.
type Entry struct {
	UserID   *uuid.UUID
	Action   string
	Severity enums.AuditSeverity
	EntityID *uuid.UUID
	Detail   any
}

// Record writes the entry. A nil recorder is a no-op.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.db == nil {
		return
	}

	severity := entry.Severity
	if !severity.IsValid() {
		severity = enums.AuditSeverityInfo
	}

	var detail json.RawMessage
	if entry.Detail != nil {
		raw, err := json.Marshal(entry.Detail)
		if err == nil {
			detail = raw
		}
	}

	row := models.AuditEntry{
		UserID:   entry.UserID,
		Action:   entry.Action,
		Severity: severity,
		EntityID: entry.EntityID,
		Detail:   detail,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil && r.logg != nil {
		r.logg.Warn(r.logg.WithField(ctx, "audit_action", entry.Action), "audit write failed")
	}
}

package enums

import "fmt"

// AuditSeverity maps to the audit_severity enum in Postgres.
type AuditSeverity string

const (
	AuditSeverityInfo    AuditSeverity = "info"
	AuditSeverityWarning AuditSeverity = "warning"
	AuditSeverityError   AuditSeverity = "error"
)

var validAuditSeverities = []AuditSeverity{
	AuditSeverityInfo,
	AuditSeverityWarning,
	AuditSeverityError,
}

// IsValid reports whether the value matches the canonical severity enum.
func (s AuditSeverity) IsValid() bool {
	for _, candidate := range validAuditSeverities {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAuditSeverity converts raw input into AuditSeverity.
func ParseAuditSeverity(value string) (AuditSeverity, error) {
	for _, candidate := range validAuditSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit severity %q", value)
}

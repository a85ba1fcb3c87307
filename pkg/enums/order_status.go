package enums

import "fmt"

// ConditionalOrderStatus maps to the conditional_order_status enum in Postgres.
type ConditionalOrderStatus string

const (
	ConditionalOrderStatusPending   ConditionalOrderStatus = "pending"
	ConditionalOrderStatusExecuted  ConditionalOrderStatus = "executed"
	ConditionalOrderStatusCancelled ConditionalOrderStatus = "cancelled"
	ConditionalOrderStatusFailed    ConditionalOrderStatus = "failed"
	ConditionalOrderStatusExpired   ConditionalOrderStatus = "expired"
)

var validConditionalOrderStatuses = []ConditionalOrderStatus{
	ConditionalOrderStatusPending,
	ConditionalOrderStatusExecuted,
	ConditionalOrderStatusCancelled,
	ConditionalOrderStatusFailed,
	ConditionalOrderStatusExpired,
}

// IsValid reports whether the value matches the canonical order status enum.
func (s ConditionalOrderStatus) IsValid() bool {
	for _, candidate := range validConditionalOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s ConditionalOrderStatus) IsTerminal() bool {
	return s != ConditionalOrderStatusPending
}

// ParseConditionalOrderStatus converts raw input into ConditionalOrderStatus.
func ParseConditionalOrderStatus(value string) (ConditionalOrderStatus, error) {
	for _, candidate := range validConditionalOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conditional order status %q", value)
}

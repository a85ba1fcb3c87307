package enums

import "fmt"

// AllocationStatus maps to the allocation_status enum in Postgres.
// Lifecycle: allocated -> transferred -> confirmed, or failed.
type AllocationStatus string

const (
	AllocationStatusAllocated   AllocationStatus = "allocated"
	AllocationStatusTransferred AllocationStatus = "transferred"
	AllocationStatusConfirmed   AllocationStatus = "confirmed"
	AllocationStatusFailed      AllocationStatus = "failed"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusAllocated,
	AllocationStatusTransferred,
	AllocationStatusConfirmed,
	AllocationStatusFailed,
}

// IsValid reports whether the value matches the canonical allocation enum.
func (s AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAllocationStatus converts raw input into AllocationStatus.
func ParseAllocationStatus(value string) (AllocationStatus, error) {
	for _, candidate := range validAllocationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid allocation status %q", value)
}

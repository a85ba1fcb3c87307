package enums

import "fmt"

// SelectionMethod records how a beneficiary organization was chosen.
type SelectionMethod string

const (
	// SelectionMethodExplicit means the user named the organization directly.
	SelectionMethodExplicit SelectionMethod = "explicit"
	// SelectionMethodCategory means a random verified organization was drawn
	// from the user's preferred category.
	SelectionMethodCategory SelectionMethod = "category"
	// SelectionMethodBalanced means the least-funded verified organization
	// was picked to spread donations.
	SelectionMethodBalanced SelectionMethod = "balanced"
)

var validSelectionMethods = []SelectionMethod{
	SelectionMethodExplicit,
	SelectionMethodCategory,
	SelectionMethodBalanced,
}

// IsValid reports whether the value matches the canonical selection enum.
func (m SelectionMethod) IsValid() bool {
	for _, candidate := range validSelectionMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseSelectionMethod converts raw input into SelectionMethod.
func ParseSelectionMethod(value string) (SelectionMethod, error) {
	for _, candidate := range validSelectionMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid selection method %q", value)
}

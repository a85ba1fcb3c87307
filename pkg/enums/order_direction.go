package enums

import "fmt"

// OrderDirection maps to the order_direction enum in Postgres.
type OrderDirection string

const (
	OrderDirectionBuy  OrderDirection = "buy"
	OrderDirectionSell OrderDirection = "sell"
)

var validOrderDirections = []OrderDirection{
	OrderDirectionBuy,
	OrderDirectionSell,
}

// IsValid reports whether the value matches the canonical direction enum.
func (d OrderDirection) IsValid() bool {
	for _, candidate := range validOrderDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseOrderDirection converts raw input into OrderDirection.
func ParseOrderDirection(value string) (OrderDirection, error) {
	for _, candidate := range validOrderDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order direction %q", value)
}

package enums

import "fmt"

// AssetType maps to the asset_type enum in Postgres.
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeETF    AssetType = "etf"
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeBond   AssetType = "bond"
	AssetTypeFund   AssetType = "fund"
	AssetTypeOther  AssetType = "other"
)

var validAssetTypes = []AssetType{
	AssetTypeStock,
	AssetTypeETF,
	AssetTypeCrypto,
	AssetTypeBond,
	AssetTypeFund,
	AssetTypeOther,
}

// IsValid reports whether the value matches the canonical asset type enum.
func (t AssetType) IsValid() bool {
	for _, candidate := range validAssetTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAssetType converts raw input into AssetType.
func ParseAssetType(value string) (AssetType, error) {
	for _, candidate := range validAssetTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset type %q", value)
}

package enums

import "fmt"

// ShippingFeeType selects how a shipping profile charges for a cart line.
type ShippingFeeType string

const (
	ShippingFeeTypeFlat     ShippingFeeType = "flat"
	ShippingFeeTypePerItem  ShippingFeeType = "per_item"
	ShippingFeeTypeByWeight ShippingFeeType = "by_weight"
	ShippingFeeTypeFree     ShippingFeeType = "free"
)

var validShippingFeeTypes = []ShippingFeeType{
	ShippingFeeTypeFlat,
	ShippingFeeTypePerItem,
	ShippingFeeTypeByWeight,
	ShippingFeeTypeFree,
}

// String implements fmt.Stringer.
func (s ShippingFeeType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingFeeType.
func (s ShippingFeeType) IsValid() bool {
	for _, candidate := range validShippingFeeTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingFeeType converts raw input into a ShippingFeeType.
func ParseShippingFeeType(value string) (ShippingFeeType, error) {
	for _, candidate := range validShippingFeeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping fee type %q", value)
}

package models

import "fmt"

const (
	DiscountNone       = "none"
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Discount is embedded in Product and stored per brand in BrandDiscount.
type Discount struct {
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
	DiscountCode  string `json:"discount_code"`
}

func (d Discount) Validate() error {
	switch d.DiscountType {
	case "", DiscountNone, DiscountPercentage, DiscountFixed:
		return nil
	default:
		return fmt.Errorf("unknown discount type %q", d.DiscountType)
	}
}

// NoDiscount is what products fall back to when a brand discount is removed.
func NoDiscount() Discount {
	return Discount{DiscountType: DiscountNone}
}

type BrandDiscount struct {
	Brand string `json:"id"`
	Discount
}

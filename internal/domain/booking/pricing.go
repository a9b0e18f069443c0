package booking

import "fmt"

// PricingStrategy defines the interface for calculating booking prices.
type PricingStrategy interface {
	// Calculate returns the price in cents for the given parameters.
	Calculate(params PricingParams) (int64, error)
}

// PricingParams holds the inputs for price calculation.
type PricingParams struct {
	Size       PackageSize
	Carrier    Carrier
	ReturnType ReturnType
}

// StandardPricingStrategy implements the flat size-based pricing for Droppit.
type StandardPricingStrategy struct{}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{}
}

// Calculate computes the price in cents. The price is a flat rate per size
// class; carrier and return type carry no surcharge.
//
//	xs  $3.99   keys, letters
//	s   $5.99   books, electronics
//	m   $8.99   shoeboxes
//	l   $14.99  boots, small appliances
func (s *StandardPricingStrategy) Calculate(params PricingParams) (int64, error) {
	if !params.Carrier.IsValid() {
		return 0, fmt.Errorf("unknown carrier for pricing: %s", params.Carrier)
	}
	if !params.ReturnType.IsValid() {
		return 0, fmt.Errorf("unknown return type for pricing: %s", params.ReturnType)
	}

	switch params.Size {
	case SizeXSmall:
		return 399, nil
	case SizeSmall:
		return 599, nil
	case SizeMedium:
		return 899, nil
	case SizeLarge:
		return 1499, nil
	default:
		return 0, fmt.Errorf("unknown package size for pricing: %s", params.Size)
	}
}

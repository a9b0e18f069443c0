package booking

// Carrier represents the shipping carrier the return is headed to.
type Carrier string

const (
	CarrierUSPS   Carrier = "USPS"
	CarrierUPS    Carrier = "UPS"
	CarrierFedEx  Carrier = "FedEx"
	CarrierAmazon Carrier = "Amazon"
)

// IsValid returns true if the carrier is recognized.
func (c Carrier) IsValid() bool {
	switch c {
	case CarrierUSPS, CarrierUPS, CarrierFedEx, CarrierAmazon:
		return true
	}
	return false
}

// ReturnType represents how the return is identified at the drop-off counter.
type ReturnType string

const (
	ReturnTypeQR    ReturnType = "qr"
	ReturnTypeLabel ReturnType = "label"
)

// IsValid returns true if the return type is recognized.
func (r ReturnType) IsValid() bool {
	return r == ReturnTypeQR || r == ReturnTypeLabel
}

// PackageSize represents the declared size class of the package.
type PackageSize string

const (
	SizeXSmall PackageSize = "xs"
	SizeSmall  PackageSize = "s"
	SizeMedium PackageSize = "m"
	SizeLarge  PackageSize = "l"
)

// IsValid returns true if the package size is recognized.
func (p PackageSize) IsValid() bool {
	switch p {
	case SizeXSmall, SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// DropoffSpec is an immutable value object describing where the courier hands
// the package over.
type DropoffSpec struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Instructions string `json:"instructions,omitempty"`
}

// PickupSpec is an immutable value object describing where the courier
// collects the package from the customer.
type PickupSpec struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

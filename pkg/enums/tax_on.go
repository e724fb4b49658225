package enums

import "fmt"

// TaxOn distinguishes which charge a tax percentage applies to.
type TaxOn string

const (
	TaxOnMaterial TaxOn = "material"
	TaxOnService  TaxOn = "service"
)

var validTaxOn = []TaxOn{TaxOnMaterial, TaxOnService}

func (t TaxOn) IsValid() bool {
	for _, candidate := range validTaxOn {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseTaxOn(value string) (TaxOn, error) {
	for _, candidate := range validTaxOn {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tax target %q", value)
}

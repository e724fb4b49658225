package enums

import "fmt"

// VendorStatus tracks the assigned vendor's decision on a redemption.
// Unassigned is the zero state before an admin names a vendor.
type VendorStatus string

const (
	VendorStatusUnassigned VendorStatus = "unassigned"
	VendorStatusPending    VendorStatus = "pending"
	VendorStatusApproved   VendorStatus = "approved"
	VendorStatusRejected   VendorStatus = "rejected"
)

var validVendorStatuses = []VendorStatus{
	VendorStatusUnassigned,
	VendorStatusPending,
	VendorStatusApproved,
	VendorStatusRejected,
}

func (s VendorStatus) IsValid() bool {
	for _, candidate := range validVendorStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseVendorStatus(value string) (VendorStatus, error) {
	for _, candidate := range validVendorStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor status %q", value)
}

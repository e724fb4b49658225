package enums

import "fmt"

// RiderStatus tracks the assigned rider's decision on a redemption.
type RiderStatus string

const (
	RiderStatusUnassigned RiderStatus = "unassigned"
	RiderStatusPending    RiderStatus = "pending"
	RiderStatusApproved   RiderStatus = "approved"
	RiderStatusRejected   RiderStatus = "rejected"
)

var validRiderStatuses = []RiderStatus{
	RiderStatusUnassigned,
	RiderStatusPending,
	RiderStatusApproved,
	RiderStatusRejected,
}

func (s RiderStatus) IsValid() bool {
	for _, candidate := range validRiderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseRiderStatus(value string) (RiderStatus, error) {
	for _, candidate := range validRiderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rider status %q", value)
}

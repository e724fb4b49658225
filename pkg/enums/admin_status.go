package enums

import "fmt"

// AdminStatus tracks the admin decision on a redemption.
type AdminStatus string

const (
	AdminStatusPending  AdminStatus = "pending"
	AdminStatusApproved AdminStatus = "approved"
	AdminStatusRejected AdminStatus = "rejected"
)

var validAdminStatuses = []AdminStatus{
	AdminStatusPending,
	AdminStatusApproved,
	AdminStatusRejected,
}

func (s AdminStatus) IsValid() bool {
	for _, candidate := range validAdminStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseAdminStatus(value string) (AdminStatus, error) {
	for _, candidate := range validAdminStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin status %q", value)
}

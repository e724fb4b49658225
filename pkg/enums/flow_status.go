package enums

import "fmt"

// FlowStatus is the redemption's position in the admin -> vendor -> rider
// delivery pipeline. Terminal states are Delivered, AdminRejected and
// Cancelled.
type FlowStatus string

const (
	FlowStatusRequested      FlowStatus = "requested"
	FlowStatusAdminApproved  FlowStatus = "admin_approved"
	FlowStatusAdminRejected  FlowStatus = "admin_rejected"
	FlowStatusVendorAssigned FlowStatus = "vendor_assigned"
	FlowStatusRiderAssigned  FlowStatus = "rider_assigned"
	FlowStatusOutForDelivery FlowStatus = "out_for_delivery"
	FlowStatusDelivered      FlowStatus = "delivered"
	FlowStatusCancelled      FlowStatus = "cancelled"
)

var validFlowStatuses = []FlowStatus{
	FlowStatusRequested,
	FlowStatusAdminApproved,
	FlowStatusAdminRejected,
	FlowStatusVendorAssigned,
	FlowStatusRiderAssigned,
	FlowStatusOutForDelivery,
	FlowStatusDelivered,
	FlowStatusCancelled,
}

func (s FlowStatus) IsValid() bool {
	for _, candidate := range validFlowStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave this state.
func (s FlowStatus) IsTerminal() bool {
	return s == FlowStatusDelivered || s == FlowStatusAdminRejected || s == FlowStatusCancelled
}

func ParseFlowStatus(value string) (FlowStatus, error) {
	for _, candidate := range validFlowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flow status %q", value)
}

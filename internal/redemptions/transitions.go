package redemptions

import (
	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
)

// transition names one guarded move through the delivery state machine. Each
// operation checks the guard against the loaded record before mutating
// anything; an out-of-order call fails with a state conflict.
type transition struct {
	name  string
	guard func(*models.Redemption) bool
}

var (
	adminDecide = transition{
		name: "admin decision",
		guard: func(r *models.Redemption) bool {
			return r.FlowStatus == enums.FlowStatusRequested && r.AdminStatus == enums.AdminStatusPending
		},
	}
	vendorDecide = transition{
		name: "vendor decision",
		guard: func(r *models.Redemption) bool {
			return r.FlowStatus == enums.FlowStatusVendorAssigned && r.VendorStatus == enums.VendorStatusPending
		},
	}
	riderDecide = transition{
		name: "rider decision",
		guard: func(r *models.Redemption) bool {
			return r.FlowStatus == enums.FlowStatusRiderAssigned && r.RiderStatus == enums.RiderStatusPending
		},
	}
	startDelivery = transition{
		name: "start delivery",
		guard: func(r *models.Redemption) bool {
			return r.FlowStatus == enums.FlowStatusRiderAssigned && r.RiderStatus == enums.RiderStatusApproved
		},
	}
	completeDelivery = transition{
		name: "complete delivery",
		guard: func(r *models.Redemption) bool {
			return r.FlowStatus == enums.FlowStatusOutForDelivery
		},
	}
	customerCancel = transition{
		name: "cancel",
		guard: func(r *models.Redemption) bool {
			return r.FlowStatus == enums.FlowStatusRequested
		},
	}
)

// check returns a state-conflict error when the record is not in a position
// to take this transition. Re-running a refunding move on an already-refunded
// record surfaces as AlreadyProcessed instead, so callers can tell a repeat
// from a genuinely wrong order.
func (t transition) check(r *models.Redemption) error {
	if t.guard(r) {
		return nil
	}
	if r.Refunded {
		return pkgerrors.New(pkgerrors.CodeConflict, "redemption already processed")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, t.name+" not allowed in current state").
		WithDetails(map[string]any{"flow_status": string(r.FlowStatus)})
}

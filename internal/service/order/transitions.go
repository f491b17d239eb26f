package order

import "github.com/compralink/procura/internal/entity"

// transitions is the order lifecycle. Draft carts are promoted on submit,
// an approver takes a pending order into analysis, and from analysis the
// order is decided or released back to the queue. Approved and Rejected
// have no outgoing edges.
var transitions = map[entity.Status][]entity.Status{
	entity.StatusDraft:           {entity.StatusPendingApproval},
	entity.StatusPendingApproval: {entity.StatusInAnalysis},
	entity.StatusInAnalysis: {
		entity.StatusPendingApproval,
		entity.StatusApproved,
		entity.StatusRejected,
	},
}

// transitionAllowed reports whether the lifecycle permits moving from one
// status to another.
func transitionAllowed(from, to entity.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

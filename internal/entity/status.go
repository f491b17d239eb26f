package entity

import "fmt"

// Status is the lifecycle position of a purchase order. The integer values
// are part of the wire contract consumed by the portal frontend and must not
// be renumbered; 4 is reserved and intentionally unused.
type Status int

const (
	StatusDraft           Status = 0
	StatusApproved        Status = 1
	StatusRejected        Status = 2
	StatusInAnalysis      Status = 3
	StatusPendingApproval Status = 5
)

// ParseStatus validates a wire integer and returns the corresponding Status.
func ParseStatus(v int) (Status, error) {
	switch Status(v) {
	case StatusDraft, StatusApproved, StatusRejected, StatusInAnalysis, StatusPendingApproval:
		return Status(v), nil
	default:
		return 0, fmt.Errorf("unknown order status: %d", v)
	}
}

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusInAnalysis:
		return "in_analysis"
	case StatusPendingApproval:
		return "pending_approval"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

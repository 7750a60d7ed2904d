package domain

type OrderStatus string

const (
	OrderStatusAwaitingReceipt     OrderStatus = "AWAITING_RECEIPT"
	OrderStatusPendingVerification OrderStatus = "PENDING_VERIFICATION"
	OrderStatusCompleted           OrderStatus = "COMPLETED"
	OrderStatusRejected            OrderStatus = "REJECTED"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusRejected
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes the legal order transitions. Terminal statuses
// admit nothing.
func CanTransitionTo(from, to OrderStatus) bool {
	switch from {
	case OrderStatusAwaitingReceipt:
		return to == OrderStatusPendingVerification
	case OrderStatusPendingVerification:
		return to == OrderStatusCompleted || to == OrderStatusRejected
	default:
		return false
	}
}

package domain

type StatusPolicy string

const (
	// StatusPolicyOpen accepts any enumerated status after any other, except out of cancelled.
	StatusPolicyOpen StatusPolicy = "open"
	// StatusPolicyStrict follows the lifecycle order.
	StatusPolicyStrict StatusPolicy = "strict"
)

func (p StatusPolicy) Valid() bool {
	return p == StatusPolicyOpen || p == StatusPolicyStrict
}

var strictTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CheckTransition returns a validation error when from -> to is not allowed under p.
func (p StatusPolicy) CheckTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return &Error{Op: "order.transition", Kind: ErrValidation, Message: "Invalid status", Err: ErrInvalidStatus}
	}
	if from == OrderStatusCancelled {
		return Validation("order.transition", "Order is cancelled")
	}
	if p != StatusPolicyStrict {
		return nil
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return nil
		}
	}
	return Validation("order.transition", "Cannot change status from %s to %s", from, to)
}

package dispatcher

import (
	"slices"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// transitions lists the legal next states of every non-terminal state.
// Terminal states have no entry.
var transitions = map[types.OrderStatus][]types.OrderStatus{
	types.OrderStatusCreated: {
		types.OrderStatusSubmitted,
		types.OrderStatusCancelled,
		types.OrderStatusRejected,
	},
	types.OrderStatusSubmitted: {
		types.OrderStatusPartiallyFilled,
		types.OrderStatusFilled,
		types.OrderStatusCancelled,
		types.OrderStatusRejected,
	},
	types.OrderStatusPartiallyFilled: {
		types.OrderStatusPartiallyFilled,
		types.OrderStatusFilled,
		types.OrderStatusCancelled,
	},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to types.OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

// transition moves order to status or fails with ErrCodeInvalidTransition.
func transition(order *types.Order, to types.OrderStatus, at time.Time) error {
	if !CanTransition(order.Status, to) {
		return errors.Newf(errors.ErrCodeInvalidTransition, "order %s cannot move from %s to %s", order.ID, order.Status, to)
	}

	order.Status = to
	order.UpdatedAt = at

	return nil
}

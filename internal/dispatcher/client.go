package dispatcher

import (
	"context"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// ExecutionClient places and cancels orders at the venue.
type ExecutionClient interface {
	// PlaceOrder submits the order and returns the venue order id. The
	// request's ClientOrderID is stable across retries of the same order.
	PlaceOrder(ctx context.Context, request types.OrderRequest) (string, error)
	// CancelOrder cancels an open order. It returns false when the venue no
	// longer knows the order as open.
	CancelOrder(ctx context.Context, symbol string, venueOrderID string) (bool, error)
	// GetAccountInfo returns the venue's view of the account.
	GetAccountInfo(ctx context.Context) (types.AccountState, error)
}

// StatusQuerier is implemented by clients that can report the execution
// state of an order. The dispatcher polls it for orders the venue has
// acknowledged.
type StatusQuerier interface {
	QueryOrder(ctx context.Context, symbol string, venueOrderID string) (types.ExecutionReport, error)
}

// VenueClient is an ExecutionClient that also reports order state.
type VenueClient interface {
	ExecutionClient
	StatusQuerier
}

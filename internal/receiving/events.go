package receiving

import (
	"context"
	"time"
)

// DeliveryFinalizedEvent is emitted once per finalized delivery posting.
// Reversals and return postings never emit it.
type DeliveryFinalizedEvent struct {
	BatchID    string
	OrderID    string
	Supplier   string
	NoteNumber string
	Date       time.Time
	Status     Status
	Lines      []DeliveryLine
}

// IntegrationHandler receives receiving events for side-effect generation.
// Handler failures never roll back the posting; the ledger is the authority.
type IntegrationHandler interface {
	HandleDeliveryFinalized(ctx context.Context, evt DeliveryFinalizedEvent) error
}

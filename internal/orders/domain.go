package orders

import (
	"errors"
	"time"
)

// Status enumerates purchase order lifecycle and identity statuses.
// Project and Stock are identity statuses fixed at creation; the automatic
// lifecycle recomputation never overwrites them.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusPartial   Status = "PARTIALLY_DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusProject   Status = "PROJECT"
	StatusStock     Status = "STOCK"
)

// Identity reports whether the status is fixed at creation and exempt from
// automatic transitions.
func (s Status) Identity() bool {
	return s == StatusProject || s == StatusStock
}

// Label returns the display label. The canonical value stays the enum.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Offen"
	case StatusPartial:
		return "Teilgeliefert"
	case StatusCompleted:
		return "Abgeschlossen"
	case StatusCancelled:
		return "Storniert"
	case StatusProject:
		return "Projekt"
	case StatusStock:
		return "Lager"
	default:
		return string(s)
	}
}

// Line is one ordered item.
type Line struct {
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	Quantity         int    `json:"quantity"`
	QuantityReceived int    `json:"quantityReceived"`
	AddedLater       bool   `json:"addedLater,omitempty"`
	Removed          bool   `json:"removed,omitempty"`
}

// PurchaseOrder is a procurement request. Never physically deleted.
type PurchaseOrder struct {
	ID           string    `json:"id"`
	Supplier     string    `json:"supplier"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpectedDate time.Time `json:"expectedDate,omitempty"`
	Lines        []Line    `json:"lines"`
	Archived     bool      `json:"archived,omitempty"`
	ForceClosed  bool      `json:"forceClosed,omitempty"`
}

// ActiveLines returns the lines that still count, skipping soft-deleted ones.
func (o PurchaseOrder) ActiveLines() []Line {
	active := make([]Line, 0, len(o.Lines))
	for _, line := range o.Lines {
		if !line.Removed {
			active = append(active, line)
		}
	}
	return active
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: order not found")
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("orders: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("orders: invalid input")
	// ErrUnparsable indicates the bulk import text yielded no usable order.
	ErrUnparsable = errors.New("orders: text not parsable")
)

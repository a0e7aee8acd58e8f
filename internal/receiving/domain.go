// Package receiving implements the goods-receipt core: quantity
// reconciliation, status derivation and the append-only delivery ledger.
package receiving

import (
	"errors"
	"time"
)

// Status enumerates receipt states, both the pre-delivery waiting badges and
// the post-delivery results.
type Status string

const (
	StatusAwaiting     Status = "AWAITING_DELIVERY"
	StatusTomorrow     Status = "DELIVERY_TOMORROW"
	StatusToday        Status = "DELIVERY_TODAY"
	StatusOverdue      Status = "OVERDUE"
	StatusBooked       Status = "BOOKED"
	StatusPartial      Status = "PARTIAL"
	StatusOverage      Status = "OVERAGE"
	StatusDamaged      Status = "DAMAGED"
	StatusWrongItem    Status = "WRONG_ITEM"
	StatusDamagedWrong Status = "DAMAGED_WRONG"
	StatusRejected     Status = "REJECTED"
	StatusCancelled    Status = "CANCELLED"
)

// PreDelivery reports whether the status is a waiting badge, i.e. no
// delivery has been booked yet.
func (s Status) PreDelivery() bool {
	switch s {
	case StatusAwaiting, StatusTomorrow, StatusToday, StatusOverdue:
		return true
	}
	return false
}

// Label returns the display label. The canonical value stays the enum.
func (s Status) Label() string {
	switch s {
	case StatusAwaiting:
		return "Wartet auf Lieferung"
	case StatusTomorrow:
		return "Lieferung morgen"
	case StatusToday:
		return "Lieferung heute"
	case StatusOverdue:
		return "Überfällig"
	case StatusBooked:
		return "Gebucht"
	case StatusPartial:
		return "Teillieferung"
	case StatusOverage:
		return "Überlieferung"
	case StatusDamaged:
		return "Beschädigt"
	case StatusWrongItem:
		return "Falschlieferung"
	case StatusDamagedWrong:
		return "Beschädigt + Falsch"
	case StatusRejected:
		return "Abgelehnt"
	case StatusCancelled:
		return "Storniert"
	default:
		return string(s)
	}
}

// RejectReason classifies why a quantity was refused.
type RejectReason string

const (
	ReasonNone         RejectReason = ""
	ReasonDamaged      RejectReason = "DAMAGED"
	ReasonWrong        RejectReason = "WRONG_ITEM"
	ReasonOverdelivery RejectReason = "OVERDELIVERY"
	ReasonOther        RejectReason = "OTHER"
)

// ReturnInfo carries supplier-return shipping metadata on a line.
type ReturnInfo struct {
	Carrier    string `json:"carrier,omitempty"`
	TrackingID string `json:"trackingId,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DeliveryLine is one SKU line of a receiving event. The Ordered,
// PreviouslyReceived, Open and Overage fields are snapshots computed at
// posting time and never recomputed, so the ledger stays a faithful record
// even when later corrections change current totals.
type DeliveryLine struct {
	SKU            string       `json:"sku"`
	Name           string       `json:"name,omitempty"`
	Received       int          `json:"received"`
	Accepted       int          `json:"accepted"`
	Rejected       int          `json:"rejected"`
	Damaged        int          `json:"damaged"`
	Wrong          int          `json:"wrong"`
	Reason         RejectReason `json:"reason,omitempty"`
	Note           string       `json:"note,omitempty"`
	Return         *ReturnInfo  `json:"return,omitempty"`
	ManualAddition bool         `json:"manualAddition,omitempty"`

	Linked             bool `json:"linked"`
	Ordered            int  `json:"ordered"`
	PreviouslyReceived int  `json:"previouslyReceived"`
	Open               int  `json:"open"`
	Overage            int  `json:"overage"`
}

// TotalAccepted is the cumulative accepted quantity including this line.
func (l DeliveryLine) TotalAccepted() int {
	return l.PreviouslyReceived + l.Accepted
}

// DeliveryLog is one physical receiving event. Reversal flags the entry
// instead of deleting it.
type DeliveryLog struct {
	ID         string         `json:"id"`
	Date       time.Time      `json:"date"`
	NoteNumber string         `json:"noteNumber"`
	Reversed   bool           `json:"isStorniert"`
	Return     bool           `json:"isReturn,omitempty"`
	Lines      []DeliveryLine `json:"lines"`
}

// ReceiptMaster is the per-order ledger header.
type ReceiptMaster struct {
	ID         string        `json:"id"`
	OrderID    string        `json:"orderId,omitempty"`
	Status     Status        `json:"status"`
	Deliveries []DeliveryLog `json:"deliveries"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// ReceiptHeader is the flattened per-event projection shown in lists and
// referenced by tickets through its batch id.
type ReceiptHeader struct {
	BatchID    string    `json:"batchId"`
	OrderID    string    `json:"orderId,omitempty"`
	Supplier   string    `json:"supplier,omitempty"`
	NoteNumber string    `json:"noteNumber"`
	Date       time.Time `json:"date"`
	Status     Status    `json:"status"`
	Quantity   int       `json:"quantity"`
	Archived   bool      `json:"archived,omitempty"`
}

var (
	// ErrNotFound indicates the ledger has no such entry.
	ErrNotFound = errors.New("receiving: not found")
	// ErrInvalidState occurs when an action violates a status workflow.
	ErrInvalidState = errors.New("receiving: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("receiving: invalid input")
)

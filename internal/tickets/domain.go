// Package tickets implements complaint case management: ticket lifecycle,
// message threads and the side-effect generator that turns finalized
// deliveries into cases and timeline comments.
package tickets

import (
	"errors"
	"time"
)

// Status enumerates ticket lifecycle states.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Priority enumerates case urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Message is one entry of a ticket's thread. System messages come from the
// generator and the cascades, user messages from manual follow-up.
type Message struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	System bool      `json:"system,omitempty"`
	At     time.Time `json:"at"`
}

// Ticket is a complaint case, linked to a receipt batch.
type Ticket struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	Supplier  string    `json:"supplier,omitempty"`
	Subject   string    `json:"subject"`
	Status    Status    `json:"status"`
	Priority  Priority  `json:"priority"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Open reports whether the ticket still accepts the closing cascade.
func (t Ticket) Open() bool {
	return t.Status == StatusOpen
}

// TimelineComment is one synthesized comment on a receipt batch, grouping
// the generator's non-ticket findings into labeled sections.
type TimelineComment struct {
	ID      string    `json:"id"`
	BatchID string    `json:"batchId"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

var (
	// ErrNotFound indicates no such ticket.
	ErrNotFound = errors.New("tickets: ticket not found")
	// ErrInvalidState occurs when an action violates the ticket lifecycle.
	ErrInvalidState = errors.New("tickets: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("tickets: invalid input")
)

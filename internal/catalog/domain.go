package catalog

import (
	"errors"
	"time"
)

// MovementAction enumerates stock movement directions.
type MovementAction string

const (
	// ActionAdd represents an inbound movement.
	ActionAdd MovementAction = "ADD"
	// ActionRemove represents an outbound movement.
	ActionRemove MovementAction = "REMOVE"
)

// MovementContext tags a movement for free-stock vs project consumption
// reporting.
type MovementContext string

const (
	ContextNormal    MovementContext = "NORMAL"
	ContextProject   MovementContext = "PROJECT"
	ContextManual    MovementContext = "MANUAL"
	ContextPONormal  MovementContext = "PO_NORMAL"
	ContextPOProject MovementContext = "PO_PROJECT"
)

// StockItem is a catalog entry. Stock is only ever mutated through logged
// movements.
type StockItem struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	System       string    `json:"system"`
	Stock        int       `json:"stock"`
	MinStock     int       `json:"minStock"`
	Location     string    `json:"location"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Capacity     string    `json:"capacity,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StockLog is an immutable movement record.
type StockLog struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"itemId"`
	SKU       string          `json:"sku"`
	Action    MovementAction  `json:"action"`
	Quantity  int             `json:"quantity"`
	Warehouse string          `json:"warehouse"`
	Source    string          `json:"source"`
	Context   MovementContext `json:"context"`
	At        time.Time       `json:"at"`
}

var (
	// ErrNotFound indicates the catalog has no such item.
	ErrNotFound = errors.New("catalog: item not found")
	// ErrDuplicateSKU indicates the SKU is already taken.
	ErrDuplicateSKU = errors.New("catalog: sku already exists")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("catalog: invalid input")
)

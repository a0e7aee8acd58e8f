package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jecastrom/lager-build-sub000/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RepositoryPort abstracts catalog storage for the service.
type RepositoryPort interface {
	GetItem(ctx context.Context, id string) (StockItem, error)
	GetItemBySKU(ctx context.Context, sku string) (StockItem, error)
	ListItems(ctx context.Context) ([]StockItem, error)
	SaveItem(ctx context.Context, item StockItem) error
	AppendStockLog(ctx context.Context, log StockLog) error
	ListStockLogs(ctx context.Context, itemID string) ([]StockLog, error)
}

// AuditPort records workspace commands.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service coordinates catalog mutations and stock movements.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateItemInput describes a new catalog entry.
type CreateItemInput struct {
	SKU          string `validate:"required"`
	Name         string `validate:"required"`
	System       string
	Stock        int `validate:"min=0"`
	MinStock     int `validate:"min=0"`
	Location     string
	Manufacturer string
	Capacity     string
}

// UpdateItemInput edits descriptive fields. Stock is excluded on purpose;
// it only moves through MoveStock and ApplyDelta.
type UpdateItemInput struct {
	ID           string `validate:"required"`
	Name         string `validate:"required"`
	System       string
	MinStock     int `validate:"min=0"`
	Location     string
	Manufacturer string
	Capacity     string
}

// MoveInput describes a manual stock movement.
type MoveInput struct {
	SKU       string         `validate:"required"`
	Action    MovementAction `validate:"required,oneof=ADD REMOVE"`
	Quantity  int            `validate:"gt=0"`
	Warehouse string
	Source    string
	Context   MovementContext
}

// DeltaInput applies a signed stock change from another module.
type DeltaInput struct {
	SKU       string
	Delta     int
	Warehouse string
	Source    string
	Context   MovementContext
}

// CreateItem inserts a catalog entry with a unique SKU.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (StockItem, error) {
	if err := validate.Struct(input); err != nil {
		return StockItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.repo.GetItemBySKU(ctx, input.SKU); err == nil {
		return StockItem{}, ErrDuplicateSKU
	} else if !errors.Is(err, ErrNotFound) {
		return StockItem{}, err
	}
	now := time.Now()
	item := StockItem{
		ID:           uuid.NewString(),
		SKU:          input.SKU,
		Name:         input.Name,
		System:       input.System,
		Stock:        input.Stock,
		MinStock:     input.MinStock,
		Location:     input.Location,
		Manufacturer: input.Manufacturer,
		Capacity:     input.Capacity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return StockItem{}, err
	}
	if item.Stock > 0 {
		log := StockLog{
			ID:        uuid.NewString(),
			ItemID:    item.ID,
			SKU:       item.SKU,
			Action:    ActionAdd,
			Quantity:  item.Stock,
			Warehouse: item.Location,
			Source:    "Anfangsbestand",
			Context:   ContextManual,
			At:        now,
		}
		if err := s.repo.AppendStockLog(ctx, log); err != nil {
			return StockItem{}, err
		}
	}
	s.recordAudit(ctx, "ITEM_CREATE", item.ID, map[string]any{"sku": item.SKU})
	return item, nil
}

// UpdateItem edits descriptive fields of an existing entry.
func (s *Service) UpdateItem(ctx context.Context, input UpdateItemInput) (StockItem, error) {
	if err := validate.Struct(input); err != nil {
		return StockItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	item, err := s.repo.GetItem(ctx, input.ID)
	if err != nil {
		return StockItem{}, err
	}
	item.Name = input.Name
	item.System = input.System
	item.MinStock = input.MinStock
	item.Location = input.Location
	item.Manufacturer = input.Manufacturer
	item.Capacity = input.Capacity
	item.UpdatedAt = time.Now()
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, "ITEM_UPDATE", item.ID, map[string]any{"sku": item.SKU})
	return item, nil
}

// MoveStock applies a manual inbound or outbound movement and logs it.
func (s *Service) MoveStock(ctx context.Context, input MoveInput) (StockItem, error) {
	if err := validate.Struct(input); err != nil {
		return StockItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	delta := input.Quantity
	if input.Action == ActionRemove {
		delta = -delta
	}
	tag := input.Context
	if tag == "" {
		tag = ContextManual
	}
	return s.applyDelta(ctx, DeltaInput{
		SKU:       input.SKU,
		Delta:     delta,
		Warehouse: input.Warehouse,
		Source:    input.Source,
		Context:   tag,
	})
}

// ApplyDelta applies a signed stock change on behalf of another module,
// typically a goods-receipt posting or its reversal. A zero delta is a no-op.
func (s *Service) ApplyDelta(ctx context.Context, input DeltaInput) (StockItem, error) {
	if input.Delta == 0 {
		return s.repo.GetItemBySKU(ctx, input.SKU)
	}
	return s.applyDelta(ctx, input)
}

func (s *Service) applyDelta(ctx context.Context, input DeltaInput) (StockItem, error) {
	item, err := s.repo.GetItemBySKU(ctx, input.SKU)
	if err != nil {
		return StockItem{}, err
	}
	item.Stock += input.Delta
	// Stock never displays below zero even when a correction over-subtracts.
	if item.Stock < 0 {
		item.Stock = 0
	}
	item.UpdatedAt = time.Now()
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return StockItem{}, err
	}
	action := ActionAdd
	qty := input.Delta
	if input.Delta < 0 {
		action = ActionRemove
		qty = -input.Delta
	}
	warehouse := input.Warehouse
	if warehouse == "" {
		warehouse = item.Location
	}
	log := StockLog{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		SKU:       item.SKU,
		Action:    action,
		Quantity:  qty,
		Warehouse: warehouse,
		Source:    input.Source,
		Context:   input.Context,
		At:        time.Now(),
	}
	if err := s.repo.AppendStockLog(ctx, log); err != nil {
		return StockItem{}, err
	}
	s.recordAudit(ctx, "STOCK_MOVE", item.ID, map[string]any{"sku": item.SKU, "delta": input.Delta, "context": string(input.Context)})
	return item, nil
}

// BelowMinimum lists items at or below their minimum stock threshold.
func (s *Service) BelowMinimum(ctx context.Context) ([]StockItem, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	var low []StockItem
	for _, item := range items {
		if item.MinStock > 0 && item.Stock <= item.MinStock {
			low = append(low, item)
		}
	}
	return low, nil
}

// Movements returns the movement history of one item.
func (s *Service) Movements(ctx context.Context, itemID string) ([]StockLog, error) {
	return s.repo.ListStockLogs(ctx, itemID)
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.NewAuditEntry("", action, "catalog", entityID, meta))
}

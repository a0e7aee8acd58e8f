package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jecastrom/lager-build-sub000/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RepositoryPort abstracts order storage for the service.
type RepositoryPort interface {
	GetOrder(ctx context.Context, id string) (PurchaseOrder, error)
	ListOrders(ctx context.Context) ([]PurchaseOrder, error)
	SaveOrder(ctx context.Context, order PurchaseOrder) error
}

// ReceiptPort exposes the receiving-side operations the order lifecycle
// touches: the per-order receipt ledger and its pre-delivery badge.
type ReceiptPort interface {
	EnsureMaster(ctx context.Context, orderID string, expected time.Time) error
	RefreshPreDelivery(ctx context.Context, orderID string, expected time.Time) error
	ArchiveReceipts(ctx context.Context, orderID string) ([]string, error)
	CancelReceipts(ctx context.Context, orderID string) ([]string, error)
}

// TicketPort closes complaint tickets during cascades.
type TicketPort interface {
	CloseForBatches(ctx context.Context, batchIDs []string, note string) (int, error)
}

// AuditPort records workspace commands.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service orchestrates purchase order lifecycle operations.
type Service struct {
	repo     RepositoryPort
	receipts ReceiptPort
	tickets  TicketPort
	audit    AuditPort
}

// NewService constructs the order service.
func NewService(repo RepositoryPort, receipts ReceiptPort, tickets TicketPort, audit AuditPort) *Service {
	return &Service{repo: repo, receipts: receipts, tickets: tickets, audit: audit}
}

// LineInput describes one ordered item.
type LineInput struct {
	SKU      string `validate:"required"`
	Name     string
	Quantity int `validate:"gt=0"`
}

// CreateOrderInput describes a new purchase order, whether entered manually
// or produced by the bulk-text parser.
type CreateOrderInput struct {
	ID           string
	Supplier     string `validate:"required"`
	Identity     Status `validate:"omitempty,oneof=PROJECT STOCK"`
	ExpectedDate time.Time
	Lines        []LineInput `validate:"min=1,dive"`
}

// CascadeResult reports what an archive or cancel cascade touched.
type CascadeResult struct {
	OrderID          string
	AlreadyDone      bool
	BatchesFlagged   int
	TicketsClosed    int
	ResidualReceived []Line
}

// CreateOrder validates and stores a new purchase order.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if err := validate.Struct(input); err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.ID == "" {
		input.ID = generateNumber("PO")
	}
	if _, err := s.repo.GetOrder(ctx, input.ID); err == nil {
		return PurchaseOrder{}, fmt.Errorf("%w: id %s already exists", ErrValidation, input.ID)
	}
	status := StatusOpen
	if input.Identity.Identity() {
		status = input.Identity
	}
	order := PurchaseOrder{
		ID:           input.ID,
		Supplier:     input.Supplier,
		Status:       status,
		CreatedAt:    time.Now(),
		ExpectedDate: input.ExpectedDate,
		Lines:        make([]Line, 0, len(input.Lines)),
	}
	for _, line := range input.Lines {
		order.Lines = append(order.Lines, Line{SKU: line.SKU, Name: line.Name, Quantity: line.Quantity})
	}
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return PurchaseOrder{}, err
	}
	if s.receipts != nil {
		if err := s.receipts.EnsureMaster(ctx, order.ID, order.ExpectedDate); err != nil {
			return PurchaseOrder{}, err
		}
	}
	s.recordAudit(ctx, "ORDER_CREATE", order.ID, map[string]any{"supplier": order.Supplier, "status": string(order.Status)})
	return order, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// List returns all orders.
func (s *Service) List(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.ListOrders(ctx)
}

// SetExpectedDate updates the expected delivery date and refreshes the
// receipt badge while the order is still awaiting its first delivery.
func (s *Service) SetExpectedDate(ctx context.Context, orderID string, expected time.Time) (PurchaseOrder, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	order.ExpectedDate = expected
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return PurchaseOrder{}, err
	}
	if s.receipts != nil {
		if err := s.receipts.RefreshPreDelivery(ctx, orderID, expected); err != nil {
			return PurchaseOrder{}, err
		}
	}
	s.recordAudit(ctx, "ORDER_SET_EXPECTED", orderID, map[string]any{"expected": expected})
	return order, nil
}

// AddLine appends a later-added line to an order.
func (s *Service) AddLine(ctx context.Context, orderID string, input LineInput) (PurchaseOrder, error) {
	if err := validate.Struct(input); err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if order.Status == StatusCancelled {
		return PurchaseOrder{}, ErrInvalidState
	}
	order.Lines = append(order.Lines, Line{SKU: input.SKU, Name: input.Name, Quantity: input.Quantity, AddedLater: true})
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "ORDER_ADD_LINE", orderID, map[string]any{"sku": input.SKU, "quantity": input.Quantity})
	return order, nil
}

// RemoveLine soft-deletes a line. The line stays on the order for history.
func (s *Service) RemoveLine(ctx context.Context, orderID, sku string) (PurchaseOrder, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	found := false
	for i := range order.Lines {
		if order.Lines[i].SKU == sku && !order.Lines[i].Removed {
			order.Lines[i].Removed = true
			found = true
			break
		}
	}
	if !found {
		return PurchaseOrder{}, fmt.Errorf("%w: line %s", ErrNotFound, sku)
	}
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "ORDER_REMOVE_LINE", orderID, map[string]any{"sku": sku})
	return order, nil
}

// Archive flags the order archived and cascades: receipt rows get the
// archived flag, open tickets get a system message and close. Running it
// again on an archived order is a no-op.
func (s *Service) Archive(ctx context.Context, orderID string) (CascadeResult, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return CascadeResult{}, err
	}
	if order.Archived {
		return CascadeResult{OrderID: orderID, AlreadyDone: true}, nil
	}
	order.Archived = true
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return CascadeResult{}, err
	}
	result := CascadeResult{OrderID: orderID}
	if s.receipts != nil {
		batchIDs, err := s.receipts.ArchiveReceipts(ctx, orderID)
		if err != nil {
			return CascadeResult{}, err
		}
		result.BatchesFlagged = len(batchIDs)
		result.TicketsClosed = s.closeTickets(ctx, batchIDs, fmt.Sprintf("Bestellung %s archiviert, Vorgang geschlossen.", orderID))
	}
	s.recordAudit(ctx, "ORDER_ARCHIVE", orderID, map[string]any{"tickets_closed": result.TicketsClosed})
	return result, nil
}

// Cancel sets the order cancelled and archived and cascades to receipts and
// tickets. Cancelling after a partial receipt is permitted: the residual
// received quantities stay on the order and in stock, and are reported in
// the result so the caller can post a supplier return first.
func (s *Service) Cancel(ctx context.Context, orderID string) (CascadeResult, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return CascadeResult{}, err
	}
	if order.Status == StatusCancelled {
		return CascadeResult{OrderID: orderID, AlreadyDone: true}, nil
	}
	result := CascadeResult{OrderID: orderID}
	for _, line := range order.ActiveLines() {
		if line.QuantityReceived > 0 {
			result.ResidualReceived = append(result.ResidualReceived, line)
		}
	}
	order.Status = StatusCancelled
	order.Archived = true
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return CascadeResult{}, err
	}
	if s.receipts != nil {
		batchIDs, err := s.receipts.CancelReceipts(ctx, orderID)
		if err != nil {
			return CascadeResult{}, err
		}
		result.BatchesFlagged = len(batchIDs)
		result.TicketsClosed = s.closeTickets(ctx, batchIDs, fmt.Sprintf("Bestellung %s storniert, Vorgang geschlossen.", orderID))
	}
	meta := map[string]any{"tickets_closed": result.TicketsClosed}
	if len(result.ResidualReceived) > 0 {
		meta["residual_lines"] = len(result.ResidualReceived)
	}
	s.recordAudit(ctx, "ORDER_CANCEL", orderID, meta)
	return result, nil
}

func (s *Service) closeTickets(ctx context.Context, batchIDs []string, note string) int {
	if s.tickets == nil || len(batchIDs) == 0 {
		return 0
	}
	// Ticket cascading is additive bookkeeping; the order mutation stands
	// even when it fails.
	closed, _ := s.tickets.CloseForBatches(ctx, batchIDs, note)
	return closed
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.NewAuditEntry("", action, "orders", entityID, meta))
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

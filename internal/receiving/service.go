package receiving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jecastrom/lager-build-sub000/internal/catalog"
	"github.com/jecastrom/lager-build-sub000/internal/orders"
	"github.com/jecastrom/lager-build-sub000/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// returnNotePrefix names supplier-return ledger entries.
const returnNotePrefix = "RÜCK"

// RepositoryPort abstracts workspace storage for the ledger.
type RepositoryPort interface {
	GetOrder(ctx context.Context, id string) (orders.PurchaseOrder, error)
	SaveOrder(ctx context.Context, order orders.PurchaseOrder) error
	GetMasterByOrder(ctx context.Context, orderID string) (ReceiptMaster, error)
	SaveMaster(ctx context.Context, master ReceiptMaster) error
	AppendHeader(ctx context.Context, header ReceiptHeader) error
	ListHeaders(ctx context.Context, orderID string) ([]ReceiptHeader, error)
	SaveHeader(ctx context.Context, header ReceiptHeader) error
}

// InventoryPort applies accepted-quantity deltas to stock.
type InventoryPort interface {
	ApplyDelta(ctx context.Context, input catalog.DeltaInput) (catalog.StockItem, error)
}

// AuditPort records workspace commands.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service owns the delivery ledger: forward postings, reversal and supplier
// returns, including the order and inventory mutations they imply.
type Service struct {
	repo        RepositoryPort
	inventory   InventoryPort
	integration IntegrationHandler
	audit       AuditPort
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the receiving service.
func NewService(repo RepositoryPort, inventory InventoryPort, integration IntegrationHandler, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, inventory: inventory, integration: integration, audit: audit, logger: logger, now: time.Now}
}

// SetIntegration attaches the side-effect handler after construction, which
// breaks the wiring cycle between receiving and the ticket generator.
func (s *Service) SetIntegration(handler IntegrationHandler) {
	s.integration = handler
}

// PostDeliveryInput describes one receiving event. OrderID may be empty for
// an unlinked receipt.
type PostDeliveryInput struct {
	OrderID    string
	NoteNumber string `validate:"required"`
	Date       time.Time
	Warehouse  string
	Lines      []LineInput `validate:"min=1,dive"`
}

// PostResult reports the outcome of a delivery posting.
type PostResult struct {
	NoOp           bool
	OrderID        string
	BatchID        string
	DeliveryStatus Status
	OrderStatus    orders.Status
	Lines          []DeliveryLine
	StockApplied   bool
}

// ReverseResult reports the outcome of a Storno.
type ReverseResult struct {
	NoOp         bool
	OrderID      string
	BatchID      string
	MasterStatus Status
	OrderStatus  orders.Status
}

// ReturnInput describes a supplier return against an order.
type ReturnInput struct {
	OrderID    string `validate:"required"`
	Quantity   int    `validate:"gt=0"`
	Carrier    string
	TrackingID string
	Reason     string
	Date       time.Time
}

// ReturnResult reports the outcome of a return posting.
type ReturnResult struct {
	NoOp         bool
	OrderID      string
	BatchID      string
	NoteNumber   string
	Returned     int
	MasterStatus Status
	OrderStatus  orders.Status
}

// ForceCloseResult reports a force close, including the order lines still in
// overage so the excess stock stays reportable despite the Booked status.
type ForceCloseResult struct {
	AlreadyForced bool
	OrderStatus   orders.Status
	MasterStatus  Status
	OverageLines  []orders.Line
}

// PostDelivery appends one receiving event to the ledger, updates the order
// and inventory by the accepted deltas and emits the finalized event for
// ticket generation.
func (s *Service) PostDelivery(ctx context.Context, input PostDeliveryInput) (PostResult, error) {
	if err := validate.Struct(input); err != nil {
		return PostResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}

	linked := input.OrderID != ""
	var order orders.PurchaseOrder
	if linked {
		var err error
		order, err = s.repo.GetOrder(ctx, input.OrderID)
		if err != nil {
			return PostResult{}, err
		}
		if order.Status == orders.StatusCancelled {
			return PostResult{}, fmt.Errorf("%w: order %s is cancelled", ErrInvalidState, order.ID)
		}
	}

	lines := make([]DeliveryLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		ordered, previous, lineLinked := 0, 0, false
		if linked {
			if orderLine := findActiveLine(&order, in.SKU); orderLine != nil {
				ordered, previous, lineLinked = orderLine.Quantity, orderLine.QuantityReceived, true
			}
		}
		lines = append(lines, Reconcile(in, ordered, previous, lineLinked))
	}

	status := DeriveDeliveryStatus(lines, linked, linked && order.ForceClosed)
	entry := DeliveryLog{ID: uuid.NewString(), Date: input.Date, NoteNumber: input.NoteNumber, Lines: lines}

	master, err := s.masterForPosting(ctx, input.OrderID)
	if err != nil {
		return PostResult{}, err
	}
	master.Deliveries = append(master.Deliveries, entry)
	master.Status = status
	master.UpdatedAt = s.now()
	if err := s.repo.SaveMaster(ctx, master); err != nil {
		return PostResult{}, err
	}

	result := PostResult{OrderID: input.OrderID, BatchID: entry.ID, DeliveryStatus: status, Lines: lines}

	if linked {
		for _, line := range lines {
			if line.Linked {
				applyReceivedDelta(&order, line.SKU, line.Accepted)
			}
		}
		order.Status = DeriveOrderStatus(order)
		if err := s.repo.SaveOrder(ctx, order); err != nil {
			return PostResult{}, err
		}
		result.OrderStatus = order.Status
	}

	// Project orders never touch free stock.
	if !linked || order.Status != orders.StatusProject {
		tag := catalog.ContextNormal
		if linked {
			tag = catalog.ContextPONormal
		}
		for _, line := range lines {
			if line.Accepted == 0 {
				continue
			}
			s.applyStock(ctx, line.SKU, line.Accepted, input.Warehouse, "Wareneingang "+input.NoteNumber, tag)
		}
		result.StockApplied = true
	}

	total := 0
	for _, line := range lines {
		total += line.Accepted
	}
	header := ReceiptHeader{
		BatchID:    entry.ID,
		OrderID:    input.OrderID,
		Supplier:   order.Supplier,
		NoteNumber: input.NoteNumber,
		Date:       input.Date,
		Status:     status,
		Quantity:   total,
	}
	if err := s.repo.AppendHeader(ctx, header); err != nil {
		return PostResult{}, err
	}

	s.recordAudit(ctx, "DELIVERY_POST", input.OrderID, map[string]any{"note": input.NoteNumber, "status": string(status)})
	s.emitFinalized(ctx, DeliveryFinalizedEvent{
		BatchID:    entry.ID,
		OrderID:    input.OrderID,
		Supplier:   order.Supplier,
		NoteNumber: input.NoteNumber,
		Date:       input.Date,
		Status:     status,
		Lines:      lines,
	})
	return result, nil
}

// ReverseLast flags the most recent non-reversed delivery as Storno and
// backs its accepted quantities out of inventory and the order. Reversing an
// order without deliveries is a no-op, not an error.
func (s *Service) ReverseLast(ctx context.Context, orderID string) (ReverseResult, error) {
	master, err := s.repo.GetMasterByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return ReverseResult{NoOp: true, OrderID: orderID}, nil
	}
	if err != nil {
		return ReverseResult{}, err
	}
	idx := -1
	for i := len(master.Deliveries) - 1; i >= 0; i-- {
		if !master.Deliveries[i].Reversed {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ReverseResult{NoOp: true, OrderID: orderID}, nil
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return ReverseResult{}, err
	}

	entry := &master.Deliveries[idx]
	projectOrder := order.Status == orders.StatusProject
	for _, line := range entry.Lines {
		if line.Linked {
			applyReceivedDelta(&order, line.SKU, -line.Accepted)
		}
		if !projectOrder && line.Accepted != 0 {
			s.applyStock(ctx, line.SKU, -line.Accepted, "", "Storno "+entry.NoteNumber, catalog.ContextPONormal)
		}
	}
	entry.Reversed = true

	headers, err := s.repo.ListHeaders(ctx, orderID)
	if err != nil {
		return ReverseResult{}, err
	}
	for _, header := range headers {
		if header.BatchID == entry.ID {
			header.Status = StatusCancelled
			if err := s.repo.SaveHeader(ctx, header); err != nil {
				return ReverseResult{}, err
			}
		}
	}

	order.Status = DeriveOrderStatus(order)
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return ReverseResult{}, err
	}

	master.Status = s.statusAfterLedgerChange(master, order)
	master.UpdatedAt = s.now()
	if err := s.repo.SaveMaster(ctx, master); err != nil {
		return ReverseResult{}, err
	}

	s.recordAudit(ctx, "DELIVERY_REVERSE", orderID, map[string]any{"note": entry.NoteNumber})
	return ReverseResult{OrderID: orderID, BatchID: entry.ID, MasterStatus: master.Status, OrderStatus: order.Status}, nil
}

// PostReturn books a supplier return: a dedicated ledger entry that subtracts
// previously accepted stock, distributed against overage lines first.
func (s *Service) PostReturn(ctx context.Context, input ReturnInput) (ReturnResult, error) {
	if err := validate.Struct(input); err != nil {
		return ReturnResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	order, err := s.repo.GetOrder(ctx, input.OrderID)
	if err != nil {
		return ReturnResult{}, err
	}
	master, err := s.repo.GetMasterByOrder(ctx, input.OrderID)
	if errors.Is(err, ErrNotFound) {
		return ReturnResult{NoOp: true, OrderID: input.OrderID}, nil
	}
	if err != nil {
		return ReturnResult{}, err
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}

	type allocation struct {
		index int
		qty   int
	}
	var allocations []allocation
	remaining := input.Quantity
	firstActive := -1
	for i := range order.Lines {
		if order.Lines[i].Removed {
			continue
		}
		if firstActive < 0 {
			firstActive = i
		}
		excess := order.Lines[i].QuantityReceived - order.Lines[i].Quantity
		if excess > 0 && remaining > 0 {
			take := min(excess, remaining)
			allocations = append(allocations, allocation{index: i, qty: take})
			remaining -= take
		}
	}
	if remaining > 0 {
		if firstActive < 0 {
			return ReturnResult{NoOp: true, OrderID: input.OrderID}, nil
		}
		merged := false
		for i := range allocations {
			if allocations[i].index == firstActive {
				allocations[i].qty += remaining
				merged = true
				break
			}
		}
		if !merged {
			allocations = append(allocations, allocation{index: firstActive, qty: remaining})
		}
	}

	note := fmt.Sprintf("%s-%s", returnNotePrefix, input.Date.Format("02.01.2006"))
	entry := DeliveryLog{ID: uuid.NewString(), Date: input.Date, NoteNumber: note, Return: true}
	info := &ReturnInfo{Carrier: input.Carrier, TrackingID: input.TrackingID, Reason: input.Reason}
	projectOrder := order.Status == orders.StatusProject
	for _, alloc := range allocations {
		line := &order.Lines[alloc.index]
		previous := line.QuantityReceived
		newTotal := previous - alloc.qty
		entry.Lines = append(entry.Lines, DeliveryLine{
			SKU:                line.SKU,
			Name:               line.Name,
			Accepted:           -alloc.qty,
			Reason:             ReasonOverdelivery,
			Return:             info,
			Linked:             true,
			Ordered:            line.Quantity,
			PreviouslyReceived: previous,
			Open:               max(0, line.Quantity-newTotal),
			Overage:            max(0, newTotal-line.Quantity),
		})
		line.QuantityReceived = newTotal
		if !projectOrder {
			s.applyStock(ctx, line.SKU, -alloc.qty, "", "Rücksendung "+note, catalog.ContextPONormal)
		}
	}

	master.Deliveries = append(master.Deliveries, entry)
	master.Status = deriveQuantityStatus(order)
	master.UpdatedAt = s.now()
	if err := s.repo.SaveMaster(ctx, master); err != nil {
		return ReturnResult{}, err
	}

	order.Status = DeriveOrderStatus(order)
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return ReturnResult{}, err
	}

	header := ReceiptHeader{
		BatchID:    entry.ID,
		OrderID:    input.OrderID,
		Supplier:   order.Supplier,
		NoteNumber: note,
		Date:       input.Date,
		Status:     master.Status,
		Quantity:   -input.Quantity,
	}
	if err := s.repo.AppendHeader(ctx, header); err != nil {
		return ReturnResult{}, err
	}

	s.recordAudit(ctx, "DELIVERY_RETURN", input.OrderID, map[string]any{"note": note, "quantity": input.Quantity})
	return ReturnResult{
		OrderID:      input.OrderID,
		BatchID:      entry.ID,
		NoteNumber:   note,
		Returned:     input.Quantity,
		MasterStatus: master.Status,
		OrderStatus:  order.Status,
	}, nil
}

// ForceClose marks an order complete despite unresolved shortfall. The order
// reads Completed (identity statuses stay untouched) and the receipt reads
// Booked. Repeating the call changes nothing.
func (s *Service) ForceClose(ctx context.Context, orderID string) (ForceCloseResult, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return ForceCloseResult{}, err
	}
	result := ForceCloseResult{}
	for _, line := range order.ActiveLines() {
		if line.QuantityReceived > line.Quantity {
			result.OverageLines = append(result.OverageLines, line)
		}
	}
	if order.ForceClosed {
		result.AlreadyForced = true
		result.OrderStatus = order.Status
		result.MasterStatus = StatusBooked
		return result, nil
	}
	order.ForceClosed = true
	if !order.Status.Identity() && order.Status != orders.StatusCancelled {
		order.Status = orders.StatusCompleted
	}
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return ForceCloseResult{}, err
	}
	master, err := s.repo.GetMasterByOrder(ctx, orderID)
	if err == nil {
		master.Status = StatusBooked
		master.UpdatedAt = s.now()
		if err := s.repo.SaveMaster(ctx, master); err != nil {
			return ForceCloseResult{}, err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return ForceCloseResult{}, err
	}
	result.OrderStatus = order.Status
	result.MasterStatus = StatusBooked
	s.recordAudit(ctx, "ORDER_FORCE_CLOSE", orderID, map[string]any{"overage_lines": len(result.OverageLines)})
	return result, nil
}

// EnsureMaster creates the receipt ledger header for a new order with its
// pre-delivery badge. Existing masters stay untouched.
func (s *Service) EnsureMaster(ctx context.Context, orderID string, expected time.Time) error {
	_, err := s.repo.GetMasterByOrder(ctx, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	now := s.now()
	master := ReceiptMaster{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Status:    PreDeliveryStatus(expected, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.repo.SaveMaster(ctx, master)
}

// RefreshPreDelivery recomputes the waiting badge after the expected date
// changed, as long as nothing has been delivered yet.
func (s *Service) RefreshPreDelivery(ctx context.Context, orderID string, expected time.Time) error {
	master, err := s.repo.GetMasterByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !master.Status.PreDelivery() {
		return nil
	}
	master.Status = PreDeliveryStatus(expected, s.now())
	master.UpdatedAt = s.now()
	return s.repo.SaveMaster(ctx, master)
}

// ArchiveReceipts flags all receipt rows of an order as archived and returns
// their batch ids for the ticket cascade. The ledger itself stays untouched.
func (s *Service) ArchiveReceipts(ctx context.Context, orderID string) ([]string, error) {
	headers, err := s.repo.ListHeaders(ctx, orderID)
	if err != nil {
		return nil, err
	}
	batchIDs := make([]string, 0, len(headers))
	for _, header := range headers {
		batchIDs = append(batchIDs, header.BatchID)
		if header.Archived {
			continue
		}
		header.Archived = true
		if err := s.repo.SaveHeader(ctx, header); err != nil {
			return nil, err
		}
	}
	return batchIDs, nil
}

// CancelReceipts forces the ledger header and all receipt rows of an order
// into their terminal cancelled state and returns the batch ids.
func (s *Service) CancelReceipts(ctx context.Context, orderID string) ([]string, error) {
	headers, err := s.repo.ListHeaders(ctx, orderID)
	if err != nil {
		return nil, err
	}
	batchIDs := make([]string, 0, len(headers))
	for _, header := range headers {
		batchIDs = append(batchIDs, header.BatchID)
		if header.Status == StatusCancelled && header.Archived {
			continue
		}
		header.Status = StatusCancelled
		header.Archived = true
		if err := s.repo.SaveHeader(ctx, header); err != nil {
			return nil, err
		}
	}
	master, err := s.repo.GetMasterByOrder(ctx, orderID)
	if err == nil && master.Status != StatusCancelled {
		master.Status = StatusCancelled
		master.UpdatedAt = s.now()
		if err := s.repo.SaveMaster(ctx, master); err != nil {
			return nil, err
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return batchIDs, nil
}

// Headers returns the receipt rows of an order.
func (s *Service) Headers(ctx context.Context, orderID string) ([]ReceiptHeader, error) {
	return s.repo.ListHeaders(ctx, orderID)
}

// Master returns the ledger header of an order.
func (s *Service) Master(ctx context.Context, orderID string) (ReceiptMaster, error) {
	return s.repo.GetMasterByOrder(ctx, orderID)
}

func (s *Service) masterForPosting(ctx context.Context, orderID string) (ReceiptMaster, error) {
	if orderID != "" {
		master, err := s.repo.GetMasterByOrder(ctx, orderID)
		if err == nil {
			return master, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return ReceiptMaster{}, err
		}
	}
	now := s.now()
	return ReceiptMaster{ID: uuid.NewString(), OrderID: orderID, CreatedAt: now, UpdatedAt: now}, nil
}

// statusAfterLedgerChange re-derives the master status once an entry was
// reversed: the latest remaining entry still carries accurate snapshots
// because reversal only ever targets the newest one.
func (s *Service) statusAfterLedgerChange(master ReceiptMaster, order orders.PurchaseOrder) Status {
	for i := len(master.Deliveries) - 1; i >= 0; i-- {
		if master.Deliveries[i].Reversed {
			continue
		}
		if master.Deliveries[i].Return {
			return deriveQuantityStatus(order)
		}
		return DeriveDeliveryStatus(master.Deliveries[i].Lines, master.OrderID != "", order.ForceClosed)
	}
	return PreDeliveryStatus(order.ExpectedDate, s.now())
}

func (s *Service) applyStock(ctx context.Context, sku string, delta int, warehouse, source string, tag catalog.MovementContext) {
	if s.inventory == nil || delta == 0 {
		return
	}
	_, err := s.inventory.ApplyDelta(ctx, catalog.DeltaInput{SKU: sku, Delta: delta, Warehouse: warehouse, Source: source, Context: tag})
	if err != nil {
		// Unknown SKUs happen for manual additions; the ledger entry itself
		// is the authority and stays.
		s.logger.Warn("stock delta not applied", slog.String("sku", sku), slog.Int("delta", delta), slog.Any("error", err))
	}
}

func (s *Service) emitFinalized(ctx context.Context, evt DeliveryFinalizedEvent) {
	if s.integration == nil {
		return
	}
	if err := s.integration.HandleDeliveryFinalized(ctx, evt); err != nil {
		s.logger.Warn("delivery side effects failed", slog.String("batch", evt.BatchID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.NewAuditEntry("", action, "receiving", entityID, meta))
}

func findActiveLine(order *orders.PurchaseOrder, sku string) *orders.Line {
	for i := range order.Lines {
		if order.Lines[i].SKU == sku && !order.Lines[i].Removed {
			return &order.Lines[i]
		}
	}
	return nil
}

func applyReceivedDelta(order *orders.PurchaseOrder, sku string, delta int) {
	if line := findActiveLine(order, sku); line != nil {
		line.QuantityReceived += delta
	}
}

// Package workspace owns the application state: every collection lives
// behind one single-writer gate and is persisted as a JSON blob per
// collection through the store. The workspace implements the repository
// ports of all domain services; store failures are logged and the mutation
// commits regardless, the in-memory state is the authority.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/jecastrom/lager-build-sub000/internal/catalog"
	"github.com/jecastrom/lager-build-sub000/internal/orders"
	"github.com/jecastrom/lager-build-sub000/internal/platform/store"
	"github.com/jecastrom/lager-build-sub000/internal/receiving"
	"github.com/jecastrom/lager-build-sub000/internal/shared"
	"github.com/jecastrom/lager-build-sub000/internal/suppliers"
	"github.com/jecastrom/lager-build-sub000/internal/tickets"
)

// Blob keys, one per collection.
const (
	keyOrders     = "orders"
	keyMasters    = "receipt_masters"
	keyHeaders    = "receipt_headers"
	keyItems      = "stock_items"
	keyStockLogs  = "stock_logs"
	keyTickets    = "tickets"
	keyTimeline   = "timeline"
	keyTrail      = "audit_trail"
	keyAutomation = "ticket_automation"
)

// Workspace is the owned aggregate of all collections. All access goes
// through its methods; callers never hold references into its slices.
type Workspace struct {
	mu       sync.Mutex
	store    store.Store
	logger   *slog.Logger
	auditCap int

	orders    []orders.PurchaseOrder
	masters   []receiving.ReceiptMaster
	headers   []receiving.ReceiptHeader
	items     []catalog.StockItem
	stockLogs []catalog.StockLog
	tickets   []tickets.Ticket
	timeline  []tickets.TimelineComment
	trail     []shared.AuditEntry

	automation    tickets.TriggerConfig
	hasAutomation bool
}

// New constructs an empty workspace on the given store. A zero or negative
// cap falls back to the shared default.
func New(st store.Store, logger *slog.Logger, auditCap int) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	if auditCap <= 0 {
		auditCap = shared.TrailCapDefault
	}
	return &Workspace{store: st, logger: logger, auditCap: auditCap}
}

// Load restores every collection from the store. Missing blobs leave the
// collection empty; corrupt blobs are logged and skipped so one bad key
// never blocks startup.
func (w *Workspace) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	loadBlob(ctx, w, keyOrders, &w.orders)
	loadBlob(ctx, w, keyMasters, &w.masters)
	loadBlob(ctx, w, keyHeaders, &w.headers)
	loadBlob(ctx, w, keyItems, &w.items)
	loadBlob(ctx, w, keyStockLogs, &w.stockLogs)
	loadBlob(ctx, w, keyTickets, &w.tickets)
	loadBlob(ctx, w, keyTimeline, &w.timeline)
	loadBlob(ctx, w, keyTrail, &w.trail)
	w.hasAutomation = loadBlob(ctx, w, keyAutomation, &w.automation)
	return nil
}

func loadBlob[T any](ctx context.Context, w *Workspace, key string, into *T) bool {
	if w.store == nil {
		return false
	}
	blob, err := w.store.Get(ctx, key)
	if errors.Is(err, store.ErrNoBlob) {
		return false
	}
	if err != nil {
		w.logger.Warn("blob not loaded", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if err := json.Unmarshal(blob, into); err != nil {
		w.logger.Warn("blob not decoded", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

// persist serializes one collection. Failures are warnings, never errors:
// the in-memory mutation has already committed.
func (w *Workspace) persist(ctx context.Context, key string, value any) {
	if w.store == nil {
		return
	}
	blob, err := json.Marshal(value)
	if err != nil {
		w.logger.Warn("blob not encoded", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := w.store.Put(ctx, key, blob); err != nil {
		w.logger.Warn("blob not stored", slog.String("key", key), slog.Any("error", err))
	}
}

// --- orders.RepositoryPort / receiving order access ---

// GetOrder returns a defensive copy of the order.
func (w *Workspace) GetOrder(ctx context.Context, id string) (orders.PurchaseOrder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, order := range w.orders {
		if order.ID == id {
			return cloneOrder(order), nil
		}
	}
	return orders.PurchaseOrder{}, orders.ErrNotFound
}

// ListOrders returns copies of all orders.
func (w *Workspace) ListOrders(ctx context.Context) ([]orders.PurchaseOrder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]orders.PurchaseOrder, 0, len(w.orders))
	for _, order := range w.orders {
		out = append(out, cloneOrder(order))
	}
	return out, nil
}

// SaveOrder upserts an order. The collection is replaced copy-on-write.
func (w *Workspace) SaveOrder(ctx context.Context, order orders.PurchaseOrder) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := slices.Clone(w.orders)
	stored := cloneOrder(order)
	if i := slices.IndexFunc(next, func(o orders.PurchaseOrder) bool { return o.ID == order.ID }); i >= 0 {
		next[i] = stored
	} else {
		next = append(next, stored)
	}
	w.orders = next
	w.persist(ctx, keyOrders, w.orders)
	return nil
}

// --- receiving.RepositoryPort ---

// GetMasterByOrder returns the receipt ledger header of an order.
func (w *Workspace) GetMasterByOrder(ctx context.Context, orderID string) (receiving.ReceiptMaster, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if orderID == "" {
		return receiving.ReceiptMaster{}, receiving.ErrNotFound
	}
	for _, master := range w.masters {
		if master.OrderID == orderID {
			return cloneMaster(master), nil
		}
	}
	return receiving.ReceiptMaster{}, receiving.ErrNotFound
}

// SaveMaster upserts a receipt master.
func (w *Workspace) SaveMaster(ctx context.Context, master receiving.ReceiptMaster) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := slices.Clone(w.masters)
	stored := cloneMaster(master)
	if i := slices.IndexFunc(next, func(m receiving.ReceiptMaster) bool { return m.ID == master.ID }); i >= 0 {
		next[i] = stored
	} else {
		next = append(next, stored)
	}
	w.masters = next
	w.persist(ctx, keyMasters, w.masters)
	return nil
}

// AppendHeader adds one receipt row.
func (w *Workspace) AppendHeader(ctx context.Context, header receiving.ReceiptHeader) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.headers = append(slices.Clone(w.headers), header)
	w.persist(ctx, keyHeaders, w.headers)
	return nil
}

// ListHeaders returns the receipt rows of an order.
func (w *Workspace) ListHeaders(ctx context.Context, orderID string) ([]receiving.ReceiptHeader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []receiving.ReceiptHeader
	for _, header := range w.headers {
		if header.OrderID == orderID {
			out = append(out, header)
		}
	}
	return out, nil
}

// SaveHeader replaces a receipt row by batch id.
func (w *Workspace) SaveHeader(ctx context.Context, header receiving.ReceiptHeader) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := slices.Clone(w.headers)
	if i := slices.IndexFunc(next, func(h receiving.ReceiptHeader) bool { return h.BatchID == header.BatchID }); i >= 0 {
		next[i] = header
	} else {
		next = append(next, header)
	}
	w.headers = next
	w.persist(ctx, keyHeaders, w.headers)
	return nil
}

// --- catalog.RepositoryPort ---

// GetItem returns a stock item by id.
func (w *Workspace) GetItem(ctx context.Context, id string) (catalog.StockItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range w.items {
		if item.ID == id {
			return item, nil
		}
	}
	return catalog.StockItem{}, catalog.ErrNotFound
}

// GetItemBySKU returns a stock item by its business key.
func (w *Workspace) GetItemBySKU(ctx context.Context, sku string) (catalog.StockItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, item := range w.items {
		if item.SKU == sku {
			return item, nil
		}
	}
	return catalog.StockItem{}, catalog.ErrNotFound
}

// ListItems returns all catalog entries.
func (w *Workspace) ListItems(ctx context.Context) ([]catalog.StockItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.items), nil
}

// SaveItem upserts a catalog entry.
func (w *Workspace) SaveItem(ctx context.Context, item catalog.StockItem) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := slices.Clone(w.items)
	if i := slices.IndexFunc(next, func(it catalog.StockItem) bool { return it.ID == item.ID }); i >= 0 {
		next[i] = item
	} else {
		next = append(next, item)
	}
	w.items = next
	w.persist(ctx, keyItems, w.items)
	return nil
}

// AppendStockLog adds one immutable movement record.
func (w *Workspace) AppendStockLog(ctx context.Context, log catalog.StockLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stockLogs = append(slices.Clone(w.stockLogs), log)
	w.persist(ctx, keyStockLogs, w.stockLogs)
	return nil
}

// ListStockLogs returns the movements of one item.
func (w *Workspace) ListStockLogs(ctx context.Context, itemID string) ([]catalog.StockLog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []catalog.StockLog
	for _, log := range w.stockLogs {
		if log.ItemID == itemID {
			out = append(out, log)
		}
	}
	return out, nil
}

// --- tickets.RepositoryPort ---

// GetTicket returns a defensive copy of the ticket.
func (w *Workspace) GetTicket(ctx context.Context, id string) (tickets.Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ticket := range w.tickets {
		if ticket.ID == id {
			return cloneTicket(ticket), nil
		}
	}
	return tickets.Ticket{}, tickets.ErrNotFound
}

// ListTickets returns copies of all tickets.
func (w *Workspace) ListTickets(ctx context.Context) ([]tickets.Ticket, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]tickets.Ticket, 0, len(w.tickets))
	for _, ticket := range w.tickets {
		out = append(out, cloneTicket(ticket))
	}
	return out, nil
}

// SaveTicket upserts a ticket.
func (w *Workspace) SaveTicket(ctx context.Context, ticket tickets.Ticket) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := slices.Clone(w.tickets)
	stored := cloneTicket(ticket)
	if i := slices.IndexFunc(next, func(t tickets.Ticket) bool { return t.ID == ticket.ID }); i >= 0 {
		next[i] = stored
	} else {
		next = append(next, stored)
	}
	w.tickets = next
	w.persist(ctx, keyTickets, w.tickets)
	return nil
}

// AppendTimeline adds one synthesized receipt comment.
func (w *Workspace) AppendTimeline(ctx context.Context, comment tickets.TimelineComment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeline = append(slices.Clone(w.timeline), comment)
	w.persist(ctx, keyTimeline, w.timeline)
	return nil
}

// ListTimeline returns the comments of one receipt batch.
func (w *Workspace) ListTimeline(ctx context.Context, batchID string) ([]tickets.TimelineComment, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []tickets.TimelineComment
	for _, comment := range w.timeline {
		if comment.BatchID == batchID {
			out = append(out, comment)
		}
	}
	return out, nil
}

// --- tickets.ConfigPort ---

// TriggerConfig returns the persisted automation configuration, or the
// defaults when none was ever stored.
func (w *Workspace) TriggerConfig(ctx context.Context) (tickets.TriggerConfig, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasAutomation {
		return tickets.DefaultTriggerConfig(), nil
	}
	return w.automation, nil
}

// SeedTriggerConfig installs cfg as the automation configuration when none
// has ever been stored. Startup defaults never override a persisted
// operator choice.
func (w *Workspace) SeedTriggerConfig(ctx context.Context, cfg tickets.TriggerConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasAutomation {
		return nil
	}
	w.automation = cfg
	w.hasAutomation = true
	w.persist(ctx, keyAutomation, w.automation)
	return nil
}

// SetTriggerConfig stores the automation configuration.
func (w *Workspace) SetTriggerConfig(ctx context.Context, cfg tickets.TriggerConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.automation = cfg
	w.hasAutomation = true
	w.persist(ctx, keyAutomation, w.automation)
	return nil
}

// --- suppliers.LedgerPort ---

// ScoringEvents projects the delivery ledger into supplier observations.
// Reversed entries and returns are corrections and never count.
func (w *Workspace) ScoringEvents(ctx context.Context) ([]suppliers.ScoringEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	byID := make(map[string]orders.PurchaseOrder, len(w.orders))
	for _, order := range w.orders {
		byID[order.ID] = order
	}
	var events []suppliers.ScoringEvent
	for _, master := range w.masters {
		order, linked := byID[master.OrderID]
		if !linked {
			continue
		}
		for _, entry := range master.Deliveries {
			if entry.Reversed || entry.Return {
				continue
			}
			evt := suppliers.ScoringEvent{
				Supplier:  order.Supplier,
				Delivered: entry.Date,
				Expected:  order.ExpectedDate,
			}
			for _, line := range entry.Lines {
				evt.Damaged += line.Damaged
				evt.Wrong += line.Wrong
				evt.Open += line.Open
				evt.Overage += line.Overage
			}
			events = append(events, evt)
		}
	}
	return events, nil
}

// --- shared audit port ---

// Record appends one audit entry, trimming the trail to the configured cap.
func (w *Workspace) Record(ctx context.Context, entry shared.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	next := append(slices.Clone(w.trail), entry)
	if len(next) > w.auditCap {
		next = next[len(next)-w.auditCap:]
	}
	w.trail = next
	w.persist(ctx, keyTrail, w.trail)
	return nil
}

// Trail returns a copy of the audit trail, oldest first.
func (w *Workspace) Trail(ctx context.Context) ([]shared.AuditEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.trail), nil
}

// Snapshot is an independent deep copy of every collection, safe to hand
// to rendering and export code while commands keep mutating the workspace.
type Snapshot struct {
	Orders    []orders.PurchaseOrder
	Masters   []receiving.ReceiptMaster
	Headers   []receiving.ReceiptHeader
	Items     []catalog.StockItem
	StockLogs []catalog.StockLog
	Tickets   []tickets.Ticket
	Timeline  []tickets.TimelineComment
	Trail     []shared.AuditEntry
}

// Snapshot copies the current state of all collections.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		Orders:    make([]orders.PurchaseOrder, 0, len(w.orders)),
		Masters:   make([]receiving.ReceiptMaster, 0, len(w.masters)),
		Headers:   slices.Clone(w.headers),
		Items:     slices.Clone(w.items),
		StockLogs: slices.Clone(w.stockLogs),
		Tickets:   make([]tickets.Ticket, 0, len(w.tickets)),
		Timeline:  slices.Clone(w.timeline),
		Trail:     slices.Clone(w.trail),
	}
	for _, order := range w.orders {
		snap.Orders = append(snap.Orders, cloneOrder(order))
	}
	for _, master := range w.masters {
		snap.Masters = append(snap.Masters, cloneMaster(master))
	}
	for _, ticket := range w.tickets {
		snap.Tickets = append(snap.Tickets, cloneTicket(ticket))
	}
	return snap
}

// Reset drops every collection, in memory and in the store.
func (w *Workspace) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.orders, w.masters, w.headers = nil, nil, nil
	w.items, w.stockLogs = nil, nil
	w.tickets, w.timeline, w.trail = nil, nil, nil
	w.hasAutomation = false
	w.automation = tickets.TriggerConfig{}
	if w.store == nil {
		return nil
	}
	for _, key := range []string{keyOrders, keyMasters, keyHeaders, keyItems, keyStockLogs, keyTickets, keyTimeline, keyTrail, keyAutomation} {
		if err := w.store.Delete(ctx, key); err != nil {
			w.logger.Warn("blob not deleted", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

func cloneOrder(order orders.PurchaseOrder) orders.PurchaseOrder {
	order.Lines = slices.Clone(order.Lines)
	return order
}

func cloneMaster(master receiving.ReceiptMaster) receiving.ReceiptMaster {
	deliveries := make([]receiving.DeliveryLog, len(master.Deliveries))
	for i, entry := range master.Deliveries {
		entry.Lines = slices.Clone(entry.Lines)
		deliveries[i] = entry
	}
	master.Deliveries = deliveries
	return master
}

func cloneTicket(ticket tickets.Ticket) tickets.Ticket {
	ticket.Messages = slices.Clone(ticket.Messages)
	return ticket
}

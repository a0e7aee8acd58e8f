package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jecastrom/lager-build-sub000/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// systemAuthor names the generator and cascade messages.
const systemAuthor = "System"

// RepositoryPort abstracts workspace storage for tickets.
type RepositoryPort interface {
	GetTicket(ctx context.Context, id string) (Ticket, error)
	ListTickets(ctx context.Context) ([]Ticket, error)
	SaveTicket(ctx context.Context, ticket Ticket) error
	AppendTimeline(ctx context.Context, comment TimelineComment) error
}

// AuditPort records workspace commands.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service owns ticket lifecycle operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the ticket service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// CreateInput describes a new ticket.
type CreateInput struct {
	BatchID  string
	OrderID  string
	Supplier string
	Subject  string `validate:"required"`
	Priority Priority
	Body     string
	Author   string
	System   bool
}

// Create opens a new ticket with its first message.
func (s *Service) Create(ctx context.Context, input CreateInput) (Ticket, error) {
	if err := validate.Struct(input); err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.Priority == "" {
		input.Priority = PriorityNormal
	}
	author := input.Author
	if author == "" {
		author = systemAuthor
	}
	now := s.now()
	ticket := Ticket{
		ID:        uuid.NewString(),
		BatchID:   input.BatchID,
		OrderID:   input.OrderID,
		Supplier:  input.Supplier,
		Subject:   input.Subject,
		Status:    StatusOpen,
		Priority:  input.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.Body != "" {
		ticket.Messages = append(ticket.Messages, Message{
			ID:     uuid.NewString(),
			Author: author,
			Text:   input.Body,
			System: input.System,
			At:     now,
		})
	}
	if err := s.repo.SaveTicket(ctx, ticket); err != nil {
		return Ticket{}, err
	}
	s.recordAudit(ctx, "TICKET_CREATE", ticket.ID, map[string]any{"subject": ticket.Subject, "batch": ticket.BatchID})
	return ticket, nil
}

// AppendMessage adds a user or system message to an open ticket.
func (s *Service) AppendMessage(ctx context.Context, ticketID, author, text string, system bool) (Ticket, error) {
	if text == "" {
		return Ticket{}, fmt.Errorf("%w: empty message", ErrValidation)
	}
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	if !ticket.Open() {
		return Ticket{}, fmt.Errorf("%w: ticket %s is closed", ErrInvalidState, ticketID)
	}
	if author == "" {
		author = systemAuthor
	}
	now := s.now()
	ticket.Messages = append(ticket.Messages, Message{
		ID:     uuid.NewString(),
		Author: author,
		Text:   text,
		System: system,
		At:     now,
	})
	ticket.UpdatedAt = now
	if err := s.repo.SaveTicket(ctx, ticket); err != nil {
		return Ticket{}, err
	}
	return ticket, nil
}

// Close sets a ticket Closed. Closing an already closed ticket is a no-op.
func (s *Service) Close(ctx context.Context, ticketID string) (Ticket, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	if !ticket.Open() {
		return ticket, nil
	}
	ticket.Status = StatusClosed
	ticket.UpdatedAt = s.now()
	if err := s.repo.SaveTicket(ctx, ticket); err != nil {
		return Ticket{}, err
	}
	s.recordAudit(ctx, "TICKET_CLOSE", ticket.ID, nil)
	return ticket, nil
}

// CloseForBatches closes every open ticket linked to one of the given
// receipt batches, appending exactly one system message per ticket. Already
// closed tickets are skipped, which keeps cascades idempotent. Returns the
// number of tickets actually closed.
func (s *Service) CloseForBatches(ctx context.Context, batchIDs []string, note string) (int, error) {
	if len(batchIDs) == 0 {
		return 0, nil
	}
	wanted := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		wanted[id] = true
	}
	all, err := s.repo.ListTickets(ctx)
	if err != nil {
		return 0, err
	}
	closed := 0
	now := s.now()
	for _, ticket := range all {
		if !wanted[ticket.BatchID] || !ticket.Open() {
			continue
		}
		ticket.Messages = append(ticket.Messages, Message{
			ID:     uuid.NewString(),
			Author: systemAuthor,
			Text:   note,
			System: true,
			At:     now,
		})
		ticket.Status = StatusClosed
		ticket.UpdatedAt = now
		if err := s.repo.SaveTicket(ctx, ticket); err != nil {
			return closed, err
		}
		closed++
	}
	if closed > 0 {
		s.recordAudit(ctx, "TICKET_CASCADE_CLOSE", "", map[string]any{"closed": closed})
	}
	return closed, nil
}

// AddTimelineComment appends one synthesized comment to a receipt batch.
func (s *Service) AddTimelineComment(ctx context.Context, batchID, text string) (TimelineComment, error) {
	if batchID == "" || text == "" {
		return TimelineComment{}, fmt.Errorf("%w: batch id and text required", ErrValidation)
	}
	comment := TimelineComment{
		ID:      uuid.NewString(),
		BatchID: batchID,
		Author:  systemAuthor,
		Text:    text,
		At:      s.now(),
	}
	if err := s.repo.AppendTimeline(ctx, comment); err != nil {
		return TimelineComment{}, err
	}
	return comment, nil
}

// ListOpen returns all open tickets.
func (s *Service) ListOpen(ctx context.Context) ([]Ticket, error) {
	all, err := s.repo.ListTickets(ctx)
	if err != nil {
		return nil, err
	}
	var open []Ticket
	for _, ticket := range all {
		if ticket.Open() {
			open = append(open, ticket)
		}
	}
	return open, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.NewAuditEntry("", action, "tickets", entityID, meta))
}

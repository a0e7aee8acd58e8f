package tickets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryTicketRepo struct {
	tickets  map[string]Ticket
	order    []string
	timeline []TimelineComment
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{tickets: make(map[string]Ticket)}
}

func (r *memoryTicketRepo) GetTicket(ctx context.Context, id string) (Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return Ticket{}, ErrNotFound
	}
	return ticket, nil
}

func (r *memoryTicketRepo) ListTickets(ctx context.Context) ([]Ticket, error) {
	out := make([]Ticket, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tickets[id])
	}
	return out, nil
}

func (r *memoryTicketRepo) SaveTicket(ctx context.Context, ticket Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		r.order = append(r.order, ticket.ID)
	}
	r.tickets[ticket.ID] = ticket
	return nil
}

func (r *memoryTicketRepo) AppendTimeline(ctx context.Context, comment TimelineComment) error {
	r.timeline = append(r.timeline, comment)
	return nil
}

func TestCreateAndThread(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, CreateInput{
		BatchID: "batch-1",
		Subject: "Beschädigung: Lieferschein LS-1",
		Body:    "2 Stück beschädigt",
		System:  true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOpen, ticket.Status)
	require.Equal(t, PriorityNormal, ticket.Priority)
	require.Len(t, ticket.Messages, 1)
	require.True(t, ticket.Messages[0].System)
	require.Equal(t, "System", ticket.Messages[0].Author)

	ticket, err = svc.AppendMessage(ctx, ticket.ID, "mara", "Lieferant kontaktiert", false)
	require.NoError(t, err)
	require.Len(t, ticket.Messages, 2)
	require.False(t, ticket.Messages[1].System)

	_, err = svc.Create(ctx, CreateInput{BatchID: "batch-1"})
	require.ErrorIs(t, err, ErrValidation, "subject is required")
}

func TestCloseIsTerminal(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, CreateInput{Subject: "Fall"})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)

	// Closing again is a no-op, not an error.
	again, err := svc.Close(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, again.Status)

	_, err = svc.AppendMessage(ctx, ticket.ID, "mara", "zu spät", false)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCloseForBatchesIdempotent(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{BatchID: "batch-1", Subject: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateInput{BatchID: "batch-2", Subject: "B"})
	require.NoError(t, err)
	unrelated, err := svc.Create(ctx, CreateInput{BatchID: "batch-9", Subject: "C"})
	require.NoError(t, err)

	closed, err := svc.CloseForBatches(ctx, []string{"batch-1", "batch-2"}, "Bestellung archiviert, Vorgang geschlossen.")
	require.NoError(t, err)
	require.Equal(t, 2, closed)

	for _, id := range []string{a.ID, b.ID} {
		ticket, err := repo.GetTicket(ctx, id)
		require.NoError(t, err)
		require.Equal(t, StatusClosed, ticket.Status)
		require.Len(t, ticket.Messages, 1)
		require.True(t, ticket.Messages[0].System)
	}

	// Re-running the cascade closes nothing and appends no second message.
	closed, err = svc.CloseForBatches(ctx, []string{"batch-1", "batch-2"}, "Bestellung archiviert, Vorgang geschlossen.")
	require.NoError(t, err)
	require.Zero(t, closed)
	ticket, err := repo.GetTicket(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, ticket.Messages, 1)

	still, err := repo.GetTicket(ctx, unrelated.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, still.Status)
}

func TestListOpen(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Subject: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Subject: "B"})
	require.NoError(t, err)
	_, err = svc.Close(ctx, a.ID)
	require.NoError(t, err)

	open, err := svc.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "B", open[0].Subject)
}

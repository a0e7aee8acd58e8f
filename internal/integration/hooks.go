// Package integration wires receiving events into their downstream
// consumers without the domains importing each other.
package integration

import (
	"context"

	"github.com/jecastrom/lager-build-sub000/internal/receiving"
	"github.com/jecastrom/lager-build-sub000/internal/tickets"
)

// Hooks adapts finalized deliveries into the ticket generator's report
// shape. It satisfies receiving.IntegrationHandler.
type Hooks struct {
	generator *tickets.Generator
}

// NewHooks constructs the event adapter.
func NewHooks(generator *tickets.Generator) *Hooks {
	return &Hooks{generator: generator}
}

// HandleDeliveryFinalized converts the event and runs the generator. The
// generator logs its own failures; posting never observes them.
func (h *Hooks) HandleDeliveryFinalized(ctx context.Context, evt receiving.DeliveryFinalizedEvent) error {
	if h.generator == nil {
		return nil
	}
	h.generator.Apply(ctx, toReport(evt))
	return nil
}

func toReport(evt receiving.DeliveryFinalizedEvent) tickets.DeliveryReport {
	report := tickets.DeliveryReport{
		BatchID:    evt.BatchID,
		OrderID:    evt.OrderID,
		Supplier:   evt.Supplier,
		NoteNumber: evt.NoteNumber,
		Date:       evt.Date,
	}
	for _, line := range evt.Lines {
		other := 0
		if line.Reason == receiving.ReasonOther {
			other = line.Rejected
		}
		reportLine := tickets.ReportLine{
			SKU:           line.SKU,
			Name:          line.Name,
			Received:      line.Received,
			Accepted:      line.Accepted,
			Damaged:       line.Damaged,
			Wrong:         line.Wrong,
			OtherRejected: other,
			Note:          line.Note,
			Linked:        line.Linked,
			Ordered:       line.Ordered,
			Open:          line.Open,
			Overage:       line.Overage,
			TotalAccepted: line.TotalAccepted(),
		}
		if line.Return != nil {
			reportLine.Return = &tickets.ReturnNote{
				Carrier:    line.Return.Carrier,
				TrackingID: line.Return.TrackingID,
				Reason:     line.Return.Reason,
			}
		}
		report.Lines = append(report.Lines, reportLine)
	}
	return report
}

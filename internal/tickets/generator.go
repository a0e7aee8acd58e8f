package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TriggerConfig steers which findings become tickets and which are written
// to the receipt timeline instead of (or alongside) a ticket. Persisted as
// one JSON blob so operators can retune automation without a redeploy.
type TriggerConfig struct {
	TicketOnDamage   bool `json:"ticketOnDamage"`
	TicketOnWrong    bool `json:"ticketOnWrong"`
	TicketOnRejected bool `json:"ticketOnRejected"`
	TicketOnShortage bool `json:"ticketOnShortage"`
	TicketOnOverage  bool `json:"ticketOnOverage"`

	TimelineDamage   bool `json:"timelineDamage"`
	TimelineWrong    bool `json:"timelineWrong"`
	TimelineShortage bool `json:"timelineShortage"`
	TimelineOverage  bool `json:"timelineOverage"`
	TimelineOther    bool `json:"timelineOther"`
}

// DefaultTriggerConfig opens tickets for every finding and leaves the
// timeline alone.
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		TicketOnDamage:   true,
		TicketOnWrong:    true,
		TicketOnRejected: true,
		TicketOnShortage: true,
		TicketOnOverage:  true,
	}
}

// ConfigPort loads the persisted automation configuration.
type ConfigPort interface {
	TriggerConfig(ctx context.Context) (TriggerConfig, error)
}

// ReturnNote carries supplier-return metadata on a report line.
type ReturnNote struct {
	Carrier    string
	TrackingID string
	Reason     string
}

// ReportLine is one reconciled delivery line as the generator sees it.
type ReportLine struct {
	SKU           string
	Name          string
	Received      int
	Accepted      int
	Damaged       int
	Wrong         int
	OtherRejected int
	Note          string
	Linked        bool
	Ordered       int
	Open          int
	Overage       int
	TotalAccepted int
	Return        *ReturnNote
}

// DeliveryReport is one finalized receiving event.
type DeliveryReport struct {
	BatchID    string
	OrderID    string
	Supplier   string
	NoteNumber string
	Date       time.Time
	Lines      []ReportLine
}

// Outcome reports what the generator produced for one finalization.
type Outcome struct {
	TicketIDs          []string
	QualityTicket      bool
	ShortageTicket     bool
	ShortageSuppressed bool
	OverageTicket      bool
	TimelinePosted     bool
}

// Generator turns finalized deliveries into complaint tickets and timeline
// comments. It runs once per finalization, never for returns or reversals,
// and is strictly additive: a failure here never rolls back the posting.
type Generator struct {
	tickets *Service
	config  ConfigPort
	logger  *slog.Logger
}

// NewGenerator constructs the side-effect generator. A nil config port
// falls back to DefaultTriggerConfig.
func NewGenerator(tickets *Service, config ConfigPort, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{tickets: tickets, config: config, logger: logger}
}

// Apply scans the reconciled lines against the configured triggers.
//
// Quality findings (damage, wrong item, other rejections) group into one
// ticket per event. A shortage ticket is suppressed when a quality ticket
// was created, so one delivery never spawns two competing cases. Overage
// gets its own ticket independent of both. Categories steered into the
// timeline are grouped into labeled sections of a single comment.
func (g *Generator) Apply(ctx context.Context, report DeliveryReport) Outcome {
	cfg := g.loadConfig(ctx)
	var out Outcome

	quality := g.qualityLines(cfg, report.Lines)
	if len(quality) > 0 {
		if id, ok := g.createQualityTicket(ctx, report, quality); ok {
			out.TicketIDs = append(out.TicketIDs, id)
			out.QualityTicket = true
		}
	}

	shortage := linesWhere(report.Lines, func(l ReportLine) bool { return l.Linked && l.Open > 0 })
	if len(shortage) > 0 && cfg.TicketOnShortage {
		if out.QualityTicket {
			out.ShortageSuppressed = true
		} else if id, ok := g.createShortageTicket(ctx, report, shortage); ok {
			out.TicketIDs = append(out.TicketIDs, id)
			out.ShortageTicket = true
		}
	}

	overage := linesWhere(report.Lines, func(l ReportLine) bool { return l.Linked && l.TotalAccepted > l.Ordered })
	if len(overage) > 0 && cfg.TicketOnOverage {
		if id, ok := g.createOverageTicket(ctx, report, overage); ok {
			out.TicketIDs = append(out.TicketIDs, id)
			out.OverageTicket = true
		}
	}

	if comment := g.timelineComment(cfg, report.Lines); comment != "" {
		if _, err := g.tickets.AddTimelineComment(ctx, report.BatchID, comment); err != nil {
			g.logger.Warn("timeline comment not written", slog.String("batch", report.BatchID), slog.Any("error", err))
		} else {
			out.TimelinePosted = true
		}
	}
	return out
}

func (g *Generator) loadConfig(ctx context.Context) TriggerConfig {
	if g.config == nil {
		return DefaultTriggerConfig()
	}
	cfg, err := g.config.TriggerConfig(ctx)
	if err != nil {
		g.logger.Warn("automation config unavailable, using defaults", slog.Any("error", err))
		return DefaultTriggerConfig()
	}
	return cfg
}

// qualityLines filters lines whose defects are ticket-enabled.
func (g *Generator) qualityLines(cfg TriggerConfig, lines []ReportLine) []ReportLine {
	return linesWhere(lines, func(l ReportLine) bool {
		switch {
		case l.Damaged > 0 && cfg.TicketOnDamage:
			return true
		case l.Wrong > 0 && cfg.TicketOnWrong:
			return true
		case l.OtherRejected > 0 && cfg.TicketOnRejected:
			return true
		}
		return false
	})
}

func (g *Generator) createQualityTicket(ctx context.Context, report DeliveryReport, lines []ReportLine) (string, bool) {
	var kinds []string
	if anyLine(lines, func(l ReportLine) bool { return l.Damaged > 0 }) {
		kinds = append(kinds, "Beschädigung")
	}
	if anyLine(lines, func(l ReportLine) bool { return l.Wrong > 0 }) {
		kinds = append(kinds, "Falschlieferung")
	}
	if anyLine(lines, func(l ReportLine) bool { return l.OtherRejected > 0 }) {
		kinds = append(kinds, "Reklamation")
	}
	subject := fmt.Sprintf("%s: Lieferschein %s", strings.Join(kinds, " + "), report.NoteNumber)

	var body strings.Builder
	writeHeader(&body, report)
	for _, line := range lines {
		var parts []string
		if line.Damaged > 0 {
			parts = append(parts, fmt.Sprintf("%d beschädigt", line.Damaged))
		}
		if line.Wrong > 0 {
			parts = append(parts, fmt.Sprintf("%d falsch geliefert", line.Wrong))
		}
		if line.OtherRejected > 0 {
			parts = append(parts, fmt.Sprintf("%d abgelehnt", line.OtherRejected))
		}
		fmt.Fprintf(&body, "- %s %s: %s", line.SKU, line.Name, strings.Join(parts, ", "))
		if line.Note != "" {
			fmt.Fprintf(&body, " (Anmerkung: %s)", line.Note)
		}
		body.WriteString("\n")
	}
	appendReturnNote(&body, lines)

	return g.create(ctx, report, subject, body.String(), PriorityHigh)
}

func (g *Generator) createShortageTicket(ctx context.Context, report DeliveryReport, lines []ReportLine) (string, bool) {
	subject := fmt.Sprintf("Fehlmenge: Lieferschein %s", report.NoteNumber)
	var body strings.Builder
	writeHeader(&body, report)
	for _, line := range lines {
		fmt.Fprintf(&body, "- %s %s: %d von %d offen\n", line.SKU, line.Name, line.Open, line.Ordered)
	}
	appendReturnNote(&body, lines)
	return g.create(ctx, report, subject, body.String(), PriorityNormal)
}

func (g *Generator) createOverageTicket(ctx context.Context, report DeliveryReport, lines []ReportLine) (string, bool) {
	subject := fmt.Sprintf("Überlieferung: Lieferschein %s", report.NoteNumber)
	var body strings.Builder
	writeHeader(&body, report)
	for _, line := range lines {
		fmt.Fprintf(&body, "- %s %s: %d geliefert, %d bestellt\n", line.SKU, line.Name, line.TotalAccepted, line.Ordered)
	}
	appendReturnNote(&body, lines)
	return g.create(ctx, report, subject, body.String(), PriorityNormal)
}

func (g *Generator) create(ctx context.Context, report DeliveryReport, subject, body string, priority Priority) (string, bool) {
	ticket, err := g.tickets.Create(ctx, CreateInput{
		BatchID:  report.BatchID,
		OrderID:  report.OrderID,
		Supplier: report.Supplier,
		Subject:  subject,
		Priority: priority,
		Body:     body,
		System:   true,
	})
	if err != nil {
		g.logger.Warn("ticket not created", slog.String("subject", subject), slog.Any("error", err))
		return "", false
	}
	return ticket.ID, true
}

// timelineComment builds the labeled sections for the categories steered
// into the timeline. Empty when nothing is enabled or nothing matched.
func (g *Generator) timelineComment(cfg TriggerConfig, lines []ReportLine) string {
	var sections []string
	if cfg.TimelineDamage {
		sections = appendSection(sections, "Beschädigung", lines,
			func(l ReportLine) bool { return l.Damaged > 0 },
			func(l ReportLine) string { return fmt.Sprintf("%s %s: %d beschädigt", l.SKU, l.Name, l.Damaged) })
	}
	if cfg.TimelineWrong {
		sections = appendSection(sections, "Falschlieferung", lines,
			func(l ReportLine) bool { return l.Wrong > 0 },
			func(l ReportLine) string { return fmt.Sprintf("%s %s: %d falsch geliefert", l.SKU, l.Name, l.Wrong) })
	}
	if cfg.TimelineShortage {
		sections = appendSection(sections, "Fehlmenge", lines,
			func(l ReportLine) bool { return l.Linked && l.Open > 0 },
			func(l ReportLine) string { return fmt.Sprintf("%s %s: %d offen", l.SKU, l.Name, l.Open) })
	}
	if cfg.TimelineOverage {
		sections = appendSection(sections, "Überlieferung", lines,
			func(l ReportLine) bool { return l.Linked && l.TotalAccepted > l.Ordered },
			func(l ReportLine) string {
				return fmt.Sprintf("%s %s: %d über Bestellmenge", l.SKU, l.Name, l.TotalAccepted-l.Ordered)
			})
	}
	if cfg.TimelineOther {
		sections = appendSection(sections, "Sonstiges", lines,
			func(l ReportLine) bool { return l.OtherRejected > 0 },
			func(l ReportLine) string { return fmt.Sprintf("%s %s: %d abgelehnt", l.SKU, l.Name, l.OtherRejected) })
	}
	return strings.Join(sections, "\n")
}

func appendSection(sections []string, label string, lines []ReportLine, match func(ReportLine) bool, format func(ReportLine) string) []string {
	var entries []string
	for _, line := range lines {
		if match(line) {
			entries = append(entries, "- "+format(line))
		}
	}
	if len(entries) == 0 {
		return sections
	}
	return append(sections, label+":\n"+strings.Join(entries, "\n"))
}

func writeHeader(body *strings.Builder, report DeliveryReport) {
	if report.OrderID != "" {
		fmt.Fprintf(body, "Bestellung: %s\n", report.OrderID)
	}
	if report.Supplier != "" {
		fmt.Fprintf(body, "Lieferant: %s\n", report.Supplier)
	}
	fmt.Fprintf(body, "Lieferschein: %s\n", report.NoteNumber)
	if !report.Date.IsZero() {
		fmt.Fprintf(body, "Lieferdatum: %s\n", report.Date.Format("02.01.2006"))
	}
	body.WriteString("\n")
}

// appendReturnNote adds the supplier-return sub-message when any triggering
// line carries return metadata.
func appendReturnNote(body *strings.Builder, lines []ReportLine) {
	for _, line := range lines {
		if line.Return == nil {
			continue
		}
		fmt.Fprintf(body, "\nRücksendung: %s", line.SKU)
		if line.Return.Carrier != "" {
			fmt.Fprintf(body, ", Versand: %s", line.Return.Carrier)
		}
		if line.Return.TrackingID != "" {
			fmt.Fprintf(body, ", Sendungsnummer: %s", line.Return.TrackingID)
		}
		if line.Return.Reason != "" {
			fmt.Fprintf(body, ", Grund: %s", line.Return.Reason)
		}
		body.WriteString("\n")
	}
}

func linesWhere(lines []ReportLine, match func(ReportLine) bool) []ReportLine {
	var out []ReportLine
	for _, line := range lines {
		if match(line) {
			out = append(out, line)
		}
	}
	return out
}

func anyLine(lines []ReportLine, match func(ReportLine) bool) bool {
	for _, line := range lines {
		if match(line) {
			return true
		}
	}
	return false
}

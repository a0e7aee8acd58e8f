package orders

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Bulk-text import. Suppliers mail order confirmations as free text; these
// heuristics lift out the fields a manually entered order would carry. The
// result feeds CreateOrder unchanged.

var (
	poTokenPattern = regexp.MustCompile(`\b((?:PO|BST)-[A-Za-z0-9-]+)\b`)
	orderIDPattern = regexp.MustCompile(`(?i)\b(?:bestellung|bestell-?nr\.?|auftrag|order)\s*[:#-]?\s*([A-Za-z0-9][\w/-]*)`)
	datePattern    = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`)
	supplierLine   = regexp.MustCompile(`(?i)^(?:lieferant|firma|supplier)\s*[:\-]\s*(.+)$`)
	qtyLinePattern = regexp.MustCompile(`^(\d+)\s*[xX×*]\s*(\S+)(?:\s+(.+))?$`)
	skuQtyPattern  = regexp.MustCompile(`^([A-Za-z]{2,}[-_]?\w+)\s+(\d+)\s*(?:St(?:k|ück)?\.?)?(?:\s+(.+))?$`)
)

// ParseOrderText extracts a purchase order from pasted free text. It returns
// ErrUnparsable when no line items can be recognised.
func ParseOrderText(text string) (CreateOrderInput, error) {
	input := CreateOrderInput{}
	var fallbackSupplier string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := supplierLine.FindStringSubmatch(line); m != nil {
			input.Supplier = strings.TrimSpace(m[1])
			continue
		}
		if m := qtyLinePattern.FindStringSubmatch(line); m != nil {
			qty, _ := strconv.Atoi(m[1])
			if qty > 0 {
				input.Lines = append(input.Lines, LineInput{SKU: m[2], Name: strings.TrimSpace(m[3]), Quantity: qty})
				continue
			}
		}
		if m := skuQtyPattern.FindStringSubmatch(line); m != nil && !looksLikeOrderID(line) {
			qty, _ := strconv.Atoi(m[2])
			if qty > 0 {
				input.Lines = append(input.Lines, LineInput{SKU: m[1], Name: strings.TrimSpace(m[3]), Quantity: qty})
				continue
			}
		}
		if input.ID == "" {
			if id := extractOrderID(line); id != "" {
				input.ID = id
				continue
			}
		}
		if fallbackSupplier == "" && !datePattern.MatchString(line) {
			fallbackSupplier = line
		}
	}

	if input.Supplier == "" {
		input.Supplier = fallbackSupplier
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		input.ExpectedDate = parseGermanDate(m[1], m[2], m[3])
	}
	if len(input.Lines) == 0 || input.Supplier == "" {
		return CreateOrderInput{}, ErrUnparsable
	}
	return input, nil
}

func extractOrderID(line string) string {
	if m := poTokenPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := orderIDPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

func looksLikeOrderID(line string) bool {
	return poTokenPattern.MatchString(line) || orderIDPattern.MatchString(line)
}

func parseGermanDate(day, month, year string) time.Time {
	d, _ := strconv.Atoi(day)
	m, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	if y < 100 {
		y += 2000
	}
	if d < 1 || d > 31 || m < 1 || m > 12 {
		return time.Time{}
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
}

package receiving

import (
	"time"

	"github.com/jecastrom/lager-build-sub000/internal/orders"
)

// DeriveDeliveryStatus computes the receipt status of a single posting.
// Rules apply in strict priority order, first match wins:
//
//  1. every counted line fully rejected        -> Rejected
//  2. any line damaged and wrong               -> Damaged+Wrong
//  3. any line damaged                         -> Damaged
//  4. any line wrong-item                      -> Wrong-Item
//  5. order-linked quantity math               -> Overage / Partial / Booked
//  6. unlinked: any rejection                  -> Partial, else Booked
//
// A force-closed order short-circuits rules 5 and 6 to Booked; the quality
// rules still apply.
func DeriveDeliveryStatus(lines []DeliveryLine, linked, forceClosed bool) Status {
	counted := 0
	fullyRejected := 0
	anyDamaged, anyWrong, anyBoth, anyRejected := false, false, false, false
	for _, line := range lines {
		if line.Received > 0 {
			counted++
			if line.Rejected == line.Received {
				fullyRejected++
			}
		}
		if line.Rejected > 0 {
			anyRejected = true
		}
		switch {
		case line.Damaged > 0 && line.Wrong > 0:
			anyBoth = true
		case line.Damaged > 0:
			anyDamaged = true
		case line.Wrong > 0:
			anyWrong = true
		}
	}

	switch {
	case counted > 0 && fullyRejected == counted:
		return StatusRejected
	case anyBoth:
		return StatusDamagedWrong
	case anyDamaged:
		return StatusDamaged
	case anyWrong:
		return StatusWrongItem
	}

	if forceClosed {
		return StatusBooked
	}
	if linked {
		anyOver, anyUnder := false, false
		for _, line := range lines {
			if !line.Linked {
				continue
			}
			if line.Overage > 0 {
				anyOver = true
			}
			if line.Open > 0 {
				anyUnder = true
			}
		}
		switch {
		case anyOver:
			return StatusOverage
		case anyUnder:
			return StatusPartial
		default:
			return StatusBooked
		}
	}
	if anyRejected {
		return StatusPartial
	}
	return StatusBooked
}

// DeriveOrderStatus recomputes the purchase order lifecycle status from its
// line totals. Identity statuses (Project/Stock) and the explicit Cancelled
// status are never overwritten; a force-closed order reads Completed.
func DeriveOrderStatus(order orders.PurchaseOrder) orders.Status {
	if order.Status.Identity() || order.Status == orders.StatusCancelled {
		return order.Status
	}
	if order.ForceClosed {
		return orders.StatusCompleted
	}
	lines := order.ActiveLines()
	if len(lines) == 0 {
		return orders.StatusOpen
	}
	allFull := true
	anyReceived := false
	for _, line := range lines {
		if line.QuantityReceived > 0 {
			anyReceived = true
		}
		if line.QuantityReceived < line.Quantity {
			allFull = false
		}
	}
	switch {
	case allFull:
		return orders.StatusCompleted
	case anyReceived:
		return orders.StatusPartial
	default:
		return orders.StatusOpen
	}
}

// PreDeliveryStatus computes the waiting badge from the expected delivery
// date relative to today. A missing date reads Awaiting Delivery.
func PreDeliveryStatus(expected, today time.Time) Status {
	if expected.IsZero() {
		return StatusAwaiting
	}
	expectedDay := truncateDay(expected)
	todayDay := truncateDay(today)
	switch {
	case expectedDay.Before(todayDay):
		return StatusOverdue
	case expectedDay.Equal(todayDay):
		return StatusToday
	case expectedDay.Equal(todayDay.AddDate(0, 0, 1)):
		return StatusTomorrow
	default:
		return StatusAwaiting
	}
}

// deriveQuantityStatus derives the pure quantity view of an order's receipt
// state, used after reversals and returns when defect flags of historical
// entries no longer describe the current totals.
func deriveQuantityStatus(order orders.PurchaseOrder) Status {
	anyOver, anyUnder := false, false
	for _, line := range order.ActiveLines() {
		if line.QuantityReceived > line.Quantity {
			anyOver = true
		}
		if line.QuantityReceived < line.Quantity {
			anyUnder = true
		}
	}
	switch {
	case anyOver:
		return StatusOverage
	case anyUnder:
		return StatusPartial
	default:
		return StatusBooked
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

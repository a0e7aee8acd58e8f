package receiving

// LineInput is what the inspection step collects per SKU: the physical count
// and the damaged/wrong splits. Inputs arrive from bounded steppers, so the
// arithmetic here never fails; it only derives.
type LineInput struct {
	SKU            string       `validate:"required"`
	Name           string
	Received       int          `validate:"min=0"`
	Damaged        int          `validate:"min=0"`
	Wrong          int          `validate:"min=0"`
	Reason         RejectReason `validate:"omitempty,oneof=DAMAGED WRONG_ITEM OVERDELIVERY OTHER"`
	Note           string
	Return         *ReturnInfo
	ManualAddition bool
}

// Reconcile derives the accepted/rejected/open/overage split for one line.
//
//	rejected = damaged + wrong
//	accepted = received - rejected
//	open     = max(0, ordered - (previouslyAccepted + accepted))
//	overage  = max(0, (previouslyAccepted + accepted) - ordered)
//
// Accepted is deliberately not clamped: a negative accepted quantity
// represents a net stock decrease in correction flows. Open and overage only
// apply to order-linked lines.
func Reconcile(in LineInput, ordered, previouslyAccepted int, linked bool) DeliveryLine {
	rejected := in.Damaged + in.Wrong
	accepted := in.Received - rejected

	line := DeliveryLine{
		SKU:            in.SKU,
		Name:           in.Name,
		Received:       in.Received,
		Accepted:       accepted,
		Rejected:       rejected,
		Damaged:        in.Damaged,
		Wrong:          in.Wrong,
		Reason:         deriveReason(in),
		Note:           in.Note,
		Return:         in.Return,
		ManualAddition: in.ManualAddition,
		Linked:         linked,
	}
	if linked {
		total := previouslyAccepted + accepted
		line.Ordered = ordered
		line.PreviouslyReceived = previouslyAccepted
		line.Open = max(0, ordered-total)
		line.Overage = max(0, total-ordered)
	}
	return line
}

// deriveReason keeps an explicit reason when the inspector picked one;
// otherwise damage takes label priority over wrong-item.
func deriveReason(in LineInput) RejectReason {
	if in.Reason != ReasonNone {
		return in.Reason
	}
	if in.Damaged > 0 {
		return ReasonDamaged
	}
	if in.Wrong > 0 {
		return ReasonWrong
	}
	return ReasonNone
}

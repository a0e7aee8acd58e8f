package receiving

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcileIdentity(t *testing.T) {
	// accepted + rejected == received holds whenever damaged+wrong <= received.
	for received := 0; received <= 6; received++ {
		for damaged := 0; damaged <= received; damaged++ {
			for wrong := 0; wrong <= received-damaged; wrong++ {
				line := Reconcile(LineInput{SKU: "X", Received: received, Damaged: damaged, Wrong: wrong}, 10, 0, true)
				require.Equal(t, damaged+wrong, line.Rejected)
				require.Equal(t, received, line.Accepted+line.Rejected)
			}
		}
	}
}

func TestReconcileOpenOverageExclusive(t *testing.T) {
	for ordered := 0; ordered <= 5; ordered++ {
		for previous := 0; previous <= 8; previous++ {
			for received := 0; received <= 8; received++ {
				line := Reconcile(LineInput{SKU: "X", Received: received}, ordered, previous, true)
				require.False(t, line.Open > 0 && line.Overage > 0, "open and overage must be exclusive")
				require.Equal(t, previous+received, line.TotalAccepted())
			}
		}
	}
}

func TestReconcileNegativeAcceptedAllowed(t *testing.T) {
	// Correction flows may reject more than was counted; accepted goes
	// negative instead of clamping.
	line := Reconcile(LineInput{SKU: "X", Received: 2, Damaged: 2, Wrong: 1}, 10, 5, true)
	require.Equal(t, -1, line.Accepted)
	require.Equal(t, 3, line.Rejected)
	require.Equal(t, 4, line.TotalAccepted())
	require.Equal(t, 6, line.Open)
	require.Equal(t, 0, line.Overage)
}

func TestReconcileReasonPriority(t *testing.T) {
	both := Reconcile(LineInput{SKU: "X", Received: 5, Damaged: 1, Wrong: 1}, 10, 0, true)
	require.Equal(t, ReasonDamaged, both.Reason, "damage takes label priority")

	wrongOnly := Reconcile(LineInput{SKU: "X", Received: 5, Wrong: 2}, 10, 0, true)
	require.Equal(t, ReasonWrong, wrongOnly.Reason)

	clean := Reconcile(LineInput{SKU: "X", Received: 5}, 10, 0, true)
	require.Equal(t, ReasonNone, clean.Reason)

	override := Reconcile(LineInput{SKU: "X", Received: 5, Damaged: 1, Reason: ReasonOther}, 10, 0, true)
	require.Equal(t, ReasonOther, override.Reason)
}

func TestReconcileUnlinkedHasNoOpenOverage(t *testing.T) {
	line := Reconcile(LineInput{SKU: "X", Received: 7}, 0, 0, false)
	require.False(t, line.Linked)
	require.Zero(t, line.Open)
	require.Zero(t, line.Overage)
	require.Zero(t, line.Ordered)
}

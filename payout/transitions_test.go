package payout

import "testing"

func TestGraph_NoRetryFromFailed(t *testing.T) {
	// A failed batch may have partially succeeded at the bank; resubmitting
	// it risks paying twice. The table must offer no way back.
	for _, target := range Graph.Statuses() {
		if Graph.IsLegal(StatusFailed, target) {
			t.Errorf("failed must have no exit, found edge to %s", target)
		}
	}
}

func TestGraph_TerminalStates(t *testing.T) {
	for _, s := range []Status{StatusSettled, StatusFailed, StatusReturned} {
		if !Graph.IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing, StatusInTransit, StatusPartiallySettled, StatusRequiresReconciliation} {
		if Graph.IsTerminal(s) {
			t.Errorf("%s must have outgoing edges", s)
		}
	}
}

func TestGraph_AmbiguityOnlyResolvesForward(t *testing.T) {
	// requires_reconciliation can only resolve to an outcome, never back to
	// a moving state.
	for _, target := range []Status{StatusPending, StatusProcessing, StatusInTransit} {
		if Graph.IsLegal(StatusRequiresReconciliation, target) {
			t.Errorf("requires_reconciliation must not move to %s", target)
		}
	}
	for _, target := range []Status{StatusSettled, StatusPartiallySettled, StatusFailed, StatusReturned} {
		if !Graph.IsLegal(StatusRequiresReconciliation, target) {
			t.Errorf("expected requires_reconciliation -> %s to be legal", target)
		}
	}
}

func TestGraph_PartiallySettledPaths(t *testing.T) {
	if !Graph.IsLegal(StatusPartiallySettled, StatusSettled) {
		t.Errorf("expected partially_settled -> settled")
	}
	if !Graph.IsLegal(StatusPartiallySettled, StatusRequiresReconciliation) {
		t.Errorf("expected partially_settled -> requires_reconciliation")
	}
	// Writing off a partial settlement wholesale is not allowed; the failed
	// portion is resolved item by item or flagged for reconciliation.
	if Graph.IsLegal(StatusPartiallySettled, StatusFailed) {
		t.Errorf("partially_settled -> failed must be illegal")
	}
	if Graph.IsLegal(StatusPartiallySettled, StatusReturned) {
		t.Errorf("partially_settled -> returned must be illegal")
	}
}

func TestItemGraph_SingleMoveOffPending(t *testing.T) {
	if !ItemGraph.IsLegal(ItemStatusPending, ItemStatusSettled) {
		t.Errorf("expected pending -> settled")
	}
	if !ItemGraph.IsLegal(ItemStatusPending, ItemStatusFailed) {
		t.Errorf("expected pending -> failed")
	}
	if ItemGraph.IsLegal(ItemStatusSettled, ItemStatusFailed) || ItemGraph.IsLegal(ItemStatusFailed, ItemStatusSettled) {
		t.Errorf("item outcomes are final")
	}
}

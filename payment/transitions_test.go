package payment

import (
	"strings"
	"testing"
)

func TestGraph_LegalPaths(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusDraft, StatusSubmitted},
		{StatusDraft, StatusCanceled},
		{StatusSubmitted, StatusProcessing},
		{StatusSubmitted, StatusFailed},
		{StatusSubmitted, StatusCanceled},
		{StatusProcessing, StatusRequiresAction},
		{StatusProcessing, StatusSucceeded},
		{StatusProcessing, StatusFailed},
		{StatusRequiresAction, StatusProcessing},
		{StatusRequiresAction, StatusSucceeded},
		{StatusRequiresAction, StatusFailed},
		{StatusRequiresAction, StatusCanceled},
	}
	for _, tc := range legal {
		if !Graph.IsLegal(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}
}

func TestGraph_TerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusCanceled} {
		if !Graph.IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
		for _, target := range Graph.Statuses() {
			if Graph.IsLegal(s, target) {
				t.Errorf("terminal %s must not reach %s", s, target)
			}
		}
	}
}

func TestGraph_NoBackwardEdges(t *testing.T) {
	// Once submitted, a payment can never return to draft, and nothing ever
	// resurrects a terminal state.
	for _, from := range Graph.Statuses() {
		if from != StatusDraft && Graph.IsLegal(from, StatusDraft) {
			t.Errorf("%s must not move back to draft", from)
		}
	}
	if Graph.IsLegal(StatusProcessing, StatusSubmitted) {
		t.Errorf("processing must not move back to submitted")
	}
}

func TestGraph_ExplainIllegalNamesBothStatuses(t *testing.T) {
	msg := Graph.ExplainIllegal(StatusSubmitted, StatusSucceeded)
	if !strings.Contains(msg, string(StatusSubmitted)) || !strings.Contains(msg, string(StatusSucceeded)) {
		t.Errorf("explanation must name both statuses, got %q", msg)
	}
	if !strings.Contains(msg, string(StatusProcessing)) {
		t.Errorf("explanation must enumerate legal targets, got %q", msg)
	}
}

func TestGraph_DraftCannotSucceedDirectly(t *testing.T) {
	if Graph.IsLegal(StatusDraft, StatusSucceeded) {
		t.Fatal("expected draft -> succeeded to be illegal")
	}
	msg := Graph.ExplainIllegal(StatusDraft, StatusSucceeded)
	for _, want := range []Status{StatusSubmitted, StatusCanceled} {
		if !strings.Contains(msg, string(want)) {
			t.Errorf("explanation must offer %s, got %q", want, msg)
		}
	}
	if strings.Contains(msg, string(StatusProcessing)) {
		t.Errorf("processing is not reachable from draft, got %q", msg)
	}
}

func TestGraph_DestructiveCaptureEdges(t *testing.T) {
	for _, from := range []Status{StatusProcessing, StatusRequiresAction} {
		for _, tr := range Graph.From(from) {
			if (tr.To == StatusSucceeded || tr.To == StatusFailed) && !tr.Destructive {
				t.Errorf("%s -> %s must be marked destructive", from, tr.To)
			}
		}
	}
}

package lifecycle

import (
	"strings"
	"testing"
)

type status = string

func testGraph() *Graph[status] {
	return NewGraph("widget", map[status][]Transition[status]{
		"draft": {
			{To: "active", Action: "activate"},
			{To: "canceled", Action: "cancel"},
		},
		"active": {
			{To: "done", Action: "finish", Destructive: true},
		},
		"done":     {},
		"canceled": {},
	})
}

func TestIsLegal(t *testing.T) {
	g := testGraph()

	cases := []struct {
		from, to status
		want     bool
	}{
		{"draft", "active", true},
		{"draft", "canceled", true},
		{"draft", "done", false},
		{"active", "done", true},
		{"active", "draft", false},
		{"done", "active", false},
		{"canceled", "draft", false},
		{"nonsense", "active", false},
	}
	for _, tc := range cases {
		if got := g.IsLegal(tc.from, tc.to); got != tc.want {
			t.Errorf("IsLegal(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsLegal_SameStatusNotInTable(t *testing.T) {
	g := testGraph()
	// A self-edge is never implicit; the no-op rule lives in the caller.
	if g.IsLegal("draft", "draft") {
		t.Errorf("expected same-status transition to be absent from the table")
	}
}

func TestKnownAndTerminal(t *testing.T) {
	g := testGraph()

	if !g.Known("draft") || !g.Known("done") {
		t.Errorf("expected table statuses to be known")
	}
	if g.Known("bogus") {
		t.Errorf("expected unknown status to be reported as such")
	}
	if g.IsTerminal("draft") {
		t.Errorf("draft has outgoing edges, must not be terminal")
	}
	if !g.IsTerminal("done") || !g.IsTerminal("canceled") {
		t.Errorf("expected empty edge lists to be terminal")
	}
}

func TestFrom_ReturnsCopy(t *testing.T) {
	g := testGraph()

	out := g.From("draft")
	if len(out) != 2 {
		t.Fatalf("expected 2 transitions out of draft, got %d", len(out))
	}
	out[0].To = "tampered"
	if g.From("draft")[0].To == "tampered" {
		t.Errorf("From must return a copy, not the table's backing slice")
	}
}

func TestStatuses_Sorted(t *testing.T) {
	g := testGraph()

	got := g.Statuses()
	want := []status{"active", "canceled", "done", "draft"}
	if len(got) != len(want) {
		t.Fatalf("expected %d statuses, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Statuses()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExplainIllegal(t *testing.T) {
	g := testGraph()

	if msg := g.ExplainIllegal("done", "active"); !strings.Contains(msg, "terminal") {
		t.Errorf("expected terminal explanation, got %q", msg)
	}
	msg := g.ExplainIllegal("draft", "done")
	if !strings.Contains(msg, "active") || !strings.Contains(msg, "canceled") {
		t.Errorf("expected legal targets to be enumerated, got %q", msg)
	}
	if msg := g.ExplainIllegal("bogus", "active"); !strings.Contains(msg, "not recognized") {
		t.Errorf("expected unknown-status explanation, got %q", msg)
	}
}

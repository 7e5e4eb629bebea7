// Package lifecycle encodes entity state graphs as static transition tables.
// The table is the sole source of truth for legality: no caller may mutate a
// status outside a path that first consults IsLegal.
package lifecycle

import (
	"fmt"
	"sort"
	"strings"
)

// Transition is one legal edge out of a state, with the operator-facing
// action it represents.
type Transition[S ~string] struct {
	To          S
	Action      string
	Description string
	SideEffects []string
	// Destructive marks irreversible financial consequences.
	Destructive bool
}

// Graph answers legality questions for one entity kind.
type Graph[S ~string] struct {
	entity string
	edges  map[S][]Transition[S]
}

// NewGraph builds a graph for the named entity kind. Every state must appear
// as a key, terminal states with an empty edge list, so Known can tell an
// unknown status apart from a terminal one.
func NewGraph[S ~string](entity string, edges map[S][]Transition[S]) *Graph[S] {
	return &Graph[S]{entity: entity, edges: edges}
}

// Known reports whether s is a status of this entity kind at all.
func (g *Graph[S]) Known(s S) bool {
	_, ok := g.edges[s]
	return ok
}

// IsLegal reports whether (from, to) appears in the transition table.
// A same-status no-op is the caller's rule, not the table's.
func (g *Graph[S]) IsLegal(from, to S) bool {
	for _, t := range g.edges[from] {
		if t.To == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether from has zero outgoing transitions.
func (g *Graph[S]) IsTerminal(s S) bool {
	return len(g.edges[s]) == 0
}

// From returns the legal transitions out of s, for rendering available
// actions and validating requests.
func (g *Graph[S]) From(s S) []Transition[S] {
	out := make([]Transition[S], len(g.edges[s]))
	copy(out, g.edges[s])
	return out
}

// Statuses returns every status in the table, sorted for stable output.
func (g *Graph[S]) Statuses() []S {
	out := make([]S, 0, len(g.edges))
	for s := range g.edges {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ExplainIllegal says why (from, to) is not in the table. Never called for a
// legal transition.
func (g *Graph[S]) ExplainIllegal(from, to S) string {
	if !g.Known(from) {
		return fmt.Sprintf("%s status %q is not recognized", g.entity, string(from))
	}
	if g.IsTerminal(from) {
		return fmt.Sprintf("%s status %q is a terminal state, no further transitions", g.entity, string(from))
	}
	targets := make([]string, 0, len(g.edges[from]))
	for _, t := range g.edges[from] {
		targets = append(targets, string(t.To))
	}
	return fmt.Sprintf("%s cannot move from %q to %q; legal targets are: %s",
		g.entity, string(from), string(to), strings.Join(targets, ", "))
}

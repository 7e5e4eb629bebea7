package payout

import "payflow/lifecycle"

// Graph is the batch state machine. There is deliberately no edge that
// retries a failed batch: a failed payout may have partially succeeded at
// the bank, and a blind retry risks double payment. Ambiguous outcomes can
// only move forward through the notes-gated reconciliation transition.
var Graph = lifecycle.NewGraph("payout batch", map[Status][]lifecycle.Transition[Status]{
	StatusPending: {
		{
			To:          StatusProcessing,
			Action:      "Begin processing",
			Description: "Hand the batch to the banking rail",
			SideEffects: []string{"bank transfer initiated"},
		},
		{
			To:          StatusFailed,
			Action:      "Fail",
			Description: "Batch rejected before any transfer was initiated",
			SideEffects: []string{"failure reason recorded"},
		},
	},
	StatusProcessing: {
		{
			To:          StatusInTransit,
			Action:      "Mark in transit",
			Description: "Bank accepted the batch; funds are moving",
			SideEffects: []string{"funds in transit"},
			Destructive: true,
		},
		{
			To:          StatusFailed,
			Action:      "Fail",
			Description: "Bank rejected the batch",
			SideEffects: []string{"failure reason recorded"},
		},
		{
			To:          StatusRequiresReconciliation,
			Action:      "Flag for reconciliation",
			Description: "Bank response ambiguous; true outcome unknown",
			SideEffects: []string{"operator attention requested"},
		},
	},
	StatusInTransit: {
		{
			To:          StatusSettled,
			Action:      "Settle",
			Description: "All items confirmed settled",
			SideEffects: []string{"merchant account credited"},
			Destructive: true,
		},
		{
			To:          StatusPartiallySettled,
			Action:      "Partially settle",
			Description: "Some items settled, some failed",
			SideEffects: []string{"partial credit recorded"},
			Destructive: true,
		},
		{
			To:          StatusFailed,
			Action:      "Fail",
			Description: "Transfer failed in transit",
			SideEffects: []string{"failure reason recorded"},
		},
		{
			To:          StatusReturned,
			Action:      "Mark returned",
			Description: "Funds bounced back from the receiving bank",
			SideEffects: []string{"returned funds recorded"},
		},
		{
			To:          StatusRequiresReconciliation,
			Action:      "Flag for reconciliation",
			Description: "Settlement confirmation ambiguous",
			SideEffects: []string{"operator attention requested"},
		},
	},
	StatusPartiallySettled: {
		{
			To:          StatusSettled,
			Action:      "Settle remainder",
			Description: "Remaining items confirmed settled",
			SideEffects: []string{"merchant account credited"},
			Destructive: true,
		},
		{
			To:          StatusRequiresReconciliation,
			Action:      "Flag for reconciliation",
			Description: "Partial outcome needs a human decision",
			SideEffects: []string{"operator attention requested"},
		},
	},
	StatusRequiresReconciliation: {
		{
			To:          StatusSettled,
			Action:      "Resolve as settled",
			Description: "Operator confirmed full settlement with the bank",
			SideEffects: []string{"reconciliation note recorded"},
			Destructive: true,
		},
		{
			To:          StatusPartiallySettled,
			Action:      "Resolve as partially settled",
			Description: "Operator confirmed a partial settlement",
			SideEffects: []string{"reconciliation note recorded"},
			Destructive: true,
		},
		{
			To:          StatusFailed,
			Action:      "Resolve as failed",
			Description: "Operator confirmed the batch never settled",
			SideEffects: []string{"reconciliation note recorded"},
		},
		{
			To:          StatusReturned,
			Action:      "Resolve as returned",
			Description: "Operator confirmed funds were returned",
			SideEffects: []string{"reconciliation note recorded"},
		},
	},
	StatusSettled:  {},
	StatusFailed:   {},
	StatusReturned: {},
})

// ItemGraph is the per-item machine; items only move off pending once.
var ItemGraph = lifecycle.NewGraph("payout item", map[ItemStatus][]lifecycle.Transition[ItemStatus]{
	ItemStatusPending: {
		{
			To:          ItemStatusSettled,
			Action:      "Settle item",
			Description: "Item confirmed settled",
			SideEffects: []string{"item amount credited"},
			Destructive: true,
		},
		{
			To:          ItemStatusFailed,
			Action:      "Fail item",
			Description: "Item rejected by the receiving bank",
			SideEffects: []string{"item failure recorded"},
		},
	},
	ItemStatusSettled: {},
	ItemStatusFailed:  {},
})

package payment

import "payflow/lifecycle"

// Graph is the payment state machine. Succeeding or failing a payment that
// has been authorized is destructive: the financial consequence cannot be
// undone.
var Graph = lifecycle.NewGraph("payment", map[Status][]lifecycle.Transition[Status]{
	StatusDraft: {
		{
			To:          StatusSubmitted,
			Action:      "Submit",
			Description: "Submit the payment for processing",
			SideEffects: []string{"payment queued for authorization"},
		},
		{
			To:          StatusCanceled,
			Action:      "Cancel",
			Description: "Cancel the payment before submission",
			SideEffects: []string{"payment withdrawn, no funds touched"},
		},
	},
	StatusSubmitted: {
		{
			To:          StatusProcessing,
			Action:      "Begin processing",
			Description: "Processor picked up the payment",
			SideEffects: []string{"authorization requested"},
		},
		{
			To:          StatusFailed,
			Action:      "Fail",
			Description: "Processor rejected the payment",
			SideEffects: []string{"failure reason recorded"},
		},
		{
			To:          StatusCanceled,
			Action:      "Cancel",
			Description: "Cancel before processing began",
			SideEffects: []string{"payment withdrawn, no funds touched"},
		},
	},
	StatusProcessing: {
		{
			To:          StatusRequiresAction,
			Action:      "Request customer action",
			Description: "Additional verification needed from the customer",
			SideEffects: []string{"customer notified"},
		},
		{
			To:          StatusSucceeded,
			Action:      "Succeed",
			Description: "Capture the authorized funds",
			SideEffects: []string{"funds captured"},
			Destructive: true,
		},
		{
			To:          StatusFailed,
			Action:      "Fail",
			Description: "Processing failed after authorization was attempted",
			SideEffects: []string{"authorization released", "failure reason recorded"},
			Destructive: true,
		},
	},
	StatusRequiresAction: {
		{
			To:          StatusProcessing,
			Action:      "Resume processing",
			Description: "Customer completed the requested action",
			SideEffects: []string{"processing resumed"},
		},
		{
			To:          StatusSucceeded,
			Action:      "Succeed",
			Description: "Capture the authorized funds",
			SideEffects: []string{"funds captured"},
			Destructive: true,
		},
		{
			To:          StatusFailed,
			Action:      "Fail",
			Description: "Customer action expired or verification failed",
			SideEffects: []string{"authorization released", "failure reason recorded"},
			Destructive: true,
		},
		{
			To:          StatusCanceled,
			Action:      "Cancel",
			Description: "Cancel while waiting on the customer",
			SideEffects: []string{"authorization released"},
		},
	},
	StatusSucceeded: {},
	StatusFailed:    {},
	StatusCanceled:  {},
})

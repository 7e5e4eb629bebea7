// Package actors holds the concurrent workloads of the stress test. Each
// actor loops until stopped, driving the services the way a busy dashboard
// and its operators would, and treats structured rejections as expected
// contention rather than failures.
package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"payflow/apierr"
	"payflow/payment"
	"payflow/payout"
)

// PaymentCreator hammers Create with a small pool of idempotency keys, so
// many callers collide on the same key concurrently. Conflicts from body
// drift are expected; anything else is a real failure.
func PaymentCreator(ctx context.Context, svc *payment.Service, keyspace int, record func(string), stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		key := fmt.Sprintf("stress-key-%d", rand.Intn(keyspace))
		res, err := svc.Create(ctx, payment.CreateParams{
			Amount:     int64(100 + rand.Intn(100)*100),
			Currency:   "USD",
			MerchantID: "stress-merchant",
		}, key)
		if err == nil {
			record(res.Payment.ID)
		} else if terr := tolerate(ctx, err); terr != nil {
			return fmt.Errorf("payment creator: %w", terr)
		}
		time.Sleep(time.Duration(5+rand.Intn(15)) * time.Millisecond)
	}
}

// PaymentMover fires random transitions at random payments, legal or not.
// The service must reject the illegal ones and keep every survivor on a
// valid path; the oracles check the wreckage.
func PaymentMover(ctx context.Context, svc *payment.Service, ids func() []string, stop <-chan struct{}) error {
	targets := []payment.Status{
		payment.StatusSubmitted,
		payment.StatusProcessing,
		payment.StatusRequiresAction,
		payment.StatusSucceeded,
		payment.StatusFailed,
		payment.StatusCanceled,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		known := ids()
		if len(known) == 0 {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		id := known[rand.Intn(len(known))]
		target := targets[rand.Intn(len(targets))]
		_, err := svc.Transition(ctx, id, target, payment.TransitionParams{})
		if terr := tolerate(ctx, err); terr != nil {
			return fmt.Errorf("payment mover: %w", terr)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// PayoutCreator mints batches of a few items each.
func PayoutCreator(ctx context.Context, svc *payout.Service, record func(string), stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		items := make([]payout.ItemParams, 1+rand.Intn(4))
		for i := range items {
			amount := int64(500 + rand.Intn(50)*100)
			items[i] = payout.ItemParams{Amount: amount, Fee: amount / 20}
		}
		b, err := svc.Create(ctx, payout.CreateParams{
			MerchantID:     "stress-merchant",
			Currency:       "USD",
			BankAccount:    fmt.Sprintf("ACC%012d", rand.Int63n(1_000_000_000)),
			SettlementDays: 1 + rand.Intn(3),
			Items:          items,
		})
		if err != nil {
			if terr := tolerate(ctx, err); terr != nil {
				return fmt.Errorf("payout creator: %w", terr)
			}
			continue
		}
		record(b.ID)
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// PayoutMover walks batches through random transitions, like PaymentMover.
func PayoutMover(ctx context.Context, svc *payout.Service, ids func() []string, stop <-chan struct{}) error {
	targets := []payout.Status{
		payout.StatusProcessing,
		payout.StatusInTransit,
		payout.StatusSettled,
		payout.StatusPartiallySettled,
		payout.StatusRequiresReconciliation,
		payout.StatusFailed,
		payout.StatusReturned,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		known := ids()
		if len(known) == 0 {
			time.Sleep(20 * time.Millisecond)
			continue
		}
		id := known[rand.Intn(len(known))]
		_, err := svc.Transition(ctx, id, targets[rand.Intn(len(targets))], nil)
		if terr := tolerate(ctx, err); terr != nil {
			return fmt.Errorf("payout mover: %w", terr)
		}
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
}

// Reconciler sweeps batches stuck in ambiguous states and resolves them with
// a note, racing the movers for the same rows.
func Reconciler(ctx context.Context, svc *payout.Service, ids func() []string, stop <-chan struct{}) error {
	resolutions := []payout.Status{
		payout.StatusSettled,
		payout.StatusPartiallySettled,
		payout.StatusFailed,
		payout.StatusReturned,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		known := ids()
		if len(known) == 0 {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		id := known[rand.Intn(len(known))]
		_, err := svc.Reconcile(ctx, id, payout.ReconcileParams{
			ResolvedStatus: resolutions[rand.Intn(len(resolutions))],
			Notes:          "stress reconciliation sweep",
		})
		if terr := tolerate(ctx, err); terr != nil {
			return fmt.Errorf("reconciler: %w", terr)
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

// ItemSettler resolves individual payout items so the per-item aggregates
// churn underneath the batch transitions.
func ItemSettler(ctx context.Context, svc *payout.Service, store payout.Store, ids func() []string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		known := ids()
		if len(known) == 0 {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		batchID := known[rand.Intn(len(known))]
		items, err := store.Items(ctx, batchID)
		if err != nil || len(items) == 0 {
			time.Sleep(30 * time.Millisecond)
			continue
		}
		item := items[rand.Intn(len(items))]
		target := payout.ItemStatusSettled
		if rand.Intn(4) == 0 {
			target = payout.ItemStatusFailed
		}
		if _, err := svc.UpdateItemStatus(ctx, batchID, item.ID, target, "stress_failure", "injected by stress test"); err != nil {
			if terr := tolerate(ctx, err); terr != nil {
				return fmt.Errorf("item settler: %w", terr)
			}
		}
		time.Sleep(time.Duration(25+rand.Intn(50)) * time.Millisecond)
	}
}

// isRejection reports whether err is a structured domain rejection, which is
// the normal currency of a contended run.
func isRejection(err error) bool {
	var ae *apierr.Error
	return errors.As(err, &ae)
}

// tolerate swallows rejections and transient infra failures (the chaos actor
// kills live database connections); only a dead context ends the actor.
func tolerate(ctx context.Context, err error) error {
	if err == nil || isRejection(err) {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	time.Sleep(50 * time.Millisecond)
	return nil
}

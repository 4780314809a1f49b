// Package reconcile derives promise fulfillment, best contact slots and
// outstanding debt from a snapshot of interactions.
//
// Every function here is pure: it never mutates its input, performs no I/O
// and does not log. Records that do not qualify for a computation (a
// promise without a due date, a payment without an amount, an unparseable
// timestamp) are skipped rather than reported; validating and counting bad
// records is the caller's job.
package reconcile

import (
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// DefaultGraceHours is the window after a promised date during which a
// payment still fulfills the promise.
const DefaultGraceHours = 48

// paymentLookback admits payments recorded shortly before the promised date.
const paymentLookback = time.Hour

// LinkPromisesToPayments emits one link per promise carrying every payment
// by the same client inside (promised_date-1h, promised_date+graceHours).
//
// A payment is not reserved for a single promise: overlapping windows for
// the same client can all claim it. Status is evaluated against now, so a
// PENDING link turns BROKEN on a later call once now passes the grace end.
func LinkPromisesToPayments(interactions []model.Interaction, graceHours int, now time.Time) []model.PromisePaymentLink {
	payments := make([]model.Interaction, 0)
	for _, in := range interactions {
		if in.IsPayment() && in.HasValidTime() {
			payments = append(payments, in)
		}
	}

	links := make([]model.PromisePaymentLink, 0)
	for _, promise := range interactions {
		if !promise.IsPromise() {
			continue
		}

		promisedDate := *promise.PromisedDate
		graceEnd := promisedDate.Add(time.Duration(graceHours) * time.Hour)
		windowStart := promisedDate.Add(-paymentLookback)

		paymentIDs := make([]string, 0)
		for _, payment := range payments {
			if payment.ClientID != promise.ClientID {
				continue
			}
			if payment.Datetime.Before(graceEnd) && payment.Datetime.After(windowStart) {
				paymentIDs = append(paymentIDs, payment.ID)
			}
		}

		status := model.LinkPending
		switch {
		case len(paymentIDs) > 0:
			status = model.LinkFulfilled
		case now.After(graceEnd):
			status = model.LinkBroken
		}

		links = append(links, model.PromisePaymentLink{
			PromiseID:      promise.ID,
			PaymentIDs:     paymentIDs,
			Status:         status,
			GraceHours:     graceHours,
			ClientID:       promise.ClientID,
			PromisedAmount: promise.PromisedValue(),
			PromisedDate:   promisedDate,
			GraceEnd:       graceEnd,
		})
	}

	return links
}

// CountByStatus tallies links per status.
func CountByStatus(links []model.PromisePaymentLink) map[model.LinkStatus]int {
	counts := map[model.LinkStatus]int{
		model.LinkPending:   0,
		model.LinkFulfilled: 0,
		model.LinkBroken:    0,
	}
	for _, l := range links {
		counts[l.Status]++
	}
	return counts
}

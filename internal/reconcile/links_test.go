package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("invalid test time %q: %v", s, err)
	}
	return ts
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func promise(id, clientID string, due time.Time, amt string) model.Interaction {
	return model.Interaction{
		ID:             id,
		ClientID:       clientID,
		Datetime:       due.Add(-72 * time.Hour),
		Channel:        model.ChannelCall,
		Outcome:        model.OutcomePaymentPromise,
		PromisedAmount: amount(amt),
		PromisedDate:   &due,
	}
}

func payment(id, clientID string, at time.Time, amt string) model.Interaction {
	return model.Interaction{
		ID:         id,
		ClientID:   clientID,
		Datetime:   at,
		Channel:    model.ChannelWhatsApp,
		Outcome:    model.OutcomeImmediatePayment,
		PaidAmount: amount(amt),
	}
}

func TestLinkPromisesToPayments_EndToEnd(t *testing.T) {
	due := mustTime(t, "2024-01-10T00:00:00Z")
	interactions := []model.Interaction{
		promise("a", "c1", due, "100"),
		payment("b", "c1", mustTime(t, "2024-01-10T02:00:00Z"), "100"),
	}

	links := LinkPromisesToPayments(interactions, DefaultGraceHours, mustTime(t, "2024-06-01T00:00:00Z"))

	if len(links) != 1 {
		t.Fatalf("LinkPromisesToPayments() returned %d links, want 1", len(links))
	}
	link := links[0]
	if link.PromiseID != "a" {
		t.Errorf("PromiseID = %v, want a", link.PromiseID)
	}
	if link.Status != model.LinkFulfilled {
		t.Errorf("Status = %v, want %v", link.Status, model.LinkFulfilled)
	}
	if len(link.PaymentIDs) != 1 || link.PaymentIDs[0] != "b" {
		t.Errorf("PaymentIDs = %v, want [b]", link.PaymentIDs)
	}
	if link.GraceHours != 48 {
		t.Errorf("GraceHours = %v, want 48", link.GraceHours)
	}
	if !link.GraceEnd.Equal(due.Add(48 * time.Hour)) {
		t.Errorf("GraceEnd = %v, want %v", link.GraceEnd, due.Add(48*time.Hour))
	}
}

func TestLinkPromisesToPayments_StatusBoundary(t *testing.T) {
	due := mustTime(t, "2024-03-01T12:00:00Z")
	graceEnd := due.Add(48 * time.Hour)
	interactions := []model.Interaction{promise("p1", "c1", due, "250")}

	tests := []struct {
		name string
		now  time.Time
		want model.LinkStatus
	}{
		{name: "before promised date", now: due.Add(-time.Hour), want: model.LinkPending},
		{name: "inside grace window", now: due.Add(24 * time.Hour), want: model.LinkPending},
		{name: "exactly at grace end", now: graceEnd, want: model.LinkPending},
		{name: "one second after grace end", now: graceEnd.Add(time.Second), want: model.LinkBroken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := LinkPromisesToPayments(interactions, 48, tt.now)
			if len(links) != 1 {
				t.Fatalf("got %d links, want 1", len(links))
			}
			if links[0].Status != tt.want {
				t.Errorf("Status = %v, want %v", links[0].Status, tt.want)
			}
			if len(links[0].PaymentIDs) != 0 {
				t.Errorf("PaymentIDs = %v, want empty", links[0].PaymentIDs)
			}
		})
	}
}

func TestLinkPromisesToPayments_PaymentWindow(t *testing.T) {
	due := mustTime(t, "2024-03-01T12:00:00Z")
	now := due.Add(30 * 24 * time.Hour)

	tests := []struct {
		name      string
		payment   model.Interaction
		wantLink  bool
		wantState model.LinkStatus
	}{
		{
			name:      "thirty minutes before promise",
			payment:   payment("q", "c1", due.Add(-30*time.Minute), "50"),
			wantLink:  true,
			wantState: model.LinkFulfilled,
		},
		{
			name:      "exactly one hour before promise",
			payment:   payment("q", "c1", due.Add(-time.Hour), "50"),
			wantState: model.LinkBroken,
		},
		{
			name:      "one minute before grace end",
			payment:   payment("q", "c1", due.Add(48*time.Hour-time.Minute), "50"),
			wantLink:  true,
			wantState: model.LinkFulfilled,
		},
		{
			name:      "exactly at grace end",
			payment:   payment("q", "c1", due.Add(48*time.Hour), "50"),
			wantState: model.LinkBroken,
		},
		{
			name:      "other client",
			payment:   payment("q", "c2", due.Add(time.Hour), "50"),
			wantState: model.LinkBroken,
		},
		{
			name: "payment without amount",
			payment: model.Interaction{
				ID:       "q",
				ClientID: "c1",
				Datetime: due.Add(time.Hour),
				Outcome:  model.OutcomeImmediatePayment,
			},
			wantState: model.LinkBroken,
		},
		{
			name:      "payment with unparseable time",
			payment:   payment("q", "c1", time.Time{}, "50"),
			wantState: model.LinkBroken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interactions := []model.Interaction{promise("p", "c1", due, "50"), tt.payment}
			links := LinkPromisesToPayments(interactions, 48, now)
			if len(links) != 1 {
				t.Fatalf("got %d links, want 1", len(links))
			}
			linked := len(links[0].PaymentIDs) == 1
			if linked != tt.wantLink {
				t.Errorf("linked = %v, want %v (payment_ids=%v)", linked, tt.wantLink, links[0].PaymentIDs)
			}
			if links[0].Status != tt.wantState {
				t.Errorf("Status = %v, want %v", links[0].Status, tt.wantState)
			}
		})
	}
}

func TestLinkPromisesToPayments_SkipsPromiseWithoutDate(t *testing.T) {
	due := mustTime(t, "2024-03-01T12:00:00Z")
	interactions := []model.Interaction{
		{ID: "nodate", ClientID: "c1", Datetime: due, Outcome: model.OutcomePaymentPromise, PromisedAmount: amount("10")},
		promise("ok", "c1", due, "10"),
		{ID: "contact", ClientID: "c1", Datetime: due, Outcome: model.OutcomeSuccessfulContact},
	}

	links := LinkPromisesToPayments(interactions, 48, due)

	if len(links) != 1 || links[0].PromiseID != "ok" {
		t.Fatalf("links = %+v, want a single link for promise ok", links)
	}
}

func TestLinkPromisesToPayments_SharedPaymentAndOrder(t *testing.T) {
	due := mustTime(t, "2024-03-01T12:00:00Z")
	interactions := []model.Interaction{
		payment("pay2", "c1", due.Add(13*time.Hour), "20"),
		promise("p1", "c1", due, "100"),
		promise("p2", "c1", due.Add(12*time.Hour), "100"),
		payment("pay1", "c1", due.Add(30*time.Hour), "80"),
	}

	links := LinkPromisesToPayments(interactions, 48, due)

	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	for _, l := range links {
		if l.Status != model.LinkFulfilled {
			t.Errorf("%s Status = %v, want %v", l.PromiseID, l.Status, model.LinkFulfilled)
		}
		if len(l.PaymentIDs) != 2 || l.PaymentIDs[0] != "pay2" || l.PaymentIDs[1] != "pay1" {
			t.Errorf("%s PaymentIDs = %v, want [pay2 pay1]", l.PromiseID, l.PaymentIDs)
		}
	}
}

func TestLinkPromisesToPayments_DoesNotMutateInput(t *testing.T) {
	due := mustTime(t, "2024-03-01T12:00:00Z")
	interactions := []model.Interaction{
		promise("p1", "c1", due, "100"),
		payment("pay1", "c1", due, "100"),
	}
	before := interactions[0].PromisedDate.String()

	_ = LinkPromisesToPayments(interactions, 48, due)

	if interactions[0].PromisedDate.String() != before {
		t.Errorf("promised date mutated: %v, want %v", interactions[0].PromisedDate, before)
	}
}

func TestCountByStatus(t *testing.T) {
	links := []model.PromisePaymentLink{
		{Status: model.LinkBroken},
		{Status: model.LinkBroken},
		{Status: model.LinkFulfilled},
	}

	counts := CountByStatus(links)

	if counts[model.LinkBroken] != 2 || counts[model.LinkFulfilled] != 1 || counts[model.LinkPending] != 0 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

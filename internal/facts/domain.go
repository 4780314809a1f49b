package facts

import (
	"time"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// Node identifiers shared by the fact stream and the graph projection.
func DebtID(clientID string) string { return "debt_" + clientID }
func PromiseID(interactionID string) string { return "promise_" + interactionID }
func PaymentID(interactionID string) string { return "payment_" + interactionID }
func SlotID(slot model.SlotKey) string { return "slot_" + slot.String() }

const (
	RelHadInteraction = "HAD_INTERACTION"
	RelPerformed      = "PERFORMED"
	RelResultedIn     = "RESULTED_IN"
	RelAppliesTo      = "APPLIES_TO"
	RelFulfilledBy    = "FULFILLED_BY"
)

func ClientEntity(c model.Client) Entity {
	email := c.Email
	if email == "" {
		email = "N/A"
	}
	return Entity{
		Label: "Client",
		ID:    c.ID,
		Properties: Properties{
			P("name", c.Name),
			P("phone", c.Phone),
			P("email", email),
			P("initial_debt", c.InitialDebt),
			P("collection_start", formatDate(c.CollectionStart)),
			P("placeholder", c.Placeholder),
		},
	}
}

func DebtEntity(c model.Client, debt model.DebtInfo) Entity {
	return Entity{
		Label: "Debt",
		ID:    DebtID(c.ID),
		Properties: Properties{
			P("client_id", c.ID),
			P("initial_amount", debt.InitialDebt),
			P("current_amount", debt.CurrentDebt),
			P("total_paid", debt.TotalPaid),
			P("start_date", formatDate(c.CollectionStart)),
		},
	}
}

func AgentEntity(agentID string) Entity {
	return Entity{
		Label: "Agent",
		ID:    agentID,
		Properties: Properties{
			P("name", "Agent "+agentID),
			P("type", "collections"),
		},
	}
}

func SlotEntity(b model.TimeBucket) Entity {
	return Entity{
		Label: "BestSlot",
		ID:    SlotID(b.Slot),
		Properties: Properties{
			P("bucket", b.Slot.String()),
			P("success_rate", b.SuccessRate),
			P("total_interactions", b.TotalInteractions),
			P("successful_interactions", b.SuccessfulInteractions),
		},
	}
}

// InteractionRelationships returns the edges an interaction contributes:
// client and agent links, plus promise or payment outcomes.
func InteractionRelationships(in model.Interaction) []Relationship {
	date := formatDate(in.Datetime)
	rels := []Relationship{{
		Type: RelHadInteraction,
		From: in.ClientID,
		To:   in.ID,
		Properties: Properties{
			P("date", date),
			P("channel", string(in.Channel)),
			P("outcome", string(in.Outcome)),
		},
	}}

	if in.AgentID != "" {
		rels = append(rels, Relationship{
			Type: RelPerformed,
			From: in.AgentID,
			To:   in.ID,
			Properties: Properties{
				P("date", date),
				P("channel", string(in.Channel)),
			},
		})
	}

	if in.IsPromise() && in.PromisedAmount != nil && in.PromisedAmount.IsPositive() {
		rels = append(rels, Relationship{
			Type: RelResultedIn,
			From: in.ID,
			To:   PromiseID(in.ID),
			Properties: Properties{
				P("type", string(model.OutcomePaymentPromise)),
				P("amount", in.PromisedValue()),
				P("date", formatDate(*in.PromisedDate)),
			},
		})
	}

	if in.IsPayment() {
		rels = append(rels,
			Relationship{
				Type: RelResultedIn,
				From: in.ID,
				To:   PaymentID(in.ID),
				Properties: Properties{
					P("type", string(model.OutcomeImmediatePayment)),
					P("amount", in.PaidValue()),
					P("date", date),
				},
			},
			Relationship{
				Type: RelAppliesTo,
				From: PaymentID(in.ID),
				To:   DebtID(in.ClientID),
				Properties: Properties{
					P("amount", in.PaidValue()),
					P("date", date),
				},
			},
		)
	}

	return rels
}

// FulfilledBy returns one edge per payment linked to the promise.
func FulfilledBy(link model.PromisePaymentLink) []Relationship {
	rels := make([]Relationship, 0, len(link.PaymentIDs))
	for _, paymentID := range link.PaymentIDs {
		rels = append(rels, Relationship{
			Type: RelFulfilledBy,
			From: PromiseID(link.PromiseID),
			To:   PaymentID(paymentID),
			Properties: Properties{
				P("status", string(link.Status)),
				P("grace_hours_used", link.GraceHours),
			},
		})
	}
	return rels
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

// Package graphdb projects the collection dataset and its reconciliation
// results into Neo4j.
package graphdb

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/facts"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/reconcile"
)

// Statement is a parameterised cypher query
type Statement struct {
	Cypher string
	Params map[string]any
}

const (
	mergeClients = `
		UNWIND $rows AS row
		MERGE (c:Client {id: row.id})
		SET c.name = row.name,
			c.phone = row.phone,
			c.email = row.email,
			c.initial_debt = row.initial_debt,
			c.collection_start = CASE WHEN row.collection_start IS NULL THEN NULL ELSE datetime(row.collection_start) END,
			c.placeholder = row.placeholder`

	mergeDebts = `
		UNWIND $rows AS row
		MERGE (d:Debt {id: row.id})
		SET d.client_id = row.client_id,
			d.initial_amount = row.initial_amount,
			d.current_amount = row.current_amount,
			d.total_paid = row.total_paid`

	mergeAgents = `
		UNWIND $rows AS row
		MERGE (a:Agent {id: row.id})
		SET a.name = row.name`

	mergeInteractions = `
		UNWIND $rows AS row
		MERGE (i:Interaction {id: row.id})
		SET i.datetime = CASE WHEN row.datetime IS NULL THEN NULL ELSE datetime(row.datetime) END,
			i.channel = row.channel,
			i.outcome = row.outcome,
			i.notes = row.notes
		WITH i, row
		MATCH (c:Client {id: row.client_id})
		MERGE (c)-[r:HAD_INTERACTION]->(i)
		SET r.channel = row.channel, r.outcome = row.outcome`

	mergePerformed = `
		UNWIND $rows AS row
		MATCH (a:Agent {id: row.agent_id}), (i:Interaction {id: row.id})
		MERGE (a)-[:PERFORMED]->(i)`

	mergePromises = `
		UNWIND $rows AS row
		MERGE (p:Promise {id: row.id})
		SET p.amount = row.amount,
			p.promised_date = datetime(row.promised_date),
			p.grace_end = datetime(row.grace_end),
			p.status = row.status
		WITH p, row
		MATCH (i:Interaction {id: row.interaction_id})
		MERGE (i)-[:RESULTED_IN]->(p)`

	mergePayments = `
		UNWIND $rows AS row
		MERGE (p:Payment {id: row.id})
		SET p.amount = row.amount,
			p.paid_at = CASE WHEN row.paid_at IS NULL THEN NULL ELSE datetime(row.paid_at) END
		WITH p, row
		MATCH (i:Interaction {id: row.interaction_id}), (d:Debt {id: row.debt_id})
		MERGE (i)-[:RESULTED_IN]->(p)
		MERGE (p)-[:APPLIES_TO]->(d)`

	mergeFulfilledBy = `
		UNWIND $rows AS row
		MATCH (p:Promise {id: row.promise_id}), (pay:Payment {id: row.payment_id})
		MERGE (p)-[r:FULFILLED_BY]->(pay)
		SET r.status = row.status, r.grace_hours_used = row.grace_hours`
)

// BuildStatements renders the dataset as idempotent MERGE statements in
// dependency order: nodes first, then the edges that match them. Empty
// groups produce no statement.
func BuildStatements(ds model.Dataset, links []model.PromisePaymentLink) []Statement {
	var (
		clients      []any
		debts        []any
		agents       []any
		interactions []any
		performed    []any
		promises     []any
		payments     []any
		fulfilled    []any
	)

	for _, d := range reconcile.CalculateDebts(ds.Interactions, ds.Clients) {
		debts = append(debts, map[string]any{
			"id":             facts.DebtID(d.ClientID),
			"client_id":      d.ClientID,
			"initial_amount": amount(d.InitialDebt),
			"current_amount": amount(d.CurrentDebt),
			"total_paid":     amount(d.TotalPaid),
		})
	}

	for _, c := range ds.Clients {
		clients = append(clients, map[string]any{
			"id":               c.ID,
			"name":             c.Name,
			"phone":            c.Phone,
			"email":            c.Email,
			"initial_debt":     amount(c.InitialDebt),
			"collection_start": timestamp(c.CollectionStart),
			"placeholder":      c.Placeholder,
		})
	}

	seenAgents := make(map[string]bool)
	for _, in := range ds.Interactions {
		interactions = append(interactions, map[string]any{
			"id":        in.ID,
			"client_id": in.ClientID,
			"datetime":  timestamp(in.Datetime),
			"channel":   string(in.Channel),
			"outcome":   string(in.Outcome),
			"notes":     in.Notes,
		})

		if in.AgentID != "" {
			if !seenAgents[in.AgentID] {
				seenAgents[in.AgentID] = true
				agents = append(agents, map[string]any{
					"id":   in.AgentID,
					"name": "Agent " + in.AgentID,
				})
			}
			performed = append(performed, map[string]any{"id": in.ID, "agent_id": in.AgentID})
		}

		if in.IsPayment() {
			payments = append(payments, map[string]any{
				"id":             facts.PaymentID(in.ID),
				"interaction_id": in.ID,
				"debt_id":        facts.DebtID(in.ClientID),
				"amount":         amount(in.PaidValue()),
				"paid_at":        timestamp(in.Datetime),
			})
		}
	}

	for _, l := range links {
		promises = append(promises, map[string]any{
			"id":             facts.PromiseID(l.PromiseID),
			"interaction_id": l.PromiseID,
			"amount":         amount(l.PromisedAmount),
			"promised_date":  timestamp(l.PromisedDate),
			"grace_end":      timestamp(l.GraceEnd),
			"status":         string(l.Status),
		})
		for _, paymentID := range l.PaymentIDs {
			fulfilled = append(fulfilled, map[string]any{
				"promise_id":  facts.PromiseID(l.PromiseID),
				"payment_id":  facts.PaymentID(paymentID),
				"status":      string(l.Status),
				"grace_hours": l.GraceHours,
			})
		}
	}

	stmts := make([]Statement, 0, 8)
	add := func(cypher string, rows []any) {
		if len(rows) > 0 {
			stmts = append(stmts, Statement{Cypher: cypher, Params: map[string]any{"rows": rows}})
		}
	}
	add(mergeClients, clients)
	add(mergeDebts, debts)
	add(mergeAgents, agents)
	add(mergeInteractions, interactions)
	add(mergePerformed, performed)
	add(mergePromises, promises)
	add(mergePayments, payments)
	add(mergeFulfilledBy, fulfilled)
	return stmts
}

// Neo4j has no decimal type; amounts are stored as floats for querying.
func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339)
}

package ingest

import (
	"github.com/Betoxx1/Analizador-de-Patrones/internal/facts"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// RenderFacts emits the fact stream for a dataset: client and debt
// entities, agents in first-seen order, best slots, then each
// interaction's relationships followed by FULFILLED_BY edges.
func RenderFacts(ds model.Dataset, links []model.PromisePaymentLink, slots []model.TimeBucket, debts []model.DebtInfo) []string {
	out := make([]string, 0, 2*len(ds.Clients)+3*len(ds.Interactions))

	debtByClient := make(map[string]model.DebtInfo, len(debts))
	for _, d := range debts {
		debtByClient[d.ClientID] = d
	}

	for _, c := range ds.Clients {
		out = append(out, facts.ClientEntity(c).Text())
		out = append(out, facts.DebtEntity(c, debtByClient[c.ID]).Text())
	}

	seen := make(map[string]bool)
	for _, in := range ds.Interactions {
		if in.AgentID == "" || seen[in.AgentID] {
			continue
		}
		seen[in.AgentID] = true
		out = append(out, facts.AgentEntity(in.AgentID).Text())
	}

	for _, b := range slots {
		out = append(out, facts.SlotEntity(b).Text())
	}

	for _, in := range ds.Interactions {
		for _, r := range facts.InteractionRelationships(in) {
			out = append(out, r.Text())
		}
	}

	for _, l := range links {
		for _, r := range facts.FulfilledBy(l) {
			out = append(out, r.Text())
		}
	}

	return out
}

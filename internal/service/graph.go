package service

import (
	"context"
	"fmt"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/facts"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/graphiti"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/reconcile"
)

const (
	GraphSourceDataset  = "dataset"
	GraphSourceGraphiti = "graphiti"
)

const graphSearchQuery = "clients agents interactions payments promises relationships"

// GraphView builds the node/edge payload for the force-directed view. The
// dataset source derives it from the stored records using the same node ids
// as the fact stream; the graphiti source parses facts returned by search.
func (s *Service) GraphView(ctx context.Context, source string) (*model.GraphView, error) {
	switch source {
	case "", GraphSourceDataset:
		return s.datasetGraph(ctx)
	case GraphSourceGraphiti:
		return s.graphitiGraph(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown graph source %q", ErrInvalidParameter, source)
	}
}

type graphBuilder struct {
	view  model.GraphView
	nodes map[string]bool
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{
		view: model.GraphView{
			Nodes: make([]model.GraphNode, 0),
			Edges: make([]model.GraphEdge, 0),
		},
		nodes: make(map[string]bool),
	}
}

func (b *graphBuilder) entity(e facts.Entity) {
	props := make(map[string]any, len(e.Properties))
	for _, p := range e.Properties {
		props[p.Key] = p.Value
	}
	label := e.Properties.GetString("name")
	if label == "" {
		label = e.ID
	}
	b.node(model.GraphNode{ID: e.ID, Label: label, Type: e.Label, Properties: props})
}

// node keeps the first version of a node; later duplicates are ignored.
func (b *graphBuilder) node(n model.GraphNode) {
	if b.nodes[n.ID] {
		return
	}
	b.nodes[n.ID] = true
	b.view.Nodes = append(b.view.Nodes, n)
}

func (b *graphBuilder) edge(r facts.Relationship) {
	b.view.Edges = append(b.view.Edges, model.GraphEdge{Source: r.From, Target: r.To, Type: r.Type})
}

func (b *graphBuilder) build() *model.GraphView {
	b.view.TotalNodes = len(b.view.Nodes)
	b.view.TotalEdges = len(b.view.Edges)
	return &b.view
}

func (s *Service) datasetGraph(ctx context.Context) (*model.GraphView, error) {
	ds, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	links := reconcile.LinkPromisesToPayments(ds.Interactions, s.cfg.GraceHours, s.now())
	debts := reconcile.CalculateDebts(ds.Interactions, ds.Clients)

	b := newGraphBuilder()
	for i, c := range ds.Clients {
		b.entity(facts.ClientEntity(c))
		b.entity(facts.DebtEntity(c, debts[i]))
	}
	for _, in := range ds.Interactions {
		if in.AgentID != "" {
			b.entity(facts.AgentEntity(in.AgentID))
		}
	}

	status := make(map[string]model.LinkStatus, len(links))
	for _, l := range links {
		status[l.PromiseID] = l.Status
	}

	for _, in := range ds.Interactions {
		b.node(model.GraphNode{
			ID:    in.ID,
			Label: in.ID,
			Type:  "Interaction",
			Properties: map[string]any{
				"channel": string(in.Channel),
				"outcome": string(in.Outcome),
			},
		})
		if in.IsPromise() {
			b.node(model.GraphNode{
				ID:    facts.PromiseID(in.ID),
				Label: facts.PromiseID(in.ID),
				Type:  "Promise",
				Properties: map[string]any{
					"amount": in.PromisedValue().String(),
					"status": string(status[in.ID]),
				},
			})
		}
		if in.IsPayment() {
			b.node(model.GraphNode{
				ID:         facts.PaymentID(in.ID),
				Label:      facts.PaymentID(in.ID),
				Type:       "Payment",
				Properties: map[string]any{"amount": in.PaidValue().String()},
			})
		}
		for _, r := range facts.InteractionRelationships(in) {
			b.edge(r)
		}
	}
	for _, l := range links {
		for _, r := range facts.FulfilledBy(l) {
			b.edge(r)
		}
	}
	return b.build(), nil
}

func (s *Service) graphitiGraph(ctx context.Context) (*model.GraphView, error) {
	result, err := s.Search(ctx, graphiti.SearchRequest{Query: graphSearchQuery, MaxFacts: 100})
	if err != nil {
		return nil, err
	}

	b := newGraphBuilder()
	for _, f := range result.Facts {
		if e, ok := facts.ParseEntity(f.Fact); ok {
			b.entity(e)
			continue
		}
		r, ok := facts.ParseRelationship(f.Fact)
		if !ok {
			continue
		}
		b.node(model.GraphNode{ID: r.From, Label: r.From, Type: "Entity"})
		b.node(model.GraphNode{ID: r.To, Label: r.To, Type: "Entity"})
		b.edge(r)
	}
	return b.build(), nil
}

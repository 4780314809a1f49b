package ingest

import (
	"strings"
	"testing"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/facts"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/reconcile"
	"github.com/Betoxx1/Analizador-de-Patrones/internal/testutil"
)

func TestRenderFacts(t *testing.T) {
	ds := testutil.SampleDataset()
	links := reconcile.LinkPromisesToPayments(ds.Interactions, reconcile.DefaultGraceHours, testutil.FixtureNow)
	slots := reconcile.CalculateBestTimeSlots(ds.Interactions, 1)
	debts := reconcile.CalculateDebts(ds.Interactions, ds.Clients)

	out := RenderFacts(ds, links, slots, debts)

	if len(out) != sampleFactCount+len(slots) {
		t.Fatalf("got %d facts, want %d", len(out), sampleFactCount+len(slots))
	}

	first, ok := facts.ParseEntity(out[0])
	if !ok || first.ID != "cliente_001" || first.Label != "Client" {
		t.Errorf("out[0] = %s", out[0])
	}
	debt, ok := facts.ParseEntity(out[1])
	if !ok || debt.ID != "debt_cliente_001" || debt.Properties.GetDecimal("current_amount").String() != "12000" {
		t.Errorf("out[1] = %s", out[1])
	}
	if !strings.HasPrefix(out[8], "ENTITY: agente_01 is a Agent") || !strings.HasPrefix(out[9], "ENTITY: agente_02 is a Agent") {
		t.Errorf("agents = %s / %s", out[8], out[9])
	}
	if !strings.Contains(out[10], "is a BestSlot") {
		t.Errorf("out[10] = %s, want first best slot", out[10])
	}

	last, ok := facts.ParseRelationship(out[len(out)-1])
	if !ok || last.Type != facts.RelFulfilledBy || last.From != "promise_int_001" || last.To != "payment_int_002" {
		t.Errorf("last fact = %s", out[len(out)-1])
	}
}

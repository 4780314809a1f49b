package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// FixtureNow is the evaluation time the sample dataset is written against:
// Monday 2024-09-02 12:00 UTC.
var FixtureNow = time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)

// Clock returns a clock frozen at t.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// MustTime parses an RFC3339 timestamp or panics.
func MustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// InteractionFixture builds a test interaction
type InteractionFixture struct {
	in model.Interaction
}

// NewInteraction creates a successful call by default
func NewInteraction(id, clientID string, at time.Time) InteractionFixture {
	return InteractionFixture{in: model.Interaction{
		ID:       id,
		ClientID: clientID,
		Datetime: at,
		Channel:  model.ChannelCall,
		Outcome:  model.OutcomeSuccessfulContact,
	}}
}

func (f InteractionFixture) WithAgent(agentID string) InteractionFixture {
	f.in.AgentID = agentID
	return f
}

func (f InteractionFixture) WithChannel(c model.Channel) InteractionFixture {
	f.in.Channel = c
	return f
}

func (f InteractionFixture) WithOutcome(o model.Outcome) InteractionFixture {
	f.in.Outcome = o
	return f
}

// AsPromise turns the interaction into a payment promise
func (f InteractionFixture) AsPromise(amount string, due time.Time) InteractionFixture {
	d := decimal.RequireFromString(amount)
	f.in.Outcome = model.OutcomePaymentPromise
	f.in.PromisedAmount = &d
	f.in.PromisedDate = &due
	return f
}

// AsPayment turns the interaction into an immediate payment
func (f InteractionFixture) AsPayment(amount string) InteractionFixture {
	d := decimal.RequireFromString(amount)
	f.in.Outcome = model.OutcomeImmediatePayment
	f.in.PaidAmount = &d
	return f
}

func (f InteractionFixture) Build() model.Interaction {
	return f.in
}

// NewClient creates a client with the given initial debt
func NewClient(id, name, debt string) model.Client {
	return model.Client{
		ID:              id,
		Name:            name,
		Phone:           "+52 55 0000 0000",
		Email:           id + "@example.com",
		InitialDebt:     decimal.RequireFromString(debt),
		CollectionStart: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func at(day, hour int) time.Time {
	return time.Date(2024, 8, day, hour, 0, 0, 0, time.UTC)
}

// SampleDataset returns a small portfolio evaluated at FixtureNow:
//
//	cliente_001  promise int_001 fulfilled by payment int_002, debt 12000
//	cliente_002  promise int_003 broken (18 days overdue), debt 8000
//	cliente_003  promise int_005 pending until 2024-09-05
//	cliente_004  placeholder, only referenced by int_007
func SampleDataset() model.Dataset {
	placeholder := model.Client{
		ID:          "cliente_004",
		Name:        "Client cliente_004",
		Phone:       "N/A",
		InitialDebt: decimal.Zero,
		Placeholder: true,
	}

	clients := []model.Client{
		NewClient("cliente_001", "Ana Torres", "15000"),
		NewClient("cliente_002", "Luis Vega", "8000"),
		NewClient("cliente_003", "Marta Ruiz", "5000"),
		placeholder,
	}

	interactions := []model.Interaction{
		NewInteraction("int_001", "cliente_001", at(5, 10)).WithAgent("agente_01").
			AsPromise("3000", at(10, 0)).Build(),
		NewInteraction("int_002", "cliente_001", at(10, 11)).WithAgent("agente_01").
			AsPayment("3000").Build(),
		NewInteraction("int_003", "cliente_002", at(6, 10)).WithAgent("agente_02").WithChannel(model.ChannelWhatsApp).
			AsPromise("1500", at(15, 0)).Build(),
		NewInteraction("int_004", "cliente_002", at(20, 10)).WithAgent("agente_02").
			WithOutcome(model.OutcomeNoContact).Build(),
		NewInteraction("int_005", "cliente_003", at(30, 10)).WithAgent("agente_01").
			AsPromise("800", time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)).Build(),
		NewInteraction("int_006", "cliente_003", at(12, 9)).WithAgent("agente_02").WithChannel(model.ChannelEmail).
			WithOutcome(model.OutcomeRefusal).Build(),
		NewInteraction("int_007", "cliente_004", at(13, 18)).WithChannel(model.ChannelSMS).Build(),
		NewInteraction("int_008", "cliente_001", at(19, 10)).WithAgent("agente_01").
			WithOutcome(model.OutcomeRenegotiation).Build(),
	}

	return model.Dataset{
		Metadata: model.Metadata{
			Version:           "1.0",
			GeneratedAt:       time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			TotalClients:      len(clients),
			TotalInteractions: len(interactions),
		},
		Clients:      clients,
		Interactions: interactions,
	}
}

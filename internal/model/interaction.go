package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel is the medium used for a contact attempt
type Channel string

const (
	ChannelCall     Channel = "call"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
)

// ParseChannel validates a raw channel value
func ParseChannel(s string) (Channel, bool) {
	switch c := Channel(s); c {
	case ChannelCall, ChannelWhatsApp, ChannelEmail, ChannelSMS:
		return c, true
	}
	return "", false
}

// Outcome is the result of an interaction. The reconciliation engine
// switches on it.
type Outcome string

const (
	OutcomeSuccessfulContact Outcome = "successful_contact"
	OutcomeNoContact         Outcome = "no_contact"
	OutcomePaymentPromise    Outcome = "payment_promise"
	OutcomeImmediatePayment  Outcome = "immediate_payment"
	OutcomeRenegotiation     Outcome = "renegotiation"
	OutcomeRefusal           Outcome = "refusal"
)

// ParseOutcome validates a raw outcome value
func ParseOutcome(s string) (Outcome, bool) {
	switch o := Outcome(s); o {
	case OutcomeSuccessfulContact, OutcomeNoContact, OutcomePaymentPromise,
		OutcomeImmediatePayment, OutcomeRenegotiation, OutcomeRefusal:
		return o, true
	}
	return "", false
}

// Successful reports whether the outcome counts towards a slot's success rate.
func (o Outcome) Successful() bool {
	switch o {
	case OutcomePaymentPromise, OutcomeImmediatePayment, OutcomeRenegotiation:
		return true
	}
	return false
}

// Interaction is a single logged contact attempt or payment event.
// A zero Datetime marks a timestamp that could not be parsed.
type Interaction struct {
	ID             string           `json:"id"`
	ClientID       string           `json:"client_id"`
	AgentID        string           `json:"agent_id,omitempty"`
	Datetime       time.Time        `json:"datetime"`
	Channel        Channel          `json:"channel"`
	Outcome        Outcome          `json:"outcome"`
	PromisedAmount *decimal.Decimal `json:"promised_amount,omitempty"`
	PromisedDate   *time.Time       `json:"promised_date,omitempty"`
	PaidAmount     *decimal.Decimal `json:"paid_amount,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// IsPromise reports whether the interaction is a payment promise with a due date.
func (i Interaction) IsPromise() bool {
	return i.Outcome == OutcomePaymentPromise && i.PromisedDate != nil && !i.PromisedDate.IsZero()
}

// IsPayment reports whether the interaction is an immediate payment with a positive amount.
func (i Interaction) IsPayment() bool {
	return i.Outcome == OutcomeImmediatePayment && amountPresent(i.PaidAmount)
}

// HasValidTime reports whether the interaction timestamp parsed.
func (i Interaction) HasValidTime() bool {
	return !i.Datetime.IsZero()
}

// PromisedValue returns the promised amount, or zero when absent.
func (i Interaction) PromisedValue() decimal.Decimal {
	if !amountPresent(i.PromisedAmount) {
		return decimal.Zero
	}
	return *i.PromisedAmount
}

// PaidValue returns the paid amount, or zero when absent.
func (i Interaction) PaidValue() decimal.Decimal {
	if !amountPresent(i.PaidAmount) {
		return decimal.Zero
	}
	return *i.PaidAmount
}

func amountPresent(d *decimal.Decimal) bool {
	return d != nil && d.IsPositive()
}

// Client is a debtor under collection
type Client struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email,omitempty"`
	InitialDebt     decimal.Decimal `json:"initial_debt"`
	CollectionStart time.Time       `json:"collection_start"`
	Placeholder     bool            `json:"placeholder,omitempty"`
}

// Metadata describes a dataset export
type Metadata struct {
	Version           string    `json:"version"`
	GeneratedAt       time.Time `json:"generated_at"`
	TotalClients      int       `json:"total_clients"`
	TotalInteractions int       `json:"total_interactions"`
}

// Dataset is the normalized input for ingestion and analytics
type Dataset struct {
	Metadata     Metadata      `json:"metadata"`
	Clients      []Client      `json:"clients"`
	Interactions []Interaction `json:"interactions"`
}

// ClientIndex maps client ids to clients.
func (d Dataset) ClientIndex() map[string]Client {
	idx := make(map[string]Client, len(d.Clients))
	for _, c := range d.Clients {
		idx[c.ID] = c
	}
	return idx
}

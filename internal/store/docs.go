package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// Amounts are stored as decimal strings and timestamps as RFC3339 text so
// the original UTC offset survives the round trip; slot bucketing reads
// the weekday and hour in that offset. DatetimeUTC exists for range queries.
type clientDoc struct {
	ID              string `bson:"id" firestore:"id"`
	Seq             int    `bson:"seq" firestore:"seq"`
	Name            string `bson:"name" firestore:"name"`
	Phone           string `bson:"phone" firestore:"phone"`
	Email           string `bson:"email,omitempty" firestore:"email,omitempty"`
	InitialDebt     string `bson:"initial_debt" firestore:"initial_debt"`
	CollectionStart string `bson:"collection_start,omitempty" firestore:"collection_start,omitempty"`
	Placeholder     bool   `bson:"placeholder" firestore:"placeholder"`
}

type interactionDoc struct {
	ID             string     `bson:"id" firestore:"id"`
	Seq            int        `bson:"seq" firestore:"seq"`
	ClientID       string     `bson:"client_id" firestore:"client_id"`
	AgentID        string     `bson:"agent_id,omitempty" firestore:"agent_id,omitempty"`
	Datetime       string     `bson:"datetime,omitempty" firestore:"datetime,omitempty"`
	DatetimeUTC    *time.Time `bson:"datetime_utc,omitempty" firestore:"datetime_utc,omitempty"`
	Channel        string     `bson:"channel" firestore:"channel"`
	Outcome        string     `bson:"outcome" firestore:"outcome"`
	PromisedAmount *string    `bson:"promised_amount,omitempty" firestore:"promised_amount,omitempty"`
	PromisedDate   string     `bson:"promised_date,omitempty" firestore:"promised_date,omitempty"`
	PaidAmount     *string    `bson:"paid_amount,omitempty" firestore:"paid_amount,omitempty"`
	Notes          string     `bson:"notes,omitempty" firestore:"notes,omitempty"`
}

type metadataDoc struct {
	Version      string    `bson:"version" firestore:"version"`
	GeneratedAt  time.Time `bson:"generated_at" firestore:"generated_at"`
	Clients      int       `bson:"clients" firestore:"clients"`
	Placeholders int       `bson:"placeholders" firestore:"placeholders"`
	Interactions int       `bson:"interactions" firestore:"interactions"`
	UpdatedAt    time.Time `bson:"updated_at" firestore:"updated_at"`
}

func toClientDoc(c model.Client, seq int) clientDoc {
	return clientDoc{
		ID:              c.ID,
		Seq:             seq,
		Name:            c.Name,
		Phone:           c.Phone,
		Email:           c.Email,
		InitialDebt:     c.InitialDebt.String(),
		CollectionStart: formatTime(c.CollectionStart),
		Placeholder:     c.Placeholder,
	}
}

func (d clientDoc) toModel() (model.Client, error) {
	debt, err := decimal.NewFromString(d.InitialDebt)
	if err != nil {
		return model.Client{}, fmt.Errorf("client %s: initial_debt: %w", d.ID, err)
	}
	start, err := parseTime(d.CollectionStart)
	if err != nil {
		return model.Client{}, fmt.Errorf("client %s: collection_start: %w", d.ID, err)
	}
	return model.Client{
		ID:              d.ID,
		Name:            d.Name,
		Phone:           d.Phone,
		Email:           d.Email,
		InitialDebt:     debt,
		CollectionStart: start,
		Placeholder:     d.Placeholder,
	}, nil
}

func toInteractionDoc(in model.Interaction, seq int) interactionDoc {
	doc := interactionDoc{
		ID:             in.ID,
		Seq:            seq,
		ClientID:       in.ClientID,
		AgentID:        in.AgentID,
		Datetime:       formatTime(in.Datetime),
		Channel:        string(in.Channel),
		Outcome:        string(in.Outcome),
		PromisedAmount: formatAmount(in.PromisedAmount),
		PaidAmount:     formatAmount(in.PaidAmount),
		Notes:          in.Notes,
	}
	if !in.Datetime.IsZero() {
		utc := in.Datetime.UTC()
		doc.DatetimeUTC = &utc
	}
	if in.PromisedDate != nil {
		doc.PromisedDate = formatTime(*in.PromisedDate)
	}
	return doc
}

func (d interactionDoc) toModel() (model.Interaction, error) {
	at, err := parseTime(d.Datetime)
	if err != nil {
		return model.Interaction{}, fmt.Errorf("interaction %s: datetime: %w", d.ID, err)
	}
	in := model.Interaction{
		ID:       d.ID,
		ClientID: d.ClientID,
		AgentID:  d.AgentID,
		Datetime: at,
		Channel:  model.Channel(d.Channel),
		Outcome:  model.Outcome(d.Outcome),
		Notes:    d.Notes,
	}
	if in.PromisedAmount, err = parseAmount(d.PromisedAmount); err != nil {
		return model.Interaction{}, fmt.Errorf("interaction %s: promised_amount: %w", d.ID, err)
	}
	if in.PaidAmount, err = parseAmount(d.PaidAmount); err != nil {
		return model.Interaction{}, fmt.Errorf("interaction %s: paid_amount: %w", d.ID, err)
	}
	if d.PromisedDate != "" {
		due, err := parseTime(d.PromisedDate)
		if err != nil {
			return model.Interaction{}, fmt.Errorf("interaction %s: promised_date: %w", d.ID, err)
		}
		in.PromisedDate = &due
	}
	return in, nil
}

func newMetadataDoc(ds model.Dataset, now time.Time) metadataDoc {
	return metadataDoc{
		Version:      ds.Metadata.Version,
		GeneratedAt:  ds.Metadata.GeneratedAt,
		Clients:      len(ds.Clients),
		Placeholders: countPlaceholders(ds.Clients),
		Interactions: len(ds.Interactions),
		UpdatedAt:    now,
	}
}

func (d metadataDoc) stats() Stats {
	return Stats{
		Clients:      d.Clients,
		Placeholders: d.Placeholders,
		Interactions: d.Interactions,
		Version:      d.Version,
		GeneratedAt:  d.GeneratedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func formatAmount(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseAmount(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

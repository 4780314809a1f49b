// Package loader reads collection datasets from JSON or CSV exports and
// normalizes them into model.Dataset.
//
// Bad records never abort a load. Each one is dropped and reported as a
// Rejection; callers decide how loudly to complain.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Rejection describes a record dropped during normalization
type Rejection struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Result is a normalized dataset plus load diagnostics
type Result struct {
	Dataset           model.Dataset
	Placeholders      int
	InvalidTimestamps int
	Rejected          []Rejection
}

// LoadFile picks a decoder from the file extension.
func LoadFile(path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()
		return LoadJSON(f)
	case ".csv":
		return LoadCSVFiles(path, "")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadCSVFiles reads an interactions CSV and an optional clients CSV.
func LoadCSVFiles(interactionsPath, clientsPath string) (*Result, error) {
	in, err := os.Open(interactionsPath)
	if err != nil {
		return nil, fmt.Errorf("open interactions: %w", err)
	}
	defer in.Close()

	if clientsPath == "" {
		return LoadCSV(in, nil)
	}

	cl, err := os.Open(clientsPath)
	if err != nil {
		return nil, fmt.Errorf("open clients: %w", err)
	}
	defer cl.Close()
	return LoadCSV(in, cl)
}

// clientRecord and interactionRecord are the format-neutral shapes every
// decoder produces before validation.
type clientRecord struct {
	ID              string
	Name            string
	Phone           string
	Email           string
	InitialDebt     decimal.Decimal
	CollectionStart string
	invalid         string
}

type interactionRecord struct {
	ID             string
	ClientID       string
	AgentID        string
	Datetime       string
	Channel        string
	Outcome        string
	PromisedAmount *decimal.Decimal
	PromisedDate   string
	PaidAmount     *decimal.Decimal
	Notes          string
	invalid        string
}

// Spanish values used by the legacy collection exports
var channelAliases = map[string]model.Channel{
	"llamada": model.ChannelCall,
}

var outcomeAliases = map[string]model.Outcome{
	"contacto_exitoso": model.OutcomeSuccessfulContact,
	"no_contacto":      model.OutcomeNoContact,
	"promesa_pago":     model.OutcomePaymentPromise,
	"pago_inmediato":   model.OutcomeImmediatePayment,
	"renegociacion":    model.OutcomeRenegotiation,
	"negativa":         model.OutcomeRefusal,
}

func parseChannel(s string) (model.Channel, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := channelAliases[s]; ok {
		return c, true
	}
	return model.ParseChannel(s)
}

func parseOutcome(s string) (model.Outcome, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if o, ok := outcomeAliases[s]; ok {
		return o, true
	}
	return model.ParseOutcome(s)
}

// normalize validates raw records and assembles the dataset. Clients
// referenced by accepted interactions but missing from the client list get
// placeholders appended in first-reference order.
func normalize(meta model.Metadata, clients []clientRecord, interactions []interactionRecord) *Result {
	res := &Result{
		Dataset: model.Dataset{
			Metadata:     meta,
			Clients:      make([]model.Client, 0, len(clients)),
			Interactions: make([]model.Interaction, 0, len(interactions)),
		},
		Rejected: make([]Rejection, 0),
	}

	known := make(map[string]bool, len(clients))
	for i, rc := range clients {
		reject := func(reason string) {
			res.Rejected = append(res.Rejected, Rejection{Kind: "client", Index: i, ID: rc.ID, Reason: reason})
		}
		switch {
		case strings.TrimSpace(rc.ID) == "":
			reject("missing id")
			continue
		case known[rc.ID]:
			reject("duplicate id")
			continue
		case rc.invalid != "":
			reject(rc.invalid)
			continue
		case rc.InitialDebt.IsNegative():
			reject("negative initial_debt")
			continue
		}

		start, _ := ParseTimestamp(rc.CollectionStart)
		known[rc.ID] = true
		res.Dataset.Clients = append(res.Dataset.Clients, model.Client{
			ID:              rc.ID,
			Name:            rc.Name,
			Phone:           rc.Phone,
			Email:           rc.Email,
			InitialDebt:     rc.InitialDebt,
			CollectionStart: start,
		})
	}

	seen := make(map[string]bool, len(interactions))
	for i, ri := range interactions {
		in, reason := ri.toInteraction()
		if reason == "" && seen[in.ID] {
			reason = "duplicate id"
		}
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Kind: "interaction", Index: i, ID: ri.ID, Reason: reason})
			continue
		}
		seen[in.ID] = true

		if !in.HasValidTime() {
			res.InvalidTimestamps++
		}
		res.Dataset.Interactions = append(res.Dataset.Interactions, in)

		if !known[in.ClientID] {
			known[in.ClientID] = true
			res.Placeholders++
			res.Dataset.Clients = append(res.Dataset.Clients, model.Client{
				ID:          in.ClientID,
				Name:        "Client " + in.ClientID,
				Phone:       "N/A",
				InitialDebt: decimal.Zero,
				Placeholder: true,
			})
		}
	}

	res.Dataset.Metadata.TotalClients = len(res.Dataset.Clients)
	res.Dataset.Metadata.TotalInteractions = len(res.Dataset.Interactions)
	return res
}

// toInteraction returns a non-empty reason when the record must be dropped.
// An unparseable datetime is kept as a zero time; the engine skips it where
// time matters.
func (r interactionRecord) toInteraction() (model.Interaction, string) {
	if strings.TrimSpace(r.ID) == "" {
		return model.Interaction{}, "missing id"
	}
	if r.invalid != "" {
		return model.Interaction{}, r.invalid
	}
	if strings.TrimSpace(r.ClientID) == "" {
		return model.Interaction{}, "missing client_id"
	}
	channel, ok := parseChannel(r.Channel)
	if !ok {
		return model.Interaction{}, fmt.Sprintf("unknown channel %q", r.Channel)
	}
	outcome, ok := parseOutcome(r.Outcome)
	if !ok {
		return model.Interaction{}, fmt.Sprintf("unknown outcome %q", r.Outcome)
	}
	if isNegative(r.PromisedAmount) || isNegative(r.PaidAmount) {
		return model.Interaction{}, "negative amount"
	}

	datetime, _ := ParseTimestamp(r.Datetime)
	in := model.Interaction{
		ID:             r.ID,
		ClientID:       r.ClientID,
		AgentID:        r.AgentID,
		Datetime:       datetime,
		Channel:        channel,
		Outcome:        outcome,
		PromisedAmount: r.PromisedAmount,
		PaidAmount:     r.PaidAmount,
		Notes:          r.Notes,
	}
	if due, ok := ParseTimestamp(r.PromisedDate); ok {
		in.PromisedDate = &due
	}
	return in, ""
}

func isNegative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339 and the offset-less layouts found in
// exports. Offset-less values are read as UTC wall time.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

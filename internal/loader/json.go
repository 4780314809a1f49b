package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// jsonDocument accepts both the English layout and the Spanish layout of
// the legacy collection exports (clientes/interacciones). Records stay raw
// so one badly typed record is rejected on its own.
type jsonDocument struct {
	Metadata      jsonMetadata      `json:"metadata"`
	Clients       []json.RawMessage `json:"clients"`
	Interactions  []json.RawMessage `json:"interactions"`
	Clientes      []json.RawMessage `json:"clientes"`
	Interacciones []json.RawMessage `json:"interacciones"`
}

// Totals are recomputed after validation, so only identifying fields are read.
type jsonMetadata struct {
	Version         string `json:"version"`
	GeneratedAt     string `json:"generated_at"`
	FechaGeneracion string `json:"fecha_generacion"`
}

type jsonClient struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	InitialDebt     decimal.Decimal `json:"initial_debt"`
	CollectionStart string          `json:"collection_start"`
}

type jsonInteraction struct {
	ID             string           `json:"id"`
	ClientID       string           `json:"client_id"`
	AgentID        string           `json:"agent_id"`
	Datetime       string           `json:"datetime"`
	Channel        string           `json:"channel"`
	Outcome        string           `json:"outcome"`
	PromisedAmount *decimal.Decimal `json:"promised_amount"`
	PromisedDate   string           `json:"promised_date"`
	PaidAmount     *decimal.Decimal `json:"paid_amount"`
	Notes          string           `json:"notes"`
}

type legacyClient struct {
	ID                  string          `json:"id"`
	Nombre              string          `json:"nombre"`
	Telefono            string          `json:"telefono"`
	Email               string          `json:"email"`
	DeudaInicial        decimal.Decimal `json:"deuda_inicial"`
	FechaInicioCobranza string          `json:"fecha_inicio_cobranza"`
}

type legacyInteraction struct {
	ID             string           `json:"id"`
	ClienteID      string           `json:"cliente_id"`
	AgenteID       string           `json:"agente_id"`
	FechaHora      string           `json:"fecha_hora"`
	Tipo           string           `json:"tipo"`
	Resultado      string           `json:"resultado"`
	MontoPrometido *decimal.Decimal `json:"monto_prometido"`
	FechaPromesa   string           `json:"fecha_promesa"`
	MontoPagado    *decimal.Decimal `json:"monto_pagado"`
	Observaciones  string           `json:"observaciones"`
}

// LoadJSON decodes a dataset document.
func LoadJSON(r io.Reader) (*Result, error) {
	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	meta := model.Metadata{Version: doc.Metadata.Version}
	generated := doc.Metadata.GeneratedAt
	if generated == "" {
		generated = doc.Metadata.FechaGeneracion
	}
	meta.GeneratedAt, _ = ParseTimestamp(generated)

	clients := make([]clientRecord, 0, len(doc.Clients)+len(doc.Clientes))
	for _, raw := range doc.Clients {
		var c jsonClient
		if err := json.Unmarshal(raw, &c); err != nil {
			clients = append(clients, invalidClient(raw, err))
			continue
		}
		clients = append(clients, clientRecord{
			ID:              c.ID,
			Name:            c.Name,
			Phone:           c.Phone,
			Email:           c.Email,
			InitialDebt:     c.InitialDebt,
			CollectionStart: c.CollectionStart,
		})
	}
	for _, raw := range doc.Clientes {
		var c legacyClient
		if err := json.Unmarshal(raw, &c); err != nil {
			clients = append(clients, invalidClient(raw, err))
			continue
		}
		clients = append(clients, clientRecord{
			ID:              c.ID,
			Name:            c.Nombre,
			Phone:           c.Telefono,
			Email:           c.Email,
			InitialDebt:     c.DeudaInicial,
			CollectionStart: c.FechaInicioCobranza,
		})
	}

	interactions := make([]interactionRecord, 0, len(doc.Interactions)+len(doc.Interacciones))
	for _, raw := range doc.Interactions {
		var in jsonInteraction
		if err := json.Unmarshal(raw, &in); err != nil {
			interactions = append(interactions, invalidInteraction(raw, err))
			continue
		}
		interactions = append(interactions, interactionRecord{
			ID:             in.ID,
			ClientID:       in.ClientID,
			AgentID:        in.AgentID,
			Datetime:       in.Datetime,
			Channel:        in.Channel,
			Outcome:        in.Outcome,
			PromisedAmount: in.PromisedAmount,
			PromisedDate:   in.PromisedDate,
			PaidAmount:     in.PaidAmount,
			Notes:          in.Notes,
		})
	}
	for _, raw := range doc.Interacciones {
		var in legacyInteraction
		if err := json.Unmarshal(raw, &in); err != nil {
			interactions = append(interactions, invalidInteraction(raw, err))
			continue
		}
		interactions = append(interactions, interactionRecord{
			ID:             in.ID,
			ClientID:       in.ClienteID,
			AgentID:        in.AgenteID,
			Datetime:       in.FechaHora,
			Channel:        in.Tipo,
			Outcome:        in.Resultado,
			PromisedAmount: in.MontoPrometido,
			PromisedDate:   in.FechaPromesa,
			PaidAmount:     in.MontoPagado,
			Notes:          in.Observaciones,
		})
	}

	return normalize(meta, clients, interactions), nil
}

func invalidClient(raw json.RawMessage, err error) clientRecord {
	return clientRecord{
		ID:      rawString(raw, "id"),
		invalid: "invalid record: " + err.Error(),
	}
}

func invalidInteraction(raw json.RawMessage, err error) interactionRecord {
	clientID := rawString(raw, "client_id")
	if clientID == "" {
		clientID = rawString(raw, "cliente_id")
	}
	return interactionRecord{
		ID:       rawString(raw, "id"),
		ClientID: clientID,
		invalid:  "invalid record: " + err.Error(),
	}
}

// rawString returns the string field key of a record that failed to decode,
// or "" when the record is not an object or the field is not a string.
func rawString(raw json.RawMessage, key string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	var v string
	if err := json.Unmarshal(fields[key], &v); err != nil {
		return ""
	}
	return v
}

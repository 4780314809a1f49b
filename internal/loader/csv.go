package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/model"
)

// LoadCSV reads an interactions CSV with header
// id,client_id,agent_id,datetime,channel,outcome,promised_amount,promised_date,paid_amount,notes
// and, when clients is non-nil, a clients CSV with header
// id,name,phone,email,initial_debt,collection_start. Columns are matched by
// header name, so extra or reordered columns are fine.
func LoadCSV(interactions io.Reader, clients io.Reader) (*Result, error) {
	var clientRecords []clientRecord
	if clients != nil {
		rows, err := readCSV(clients, "id")
		if err != nil {
			return nil, fmt.Errorf("read clients csv: %w", err)
		}
		clientRecords = make([]clientRecord, 0, len(rows))
		for _, row := range rows {
			rc := clientRecord{
				ID:              row.get("id"),
				Name:            row.get("name"),
				Phone:           row.get("phone"),
				Email:           row.get("email"),
				CollectionStart: row.get("collection_start"),
			}
			debt, err := parseAmount(row.get("initial_debt"))
			switch {
			case err != nil:
				rc.invalid = "invalid initial_debt"
			case debt != nil:
				rc.InitialDebt = *debt
			}
			clientRecords = append(clientRecords, rc)
		}
	}

	rows, err := readCSV(interactions, "id", "client_id", "datetime", "channel", "outcome")
	if err != nil {
		return nil, fmt.Errorf("read interactions csv: %w", err)
	}

	records := make([]interactionRecord, 0, len(rows))
	for _, row := range rows {
		ri := interactionRecord{
			ID:           row.get("id"),
			ClientID:     row.get("client_id"),
			AgentID:      row.get("agent_id"),
			Datetime:     row.get("datetime"),
			Channel:      row.get("channel"),
			Outcome:      row.get("outcome"),
			PromisedDate: row.get("promised_date"),
			Notes:        row.get("notes"),
		}
		promised, perr := parseAmount(row.get("promised_amount"))
		paid, aerr := parseAmount(row.get("paid_amount"))
		if perr != nil || aerr != nil {
			ri.invalid = "invalid amount"
		}
		ri.PromisedAmount = promised
		ri.PaidAmount = paid
		records = append(records, ri)
	}

	return normalize(model.Metadata{Version: "csv"}, clientRecords, records), nil
}

type csvRow struct {
	columns map[string]int
	fields  []string
}

func (r csvRow) get(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func readCSV(r io.Reader, required ...string) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	rows := make([]csvRow, 0)
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, csvRow{columns: columns, fields: fields})
	}
	return rows, nil
}

// parseAmount returns nil for an empty cell.
func parseAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

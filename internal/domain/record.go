package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tells whether a line item is planned or executed spend
type Kind string

const (
	KindBudget Kind = "Mes"
	KindActual Kind = "Real"
	// KindAll is only meaningful inside a FilterSpec
	KindAll Kind = "Todos"
)

// Label returns the word used for the kind inside synthesized descriptions
func (k Kind) Label() string {
	if k == KindBudget {
		return "Presupuesto"
	}
	return string(k)
}

// Fallbacks for records that arrive without a concept or cost center
const (
	DefaultCategory = "Sin concepto"
	DefaultChannel  = "Sin centro de costo"
)

// OptionalAmount is a raw amount field that remembers whether the key was sent.
// A JSON null counts as sent, with a zero value. A value that is not a number
// is kept as sent but Malformed, with a zero value.
type OptionalAmount struct {
	Value     decimal.Decimal
	Present   bool
	Malformed bool
}

// Amount returns a present OptionalAmount
func Amount(v decimal.Decimal) OptionalAmount {
	return OptionalAmount{Value: v, Present: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (a *OptionalAmount) UnmarshalJSON(data []byte) error {
	a.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		a.Value = decimal.Zero
		return nil
	}
	if err := a.Value.UnmarshalJSON(data); err != nil {
		a.Value = decimal.Zero
		a.Malformed = true
	}
	return nil
}

// Usable reports whether the field was sent with a numeric value
func (a OptionalAmount) Usable() bool {
	return a.Present && !a.Malformed
}

// MarshalJSON implements json.Marshaler
func (a OptionalAmount) MarshalJSON() ([]byte, error) {
	if !a.Usable() {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// RawRecord is one budget-vs-actual row as delivered by the data source,
// one per reporting period and cost concept
type RawRecord struct {
	RowNumber           int            `json:"row_number"`
	Year                int            `json:"anio"`
	Month               string         `json:"mes"`
	CostCenter          string         `json:"centro_costo"`
	Concept             string         `json:"concepto"`
	Budget              OptionalAmount `json:"presupuesto"`
	Actual              OptionalAmount `json:"real"`
	Variance            OptionalAmount `json:"variacion_real_presup"`
	PriorMonthVariance  OptionalAmount `json:"variacion_mes_anterior"`
	RemainingProjection OptionalAmount `json:"proyeccion_rem"`
}

// UnmarshalJSON implements json.Unmarshaler. Row number and year accept
// numbers or numeric strings; anything else reads as 0.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	type plain RawRecord
	aux := struct {
		*plain
		RowNumber json.RawMessage `json:"row_number"`
		Year      json.RawMessage `json:"anio"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.RowNumber = lenientInt(aux.RowNumber)
	r.Year = lenientInt(aux.Year)
	return nil
}

func lenientInt(data json.RawMessage) int {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || isJSONNull(data) {
		return 0
	}

	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return 0
		}
	}

	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0
	}
	return int(d.IntPart())
}

// Record is the canonical line item derived from a RawRecord
type Record struct {
	RowNumber   int              `json:"rowNumber"`
	Date        time.Time        `json:"date"`
	Kind        Kind             `json:"kind"`
	Category    string           `json:"category"`
	Channel     string           `json:"channel"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Variance    *decimal.Decimal `json:"variance,omitempty"`
}

// RecordSource fetches the raw dataset from wherever it lives
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]*RawRecord, error)
}

// DecodeRawRecords decodes a data source body. The body is either a bare array
// or an object wrapping the array under "Data" or "data". Elements that are null
// or are not JSON objects come back as nil entries.
func DecodeRawRecords(body []byte) ([]*RawRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		inner, ok := wrapper["Data"]
		if !ok || isJSONNull(inner) {
			inner, ok = wrapper["data"]
		}
		if !ok || isJSONNull(inner) {
			return []*RawRecord{}, nil
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected body shape", ErrMalformedPayload)
	}

	records := make([]*RawRecord, len(items))
	for i, item := range items {
		if isJSONNull(item) {
			continue
		}
		var raw RawRecord
		if err := json.Unmarshal(item, &raw); err != nil {
			continue
		}
		records[i] = &raw
	}
	return records, nil
}

func isJSONNull(data json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

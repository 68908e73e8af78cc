// Package ledger holds the pure transformation pipeline of the dashboard:
// normalize raw rows, filter them, aggregate and project the selection.
// Every function here is total over its inputs and never mutates them.
package ledger

import (
	"fmt"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/util"
)

// Normalizer turns raw rows into canonical records
type Normalizer struct {
	// StrictMonths drops rows whose month name is unknown instead of
	// placing them in January
	StrictMonths bool
}

// Normalize converts one raw row into zero, one or two canonical records.
// Rows without a year or month are unusable and yield nothing.
func (n Normalizer) Normalize(raw *domain.RawRecord) []domain.Record {
	if raw == nil || raw.Year == 0 || raw.Month == "" {
		return nil
	}

	month, ok := util.MonthNumber(raw.Month)
	if !ok {
		if n.StrictMonths {
			return nil
		}
		month = 1
	}

	base := domain.Record{
		Date:     util.ReportingDate(raw.Year, month),
		Category: raw.Concept,
		Channel:  raw.CostCenter,
	}
	if base.Category == "" {
		base.Category = domain.DefaultCategory
	}
	if base.Channel == "" {
		base.Channel = domain.DefaultChannel
	}
	if raw.Variance.Usable() {
		v := raw.Variance.Value
		base.Variance = &v
	}

	records := make([]domain.Record, 0, 2)
	if raw.Budget.Present {
		records = append(records, n.side(base, raw, domain.KindBudget, raw.RowNumber*2, raw.Budget))
	}
	if raw.Actual.Present {
		records = append(records, n.side(base, raw, domain.KindActual, raw.RowNumber*2+1, raw.Actual))
	}
	return records
}

func (n Normalizer) side(base domain.Record, raw *domain.RawRecord, kind domain.Kind, rowNumber int, amount domain.OptionalAmount) domain.Record {
	rec := base
	rec.RowNumber = rowNumber
	rec.Kind = kind
	rec.Amount = amount.Value
	rec.Description = fmt.Sprintf("%s - %s %s %d", rec.Category, kind.Label(), raw.Month, raw.Year)
	return rec
}

// NormalizeAll normalizes a whole dataset, keeping the relative input order
func (n Normalizer) NormalizeAll(raws []*domain.RawRecord) []domain.Record {
	records := make([]domain.Record, 0, len(raws)*2)
	for _, raw := range raws {
		records = append(records, n.Normalize(raw)...)
	}
	return records
}

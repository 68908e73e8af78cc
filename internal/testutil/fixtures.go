package testutil

import (
	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// NewRawRecord builds a raw row carrying both a budget and an actual amount
func NewRawRecord(row, year int, month, costCenter, concept string, budget, actual int64) *domain.RawRecord {
	return &domain.RawRecord{
		RowNumber:  row,
		Year:       year,
		Month:      month,
		CostCenter: costCenter,
		Concept:    concept,
		Budget:     domain.Amount(decimal.NewFromInt(budget)),
		Actual:     domain.Amount(decimal.NewFromInt(actual)),
	}
}

// SampleRawRecords is a small dataset spanning three months, two concepts and two cost centers
func SampleRawRecords() []*domain.RawRecord {
	return []*domain.RawRecord{
		NewRawRecord(1, 2024, "ENERO", "Ventas", "Marketing", 1000, 800),
		NewRawRecord(2, 2024, "FEBRERO", "Planta", "Operaciones", 500, 700),
		NewRawRecord(3, 2024, "MARZO", "Ventas", "Operaciones", 300, 100),
	}
}

package service

import (
	"fmt"
	"io"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportSheet is the name of the worksheet holding the records table
const ExportSheet = "Sheet1"

// ExportColumns are the header cells of the exported table
var ExportColumns = []interface{}{"Fecha", "Tipo", "Cuenta Contable", "Canal", "Importe", "Descripción", "Desvío"}

// ExportService writes the records table as a spreadsheet
type ExportService struct{}

// NewExportService creates a new ExportService
func NewExportService() *ExportService {
	return &ExportService{}
}

// WriteXLSX writes records in the given order, one row each, followed by the
// deviation of the row's category. Amounts are stored as numbers.
func (s *ExportService) WriteXLSX(w io.Writer, records []domain.Record, deviations map[string]decimal.Decimal) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(ExportSheet, "A1", &ExportColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range records {
		row := []interface{}{
			util.FormatDate(rec.Date),
			string(rec.Kind),
			rec.Category,
			rec.Channel,
			rec.Amount.InexactFloat64(),
			rec.Description,
			deviations[rec.Category].InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

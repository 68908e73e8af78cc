package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/tablero/tablero-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

func TestGetRecords_DefaultOrder(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newLoadedDashboardService(t), service.NewExportService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetRecords(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response PaginatedRecordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Sort != "date" || response.Dir != "desc" {
		t.Errorf("Expected default sort date desc, got %s %s", response.Sort, response.Dir)
	}
	if response.Page != 1 || response.PageSize != 10 || response.TotalItems != 6 || response.TotalPages != 1 {
		t.Errorf("Unexpected pagination: %+v", response)
	}
	if len(response.Data) != 6 {
		t.Fatalf("Expected 6 rows, got %d", len(response.Data))
	}

	first := response.Data[0]
	if first.RowNumber != 6 || first.Date != "2024-03-15" || first.DateLabel != "15/03/2024" {
		t.Errorf("Expected newest budget row first, got %+v", first)
	}
	if first.Kind != "Mes" || first.Amount != "300.00" {
		t.Errorf("Expected Mes 300.00, got %s %s", first.Kind, first.Amount)
	}
	if response.Data[4].CategoryDeviation != "200.00" {
		t.Errorf("Expected Marketing deviation '200.00', got %s", response.Data[4].CategoryDeviation)
	}
}

func TestGetRecords_SortAndFilter(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newLoadedDashboardService(t), service.NewExportService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?category=Operaciones&sort=amount&dir=asc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetRecords(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response PaginatedRecordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	amounts := make([]string, 0, len(response.Data))
	for _, r := range response.Data {
		amounts = append(amounts, r.Amount)
	}
	want := []string{"100.00", "300.00", "500.00", "700.00"}
	if strings.Join(amounts, ",") != strings.Join(want, ",") {
		t.Errorf("Expected amounts %v, got %v", want, amounts)
	}
	for _, r := range response.Data {
		if r.CategoryDeviation != "0.00" {
			t.Errorf("Expected Operaciones deviation '0.00', got %s", r.CategoryDeviation)
		}
	}
}

func TestGetRecords_ClampsPage(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newLoadedDashboardService(t), service.NewExportService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records?page=99", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetRecords(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var response PaginatedRecordsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Page != 1 {
		t.Errorf("Expected page clamped to 1, got %d", response.Page)
	}
}

func TestGetRecords_InvalidParams(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newLoadedDashboardService(t), service.NewExportService())

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"invalid sort", "sort=variance", "sort"},
		{"invalid dir", "dir=up", "dir"},
		{"invalid page", "page=abc", "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/records?"+tt.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.GetRecords(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}

			var problem ProblemDetails
			if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if len(problem.Errors) != 1 || problem.Errors[0].Field != tt.field {
				t.Errorf("Expected one error on %s, got %+v", tt.field, problem.Errors)
			}
		})
	}
}

func TestGetRecords_DatasetUnavailable(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newFailedDashboardService(t), service.NewExportService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.GetRecords(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
}

func TestExportRecords(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newLoadedDashboardService(t), service.NewExportService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/export?kind=Real&sort=amount&dir=desc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ExportRecords(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxContentType {
		t.Errorf("Expected content type %s, got %s", xlsxContentType, ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "registros_") {
		t.Errorf("Expected export filename in Content-Disposition, got %s", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(service.ExportSheet)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	// header plus three actual records
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}
	if rows[1][0] != "15/01/2024" || rows[1][2] != "Marketing" {
		t.Errorf("Expected largest actual (Marketing, January) first, got %v", rows[1])
	}
}

func TestExportRecords_InvalidParams(t *testing.T) {
	e := echo.New()
	handler := NewRecordHandler(newLoadedDashboardService(t), service.NewExportService())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/export?to=31-12-2024", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ExportRecords(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/service"
	"github.com/dafibh/tablero/tablero-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordHandler serves the records table
type RecordHandler struct {
	dashboardService *service.DashboardService
	exportService    *service.ExportService
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(dashboardService *service.DashboardService, exportService *service.ExportService) *RecordHandler {
	return &RecordHandler{
		dashboardService: dashboardService,
		exportService:    exportService,
	}
}

// RecordResponse represents one table row in API response
type RecordResponse struct {
	RowNumber         int     `json:"rowNumber"`
	Date              string  `json:"date"`
	DateLabel         string  `json:"dateLabel"`
	Kind              string  `json:"kind"`
	Category          string  `json:"category"`
	Channel           string  `json:"channel"`
	Amount            string  `json:"amount"`
	Description       string  `json:"description"`
	Variance          *string `json:"variance,omitempty"`
	CategoryDeviation string  `json:"categoryDeviation"`
}

// PaginatedRecordsResponse represents a page of the records table
type PaginatedRecordsResponse struct {
	Data       []RecordResponse `json:"data"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
	Sort       string           `json:"sort"`
	Dir        string           `json:"dir"`
}

func toRecordResponse(row domain.RecordRow) RecordResponse {
	resp := RecordResponse{
		RowNumber:         row.RowNumber,
		Date:              row.Date.Format(queryDateLayout),
		DateLabel:         util.FormatDate(row.Date),
		Kind:              string(row.Kind),
		Category:          row.Category,
		Channel:           row.Channel,
		Amount:            row.Amount.StringFixed(2),
		Description:       row.Description,
		CategoryDeviation: row.CategoryDeviation.StringFixed(2),
	}
	if row.Variance != nil {
		v := row.Variance.StringFixed(2)
		resp.Variance = &v
	}
	return resp
}

// GetRecords handles GET /api/v1/records
// @Summary List records
// @Description Filtered, sorted page of the records table (10 rows per page)
// @Tags records
// @Produce json
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Param kind query string false "Todos, Mes or Real"
// @Param category query []string false "Categories to keep" collectionFormat(multi)
// @Param channel query []string false "Channels to keep" collectionFormat(multi)
// @Param q query string false "Search text"
// @Param sort query string false "date, kind, category, channel, amount or description" default(date)
// @Param dir query string false "asc or desc" default(desc)
// @Param page query int false "Page number" default(1)
// @Success 200 {object} PaginatedRecordsResponse
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /records [get]
func (h *RecordHandler) GetRecords(c echo.Context) error {
	spec, errs := parseFilterSpec(c)
	field, dir, sortErrs := parseSort(c)
	page, pageErrs := parsePage(c)
	errs = append(append(errs, sortErrs...), pageErrs...)
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	result, err := h.dashboardService.GetRecords(spec, field, dir, page)
	if err != nil {
		return newDatasetError(c, err)
	}

	data := make([]RecordResponse, 0, len(result.Rows))
	for _, row := range result.Rows {
		data = append(data, toRecordResponse(row))
	}

	return c.JSON(http.StatusOK, PaginatedRecordsResponse{
		Data:       data,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
		Sort:       string(field),
		Dir:        string(dir),
	})
}

// ExportRecords handles GET /api/v1/records/export
// @Summary Export records
// @Description Whole filtered, sorted table as an XLSX workbook
// @Tags records
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Param kind query string false "Todos, Mes or Real"
// @Param category query []string false "Categories to keep" collectionFormat(multi)
// @Param channel query []string false "Channels to keep" collectionFormat(multi)
// @Param q query string false "Search text"
// @Param sort query string false "Sort field" default(date)
// @Param dir query string false "asc or desc" default(desc)
// @Success 200 {file} file
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /records/export [get]
func (h *RecordHandler) ExportRecords(c echo.Context) error {
	spec, errs := parseFilterSpec(c)
	field, dir, sortErrs := parseSort(c)
	errs = append(errs, sortErrs...)
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	records, deviations, err := h.dashboardService.FilteredSorted(spec, field, dir)
	if err != nil {
		return newDatasetError(c, err)
	}

	filename := fmt.Sprintf("registros_%s.xlsx", time.Now().Format("20060102"))
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, xlsxContentType)
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	res.WriteHeader(http.StatusOK)

	if err := h.exportService.WriteXLSX(res, records, deviations); err != nil {
		// Headers are already sent; all that is left is to log
		log.Error().Err(err).Int("records", len(records)).Msg("Failed to write export")
	}
	return nil
}

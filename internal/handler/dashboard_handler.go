package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// KPIResponse represents the headline metrics in API response
type KPIResponse struct {
	TotalActual          string `json:"totalActual"`
	TotalBudget          string `json:"totalBudget"`
	TotalDeviation       string `json:"totalDeviation"`
	UnderBudget          bool   `json:"underBudget"`
	MostProfitable       string `json:"mostProfitable"`
	MostProfitableAmount string `json:"mostProfitableAmount"`
	OperationCount       int    `json:"operationCount"`
	ActualCount          int    `json:"actualCount"`
	AverageTicket        string `json:"averageTicket"`
}

// GroupTotalsResponse represents one chart group in API response
type GroupTotalsResponse struct {
	Key       string `json:"key"`
	Budget    string `json:"budget"`
	Actual    string `json:"actual"`
	Deviation string `json:"deviation"`
}

// ShareSliceResponse represents one slice of the actual spend chart
type ShareSliceResponse struct {
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	Percent string `json:"percent"`
}

// DashboardSummaryResponse represents the dashboard summary API response
type DashboardSummaryResponse struct {
	DateRange          string                `json:"dateRange"`
	KPIs               KPIResponse           `json:"kpis"`
	ByCategory         []GroupTotalsResponse `json:"byCategory"`
	ByChannel          []GroupTotalsResponse `json:"byChannel"`
	ByDate             []GroupTotalsResponse `json:"byDate"`
	ActualShare        []ShareSliceResponse  `json:"actualShare"`
	CategoryDeviations map[string]string     `json:"categoryDeviations"`
	LoadedAt           time.Time             `json:"loadedAt"`
}

// FilterOptionsResponse represents the selectable filter values
type FilterOptionsResponse struct {
	Categories []string `json:"categories"`
	Channels   []string `json:"channels"`
	Kinds      []string `json:"kinds"`
}

// DatasetStatusResponse represents the state of the in-memory dataset
type DatasetStatusResponse struct {
	Status      string     `json:"status"`
	RecordCount int        `json:"recordCount"`
	LoadedAt    *time.Time `json:"loadedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func toGroupTotalsResponses(groups []domain.GroupTotals) []GroupTotalsResponse {
	result := make([]GroupTotalsResponse, 0, len(groups))
	for _, g := range groups {
		result = append(result, GroupTotalsResponse{
			Key:       g.Key,
			Budget:    g.Budget.StringFixed(2),
			Actual:    g.Actual.StringFixed(2),
			Deviation: g.Deviation().StringFixed(2),
		})
	}
	return result
}

func toSummaryResponse(summary *domain.DashboardSummary) DashboardSummaryResponse {
	kpis := summary.KPIs

	shares := make([]ShareSliceResponse, 0, len(summary.ActualShare))
	for _, s := range summary.ActualShare {
		shares = append(shares, ShareSliceResponse{
			Name:    s.Name,
			Amount:  s.Amount.StringFixed(2),
			Percent: s.Percent.StringFixed(1),
		})
	}

	deviations := make(map[string]string, len(summary.CategoryDeviations))
	for category, d := range summary.CategoryDeviations {
		deviations[category] = d.StringFixed(2)
	}

	return DashboardSummaryResponse{
		DateRange: summary.DateRange,
		KPIs: KPIResponse{
			TotalActual:          kpis.TotalActual.StringFixed(2),
			TotalBudget:          kpis.TotalBudget.StringFixed(2),
			TotalDeviation:       kpis.TotalDeviation.StringFixed(2),
			UnderBudget:          kpis.UnderBudget(),
			MostProfitable:       kpis.MostProfitable.Name,
			MostProfitableAmount: kpis.MostProfitable.Amount.StringFixed(2),
			OperationCount:       kpis.OperationCount,
			ActualCount:          kpis.ActualCount,
			AverageTicket:        kpis.AverageTicket.StringFixed(2),
		},
		ByCategory:         toGroupTotalsResponses(summary.ByCategory),
		ByChannel:          toGroupTotalsResponses(summary.ByChannel),
		ByDate:             toGroupTotalsResponses(summary.ByDate),
		ActualShare:        shares,
		CategoryDeviations: deviations,
		LoadedAt:           summary.LoadedAt,
	}
}

func toStatusResponse(snap *domain.Snapshot) DatasetStatusResponse {
	resp := DatasetStatusResponse{
		Status:      string(snap.Status),
		RecordCount: len(snap.Records),
		Error:       snap.Error,
	}
	if !snap.LoadedAt.IsZero() {
		loadedAt := snap.LoadedAt
		resp.LoadedAt = &loadedAt
	}
	return resp
}

// GetSummary handles GET /api/v1/dashboard/summary
// @Summary Get dashboard summary
// @Description KPIs, chart groupings and date range of the filtered records
// @Tags dashboard
// @Produce json
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Param kind query string false "Todos, Mes or Real"
// @Param category query []string false "Categories to keep" collectionFormat(multi)
// @Param channel query []string false "Channels to keep" collectionFormat(multi)
// @Param q query string false "Search text"
// @Success 200 {object} DashboardSummaryResponse
// @Failure 400 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	spec, errs := parseFilterSpec(c)
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid filters", errs)
	}

	summary, err := h.dashboardService.GetSummary(spec)
	if err != nil {
		return newDatasetError(c, err)
	}

	return c.JSON(http.StatusOK, toSummaryResponse(summary))
}

// GetOptions handles GET /api/v1/dashboard/options
// @Summary Get filter options
// @Description Distinct categories and channels of the whole dataset
// @Tags dashboard
// @Produce json
// @Success 200 {object} FilterOptionsResponse
// @Failure 503 {object} ProblemDetails
// @Router /dashboard/options [get]
func (h *DashboardHandler) GetOptions(c echo.Context) error {
	options, err := h.dashboardService.GetOptions()
	if err != nil {
		return newDatasetError(c, err)
	}

	return c.JSON(http.StatusOK, FilterOptionsResponse{
		Categories: options.Categories,
		Channels:   options.Channels,
		Kinds:      []string{string(domain.KindAll), string(domain.KindBudget), string(domain.KindActual)},
	})
}

// GetStatus handles GET /api/v1/dashboard/status
// @Summary Get dataset status
// @Tags dashboard
// @Produce json
// @Success 200 {object} DatasetStatusResponse
// @Router /dashboard/status [get]
func (h *DashboardHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, toStatusResponse(h.dashboardService.Current()))
}

// Refresh handles POST /api/v1/dashboard/refresh
// @Summary Reload the dataset
// @Description Fetches the records again and replaces the dataset
// @Tags dashboard
// @Produce json
// @Success 200 {object} DatasetStatusResponse
// @Failure 503 {object} ProblemDetails
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c echo.Context) error {
	// A disconnecting caller must not fail the fetch other callers share
	ctx := context.WithoutCancel(c.Request().Context())

	snap, err := h.dashboardService.Refresh(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			return NewServiceUnavailableError(c, domain.DataUnavailableMessage)
		}
		log.Error().Err(err).Msg("Failed to refresh dataset")
		return NewInternalError(c, "Failed to refresh dataset")
	}

	return c.JSON(http.StatusOK, toStatusResponse(snap))
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoDataLabel is the date range label shown for an empty selection
const NoDataLabel = "no data"

// NotAvailable names the most profitable category when none saved money
const NotAvailable = "N/A"

// GroupField is a key records can be grouped by
type GroupField string

const (
	GroupByCategory GroupField = "category"
	GroupByChannel  GroupField = "channel"
	GroupByDate     GroupField = "date"
)

// GroupTotals holds absolute budget and actual sums for one group key
type GroupTotals struct {
	Key    string
	Budget decimal.Decimal
	Actual decimal.Decimal
}

// Deviation is budget minus actual. Positive means under budget.
func (g GroupTotals) Deviation() decimal.Decimal {
	return g.Budget.Sub(g.Actual)
}

// CategoryAmount names a category together with an amount
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// KPISet contains the headline metrics of a filtered selection
type KPISet struct {
	TotalActual    decimal.Decimal
	TotalBudget    decimal.Decimal
	TotalDeviation decimal.Decimal
	MostProfitable CategoryAmount
	OperationCount int
	ActualCount    int
	AverageTicket  decimal.Decimal
}

// UnderBudget reports whether the selection spent less than planned
func (k KPISet) UnderBudget() bool {
	return !k.TotalDeviation.IsNegative()
}

// ShareSlice is one category's part of total actual spend
type ShareSlice struct {
	Name    string
	Amount  decimal.Decimal
	Percent decimal.Decimal
}

// DashboardSummary is everything the dashboard renders for one filter state
type DashboardSummary struct {
	DateRange          string
	KPIs               KPISet
	ByCategory         []GroupTotals
	ByChannel          []GroupTotals
	ByDate             []GroupTotals
	ActualShare        []ShareSlice
	CategoryDeviations map[string]decimal.Decimal
	LoadedAt           time.Time
}

// FilterOptions lists the values selectable in the category and channel filters
type FilterOptions struct {
	Categories []string
	Channels   []string
}

// SortField is a column the records table can be ordered by
type SortField string

const (
	SortByDate        SortField = "date"
	SortByKind        SortField = "kind"
	SortByCategory    SortField = "category"
	SortByChannel     SortField = "channel"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"
)

// Valid reports whether the field is sortable
func (f SortField) Valid() bool {
	switch f {
	case SortByDate, SortByKind, SortByCategory, SortByChannel, SortByAmount, SortByDescription:
		return true
	}
	return false
}

// SortDirection orders a sort ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PageSize is the fixed number of table rows per page
const PageSize = 10

// Page is one page of a sorted selection
type Page struct {
	Items      []Record
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// RecordRow is a table row annotated with its category's deviation
type RecordRow struct {
	Record
	CategoryDeviation decimal.Decimal
}

// RecordPage is the page served to the records table
type RecordPage struct {
	Rows       []RecordRow
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

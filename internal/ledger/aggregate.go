package ledger

import (
	"slices"
	"sort"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/util"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GroupBy sums absolute budget and actual amounts per key. Category and channel
// groups come in first-appearance order, date groups in chronological order.
func GroupBy(records []domain.Record, by domain.GroupField) []domain.GroupTotals {
	switch by {
	case domain.GroupByCategory:
		keys, totals := groupTotals(records, func(r domain.Record) string { return r.Category })
		return collect(keys, totals)
	case domain.GroupByChannel:
		keys, totals := groupTotals(records, func(r domain.Record) string { return r.Channel })
		return collect(keys, totals)
	case domain.GroupByDate:
		keys, totals := groupTotals(records, func(r domain.Record) time.Time { return r.Date })
		slices.SortFunc(keys, time.Time.Compare)
		groups := make([]domain.GroupTotals, 0, len(keys))
		for _, k := range keys {
			g := *totals[k]
			g.Key = util.FormatDate(k)
			groups = append(groups, g)
		}
		return groups
	}
	return []domain.GroupTotals{}
}

// groupTotals accumulates per-key sums and remembers the order keys were first seen in
func groupTotals[K comparable](records []domain.Record, key func(domain.Record) K) ([]K, map[K]*domain.GroupTotals) {
	order := make([]K, 0)
	totals := make(map[K]*domain.GroupTotals)

	for _, rec := range records {
		k := key(rec)
		g, ok := totals[k]
		if !ok {
			g = &domain.GroupTotals{Budget: decimal.Zero, Actual: decimal.Zero}
			totals[k] = g
			order = append(order, k)
		}
		switch rec.Kind {
		case domain.KindBudget:
			g.Budget = g.Budget.Add(rec.Amount.Abs())
		case domain.KindActual:
			g.Actual = g.Actual.Add(rec.Amount.Abs())
		}
	}
	return order, totals
}

func collect(keys []string, totals map[string]*domain.GroupTotals) []domain.GroupTotals {
	groups := make([]domain.GroupTotals, 0, len(keys))
	for _, k := range keys {
		g := *totals[k]
		g.Key = k
		groups = append(groups, g)
	}
	return groups
}

// CategoryDeviations returns budget minus actual for every category present
func CategoryDeviations(records []domain.Record) map[string]decimal.Decimal {
	groups := GroupBy(records, domain.GroupByCategory)
	deviations := make(map[string]decimal.Decimal, len(groups))
	for _, g := range groups {
		deviations[g.Key] = g.Deviation()
	}
	return deviations
}

// ComputeKPIs derives the headline metrics of a selection
func ComputeKPIs(records []domain.Record) domain.KPISet {
	kpis := domain.KPISet{
		TotalActual:    decimal.Zero,
		TotalBudget:    decimal.Zero,
		MostProfitable: domain.CategoryAmount{Name: domain.NotAvailable, Amount: decimal.Zero},
		OperationCount: len(records),
		AverageTicket:  decimal.Zero,
	}

	for _, rec := range records {
		switch rec.Kind {
		case domain.KindActual:
			kpis.TotalActual = kpis.TotalActual.Add(rec.Amount.Abs())
			kpis.ActualCount++
		case domain.KindBudget:
			kpis.TotalBudget = kpis.TotalBudget.Add(rec.Amount.Abs())
		}
	}
	kpis.TotalDeviation = kpis.TotalBudget.Sub(kpis.TotalActual)

	// strict comparison: on ties the first category seen wins
	for _, g := range GroupBy(records, domain.GroupByCategory) {
		if d := g.Deviation(); d.GreaterThan(kpis.MostProfitable.Amount) {
			kpis.MostProfitable = domain.CategoryAmount{Name: g.Key, Amount: d}
		}
	}

	if kpis.ActualCount > 0 {
		kpis.AverageTicket = kpis.TotalActual.Div(decimal.NewFromInt(int64(kpis.ActualCount)))
	}
	return kpis
}

// DateRangeLabel formats the earliest and latest dates of a selection as
// "dd/MM/yyyy - dd/MM/yyyy", or returns domain.NoDataLabel when it is empty
func DateRangeLabel(records []domain.Record) string {
	if len(records) == 0 {
		return domain.NoDataLabel
	}

	minDate, maxDate := records[0].Date, records[0].Date
	for _, rec := range records[1:] {
		if rec.Date.Before(minDate) {
			minDate = rec.Date
		}
		if rec.Date.After(maxDate) {
			maxDate = rec.Date
		}
	}
	return util.FormatDate(minDate) + " - " + util.FormatDate(maxDate)
}

// DistinctCategories lists the sorted non-empty categories of a dataset.
// Callers pass the unfiltered dataset so filter choices never disappear.
func DistinctCategories(records []domain.Record) []string {
	return distinct(records, func(r domain.Record) string { return r.Category })
}

// DistinctChannels lists the sorted non-empty channels of a dataset
func DistinctChannels(records []domain.Record) []string {
	return distinct(records, func(r domain.Record) string { return r.Channel })
}

func distinct(records []domain.Record, value func(domain.Record) string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for _, rec := range records {
		v := value(rec)
		if v != "" && !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}

// ActualShare splits total actual spend by category. Percentages are rounded
// to one decimal and are zero when nothing was spent.
func ActualShare(records []domain.Record) []domain.ShareSlice {
	actual := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if rec.Kind == domain.KindActual {
			actual = append(actual, rec)
		}
	}
	keys, totals := groupTotals(actual, func(r domain.Record) string { return r.Category })

	total := decimal.Zero
	for _, k := range keys {
		total = total.Add(totals[k].Actual)
	}

	shares := make([]domain.ShareSlice, 0, len(keys))
	for _, k := range keys {
		share := domain.ShareSlice{Name: k, Amount: totals[k].Actual, Percent: decimal.Zero}
		if total.IsPositive() {
			share.Percent = share.Amount.Mul(hundred).Div(total).Round(1)
		}
		shares = append(shares, share)
	}
	return shares
}

package ledger

import (
	"slices"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Project sorts a copy of records by field and direction and returns the
// requested 1-based page. Ties keep their input order. Out-of-range pages
// come back empty; clamping is up to the caller.
func Project(records []domain.Record, field domain.SortField, dir domain.SortDirection, page, pageSize int) domain.Page {
	if pageSize < 1 {
		pageSize = domain.PageSize
	}

	sorted := Sort(records, field, dir)

	result := domain.Page{
		Items:      []domain.Record{},
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(sorted),
		TotalPages: TotalPages(len(sorted), pageSize),
	}

	if page < 1 {
		return result
	}
	start := (page - 1) * pageSize
	if start >= len(sorted) {
		return result
	}
	end := min(start+pageSize, len(sorted))
	result.Items = sorted[start:end]
	return result
}

// TotalPages is ceil(count / pageSize), never less than one
func TotalPages(count, pageSize int) int {
	if pageSize < 1 {
		pageSize = domain.PageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Sort returns a stably sorted copy of records
func Sort(records []domain.Record, field domain.SortField, dir domain.SortDirection) []domain.Record {
	sorted := slices.Clone(records)
	if sorted == nil {
		sorted = []domain.Record{}
	}

	cmp := comparator(field)
	if dir == domain.SortDesc {
		slices.SortStableFunc(sorted, func(a, b domain.Record) int { return -cmp(a, b) })
	} else {
		slices.SortStableFunc(sorted, cmp)
	}
	return sorted
}

func comparator(field domain.SortField) func(a, b domain.Record) int {
	switch field {
	case domain.SortByDate:
		return func(a, b domain.Record) int { return a.Date.Compare(b.Date) }
	case domain.SortByAmount:
		return func(a, b domain.Record) int { return a.Amount.Cmp(b.Amount) }
	case domain.SortByKind:
		return textComparator(func(r domain.Record) string { return string(r.Kind) })
	case domain.SortByCategory:
		return textComparator(func(r domain.Record) string { return r.Category })
	case domain.SortByChannel:
		return textComparator(func(r domain.Record) string { return r.Channel })
	case domain.SortByDescription:
		return textComparator(func(r domain.Record) string { return r.Description })
	}
	return func(a, b domain.Record) int { return 0 }
}

// textComparator compares with Spanish collation rules. A Collator is not
// safe for concurrent use, so each sort builds its own.
func textComparator(value func(domain.Record) string) func(a, b domain.Record) int {
	c := collate.New(language.Spanish)
	return func(a, b domain.Record) int {
		return c.CompareString(value(a), value(b))
	}
}

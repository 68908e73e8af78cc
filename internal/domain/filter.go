package domain

import (
	"strings"
	"time"
)

// FilterSpec is the full set of user-selected filter criteria, evaluated conjunctively.
// The zero value restricts nothing.
type FilterSpec struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	Kind       Kind
	Categories []string
	Channels   []string
	SearchText string
}

// IsEmpty reports whether the filter restricts nothing
func (f FilterSpec) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		f.AllKinds() &&
		len(f.Categories) == 0 &&
		len(f.Channels) == 0 &&
		f.SearchText == ""
}

// AllKinds reports whether the filter accepts both budget and actual records
func (f FilterSpec) AllKinds() bool {
	return f.Kind == "" || f.Kind == KindAll
}

// ParseKind maps a query value to a filter kind. Both the dashboard labels
// (Todos, Mes, Real) and their English names are accepted, case-insensitively.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "todos", "all":
		return KindAll, true
	case "mes", "budget":
		return KindBudget, true
	case "real", "actual":
		return KindActual, true
	default:
		return "", false
	}
}

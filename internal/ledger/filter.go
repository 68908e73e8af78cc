package ledger

import (
	"strconv"
	"strings"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
)

// Apply returns the records matching every criterion of spec, in input order.
// An empty spec keeps every record.
func Apply(records []domain.Record, spec domain.FilterSpec) []domain.Record {
	m := newMatcher(spec)

	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if m.match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// matcher precomputes lookup sets so each record is checked in one pass
type matcher struct {
	spec        domain.FilterSpec
	categories  map[string]bool
	channels    map[string]bool
	searchLower string
}

func newMatcher(spec domain.FilterSpec) matcher {
	return matcher{
		spec:        spec,
		categories:  toSet(spec.Categories),
		channels:    toSet(spec.Channels),
		searchLower: strings.ToLower(spec.SearchText),
	}
}

func (m matcher) match(rec domain.Record) bool {
	if m.spec.DateFrom != nil && rec.Date.Before(*m.spec.DateFrom) {
		return false
	}
	if m.spec.DateTo != nil && rec.Date.After(*m.spec.DateTo) {
		return false
	}
	if !m.spec.AllKinds() && rec.Kind != m.spec.Kind {
		return false
	}
	if len(m.categories) > 0 && !m.categories[rec.Category] {
		return false
	}
	if len(m.channels) > 0 && !m.channels[rec.Channel] {
		return false
	}
	if m.spec.SearchText != "" {
		// description match ignores case, row number match does not
		inDescription := strings.Contains(strings.ToLower(rec.Description), m.searchLower)
		inRowNumber := strings.Contains(strconv.Itoa(rec.RowNumber), m.spec.SearchText)
		if !inDescription && !inRowNumber {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

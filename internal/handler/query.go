package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/labstack/echo/v4"
)

const queryDateLayout = "2006-01-02"

// parseFilterSpec reads the dashboard filters from the query string.
// Repeated category and channel params select several values.
func parseFilterSpec(c echo.Context) (domain.FilterSpec, []ValidationError) {
	var spec domain.FilterSpec
	var errs []ValidationError

	if from := c.QueryParam("from"); from != "" {
		parsed, err := time.Parse(queryDateLayout, from)
		if err != nil {
			errs = append(errs, ValidationError{Field: "from", Message: "Must be a date (YYYY-MM-DD)"})
		} else {
			spec.DateFrom = &parsed
		}
	}

	if to := c.QueryParam("to"); to != "" {
		parsed, err := time.Parse(queryDateLayout, to)
		if err != nil {
			errs = append(errs, ValidationError{Field: "to", Message: "Must be a date (YYYY-MM-DD)"})
		} else {
			spec.DateTo = &parsed
		}
	}

	kind, ok := domain.ParseKind(c.QueryParam("kind"))
	if !ok {
		errs = append(errs, ValidationError{Field: "kind", Message: "Must be one of Todos, Mes, Real"})
	}
	spec.Kind = kind

	query := c.QueryParams()
	spec.Categories = nonEmpty(query["category"])
	spec.Channels = nonEmpty(query["channel"])
	spec.SearchText = c.QueryParam("q")

	return spec, errs
}

// parseSort reads the table ordering, defaulting to newest first
func parseSort(c echo.Context) (domain.SortField, domain.SortDirection, []ValidationError) {
	var errs []ValidationError

	field := domain.SortByDate
	if s := c.QueryParam("sort"); s != "" {
		field = domain.SortField(strings.ToLower(s))
		if !field.Valid() {
			errs = append(errs, ValidationError{Field: "sort", Message: "Must be one of date, kind, category, channel, amount, description"})
		}
	}

	dir := domain.SortDesc
	if d := c.QueryParam("dir"); d != "" {
		dir = domain.SortDirection(strings.ToLower(d))
		if dir != domain.SortAsc && dir != domain.SortDesc {
			errs = append(errs, ValidationError{Field: "dir", Message: "Must be asc or desc"})
		}
	}

	return field, dir, errs
}

func parsePage(c echo.Context) (int, []ValidationError) {
	pageStr := c.QueryParam("page")
	if pageStr == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		return 0, []ValidationError{{Field: "page", Message: "Must be a valid integer"}}
	}
	return page, nil
}

func nonEmpty(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

package util

import (
	"strings"
	"time"
)

// DateLayout is the dd/MM/yyyy layout used for labels shown to users
const DateLayout = "02/01/2006"

// ReportingDay is the day of month a monthly figure is placed on
const ReportingDay = 15

var monthNumbers = map[string]int{
	"ENERO":      1,
	"FEBRERO":    2,
	"MARZO":      3,
	"ABRIL":      4,
	"MAYO":       5,
	"JUNIO":      6,
	"JULIO":      7,
	"AGOSTO":     8,
	"SEPTIEMBRE": 9,
	"OCTUBRE":    10,
	"NOVIEMBRE":  11,
	"DICIEMBRE":  12,
}

// MonthNumber maps a Spanish month name to 1-12, ignoring case.
// ok is false when the name is not one of the twelve.
func MonthNumber(name string) (month int, ok bool) {
	month, ok = monthNumbers[strings.ToUpper(name)]
	return month, ok
}

// ReportingDate returns the date a monthly figure for year/month is plotted on
func ReportingDate(year, month int) time.Time {
	return time.Date(year, time.Month(month), ReportingDay, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats t as dd/MM/yyyy
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

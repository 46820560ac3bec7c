package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is an inclusive date filter.
type DateRange struct {
	Begin time.Time
	End   time.Time
}

// Contains reports whether d falls within the range, both ends inclusive.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Begin) && !d.After(r.End)
}

// ReportTransaction is a single line of a derived report.
type ReportTransaction struct {
	Date      time.Time       `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Narrative string          `json:"narrative"`
}

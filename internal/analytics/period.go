package analytics

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger/internal/domain"
)

// UnknownPeriod is returned when no transaction date can be parsed.
const UnknownPeriod = "Unknown period"

// InferPeriod describes the span covered by the statement: "October 2026"
// when every date falls in one month, otherwise "01 Oct – 15 Nov 2026".
// Unparseable dates are ignored.
func InferPeriod(txns []domain.CategorizedTransaction) string {
	var lo, hi civil.Date
	found := false
	for _, t := range txns {
		d, err := civil.ParseDate(t.Date)
		if err != nil {
			continue
		}
		if !found {
			lo, hi, found = d, d, true
			continue
		}
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	if !found {
		return UnknownPeriod
	}

	first, last := lo.In(time.UTC), hi.In(time.UTC)
	if lo.Year == hi.Year && lo.Month == hi.Month {
		return first.Format("January 2006")
	}
	return first.Format("02 Jan") + " – " + last.Format("02 Jan 2006")
}

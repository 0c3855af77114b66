package analytics

import (
	"sort"

	"github.com/dvloznov/ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// UncategorisedLabel groups debit rows that carry no category.
const UncategorisedLabel = "Uncategorised"

var hundred = decimal.NewFromInt(100)

// CategorySummaries groups debit spend by category, sorted by total
// descending. Ties keep the order in which categories were first seen.
func CategorySummaries(txns []domain.CategorizedTransaction) []domain.CategorySummary {
	type bucket struct {
		name  string
		total decimal.Decimal
		count int
	}

	var order []*bucket
	byName := make(map[string]*bucket)
	spend := decimal.Zero
	for _, t := range txns {
		if t.Direction != domain.Debit {
			continue
		}
		name := t.Category
		if name == "" {
			name = UncategorisedLabel
		}
		b, ok := byName[name]
		if !ok {
			b = &bucket{name: name}
			byName[name] = b
			order = append(order, b)
		}
		b.total = b.total.Add(amountOf(t))
		b.count++
		spend = spend.Add(amountOf(t))
	}

	// Floor the denominator so an all-zero debit set cannot divide by zero.
	if spend.IsZero() {
		spend = decimal.NewFromInt(1)
	}

	summary := make([]domain.CategorySummary, 0, len(order))
	for _, b := range order {
		summary = append(summary, domain.CategorySummary{
			Name:       b.name,
			Total:      round2(b.total),
			Count:      b.count,
			PctOfSpend: b.total.Div(spend).Mul(hundred).Round(1).InexactFloat64(),
		})
	}

	sort.SliceStable(summary, func(i, j int) bool {
		return summary[i].Total > summary[j].Total
	})
	return summary
}

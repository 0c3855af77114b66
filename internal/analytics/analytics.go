// Package analytics derives the financial summary from a categorized
// statement. Everything here is pure and deterministic; money is summed in
// decimal so repeated runs over the same input agree to the cent.
package analytics

import (
	"github.com/Rhymond/go-money"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Options tunes the idle-cash estimate.
type Options struct {
	// SafetyBufferPct is the fraction of the net balance held back as a cushion.
	SafetyBufferPct float64
	// LiquidFundRate and SavingsRate are annual yields used in the recommendation.
	LiquidFundRate float64
	SavingsRate    float64
	// CurrencyCode selects the grapheme and separators of the recommendation text.
	CurrencyCode string
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return Options{
		SafetyBufferPct: 0.20,
		LiquidFundRate:  0.07,
		SavingsRate:     0.03,
		CurrencyCode:    money.INR,
	}
}

// Analyze builds the complete result for one statement.
func Analyze(txns []domain.CategorizedTransaction, opts Options) domain.AnalysisResult {
	transactions := append([]domain.CategorizedTransaction{}, txns...)
	return domain.AnalysisResult{
		Transactions:     transactions,
		Categories:       CategorySummaries(transactions),
		IdleCash:         ComputeIdleCash(transactions, opts),
		Subscriptions:    FindSubscriptions(transactions),
		TransactionCount: len(transactions),
		Period:           InferPeriod(transactions),
	}
}

func amountOf(t domain.CategorizedTransaction) decimal.Decimal {
	return decimal.NewFromFloat(t.Amount)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

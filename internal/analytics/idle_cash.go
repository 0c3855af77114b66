package analytics

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/dvloznov/ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var twelve = decimal.NewFromInt(12)

// ComputeIdleCash estimates how much of the statement's net inflow could be
// invested after keeping a safety buffer.
//
//	balance            = income - burn
//	safety_buffer      = balance * SafetyBufferPct
//	investable_surplus = balance - safety_buffer
func ComputeIdleCash(txns []domain.CategorizedTransaction, opts Options) domain.IdleCash {
	burn := decimal.Zero
	income := decimal.Zero
	for _, t := range txns {
		switch t.Direction {
		case domain.Debit:
			burn = burn.Add(amountOf(t))
		case domain.Credit:
			income = income.Add(amountOf(t))
		}
	}

	balance := income.Sub(burn)
	buffer := balance.Mul(decimal.NewFromFloat(opts.SafetyBufferPct))
	surplus := balance.Sub(buffer)

	result := domain.IdleCash{
		MonthlyBurn:       round2(burn),
		TotalIncome:       round2(income),
		Balance:           round2(balance),
		SafetyBuffer:      round2(buffer),
		InvestableSurplus: round2(surplus),
	}

	// Decided on the reported figure so the field and the text never disagree.
	if surplus.Round(2).IsPositive() {
		rec := recommendation(surplus, opts)
		result.Recommendation = &rec
	}
	return result
}

func recommendation(surplus decimal.Decimal, opts Options) string {
	liquid := surplus.Mul(decimal.NewFromFloat(opts.LiquidFundRate)).Div(twelve).Round(0)
	savings := surplus.Mul(decimal.NewFromFloat(opts.SavingsRate)).Div(twelve).Round(0)
	pct := decimal.NewFromFloat(opts.SafetyBufferPct).Shift(2)

	return fmt.Sprintf(
		"You have %s in investable surplus after your monthly burn and a %s%% safety buffer. "+
			"Moving this to a risk-free Liquid Fund or Digital Gold could yield ~%s/month (%s%% p.a.) "+
			"vs. ~%s/month sitting idle in savings (%s%% p.a.).",
		formatWhole(surplus, opts.CurrencyCode),
		pct.String(),
		formatWhole(liquid, opts.CurrencyCode),
		decimal.NewFromFloat(opts.LiquidFundRate).Shift(2).String(),
		formatWhole(savings, opts.CurrencyCode),
		decimal.NewFromFloat(opts.SavingsRate).Shift(2).String(),
	)
}

// formatWhole renders an amount rounded to whole units with the currency's
// grapheme and thousands separator, e.g. ₹77,347.
func formatWhole(amount decimal.Decimal, currencyCode string) string {
	cur := money.GetCurrency(currencyCode)
	if cur == nil {
		cur = money.GetCurrency(money.INR)
	}
	f := money.NewFormatter(0, cur.Decimal, cur.Thousand, cur.Grapheme, cur.Template)
	return f.Format(amount.Round(0).IntPart())
}

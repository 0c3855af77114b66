package domain

// IdleCash is the liquidity estimate derived from one statement.
// All amounts are rounded to two decimals.
type IdleCash struct {
	MonthlyBurn       float64 `json:"monthly_burn"`
	TotalIncome       float64 `json:"total_income"`
	Balance           float64 `json:"balance"`
	SafetyBuffer      float64 `json:"safety_buffer"`
	InvestableSurplus float64 `json:"investable_surplus"`
	// Recommendation is nil unless InvestableSurplus > 0.
	Recommendation *string `json:"recommendation"`
}

// SubscriptionItem is a transaction flagged as recurring spend.
type SubscriptionItem struct {
	Description string  `json:"desc"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}

// CategorySummary aggregates debit spend for one category.
type CategorySummary struct {
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	PctOfSpend float64 `json:"pct_of_spend"`
}

// AnalysisResult is the final output of one pipeline run.
type AnalysisResult struct {
	Transactions     []CategorizedTransaction `json:"transactions"`
	Categories       []CategorySummary        `json:"categories"`
	IdleCash         IdleCash                 `json:"idle_cash"`
	Subscriptions    []SubscriptionItem       `json:"subscriptions"`
	TransactionCount int                      `json:"transaction_count"`
	Period           string                   `json:"period,omitempty"`
}

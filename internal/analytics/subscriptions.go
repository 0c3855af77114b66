package analytics

import (
	"strings"

	"github.com/dvloznov/ledger/internal/domain"
)

// subscriptionKeywords are matched against the lowercased category label.
var subscriptionKeywords = []string{"subscription", "subscriptions", "streaming", "saas"}

// IsSubscriptionCategory reports whether a category label names recurring spend.
func IsSubscriptionCategory(category string) bool {
	label := strings.ToLower(category)
	if label == "" {
		return false
	}
	for _, kw := range subscriptionKeywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// FindSubscriptions returns the transactions whose category marks them as a
// subscription. There is no amount or frequency heuristic: the decision rests
// entirely on the label chosen by the categorization stage.
func FindSubscriptions(txns []domain.CategorizedTransaction) []domain.SubscriptionItem {
	subs := []domain.SubscriptionItem{}
	for _, t := range txns {
		if !IsSubscriptionCategory(t.Category) {
			continue
		}
		subs = append(subs, domain.SubscriptionItem{
			Description: t.Description,
			Amount:      t.Amount,
			Date:        t.Date,
		})
	}
	return subs
}

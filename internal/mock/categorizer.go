package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/dvloznov/ledger/internal/domain"
)

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "Miscellaneous"

// Rule maps a lowercase description keyword to a category.
type Rule struct {
	Keyword  string
	Category string
}

// DefaultRules is ordered: when several keywords occur in one description
// the earliest rule wins.
var DefaultRules = []Rule{
	{"zomato", "Dining & Local Eats"},
	{"salary", "Income"},
	{"varalakshi", "Dining & Local Eats"},
	{"zerodha", "Investments"},
	{"ola", "Commute & Transport"},
	{"youtube", "Streaming Subscriptions"},
	{"rameshwaram", "Dining & Local Eats"},
	{"bescom", "Household Utilities"},
	{"amazon", "Online Shopping"},
	{"google", "Streaming Subscriptions"},
	{"metro", "Commute & Transport"},
	{"swiggy", "Dining & Local Eats"},
	{"lic", "Insurance & Protection"},
	{"spotify", "Streaming Subscriptions"},
	{"rapido", "Commute & Transport"},
	{"blinkit", "Dining & Local Eats"},
	{"groww", "Investments"},
	{"netflix", "Streaming Subscriptions"},
	{"phonepe", "Family Remittances"},
	{"bbmp", "Household Utilities"},
}

// Categorizer assigns categories by substring lookup. All keywords are found
// in a single pass over the description.
type Categorizer struct {
	rules   []Rule
	matcher *ahocorasick.Matcher
	mu      sync.Mutex // Match keeps per-call state inside the matcher
}

// NewCategorizer builds a categorizer from rules; nil uses DefaultRules.
func NewCategorizer(rules []Rule) *Categorizer {
	if rules == nil {
		rules = DefaultRules
	}
	keywords := make([][]byte, len(rules))
	for i, r := range rules {
		keywords[i] = []byte(strings.ToLower(r.Keyword))
	}
	return &Categorizer{
		rules:   rules,
		matcher: ahocorasick.NewMatcher(keywords),
	}
}

// Match returns the category for one description.
func (c *Categorizer) Match(description string) string {
	c.mu.Lock()
	hits := c.matcher.Match([]byte(strings.ToLower(description)))
	c.mu.Unlock()
	if len(hits) == 0 {
		return DefaultCategory
	}
	first := hits[0]
	for _, h := range hits[1:] {
		if h < first {
			first = h
		}
	}
	return c.rules[first].Category
}

// Categorize implements the categorization stage contract. The taxonomy is
// the distinct assigned labels in first-seen order. The input is not modified.
func (c *Categorizer) Categorize(ctx context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var taxonomy domain.Taxonomy
	out := make([]domain.CategorizedTransaction, 0, len(txns))
	for _, t := range txns {
		category := c.Match(t.Description)
		if !seen[category] {
			seen[category] = true
			taxonomy = append(taxonomy, category)
		}
		out = append(out, t.WithCategory(category))
	}
	return taxonomy, out, nil
}

package gemini

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger/internal/domain"
	"google.golang.org/genai"
)

// CategorizationTemperature allows mild variety in label wording.
const CategorizationTemperature float32 = 0.1

type categorizationResult struct {
	CategoriesUsed []string                        `json:"categories_used"`
	Transactions   []domain.CategorizedTransaction `json:"transactions"`
}

// Categorizer invents a per-statement taxonomy and labels every row with it.
type Categorizer struct {
	client *Client
}

// NewCategorizer creates a categorization stage backed by client.
func NewCategorizer(client *Client) *Categorizer {
	return &Categorizer{client: client}
}

// Categorize returns the invented taxonomy and the labelled transactions.
// Whether the output covers the input is checked by the caller.
func (c *Categorizer) Categorize(ctx context.Context, txns []domain.RawTransaction) (domain.Taxonomy, []domain.CategorizedTransaction, error) {
	var out categorizationResult
	err := c.client.generateJSON(ctx, request{
		system:      categorizationInstruction,
		temperature: CategorizationTemperature,
		schema:      categorizationSchema(),
		parts:       []*genai.Part{genai.NewPartFromText(categorizationPrompt(txns))},
	}, &out)
	if err != nil {
		return nil, nil, fmt.Errorf("Categorize: %w", err)
	}
	if out.CategoriesUsed == nil || out.Transactions == nil {
		return nil, nil, fmt.Errorf("Categorize: %w: missing categories_used or transactions", ErrSchemaViolation)
	}
	return domain.Taxonomy(out.CategoriesUsed), out.Transactions, nil
}

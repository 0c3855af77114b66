package gemini

import (
	"github.com/dvloznov/ledger/internal/domain"
	"google.golang.org/genai"
)

func transactionProperties() map[string]*genai.Schema {
	return map[string]*genai.Schema{
		"date": {
			Type:        genai.TypeString,
			Description: "Transaction date in YYYY-MM-DD format",
		},
		"desc": {
			Type:        genai.TypeString,
			Description: "Merchant name or transaction description",
		},
		"amount": {
			Type:        genai.TypeNumber,
			Description: "Positive transaction amount",
		},
		"type": {
			Type:        genai.TypeString,
			Description: "Exactly 'Debit' or 'Credit'",
			Enum:        []string{string(domain.Debit), string(domain.Credit)},
		},
	}
}

var transactionFields = []string{"date", "desc", "amount", "type"}

// extractionSchema is the typed wrapper the extraction call must return.
func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transactions": {
				Type:        genai.TypeArray,
				Description: "All transactions extracted from the bank statement",
				Items: &genai.Schema{
					Type:             genai.TypeObject,
					Properties:       transactionProperties(),
					Required:         transactionFields,
					PropertyOrdering: transactionFields,
				},
			},
		},
		Required: []string{"transactions"},
	}
}

// categorizationSchema is the typed wrapper the categorization call must return.
func categorizationSchema() *genai.Schema {
	props := transactionProperties()
	props["category"] = &genai.Schema{
		Type:        genai.TypeString,
		Description: "AI-assigned lifestyle bucket name",
	}
	fields := append(append([]string(nil), transactionFields...), "category")

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"categories_used": {
				Type:        genai.TypeArray,
				Description: "The 5-8 lifestyle bucket names invented for this person",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
			"transactions": {
				Type:        genai.TypeArray,
				Description: "All transactions with category assigned",
				Items: &genai.Schema{
					Type:             genai.TypeObject,
					Properties:       props,
					Required:         fields,
					PropertyOrdering: fields,
				},
			},
		},
		Required:         []string{"categories_used", "transactions"},
		PropertyOrdering: []string{"categories_used", "transactions"},
	}
}

package gemini

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger/internal/domain"
	"google.golang.org/genai"
)

type extractionResult struct {
	Transactions []domain.RawTransaction `json:"transactions"`
}

// Extractor reads transaction rows off rendered statement pages.
type Extractor struct {
	client *Client
}

// NewExtractor creates an extraction stage backed by client.
func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

// Extract sends every page image in one multimodal request. Pages are
// attached in order, followed by the instruction text.
func (e *Extractor) Extract(ctx context.Context, pages [][]byte) ([]domain.RawTransaction, error) {
	parts := make([]*genai.Part, 0, len(pages)+1)
	for _, png := range pages {
		parts = append(parts, genai.NewPartFromBytes(png, "image/png"))
	}
	parts = append(parts, genai.NewPartFromText(extractionPrompt(len(pages))))

	var out extractionResult
	err := e.client.generateJSON(ctx, request{
		system:      extractionInstruction,
		temperature: 0,
		schema:      extractionSchema(),
		parts:       parts,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w", err)
	}
	if out.Transactions == nil {
		return nil, fmt.Errorf("Extract: %w: missing transactions", ErrSchemaViolation)
	}
	return out.Transactions, nil
}

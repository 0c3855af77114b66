package pipeline

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger/internal/domain"
)

// validateUpload checks the upload before any external call.
func validateUpload(filename string, pdf []byte, maxBytes int64) error {
	if filename == "" || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return newError(KindUnsupportedFileType, StageValidating, msgUnsupportedFileType)
	}
	if len(pdf) == 0 {
		return newError(KindEmptyFile, StageValidating, msgEmptyFile)
	}
	if int64(len(pdf)) > maxBytes {
		return newError(KindFileTooLarge, StageValidating, "File exceeds %d MB limit.", maxBytes/(1024*1024))
	}
	return nil
}

// validateExtracted checks every extracted row is usable downstream.
func validateExtracted(txns []domain.RawTransaction) error {
	for i, t := range txns {
		if _, err := civil.ParseDate(t.Date); err != nil {
			return newError(KindSchema, StageExtracting, "extracted row %d: invalid date %q", i+1, t.Date)
		}
		if !(t.Amount > 0) || math.IsInf(t.Amount, 0) {
			return newError(KindSchema, StageExtracting, "extracted row %d: amount must be positive, got %v", i+1, t.Amount)
		}
		if !t.Direction.Valid() {
			return newError(KindSchema, StageExtracting, "extracted row %d: type must be Debit or Credit, got %q", i+1, t.Direction)
		}
	}
	return nil
}

// TaxonomyValidator checks categorized rows against the taxonomy returned
// with them.
type TaxonomyValidator struct {
	labels map[string]string // normalized -> first spelling
	order  domain.Taxonomy
}

// NewTaxonomyValidator collapses duplicate labels, keeping the first
// spelling. Blank labels are dropped.
func NewTaxonomyValidator(taxonomy domain.Taxonomy) *TaxonomyValidator {
	v := &TaxonomyValidator{labels: make(map[string]string)}
	for _, label := range taxonomy {
		norm := normalizeCategory(label)
		if norm == "" {
			continue
		}
		if _, exists := v.labels[norm]; exists {
			continue
		}
		clean := strings.TrimSpace(label)
		v.labels[norm] = clean
		v.order = append(v.order, clean)
	}
	return v
}

// Taxonomy returns the deduplicated labels in first-seen order.
func (v *TaxonomyValidator) Taxonomy() domain.Taxonomy {
	return v.order
}

// ValidateCategory returns the canonical spelling of category, or an error
// if it is blank or not a member of the taxonomy.
func (v *TaxonomyValidator) ValidateCategory(category string) (string, error) {
	norm := normalizeCategory(category)
	if norm == "" {
		return "", fmt.Errorf("empty category")
	}
	canonical, ok := v.labels[norm]
	if !ok {
		return "", fmt.Errorf("category %q is not in taxonomy %v", category, v.order)
	}
	return canonical, nil
}

// normalizeCategory normalizes a category name for comparison.
// Converts to uppercase and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// rowKey identifies a transaction by the fields the categorizer must not
// change. Amounts are compared in whole paise.
type rowKey struct {
	date        string
	description string
	direction   domain.Direction
	cents       int64
}

func keyOf(date, description string, dir domain.Direction, amount float64) rowKey {
	return rowKey{
		date:        date,
		description: strings.TrimSpace(description),
		direction:   dir,
		cents:       int64(math.Round(amount * 100)),
	}
}

// validateCategorized enforces that categorization labels every input row
// exactly once with a taxonomy member. Output rows are rebuilt from the
// matching input row so only the category comes from the model, spelled as
// in the taxonomy.
func validateCategorized(input []domain.RawTransaction, v *TaxonomyValidator, output []domain.CategorizedTransaction) ([]domain.CategorizedTransaction, error) {
	if len(output) != len(input) {
		return nil, newError(KindSchema, StageCategorizing,
			"categorization returned %d transactions for %d inputs", len(output), len(input))
	}

	pending := make(map[rowKey][]domain.RawTransaction, len(input))
	for _, t := range input {
		k := keyOf(t.Date, t.Description, t.Direction, t.Amount)
		pending[k] = append(pending[k], t)
	}

	out := make([]domain.CategorizedTransaction, len(output))
	for i, t := range output {
		category, err := v.ValidateCategory(t.Category)
		if err != nil {
			return nil, newError(KindSchema, StageCategorizing, "categorized row %d: %v", i+1, err)
		}

		k := keyOf(t.Date, t.Description, t.Direction, t.Amount)
		rows := pending[k]
		if len(rows) == 0 {
			return nil, newError(KindSchema, StageCategorizing,
				"categorized row %d (%s %q %s %.2f) does not match any input transaction",
				i+1, t.Date, t.Description, t.Direction, t.Amount)
		}
		pending[k] = rows[1:]

		out[i] = rows[0].WithCategory(category)
	}
	return out, nil
}

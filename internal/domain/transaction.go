package domain

// Direction is the flow of a transaction relative to the account.
type Direction string

const (
	// Debit is money leaving the account.
	Debit Direction = "Debit"
	// Credit is money entering the account.
	Credit Direction = "Credit"
)

// Valid reports whether d is one of the two literal direction labels.
func (d Direction) Valid() bool {
	return d == Debit || d == Credit
}

// DateLayout is the ISO calendar form every transaction date is normalized to.
const DateLayout = "2006-01-02"

// RawTransaction is one ledger line as extracted from the statement pages.
// Field names on the wire match the extraction schema.
type RawTransaction struct {
	Date        string    `json:"date" csv:"date"`     // YYYY-MM-DD
	Description string    `json:"desc" csv:"desc"`     // merchant name or free text
	Amount      float64   `json:"amount" csv:"amount"` // always positive
	Direction   Direction `json:"type" csv:"type"`     // Debit or Credit
}

// CategorizedTransaction is a RawTransaction with the bucket assigned by the
// categorization stage.
type CategorizedTransaction struct {
	Date        string    `json:"date" csv:"date"`
	Description string    `json:"desc" csv:"desc"`
	Amount      float64   `json:"amount" csv:"amount"`
	Direction   Direction `json:"type" csv:"type"`
	Category    string    `json:"category,omitempty" csv:"category"`
}

// Raw strips the category.
func (t CategorizedTransaction) Raw() RawTransaction {
	return RawTransaction{
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount,
		Direction:   t.Direction,
	}
}

// WithCategory attaches a category to a raw transaction.
func (t RawTransaction) WithCategory(category string) CategorizedTransaction {
	return CategorizedTransaction{
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount,
		Direction:   t.Direction,
		Category:    category,
	}
}

// Taxonomy is the ordered set of category labels invented for one statement.
type Taxonomy []string

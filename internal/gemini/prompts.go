package gemini

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/ledger/internal/domain"
)

const extractionInstruction = "You are a financial document parser specialising in Indian bank statements. " +
	"Examine the provided page images carefully. " +
	"Extract EVERY transaction row - do not skip any. " +
	"Rules:\n" +
	"- date must be YYYY-MM-DD\n" +
	"- amount must always be a positive number\n" +
	"- type must be exactly 'Debit' or 'Credit'\n" +
	"- Skip opening balance, closing balance, and totals rows\n" +
	"- If a date is missing, infer from context or use the statement period"

const categorizationInstruction = "You are a personal finance analyst with deep knowledge of Indian spending habits. " +
	"You will receive a list of bank transactions. Your job:\n\n" +
	"1. Invent 5-8 meaningful lifestyle category names that best describe THIS specific " +
	"person's spending pattern. Make them descriptive and personal - not generic.\n" +
	"   Good examples (tailor yours): 'Dining & Local Eats', 'Commute & Transport', " +
	"'Streaming Subscriptions', 'Mutual Fund Investments', 'Household Utilities', " +
	"'Online Shopping', 'Family Remittances', 'Insurance & Protection'\n\n" +
	"2. Assign every transaction exactly one category from your invented set.\n\n" +
	"Return categories_used (the list of bucket names you created) and " +
	"transactions (every transaction with its category field filled in, " +
	"copying date, desc, amount and type unchanged)."

func extractionPrompt(pageCount int) string {
	return fmt.Sprintf("This bank statement has %d page(s). "+
		"Extract every transaction and return them in the required structured format.", pageCount)
}

// categorizationPrompt enumerates the transactions one per line as
// "index. date | desc | ₹amount | type".
func categorizationPrompt(txns []domain.RawTransaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here are %d bank transactions from an Indian account. ", len(txns))
	b.WriteString("Invent appropriate lifestyle categories and classify every transaction.\n\n")
	b.WriteString("Transactions:\n")
	for i, t := range txns {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s | %s | ₹%s | %s",
			i+1, t.Date, t.Description, strconv.FormatFloat(t.Amount, 'f', -1, 64), t.Direction)
	}
	return b.String()
}

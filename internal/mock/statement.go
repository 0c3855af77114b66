// Package mock provides the deterministic stand-ins used when no model
// credential is configured: a fixed monthly statement and a keyword lookup
// categorizer. Output contracts match the live extraction and
// categorization stages.
package mock

import (
	"context"

	"github.com/dvloznov/ledger/internal/domain"
)

var statement = []domain.RawTransaction{
	{Date: "2026-10-01", Description: "Zomato Bangalore", Amount: 685, Direction: domain.Debit},
	{Date: "2026-10-02", Description: "Salary Payout — Oct", Amount: 100253, Direction: domain.Credit},
	{Date: "2026-10-03", Description: "Varalakshi Tiffins", Amount: 180, Direction: domain.Debit},
	{Date: "2026-10-04", Description: "Zerodha Buy Order", Amount: 15000, Direction: domain.Debit},
	{Date: "2026-10-05", Description: "Ola Cabs", Amount: 340, Direction: domain.Debit},
	{Date: "2026-10-06", Description: "YouTube Premium", Amount: 189, Direction: domain.Debit},
	{Date: "2026-10-07", Description: "Rameshwaram Café", Amount: 520, Direction: domain.Debit},
	{Date: "2026-10-08", Description: "BESCOM Electric Bill", Amount: 1200, Direction: domain.Debit},
	{Date: "2026-10-09", Description: "Amazon Order", Amount: 2340, Direction: domain.Debit},
	{Date: "2026-10-10", Description: "Google One Storage", Amount: 130, Direction: domain.Debit},
	{Date: "2026-10-11", Description: "Namma Metro Recharge", Amount: 500, Direction: domain.Debit},
	{Date: "2026-10-12", Description: "Swiggy Order", Amount: 430, Direction: domain.Debit},
	{Date: "2026-10-13", Description: "LIC Premium", Amount: 4500, Direction: domain.Debit},
	{Date: "2026-10-14", Description: "Spotify Premium", Amount: 119, Direction: domain.Debit},
	{Date: "2026-10-15", Description: "Rapido Bike", Amount: 95, Direction: domain.Debit},
	{Date: "2026-10-16", Description: "Blinkit Groceries", Amount: 1640, Direction: domain.Debit},
	{Date: "2026-10-17", Description: "Groww MF SIP", Amount: 5000, Direction: domain.Debit},
	{Date: "2026-10-18", Description: "Netflix Subscription", Amount: 649, Direction: domain.Debit},
	{Date: "2026-10-19", Description: "PhonePe UPI — Mom", Amount: 3000, Direction: domain.Debit},
	{Date: "2026-10-20", Description: "BBMP Property Tax", Amount: 6200, Direction: domain.Debit},
}

// Statement returns a copy of the fixed synthetic statement.
func Statement() []domain.RawTransaction {
	return append([]domain.RawTransaction(nil), statement...)
}

// Extractor ignores the page images and returns the synthetic statement.
type Extractor struct{}

// NewExtractor creates the fallback extraction stage.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract implements the extraction stage contract.
func (e *Extractor) Extract(ctx context.Context, pages [][]byte) ([]domain.RawTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Statement(), nil
}

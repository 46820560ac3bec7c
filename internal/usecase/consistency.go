package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
)

// historicalSurplus sums the calculated surplus of every line in the book.
func historicalSurplus(book *domain.LedgerBook) decimal.Decimal {
	total := decimal.Zero
	for _, line := range book.Reconciliations() {
		total = total.Add(line.CalculatedSurplus())
	}
	return total
}

// CheckConsistency runs fn, which may append one new reconciliation to book,
// and verifies the surplus of the lines that existed beforehand is unchanged.
// fn returns the line it appended, or nil when it appended nothing.
func CheckConsistency(book *domain.LedgerBook, fn func() (*domain.LedgerEntryLine, error)) (*domain.LedgerEntryLine, error) {
	if book == nil {
		return nil, fmt.Errorf("%w: ledger book", domain.ErrMissingArgument)
	}

	before := historicalSurplus(book)

	line, err := fn()
	if err != nil {
		return nil, err
	}

	after := historicalSurplus(book)
	if line != nil {
		after = after.Sub(line.CalculatedSurplus())
	}

	if !after.Equal(before) {
		return nil, &domain.CorruptedLedgerBookError{Before: before.String(), After: after.String()}
	}
	return line, nil
}

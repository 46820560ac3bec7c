// Package document maps ledger books to and from the persisted JSON
// document shared by every storage backend.
package document

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book is the stored form of a ledger book.
type Book struct {
	Name            string          `json:"name"`
	StorageKey      string          `json:"storage_key"`
	Modified        time.Time       `json:"modified"`
	Checksum        decimal.Decimal `json:"checksum"`
	Ledgers         []Bucket        `json:"ledgers"`
	Reconciliations []Line          `json:"reconciliations"`
}

// Account is the stored form of a bank account.
type Account struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsSalary bool   `json:"is_salary,omitempty"`
}

// Category is the stored form of a budget category.
type Category struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	Active      bool   `json:"active"`
}

// Bucket is the stored form of a ledger bucket.
type Bucket struct {
	Kind     string   `json:"kind"`
	Category Category `json:"category"`
	StoredIn Account  `json:"stored_in"`
}

// BankBalance is the stored form of an account closing balance.
type BankBalance struct {
	Account Account         `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// AutoMatch is the stored form of an auto-matching reference.
type AutoMatch struct {
	Reference string `json:"reference"`
	Consumed  bool   `json:"consumed"`
}

// Transaction is the stored form of a ledger transaction.
type Transaction struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Narrative string          `json:"narrative,omitempty"`
	Date      *time.Time      `json:"date,omitempty"`
	AutoMatch *AutoMatch      `json:"auto_match,omitempty"`
	Account   *Account        `json:"account,omitempty"`
}

// Entry is the stored form of a ledger entry.
type Entry struct {
	Bucket       Bucket          `json:"bucket"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// Line is the stored form of one reconciliation.
type Line struct {
	Date         time.Time     `json:"date"`
	Remarks      string        `json:"remarks,omitempty"`
	BankBalances []BankBalance `json:"bank_balances"`
	Adjustments  []Transaction `json:"balance_adjustments,omitempty"`
	Entries      []Entry       `json:"entries"`
}

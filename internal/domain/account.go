package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType distinguishes the kind of bank account funds are held in.
type AccountType string

const (
	AccountCheque     AccountType = "cheque"
	AccountSavings    AccountType = "savings"
	AccountCreditCard AccountType = "credit_card"
)

// Account is a bank account. Accounts compare by name.
type Account struct {
	Name     string
	Type     AccountType
	IsSalary bool
}

// IsCreditCard reports whether the account is a credit card account.
func (a Account) IsCreditCard() bool {
	return a.Type == AccountCreditCard
}

// SameAs reports whether both values refer to the same bank account.
func (a Account) SameAs(other Account) bool {
	return a.Name == other.Name
}

func (a Account) String() string {
	return a.Name
}

// BankBalance is the closing balance of one account on a reconciliation date.
type BankBalance struct {
	Account Account
	Balance decimal.Decimal
}

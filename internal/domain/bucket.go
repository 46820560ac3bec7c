package domain

import (
	"fmt"
)

// BucketKind is the closed set of ledger bucket variants.
type BucketKind string

const (
	BucketSavedUpFor     BucketKind = "saved_up_for"
	BucketSpentPerPeriod BucketKind = "spent_per_period"
	BucketSurplus        BucketKind = "surplus"
)

// BucketKey is the identity of a ledger bucket.
type BucketKey struct {
	CategoryCode string
	Account      string
}

// LedgerBucket tracks one budget category and the account its funds live in.
// Buckets are values and compare by Key.
type LedgerBucket struct {
	Kind     BucketKind
	Category BudgetCategory
	StoredIn Account
}

// NewLedgerBucket creates a bucket, rejecting categories its kind does not accept.
func NewLedgerBucket(kind BucketKind, category BudgetCategory, storedIn Account) (LedgerBucket, error) {
	policy, err := PolicyFor(kind)
	if err != nil {
		return LedgerBucket{}, err
	}
	if err := policy.ValidateCategory(category); err != nil {
		return LedgerBucket{}, err
	}
	if storedIn.Name == "" {
		return LedgerBucket{}, fmt.Errorf("%w: bucket %s has no account", ErrMissingArgument, category.Code)
	}
	return LedgerBucket{Kind: kind, Category: category, StoredIn: storedIn}, nil
}

// SurplusBucket returns the synthetic surplus bucket for an account.
func SurplusBucket(account Account) LedgerBucket {
	return LedgerBucket{Kind: BucketSurplus, Category: SurplusCategory(), StoredIn: account}
}

// Key returns the (category, account) identity.
func (b LedgerBucket) Key() BucketKey {
	return BucketKey{CategoryCode: b.Category.Code, Account: b.StoredIn.Name}
}

// Equal reports identity equality.
func (b LedgerBucket) Equal(other LedgerBucket) bool {
	return b.Key() == other.Key()
}

// IsSurplus reports whether the bucket is a surplus bucket.
func (b LedgerBucket) IsSurplus() bool {
	return b.Kind == BucketSurplus
}

// Policy returns the bucket's reconciliation policy.
func (b LedgerBucket) Policy() BucketPolicy {
	p, err := PolicyFor(b.Kind)
	if err != nil {
		// Unknown kinds only arise from hand-built values; treat as surplus.
		return surplusPolicy{}
	}
	return p
}

func (b LedgerBucket) String() string {
	return fmt.Sprintf("%s (%s)", b.Category.Code, b.StoredIn.Name)
}

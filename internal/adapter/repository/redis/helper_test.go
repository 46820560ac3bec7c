package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
)

func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func testBook(t *testing.T, key string) *domain.LedgerBook {
	t.Helper()
	cheque := domain.Account{Name: "Cheque", Type: domain.AccountCheque, IsSalary: true}
	category := domain.BudgetCategory{Code: "POWER", Kind: domain.CategorySpentPerPeriodExpense, Active: true}
	bucket, err := domain.NewLedgerBucket(domain.BucketSpentPerPeriod, category, cheque)
	if err != nil {
		t.Fatalf("bucket: %v", err)
	}
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	line := domain.RestoreLedgerEntryLine(date,
		[]domain.BankBalance{{Account: cheque, Balance: decimal.NewFromInt(500)}},
		nil,
		[]*domain.LedgerEntry{domain.RestoreLedgerEntry(bucket, decimal.NewFromInt(120), nil)},
		"")
	return domain.RestoreLedgerBook("Book "+key, key, date, []domain.LedgerBucket{bucket}, []*domain.LedgerEntryLine{line})
}

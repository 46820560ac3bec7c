package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
)

func TestReportCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewReportCache(client)
	ctx := context.Background()

	report := []domain.ReportTransaction{{
		Date:      time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		Amount:    decimal.RequireFromString("-175"),
		Narrative: "POWER overdrawn",
	}}
	if err := cache.Set(ctx, "k", report, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 1 || got[0].Narrative != "POWER overdrawn" || !got[0].Amount.Equal(report[0].Amount) {
		t.Fatalf("unexpected report %+v", got)
	}
}

func TestReportCacheExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewReportCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", []domain.ReportTransaction{}, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Fatalf("expected empty report to be cached")
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "k")
	if err != nil || ok {
		t.Fatalf("expected miss after expiry, got ok=%v err=%v", ok, err)
	}
}

func TestReportCacheCorruptValue(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	if err := mr.Set("report:bad", "not json"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, _, err := NewReportCache(client).Get(context.Background(), "bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/envelopeledger/internal/domain"
)

// ReportCache implements usecase.ReportCache with expiring redis strings.
type ReportCache struct {
	client *redis.Client
	prefix string
}

// NewReportCache creates a new ReportCache.
func NewReportCache(client *redis.Client) *ReportCache {
	return &ReportCache{
		client: client,
		prefix: "report:",
	}
}

// Get returns a cached report, or ok=false when absent or expired.
func (c *ReportCache) Get(ctx context.Context, key string) ([]domain.ReportTransaction, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report []domain.ReportTransaction
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached report %s: %w", key, err)
	}
	return report, true, nil
}

// Set stores a report for ttl.
func (c *ReportCache) Set(ctx context.Context, key string, value []domain.ReportTransaction, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

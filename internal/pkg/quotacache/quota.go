package quotacache

import (
	"context"
	"errors"
	"strconv"
	"time"

	redisc "github.com/clipdigest/core/internal/pkg/redis"
)

// ErrQuotaExceeded is the distinguished failure for metered-API exhaustion.
// Callers present it as an HTTP 429-equivalent and must not retry
// automatically; the counter resets at the next local day boundary.
var ErrQuotaExceeded = errors.New("daily api quota exceeded")

const (
	quotaKeyPrefix = "cd:quota:"
	totalField     = "__total"
	// the day key outlives its day so usage reports stay readable shortly
	// after the boundary, then lapses
	quotaKeyTTL = 48 * time.Hour
)

// QuotaCounter tracks metered API units consumed during the current local
// day. State lives in a per-day Redis hash, so the reset happens exactly at
// the day-key change and never mid-day, and survives process restarts.
type QuotaCounter struct {
	rc         *redisc.Client
	dailyLimit int
	now        func() time.Time
}

// NewQuotaCounter builds a counter bounded by dailyLimit units per day.
func NewQuotaCounter(rc *redisc.Client, dailyLimit int) *QuotaCounter {
	return &QuotaCounter{rc: rc, dailyLimit: dailyLimit, now: time.Now}
}

func (q *QuotaCounter) dayKey() string {
	return quotaKeyPrefix + q.now().Format("2006-01-02")
}

// Add charges units against apiType's bucket and returns the new daily total.
func (q *QuotaCounter) Add(ctx context.Context, apiType string, units int) (int, error) {
	if units <= 0 {
		return q.Total(ctx)
	}
	key := q.dayKey()
	pipe := q.rc.Raw().TxPipeline()
	pipe.HIncrBy(ctx, key, apiType, int64(units))
	totalCmd := pipe.HIncrBy(ctx, key, totalField, int64(units))
	pipe.Expire(ctx, key, quotaKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(totalCmd.Val()), nil
}

// Total returns units consumed so far today.
func (q *QuotaCounter) Total(ctx context.Context) (int, error) {
	val, err := q.rc.Raw().HGet(ctx, q.dayKey(), totalField).Result()
	if err != nil || val == "" {
		return 0, nil
	}
	n, _ := strconv.Atoi(val)
	return n, nil
}

// Usage returns the daily total and the per-API-type breakdown.
func (q *QuotaCounter) Usage(ctx context.Context) (int, map[string]int, error) {
	fields, err := q.rc.Raw().HGetAll(ctx, q.dayKey()).Result()
	if err != nil {
		return 0, nil, err
	}
	total := 0
	breakdown := make(map[string]int, len(fields))
	for field, val := range fields {
		n, _ := strconv.Atoi(val)
		if field == totalField {
			total = n
			continue
		}
		breakdown[field] = n
	}
	return total, breakdown, nil
}

// Remaining returns units left before the daily limit.
func (q *QuotaCounter) Remaining(ctx context.Context) (int, error) {
	total, err := q.Total(ctx)
	if err != nil {
		return 0, err
	}
	left := q.dailyLimit - total
	if left < 0 {
		left = 0
	}
	return left, nil
}

// WouldExceed reports whether charging units now would cross the daily limit.
func (q *QuotaCounter) WouldExceed(ctx context.Context, units int) (bool, error) {
	if q.dailyLimit <= 0 {
		return false, nil
	}
	total, err := q.Total(ctx)
	if err != nil {
		return false, err
	}
	return total+units > q.dailyLimit, nil
}

// DailyLimit exposes the configured cap.
func (q *QuotaCounter) DailyLimit() int { return q.dailyLimit }

// Package stats counts served lookups in redis. Counting is
// best-effort: failures are logged and never surfaced to clients.
package stats

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"cloudranges/internal/jobs/runtime"
)

const (
	totalKey     = "cloudranges:lookups:total"
	dayKeyPrefix = "cloudranges:lookups:day:"

	// Day keys outlive their day by an hour so /stats stays readable
	// across the UTC rollover.
	dayKeyTTL = 25 * time.Hour
)

// Recorder counts served lookups. A nil *Recorder is a valid no-op, so
// callers never need to guard for redis being disabled.
type Recorder struct {
	client *redis.Client
}

func NewRecorder(client *redis.Client) *Recorder {
	if client == nil {
		return nil
	}
	return &Recorder{client: client}
}

// Record increments the lifetime and current-day counters.
func (r *Recorder) Record(ctx context.Context) {
	if r == nil {
		return
	}

	dayKey := dayKeyPrefix + time.Now().UTC().Format("2006-01-02")

	pipe := r.client.Pipeline()
	pipe.Incr(ctx, totalKey)
	pipe.Incr(ctx, dayKey)
	pipe.Expire(ctx, dayKey, dayKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn("Failed to record lookup stats", "error", err)
	}
}

// Totals returns the lifetime and current-day lookup counts. Missing
// keys read as zero.
func (r *Recorder) Totals(ctx context.Context) (total, today int64) {
	if r == nil {
		return 0, 0
	}

	total = readCounter(ctx, r.client, totalKey)
	today = readCounter(ctx, r.client, dayKeyPrefix+time.Now().UTC().Format("2006-01-02"))
	return total, today
}

// ActiveInstances reports how many service instances currently hold a
// live heartbeat key.
func (r *Recorder) ActiveInstances(ctx context.Context) int {
	if r == nil {
		return 0
	}

	count, err := runtime.CountActiveInstances(ctx, r.client)
	if err != nil {
		log.Warn("Failed to count active instances", "error", err)
		return 0
	}
	return count
}

func readCounter(ctx context.Context, client *redis.Client, key string) int64 {
	value, err := client.Get(ctx, key).Int64()
	if err != nil {
		if err != redis.Nil {
			log.Warn("Failed to read lookup stats", "key", key, "error", err)
		}
		return 0
	}
	return value
}

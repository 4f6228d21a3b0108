package ingest

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeCache is a fast-path lookup in front of the Store's unique-
// constraint dedupe: it lets a hot-retried webhook delivery short-circuit
// before touching the database. It is an optimization, never a correctness
// boundary — InsertEventOnce's UNIQUE constraint remains the single source
// of truth if this cache is cold, evicted, or unreachable.
type DedupeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedupeCache(client *redis.Client, ttl time.Duration) *DedupeCache {
	return &DedupeCache{client: client, ttl: ttl}
}

func key(updateID int64) string {
	return "ingest:seen:" + strconv.FormatInt(updateID, 10)
}

// Seen reports whether updateID has already been recorded, and the job id
// that was remembered for it, if any. Errors talking to redis are treated
// as "not seen" so the database remains authoritative.
func (d *DedupeCache) Seen(ctx context.Context, updateID int64) (seen bool, jobID string) {
	if d == nil || d.client == nil {
		return false, ""
	}
	val, err := d.client.Get(ctx, key(updateID)).Result()
	if err != nil {
		return false, ""
	}
	return true, val
}

// Remember records that updateID maps to jobID, best-effort.
func (d *DedupeCache) Remember(ctx context.Context, updateID int64, jobID string) {
	if d == nil || d.client == nil {
		return
	}
	_ = d.client.Set(ctx, key(updateID), jobID, d.ttl).Err()
}

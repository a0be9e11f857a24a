package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-docqa-be/internal/entity"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 15 * time.Minute

// Cache stores synthesized answers in Redis, keyed by query content and the
// index state it was answered against. A generation bump after any index
// mutation makes every previous key unreachable, so stale answers are never
// served after an ingest or delete.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) key(query string, k int, modelVersion string, generation uint64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", query, k, modelVersion)))
	return fmt.Sprintf("answer:%d:%s", generation, hex.EncodeToString(h[:]))
}

func (c *Cache) Get(ctx context.Context, query string, k int, modelVersion string, generation uint64) (*entity.Answer, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(query, k, modelVersion, generation)).Bytes()
	if err != nil {
		return nil, false
	}
	var answer entity.Answer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, false
	}
	return &answer, true
}

func (c *Cache) Set(ctx context.Context, query string, k int, modelVersion string, generation uint64, answer *entity.Answer) error {
	if c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(query, k, modelVersion, generation), raw, c.ttl).Err()
}

// Ping verifies connectivity at startup. A cache miss path works without
// Redis, so callers may log and continue on error.
func (c *Cache) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return errors.New("redis client is nil")
	}
	return c.rdb.Ping(ctx).Err()
}

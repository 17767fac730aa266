// Package cache stores finished conversions in Redis so identical requests
// skip the pandoc invocation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"md2docx/internal/infra/logging"
)

const (
	keyPrefix  = "docxcache:"
	opTimeout  = 1 * time.Second
	minimumTTL = 1 * time.Minute
)

// Kind separates cached documents from cached fragments.
type Kind string

const (
	KindDocx Kind = "docx"
	KindHTML Kind = "html"
)

// ResultCache is a Redis-backed cache of conversion outputs. A nil
// *ResultCache is valid and caches nothing.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps rdb. It returns nil when rdb is nil.
func New(rdb *redis.Client, ttl time.Duration) *ResultCache {
	if rdb == nil {
		return nil
	}
	if ttl < minimumTTL {
		ttl = minimumTTL
	}
	return &ResultCache{rdb: rdb, ttl: ttl}
}

// Key creates a SHA256-based cache key from everything that affects the
// output. settings identifies the converter configuration, so results built
// by a different binary or input format are never served.
func Key(kind Kind, settings, markdown string, reference []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(settings))
	h.Write([]byte{0})
	h.Write([]byte(markdown))
	h.Write([]byte{0})
	h.Write(reference)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached bytes, or nil on a miss. Redis failures are logged
// and reported as misses.
func (c *ResultCache) Get(ctx context.Context, key string) []byte {
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil
	}
	logging.Debug("Conversion cache hit", "key", key)
	return data
}

// Set stores data under key. Failures are logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}

package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mrs, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mrs.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mrs.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ttl), mrs
}

func TestKey_DistinguishesInputs(t *testing.T) {
	k1 := Key(KindDocx, "pandoc\x00markdown", "# a", nil)
	assert.True(t, strings.HasPrefix(k1, "docxcache:"))
	assert.Equal(t, k1, Key(KindDocx, "pandoc\x00markdown", "# a", nil))
	assert.NotEqual(t, k1, Key(KindHTML, "pandoc\x00markdown", "# a", nil))
	assert.NotEqual(t, k1, Key(KindDocx, "pandoc\x00markdown", "# a", []byte("ref")))
	assert.NotEqual(t, k1, Key(KindDocx, "pandoc\x00markdown", "# b", nil))
	assert.NotEqual(t, k1, Key(KindDocx, "pandoc\x00gfm", "# a", nil))
	assert.NotEqual(t, k1, Key(KindDocx, "/opt/pandoc-3\x00markdown", "# a", nil))
}

func TestResultCache_SetGet(t *testing.T) {
	c, mrs := newTestCache(t, 5*time.Minute)
	ctx := context.Background()
	key := Key(KindDocx, "", "# hello", nil)

	assert.Nil(t, c.Get(ctx, key))

	c.Set(ctx, key, []byte("docx-bytes"))
	assert.Equal(t, []byte("docx-bytes"), c.Get(ctx, key))

	ttl := mrs.TTL(key)
	assert.InDelta(t, (5 * time.Minute).Seconds(), ttl.Seconds(), 1)
}

func TestResultCache_MinimumTTL(t *testing.T) {
	c, mrs := newTestCache(t, 0)
	c.Set(context.Background(), "k", []byte("x"))

	ttl := mrs.TTL("k")
	if ttl < 50*time.Second || ttl > 70*time.Second {
		t.Fatalf("expected default ttl around 1m, got %v", ttl)
	}
}

func TestResultCache_RedisDownIsAMiss(t *testing.T) {
	c, mrs := newTestCache(t, time.Minute)
	mrs.Close()

	c.Set(context.Background(), "k", []byte("x"))
	assert.Nil(t, c.Get(context.Background(), "k"))
}

func TestResultCache_NilIsNoop(t *testing.T) {
	var c *ResultCache
	assert.Nil(t, New(nil, time.Minute))
	c.Set(context.Background(), "k", []byte("x"))
	assert.Nil(t, c.Get(context.Background(), "k"))
}

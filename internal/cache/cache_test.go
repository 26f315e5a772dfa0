package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheGetSet(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(true)
	c.now = func() time.Time { return now }

	etag := c.Set("runs:a", []byte(`{"a":1}`), time.Minute)
	data, got, ok := c.Get("runs:a")
	assert.True(t, ok)
	assert.Equal(t, etag, got)
	assert.JSONEq(t, `{"a":1}`, string(data))

	now = now.Add(2 * time.Minute)
	_, _, ok = c.Get("runs:a")
	assert.False(t, ok, "expired entries are misses")
	assert.Equal(t, 1, c.Evict())
	assert.Equal(t, 0, c.Evict())
}

func TestCacheDisabled(t *testing.T) {
	c := New(false)
	etag := c.Set("k", []byte("x"), time.Hour)
	assert.Equal(t, ComputeETag([]byte("x")), etag)
	_, _, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheDeletePrefixAndPurge(t *testing.T) {
	c := New(true)
	c.Set("runs:list:20", []byte("1"), time.Hour)
	c.Set("runs:latest", []byte("2"), time.Hour)
	c.Set("output:x:y", []byte("3"), time.Hour)

	assert.Equal(t, 2, c.DeletePrefix("runs:"))
	_, _, ok := c.Get("output:x:y")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 0, c.Stats()["total_keys"])
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("body"))
	assert.False(t, CheckETagMatch("", etag))
	assert.True(t, CheckETagMatch("*", etag))
	assert.True(t, CheckETagMatch(etag, etag))
	assert.True(t, CheckETagMatch(`W/"other", `+etag, etag))
	assert.False(t, CheckETagMatch(`W/"other"`, etag))
}

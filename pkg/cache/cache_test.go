package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(WithMemoryMaxSize(2))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))
	assert.Equal(t, 2, c.Len())

	b, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), b)

	// overwrite of an existing key is allowed when full
	require.NoError(t, c.Set(ctx, "a", []byte("9"), time.Minute))
	b, _ = c.Get(ctx, "a")
	assert.Equal(t, []byte("9"), b)

	require.NoError(t, c.Delete(ctx, "a", "b"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	type payload struct {
		Item  string  `json:"item"`
		Price float64 `json:"price"`
	}
	require.NoError(t, SetJSON(ctx, c, "p", payload{Item: "감자", Price: 1250}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "p", &got))
	assert.Equal(t, payload{Item: "감자", Price: 1250}, got)

	require.NoError(t, c.Set(ctx, "broken", []byte("{"), time.Minute))
	assert.ErrorIs(t, GetJSON(ctx, c, "broken", &got), ErrCacheMiss)
}

type countingL2 struct {
	*MemoryCache
	gets int
	fail error
}

func (c *countingL2) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	if c.fail != nil {
		return nil, c.fail
	}
	return c.MemoryCache.Get(ctx, key)
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	l2 := &countingL2{MemoryCache: NewMemoryCache()}
	require.NoError(t, l2.MemoryCache.Set(ctx, "k", []byte("v"), time.Minute))

	lc := NewLayeredCache(l2)
	b, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), b)
	_, _ = lc.Get(ctx, "k")
	assert.Equal(t, 1, l2.gets)

	require.NoError(t, lc.Set(ctx, "n", []byte("x"), time.Minute))
	l2.fail = errors.New("down")
	b, err = lc.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), b)

	require.NoError(t, lc.Delete(ctx, "n"))
	_, err = lc.Get(ctx, "n")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "ask:3:abc", Key("ask", "3", "abc"))
	assert.Len(t, HashKey("anything"), 32)
	assert.Equal(t, HashKey("x"), HashKey("x"))
}

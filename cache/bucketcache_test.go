package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New(WithSweepInterval(0))
	defer c.Close()

	c.Set("a", 42, time.Minute)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiryIsEnforcedLazily(t *testing.T) {
	c := New(WithSweepInterval(0))
	defer c.Close()

	c.Set("a", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New(WithSweepInterval(0))
	defer c.Close()

	c.Set("a", "v", 0)
	time.Sleep(5 * time.Millisecond)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestBucketFullNeverRejectsWrites(t *testing.T) {
	c := New(WithBuckets(1), WithMaxPerBucket(4), WithSweepInterval(0))
	defer c.Close()

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}

	assert.LessOrEqual(t, c.Len(), 4)
	// The most recently written key must still be retrievable.
	v, ok := c.Get("k99")
	require.True(t, ok)
	assert.Equal(t, 99, v)
}

func TestDelete(t *testing.T) {
	c := New(WithSweepInterval(0))
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(WithSweepInterval(0))
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			c.Set(key, i, time.Minute)
			c.Get(key)
		}(i)
	}
	wg.Wait()
}

func TestBackgroundSweepRemovesExpiredEntries(t *testing.T) {
	c := New(WithSweepInterval(5 * time.Millisecond))
	defer c.Close()

	c.Set("a", "v", time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 0, c.Len())
}

package refcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRefs struct {
	departments map[string]bool
	calls       int
	err         error
}

func (r *countingRefs) DepartmentExists(ctx context.Context, id string) (bool, error) {
	r.calls++
	return r.departments[id], r.err
}

func (r *countingRefs) UserExists(ctx context.Context, id string) (bool, error) {
	r.calls++
	return false, r.err
}

func newCached(t *testing.T, next References) (*Cached, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(next, client, time.Minute, zap.NewNop()), mr
}

func TestCached_CachesHits(t *testing.T) {
	refs := &countingRefs{departments: map[string]bool{"d1": true}}
	c, mr := newCached(t, refs)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := c.DepartmentExists(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, refs.calls)
	assert.True(t, mr.Exists("tenderflow:ref:department:d1"))

	mr.FastForward(2 * time.Minute)
	_, err := c.DepartmentExists(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, refs.calls)
}

func TestCached_DoesNotCacheMisses(t *testing.T) {
	refs := &countingRefs{departments: map[string]bool{}}
	c, mr := newCached(t, refs)
	ctx := context.Background()

	ok, err := c.UserExists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = c.UserExists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 2, refs.calls)
	assert.False(t, mr.Exists("tenderflow:ref:user:u1"))
}

func TestCached_LookupErrorPassesThrough(t *testing.T) {
	refs := &countingRefs{err: errors.New("db down")}
	c, _ := newCached(t, refs)

	_, err := c.DepartmentExists(context.Background(), "d1")
	require.EqualError(t, err, "db down")
}

func TestCached_RedisDownFallsBack(t *testing.T) {
	refs := &countingRefs{departments: map[string]bool{"d1": true}}
	c, mr := newCached(t, refs)
	mr.Close()

	ok, err := c.DepartmentExists(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, refs.calls)
}

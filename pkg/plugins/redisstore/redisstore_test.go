package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evannetwork/vade/pkg/vade"
)

func newTestStore(t *testing.T, prefixes []string, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client, prefixes, ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestWriteThenRead(t *testing.T) {
	store, _ := newTestStore(t, nil, 0)
	ctx := context.Background()

	res, err := store.WriteDocument(ctx, vade.KindDID, "did:evan:123", `{"id":"did:evan:123"}`)
	require.NoError(t, err)
	assert.True(t, res.Applicable())

	res, err = store.ReadDocument(ctx, vade.KindDID, "did:evan:123")
	require.NoError(t, err)
	value, has := res.Value()
	require.True(t, has)
	assert.Equal(t, `{"id":"did:evan:123"}`, value)
}

func TestReadMissDeclines(t *testing.T) {
	store, _ := newTestStore(t, nil, 0)

	res, err := store.ReadDocument(context.Background(), vade.KindDID, "did:evan:missing")
	require.NoError(t, err)
	assert.False(t, res.Applicable())
}

func TestPrefixGating(t *testing.T) {
	store, _ := newTestStore(t, []string{"did:evan"}, 0)
	ctx := context.Background()

	res, err := store.WriteDocument(ctx, vade.KindDID, "did:other:123", "{}")
	require.NoError(t, err)
	assert.False(t, res.Applicable())

	res, err = store.WriteDocument(ctx, vade.KindDID, "did:evan:123", "{}")
	require.NoError(t, err)
	assert.True(t, res.Applicable())
}

func TestCheckDocument(t *testing.T) {
	store, _ := newTestStore(t, nil, 0)
	ctx := context.Background()

	_, err := store.WriteDocument(ctx, vade.KindVC, "vc:1", "payload")
	require.NoError(t, err)

	res, err := store.CheckDocument(ctx, vade.KindVC, "vc:1", "payload")
	require.NoError(t, err)
	assert.True(t, res.Applicable())

	_, err = store.CheckDocument(ctx, vade.KindVC, "vc:1", "tampered")
	assert.Error(t, err)

	res, err = store.CheckDocument(ctx, vade.KindVC, "vc:unknown", "payload")
	require.NoError(t, err)
	assert.False(t, res.Applicable())
}

func TestTTLExpiry(t *testing.T) {
	store, mr := newTestStore(t, nil, time.Minute)
	ctx := context.Background()

	_, err := store.WriteDocument(ctx, vade.KindDID, "did:evan:123", "{}")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	res, err := store.ReadDocument(ctx, vade.KindDID, "did:evan:123")
	require.NoError(t, err)
	assert.False(t, res.Applicable())
}

func TestRedisDownIsActiveFailure(t *testing.T) {
	store, mr := newTestStore(t, nil, 0)
	mr.Close()

	_, err := store.ReadDocument(context.Background(), vade.KindDID, "did:evan:123")
	assert.Error(t, err)
}

func TestFallbackOrderThroughFacade(t *testing.T) {
	// A gated redis plugin declines foreign methods, letting a later
	// catch-all instance answer.
	evan, _ := newTestStore(t, []string{"did:evan"}, 0)
	all, _ := newTestStore(t, nil, 0)
	ctx := context.Background()

	v := vade.New(nil)
	v.RegisterPlugin(evan)
	v.RegisterPlugin(all)

	require.NoError(t, v.WriteDocument(ctx, vade.KindDID, "did:other:9", "doc"))

	value, err := v.ReadDocument(ctx, vade.KindDID, "did:other:9")
	require.NoError(t, err)
	assert.Equal(t, "doc", value)
}

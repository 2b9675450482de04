package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLedger(t *testing.T) (*RedisLedger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLedger(client, ""), mr
}

func TestRedisLedgerRecordOnce(t *testing.T) {
	ctx := context.Background()
	ledger, mr := newTestRedisLedger(t)

	ok, err := ledger.HasNotified(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Record(ctx, 5, 2))
	assert.ErrorIs(t, ledger.Record(ctx, 5, 9), ErrAlreadyNotified)

	ok, err = ledger.HasNotified(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := ledger.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.MatchID)
	assert.Equal(t, 2, rec.RecipientCount)

	assert.Equal(t, time.Duration(0), mr.TTL(defaultRedisPrefix+"5"))
}

func TestRedisLedgerGetMissing(t *testing.T) {
	ledger, _ := newTestRedisLedger(t)
	_, err := ledger.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisLedgerRecent(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestRedisLedger(t)
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	for i, id := range []int{20, 21, 22} {
		at := base.Add(time.Duration(i) * time.Minute)
		ledger.now = func() time.Time { return at }
		require.NoError(t, ledger.Record(ctx, id, i))
	}

	recs, err := ledger.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int{22, 21, 20}, []int{recs[0].MatchID, recs[1].MatchID, recs[2].MatchID})
}

func TestRedisLedgerUnavailable(t *testing.T) {
	ledger, mr := newTestRedisLedger(t)
	mr.Close()
	_, err := ledger.HasNotified(context.Background(), 1)
	assert.Error(t, err)
}

func TestRedisLedgerRecordIndexesOnce(t *testing.T) {
	ctx := context.Background()
	ledger, mr := newTestRedisLedger(t)
	first := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return first }
	require.NoError(t, ledger.Record(ctx, 7, 3))

	ledger.now = func() time.Time { return first.Add(time.Hour) }
	assert.ErrorIs(t, ledger.Record(ctx, 7, 1), ErrAlreadyNotified)

	members, err := mr.ZMembers(defaultRedisPrefix + "index")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
	score, err := mr.ZScore(defaultRedisPrefix+"index", "7")
	require.NoError(t, err)
	assert.InDelta(t, float64(first.UnixMilli()), score, 0.5)

	rec, err := ledger.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.RecipientCount)
}

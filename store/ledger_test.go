package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestSQLLedgerRecordOnce(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLLedger(openTestDB(t))
	ledger.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }

	ok, err := ledger.HasNotified(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Record(ctx, 42, 3))

	ok, err = ledger.HasNotified(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	err = ledger.Record(ctx, 42, 7)
	assert.ErrorIs(t, err, ErrAlreadyNotified)

	rec, err := ledger.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.RecipientCount)
	assert.True(t, rec.SentAt.Equal(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)))
}

func TestSQLLedgerGetMissing(t *testing.T) {
	ledger := NewSQLLedger(openTestDB(t))
	_, err := ledger.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLLedgerConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLLedger(openTestDB(t))

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ledger.Record(ctx, 99, i)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyNotified)
	}
	assert.Equal(t, 1, won)
}

func TestSQLLedgerRecent(t *testing.T) {
	ctx := context.Background()
	ledger := NewSQLLedger(openTestDB(t))
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	for i, id := range []int{10, 11, 12} {
		at := base.Add(time.Duration(i) * time.Minute)
		ledger.now = func() time.Time { return at }
		require.NoError(t, ledger.Record(ctx, id, 1))
	}

	recs, err := ledger.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 12, recs[0].MatchID)
	assert.Equal(t, 11, recs[1].MatchID)
}

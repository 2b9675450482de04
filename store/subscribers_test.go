package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberEnsureCreatesDisabled(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriberStore(openTestDB(t))

	sub, err := subs.Ensure(ctx, 1001, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), sub.TelegramID)
	assert.False(t, sub.NotificationsEnabled)

	again, err := subs.Ensure(ctx, 1001, "alice_new")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	got, err := subs.Get(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "alice_new", got.UserName)
	assert.NotNil(t, got.LastActivityAt)
}

func TestSubscriberToggleAndList(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriberStore(openTestDB(t))
	for _, id := range []int64{1, 2, 3} {
		_, err := subs.Ensure(ctx, id, "")
		require.NoError(t, err)
	}

	enabled, err := subs.Toggle(ctx, 2)
	require.NoError(t, err)
	assert.True(t, enabled)
	require.NoError(t, subs.SetEnabled(ctx, 3, true))

	list, err := subs.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].TelegramID)
	assert.Equal(t, int64(3), list[1].TelegramID)

	enabled, err = subs.Toggle(ctx, 2)
	require.NoError(t, err)
	assert.False(t, enabled)

	n, err := subs.CountEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubscriberUnknown(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriberStore(openTestDB(t))

	_, err := subs.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, subs.SetEnabled(ctx, 5, true), ErrNotFound)
	_, err = subs.Toggle(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, subs.Remove(ctx, 5))
}

func TestSubscriberRemoveThenRecreate(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriberStore(openTestDB(t))
	_, err := subs.Ensure(ctx, 7, "bob")
	require.NoError(t, err)
	require.NoError(t, subs.SetEnabled(ctx, 7, true))

	require.NoError(t, subs.Remove(ctx, 7))
	_, err = subs.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	sub, err := subs.Ensure(ctx, 7, "bob")
	require.NoError(t, err)
	assert.False(t, sub.NotificationsEnabled)
}

package currency

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPreferences(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	testPreferences(t, NewRedisPreferences(client))

	stored, err := mr.Get("casecheck:pref:user-1:currency")
	require.NoError(t, err)
	assert.Equal(t, "EUR", stored)
}

func TestMemoryPreferences(t *testing.T) {
	testPreferences(t, NewMemoryPreferences())
}

func testPreferences(t *testing.T, prefs Preferences) {
	t.Helper()
	ctx := context.Background()

	_, err := prefs.Currency(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoPreference)

	require.NoError(t, prefs.SetCurrency(ctx, "user-1", "eur"))
	code, err := prefs.Currency(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)

	err = prefs.SetCurrency(ctx, "user-1", "XYZ")
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	code, err = prefs.Currency(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)
}

package keypool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/keypool"
	"adventure-server/internal/models"
)

func newTestPool(keys ...models.APIKey) *keypool.Pool {
	p := keypool.New(zap.NewNop())
	for _, k := range keys {
		p.Add(k)
	}
	return p
}

func key(id string, enabled bool, status models.APIKeyStatus) models.APIKey {
	return models.APIKey{ID: id, Name: "key " + id, Value: "sk-" + id, Enabled: enabled, Status: status}
}

func TestSelectUsable(t *testing.T) {
	t.Run("returns first usable key in stored order", func(t *testing.T) {
		p := newTestPool(
			key("a", false, models.APIKeyStatusValid),
			key("b", true, models.APIKeyStatusInvalid),
			key("c", true, models.APIKeyStatusUnchecked),
			key("d", true, models.APIKeyStatusValid),
		)

		got, ok := p.SelectUsable()
		require.True(t, ok)
		assert.Equal(t, "c", got.ID)
	})

	t.Run("reports none when every key is disabled or blocked", func(t *testing.T) {
		p := newTestPool(
			key("a", false, models.APIKeyStatusValid),
			key("b", true, models.APIKeyStatusQuotaExceeded),
		)

		_, ok := p.SelectUsable()
		assert.False(t, ok)
		assert.Equal(t, 0, p.EnabledCount())
	})

	t.Run("empty pool", func(t *testing.T) {
		p := newTestPool()
		_, ok := p.SelectUsable()
		assert.False(t, ok)
	})
}

func TestMarkFailed(t *testing.T) {
	t.Run("quota failure blocks the key and rotation moves on", func(t *testing.T) {
		p := newTestPool(
			key("a", true, models.APIKeyStatusValid),
			key("b", true, models.APIKeyStatusValid),
		)

		p.MarkFailed("a", keypool.FailureQuotaExceeded)

		got, ok := p.SelectUsable()
		require.True(t, ok)
		assert.Equal(t, "b", got.ID)

		snap := p.Snapshot()
		assert.Equal(t, models.APIKeyStatusQuotaExceeded, snap[0].Status)
	})

	t.Run("idempotent", func(t *testing.T) {
		p := newTestPool(key("a", true, models.APIKeyStatusValid))
		p.MarkFailed("a", keypool.FailureInvalid)
		p.MarkFailed("a", keypool.FailureInvalid)

		snap := p.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, models.APIKeyStatusInvalid, snap[0].Status)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		p := newTestPool(key("a", true, models.APIKeyStatusValid))
		p.MarkFailed("missing", keypool.FailureQuotaExceeded)
		assert.Equal(t, 1, p.EnabledCount())
	})
}

func TestRecoveryIsUserAction(t *testing.T) {
	p := newTestPool(key("a", true, models.APIKeyStatusValid))
	p.MarkFailed("a", keypool.FailureQuotaExceeded)

	// No amount of selection brings the key back.
	_, ok := p.SelectUsable()
	require.False(t, ok)

	// Re-enabling resets the blocked status to unchecked.
	p.SetEnabled("a", true)
	got, ok := p.SelectUsable()
	require.True(t, ok)
	assert.Equal(t, models.APIKeyStatusUnchecked, got.Status)

	// An explicit re-test marks it valid again.
	p.MarkValid("a")
	got, ok = p.SelectUsable()
	require.True(t, ok)
	assert.Equal(t, models.APIKeyStatusValid, got.Status)
}

func TestAddRemove(t *testing.T) {
	p := newTestPool(key("a", true, models.APIKeyStatusValid))
	p.Add(key("b", true, models.APIKeyStatusUnchecked))
	assert.Len(t, p.Snapshot(), 2)

	p.Remove("a")
	snap := p.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "b", snap[0].ID)

	got, ok := p.SelectUsable()
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
}

func TestNewFromValues(t *testing.T) {
	p := keypool.NewFromValues([]string{"sk-one", "", "sk-two"}, zap.NewNop())
	snap := p.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, 2, p.EnabledCount())
	for _, k := range snap {
		assert.NotEmpty(t, k.ID)
		assert.True(t, k.Enabled)
		assert.Equal(t, models.APIKeyStatusUnchecked, k.Status)
	}
}

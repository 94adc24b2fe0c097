package entitlement

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *kvstore.MemoryStore) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	c := NewCache(store, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c, store
}

func TestLifecycle(t *testing.T) {
	store := kvstore.NewMemoryStore()
	first := NewCache(store, nil)
	defer first.Close()
	assert.Equal(t, StateUninitialized, first.Snapshot().State)
	assert.False(t, first.CanPerformAction())

	expires := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, first.UpdateFromBackend(Update{Tier: tier.Pro, RemainingActions: 480, Status: "active", ExpiresAt: &expires}))
	snap := first.Snapshot()
	assert.Equal(t, StateSynced, snap.State)
	assert.True(t, snap.IsBackendSynced)

	// cold start
	second := NewCache(store, nil)
	defer second.Close()
	require.NoError(t, second.Restore())
	restored := second.Snapshot()
	assert.Equal(t, StateRestored, restored.State)
	assert.Equal(t, tier.Pro, restored.Tier)
	assert.Equal(t, 480, restored.RemainingActions)
	assert.False(t, restored.IsBackendSynced)
	require.NotNil(t, restored.ExpiresAt)
	assert.True(t, restored.ExpiresAt.Equal(expires))
}

func TestRestoreDoesNotOverrideBackend(t *testing.T) {
	c, store := newTestCache(t)
	raw, _ := json.Marshal(Snapshot{Tier: tier.Pro, RemainingActions: 100})
	require.NoError(t, store.Set(StorageKey, raw))

	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Free, RemainingActions: 3}))
	require.NoError(t, c.Restore())

	assert.Equal(t, tier.Free, c.Snapshot().Tier)
	assert.Equal(t, 3, c.Snapshot().RemainingActions)
}

func TestNeverDecrementsLocally(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Free, RemainingActions: 5}))

	// an action completing without any server echo changes nothing
	assert.True(t, c.CanPerformAction())
	assert.True(t, c.CanPerformAction())
	assert.Equal(t, 5, c.Snapshot().RemainingActions)

	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Free, RemainingActions: 4}))
	assert.Equal(t, 4, c.Snapshot().RemainingActions)
}

func TestApplyRemaining(t *testing.T) {
	c, store := newTestCache(t)
	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Starter, RemainingActions: 10}))

	require.NoError(t, c.ApplyRemaining(0))
	assert.False(t, c.CanPerformAction())
	assert.Equal(t, tier.Starter, c.Snapshot().Tier)

	raw, ok, err := store.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted Snapshot
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, 0, persisted.RemainingActions)
}

func TestStoreEntitlementsDoNotDowngradeSyncedTier(t *testing.T) {
	c, _ := newTestCache(t)
	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Pro, RemainingActions: 500}))

	c.ApplyStoreEntitlements(nil)
	assert.Equal(t, tier.Pro, c.Snapshot().Tier)
}

func TestStoreEntitlementsDowngradeUnsyncedTier(t *testing.T) {
	c, store := newTestCache(t)
	raw, _ := json.Marshal(Snapshot{Tier: tier.Pro, RemainingActions: 100})
	require.NoError(t, store.Set(StorageKey, raw))
	require.NoError(t, c.Restore())

	c.ApplyStoreEntitlements(nil)
	assert.Equal(t, tier.Free, c.Snapshot().Tier)
	assert.Equal(t, 100, c.Snapshot().RemainingActions)
}

func TestClear(t *testing.T) {
	c, store := newTestCache(t)
	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Pro, RemainingActions: 500}))
	require.NoError(t, c.Clear())

	assert.Equal(t, StateUninitialized, c.Snapshot().State)
	assert.Equal(t, tier.Free, c.Snapshot().Tier)
	_, ok, _ := store.Get(StorageKey)
	assert.False(t, ok)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	c, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := c.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, c.UpdateFromBackend(Update{Tier: tier.Starter, RemainingActions: 42}))

	select {
	case snap := <-changes:
		assert.Equal(t, tier.Starter, snap.Tier)
		assert.Equal(t, 42, snap.RemainingActions)
		assert.Equal(t, StateSynced, snap.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}

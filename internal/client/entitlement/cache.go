// Package entitlement is the client-side Entitlement Cache. It is a display
// cache and a pre-flight check; the server decides every action.
package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/tier"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const (
	StorageKey   = "entitlement_snapshot"
	ChangedTopic = "entitlement.changed"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateRestored      State = "restored"
	StateSynced        State = "synced"
)

// Snapshot is the cache contents at one point in time.
type Snapshot struct {
	State            State      `json:"-"`
	Tier             tier.Tier  `json:"tier"`
	RemainingActions int        `json:"remaining_actions"`
	Status           string     `json:"status,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	IsBackendSynced  bool       `json:"is_backend_synced"`
}

// Update is a backend-confirmed entitlement.
type Update struct {
	Tier             tier.Tier
	RemainingActions int
	Status           string
	ExpiresAt        *time.Time
	CancelledAt      *time.Time
}

type Cache struct {
	store  kvstore.Store
	pubSub *gochannel.GoChannel

	mu   sync.Mutex
	snap Snapshot
}

func NewCache(store kvstore.Store, logger watermill.LoggerAdapter) *Cache {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Cache{
		store:  store,
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger),
		snap:   Snapshot{State: StateUninitialized, Tier: tier.Free},
	}
}

// Restore seeds the cache from the last persisted snapshot. Only an uninitialized
// cache restores; backend data is never overwritten by the local copy.
func (c *Cache) Restore() error {
	raw, ok, err := c.store.Get(StorageKey)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State != StateUninitialized || !ok {
		return nil
	}

	var restored Snapshot
	if err := json.Unmarshal(raw, &restored); err != nil {
		return fmt.Errorf("entitlement: decode snapshot: %w", err)
	}
	restored.State = StateRestored
	// A restored paid tier is only a hint until the backend confirms it again.
	restored.IsBackendSynced = false
	c.snap = restored
	c.notify()
	return nil
}

// UpdateFromBackend is the only ground-truth mutator.
func (c *Cache) UpdateFromBackend(u Update) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := u.RemainingActions
	if remaining < 0 {
		remaining = 0
	}
	c.snap = Snapshot{
		State:            StateSynced,
		Tier:             u.Tier,
		RemainingActions: remaining,
		Status:           u.Status,
		ExpiresAt:        u.ExpiresAt,
		CancelledAt:      u.CancelledAt,
		IsBackendSynced:  c.snap.IsBackendSynced || tier.IsPaid(u.Tier),
	}
	if err := c.persist(); err != nil {
		return err
	}
	c.notify()
	return nil
}

// ApplyRemaining applies the remaining_actions echoed on any authenticated response.
func (c *Cache) ApplyRemaining(remaining int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining < 0 {
		remaining = 0
	}
	if c.snap.RemainingActions == remaining && c.snap.State != StateUninitialized {
		return nil
	}
	c.snap.RemainingActions = remaining
	if c.snap.State == StateUninitialized {
		c.snap.State = StateRestored
	}
	if err := c.persist(); err != nil {
		return err
	}
	c.notify()
	return nil
}

// ApplyStoreEntitlements reflects the platform's current entitlements for display.
// An empty list never downgrades a tier the backend has confirmed, since the
// platform list can lag behind a fresh purchase.
func (c *Cache) ApplyStoreEntitlements(productIDs []string) {
	best := tier.BestTier(productIDs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if best == c.snap.Tier {
		return
	}
	if !tier.IsPaid(best) && c.snap.IsBackendSynced {
		return
	}
	c.snap.Tier = best
	c.notify()
}

// CanPerformAction is a courtesy pre-flight check, never an authorization.
func (c *Cache) CanPerformAction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.RemainingActions > 0
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Clear drops all entitlement state, used when the session becomes invalid.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = Snapshot{State: StateUninitialized, Tier: tier.Free}
	if err := c.store.Delete(StorageKey); err != nil {
		return err
	}
	c.notify()
	return nil
}

// Subscribe streams a Snapshot after every change until ctx is done.
func (c *Cache) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	messages, err := c.pubSub.Subscribe(ctx, ChangedTopic)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for msg := range messages {
			var snap Snapshot
			err := json.Unmarshal(msg.Payload, &snap)
			msg.Ack()
			if err != nil {
				continue
			}
			snap.State = State(msg.Metadata.Get("state"))
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Cache) Close() error {
	return c.pubSub.Close()
}

func (c *Cache) persist() error {
	raw, err := json.Marshal(c.snap)
	if err != nil {
		return err
	}
	return c.store.Set(StorageKey, raw)
}

// notify must be called with mu held. Delivery is asynchronous.
func (c *Cache) notify() {
	raw, err := json.Marshal(c.snap)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)
	msg.Metadata.Set("state", string(c.snap.State))
	_ = c.pubSub.Publish(ChangedTopic, msg)
}

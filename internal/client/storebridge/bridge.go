// Package storebridge moves platform purchases to the backend. A purchase
// the backend has not confirmed is kept in the unsynced ledger until it is.
package storebridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-textassist-be/internal/client/api"
	"ai-textassist-be/internal/client/entitlement"
	"ai-textassist-be/internal/client/ledger"
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/logger"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoSession = errors.New("storebridge: not logged in, purchase queued")
	ErrQueued    = errors.New("storebridge: backend unreachable, purchase queued")
)

// Backend is the part of the API client the bridge needs.
type Backend interface {
	HasToken() bool
	VerifyPurchase(ctx context.Context, ev ledger.Event) (*dto.VerifyPurchaseResponse, error)
}

type RetryConfig struct {
	Attempts        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, InitialInterval: time.Second, MaxInterval: 4 * time.Second}
}

type Bridge struct {
	store   Store
	backend Backend
	ledger  *ledger.Ledger
	cache   *entitlement.Cache
	log     logger.ILogger
	retry   RetryConfig

	inflight singleflight.Group
	wg       sync.WaitGroup
}

func NewBridge(store Store, backend Backend, l *ledger.Ledger, cache *entitlement.Cache, log logger.ILogger, retry RetryConfig) *Bridge {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if retry.Attempts == 0 {
		retry = DefaultRetryConfig()
	}
	return &Bridge{
		store:   store,
		backend: backend,
		ledger:  l,
		cache:   cache,
		log:     log,
		retry:   retry,
	}
}

// Purchase buys productID and syncs the result. A user cancellation returns
// the transaction with no error.
func (b *Bridge) Purchase(ctx context.Context, productID string) (Transaction, *dto.VerifyPurchaseResponse, error) {
	t, err := b.store.Purchase(ctx, productID)
	if err != nil {
		return t, nil, err
	}
	if t.State != StateSuccess {
		b.log.Info("STORE_BRIDGE", "Purchase not completed", map[string]interface{}{
			"product_id": productID,
			"state":      t.State,
		})
		return t, nil, nil
	}

	// The platform must never redeliver a purchase the user already paid for,
	// so it is finished before the backend sees it. The ledger covers the gap.
	if err := b.store.Finish(ctx, t); err != nil {
		b.log.Warn("STORE_BRIDGE", "Failed to finish transaction", map[string]interface{}{
			"transaction_id": t.ID,
			"error":          err.Error(),
		})
	}

	res, err := b.SyncTransaction(ctx, t.Event())
	return t, res, err
}

// Run consumes store updates until ctx is done or the channel closes.
// Each successful transaction is synced in the background. Updates already
// delivered when ctx is cancelled are still handled.
func (b *Bridge) Run(ctx context.Context) {
	updates := b.store.Updates()
	for {
		select {
		case <-ctx.Done():
			b.drain(context.WithoutCancel(ctx), updates)
			return
		case t, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, t)
		}
	}
}

func (b *Bridge) drain(ctx context.Context, updates <-chan Transaction) {
	for {
		select {
		case t, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, t)
		default:
			return
		}
	}
}

func (b *Bridge) handleUpdate(ctx context.Context, t Transaction) {
	if t.State != StateSuccess {
		return
	}
	if err := b.store.Finish(ctx, t); err != nil {
		b.log.Warn("STORE_BRIDGE", "Failed to finish transaction", map[string]interface{}{
			"transaction_id": t.ID,
			"error":          err.Error(),
		})
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		// Retries outlive the listener so a shutdown mid-retry still queues the event.
		_, _ = b.SyncTransaction(context.WithoutCancel(ctx), t.Event())
	}()
}

// Wait blocks until background syncs started by Run have finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// SyncTransaction verifies ev with the backend, retrying transient failures.
// When it cannot be confirmed the event is added to the ledger. Concurrent
// calls for the same transaction share one attempt.
func (b *Bridge) SyncTransaction(ctx context.Context, ev ledger.Event) (*dto.VerifyPurchaseResponse, error) {
	v, err, _ := b.inflight.Do(ev.TransactionID, func() (interface{}, error) {
		return b.sync(ctx, ev)
	})
	res, _ := v.(*dto.VerifyPurchaseResponse)
	return res, err
}

func (b *Bridge) sync(ctx context.Context, ev ledger.Event) (*dto.VerifyPurchaseResponse, error) {
	if !b.backend.HasToken() {
		if err := b.enqueue(ev); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}

	attempt := 0
	res, err := backoff.Retry(ctx, func() (*dto.VerifyPurchaseResponse, error) {
		attempt++
		res, err := b.backend.VerifyPurchase(ctx, ev)
		if err == nil {
			return res, nil
		}
		if api.IsTransient(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b.newBackOff()),
		backoff.WithMaxTries(b.retry.Attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			b.log.Warn("STORE_BRIDGE", "Purchase sync failed, retrying", map[string]interface{}{
				"transaction_id": ev.TransactionID,
				"attempt":        attempt,
				"next_in":        next.String(),
				"error":          err.Error(),
			})
		}),
	)

	if err == nil {
		if rmErr := b.ledger.Remove(ev.TransactionID); rmErr != nil {
			b.log.Warn("STORE_BRIDGE", "Failed to drop synced transaction from ledger", map[string]interface{}{
				"transaction_id": ev.TransactionID,
				"error":          rmErr.Error(),
			})
		}
		b.log.Info("STORE_BRIDGE", "Purchase synced", map[string]interface{}{
			"transaction_id": ev.TransactionID,
			"tier":           res.Tier,
		})
		return res, nil
	}

	if !retryLater(err) {
		// The backend has ruled on this transaction; replaying it cannot change the answer.
		b.log.Error("STORE_BRIDGE", "Purchase rejected by backend", map[string]interface{}{
			"transaction_id": ev.TransactionID,
			"error":          err.Error(),
		})
		_ = b.ledger.Remove(ev.TransactionID)
		return nil, err
	}

	if qErr := b.enqueue(ev); qErr != nil {
		return nil, qErr
	}
	return nil, fmt.Errorf("%w: %v", ErrQueued, err)
}

// retryLater is false only when the backend answered with a definitive rejection.
func retryLater(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return true
	}
	return api.IsTransient(err) || errors.Is(err, api.ErrUnauthorized)
}

func (b *Bridge) enqueue(ev ledger.Event) error {
	added, err := b.ledger.Add(ev)
	if err != nil {
		b.log.Error("STORE_BRIDGE", "Failed to queue unsynced purchase", map[string]interface{}{
			"transaction_id": ev.TransactionID,
			"error":          err.Error(),
		})
		return err
	}
	if added {
		b.log.Info("STORE_BRIDGE", "Purchase queued for later sync", map[string]interface{}{
			"transaction_id": ev.TransactionID,
		})
	}
	return nil
}

func (b *Bridge) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.retry.InitialInterval
	bo.MaxInterval = b.retry.MaxInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	return bo
}

// ReplayUnsynced retries queued purchases that the platform still reports as
// current. It is a no-op without a session. Returns how many were synced.
func (b *Bridge) ReplayUnsynced(ctx context.Context) (int, error) {
	if !b.backend.HasToken() {
		return 0, nil
	}
	queued, err := b.ledger.LoadAll()
	if err != nil || len(queued) == 0 {
		return 0, err
	}

	current, err := b.store.CurrentEntitlements(ctx)
	if err != nil {
		return 0, err
	}
	live := make(map[string]struct{}, len(current)*2)
	for _, t := range current {
		live[t.ID] = struct{}{}
		if t.OriginalTransactionID != "" {
			live[t.OriginalTransactionID] = struct{}{}
		}
	}

	synced := 0
	for _, ev := range queued {
		_, inID := live[ev.TransactionID]
		_, inOriginal := live[ev.OriginalTransactionID]
		if !inID && !inOriginal {
			continue
		}
		if _, err := b.SyncTransaction(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return synced, ctx.Err()
			}
			continue
		}
		synced++
	}

	b.log.Info("STORE_BRIDGE", "Replayed unsynced purchases", map[string]interface{}{
		"queued": len(queued),
		"synced": synced,
	})
	return synced, nil
}

// Restore re-syncs purchases with the platform, syncs each with the backend
// and reflects the platform's entitlements in the cache for display.
func (b *Bridge) Restore(ctx context.Context) ([]Transaction, error) {
	restored, err := b.store.Restore(ctx)
	if err != nil {
		return nil, err
	}

	var firstErr error
	for _, t := range restored {
		if t.State != StateSuccess {
			continue
		}
		if _, err := b.SyncTransaction(ctx, t.Event()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := b.RefreshEntitlements(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return restored, firstErr
}

// RefreshEntitlements reflects the platform's current entitlements in the cache.
func (b *Bridge) RefreshEntitlements(ctx context.Context) error {
	current, err := b.store.CurrentEntitlements(ctx)
	if err != nil {
		return err
	}
	products := make([]string, 0, len(current))
	for _, t := range current {
		products = append(products, t.ProductID)
	}
	b.cache.ApplyStoreEntitlements(products)
	return nil
}

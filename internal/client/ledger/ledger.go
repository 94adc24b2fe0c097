// Package ledger is the Purchase Ledger: the persisted set of verified purchases
// the backend has not confirmed yet.
package ledger

import (
	"encoding/json"
	"fmt"
	"sync"

	"ai-textassist-be/internal/client/kvstore"
)

const StorageKey = "unsynced_transactions"

// Event is one unsynced purchase. TransactionID is the identity.
type Event struct {
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
}

type Ledger struct {
	store kvstore.Store
	mu    sync.Mutex
}

func New(store kvstore.Store) *Ledger {
	return &Ledger{store: store}
}

// Add appends ev unless its transaction id is already queued. It reports whether ev was added.
func (l *Ledger) Add(ev Event) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.TransactionID == ev.TransactionID {
			return false, nil
		}
	}
	return true, l.save(append(events, ev))
}

func (l *Ledger) Remove(transactionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return err
	}
	kept := events[:0]
	for _, e := range events {
		if e.TransactionID != transactionID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(events) {
		return nil
	}
	return l.save(kept)
}

func (l *Ledger) Contains(transactionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.load()
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (l *Ledger) LoadAll() ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// SaveAll replaces the queue. Duplicate transaction ids keep their first entry.
func (l *Ledger) SaveAll(events []Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{}, len(events))
	deduped := make([]Event, 0, len(events))
	for _, e := range events {
		if _, dup := seen[e.TransactionID]; dup {
			continue
		}
		seen[e.TransactionID] = struct{}{}
		deduped = append(deduped, e)
	}
	return l.save(deduped)
}

func (l *Ledger) load() ([]Event, error) {
	raw, ok, err := l.store.Get(StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return []Event{}, nil
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", StorageKey, err)
	}
	return events, nil
}

func (l *Ledger) save(events []Event) error {
	if len(events) == 0 {
		return l.store.Delete(StorageKey)
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return l.store.Set(StorageKey, raw)
}

package storebridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/tier"

	"github.com/google/uuid"
)

const SandboxStorageKey = "sandbox_transactions"

// SandboxStore simulates the platform store for development builds. It pairs
// with a backend running App Store verification in trusting mode.
type SandboxStore struct {
	kv      kvstore.Store
	period  time.Duration
	now     func() time.Time
	updates chan Transaction

	mu sync.Mutex
}

type sandboxRecord struct {
	Transaction
	PurchasedAt time.Time `json:"purchased_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Finished    bool      `json:"finished"`
}

func NewSandboxStore(kv kvstore.Store) *SandboxStore {
	return &SandboxStore{
		kv:      kv,
		period:  30 * 24 * time.Hour,
		now:     time.Now,
		updates: make(chan Transaction, 8),
	}
}

func (s *SandboxStore) Updates() <-chan Transaction {
	return s.updates
}

// Purchase completes immediately. Buying a product already owned renews it
// under the same original transaction id.
func (s *SandboxStore) Purchase(ctx context.Context, productID string) (Transaction, error) {
	if _, ok := tier.TierForProduct(productID); !ok {
		return Transaction{ProductID: productID, State: StateUserCancelled}, nil
	}
	return s.record(productID)
}

// Renew simulates a renewal arriving outside the app, delivered through Updates.
func (s *SandboxStore) Renew(productID string) (Transaction, error) {
	t, err := s.record(productID)
	if err != nil {
		return t, err
	}
	s.updates <- t
	return t, nil
}

func (s *SandboxStore) Restore(ctx context.Context) ([]Transaction, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(records))
	for _, r := range records {
		out = append(out, r.Transaction)
	}
	return out, nil
}

func (s *SandboxStore) CurrentEntitlements(ctx context.Context) ([]Transaction, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}
	now := s.now()
	latest := map[string]sandboxRecord{}
	for _, r := range records {
		if !r.ExpiresAt.After(now) {
			continue
		}
		if cur, ok := latest[r.OriginalTransactionID]; !ok || r.PurchasedAt.After(cur.PurchasedAt) {
			latest[r.OriginalTransactionID] = r
		}
	}
	out := make([]Transaction, 0, len(latest))
	for _, r := range latest {
		out = append(out, r.Transaction)
	}
	return out, nil
}

func (s *SandboxStore) Finish(ctx context.Context, t Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].ID == t.ID {
			records[i].Finished = true
		}
	}
	return s.saveLocked(records)
}

// Close stops delivering updates.
func (s *SandboxStore) Close() {
	close(s.updates)
}

func (s *SandboxStore) record(productID string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return Transaction{}, err
	}

	now := s.now()
	original := ""
	for _, r := range records {
		if r.ProductID == productID {
			original = r.OriginalTransactionID
		}
	}
	id := uuid.NewString()
	if original == "" {
		original = id
	}

	t := Transaction{ID: id, OriginalTransactionID: original, ProductID: productID, State: StateSuccess}
	records = append(records, sandboxRecord{Transaction: t, PurchasedAt: now, ExpiresAt: now.Add(s.period)})
	if err := s.saveLocked(records); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (s *SandboxStore) load() ([]sandboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *SandboxStore) loadLocked() ([]sandboxRecord, error) {
	raw, ok, err := s.kv.Get(SandboxStorageKey)
	if err != nil || !ok {
		return nil, err
	}
	var records []sandboxRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *SandboxStore) saveLocked(records []sandboxRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.kv.Set(SandboxStorageKey, raw)
}

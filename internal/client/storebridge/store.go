package storebridge

import (
	"context"

	"ai-textassist-be/internal/client/ledger"
)

type PurchaseState string

const (
	StatePending       PurchaseState = "pending"
	StateUserCancelled PurchaseState = "user_cancelled"
	StateSuccess       PurchaseState = "success"
)

// Transaction is what the platform store reports for a purchase.
type Transaction struct {
	ID                    string        `json:"id"`
	OriginalTransactionID string        `json:"original_transaction_id"`
	ProductID             string        `json:"product_id"`
	State                 PurchaseState `json:"state"`
}

func (t Transaction) Event() ledger.Event {
	return ledger.Event{
		TransactionID:         t.ID,
		OriginalTransactionID: t.OriginalTransactionID,
		ProductID:             t.ProductID,
	}
}

// Store is the platform store SDK seen by the bridge.
type Store interface {
	// Updates delivers transactions completed outside an explicit Purchase call
	// (renewals, family sharing, approvals). Closed when the store shuts down.
	Updates() <-chan Transaction
	Purchase(ctx context.Context, productID string) (Transaction, error)
	// Restore re-syncs with the platform and returns every known transaction.
	Restore(ctx context.Context) ([]Transaction, error)
	CurrentEntitlements(ctx context.Context) ([]Transaction, error)
	Finish(ctx context.Context, t Transaction) error
}

// Package appstore confirms purchase transactions with the platform store.
package appstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTransactionNotFound = errors.New("appstore: transaction not found")
	ErrInvalidSignature    = errors.New("appstore: invalid transaction signature")
)

// Claim is what the client says it bought.
type Claim struct {
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
}

// Transaction is a purchase confirmed by the store.
type Transaction struct {
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	BundleID              string
	Environment           string
	PurchaseDate          time.Time
	ExpiresDate           *time.Time
	RevocationDate        *time.Time
	SignedPayload         string
}

// IsRevoked reports a refunded or revoked purchase.
func (t *Transaction) IsRevoked() bool {
	return t.RevocationDate != nil
}

type Verifier interface {
	Verify(ctx context.Context, claim Claim) (*Transaction, error)
}

// TrustingVerifier accepts the client's claim as is. Development only.
type TrustingVerifier struct {
	Period time.Duration
	now    func() time.Time
}

func NewTrustingVerifier() *TrustingVerifier {
	return &TrustingVerifier{Period: 30 * 24 * time.Hour, now: time.Now}
}

func (v *TrustingVerifier) Verify(_ context.Context, claim Claim) (*Transaction, error) {
	now := v.now()
	expires := now.Add(v.Period)
	return &Transaction{
		TransactionID:         claim.TransactionID,
		OriginalTransactionID: claim.OriginalTransactionID,
		ProductID:             claim.ProductID,
		Environment:           "Xcode",
		PurchaseDate:          now,
		ExpiresDate:           &expires,
	}, nil
}

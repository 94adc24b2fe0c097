package specification

import "gorm.io/gorm"

type ByTransactionID struct {
	TransactionID string
}

func (s ByTransactionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("transaction_id = ?", s.TransactionID)
}

type ByOriginalTransactionID struct {
	OriginalTransactionID string
}

func (s ByOriginalTransactionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("original_transaction_id = ?", s.OriginalTransactionID)
}

// MostRecentFirst orders subscriptions by purchase, newest first. Re-verifying an old
// transaction updates its row but never moves it ahead of a later purchase.
type MostRecentFirst struct{}

func (s MostRecentFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("starts_at DESC").Order("created_at DESC")
}

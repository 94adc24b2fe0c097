package dto

import "time"

type VerifyPurchaseRequest struct {
	TransactionId         string `json:"transaction_id" validate:"required,max=255"`
	OriginalTransactionId string `json:"original_transaction_id" validate:"required,max=255"`
	ProductId             string `json:"product_id" validate:"required,max=255"`
}

type VerifyPurchaseResponse struct {
	Tier             string     `json:"tier"`
	Plan             string     `json:"plan"`
	Status           string     `json:"status"`
	ExpiresAt        *time.Time `json:"expires_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	RemainingActions int        `json:"remaining_actions"`
}

// EntitlementStatus hydrates the client cache: GET /subscription/status, /auth/me and login.
type EntitlementStatus struct {
	Tier                 string     `json:"tier"`
	Plan                 string     `json:"plan"`
	Status               string     `json:"status,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	IsCancelledButActive bool       `json:"is_cancelled_but_active"`
	RemainingActions     int        `json:"remaining_actions"`
	UsageToday           int        `json:"usage_today"`
	UsageLifetime        int        `json:"usage_lifetime"`
	DailyLimit           int        `json:"daily_limit"`
	IsLifetimeLimit      bool       `json:"is_lifetime_limit"`
	MaxTextLength        int        `json:"max_text_length"`
}

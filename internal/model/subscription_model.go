package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UserSubscription struct {
	Id                    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId                uuid.UUID `gorm:"type:uuid;not null;index"`
	Plan                  string    `gorm:"type:varchar(50);not null"`
	Status                string    `gorm:"type:varchar(50);not null"`
	StartsAt              time.Time `gorm:"not null"`
	ExpiresAt             *time.Time
	CancelledAt           *time.Time
	TransactionId         string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	OriginalTransactionId string         `gorm:"type:varchar(255);index;not null"`
	ProductId             string         `gorm:"type:varchar(255);not null"`
	Receipt               datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt             time.Time      `gorm:"autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime;index"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

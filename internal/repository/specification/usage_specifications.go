package specification

import (
	"time"

	"gorm.io/gorm"
)

// ByUsageDate restricts usage rows to one calendar day. Date must be midnight UTC.
type ByUsageDate struct {
	Date time.Time
}

func (s ByUsageDate) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("usage_date = ?", s.Date.Format("2006-01-02"))
}

type ByActionType struct {
	ActionType string
}

func (s ByActionType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("action_type = ?", s.ActionType)
}

type ByUsageStatus struct {
	Status string
}

func (s ByUsageStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

package models

import "time"

// PurgeLog records every hard deletion performed by the purge job.
// Hard deletes remove the listing row, so this is the only trace left.
type PurgeLog struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID   string     `gorm:"type:varchar(32);not null;index" json:"listing_id"`
	CountryCode string     `gorm:"type:varchar(2);not null;index" json:"country_code"`
	Title       string     `gorm:"type:varchar(200)" json:"title"`
	ArchivedAt  *time.Time `gorm:"type:datetime" json:"archived_at,omitempty"`
	DeletedAt   time.Time  `gorm:"type:datetime;not null;autoCreateTime;index" json:"deleted_at"`
	Reason      string     `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (PurgeLog) TableName() string {
	return "purge_logs"
}

// PurgeReason constants
const (
	PurgeReasonUnactivated = "unactivated"
	PurgeReasonExpired     = "archived_expired"
	PurgeReasonManual      = "manual_deletion"
)

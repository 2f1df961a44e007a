package models

import (
	"time"
)

// NotificationOutbox holds notifications decided by the purge job (and
// other producers) until a worker delivers them. Decoupling decide from
// deliver keeps listing processing independent of channel failures.
type NotificationOutbox struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID   string     `gorm:"type:varchar(32);not null;index:idx_outbox_listing" json:"listing_id"`
	CountryCode string     `gorm:"type:varchar(2);not null" json:"country_code"`
	Kind        string     `gorm:"type:varchar(40);not null;index" json:"kind"`
	Recipient   string     `gorm:"type:varchar(200);not null" json:"recipient"`
	Channel     string     `gorm:"type:varchar(20);not null;default:'email'" json:"channel"` // email, sms
	Subject     string     `gorm:"type:varchar(200)" json:"subject"`
	Body        string     `gorm:"type:text" json:"body"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_outbox_status" json:"status"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	NextRetryAt *time.Time `gorm:"index:idx_outbox_retry" json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
}

// TableName specifies the table name for GORM
func (NotificationOutbox) TableName() string {
	return "notification_outbox"
}

// Outbox status constants
const (
	OutboxStatusPending = "pending"
	OutboxStatusSending = "sending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// MaxSendAttempts before a notification is marked permanently failed
const MaxSendAttempts = 5

// NextSendRetryDelay calculates exponential backoff for delivery retries
func NextSendRetryDelay(attempts int) time.Duration {
	// 1min, 5min, 15min, 1h, 4h
	delays := []time.Duration{
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		1 * time.Hour,
		4 * time.Hour,
	}

	if attempts >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempts]
}

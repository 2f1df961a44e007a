package models

import "time"

// Package is a paid promotion product. Duration overrides the default
// activation window of a listing; PromoDuration bounds how long the
// featured flag stays on.
type Package struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Duration      int       `gorm:"not null;default:30" json:"duration"`       // days the listing stays active
	PromoDuration int       `gorm:"not null;default:7" json:"promo_duration"`  // days the listing stays featured
	CreatedAt     time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Package) TableName() string {
	return "packages"
}

// Payment records a purchased package for a listing. The purge job only
// reads payments; creation goes through the payments endpoint.
type Payment struct {
	ID        string    `gorm:"type:varchar(32);primaryKey" json:"id"`
	ListingID string    `gorm:"type:varchar(32);not null;index" json:"listing_id"`
	PackageID uint      `gorm:"not null;index" json:"package_id"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency  string    `gorm:"type:varchar(3);not null" json:"currency"`
	Method    string    `gorm:"type:varchar(30)" json:"method,omitempty"` // e.g. paypal, stripe, offline
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

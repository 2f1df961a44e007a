package models

import "time"

// Category groups listings. A permanent category exempts every listing
// in it from the expiration workflow, same as the per-listing flag.
type Category struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Permanent bool      `gorm:"not null;default:false" json:"permanent"`
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Category) TableName() string {
	return "categories"
}

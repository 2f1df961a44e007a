package models

import "time"

// Country is one tenant of the portal. The purge job iterates countries
// and evaluates listings in the country's local time zone.
type Country struct {
	Code      string    `gorm:"type:varchar(2);primaryKey" json:"code"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	TimeZone  string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"time_zone"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Country) TableName() string {
	return "countries"
}

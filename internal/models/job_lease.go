package models

import "time"

// JobLease enforces "at most one run per job name at a time" across
// processes. A lease is held until released or until LockedUntil passes,
// so a crashed run cannot block the job forever.
type JobLease struct {
	JobName     string    `gorm:"type:varchar(100);primaryKey" json:"job_name"`
	Holder      string    `gorm:"type:varchar(100);not null" json:"holder"`
	LockedUntil time.Time `gorm:"type:datetime;not null" json:"locked_until"`
	CreatedAt   time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (JobLease) TableName() string {
	return "job_leases"
}

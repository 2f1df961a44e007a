package purge

import (
	"errors"
	"time"

	"classifieds-portal/internal/models"

	"gorm.io/gorm"
)

// ErrLeaseHeld is returned when another run holds the job lease
var ErrLeaseHeld = errors.New("job lease already held")

// AcquireLease takes the named job lease for ttl. A lease whose
// LockedUntil has passed is considered abandoned and can be taken over,
// so a crashed run never blocks the job permanently.
func AcquireLease(db *gorm.DB, jobName, holder string, ttl time.Duration) error {
	now := time.Now()

	return db.Transaction(func(tx *gorm.DB) error {
		var lease models.JobLease
		err := tx.Where("job_name = ?", jobName).First(&lease).Error

		if err == gorm.ErrRecordNotFound {
			return tx.Create(&models.JobLease{
				JobName:     jobName,
				Holder:      holder,
				LockedUntil: now.Add(ttl),
			}).Error
		}
		if err != nil {
			return err
		}

		if lease.LockedUntil.After(now) {
			return ErrLeaseHeld
		}

		// Expired lease: take it over
		lease.Holder = holder
		lease.LockedUntil = now.Add(ttl)
		return tx.Save(&lease).Error
	})
}

// ReleaseLease drops the lease if this holder still owns it
func ReleaseLease(db *gorm.DB, jobName, holder string) error {
	return db.Where("job_name = ? AND holder = ?", jobName, holder).
		Delete(&models.JobLease{}).Error
}

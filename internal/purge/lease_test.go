package purge

import (
	"testing"
	"time"

	"classifieds-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseExclusivity(t *testing.T) {
	gdb := newTestDB(t)
	db := gdb.DB()

	require.NoError(t, AcquireLease(db, "job", "holder-a", time.Hour))

	// A second acquirer is refused while the lease is live
	err := AcquireLease(db, "job", "holder-b", time.Hour)
	assert.ErrorIs(t, err, ErrLeaseHeld)

	// Releasing frees the lease for the next acquirer
	require.NoError(t, ReleaseLease(db, "job", "holder-a"))
	assert.NoError(t, AcquireLease(db, "job", "holder-b", time.Hour))
}

func TestLeaseReleaseByWrongHolder(t *testing.T) {
	gdb := newTestDB(t)
	db := gdb.DB()

	require.NoError(t, AcquireLease(db, "job", "holder-a", time.Hour))

	// Someone else's release is a no-op
	require.NoError(t, ReleaseLease(db, "job", "holder-b"))
	err := AcquireLease(db, "job", "holder-c", time.Hour)
	assert.ErrorIs(t, err, ErrLeaseHeld)
}

func TestLeaseExpiredTakeover(t *testing.T) {
	gdb := newTestDB(t)
	db := gdb.DB()

	// Simulate a crashed run that left an expired lease behind
	require.NoError(t, db.Create(&models.JobLease{
		JobName:     "job",
		Holder:      "crashed",
		LockedUntil: time.Now().Add(-time.Minute),
	}).Error)

	require.NoError(t, AcquireLease(db, "job", "holder-a", time.Hour))

	var lease models.JobLease
	require.NoError(t, db.Where("job_name = ?", "job").First(&lease).Error)
	assert.Equal(t, "holder-a", lease.Holder)
}

func TestLeaseIndependentJobNames(t *testing.T) {
	gdb := newTestDB(t)
	db := gdb.DB()

	require.NoError(t, AcquireLease(db, "job-a", "holder", time.Hour))
	assert.NoError(t, AcquireLease(db, "job-b", "holder", time.Hour))
}

package purge

import (
	"path/filepath"
	"testing"
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/database"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingDispatcher captures notifications instead of delivering them
type recordingDispatcher struct {
	notifications []notify.Notification
}

func (d *recordingDispatcher) Dispatch(n notify.Notification) error {
	d.notifications = append(d.notifications, n)
	return nil
}

func (d *recordingDispatcher) kinds() []string {
	kinds := make([]string, 0, len(d.notifications))
	for _, n := range d.notifications {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func newTestDB(t *testing.T) *database.GormDB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	gdb := database.NewGormDBFromDB(db)
	require.NoError(t, gdb.InitSchema())
	return gdb
}

func newTestRunner(t *testing.T, gdb *database.GormDB) (*Runner, *recordingDispatcher) {
	t.Helper()

	dispatcher := &recordingDispatcher{}
	r := NewRunner(gdb, dispatcher, config.DefaultConfig())
	r.nowFunc = func() time.Time { return testNow }
	return r, dispatcher
}

func seedCountry(t *testing.T, gdb *database.GormDB, code string, active bool) {
	t.Helper()
	require.NoError(t, gdb.SaveCountry(&models.Country{
		Code:     code,
		Name:     code,
		TimeZone: "UTC",
		Active:   active,
	}))
}

func seedListing(t *testing.T, gdb *database.GormDB, l *models.Listing) {
	t.Helper()
	if l.CountryCode == "" {
		l.CountryCode = "de"
	}
	if l.Title == "" {
		l.Title = "Test listing"
	}
	l.ContactEmail = "owner@example.com"
	require.NoError(t, gdb.DB().Create(l).Error)
}

func TestRunDeletesUnverifiedPastThreshold(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{ID: "l1", CreatedAt: daysAgo(31)})

	r, dispatcher := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Empty(t, dispatcher.notifications)

	_, err = gdb.GetListingByID("l1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	logs, err := gdb.GetRecentPurgeLogs(10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "l1", logs[0].ListingID)
	assert.Equal(t, models.PurgeReasonUnactivated, logs[0].Reason)
}

func TestRunArchivesExpiredActiveListing(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{
		ID:         "l1",
		CreatedAt:  daysAgo(30),
		VerifiedAt: daysAgoPtr(29),
	})

	r, dispatcher := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, []string{notify.KindListingArchived}, dispatcher.kinds())

	l, err := gdb.GetListingByID("l1")
	require.NoError(t, err)
	require.NotNil(t, l.ArchivedAt)
	assert.Nil(t, l.ArchivedManuallyAt)
}

func TestRunSendsReminderOnceAndThrottles(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{
		ID:         "l1",
		CreatedAt:  daysAgo(40),
		VerifiedAt: daysAgoPtr(39),
		ArchivedAt: daysAgoPtr(5),
	})

	r, dispatcher := newTestRunner(t, gdb)

	// First run sends the reminder and records it
	result, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reminded)
	assert.Equal(t, []string{notify.KindListingWillBeDeleted}, dispatcher.kinds())

	l, err := gdb.GetListingByID("l1")
	require.NoError(t, err)
	require.NotNil(t, l.DeletionMailSentAt)

	// Second run the same day: throttled, no duplicate notification
	result, err = r.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Reminded)
	assert.Len(t, dispatcher.notifications, 1)
}

func TestRunDeletesArchivedPastRetention(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{
		ID:         "l1",
		CreatedAt:  daysAgo(40),
		VerifiedAt: daysAgoPtr(39),
		ArchivedAt: daysAgoPtr(7),
	})

	r, dispatcher := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	// Deletion notice goes out before the row disappears
	assert.Equal(t, []string{notify.KindListingDeleted}, dispatcher.kinds())

	_, err = gdb.GetListingByID("l1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	logs, err := gdb.GetRecentPurgeLogs(10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.PurgeReasonExpired, logs[0].Reason)

	// Re-running finds nothing: deleted rows leave the candidate set
	result, err = r.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)
	assert.Len(t, dispatcher.notifications, 1)
}

func TestRunSkipsPermanentListings(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{ID: "l1", CreatedAt: daysAgo(400), Permanent: true})

	require.NoError(t, gdb.DB().Create(&models.Category{Name: "jobs", Permanent: true}).Error)
	var cat models.Category
	require.NoError(t, gdb.DB().Where("name = ?", "jobs").First(&cat).Error)
	seedListing(t, gdb, &models.Listing{ID: "l2", CreatedAt: daysAgo(400), CategoryID: cat.ID})

	r, dispatcher := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 0, result.Evaluated)
	assert.Equal(t, 0, result.Deleted)
	assert.Empty(t, dispatcher.notifications)

	_, err = gdb.GetListingByID("l1")
	assert.NoError(t, err)
	_, err = gdb.GetListingByID("l2")
	assert.NoError(t, err)
}

func TestRunUnfeaturesElapsedPromo(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)

	pkg := models.Package{Name: "premium", Price: 9.99, Duration: 60, PromoDuration: 7}
	require.NoError(t, gdb.DB().Create(&pkg).Error)

	seedListing(t, gdb, &models.Listing{
		ID:         "l1",
		CreatedAt:  daysAgo(20),
		VerifiedAt: daysAgoPtr(19),
		Featured:   true,
	})
	require.NoError(t, gdb.DB().Create(&models.Payment{
		ID:        "pay1",
		ListingID: "l1",
		PackageID: pkg.ID,
		Amount:    9.99,
		Currency:  "EUR",
		Active:    true,
		CreatedAt: daysAgo(10),
	}).Error)

	r, dispatcher := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Unfeatured)
	assert.Empty(t, dispatcher.notifications)

	l, err := gdb.GetListingByID("l1")
	require.NoError(t, err)
	assert.False(t, l.Featured)
	// Un-featuring consumes the run: no archival in the same pass
	assert.Nil(t, l.ArchivedAt)
}

func TestRunInactiveCountrySuppressesNotifications(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", false)
	seedListing(t, gdb, &models.Listing{
		ID:         "l1",
		CreatedAt:  daysAgo(30),
		VerifiedAt: daysAgoPtr(29),
	})

	r, dispatcher := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)

	// The transition still happens, only the send is suppressed
	assert.Equal(t, 1, result.Archived)
	assert.Empty(t, dispatcher.notifications)
}

func TestRunRefusesWhileLeaseHeld(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)

	require.NoError(t, AcquireLease(gdb.DB(), JobName, "other-holder", time.Hour))

	r, _ := newTestRunner(t, gdb)
	_, err := r.Run()
	assert.ErrorIs(t, err, ErrLeaseHeld)
}

func TestRunHonorsDeletionSafetyLimit(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{ID: "l1", CreatedAt: daysAgo(60)})
	seedListing(t, gdb, &models.Listing{ID: "l2", CreatedAt: daysAgo(60)})

	dispatcher := &recordingDispatcher{}
	cfg := config.DefaultConfig()
	cfg.Purge.MaxDeletionCount = 1
	r := NewRunner(gdb, dispatcher, cfg)
	r.nowFunc = func() time.Time { return testNow }

	result, err := r.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunNoCountries(t *testing.T) {
	gdb := newTestDB(t)

	r, _ := newTestRunner(t, gdb)
	result, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, result.Countries)
}

func TestRunTwiceIsIdempotentWithinADay(t *testing.T) {
	gdb := newTestDB(t)
	seedCountry(t, gdb, "de", true)
	seedListing(t, gdb, &models.Listing{
		ID:         "unverified",
		CreatedAt:  daysAgo(31),
	})
	seedListing(t, gdb, &models.Listing{
		ID:         "fresh",
		CreatedAt:  daysAgo(3),
		VerifiedAt: daysAgoPtr(2),
	})

	r, dispatcher := newTestRunner(t, gdb)

	first, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Deleted)

	second, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, second.Deleted)
	assert.Equal(t, 1, second.Evaluated) // only the fresh listing remains
	assert.Empty(t, dispatcher.notifications)
}

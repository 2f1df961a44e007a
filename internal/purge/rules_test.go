package purge

import (
	"testing"
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func daysAgoPtr(n int) *time.Time {
	t := daysAgo(n)
	return &t
}

func baseListing() *models.Listing {
	return &models.Listing{
		ID:          "listing1",
		CountryCode: "de",
		Title:       "Mountain bike",
		CreatedAt:   daysAgo(1),
		VerifiedAt:  daysAgoPtr(1),
	}
}

func purgeCfg() config.PurgeConfig {
	return config.DefaultConfig().Purge
}

func TestEvaluatePermanentListingUntouched(t *testing.T) {
	l := baseListing()
	l.Permanent = true
	l.VerifiedAt = nil
	l.CreatedAt = daysAgo(400)

	d := Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionNone, d.Action)
	assert.Nil(t, d.Notification)
}

func TestEvaluateUnverifiedDeletion(t *testing.T) {
	tests := []struct {
		name       string
		createdAgo int
		want       Action
	}{
		{"below threshold", 29, ActionNone},
		{"exactly at threshold", 30, ActionDeleteUnactivated},
		{"past threshold", 45, ActionDeleteUnactivated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := baseListing()
			l.VerifiedAt = nil
			l.CreatedAt = daysAgo(tt.createdAgo)

			d := Evaluate(l, nil, nil, testNow, purgeCfg())
			assert.Equal(t, tt.want, d.Action)
			// Unactivated deletions don't notify anyone
			assert.Nil(t, d.Notification)
		})
	}
}

func TestEvaluateFeaturedPromoElapsed(t *testing.T) {
	l := baseListing()
	l.Featured = true
	l.CreatedAt = daysAgo(100)

	payment := &models.Payment{ID: "pay1", ListingID: l.ID, CreatedAt: daysAgo(10)}
	pkg := &models.Package{ID: 1, Duration: 120, PromoDuration: 7}

	d := Evaluate(l, payment, pkg, testNow, purgeCfg())
	assert.Equal(t, ActionUnfeature, d.Action)
	assert.Nil(t, d.Notification)
}

func TestEvaluateFeaturedPromoStillRunningConsumesRun(t *testing.T) {
	// Even an over-age listing is left alone while its promo runs
	l := baseListing()
	l.Featured = true
	l.CreatedAt = daysAgo(100)

	payment := &models.Payment{ID: "pay1", ListingID: l.ID, CreatedAt: daysAgo(3)}
	pkg := &models.Package{ID: 1, Duration: 120, PromoDuration: 7}

	d := Evaluate(l, payment, pkg, testNow, purgeCfg())
	assert.Equal(t, ActionNone, d.Action)
}

func TestEvaluateFeaturedWithoutPaymentFallsThroughToArchival(t *testing.T) {
	l := baseListing()
	l.Featured = true
	l.CreatedAt = daysAgo(100)

	d := Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionArchive, d.Action)
	require.NotNil(t, d.Notification)
	assert.Equal(t, notify.KindListingArchived, d.Notification.Kind)
}

func TestEvaluateActivationExpiration(t *testing.T) {
	tests := []struct {
		name       string
		createdAgo int
		want       Action
	}{
		{"still active", 29, ActionNone},
		{"exactly at threshold", 30, ActionArchive},
		{"past threshold", 60, ActionArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := baseListing()
			l.CreatedAt = daysAgo(tt.createdAgo)

			d := Evaluate(l, nil, nil, testNow, purgeCfg())
			assert.Equal(t, tt.want, d.Action)
			if tt.want == ActionArchive {
				require.NotNil(t, d.Notification)
				assert.Equal(t, notify.KindListingArchived, d.Notification.Kind)
			}
		})
	}
}

func TestEvaluatePackageDurationOverridesActivationWindow(t *testing.T) {
	l := baseListing()
	l.CreatedAt = daysAgo(45)

	payment := &models.Payment{ID: "pay1", ListingID: l.ID, CreatedAt: daysAgo(45)}
	pkg := &models.Package{ID: 1, Duration: 60, PromoDuration: 7}

	// 45 days old but the paid package grants 60 days
	d := Evaluate(l, payment, pkg, testNow, purgeCfg())
	assert.Equal(t, ActionNone, d.Action)

	// At 60 days the paid window has elapsed too
	l.CreatedAt = daysAgo(60)
	payment.CreatedAt = daysAgo(60)
	d = Evaluate(l, payment, pkg, testNow, purgeCfg())
	assert.Equal(t, ActionArchive, d.Action)
}

func TestEvaluateArchivedReminderWindow(t *testing.T) {
	// Auto-archived: total 7 days, reminder window opens at day 0 (7-7)
	l := baseListing()
	l.CreatedAt = daysAgo(40)
	l.ArchivedAt = daysAgoPtr(5)

	d := Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionRemind, d.Action)
	require.NotNil(t, d.Notification)
	assert.Equal(t, notify.KindListingWillBeDeleted, d.Notification.Kind)
	assert.Equal(t, daysAgo(5).AddDate(0, 0, 7), d.Notification.DeleteOn)
}

func TestEvaluateReminderThrottling(t *testing.T) {
	l := baseListing()
	l.CreatedAt = daysAgo(40)
	l.ArchivedAt = daysAgoPtr(5)

	// Reminder sent yesterday, interval is 2 days: throttled
	l.DeletionMailSentAt = daysAgoPtr(1)
	d := Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionNone, d.Action)

	// Two days since the last reminder: due again
	l.DeletionMailSentAt = daysAgoPtr(2)
	d = Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionRemind, d.Action)
}

func TestEvaluateArchivedDeletion(t *testing.T) {
	l := baseListing()
	l.CreatedAt = daysAgo(40)
	l.ArchivedAt = daysAgoPtr(7)

	d := Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionDeleteExpired, d.Action)
	require.NotNil(t, d.Notification)
	assert.Equal(t, notify.KindListingDeleted, d.Notification.Kind)
}

func TestEvaluateManualArchivalUsesLongerWindow(t *testing.T) {
	l := baseListing()
	l.CreatedAt = daysAgo(120)
	l.ArchivedAt = daysAgoPtr(10)
	l.ArchivedManuallyAt = daysAgoPtr(10)

	// 10 days archived is nothing against the 90-day manual window,
	// and far from its reminder window (opens at day 83)
	d := Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionNone, d.Action)

	// Inside the manual reminder window
	l.ArchivedAt = daysAgoPtr(85)
	l.ArchivedManuallyAt = daysAgoPtr(85)
	d = Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionRemind, d.Action)

	// Past the manual retention
	l.ArchivedAt = daysAgoPtr(90)
	l.ArchivedManuallyAt = daysAgoPtr(90)
	d = Evaluate(l, nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionDeleteExpired, d.Action)
}

func TestEvaluateVerifiedFreshListingNoOp(t *testing.T) {
	d := Evaluate(baseListing(), nil, nil, testNow, purgeCfg())
	assert.Equal(t, ActionNone, d.Action)
}

func TestDaysBetweenInclusiveBoundary(t *testing.T) {
	assert.Equal(t, 30, daysBetween(testNow.AddDate(0, 0, -30), testNow))
	assert.Equal(t, 29, daysBetween(testNow.AddDate(0, 0, -30).Add(time.Hour), testNow))
	assert.Equal(t, 0, daysBetween(testNow, testNow))
}

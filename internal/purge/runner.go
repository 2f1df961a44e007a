package purge

import (
	"fmt"
	"log"
	"os"
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/database"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/notify"
)

// JobName identifies the purge job in the lease table
const JobName = "listings:purge"

// LeaseTTL bounds how long a crashed run can block the next one
const LeaseTTL = time.Hour

// Result summarizes one purge run
type Result struct {
	Countries  int       `json:"countries"`
	Evaluated  int       `json:"evaluated"`
	Deleted    int       `json:"deleted"`
	Archived   int       `json:"archived"`
	Unfeatured int       `json:"unfeatured"`
	Reminded   int       `json:"reminded"`
	Skipped    int       `json:"skipped"` // deletions withheld by the safety limit
	Errors     int       `json:"errors"`
	ExecutedAt time.Time `json:"executed_at"`
}

// Runner executes the listing expiration workflow: iterate countries,
// stream each country's candidates, apply the first matching rule per
// listing. One bad listing never aborts the run.
type Runner struct {
	gdb        *database.GormDB
	dispatcher notify.Dispatcher
	cfg        *config.Config
	batchSize  int

	// nowFunc is time.Now outside tests
	nowFunc func() time.Time
}

// NewRunner creates a purge runner
func NewRunner(gdb *database.GormDB, dispatcher notify.Dispatcher, cfg *config.Config) *Runner {
	return &Runner{
		gdb:        gdb,
		dispatcher: dispatcher,
		cfg:        cfg,
		batchSize:  200,
		nowFunc:    time.Now,
	}
}

// Run executes one purge pass over all countries. It refuses to start
// while another run holds the lease.
func (r *Runner) Run() (*Result, error) {
	holder := fmt.Sprintf("%s-%d-%s", hostname(), os.Getpid(), database.NewID()[:8])

	if err := AcquireLease(r.gdb.DB(), JobName, holder, LeaseTTL); err != nil {
		if err == ErrLeaseHeld {
			log.Printf("Purge: another run is in progress, skipping")
		}
		return nil, err
	}
	defer func() {
		if err := ReleaseLease(r.gdb.DB(), JobName, holder); err != nil {
			log.Printf("Purge: failed to release lease: %v", err)
		}
	}()

	result := &Result{ExecutedAt: r.nowFunc()}

	countries, err := r.gdb.GetCountries()
	if err != nil {
		return nil, fmt.Errorf("failed to load countries: %w", err)
	}
	if len(countries) == 0 {
		log.Println("Purge: no countries configured, nothing to do")
		return result, nil
	}

	for _, country := range countries {
		r.runCountry(country, result)
		result.Countries++
	}

	log.Printf("Purge: completed. countries=%d evaluated=%d deleted=%d archived=%d unfeatured=%d reminded=%d skipped=%d errors=%d",
		result.Countries, result.Evaluated, result.Deleted, result.Archived,
		result.Unfeatured, result.Reminded, result.Skipped, result.Errors)

	return result, nil
}

// runCountry processes all candidates of one country in its local time
func (r *Runner) runCountry(country models.Country, result *Result) {
	loc, err := time.LoadLocation(country.TimeZone)
	if err != nil {
		log.Printf("Purge: [%s] unknown time zone %q, using UTC", country.Code, country.TimeZone)
		loc = time.UTC
	}
	now := r.nowFunc().In(loc)

	before := result.Evaluated
	err = r.gdb.ForEachPurgeCandidate(country.Code, r.batchSize, func(l *models.Listing) {
		r.processListing(country, l, now, result)
	})
	if err != nil {
		log.Printf("Purge: [%s] candidate query failed: %v", country.Code, err)
		result.Errors++
		return
	}

	if result.Evaluated == before {
		log.Printf("Purge: [%s] no candidate listings", country.Code)
	}
}

// processListing evaluates and applies the rules for a single listing.
// Panics and errors are contained here so the batch continues.
func (r *Runner) processListing(country models.Country, l *models.Listing, now time.Time, result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Purge: [%s] panic while processing listing %s: %v", country.Code, l.ID, rec)
			result.Errors++
		}
	}()

	result.Evaluated++

	// Payments only matter for the featured and activation rules
	var payment *models.Payment
	var pkg *models.Package
	if l.Featured || !l.IsArchived() {
		var err error
		payment, pkg, err = r.gdb.LatestActivePayment(l.ID)
		if err != nil {
			log.Printf("Purge: [%s] payment lookup failed for listing %s: %v", country.Code, l.ID, err)
			result.Errors++
			return
		}
	}

	decision := Evaluate(l, payment, pkg, now, r.cfg.Purge)

	switch decision.Action {
	case ActionNone:
		return

	case ActionDeleteUnactivated:
		if r.deletionBudgetExceeded(result) {
			return
		}
		if err := r.gdb.DeleteListingWithLog(l, models.PurgeReasonUnactivated); err != nil {
			log.Printf("Purge: [%s] failed to delete unactivated listing %s: %v", country.Code, l.ID, err)
			result.Errors++
			return
		}
		log.Printf("Purge: [%s] deleted unactivated listing %s (created %s)",
			country.Code, l.ID, l.CreatedAt.Format("2006-01-02"))
		result.Deleted++

	case ActionUnfeature:
		l.Featured = false
		if err := r.gdb.SaveListing(l); err != nil {
			log.Printf("Purge: [%s] failed to unfeature listing %s: %v", country.Code, l.ID, err)
			result.Errors++
			return
		}
		log.Printf("Purge: [%s] cleared featured flag on listing %s", country.Code, l.ID)
		result.Unfeatured++

	case ActionArchive:
		archivedAt := now
		l.ArchivedAt = &archivedAt
		if err := r.gdb.SaveListing(l); err != nil {
			log.Printf("Purge: [%s] failed to archive listing %s: %v", country.Code, l.ID, err)
			result.Errors++
			return
		}
		log.Printf("Purge: [%s] archived listing %s", country.Code, l.ID)
		result.Archived++
		r.notify(country, decision, result)

	case ActionRemind:
		sentAt := now
		l.DeletionMailSentAt = &sentAt
		if err := r.gdb.SaveListing(l); err != nil {
			log.Printf("Purge: [%s] failed to record reminder for listing %s: %v", country.Code, l.ID, err)
			result.Errors++
			return
		}
		result.Reminded++
		r.notify(country, decision, result)

	case ActionDeleteExpired:
		if r.deletionBudgetExceeded(result) {
			return
		}
		// Notify before the row disappears
		r.notify(country, decision, result)
		if err := r.gdb.DeleteListingWithLog(l, models.PurgeReasonExpired); err != nil {
			log.Printf("Purge: [%s] failed to delete expired listing %s: %v", country.Code, l.ID, err)
			result.Errors++
			return
		}
		log.Printf("Purge: [%s] deleted expired listing %s (archived %s)",
			country.Code, l.ID, l.ArchivedAt.Format("2006-01-02"))
		result.Deleted++
	}
}

// notify dispatches the decision's notification. Inactive countries do
// not send; dispatch failures are logged and never abort processing.
func (r *Runner) notify(country models.Country, decision Decision, result *Result) {
	if decision.Notification == nil {
		return
	}
	if !country.Active {
		return
	}

	if err := r.dispatcher.Dispatch(*decision.Notification); err != nil {
		log.Printf("Purge: [%s] notification %s failed for listing %s: %v",
			country.Code, decision.Notification.Kind, decision.Notification.Listing.ID, err)
		result.Errors++
	}
}

// deletionBudgetExceeded enforces the per-run safety limit on hard
// deletes.
func (r *Runner) deletionBudgetExceeded(result *Result) bool {
	maxDel := r.cfg.Purge.MaxDeletionCount
	if maxDel > 0 && result.Deleted >= maxDel {
		if result.Skipped == 0 {
			log.Printf("Purge: deletion safety limit of %d reached, skipping further deletes this run", maxDel)
		}
		result.Skipped++
		return true
	}
	return false
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

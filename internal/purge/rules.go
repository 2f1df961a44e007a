package purge

import (
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/notify"
)

// Action is the transition chosen for a listing in one run. The rules
// form an ordered decision table: the first matching rule wins and the
// rest are not evaluated.
type Action int

const (
	ActionNone Action = iota
	ActionDeleteUnactivated
	ActionUnfeature
	ActionArchive
	ActionRemind
	ActionDeleteExpired
)

func (a Action) String() string {
	switch a {
	case ActionDeleteUnactivated:
		return "delete_unactivated"
	case ActionUnfeature:
		return "unfeature"
	case ActionArchive:
		return "archive"
	case ActionRemind:
		return "remind"
	case ActionDeleteExpired:
		return "delete_expired"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating one listing: the transition to
// apply plus the notification it implies, carried as data so delivery
// stays out of the rule evaluation.
type Decision struct {
	Action       Action
	Notification *notify.Notification
}

// Evaluate runs the expiration rules for one listing. payment and pkg
// are the listing's latest active payment and its package, either may
// be nil. now should be in the listing country's time zone.
//
// Rule order matters and is part of the contract:
//
//  1. unverified listings past the unactivated window are deleted
//  2. a featured listing with a resolvable payment consumes the run:
//     the featured flag is cleared once the promo elapsed, otherwise
//     nothing happens; without a resolvable payment the listing falls
//     through to the archival rule
//  3. an active listing past its activity window is archived
//  4. an archived listing is reminded about, then deleted, based on
//     how long it has been archived
func Evaluate(l *models.Listing, payment *models.Payment, pkg *models.Package, now time.Time, cfg config.PurgeConfig) Decision {
	// Permanent listings are exempt from the whole workflow. The
	// candidate query already excludes them; this guard keeps the rule
	// table safe on its own.
	if l.Permanent {
		return Decision{Action: ActionNone}
	}

	// Rule 1: never-verified listings are deleted without notice
	if !l.IsVerified() && daysBetween(l.CreatedAt, now) >= cfg.UnactivatedExpirationDays {
		return Decision{Action: ActionDeleteUnactivated}
	}

	// Rule 2: featured flag maintenance
	if l.Featured {
		if payment != nil && pkg != nil {
			if daysBetween(payment.CreatedAt, now) >= pkg.PromoDuration {
				return Decision{Action: ActionUnfeature}
			}
			// Promo still running: nothing else fires this run
			return Decision{Action: ActionNone}
		}
		// Payment or package unresolvable: fall through to rule 3
	}

	// Rule 3: activity window elapsed, take the listing offline
	if !l.IsArchived() {
		window := cfg.ActivatedExpirationDays
		if payment != nil && pkg != nil {
			window = pkg.Duration
		}
		if daysBetween(l.CreatedAt, now) >= window {
			return Decision{
				Action: ActionArchive,
				Notification: &notify.Notification{
					Kind:    notify.KindListingArchived,
					Listing: *l,
				},
			}
		}
		return Decision{Action: ActionNone}
	}

	// Rule 4: archived grace period. Manual archival keeps the listing
	// around longer than automatic archival.
	total := cfg.ArchivedExpirationDays
	if l.ArchivedManuallyAt != nil {
		total = cfg.ManuallyArchivedExpirationDays
	}

	daysArchived := daysBetween(*l.ArchivedAt, now)

	if daysArchived >= total {
		return Decision{
			Action: ActionDeleteExpired,
			Notification: &notify.Notification{
				Kind:    notify.KindListingDeleted,
				Listing: *l,
			},
		}
	}

	// Trailing reminder window before the deadline, throttled so the
	// owner is not mailed on every run
	if daysArchived >= total-cfg.ReminderDaysEarlier {
		if l.DeletionMailSentAt == nil || daysBetween(*l.DeletionMailSentAt, now) >= cfg.ReminderIntervalDays {
			return Decision{
				Action: ActionRemind,
				Notification: &notify.Notification{
					Kind:     notify.KindListingWillBeDeleted,
					Listing:  *l,
					DeleteOn: l.ArchivedAt.AddDate(0, 0, total),
				},
			}
		}
	}

	return Decision{Action: ActionNone}
}

// daysBetween returns the whole days elapsed from t to now. Thresholds
// compare inclusively, so a listing created exactly N days ago matches
// a window of N.
func daysBetween(t, now time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

package notify

import (
	"fmt"
	"log"
	"time"

	"classifieds-portal/internal/models"
	"classifieds-portal/internal/sanitize"

	"gorm.io/gorm"
)

// Notification kinds produced by the listing lifecycle
const (
	KindListingArchived      = "listing_archived"
	KindListingWillBeDeleted = "listing_will_be_deleted"
	KindListingDeleted       = "listing_deleted"
)

// Notification is an intended notification as data. The lifecycle rules
// decide that one is due; delivery happens elsewhere.
type Notification struct {
	Kind     string
	Listing  models.Listing
	DeleteOn time.Time // deadline, set for will-be-deleted reminders
}

// Dispatcher accepts intended notifications. Implementations must not
// let delivery problems propagate into listing processing.
type Dispatcher interface {
	Dispatch(n Notification) error
}

// OutboxDispatcher persists notifications to the outbox table, from
// where the worker delivers them with retries.
type OutboxDispatcher struct {
	db *gorm.DB
}

// NewOutboxDispatcher creates an outbox-backed dispatcher
func NewOutboxDispatcher(db *gorm.DB) *OutboxDispatcher {
	return &OutboxDispatcher{db: db}
}

// Dispatch renders the notification and enqueues it. Listings without
// any contact information are skipped with a log line.
func (d *OutboxDispatcher) Dispatch(n Notification) error {
	recipient, channel := recipientFor(&n.Listing)
	if recipient == "" {
		log.Printf("Notify: listing %s has no contact info, skipping %s", n.Listing.ID, n.Kind)
		return nil
	}

	subject, body := render(n)

	entry := models.NotificationOutbox{
		ListingID:   n.Listing.ID,
		CountryCode: n.Listing.CountryCode,
		Kind:        n.Kind,
		Recipient:   recipient,
		Channel:     channel,
		Subject:     subject,
		Body:        body,
		Status:      models.OutboxStatusPending,
	}

	if err := d.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s for listing %s: %w", n.Kind, n.Listing.ID, err)
	}

	log.Printf("Notify: enqueued %s for listing %s via %s", n.Kind, n.Listing.ID, channel)
	return nil
}

// recipientFor picks the delivery channel: email when available,
// SMS as fallback.
func recipientFor(l *models.Listing) (recipient, channel string) {
	if l.ContactEmail != "" {
		return l.ContactEmail, "email"
	}
	if l.ContactPhone != "" {
		return l.ContactPhone, "sms"
	}
	return "", ""
}

// render builds the subject and plain-text body for a notification
func render(n Notification) (subject, body string) {
	title := n.Listing.Title
	snippet := sanitize.Snippet(n.Listing.Description, 120)

	switch n.Kind {
	case KindListingArchived:
		subject = fmt.Sprintf("Your listing %q is no longer online", title)
		body = fmt.Sprintf(
			"Your listing %q has reached the end of its activity window and was taken offline. "+
				"You can repost it at any time.\n\n%s",
			title, snippet)
	case KindListingWillBeDeleted:
		subject = fmt.Sprintf("Your listing %q will be deleted soon", title)
		body = fmt.Sprintf(
			"Your archived listing %q will be permanently deleted on %s. "+
				"Repost it before then if you want to keep it.\n\n%s",
			title, n.DeleteOn.Format("2006-01-02"), snippet)
	case KindListingDeleted:
		subject = fmt.Sprintf("Your listing %q was deleted", title)
		body = fmt.Sprintf(
			"Your archived listing %q has passed its retention period and was permanently deleted.",
			title)
	default:
		subject = fmt.Sprintf("Update on your listing %q", title)
		body = snippet
	}
	return subject, body
}

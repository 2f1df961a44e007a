package models

import "time"

// Listing is a single classified ad.
type Listing struct {
	ID          string `gorm:"type:varchar(32);primaryKey" json:"id"`
	CountryCode string `gorm:"type:varchar(2);not null;index" json:"country_code"`
	CategoryID  uint   `gorm:"not null;index" json:"category_id"`
	UserID      string `gorm:"type:varchar(32);not null;index" json:"user_id"`

	Title       string   `gorm:"type:varchar(200);not null" json:"title"`
	Description string   `gorm:"type:text" json:"description,omitempty"`
	City        string   `gorm:"type:varchar(100);index" json:"city,omitempty"`
	Price       *float64 `gorm:"type:decimal(12,2);index" json:"price,omitempty"`
	Currency    string   `gorm:"type:varchar(3)" json:"currency,omitempty"`
	ListingType string   `gorm:"type:varchar(20);not null;default:'sell';index" json:"listing_type"`
	Tags        string   `gorm:"type:text" json:"tags,omitempty"` // comma separated

	// Owner contact, used by the notification channels
	ContactEmail string `gorm:"type:varchar(200)" json:"contact_email,omitempty"`
	ContactPhone string `gorm:"type:varchar(30)" json:"contact_phone,omitempty"`

	// Lifecycle flags and timestamps
	Featured  bool `gorm:"not null;default:false;index" json:"featured"`
	Permanent bool `gorm:"not null;default:false;index" json:"permanent"`

	VerifiedAt         *time.Time `gorm:"type:datetime" json:"verified_at,omitempty"`
	ArchivedAt         *time.Time `gorm:"type:datetime;index" json:"archived_at,omitempty"`
	ArchivedManuallyAt *time.Time `gorm:"type:datetime" json:"archived_manually_at,omitempty"`
	DeletionMailSentAt *time.Time `gorm:"type:datetime" json:"deletion_mail_sent_at,omitempty"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime;index:idx_listings_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:datetime;not null;autoUpdateTime" json:"updated_at"`
}

// ListingType values
const (
	ListingTypeSell   = "sell"
	ListingTypeBuy    = "buy"
	ListingTypeRent   = "rent"
	ListingTypeOffer  = "offer"
	ListingTypeSearch = "search"
)

// TableName specifies the table name
func (Listing) TableName() string {
	return "listings"
}

// IsVerified reports whether email/phone confirmation happened.
func (l *Listing) IsVerified() bool {
	return l.VerifiedAt != nil
}

// IsArchived reports whether the listing is offline pending deletion.
func (l *Listing) IsArchived() bool {
	return l.ArchivedAt != nil
}

// Archive takes the listing offline. Manual archival is owner initiated
// and keeps the listing around for a longer grace period.
func (l *Listing) Archive(manual bool) {
	now := time.Now()
	l.ArchivedAt = &now
	if manual {
		l.ArchivedManuallyAt = &now
	}
}

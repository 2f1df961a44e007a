package database

import (
	"database/sql"
	"fmt"

	"classifieds-portal/internal/models"

	_ "github.com/lib/pq"
)

type DB struct {
	conn *sql.DB
}

func NewDB(host, port, user, password, dbname string) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the core tables if they don't exist
func (db *DB) InitSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS countries (
		code VARCHAR(2) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		time_zone VARCHAR(64) NOT NULL DEFAULT 'UTC',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(32) PRIMARY KEY,
		country_code VARCHAR(2) NOT NULL,
		category_id INTEGER NOT NULL DEFAULT 0,
		user_id VARCHAR(32) NOT NULL,
		title VARCHAR(200) NOT NULL,
		description TEXT,
		city VARCHAR(100),
		price DECIMAL(12, 2),
		currency VARCHAR(3),
		listing_type VARCHAR(20) NOT NULL DEFAULT 'sell',
		tags TEXT,
		contact_email VARCHAR(200),
		contact_phone VARCHAR(30),
		featured BOOLEAN NOT NULL DEFAULT FALSE,
		permanent BOOLEAN NOT NULL DEFAULT FALSE,
		verified_at TIMESTAMP,
		archived_at TIMESTAMP,
		archived_manually_at TIMESTAMP,
		deletion_mail_sent_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	-- Indexes for the common filters
	CREATE INDEX IF NOT EXISTS idx_listings_country ON listings(country_code);
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_listings_type ON listings(listing_type);
	CREATE INDEX IF NOT EXISTS idx_listings_archived ON listings(archived_at);
	`
	_, err := db.conn.Exec(query)
	return err
}

const listingColumns = `id, country_code, category_id, user_id, title, description, city,
	price, currency, listing_type, tags, contact_email, contact_phone,
	featured, permanent, verified_at, archived_at, archived_manually_at,
	deletion_mail_sent_at, created_at, updated_at`

func scanListing(row interface {
	Scan(dest ...interface{}) error
}) (*models.Listing, error) {
	var l models.Listing
	err := row.Scan(
		&l.ID, &l.CountryCode, &l.CategoryID, &l.UserID, &l.Title, &l.Description, &l.City,
		&l.Price, &l.Currency, &l.ListingType, &l.Tags, &l.ContactEmail, &l.ContactPhone,
		&l.Featured, &l.Permanent, &l.VerifiedAt, &l.ArchivedAt, &l.ArchivedManuallyAt,
		&l.DeletionMailSentAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListingByID retrieves a listing by ID
func (db *DB) GetListingByID(id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return scanListing(db.conn.QueryRow(query, id))
}

// GetActiveListings retrieves non-archived listings, newest first
func (db *DB) GetActiveListings(countryCode string, limit int) ([]models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings
		WHERE archived_at IS NULL AND ($1 = '' OR country_code = $1)
		ORDER BY created_at DESC LIMIT $2`

	rows, err := db.conn.Query(query, countryCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}

	return listings, rows.Err()
}

// SaveListing inserts or updates a listing by primary key
func (db *DB) SaveListing(l *models.Listing) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	query := `
	INSERT INTO listings (` + listingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		city = EXCLUDED.city,
		price = EXCLUDED.price,
		currency = EXCLUDED.currency,
		listing_type = EXCLUDED.listing_type,
		tags = EXCLUDED.tags,
		contact_email = EXCLUDED.contact_email,
		contact_phone = EXCLUDED.contact_phone,
		featured = EXCLUDED.featured,
		verified_at = EXCLUDED.verified_at,
		archived_at = EXCLUDED.archived_at,
		archived_manually_at = EXCLUDED.archived_manually_at,
		deletion_mail_sent_at = EXCLUDED.deletion_mail_sent_at,
		updated_at = NOW()
	`
	_, err := db.conn.Exec(query,
		l.ID, l.CountryCode, l.CategoryID, l.UserID, l.Title, l.Description, l.City,
		l.Price, l.Currency, l.ListingType, l.Tags, l.ContactEmail, l.ContactPhone,
		l.Featured, l.Permanent, l.VerifiedAt, l.ArchivedAt, l.ArchivedManuallyAt,
		l.DeletionMailSentAt)
	return err
}

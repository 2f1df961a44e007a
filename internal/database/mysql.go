package database

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"classifieds-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	db *gorm.DB
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Country{},
		&models.Category{},
		&models.Listing{},
		&models.Package{},
		&models.Payment{},
		&models.PurgeLog{},
		&models.NotificationOutbox{},
		&models.JobLease{},
	)
}

// SaveListing creates or updates a listing. New listings get a compact
// UUID and default type.
func (gdb *GormDB) SaveListing(l *models.Listing) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	if l.ListingType == "" {
		l.ListingType = models.ListingTypeSell
	}
	return gdb.db.Save(l).Error
}

// NewID returns a 32-char hex id (UUID without dashes)
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetListingByID retrieves a listing by ID
func (gdb *GormDB) GetListingByID(id string) (*models.Listing, error) {
	var listing models.Listing
	err := gdb.db.Where("id = ?", id).First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// MarkVerified records email/phone confirmation for a listing
func (gdb *GormDB) MarkVerified(id string) error {
	now := time.Now()
	return gdb.db.Model(&models.Listing{}).
		Where("id = ?", id).
		Update("verified_at", &now).Error
}

// ArchiveListing takes a listing offline. Manual archival records the
// distinct timestamp that selects the longer retention window.
func (gdb *GormDB) ArchiveListing(id string, manual bool) error {
	now := time.Now()
	updates := map[string]interface{}{
		"archived_at": &now,
	}
	if manual {
		updates["archived_manually_at"] = &now
	}
	return gdb.db.Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteListingWithLog removes a listing row and records a purge log
// entry in the same transaction, so every hard delete leaves a trace.
func (gdb *GormDB) DeleteListingWithLog(l *models.Listing, reason string) error {
	return gdb.db.Transaction(func(tx *gorm.DB) error {
		purgeLog := models.PurgeLog{
			ListingID:   l.ID,
			CountryCode: l.CountryCode,
			Title:       l.Title,
			ArchivedAt:  l.ArchivedAt,
			Reason:      reason,
		}
		if err := tx.Create(&purgeLog).Error; err != nil {
			return err
		}
		return tx.Delete(l).Error
	})
}

// GetCountries retrieves all countries ordered by code
func (gdb *GormDB) GetCountries() ([]models.Country, error) {
	var countries []models.Country
	err := gdb.db.Order("code ASC").Find(&countries).Error
	return countries, err
}

// SaveCountry creates or updates a country
func (gdb *GormDB) SaveCountry(c *models.Country) error {
	return gdb.db.Save(c).Error
}

// ForEachPurgeCandidate streams the purge candidates of one country in
// batches to bound memory on large tables. Permanent listings and
// listings in permanent categories are excluded at the query.
func (gdb *GormDB) ForEachPurgeCandidate(countryCode string, batchSize int, fn func(*models.Listing)) error {
	var batch []models.Listing
	result := gdb.db.
		Joins("LEFT JOIN categories ON categories.id = listings.category_id").
		Where("listings.country_code = ?", countryCode).
		Where("listings.permanent = ?", false).
		Where("(categories.permanent IS NULL OR categories.permanent = ?)", false).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				fn(&batch[i])
			}
			return nil
		})
	return result.Error
}

// LatestActivePayment resolves the most recent active payment for a
// listing together with its package. Returns nil, nil when the listing
// has no active payment or the package no longer exists.
func (gdb *GormDB) LatestActivePayment(listingID string) (*models.Payment, *models.Package, error) {
	var payment models.Payment
	err := gdb.db.Where("listing_id = ? AND active = ?", listingID, true).
		Order("created_at DESC").
		First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var pkg models.Package
	err = gdb.db.Where("id = ?", payment.PackageID).First(&pkg).Error
	if err == gorm.ErrRecordNotFound {
		return &payment, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return &payment, &pkg, nil
}

// SavePayment creates a payment record
func (gdb *GormDB) SavePayment(p *models.Payment) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return gdb.db.Create(p).Error
}

// GetRecentPurgeLogs returns recent purge log entries
func (gdb *GormDB) GetRecentPurgeLogs(limit int) ([]models.PurgeLog, error) {
	var logs []models.PurgeLog
	err := gdb.db.Order("deleted_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// ListingFilters describes the composable search filters. Every filter
// is optional; unset filters attach no SQL fragment.
type ListingFilters struct {
	CountryCode     string
	UserID          string
	City            string
	ListingType     string
	Tag             string
	MinPrice        *float64
	MaxPrice        *float64
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	IncludeArchived bool
	SortBy          string
	Limit           int
	Offset          int
}

// TagCount is one entry of the tag cloud
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// ListingPage is the search response envelope: one page of listings
// plus per-type counts and a tag cloud over the whole filtered set.
type ListingPage struct {
	Listings   []models.Listing `json:"listings"`
	Total      int64            `json:"total"`
	Limit      int              `json:"limit"`
	Offset     int              `json:"offset"`
	TypeCounts map[string]int64 `json:"type_counts"`
	Tags       []TagCount       `json:"tags"`
}

// filteredQuery attaches the WHERE fragments shared by the page query
// and the aggregates. The price range is applied by the caller (the
// page query uses HAVING on the computed effective_price column).
func (gdb *GormDB) filteredQuery(f ListingFilters) *gorm.DB {
	q := gdb.db.Model(&models.Listing{})

	if f.CountryCode != "" {
		q = q.Where("country_code = ?", f.CountryCode)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.City != "" {
		q = q.Where("city = ?", f.City)
	}
	if f.ListingType != "" {
		q = q.Where("listing_type = ?", f.ListingType)
	}
	if f.Tag != "" {
		q = q.Where("tags LIKE ?", "%"+f.Tag+"%")
	}
	if f.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		q = q.Where("created_at < ?", *f.CreatedBefore)
	}
	if !f.IncludeArchived {
		q = q.Where("archived_at IS NULL")
	}

	return q
}

// GetListingsWithFiltersPaginated composes the dynamic search query and
// shapes the response envelope.
func (gdb *GormDB) GetListingsWithFiltersPaginated(f ListingFilters) (*ListingPage, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}

	// Page query: expose a computed price column so the range filter can
	// use HAVING (free listings count as price 0).
	page := gdb.filteredQuery(f).
		Select("listings.*, COALESCE(price, 0) AS effective_price")

	if f.MinPrice != nil || f.MaxPrice != nil {
		page = page.Group("listings.id")
		if f.MinPrice != nil {
			page = page.Having("effective_price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			page = page.Having("effective_price <= ?", *f.MaxPrice)
		}
	}

	// Total over the full filtered set (same predicates, WHERE form)
	var ids []string
	total := gdb.filteredQuery(f)
	if f.MinPrice != nil {
		total = total.Where("COALESCE(price, 0) >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		total = total.Where("COALESCE(price, 0) <= ?", *f.MaxPrice)
	}
	if err := total.Pluck("listings.id", &ids).Error; err != nil {
		return nil, err
	}

	var listings []models.Listing
	err := page.Order(orderClause(f.SortBy)).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}

	typeCounts, err := gdb.typeCounts(f)
	if err != nil {
		return nil, err
	}

	tags, err := gdb.tagCloud(f)
	if err != nil {
		return nil, err
	}

	return &ListingPage{
		Listings:   listings,
		Total:      int64(len(ids)),
		Limit:      f.Limit,
		Offset:     f.Offset,
		TypeCounts: typeCounts,
		Tags:       tags,
	}, nil
}

// orderClause maps the sort parameter to an ORDER BY clause.
// NULL prices sort last regardless of direction.
func orderClause(sortBy string) string {
	switch sortBy {
	case "created_at_asc":
		return "created_at ASC"
	case "price_asc":
		return "CASE WHEN price IS NULL THEN 1 ELSE 0 END, price ASC"
	case "price_desc":
		return "CASE WHEN price IS NULL THEN 1 ELSE 0 END, price DESC"
	default:
		// Default to newest first
		return "created_at DESC"
	}
}

// typeCounts counts listings per type across the filtered set,
// ignoring the type filter itself so all tabs show their totals.
func (gdb *GormDB) typeCounts(f ListingFilters) (map[string]int64, error) {
	noType := f
	noType.ListingType = ""

	q := gdb.filteredQuery(noType)
	if f.MinPrice != nil {
		q = q.Where("COALESCE(price, 0) >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("COALESCE(price, 0) <= ?", *f.MaxPrice)
	}

	var rows []struct {
		ListingType string
		Count       int64
	}
	err := q.Select("listing_type, count(*) as count").
		Group("listing_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ListingType] = r.Count
	}
	return counts, nil
}

// tagCloud aggregates the comma-separated tag columns of the filtered
// set in memory (tags are free text, there is no tags table).
func (gdb *GormDB) tagCloud(f ListingFilters) ([]TagCount, error) {
	q := gdb.filteredQuery(f)
	if f.MinPrice != nil {
		q = q.Where("COALESCE(price, 0) >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("COALESCE(price, 0) <= ?", *f.MaxPrice)
	}

	var tagColumns []string
	if err := q.Where("tags != ''").Limit(1000).Pluck("tags", &tagColumns).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, col := range tagColumns {
		for _, tag := range strings.Split(col, ",") {
			tag = strings.TrimSpace(strings.ToLower(tag))
			if tag != "" {
				counts[tag]++
			}
		}
	}

	cloud := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		cloud = append(cloud, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(cloud, func(i, j int) bool {
		if cloud[i].Count != cloud[j].Count {
			return cloud[i].Count > cloud[j].Count
		}
		return cloud[i].Tag < cloud[j].Tag
	})

	// Cap the cloud at the 30 most used tags
	if len(cloud) > 30 {
		cloud = cloud[:30]
	}
	return cloud, nil
}

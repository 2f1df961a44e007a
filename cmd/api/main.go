package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/database"
	"classifieds-portal/internal/handlers"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/notify"
	"classifieds-portal/internal/purge"
	"classifieds-portal/internal/ratelimit"
	"classifieds-portal/internal/scheduler"
	"classifieds-portal/internal/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	db           *database.DB
	gormDB       *database.GormDB
	searchClient *search.SearchClient
	appConfig    *config.Config
	rateLimiter  *ratelimit.Limiter
	appScheduler *scheduler.Scheduler
	outboxWorker *notify.OutboxWorker
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "/app/config/portal_config.yaml")
	var err error
	appConfig, err = config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config from %s: %v. Using defaults.", configPath, err)
		appConfig = config.DefaultConfig()
	} else {
		log.Printf("Loaded configuration from %s", configPath)
	}

	// Initialize database based on configuration
	dbType := appConfig.Database.Type
	if dbType == "" {
		dbType = getEnv("DB_TYPE", "mysql")
	}

	if dbType == "mysql" {
		log.Println("Using MySQL with GORM")
		mysqlCfg := appConfig.Database.MySQL

		// Get port as string, handle 0 as empty
		portStr := ""
		if mysqlCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", mysqlCfg.Port)
		}

		gormDB, err = database.NewGormDB(
			getEnvOrConfig(mysqlCfg.Host, "DB_HOST", "mysql"),
			getEnvOrConfig(portStr, "DB_PORT", "3306"),
			getEnvOrConfig(mysqlCfg.User, "DB_USER", "classifieds_user"),
			getEnvOrConfig(mysqlCfg.Password, "DB_PASSWORD", "classifieds_pass"),
			getEnvOrConfig(mysqlCfg.Database, "DB_NAME", "classifieds_db"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer gormDB.Close()

		// Initialize schema with GORM AutoMigrate
		if err := gormDB.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	} else {
		log.Println("Using PostgreSQL")
		pgCfg := appConfig.Database.Postgres

		// Get port as string, handle 0 as empty
		portStr := ""
		if pgCfg.Port > 0 {
			portStr = fmt.Sprintf("%d", pgCfg.Port)
		}

		db, err = database.NewDB(
			getEnvOrConfig(pgCfg.Host, "DB_HOST", "db"),
			getEnvOrConfig(portStr, "DB_PORT", "5432"),
			getEnvOrConfig(pgCfg.User, "DB_USER", "classifieds_user"),
			getEnvOrConfig(pgCfg.Password, "DB_PASSWORD", "classifieds_pass"),
			getEnvOrConfig(pgCfg.Database, "DB_NAME", "classifieds_db"),
		)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Initialize schema
		if err := db.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
	}

	// Initialize Meilisearch using config
	meilisearchHost := appConfig.Search.Meilisearch.Host
	if meilisearchHost == "" {
		meilisearchHost = getEnv("MEILISEARCH_HOST", "http://meilisearch:7700")
	}
	meilisearchKey := appConfig.Search.Meilisearch.APIKey
	if meilisearchKey == "" {
		meilisearchKey = getEnv("MEILISEARCH_KEY", "masterKey123")
	}

	searchClient = search.NewSearchClient(meilisearchHost, meilisearchKey)

	// Wait for Meilisearch to be ready
	time.Sleep(2 * time.Second)

	if err := searchClient.InitIndex(); err != nil {
		log.Printf("Warning: Failed to initialize search index: %v", err)
	}

	// Initialize rate limiter for write endpoints
	rateLimiter = ratelimit.NewLimiter(
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.Enabled,
	)
	log.Printf("Rate limiter initialized: %d req/min, %d req/hour, %d req/day (enabled: %v)",
		appConfig.RateLimit.RequestsPerMinute,
		appConfig.RateLimit.RequestsPerHour,
		appConfig.RateLimit.RequestsPerDay,
		appConfig.RateLimit.Enabled,
	)

	// Initialize and start scheduler and outbox worker (MySQL only)
	if gormDB != nil {
		dispatcher := notify.NewOutboxDispatcher(gormDB.DB())
		runner := purge.NewRunner(gormDB, dispatcher, appConfig)

		appScheduler = scheduler.NewScheduler(runner, appConfig)
		if err := appScheduler.Start(); err != nil {
			log.Printf("Warning: Failed to start scheduler: %v", err)
		}
		defer appScheduler.Stop()

		// Outbox worker delivers queued notifications in the background
		channel := notificationChannel(appConfig)
		outboxWorker = notify.NewOutboxWorker(gormDB.DB(), channel, appConfig.Notify)
		outboxWorker.Start()
		defer outboxWorker.Stop()
		log.Printf("Outbox worker started (channel: %s)", channel.Name())
	}

	// Setup Gin router
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5176"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	// Routes
	r.GET("/health", healthCheck)
	r.GET("/api/listings", getListings)
	r.GET("/api/listings/:id", getListing)

	// Write routes with rate limiting
	r.POST("/api/listings", rateLimitMiddleware(), createListing)
	r.POST("/api/listings/:id/verify", rateLimitMiddleware(), verifyListing)
	r.POST("/api/listings/:id/archive", rateLimitMiddleware(), archiveListing)
	r.POST("/api/payments", rateLimitMiddleware(), recordPayment)

	// Rate limiter stats endpoint
	r.GET("/api/ratelimit/stats", getRateLimitStats)

	r.GET("/api/search", searchListings)
	r.POST("/api/search/reindex", reindexAllListings)

	// Admin API routes (requires authentication in production)
	if gormDB != nil {
		adminHandler := handlers.NewAdminHandler(gormDB, appScheduler, outboxWorker, appConfig)

		admin := r.Group("/api/admin")
		{
			// Statistics
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/country-stats", adminHandler.GetCountryStats)

			// Purge control
			admin.POST("/purge/trigger", adminHandler.TriggerPurge)
			admin.GET("/purge/status", adminHandler.GetPurgeStatus)
			admin.GET("/purge/logs", adminHandler.GetPurgeLogs)

			// Notification outbox
			admin.GET("/outbox/stats", adminHandler.GetOutboxStats)
			admin.GET("/outbox/entries", adminHandler.GetOutboxEntries)

			// Country management
			admin.GET("/countries", adminHandler.GetCountries)
			admin.POST("/countries", adminHandler.SaveCountry)
		}

		log.Println("Admin API routes registered at /api/admin/*")
	}

	port := getEnv("PORT", "8084")
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// notificationChannel picks the delivery channel from configuration
func notificationChannel(cfg *config.Config) notify.Channel {
	if cfg.Notify.Enabled && cfg.Notify.GatewayURL != "" {
		return notify.NewWebhookChannel(cfg.Notify)
	}
	return notify.LogChannel{}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

func getListings(c *gin.Context) {
	// Build filters from query parameters
	filters := database.ListingFilters{
		CountryCode: c.Query("country"),
		UserID:      c.Query("user_id"),
		City:        c.Query("city"),
		ListingType: c.Query("type"),
		Tag:         c.Query("tag"),
		SortBy:      c.DefaultQuery("sort", "created_at"),
	}

	// Price range
	if minPriceStr := c.Query("min_price"); minPriceStr != "" {
		if minPrice, parseErr := strconv.ParseFloat(minPriceStr, 64); parseErr == nil {
			filters.MinPrice = &minPrice
		}
	}
	if maxPriceStr := c.Query("max_price"); maxPriceStr != "" {
		if maxPrice, parseErr := strconv.ParseFloat(maxPriceStr, 64); parseErr == nil {
			filters.MaxPrice = &maxPrice
		}
	}

	// Creation date range
	if afterStr := c.Query("created_after"); afterStr != "" {
		if after, parseErr := time.Parse(time.RFC3339, afterStr); parseErr == nil {
			filters.CreatedAfter = &after
		}
	}
	if beforeStr := c.Query("created_before"); beforeStr != "" {
		if before, parseErr := time.Parse(time.RFC3339, beforeStr); parseErr == nil {
			filters.CreatedBefore = &before
		}
	}

	if c.Query("include_archived") == "true" {
		filters.IncludeArchived = true
	}

	// Pagination parameters
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, parseErr := strconv.Atoi(limitStr); parseErr == nil && limit > 0 {
			filters.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, parseErr := strconv.Atoi(offsetStr); parseErr == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	// Always use paginated endpoint with GORM
	if gormDB != nil {
		start := time.Now()
		result, err := gormDB.GetListingsWithFiltersPaginated(filters)
		duration := time.Since(start)

		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Log search API performance for monitoring
		log.Printf("[Search API] duration_ms=%d total=%d limit=%d sort=%s",
			duration.Milliseconds(), result.Total, result.Limit, filters.SortBy)

		c.JSON(http.StatusOK, result)
		return
	}

	// Legacy fallback (should not be reached in production)
	listings, err := db.GetActiveListings(filters.CountryCode, filters.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, listings)
}

func getListing(c *gin.Context) {
	id := c.Param("id")
	var listing *models.Listing
	var err error

	if gormDB != nil {
		listing, err = gormDB.GetListingByID(id)
	} else {
		listing, err = db.GetListingByID(id)
	}

	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	c.JSON(http.StatusOK, listing)
}

func createListing(c *gin.Context) {
	var req struct {
		CountryCode  string   `json:"country_code" binding:"required"`
		CategoryID   uint     `json:"category_id" binding:"required"`
		UserID       string   `json:"user_id" binding:"required"`
		Title        string   `json:"title" binding:"required"`
		Description  string   `json:"description"`
		City         string   `json:"city"`
		Price        *float64 `json:"price"`
		Currency     string   `json:"currency"`
		ListingType  string   `json:"listing_type"`
		Tags         string   `json:"tags"`
		ContactEmail string   `json:"contact_email"`
		ContactPhone string   `json:"contact_phone"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ListingType == "" {
		req.ListingType = models.ListingTypeSell
	}
	if !validListingType(req.ListingType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown listing type: " + req.ListingType})
		return
	}

	listing := &models.Listing{
		ID:           database.NewID(),
		CountryCode:  strings.ToLower(req.CountryCode),
		CategoryID:   req.CategoryID,
		UserID:       req.UserID,
		Title:        req.Title,
		Description:  req.Description,
		City:         req.City,
		Price:        req.Price,
		Currency:     req.Currency,
		ListingType:  req.ListingType,
		Tags:         req.Tags,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	}

	var err error
	if gormDB != nil {
		err = gormDB.SaveListing(listing)
	} else {
		err = db.SaveListing(listing)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// New listings are unverified and stay out of the search index
	// until verification.
	c.JSON(http.StatusCreated, listing)
}

func verifyListing(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Verification requires MySQL/GORM"})
		return
	}

	id := c.Param("id")
	if _, err := gormDB.GetListingByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	if err := gormDB.MarkVerified(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	listing, err := gormDB.GetListingByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Verified listings become searchable
	if err := searchClient.IndexListing(listing); err != nil {
		log.Printf("Warning: Failed to index listing %s: %v", id, err)
	}

	c.JSON(http.StatusOK, listing)
}

func archiveListing(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Archival requires MySQL/GORM"})
		return
	}

	id := c.Param("id")
	if _, err := gormDB.GetListingByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	if err := gormDB.ArchiveListing(id, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Archived listings leave the search index
	if err := searchClient.DeleteListing(id); err != nil {
		log.Printf("Warning: Failed to deindex listing %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"message": "Listing archived",
	})
}

func recordPayment(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments require MySQL/GORM"})
		return
	}

	var req struct {
		ListingID string  `json:"listing_id" binding:"required"`
		PackageID uint    `json:"package_id" binding:"required"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		Method    string  `json:"method"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := gormDB.GetListingByID(req.ListingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}

	var pkg models.Package
	if err := gormDB.DB().First(&pkg, req.PackageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
		return
	}

	payment := &models.Payment{
		ID:        database.NewID(),
		ListingID: req.ListingID,
		PackageID: pkg.ID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Method:    req.Method,
		Active:    true,
	}
	if err := gormDB.SavePayment(payment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Packages with a promotion window put the listing on the featured
	// cycle until the window elapses.
	if pkg.PromoDuration > 0 && !listing.Featured {
		listing.Featured = true
		if err := gormDB.SaveListing(listing); err != nil {
			log.Printf("Warning: Failed to feature listing %s: %v", listing.ID, err)
		} else if listing.IsVerified() && !listing.IsArchived() {
			if err := searchClient.IndexListing(listing); err != nil {
				log.Printf("Warning: Failed to reindex listing %s: %v", listing.ID, err)
			}
		}
	}

	c.JSON(http.StatusCreated, payment)
}

func searchListings(c *gin.Context) {
	query := c.Query("q")
	limitStr := c.DefaultQuery("limit", "20")

	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil {
		limit = 20
	}

	// Parse filter parameters
	params := search.FilterParams{
		Query:       query,
		CountryCode: c.Query("country"),
		City:        c.Query("city"),
		SortBy:      c.Query("sort_by"),
		Limit:       limit,
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, parseErr := strconv.ParseInt(offsetStr, 10, 64); parseErr == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	// Listing types (comma separated)
	if typesStr := c.Query("types"); typesStr != "" {
		params.Types = strings.Split(typesStr, ",")
	}

	// Tags (every requested tag must match)
	if tags := c.QueryArray("tag"); len(tags) > 0 {
		params.Tags = tags
	}

	// Price range
	if minPriceStr := c.Query("min_price"); minPriceStr != "" {
		if minPrice, parseErr := strconv.ParseFloat(minPriceStr, 64); parseErr == nil {
			params.MinPrice = &minPrice
		}
	}
	if maxPriceStr := c.Query("max_price"); maxPriceStr != "" {
		if maxPrice, parseErr := strconv.ParseFloat(maxPriceStr, 64); parseErr == nil {
			params.MaxPrice = &maxPrice
		}
	}

	if featuredStr := c.Query("featured"); featuredStr != "" {
		featured := featuredStr == "true"
		params.Featured = &featured
	}

	result, err := searchClient.FilterSearch(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// reindexAllListings re-indexes all searchable listings from database to Meilisearch
func reindexAllListings(c *gin.Context) {
	if gormDB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reindex requires MySQL/GORM"})
		return
	}

	log.Println("[Reindex] Starting full reindex of all listings")

	// Only verified, non-archived listings belong in the index
	var listings []models.Listing
	err := gormDB.DB().
		Where("verified_at IS NOT NULL AND archived_at IS NULL").
		Find(&listings).Error
	if err != nil {
		log.Printf("[Reindex] Error fetching listings from database: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch listings from database",
		})
		return
	}

	log.Printf("[Reindex] Found %d searchable listings in database", len(listings))

	if err := searchClient.IndexListings(listings); err != nil {
		log.Printf("[Reindex] Error indexing listings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("[Reindex] Reindex complete. Indexed: %d", len(listings))

	c.JSON(http.StatusOK, gin.H{
		"message": "Reindex complete",
		"indexed": len(listings),
	})
}

func validListingType(t string) bool {
	switch t {
	case models.ListingTypeSell, models.ListingTypeBuy, models.ListingTypeRent,
		models.ListingTypeOffer, models.ListingTypeSearch:
		return true
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func getEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return getEnv(envKey, defaultValue)
}

// rateLimitMiddleware returns a Gin middleware that enforces rate limiting
func rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rateLimiter.Allow() {
			stats := rateLimiter.GetStats()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
				"stats":   stats,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// getRateLimitStats returns current rate limiter statistics
func getRateLimitStats(c *gin.Context) {
	stats := rateLimiter.GetStats()
	c.JSON(http.StatusOK, stats)
}

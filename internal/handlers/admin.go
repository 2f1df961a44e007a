package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/database"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/notify"
	"classifieds-portal/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	gdb       *database.GormDB
	scheduler *scheduler.Scheduler
	worker    *notify.OutboxWorker
	config    *config.Config
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(gdb *database.GormDB, sched *scheduler.Scheduler, worker *notify.OutboxWorker, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		gdb:       gdb,
		scheduler: sched,
		worker:    worker,
		config:    cfg,
	}
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := make(map[string]interface{})
	db := h.gdb.DB()

	// Listing counts by state
	var activeCount, archivedCount, unverifiedCount, featuredCount int64
	db.Model(&models.Listing{}).Where("verified_at IS NOT NULL AND archived_at IS NULL").Count(&activeCount)
	db.Model(&models.Listing{}).Where("archived_at IS NOT NULL").Count(&archivedCount)
	db.Model(&models.Listing{}).Where("verified_at IS NULL").Count(&unverifiedCount)
	db.Model(&models.Listing{}).Where("featured = ?", true).Count(&featuredCount)

	stats["listings"] = map[string]interface{}{
		"active":     activeCount,
		"archived":   archivedCount,
		"unverified": unverifiedCount,
		"featured":   featuredCount,
		"total":      activeCount + archivedCount + unverifiedCount,
	}

	// Recent listing activity (last 24 hours)
	last24h := time.Now().AddDate(0, 0, -1)
	var recentlyCreated int64
	db.Model(&models.Listing{}).Where("created_at >= ?", last24h).Count(&recentlyCreated)
	stats["recent_activity"] = map[string]interface{}{
		"created_last_24h": recentlyCreated,
	}

	// Purge log statistics (last 7 days)
	last7days := time.Now().AddDate(0, 0, -7)
	var recentPurges int64
	db.Model(&models.PurgeLog{}).Where("deleted_at >= ?", last7days).Count(&recentPurges)
	stats["purges"] = map[string]interface{}{
		"last_7_days": recentPurges,
	}

	// Notification outbox statistics
	if h.worker != nil {
		stats["outbox"] = h.worker.GetStats()
	}

	c.JSON(http.StatusOK, stats)
}

// TriggerPurge manually triggers the purge run
func (h *AdminHandler) TriggerPurge(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Scheduler not available (MySQL/GORM required)",
		})
		return
	}

	if h.config != nil && h.config.DemoMode {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Purge is disabled in demo mode",
		})
		return
	}

	log.Println("Admin: Manual purge trigger requested")

	// Run in goroutine to avoid blocking
	go func() {
		if err := h.scheduler.RunNow(); err != nil {
			log.Printf("Admin: Manual purge failed: %v", err)
		} else {
			log.Println("Admin: Manual purge completed successfully")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Purge job started",
		"status":  "running",
	})
}

// GetPurgeStatus returns the result of the most recent purge run
func (h *AdminHandler) GetPurgeStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Scheduler not available (MySQL/GORM required)",
		})
		return
	}

	result := h.scheduler.LastResult()
	if result == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "idle",
			"message": "No purge run has completed yet",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "idle",
		"last_result": result,
	})
}

// GetPurgeLogs returns recent purge log entries
func (h *AdminHandler) GetPurgeLogs(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, _ := strconv.Atoi(limitStr)

	logs, err := h.gdb.GetRecentPurgeLogs(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// GetOutboxStats returns notification outbox statistics
func (h *AdminHandler) GetOutboxStats(c *gin.Context) {
	if h.worker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Outbox worker is not available (requires MySQL/GORM)",
		})
		return
	}

	c.JSON(http.StatusOK, h.worker.GetStats())
}

// GetOutboxEntries returns recent outbox entries, optionally filtered by status
func (h *AdminHandler) GetOutboxEntries(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, _ := strconv.Atoi(limitStr)

	q := h.gdb.DB().Order("created_at DESC").Limit(limit)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var entries []models.NotificationOutbox
	if err := q.Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetCountries returns all configured countries
func (h *AdminHandler) GetCountries(c *gin.Context) {
	countries, err := h.gdb.GetCountries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"countries": countries,
		"count":     len(countries),
	})
}

// SaveCountry creates or updates a country
func (h *AdminHandler) SaveCountry(c *gin.Context) {
	var req struct {
		Code     string `json:"code" binding:"required"`
		Name     string `json:"name" binding:"required"`
		TimeZone string `json:"time_zone"`
		Active   bool   `json:"active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.TimeZone == "" {
		req.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(req.TimeZone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown time zone: " + req.TimeZone})
		return
	}

	country := models.Country{
		Code:     req.Code,
		Name:     req.Name,
		TimeZone: req.TimeZone,
		Active:   req.Active,
	}
	if err := h.gdb.SaveCountry(&country); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, country)
}

// GetCountryStats returns listing counts per country
func (h *AdminHandler) GetCountryStats(c *gin.Context) {
	type CountryStat struct {
		CountryCode string `json:"country_code"`
		Count       int64  `json:"count"`
	}

	var stats []CountryStat
	err := h.gdb.DB().Model(&models.Listing{}).
		Select("country_code, count(*) as count").
		Where("archived_at IS NULL").
		Group("country_code").
		Order("count DESC").
		Scan(&stats).Error

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"country_stats": stats,
		"count":         len(stats),
	})
}

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"classifieds-portal/internal/config"
	"classifieds-portal/internal/models"
	"classifieds-portal/internal/ratelimit"

	"gorm.io/gorm"
)

// Channel delivers one outbox entry
type Channel interface {
	Name() string
	Send(entry *models.NotificationOutbox) error
}

// OutboxWorker polls the notification outbox and delivers pending
// entries over a channel, with exponential-backoff retries.
type OutboxWorker struct {
	db           *gorm.DB
	channel      Channel
	limiter      *ratelimit.Limiter
	stopChan     chan struct{}
	isRunning    bool
	pollInterval time.Duration
}

// NewOutboxWorker creates a worker delivering through the given channel
func NewOutboxWorker(db *gorm.DB, channel Channel, cfg config.NotifyConfig) *OutboxWorker {
	pollInterval := cfg.GetPollInterval()
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &OutboxWorker{
		db:           db,
		channel:      channel,
		limiter:      ratelimit.NewLimiter(0, cfg.SendsPerHour, 0, cfg.SendsPerHour > 0),
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// Start starts the worker loop
func (w *OutboxWorker) Start() {
	if w.isRunning {
		log.Println("OutboxWorker: Already running")
		return
	}

	w.isRunning = true
	log.Printf("OutboxWorker: Started (channel=%s, poll_interval=%v)", w.channel.Name(), w.pollInterval)

	go w.run()
}

// Stop stops the worker
func (w *OutboxWorker) Stop() {
	if !w.isRunning {
		return
	}

	log.Println("OutboxWorker: Stopping...")
	w.isRunning = false
	close(w.stopChan)
}

// run is the main worker loop
func (w *OutboxWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			log.Println("OutboxWorker: Stopped")
			return
		case <-ticker.C:
			w.ProcessNext()
		}
	}
}

// ProcessNext delivers the next due outbox entry, if any. Exported so
// tests and the admin API can drain the queue without the ticker.
func (w *OutboxWorker) ProcessNext() {
	var entry models.NotificationOutbox
	now := time.Now()

	// Pending entries first
	result := w.db.Where("status = ?", models.OutboxStatusPending).
		Order("created_at ASC").
		First(&entry)

	// Then failed ones whose retry time has passed
	if result.Error == gorm.ErrRecordNotFound {
		result = w.db.Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			models.OutboxStatusFailed, now).
			Order("created_at ASC").
			First(&entry)
	}

	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			log.Printf("OutboxWorker: Error fetching next entry: %v", result.Error)
		}
		return
	}

	if !w.limiter.Allow() {
		log.Printf("OutboxWorker: Hourly send limit reached, deferring id=%d", entry.ID)
		return
	}

	w.deliver(&entry)
}

// deliver attempts one delivery and updates the entry's state
func (w *OutboxWorker) deliver(entry *models.NotificationOutbox) {
	log.Printf("OutboxWorker: Sending id=%d kind=%s to=%s attempt=%d",
		entry.ID, entry.Kind, entry.Recipient, entry.Attempts+1)

	entry.Status = models.OutboxStatusSending
	entry.Attempts++
	if err := w.db.Save(entry).Error; err != nil {
		log.Printf("OutboxWorker: Failed to update status to sending: %v", err)
		return
	}

	if err := w.channel.Send(entry); err != nil {
		w.handleSendError(entry, err)
		return
	}

	entry.Status = models.OutboxStatusSent
	entry.LastError = ""
	sentAt := time.Now()
	entry.SentAt = &sentAt
	entry.NextRetryAt = nil

	if err := w.db.Save(entry).Error; err != nil {
		log.Printf("OutboxWorker: Failed to mark entry as sent: %v", err)
		return
	}

	log.Printf("OutboxWorker: Sent id=%d kind=%s", entry.ID, entry.Kind)
}

// handleSendError schedules a retry or gives up after the attempt limit
func (w *OutboxWorker) handleSendError(entry *models.NotificationOutbox, sendErr error) {
	log.Printf("OutboxWorker: Send failed for id=%d: %v", entry.ID, sendErr)

	entry.Status = models.OutboxStatusFailed
	entry.LastError = sendErr.Error()

	if entry.Attempts >= models.MaxSendAttempts {
		log.Printf("OutboxWorker: Max attempts exceeded for id=%d (%d attempts), giving up",
			entry.ID, entry.Attempts)
		entry.NextRetryAt = nil
	} else {
		delay := models.NextSendRetryDelay(entry.Attempts - 1)
		nextRetry := time.Now().Add(delay)
		entry.NextRetryAt = &nextRetry
		log.Printf("OutboxWorker: Scheduling retry for id=%d in %v (attempt %d/%d)",
			entry.ID, delay, entry.Attempts, models.MaxSendAttempts)
	}

	if err := w.db.Save(entry).Error; err != nil {
		log.Printf("OutboxWorker: Failed to save retry state: %v", err)
	}
}

// GetStats returns current outbox statistics
func (w *OutboxWorker) GetStats() map[string]interface{} {
	var pending, sending, sent, failed int64

	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusPending).Count(&pending)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusSending).Count(&sending)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusSent).Count(&sent)
	w.db.Model(&models.NotificationOutbox{}).Where("status = ?", models.OutboxStatusFailed).Count(&failed)

	return map[string]interface{}{
		"pending":    pending,
		"sending":    sending,
		"sent":       sent,
		"failed":     failed,
		"is_running": w.isRunning,
		"limiter":    w.limiter.GetStats(),
	}
}

// WebhookChannel posts notifications to an HTTP mail/SMS gateway
type WebhookChannel struct {
	gatewayURL string
	apiKey     string
	from       string
	client     *http.Client
	breaker    *breaker
}

// NewWebhookChannel creates a gateway-backed channel
func NewWebhookChannel(cfg config.NotifyConfig) *WebhookChannel {
	timeout := cfg.GetTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.GatewayAPIKey,
		from:       cfg.FromAddress,
		client:     &http.Client{Timeout: timeout},
		breaker:    newBreaker(3, 10*time.Minute),
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

// Send posts one notification to the gateway
func (c *WebhookChannel) Send(entry *models.NotificationOutbox) error {
	if !c.breaker.CanProceed() {
		return fmt.Errorf("gateway circuit breaker open")
	}

	payload, err := json.Marshal(map[string]string{
		"channel":   entry.Channel,
		"from":      c.from,
		"to":        entry.Recipient,
		"subject":   entry.Subject,
		"body":      entry.Body,
		"kind":      entry.Kind,
		"reference": entry.ListingID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.breaker.RecordFailure()
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	c.breaker.RecordSuccess()
	return nil
}

// LogChannel prints notifications instead of delivering them. Used when
// no gateway is configured (and in demo environments).
type LogChannel struct{}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Send(entry *models.NotificationOutbox) error {
	log.Printf("Notify: [%s] to=%s subject=%q", entry.Kind, entry.Recipient, entry.Subject)
	return nil
}

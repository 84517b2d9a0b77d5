package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"

	"roadside-assist-server/models"
)

// LivePusher delivers a notification to a connected client, typically the
// WebSocket hub. A nil pusher simply skips live delivery.
type LivePusher interface {
	NotifyUser(userID uint, notification *models.Notification)
}

// NotificationDispatcher writes inbox entries and fans them out to the live
// channel and an optional SMS gateway webhook. Delivery is best-effort by
// contract: a failed fan-out never blocks or rolls back the state change
// that produced the notification.
type NotificationDispatcher struct {
	db         *gorm.DB
	pusher     LivePusher
	webhookURL string
	client     *http.Client
}

// NewNotificationDispatcher creates a new dispatcher
func NewNotificationDispatcher(db *gorm.DB, pusher LivePusher, webhookURL string) *NotificationDispatcher {
	return &NotificationDispatcher{
		db:         db,
		pusher:     pusher,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Dispatch creates an inbox entry for the recipient and fans it out. Errors
// are logged and swallowed here; callers have already committed the state
// change this notification announces.
func (d *NotificationDispatcher) Dispatch(userID uint, ntype models.NotificationType, title, body string, jobID *uint) {
	notification := models.Notification{
		UserID: userID,
		Type:   ntype,
		Title:  title,
		Body:   body,
		JobID:  jobID,
	}

	if err := d.db.Create(&notification).Error; err != nil {
		log.Printf("❌ Failed to store notification for user %d: %v", userID, err)
		return
	}

	if d.pusher != nil {
		d.pusher.NotifyUser(userID, &notification)
	}

	if d.webhookURL != "" {
		go d.forwardToWebhook(&notification)
	}
}

// forwardToWebhook posts the notification to the configured SMS gateway with
// bounded exponential backoff. Only transient failures are retried.
func (d *NotificationDispatcher) forwardToWebhook(notification *models.Notification) {
	var user models.User
	if err := d.db.Select("phone_number").First(&user, notification.UserID).Error; err != nil {
		log.Printf("⚠️ SMS fan-out skipped, no phone for user %d: %v", notification.UserID, err)
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"phone_number": user.PhoneNumber,
		"type":         notification.Type,
		"title":        notification.Title,
		"body":         notification.Body,
		"job_id":       notification.JobID,
	})
	if err != nil {
		log.Printf("⚠️ SMS fan-out marshal failed: %v", err)
		return
	}

	operation := func() error {
		resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// Client errors are permanent, do not retry.
			return backoff.Permanent(fmt.Errorf("sms gateway rejected request with status %d", resp.StatusCode))
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, policy); err != nil {
		log.Printf("⚠️ SMS fan-out for notification %d gave up: %v", notification.ID, err)
	}
}

// List returns the recipient's inbox, newest first
func (d *NotificationDispatcher) List(userID uint, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []models.Notification
	err := d.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error
	return notifications, err
}

// UnreadCount returns the number of unread inbox entries
func (d *NotificationDispatcher) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := d.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips the read flag on one of the recipient's notifications
func (d *NotificationDispatcher) MarkRead(userID, notificationID uint) error {
	res := d.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips the read flag on the recipient's whole inbox
func (d *NotificationDispatcher) MarkAllRead(userID uint) error {
	return d.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

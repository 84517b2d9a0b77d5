package routes

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"roadside-assist-server/database"
	"roadside-assist-server/models"
	"roadside-assist-server/services"
)

// RegisterNotificationRoutes registers inbox and push token routes
func RegisterNotificationRoutes(router *gin.RouterGroup, dispatcher *services.NotificationDispatcher) {
	router.GET("", func(c *gin.Context) { getUserNotifications(c, dispatcher) })
	router.GET("/unread-count", func(c *gin.Context) { getUnreadCount(c, dispatcher) })
	router.POST("/mark-read/:id", func(c *gin.Context) { markNotificationAsRead(c, dispatcher) })
	router.POST("/mark-all-read", func(c *gin.Context) { markAllNotificationsAsRead(c, dispatcher) })
	router.POST("/register-token", registerPushToken)
	router.GET("/has-token", hasPushToken)
}

func getUserNotifications(c *gin.Context, dispatcher *services.NotificationDispatcher) {
	userID := c.GetUint("user_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, err := dispatcher.List(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total_count":   len(notifications),
	})
}

func getUnreadCount(c *gin.Context, dispatcher *services.NotificationDispatcher) {
	userID := c.GetUint("user_id")

	count, err := dispatcher.UnreadCount(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func markNotificationAsRead(c *gin.Context, dispatcher *services.NotificationDispatcher) {
	userID := c.GetUint("user_id")
	notificationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := dispatcher.MarkRead(userID, notificationID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func markAllNotificationsAsRead(c *gin.Context, dispatcher *services.NotificationDispatcher) {
	userID := c.GetUint("user_id")

	if err := dispatcher.MarkAllRead(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// registerPushToken registers a push token for a user
func registerPushToken(c *gin.Context) {
	userID := c.GetUint("user_id")

	var request struct {
		PushToken string `json:"push_token" binding:"required"`
		Platform  string `json:"platform" binding:"required,oneof=ios android"`
		DeviceID  string `json:"device_id"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existingToken models.PushToken
	err := database.DB.Where("token = ?", request.PushToken).First(&existingToken).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		token := models.PushToken{
			UserID:   userID,
			Token:    request.PushToken,
			Platform: request.Platform,
			DeviceID: request.DeviceID,
			Active:   true,
		}

		if err := database.DB.Create(&token).Error; err != nil {
			log.Printf("❌ Error creating push token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register push token"})
			return
		}
	} else if err != nil {
		log.Printf("❌ Error checking existing token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	} else {
		existingToken.UserID = userID
		existingToken.Platform = request.Platform
		existingToken.DeviceID = request.DeviceID
		existingToken.Active = true
		existingToken.UpdatedAt = time.Now()

		if err := database.DB.Save(&existingToken).Error; err != nil {
			log.Printf("❌ Error updating push token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update push token"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Push token registered successfully",
	})
}

// hasPushToken checks if the authenticated user has at least one active push token
func hasPushToken(c *gin.Context) {
	userID := c.GetUint("user_id")

	var count int64
	if err := database.DB.Model(&models.PushToken{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"has_token": count > 0})
}

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
	"roadside-assist-server/middleware"
	"roadside-assist-server/models"
	"roadside-assist-server/websocket"
)

// RegisterChatRoutes registers job-scoped chat routes
func RegisterChatRoutes(router *gin.RouterGroup, hub *websocket.Hub) {
	// List the caller's chat rooms
	router.GET("/rooms", listChatRooms)

	// Get or create the room for an assigned job
	router.GET("/jobs/:id/room", func(c *gin.Context) { getJobChatRoom(c, hub) })

	// Messages in a room
	router.GET("/rooms/:id/messages", getChatMessages)
	router.POST("/rooms/:id/messages", func(c *gin.Context) { sendChatMessage(c, hub) })

	// Mark messages in a room as read
	router.POST("/rooms/:id/read", markMessagesRead)
}

func listChatRooms(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	query := database.DB.Preload("Job").Preload("Provider").Where("is_active = ?", true)
	if user.ProviderID != nil {
		query = query.Where("customer_id = ? OR provider_id = ?", user.ID, *user.ProviderID)
	} else {
		query = query.Where("customer_id = ?", user.ID)
	}

	var rooms []models.ChatRoom
	if err := query.Order("updated_at DESC").Find(&rooms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms":       rooms,
		"total_count": len(rooms),
	})
}

// getJobChatRoom returns the conversation for an assigned job, creating it on
// first access. Only the job's customer and the assigned provider's users may
// enter.
func getJobChatRoom(c *gin.Context, hub *websocket.Hub) {
	user := middleware.CurrentUser(c)
	jobID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var job models.Job
	if err := database.DB.First(&job, jobID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	if job.CustomerID == nil || job.ProviderID == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "No conversation yet",
			"message": "Chat opens once the job has an assigned provider",
		})
		return
	}

	isCustomer := user != nil && *job.CustomerID == user.ID
	isProviderUser := user != nil && user.ProviderID != nil && *user.ProviderID == *job.ProviderID
	if !isCustomer && !isProviderUser && (user == nil || !user.IsStaff()) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var room models.ChatRoom
	err := database.DB.Where("job_id = ?", jobID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		room = models.ChatRoom{
			JobID:      jobID,
			CustomerID: *job.CustomerID,
			ProviderID: *job.ProviderID,
			IsActive:   true,
		}
		if err := database.DB.Create(&room).Error; err != nil {
			log.Printf("❌ Error creating chat room for job %d: %v", jobID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat room"})
			return
		}
		log.Printf("💬 Chat room %d created for job %d", room.ID, jobID)
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	hub.AddUserToChatRoom(user.ID, room.ID)

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func getChatMessages(c *gin.Context) {
	user := middleware.CurrentUser(c)
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}

	room, authorized := loadRoomForUser(c, roomID, user)
	if !authorized {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var messages []models.ChatMessage
	if err := database.DB.Where("chat_room_id = ?", room.ID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    messages,
		"total_count": len(messages),
	})
}

func sendChatMessage(c *gin.Context, hub *websocket.Hub) {
	user := middleware.CurrentUser(c)
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}

	room, authorized := loadRoomForUser(c, roomID, user)
	if !authorized {
		return
	}

	var req models.ChatMessageCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	senderType := "customer"
	if user.ProviderID != nil && *user.ProviderID == room.ProviderID {
		senderType = "provider"
	}

	message := models.ChatMessage{
		ChatRoomID: room.ID,
		SenderID:   user.ID,
		SenderType: senderType,
		Content:    middleware.SanitizeInput(req.Content),
	}

	now := time.Now()
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatRoom{}).Where("id = ?", room.ID).
			Updates(map[string]interface{}{
				"last_message_at":   now,
				"last_message_text": message.Content,
			}).Error
	})
	if err != nil {
		log.Printf("❌ Error saving chat message: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	hub.SendToChatRoom(room.ID, &websocket.Message{
		Type:       "chat",
		ChatRoomID: room.ID,
		SenderID:   user.ID,
		SenderType: senderType,
		Content:    message.Content,
		Timestamp:  message.CreatedAt,
	}, user.ID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent",
		"data":    message,
	})
}

func markMessagesRead(c *gin.Context) {
	user := middleware.CurrentUser(c)
	roomID, ok := paramID(c, "id")
	if !ok {
		return
	}

	room, authorized := loadRoomForUser(c, roomID, user)
	if !authorized {
		return
	}

	now := time.Now()
	if err := database.DB.Model(&models.ChatMessage{}).
		Where("chat_room_id = ? AND sender_id <> ? AND is_read = ?", room.ID, user.ID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// loadRoomForUser fetches a room and answers 403/404 itself when the caller
// is not a participant
func loadRoomForUser(c *gin.Context, roomID uint, user *models.User) (*models.ChatRoom, bool) {
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return nil, false
	}

	var room models.ChatRoom
	if err := database.DB.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat room not found"})
		return nil, false
	}

	isCustomer := room.CustomerID == user.ID
	isProviderUser := user.ProviderID != nil && *user.ProviderID == room.ProviderID
	if !isCustomer && !isProviderUser && !user.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}

	return &room, true
}

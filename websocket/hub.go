package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"roadside-assist-server/models"
)

// Hub manages all WebSocket connections
type Hub struct {
	// Registered clients, keyed by user ID
	Clients map[uint]*Client

	// Chat room members, room ID -> set of user IDs
	ChatRoomMembers map[uint]map[uint]bool

	// Broadcast channel for messages to all clients
	Broadcast chan *Message

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// Message handlers
	MessageHandlers map[string]MessageHandler

	mu sync.RWMutex
}

// Message represents an event pushed over a WebSocket connection
type Message struct {
	Type       string      `json:"type"`
	ChatRoomID uint        `json:"chat_room_id,omitempty"`
	SenderID   uint        `json:"sender_id,omitempty"`
	SenderType string      `json:"sender_type,omitempty"`
	Content    string      `json:"content,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
}

// MessageHandler handles different types of messages
type MessageHandler func(*Client, *Message) error

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	hub := &Hub{
		Clients:         make(map[uint]*Client),
		ChatRoomMembers: make(map[uint]map[uint]bool),
		Broadcast:       make(chan *Message),
		Register:        make(chan *Client),
		Unregister:      make(chan *Client),
		MessageHandlers: make(map[string]MessageHandler),
	}

	hub.registerDefaultHandlers()

	return hub
}

// registerDefaultHandlers registers default message handlers
func (h *Hub) registerDefaultHandlers() {
	h.MessageHandlers["chat"] = h.handleChatMessage
	h.MessageHandlers["typing"] = h.handleTypingIndicator
	h.MessageHandlers["read"] = h.handleReadReceipt
	h.MessageHandlers["ping"] = h.handlePing
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.Clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔌 Client registered: ID=%d, Type=%s", client.ID, client.UserType)

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.Clients[client.ID]; ok {
				for chatRoomID := range h.ChatRoomMembers {
					delete(h.ChatRoomMembers[chatRoomID], client.ID)
				}
				delete(h.Clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.Printf("🔌 Client unregistered: ID=%d, Type=%s", client.ID, client.UserType)

		case message := <-h.Broadcast:
			h.broadcastMessage(message)
		}
	}
}

// broadcastMessage sends a message to all connected clients
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	for _, client := range h.Clients {
		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ User %d's send buffer is full, dropping broadcast", client.ID)
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID uint, message *Message) {
	h.mu.RLock()
	client, exists := h.Clients[userID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ User %d's send buffer is full", userID)
	}
}

// NotifyUser pushes an inbox notification to the recipient's live
// connection. Implements the dispatcher's LivePusher.
func (h *Hub) NotifyUser(userID uint, notification *models.Notification) {
	h.SendToUser(userID, &Message{
		Type:      "notification",
		Data:      notification,
		Timestamp: time.Now(),
	})
}

// BroadcastJob announces a newly opened job to every connected provider
// user. Implements the job service's LiveBroadcaster.
func (h *Hub) BroadcastJob(job *models.Job) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(&Message{
		Type:      "job_open",
		Data:      job,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("❌ Error marshaling job broadcast: %v", err)
		return
	}

	for userID, client := range h.Clients {
		if client.UserType != "provider" {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ Provider %d's send buffer is full, dropping job broadcast", userID)
		}
	}
}

// AddUserToChatRoom adds a user to a specific chat room
func (h *Hub) AddUserToChatRoom(userID uint, chatRoomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ChatRoomMembers[chatRoomID] == nil {
		h.ChatRoomMembers[chatRoomID] = make(map[uint]bool)
	}
	h.ChatRoomMembers[chatRoomID][userID] = true
}

// RemoveUserFromChatRoom removes a user from a specific chat room
func (h *Hub) RemoveUserFromChatRoom(userID uint, chatRoomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ChatRoomMembers[chatRoomID] != nil {
		delete(h.ChatRoomMembers[chatRoomID], userID)
	}
}

// SendToChatRoom sends a message to all users in a specific chat room
func (h *Hub) SendToChatRoom(chatRoomID uint, message *Message, excludeUserID uint) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Error marshaling message: %v", err)
		return
	}

	roomMembers := h.ChatRoomMembers[chatRoomID]
	for userID := range roomMembers {
		if userID == excludeUserID {
			continue // Skip the sender
		}

		client, exists := h.Clients[userID]
		if !exists {
			continue
		}

		select {
		case client.Send <- data:
		default:
			log.Printf("⚠️ User %d's send buffer is full", userID)
		}
	}
}

// IsUserConnected checks if a user is currently connected
func (h *Hub) IsUserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.Clients[userID]
	return exists
}

// handleChatMessage relays an incoming chat message to the rest of the room
func (h *Hub) handleChatMessage(client *Client, message *Message) error {
	h.SendToChatRoom(message.ChatRoomID, message, client.ID)
	return nil
}

// handleTypingIndicator handles typing indicators
func (h *Hub) handleTypingIndicator(client *Client, message *Message) error {
	h.SendToChatRoom(message.ChatRoomID, message, client.ID)
	return nil
}

// handleReadReceipt handles read receipts
func (h *Hub) handleReadReceipt(client *Client, message *Message) error {
	h.SendToChatRoom(message.ChatRoomID, message, client.ID)
	return nil
}

// handlePing handles ping messages for connection health
func (h *Hub) handlePing(client *Client, message *Message) error {
	pongMessage := &Message{
		Type:      "pong",
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(pongMessage)
	if err != nil {
		return err
	}

	select {
	case client.Send <- data:
	default:
		log.Printf("⚠️ Could not send pong to user %d", client.ID)
	}

	return nil
}

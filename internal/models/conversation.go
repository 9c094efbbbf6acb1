package models

import (
	"fmt"
	"time"
)

// MessageType identifies who produced a message
type MessageType string

const (
	MessageTypeUser  MessageType = "user"
	MessageTypeBot   MessageType = "bot"
	MessageTypeStaff MessageType = "staff"
)

// SenderType records the provenance class of a message author
type SenderType string

const (
	SenderAnonymous  SenderType = "anonymous"
	SenderRegistered SenderType = "registered"
	SenderStaff      SenderType = "staff"
)

// Conversation is an ordered thread of messages owned by one session
type Conversation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       string    `gorm:"size:100;uniqueIndex;not null" json:"session_id"`
	UserID          *uint     `gorm:"index" json:"user_id,omitempty"`
	UserDisplayName string    `gorm:"size:100" json:"user_display_name,omitempty"`
	IsActive        bool      `gorm:"not null" json:"is_active"`
	StartedAt       time.Time `json:"started_at"`
	LastActivity    time.Time `gorm:"index" json:"last_activity"`
	Messages        []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// MainSessionID is the session key of a user's single main conversation.
func MainSessionID(userID uint) string {
	return fmt.Sprintf("user_%d_main_session", userID)
}

// Message is one entry in a conversation. Only the escalation and feedback
// fields change after creation.
type Message struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ConversationID  uint        `gorm:"index;not null" json:"conversation_id"`
	Type            MessageType `gorm:"column:message_type;size:20;not null" json:"message_type"`
	Content         string      `gorm:"type:text;not null" json:"content"`
	FAQID           *uint       `gorm:"index" json:"faq_id,omitempty"`
	StaffID         *uint       `json:"staff_id,omitempty"`
	IsEscalated     bool        `gorm:"not null" json:"is_escalated"`
	SenderUserID    *uint       `gorm:"index" json:"sender_user_id,omitempty"`
	SenderName      string      `gorm:"size:100" json:"sender_name,omitempty"`
	SenderType      SenderType  `gorm:"size:20" json:"sender_type,omitempty"`
	FeedbackRating  *int        `json:"feedback_rating,omitempty"`
	FeedbackComment string      `gorm:"type:text" json:"feedback_comment,omitempty"`
	Timestamp       time.Time   `gorm:"index" json:"timestamp"`
}

// SetSenderFromUser stamps the message with the author's provenance.
func (m *Message) SetSenderFromUser(u *User) {
	if u == nil {
		m.SenderType = SenderAnonymous
		return
	}
	id := u.ID
	m.SenderUserID = &id
	m.SenderName = u.Name()
	if u.IsAnonymous {
		m.SenderType = SenderAnonymous
	} else {
		m.SenderType = SenderRegistered
	}
}

// SendMessageRequest is the body of a chat submission
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// AdminMessageRequest is the body of a staff message sent to a user
type AdminMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// FeedbackRequest rates a bot or staff message
type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// ChatHistory is a user's messages across all their conversations.
type ChatHistory struct {
	UserID         uint      `json:"user_id"`
	ConversationID uint      `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

package models

import (
	"time"
)

// EscalationStatus values are persisted verbatim.
type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "pending"
	EscalationAnswered EscalationStatus = "answered"
	EscalationClosed   EscalationStatus = "closed"
)

// Valid reports whether s is one of the persisted status literals.
func (s EscalationStatus) Valid() bool {
	switch s {
	case EscalationPending, EscalationAnswered, EscalationClosed:
		return true
	}
	return false
}

// Escalation hands an unmatched user message over to staff
type Escalation struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	MessageID     uint             `gorm:"index;not null" json:"message_id"`
	Status        EscalationStatus `gorm:"size:20;not null;index" json:"status"`
	StaffResponse string           `gorm:"type:text" json:"staff_response,omitempty"`
	StaffName     string           `gorm:"size:100" json:"staff_name,omitempty"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
	AnsweredAt    *time.Time       `json:"answered_at,omitempty"`
}

// EscalationDetail pairs an escalation with the question that raised it.
type EscalationDetail struct {
	Escalation
	Question       string `json:"question"`
	ConversationID uint   `json:"conversation_id"`
	UserID         *uint  `json:"user_id,omitempty"`
	SenderName     string `json:"sender_name,omitempty"`
}

// RespondRequest is the body of a staff response
type RespondRequest struct {
	Response  string `json:"response" binding:"required"`
	StaffName string `json:"staff_name"`
}

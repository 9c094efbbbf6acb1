// Package repository persists helpdesk data. Every repository is reachable
// from a Store, and Store.Transaction scopes a group of writes to one unit.
package repository

import (
	"context"
	"errors"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/search"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// FAQRepository stores FAQs and serves them as a search corpus
type FAQRepository interface {
	search.Corpus
	Create(ctx context.Context, faq *models.FAQ) error
	Save(ctx context.Context, faq *models.FAQ) error
	GetByID(ctx context.Context, id uint) (*models.FAQ, error)
	// List returns FAQs newest first.
	List(ctx context.Context, includeInactive bool) ([]models.FAQ, error)
	Delete(ctx context.Context, id uint) error
	IncrementViewCount(ctx context.Context, id uint) error
	// Popular returns active FAQs by view count, at most limit.
	Popular(ctx context.Context, limit int) ([]models.FAQ, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
}

// ConversationRepository stores conversations
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	Touch(ctx context.Context, id uint, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

// MessageRepository stores conversation messages
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	MarkEscalated(ctx context.Context, id uint) error
	SetFeedback(ctx context.Context, id uint, rating int, comment string) error
	// ListByUser returns the messages of every conversation owned by userID
	// in chronological order.
	ListByUser(ctx context.Context, userID uint) ([]models.Message, error)
	// CountUserMessages counts user messages since the given time, and how
	// many of them were escalated.
	CountUserMessages(ctx context.Context, since time.Time) (total int64, escalated int64, err error)
}

// EscalationRepository stores escalations
type EscalationRepository interface {
	Create(ctx context.Context, esc *models.Escalation) error
	GetByID(ctx context.Context, id uint) (*models.Escalation, error)
	Save(ctx context.Context, esc *models.Escalation) error
	// ListByStatus returns escalations oldest first.
	ListByStatus(ctx context.Context, status models.EscalationStatus) ([]models.Escalation, error)
	CountByStatus(ctx context.Context, status models.EscalationStatus) (int64, error)
}

// UserRepository stores users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByLoginID(ctx context.Context, loginID string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

// StaffRepository stores staff profiles
type StaffRepository interface {
	Create(ctx context.Context, staff *models.StaffMember) error
	GetByUserID(ctx context.Context, userID uint) (*models.StaffMember, error)
	Save(ctx context.Context, staff *models.StaffMember) error
	List(ctx context.Context) ([]models.StaffMember, error)
}

// Store gives access to every repository
type Store interface {
	FAQs() FAQRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
	Escalations() EscalationRepository
	Users() UserRepository
	Staff() StaffRepository

	// Transaction runs fn against a store whose writes commit together when
	// fn returns nil and are discarded otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

// Models lists every persisted type, for migrations.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.StaffMember{},
		&models.FAQ{},
		&models.Conversation{},
		&models.Message{},
		&models.Escalation{},
	}
}

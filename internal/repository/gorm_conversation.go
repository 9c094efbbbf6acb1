package repository

import (
	"context"
	"time"

	"faqdesk/backend/internal/models"

	"gorm.io/gorm"
)

type gormConversationRepository struct {
	db *gorm.DB
}

func (r *gormConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	return translate(r.db.WithContext(ctx).Omit("Messages").Create(conv).Error)
}

func (r *gormConversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *gormConversationRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&conv).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *gormConversationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at ASC").Order("id ASC").
		Find(&convs).Error
	return convs, err
}

func (r *gormConversationRepository) Touch(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("last_activity", at)
	return affected(res)
}

func (r *gormConversationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).Count(&n).Error
	return n, err
}

type gormMessageRepository struct {
	db *gorm.DB
}

func (r *gormMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	return translate(r.db.WithContext(ctx).Create(msg).Error)
}

func (r *gormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func (r *gormMessageRepository) MarkEscalated(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Update("is_escalated", true)
	return affected(res)
}

func (r *gormMessageRepository) SetFeedback(ctx context.Context, id uint, rating int, comment string) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"feedback_rating":  rating,
			"feedback_comment": comment,
		})
	return affected(res)
}

func (r *gormMessageRepository) ListByUser(ctx context.Context, userID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userID).
		Order("messages.timestamp ASC").Order("messages.id ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *gormMessageRepository) CountUserMessages(ctx context.Context, since time.Time) (int64, int64, error) {
	var total, escalated int64
	base := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("message_type = ? AND timestamp >= ?", models.MessageTypeUser, since)

	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_escalated = ?", true).Count(&escalated).Error; err != nil {
		return 0, 0, err
	}
	return total, escalated, nil
}

type gormEscalationRepository struct {
	db *gorm.DB
}

func (r *gormEscalationRepository) Create(ctx context.Context, esc *models.Escalation) error {
	return translate(r.db.WithContext(ctx).Create(esc).Error)
}

func (r *gormEscalationRepository) GetByID(ctx context.Context, id uint) (*models.Escalation, error) {
	var esc models.Escalation
	if err := r.db.WithContext(ctx).First(&esc, id).Error; err != nil {
		return nil, translate(err)
	}
	return &esc, nil
}

func (r *gormEscalationRepository) Save(ctx context.Context, esc *models.Escalation) error {
	return translate(r.db.WithContext(ctx).Save(esc).Error)
}

func (r *gormEscalationRepository) ListByStatus(ctx context.Context, status models.EscalationStatus) ([]models.Escalation, error) {
	var escs []models.Escalation
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").Order("id ASC").
		Find(&escs).Error
	return escs, err
}

func (r *gormEscalationRepository) CountByStatus(ctx context.Context, status models.EscalationStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Escalation{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

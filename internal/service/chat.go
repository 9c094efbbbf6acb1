package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
)

// GetMessages returns every message of userID's conversations in
// chronological order. Zero means the caller.
func (s *HelpdeskService) GetMessages(ctx context.Context, caller Caller, userID uint) (*models.ChatHistory, error) {
	if userID == 0 {
		userID = caller.UserID
	}
	if !caller.CanAccessUser(userID) {
		return nil, ErrForbidden
	}

	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	msgs, err := s.store.Messages().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	history := &models.ChatHistory{UserID: userID, Messages: msgs}
	conv, err := s.store.Conversations().GetBySessionID(ctx, models.MainSessionID(userID))
	switch {
	case err == nil:
		history.ConversationID = conv.ID
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return history, nil
}

// AdminSend posts a staff message into userID's main conversation.
func (s *HelpdeskService) AdminSend(ctx context.Context, caller Caller, userID uint, text string) (*models.Message, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	var msg *models.Message
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		now := s.now()
		user, err := tx.Users().GetByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		conv, err := s.mainConversation(ctx, tx, user, now)
		if err != nil {
			return err
		}

		msg, err = s.postStaffMessage(ctx, tx, caller, conv.ID, content, caller.DisplayName, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(&userID, EventStaffMessage, msg)
	return msg, nil
}

// Feedback rates a bot or staff message in one of the caller's conversations.
func (s *HelpdeskService) Feedback(ctx context.Context, caller Caller, messageID uint, rating int, comment string) (*models.Message, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var rated *models.Message
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetByID(ctx, messageID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return fmt.Errorf("load message: %w", err)
		}
		if msg.Type == models.MessageTypeUser {
			return ErrNotRateable
		}

		conv, err := tx.Conversations().GetByID(ctx, msg.ConversationID)
		if err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}
		if conv.UserID == nil || !caller.CanAccessUser(*conv.UserID) {
			return ErrForbidden
		}

		comment = strings.TrimSpace(comment)
		if err := tx.Messages().SetFeedback(ctx, messageID, rating, comment); err != nil {
			return fmt.Errorf("save feedback: %w", err)
		}
		msg.FeedbackRating = &rating
		msg.FeedbackComment = comment
		rated = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rated, nil
}

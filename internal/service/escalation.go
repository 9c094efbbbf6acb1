package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
)

// PendingSummary describes the escalation backlog.
type PendingSummary struct {
	Pending    int       `json:"pending"`
	Stale      int       `json:"stale"`
	OldestAt   time.Time `json:"oldest_at,omitempty"`
	StaleAfter string    `json:"stale_after"`
}

func (s *HelpdeskService) loadEscalation(ctx context.Context, tx repository.Store, id uint) (*models.Escalation, *models.Message, error) {
	esc, err := tx.Escalations().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrEscalationNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load escalation: %w", err)
	}

	original, err := tx.Messages().GetByID(ctx, esc.MessageID)
	if err != nil {
		return nil, nil, fmt.Errorf("load escalated message %d: %w", esc.MessageID, err)
	}
	return esc, original, nil
}

func describeEscalation(ctx context.Context, store repository.Store, esc *models.Escalation, original *models.Message) (*models.EscalationDetail, error) {
	detail := &models.EscalationDetail{
		Escalation:     *esc,
		Question:       original.Content,
		ConversationID: original.ConversationID,
		SenderName:     original.SenderName,
	}
	conv, err := store.Conversations().GetByID(ctx, original.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %d: %w", original.ConversationID, err)
	}
	detail.UserID = conv.UserID
	return detail, nil
}

// GetEscalation returns one escalation with its question.
func (s *HelpdeskService) GetEscalation(ctx context.Context, id uint) (*models.EscalationDetail, error) {
	esc, original, err := s.loadEscalation(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	return describeEscalation(ctx, s.store, esc, original)
}

// ListPending returns pending escalations, oldest first.
func (s *HelpdeskService) ListPending(ctx context.Context) ([]models.EscalationDetail, error) {
	return s.ListByStatus(ctx, models.EscalationPending)
}

// ListByStatus returns escalations in status, oldest first.
func (s *HelpdeskService) ListByStatus(ctx context.Context, status models.EscalationStatus) ([]models.EscalationDetail, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	escs, err := s.store.Escalations().ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	details := make([]models.EscalationDetail, 0, len(escs))
	for i := range escs {
		original, err := s.store.Messages().GetByID(ctx, escs[i].MessageID)
		if err != nil {
			return nil, fmt.Errorf("load escalated message %d: %w", escs[i].MessageID, err)
		}
		detail, err := describeEscalation(ctx, s.store, &escs[i], original)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// PendingCount returns the number of pending escalations.
func (s *HelpdeskService) PendingCount(ctx context.Context) (int64, error) {
	return s.store.Escalations().CountByStatus(ctx, models.EscalationPending)
}

// Backlog summarises pending escalations, counting those waiting longer
// than staleAfter.
func (s *HelpdeskService) Backlog(ctx context.Context, staleAfter time.Duration) (*PendingSummary, error) {
	escs, err := s.store.Escalations().ListByStatus(ctx, models.EscalationPending)
	if err != nil {
		return nil, fmt.Errorf("list pending escalations: %w", err)
	}

	summary := &PendingSummary{Pending: len(escs), StaleAfter: staleAfter.String()}
	cutoff := s.now().Add(-staleAfter)
	for _, esc := range escs {
		if esc.CreatedAt.Before(cutoff) {
			summary.Stale++
		}
	}
	if len(escs) > 0 {
		summary.OldestAt = escs[0].CreatedAt
	}
	s.metrics.PendingEscalations(ctx, int64(len(escs)))
	return summary, nil
}

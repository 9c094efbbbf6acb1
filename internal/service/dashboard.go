package service

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Dashboard is the admin overview.
type Dashboard struct {
	PendingEscalations int64   `json:"pending_escalations"`
	TotalFAQs          int64   `json:"total_faqs"`
	ActiveFAQs         int64   `json:"active_faqs"`
	TotalUsers         int64   `json:"total_users"`
	TotalConversations int64   `json:"total_conversations"`
	TodayQuestions     int64   `json:"today_questions"`
	EscalationRate     float64 `json:"escalation_rate"`
}

// Dashboard collects the admin overview counters. EscalationRate is the
// percentage of all user questions that were escalated.
func (s *HelpdeskService) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	var err error

	if d.PendingEscalations, err = s.PendingCount(ctx); err != nil {
		return nil, fmt.Errorf("count pending escalations: %w", err)
	}
	if d.TotalFAQs, err = s.store.FAQs().Count(ctx, false); err != nil {
		return nil, fmt.Errorf("count faqs: %w", err)
	}
	if d.ActiveFAQs, err = s.store.FAQs().Count(ctx, true); err != nil {
		return nil, fmt.Errorf("count active faqs: %w", err)
	}
	if d.TotalUsers, err = s.store.Users().Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if d.TotalConversations, err = s.store.Conversations().Count(ctx); err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	now := s.now()
	y, m, day := now.Date()
	if d.TodayQuestions, _, err = s.store.Messages().CountUserMessages(ctx, time.Date(y, m, day, 0, 0, 0, 0, now.Location())); err != nil {
		return nil, fmt.Errorf("count today's questions: %w", err)
	}

	total, escalated, err := s.store.Messages().CountUserMessages(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if total > 0 {
		d.EscalationRate = math.Round(float64(escalated)/float64(total)*1000) / 10
	}
	return d, nil
}

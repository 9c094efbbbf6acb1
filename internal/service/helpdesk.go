package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
	"faqdesk/backend/internal/search"
	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ResponseType tells the client how a submitted question was handled.
type ResponseType string

const (
	ResponseFAQAnswer  ResponseType = "faq_answer"
	ResponseEscalation ResponseType = "escalation"
)

// Event types pushed to connected clients.
const (
	EventStaffMessage = "staff_message"
)

// SubmitResponse is the reply to a submitted question
type SubmitResponse struct {
	Type           ResponseType `json:"type"`
	Message        string       `json:"message"`
	FAQTitle       string       `json:"faq_title,omitempty"`
	FAQID          *uint        `json:"faq_id,omitempty"`
	EscalationID   *uint        `json:"escalation_id,omitempty"`
	ConversationID uint         `json:"conversation_id"`
	MessageID      uint         `json:"message_id"`
	Timestamp      time.Time    `json:"timestamp"`
}

// Notifier delivers live events to a user's connected clients.
type Notifier interface {
	NotifyUser(userID uint, eventType string, payload any)
}

// HelpdeskOptions configures a HelpdeskService
type HelpdeskOptions struct {
	// EscalationMessage acknowledges questions handed to staff.
	EscalationMessage string
	Logger            *logger.Logger
	Metrics           *observability.Metrics
	Now               func() time.Time
}

// HelpdeskService runs the question pipeline: FAQ matching, escalation to
// staff, and staff replies.
type HelpdeskService struct {
	store      repository.Store
	ackMessage string
	log        *logger.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu       sync.RWMutex
	notifier Notifier
}

// NewHelpdeskService creates a helpdesk service over store
func NewHelpdeskService(store repository.Store, opts HelpdeskOptions) *HelpdeskService {
	if opts.EscalationMessage == "" {
		opts.EscalationMessage = config.DefaultEscalationMessage
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HelpdeskService{
		store:      store,
		ackMessage: opts.EscalationMessage,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
}

// SetNotifier attaches the live event sink.
func (s *HelpdeskService) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

func (s *HelpdeskService) notify(userID *uint, eventType string, payload any) {
	if userID == nil {
		return
	}
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n != nil {
		n.NotifyUser(*userID, eventType, payload)
	}
}

// Submit records a question from caller and answers it from the FAQ table,
// or escalates it to staff when nothing matches. All writes share one
// transaction.
func (s *HelpdeskService) Submit(ctx context.Context, caller Caller, text string) (*SubmitResponse, error) {
	ctx, span := observability.Tracer().Start(ctx, "helpdesk.Submit")
	defer span.End()

	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	var resp *SubmitResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		now := s.now()

		user, err := tx.Users().GetByID(ctx, caller.UserID)
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

		user.LastActivity = now
		user.QuestionCount++
		if err := tx.Users().Save(ctx, user); err != nil {
			return fmt.Errorf("update user activity: %w", err)
		}

		question := &models.Message{
			ConversationID: conv.ID,
			Type:           models.MessageTypeUser,
			Content:        content,
			Timestamp:      now,
		}
		question.SetSenderFromUser(user)
		if err := tx.Messages().Create(ctx, question); err != nil {
			return fmt.Errorf("save question: %w", err)
		}

		faqs, err := search.NewMatcher(tx.FAQs()).Search(ctx, content)
		if err != nil {
			s.log.Warn("FAQ search failed, escalating question", "error", err, "message_id", question.ID)
			faqs = nil
		}
		s.metrics.Search(ctx, len(faqs) > 0)

		if len(faqs) > 0 {
			resp, err = s.answer(ctx, tx, conv, &faqs[0], now)
			return err
		}
		resp, err = s.escalate(ctx, tx, conv, question, now)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("helpdesk.outcome", string(resp.Type)))
	s.metrics.Submission(ctx, string(resp.Type))
	return resp, nil
}

func (s *HelpdeskService) answer(ctx context.Context, tx repository.Store, conv *models.Conversation, faq *models.FAQ, now time.Time) (*SubmitResponse, error) {
	if err := tx.FAQs().IncrementViewCount(ctx, faq.ID); err != nil {
		return nil, fmt.Errorf("count faq view: %w", err)
	}

	faqID := faq.ID
	reply := &models.Message{
		ConversationID: conv.ID,
		Type:           models.MessageTypeBot,
		Content:        faq.Answer,
		FAQID:          &faqID,
		Timestamp:      now,
	}
	if err := tx.Messages().Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}

	return &SubmitResponse{
		Type:           ResponseFAQAnswer,
		Message:        faq.Answer,
		FAQTitle:       faq.Title,
		FAQID:          &faqID,
		ConversationID: conv.ID,
		MessageID:      reply.ID,
		Timestamp:      now,
	}, nil
}

func (s *HelpdeskService) escalate(ctx context.Context, tx repository.Store, conv *models.Conversation, question *models.Message, now time.Time) (*SubmitResponse, error) {
	if err := tx.Messages().MarkEscalated(ctx, question.ID); err != nil {
		return nil, fmt.Errorf("mark question escalated: %w", err)
	}
	question.IsEscalated = true

	esc := &models.Escalation{
		MessageID: question.ID,
		Status:    models.EscalationPending,
		CreatedAt: now,
	}
	if err := tx.Escalations().Create(ctx, esc); err != nil {
		return nil, fmt.Errorf("create escalation: %w", err)
	}

	escID := esc.ID
	return &SubmitResponse{
		Type:           ResponseEscalation,
		Message:        s.ackMessage,
		EscalationID:   &escID,
		ConversationID: conv.ID,
		MessageID:      question.ID,
		Timestamp:      now,
	}, nil
}

// mainConversation returns the user's main conversation with its activity
// touched, creating it on first use.
func (s *HelpdeskService) mainConversation(ctx context.Context, tx repository.Store, user *models.User, now time.Time) (*models.Conversation, error) {
	conv, err := tx.Conversations().GetBySessionID(ctx, models.MainSessionID(user.ID))
	if errors.Is(err, repository.ErrNotFound) {
		uid := user.ID
		conv = &models.Conversation{
			SessionID:       models.MainSessionID(user.ID),
			UserID:          &uid,
			UserDisplayName: user.Name(),
			IsActive:        true,
			StartedAt:       now,
			LastActivity:    now,
		}
		if err := tx.Conversations().Create(ctx, conv); err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return conv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	if err := tx.Conversations().Touch(ctx, conv.ID, now); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	conv.LastActivity = now
	return conv, nil
}

// Respond records a staff answer on an escalation and posts it into the
// conversation of the escalated question.
func (s *HelpdeskService) Respond(ctx context.Context, caller Caller, escalationID uint, response, staffName string) (*models.EscalationDetail, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	name := strings.TrimSpace(staffName)
	if name == "" {
		name = caller.DisplayName
	}

	var (
		detail *models.EscalationDetail
		reply  *models.Message
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		now := s.now()

		esc, original, err := s.loadEscalation(ctx, tx, escalationID)
		if err != nil {
			return err
		}

		esc.StaffResponse = text
		esc.StaffName = name
		esc.Status = models.EscalationAnswered
		esc.AnsweredAt = &now
		if err := tx.Escalations().Save(ctx, esc); err != nil {
			return fmt.Errorf("save escalation: %w", err)
		}

		reply, err = s.postStaffMessage(ctx, tx, caller, original.ConversationID, text, name, now)
		if err != nil {
			return err
		}

		detail, err = describeEscalation(ctx, tx, esc, original)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EscalationTransition(ctx, string(models.EscalationAnswered))
	s.log.Info("Escalation answered", "escalation_id", escalationID, "staff_name", name)
	s.notify(detail.UserID, EventStaffMessage, reply)
	return detail, nil
}

// Close marks an escalation closed. Closing is idempotent and keeps any
// staff response already recorded.
func (s *HelpdeskService) Close(ctx context.Context, escalationID uint) (*models.Escalation, error) {
	var closed *models.Escalation
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		esc, err := tx.Escalations().GetByID(ctx, escalationID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEscalationNotFound
		}
		if err != nil {
			return fmt.Errorf("load escalation: %w", err)
		}
		closed = esc
		if esc.Status == models.EscalationClosed {
			return nil
		}

		esc.Status = models.EscalationClosed
		if esc.AnsweredAt == nil {
			now := s.now()
			esc.AnsweredAt = &now
		}
		if err := tx.Escalations().Save(ctx, esc); err != nil {
			return fmt.Errorf("save escalation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.EscalationTransition(ctx, string(models.EscalationClosed))
	return closed, nil
}

// postStaffMessage appends a staff message to a conversation and credits
// the caller's staff profile when there is one.
func (s *HelpdeskService) postStaffMessage(ctx context.Context, tx repository.Store, caller Caller, conversationID uint, text, name string, now time.Time) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conversationID,
		Type:           models.MessageTypeStaff,
		Content:        text,
		SenderName:     name,
		SenderType:     models.SenderStaff,
		Timestamp:      now,
	}
	if caller.UserID != 0 {
		uid := caller.UserID
		msg.SenderUserID = &uid
	}

	staff, err := tx.Staff().GetByUserID(ctx, caller.UserID)
	switch {
	case err == nil:
		staffID := staff.ID
		msg.StaffID = &staffID
		staff.RecordResponse(now)
		if err := tx.Staff().Save(ctx, staff); err != nil {
			return nil, fmt.Errorf("record staff response: %w", err)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load staff profile: %w", err)
	}

	if err := tx.Messages().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save staff message: %w", err)
	}
	if err := tx.Conversations().Touch(ctx, conversationID, now); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	return msg, nil
}

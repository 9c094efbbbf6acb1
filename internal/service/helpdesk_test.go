package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type notification struct {
	userID    uint
	eventType string
	payload   any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) NotifyUser(userID uint, eventType string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID, eventType, payload})
}

type failingEscalations struct {
	repository.EscalationRepository
}

func (failingEscalations) Create(context.Context, *models.Escalation) error {
	return errBoom
}

// failingStore refuses to create escalations.
type failingStore struct {
	repository.Store
}

func (s failingStore) Escalations() repository.EscalationRepository {
	return failingEscalations{s.Store.Escalations()}
}

func (s failingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(failingStore{tx})
	})
}

func newHelpdesk(t *testing.T, store repository.Store) *HelpdeskService {
	t.Helper()
	return NewHelpdeskService(store, HelpdeskOptions{Logger: logger.Discard()})
}

func createUser(t *testing.T, store repository.Store, name string, role jwt.Role) Caller {
	t.Helper()
	user := &models.User{Identifier: name, DisplayName: name, Role: string(role)}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return Caller{UserID: user.ID, DisplayName: name, Role: role}
}

func createFAQ(t *testing.T, store repository.Store, faq models.FAQ) *models.FAQ {
	t.Helper()
	require.NoError(t, store.FAQs().Create(context.Background(), &faq))
	return &faq
}

func parkingFAQ(t *testing.T, store repository.Store) *models.FAQ {
	return createFAQ(t, store, models.FAQ{
		Title:     "駐車場の場所",
		Question:  "来客用の駐車場はありますか",
		Answer:    "正面玄関の横にあります。",
		Keywords:  "駐車場,車,パーキング",
		Category:  "施設",
		IsActive:  true,
		ViewCount: 5,
	})
}

func TestSubmitAnswersFromFAQ(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	faq := parkingFAQ(t, store)
	caller := createUser(t, store, "hanako", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	resp, err := svc.Submit(ctx, caller, "駐車場はどこですか")
	require.NoError(t, err)

	assert.Equal(t, ResponseFAQAnswer, resp.Type)
	assert.Equal(t, faq.Answer, resp.Message)
	assert.Equal(t, faq.Title, resp.FAQTitle)
	require.NotNil(t, resp.FAQID)
	assert.Equal(t, faq.ID, *resp.FAQID)
	assert.Nil(t, resp.EscalationID)

	stored, err := store.FAQs().GetByID(ctx, faq.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.ViewCount)

	msgs, err := store.Messages().ListByUser(ctx, caller.UserID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageTypeUser, msgs[0].Type)
	assert.Equal(t, "駐車場はどこですか", msgs[0].Content)
	assert.False(t, msgs[0].IsEscalated)
	assert.Equal(t, models.MessageTypeBot, msgs[1].Type)
	require.NotNil(t, msgs[1].FAQID)
	assert.Equal(t, faq.ID, *msgs[1].FAQID)
	assert.Equal(t, resp.MessageID, msgs[1].ID)

	n, err := store.Escalations().CountByStatus(ctx, models.EscalationPending)
	require.NoError(t, err)
	assert.Zero(t, n)

	user, err := store.Users().GetByID(ctx, caller.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.QuestionCount)
}

func TestSubmitPicksMostViewedFAQ(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	createFAQ(t, store, models.FAQ{Title: "駐車場(来客)", Question: "q", Answer: "来客", IsActive: true, ViewCount: 2})
	popular := createFAQ(t, store, models.FAQ{Title: "駐車場(職員)", Question: "q", Answer: "職員", IsActive: true, ViewCount: 9})
	createFAQ(t, store, models.FAQ{Title: "駐車場(旧)", Question: "q", Answer: "旧", IsActive: false, ViewCount: 50})
	caller := createUser(t, store, "hanako", jwt.RoleUser)

	resp, err := newHelpdesk(t, store).Submit(ctx, caller, "駐車場")
	require.NoError(t, err)
	require.NotNil(t, resp.FAQID)
	assert.Equal(t, popular.ID, *resp.FAQID)
}

func TestSubmitEscalatesUnmatchedQuestion(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	parkingFAQ(t, store)
	caller := createUser(t, store, "hanako", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	resp, err := svc.Submit(ctx, caller, "xyz123 completely unmatched gibberish")
	require.NoError(t, err)

	assert.Equal(t, ResponseEscalation, resp.Type)
	assert.NotEmpty(t, resp.Message)
	require.NotNil(t, resp.EscalationID)

	pending, err := store.Escalations().ListByStatus(ctx, models.EscalationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, *resp.EscalationID, pending[0].ID)
	assert.Equal(t, resp.MessageID, pending[0].MessageID)

	question, err := store.Messages().GetByID(ctx, pending[0].MessageID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeUser, question.Type)
	assert.True(t, question.IsEscalated)

	msgs, err := store.Messages().ListByUser(ctx, caller.UserID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSubmitUsesConfiguredAcknowledgement(t *testing.T) {
	store := repository.NewMemoryStore()
	caller := createUser(t, store, "hanako", jwt.RoleUser)
	svc := NewHelpdeskService(store, HelpdeskOptions{EscalationMessage: "staff will reply", Logger: logger.Discard()})

	resp, err := svc.Submit(context.Background(), caller, "unknown question")
	require.NoError(t, err)
	assert.Equal(t, "staff will reply", resp.Message)
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	caller := createUser(t, store, "hanako", jwt.RoleUser)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := newHelpdesk(t, store).Submit(ctx, caller, text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}

	n, err := store.Conversations().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	total, _, err := store.Messages().CountUserMessages(ctx, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSubmitUnknownUser(t *testing.T) {
	store := repository.NewMemoryStore()
	_, err := newHelpdesk(t, store).Submit(context.Background(), Caller{UserID: 42}, "駐車場")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSubmitRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	caller := createUser(t, mem, "hanako", jwt.RoleUser)

	_, err := newHelpdesk(t, failingStore{mem}).Submit(ctx, caller, "nothing matches this")
	require.ErrorIs(t, err, errBoom)

	total, _, err := mem.Messages().CountUserMessages(ctx, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, total)
	n, err := mem.Conversations().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	user, err := mem.Users().GetByID(ctx, caller.UserID)
	require.NoError(t, err)
	assert.Zero(t, user.QuestionCount)
}

func TestSubmitReusesMainConversation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	caller := createUser(t, store, "hanako", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	first, err := svc.Submit(ctx, caller, "first question")
	require.NoError(t, err)
	second, err := svc.Submit(ctx, caller, "second question")
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	conv, err := store.Conversations().GetByID(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, models.MainSessionID(caller.UserID), conv.SessionID)
}

func TestRespondAnswersEscalation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	staff := createUser(t, store, "staff1", jwt.RoleStaff)
	require.NoError(t, store.Staff().Create(ctx, &models.StaffMember{UserID: staff.UserID, StaffID: "S-1", Name: "staff1", IsActive: true}))

	svc := newHelpdesk(t, store)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)

	resp, err := svc.Submit(ctx, owner, "xyz123 completely unmatched gibberish")
	require.NoError(t, err)

	detail, err := svc.Respond(ctx, staff, *resp.EscalationID, "First floor, room 101.", "Taro")
	require.NoError(t, err)

	assert.Equal(t, models.EscalationAnswered, detail.Status)
	assert.NotNil(t, detail.AnsweredAt)
	assert.Equal(t, "Taro", detail.StaffName)
	assert.Equal(t, "First floor, room 101.", detail.StaffResponse)
	assert.Equal(t, resp.ConversationID, detail.ConversationID)
	require.NotNil(t, detail.UserID)
	assert.Equal(t, owner.UserID, *detail.UserID)

	msgs, err := store.Messages().ListByUser(ctx, owner.UserID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	reply := msgs[1]
	assert.Equal(t, models.MessageTypeStaff, reply.Type)
	assert.Equal(t, resp.ConversationID, reply.ConversationID)
	assert.Equal(t, "Taro", reply.SenderName)
	require.NotNil(t, reply.StaffID)

	profile, err := store.Staff().GetByUserID(ctx, staff.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.ResponsesCount)
	assert.NotNil(t, profile.LastResponseAt)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, owner.UserID, notifier.sent[0].userID)
	assert.Equal(t, EventStaffMessage, notifier.sent[0].eventType)
}

func TestRespondDefaultsStaffName(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	admin := createUser(t, store, "Admin Sato", jwt.RoleAdmin)
	svc := newHelpdesk(t, store)

	resp, err := svc.Submit(ctx, owner, "unmatched")
	require.NoError(t, err)

	detail, err := svc.Respond(ctx, admin, *resp.EscalationID, "answer", " ")
	require.NoError(t, err)
	assert.Equal(t, "Admin Sato", detail.StaffName)
}

func TestRespondValidation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	staff := createUser(t, store, "staff1", jwt.RoleStaff)
	svc := newHelpdesk(t, store)

	_, err := svc.Respond(ctx, staff, 1, "  ", "Taro")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = svc.Respond(ctx, staff, 999, "answer", "Taro")
	assert.ErrorIs(t, err, ErrEscalationNotFound)
}

func TestCloseKeepsStaffResponse(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	staff := createUser(t, store, "staff1", jwt.RoleStaff)
	svc := newHelpdesk(t, store)

	resp, err := svc.Submit(ctx, owner, "unmatched")
	require.NoError(t, err)
	answered, err := svc.Respond(ctx, staff, *resp.EscalationID, "answer", "Taro")
	require.NoError(t, err)

	closed, err := svc.Close(ctx, *resp.EscalationID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationClosed, closed.Status)
	assert.Equal(t, "answer", closed.StaffResponse)
	require.NotNil(t, closed.AnsweredAt)
	assert.True(t, answered.AnsweredAt.Equal(*closed.AnsweredAt))

	again, err := svc.Close(ctx, *resp.EscalationID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationClosed, again.Status)
}

func TestClosePendingEscalation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	resp, err := svc.Submit(ctx, owner, "unmatched")
	require.NoError(t, err)

	closed, err := svc.Close(ctx, *resp.EscalationID)
	require.NoError(t, err)
	assert.Equal(t, models.EscalationClosed, closed.Status)
	assert.NotNil(t, closed.AnsweredAt)
	assert.Empty(t, closed.StaffResponse)

	_, err = svc.Close(ctx, 999)
	assert.ErrorIs(t, err, ErrEscalationNotFound)
}

func TestListByStatus(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	first, err := svc.Submit(ctx, owner, "first unmatched")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, "second unmatched")
	require.NoError(t, err)
	_, err = svc.Close(ctx, *first.EscalationID)
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second unmatched", pending[0].Question)
	assert.Equal(t, "hanako", pending[0].SenderName)

	closed, err := svc.ListByStatus(ctx, models.EscalationClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, *first.EscalationID, closed[0].ID)

	_, err = svc.ListByStatus(ctx, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	detail, err := svc.GetEscalation(ctx, *first.EscalationID)
	require.NoError(t, err)
	assert.Equal(t, "first unmatched", detail.Question)
}

func TestBacklogCountsStaleEscalations(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)

	clock := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	svc := NewHelpdeskService(store, HelpdeskOptions{Logger: logger.Discard(), Now: func() time.Time { return clock }})

	_, err := svc.Submit(ctx, owner, "old question")
	require.NoError(t, err)
	clock = clock.Add(30 * time.Hour)
	_, err = svc.Submit(ctx, owner, "new question")
	require.NoError(t, err)

	summary, err := svc.Backlog(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.Stale)
	assert.True(t, summary.OldestAt.Equal(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)))
}

func TestGetMessagesAccess(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	other := createUser(t, store, "jiro", jwt.RoleUser)
	staff := createUser(t, store, "staff1", jwt.RoleStaff)
	svc := newHelpdesk(t, store)

	_, err := svc.Submit(ctx, owner, "unmatched")
	require.NoError(t, err)

	own, err := svc.GetMessages(ctx, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, own.UserID)
	assert.Len(t, own.Messages, 1)
	assert.NotZero(t, own.ConversationID)

	_, err = svc.GetMessages(ctx, other, owner.UserID)
	assert.ErrorIs(t, err, ErrForbidden)

	seen, err := svc.GetMessages(ctx, staff, owner.UserID)
	require.NoError(t, err)
	assert.Len(t, seen.Messages, 1)

	empty, err := svc.GetMessages(ctx, other, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Messages)
	assert.Zero(t, empty.ConversationID)
}

func TestAdminSend(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	staff := createUser(t, store, "staff1", jwt.RoleStaff)
	svc := newHelpdesk(t, store)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)

	_, err := svc.AdminSend(ctx, owner, staff.UserID, "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	msg, err := svc.AdminSend(ctx, staff, owner.UserID, "Your badge is ready.")
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeStaff, msg.Type)
	assert.Equal(t, "staff1", msg.SenderName)

	history, err := svc.GetMessages(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, msg.ConversationID, history.ConversationID)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, owner.UserID, notifier.sent[0].userID)
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	parkingFAQ(t, store)
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	other := createUser(t, store, "jiro", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	resp, err := svc.Submit(ctx, owner, "駐車場はどこですか")
	require.NoError(t, err)

	_, err = svc.Feedback(ctx, owner, resp.MessageID, 6, "")
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = svc.Feedback(ctx, other, resp.MessageID, 5, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Feedback(ctx, owner, 999, 5, "")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	history, err := svc.GetMessages(ctx, owner, 0)
	require.NoError(t, err)
	_, err = svc.Feedback(ctx, owner, history.Messages[0].ID, 5, "")
	assert.ErrorIs(t, err, ErrNotRateable)

	rated, err := svc.Feedback(ctx, owner, resp.MessageID, 4, " helpful ")
	require.NoError(t, err)
	require.NotNil(t, rated.FeedbackRating)
	assert.Equal(t, 4, *rated.FeedbackRating)
	assert.Equal(t, "helpful", rated.FeedbackComment)

	stored, err := store.Messages().GetByID(ctx, resp.MessageID)
	require.NoError(t, err)
	require.NotNil(t, stored.FeedbackRating)
	assert.Equal(t, 4, *stored.FeedbackRating)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	parkingFAQ(t, store)
	createFAQ(t, store, models.FAQ{Title: "old", Question: "q", Answer: "a", IsActive: false})
	owner := createUser(t, store, "hanako", jwt.RoleUser)
	svc := newHelpdesk(t, store)

	_, err := svc.Submit(ctx, owner, "駐車場")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, "unmatched one")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, owner, "unmatched two")
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.PendingEscalations)
	assert.Equal(t, int64(2), d.TotalFAQs)
	assert.Equal(t, int64(1), d.ActiveFAQs)
	assert.Equal(t, int64(1), d.TotalUsers)
	assert.Equal(t, int64(1), d.TotalConversations)
	assert.Equal(t, int64(3), d.TodayQuestions)
	assert.InDelta(t, 66.7, d.EscalationRate, 0.001)
}

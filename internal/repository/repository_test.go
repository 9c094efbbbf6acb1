package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSQL(t *testing.T) {
	filter := search.BuildFilter([]string{"駐車場", "申請"}, "")

	where, args := FilterSQL(filter)

	assert.Contains(t, where, "strpos(COALESCE(title, ''), ?) > 0")
	assert.Contains(t, where, "strpos(COALESCE(category, ''), ?) > 0")
	assert.Equal(t, byte('('), where[0])
	require.Len(t, args, 2*len(search.SearchFields))
	assert.Equal(t, "駐車場", args[0])
	assert.Equal(t, "申請", args[len(args)-1])
}

func TestFilterSQLSkipsUnknownFields(t *testing.T) {
	where, args := FilterSQL(search.Filter{Terms: []string{"x"}, Fields: []search.Field{"password"}})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestMemoryStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx Store) error {
		require.NoError(t, tx.FAQs().Create(ctx, &models.FAQ{Title: "t", IsActive: true}))
		n, err := tx.FAQs().Count(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.FAQs().Count(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStoreTransactionCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Transaction(ctx, func(tx Store) error {
		return tx.FAQs().Create(ctx, &models.FAQ{Title: "t", IsActive: true})
	})
	require.NoError(t, err)

	n, err := store.FAQs().Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryFAQsFindRespectsFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	faqs := store.FAQs()

	require.NoError(t, faqs.Create(ctx, &models.FAQ{Title: "駐車場", IsActive: true, ViewCount: 1}))
	require.NoError(t, faqs.Create(ctx, &models.FAQ{Title: "駐車場(停止)", IsActive: false, ViewCount: 10}))
	require.NoError(t, faqs.Create(ctx, &models.FAQ{Title: "食堂", Keywords: "駐車場", IsActive: true, ViewCount: 3}))

	found, err := faqs.FindFAQs(ctx, search.NewFilter("駐車場"))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "食堂", found[0].Title)
	assert.Equal(t, "駐車場", found[1].Title)
}

func TestMemoryMessagesListByUserIsChronological(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	uid := uint(42)

	conv := &models.Conversation{SessionID: models.MainSessionID(uid), UserID: &uid}
	require.NoError(t, store.Conversations().Create(ctx, conv))
	other := &models.Conversation{SessionID: "other"}
	require.NoError(t, store.Conversations().Create(ctx, other))

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Messages().Create(ctx, &models.Message{ConversationID: conv.ID, Content: "second", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, store.Messages().Create(ctx, &models.Message{ConversationID: conv.ID, Content: "first", Timestamp: base}))
	require.NoError(t, store.Messages().Create(ctx, &models.Message{ConversationID: other.ID, Content: "not mine", Timestamp: base}))

	msgs, err := store.Messages().ListByUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestMemoryConversationsRejectDuplicateSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Conversations().Create(ctx, &models.Conversation{SessionID: "s"}))
	assert.ErrorIs(t, store.Conversations().Create(ctx, &models.Conversation{SessionID: "s"}), ErrDuplicate)
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Escalations().GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.FAQs().IncrementViewCount(ctx, 99), ErrNotFound)
}

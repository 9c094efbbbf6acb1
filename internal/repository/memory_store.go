package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/search"
)

type memoryState struct {
	nextID        uint
	faqs          map[uint]models.FAQ
	conversations map[uint]models.Conversation
	messages      map[uint]models.Message
	escalations   map[uint]models.Escalation
	users         map[uint]models.User
	staff         map[uint]models.StaffMember
}

func newMemoryState() *memoryState {
	return &memoryState{
		faqs:          make(map[uint]models.FAQ),
		conversations: make(map[uint]models.Conversation),
		messages:      make(map[uint]models.Message),
		escalations:   make(map[uint]models.Escalation),
		users:         make(map[uint]models.User),
		staff:         make(map[uint]models.StaffMember),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		nextID:        s.nextID,
		faqs:          make(map[uint]models.FAQ, len(s.faqs)),
		conversations: make(map[uint]models.Conversation, len(s.conversations)),
		messages:      make(map[uint]models.Message, len(s.messages)),
		escalations:   make(map[uint]models.Escalation, len(s.escalations)),
		users:         make(map[uint]models.User, len(s.users)),
		staff:         make(map[uint]models.StaffMember, len(s.staff)),
	}
	for k, v := range s.faqs {
		c.faqs[k] = v
	}
	for k, v := range s.conversations {
		c.conversations[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	for k, v := range s.escalations {
		c.escalations[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	return c
}

func (s *memoryState) id() uint {
	s.nextID++
	return s.nextID
}

// MemoryStore is a Store held in process memory, used by tests and by the
// server when no database is configured. Transactions work on a copy of the
// state that replaces the original only on success.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:    &sync.Mutex{},
		state: newMemoryState(),
		now:   time.Now,
	}
}

// lock serialises access outside transactions; inside one the
// transaction already holds the lock.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) FAQs() FAQRepository                   { return memoryFAQs{s} }
func (s *MemoryStore) Conversations() ConversationRepository { return memoryConversations{s} }
func (s *MemoryStore) Messages() MessageRepository           { return memoryMessages{s} }
func (s *MemoryStore) Escalations() EscalationRepository     { return memoryEscalations{s} }
func (s *MemoryStore) Users() UserRepository                 { return memoryUsers{s} }
func (s *MemoryStore) Staff() StaffRepository                { return memoryStaff{s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{mu: s.mu, state: s.state.clone(), inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryFAQs struct{ s *MemoryStore }

func (r memoryFAQs) FindFAQs(ctx context.Context, filter search.Filter) ([]models.FAQ, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()
	var out []models.FAQ
	for _, faq := range r.s.state.faqs {
		faq := faq
		if filter.Match(&faq) {
			out = append(out, faq)
		}
	}
	return search.Rank(out), nil
}

func (r memoryFAQs) Create(_ context.Context, faq *models.FAQ) error {
	defer r.s.lock()()
	now := r.s.now()
	faq.ID = r.s.state.id()
	if faq.CreatedAt.IsZero() {
		faq.CreatedAt = now
	}
	faq.UpdatedAt = now
	r.s.state.faqs[faq.ID] = *faq
	return nil
}

func (r memoryFAQs) Save(_ context.Context, faq *models.FAQ) error {
	defer r.s.lock()()
	if _, ok := r.s.state.faqs[faq.ID]; !ok {
		return ErrNotFound
	}
	faq.UpdatedAt = r.s.now()
	r.s.state.faqs[faq.ID] = *faq
	return nil
}

func (r memoryFAQs) GetByID(_ context.Context, id uint) (*models.FAQ, error) {
	defer r.s.lock()()
	faq, ok := r.s.state.faqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &faq, nil
}

func (r memoryFAQs) List(_ context.Context, includeInactive bool) ([]models.FAQ, error) {
	defer r.s.lock()()
	var out []models.FAQ
	for _, faq := range r.s.state.faqs {
		if includeInactive || faq.IsActive {
			out = append(out, faq)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r memoryFAQs) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	if _, ok := r.s.state.faqs[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.state.faqs, id)
	return nil
}

func (r memoryFAQs) IncrementViewCount(_ context.Context, id uint) error {
	defer r.s.lock()()
	faq, ok := r.s.state.faqs[id]
	if !ok {
		return ErrNotFound
	}
	faq.ViewCount++
	r.s.state.faqs[id] = faq
	return nil
}

func (r memoryFAQs) Popular(ctx context.Context, limit int) ([]models.FAQ, error) {
	faqs, err := r.List(ctx, false)
	if err != nil {
		return nil, err
	}
	search.Rank(faqs)
	if limit > 0 && len(faqs) > limit {
		faqs = faqs[:limit]
	}
	return faqs, nil
}

func (r memoryFAQs) Count(_ context.Context, activeOnly bool) (int64, error) {
	defer r.s.lock()()
	var n int64
	for _, faq := range r.s.state.faqs {
		if !activeOnly || faq.IsActive {
			n++
		}
	}
	return n, nil
}

type memoryConversations struct{ s *MemoryStore }

func (r memoryConversations) Create(_ context.Context, conv *models.Conversation) error {
	defer r.s.lock()()
	for _, existing := range r.s.state.conversations {
		if existing.SessionID == conv.SessionID {
			return ErrDuplicate
		}
	}
	conv.ID = r.s.state.id()
	stored := *conv
	stored.Messages = nil
	r.s.state.conversations[conv.ID] = stored
	return nil
}

func (r memoryConversations) GetByID(_ context.Context, id uint) (*models.Conversation, error) {
	defer r.s.lock()()
	conv, ok := r.s.state.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &conv, nil
}

func (r memoryConversations) GetBySessionID(_ context.Context, sessionID string) (*models.Conversation, error) {
	defer r.s.lock()()
	for _, conv := range r.s.state.conversations {
		if conv.SessionID == sessionID {
			return &conv, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryConversations) ListByUser(_ context.Context, userID uint) ([]models.Conversation, error) {
	defer r.s.lock()()
	var out []models.Conversation
	for _, conv := range r.s.state.conversations {
		if conv.UserID != nil && *conv.UserID == userID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memoryConversations) Touch(_ context.Context, id uint, at time.Time) error {
	defer r.s.lock()()
	conv, ok := r.s.state.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.LastActivity = at
	r.s.state.conversations[id] = conv
	return nil
}

func (r memoryConversations) Count(_ context.Context) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.s.state.conversations)), nil
}

type memoryMessages struct{ s *MemoryStore }

func (r memoryMessages) Create(_ context.Context, msg *models.Message) error {
	defer r.s.lock()()
	if _, ok := r.s.state.conversations[msg.ConversationID]; !ok {
		return ErrNotFound
	}
	msg.ID = r.s.state.id()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.s.now()
	}
	r.s.state.messages[msg.ID] = *msg
	return nil
}

func (r memoryMessages) GetByID(_ context.Context, id uint) (*models.Message, error) {
	defer r.s.lock()()
	msg, ok := r.s.state.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &msg, nil
}

func (r memoryMessages) MarkEscalated(_ context.Context, id uint) error {
	defer r.s.lock()()
	msg, ok := r.s.state.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.IsEscalated = true
	r.s.state.messages[id] = msg
	return nil
}

func (r memoryMessages) SetFeedback(_ context.Context, id uint, rating int, comment string) error {
	defer r.s.lock()()
	msg, ok := r.s.state.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.FeedbackRating = &rating
	msg.FeedbackComment = comment
	r.s.state.messages[id] = msg
	return nil
}

func (r memoryMessages) ListByUser(_ context.Context, userID uint) ([]models.Message, error) {
	defer r.s.lock()()
	var out []models.Message
	for _, msg := range r.s.state.messages {
		conv := r.s.state.conversations[msg.ConversationID]
		if conv.UserID != nil && *conv.UserID == userID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memoryMessages) CountUserMessages(_ context.Context, since time.Time) (int64, int64, error) {
	defer r.s.lock()()
	var total, escalated int64
	for _, msg := range r.s.state.messages {
		if msg.Type != models.MessageTypeUser || msg.Timestamp.Before(since) {
			continue
		}
		total++
		if msg.IsEscalated {
			escalated++
		}
	}
	return total, escalated, nil
}

type memoryEscalations struct{ s *MemoryStore }

func (r memoryEscalations) Create(_ context.Context, esc *models.Escalation) error {
	defer r.s.lock()()
	esc.ID = r.s.state.id()
	if esc.CreatedAt.IsZero() {
		esc.CreatedAt = r.s.now()
	}
	r.s.state.escalations[esc.ID] = *esc
	return nil
}

func (r memoryEscalations) GetByID(_ context.Context, id uint) (*models.Escalation, error) {
	defer r.s.lock()()
	esc, ok := r.s.state.escalations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &esc, nil
}

func (r memoryEscalations) Save(_ context.Context, esc *models.Escalation) error {
	defer r.s.lock()()
	if _, ok := r.s.state.escalations[esc.ID]; !ok {
		return ErrNotFound
	}
	r.s.state.escalations[esc.ID] = *esc
	return nil
}

func (r memoryEscalations) ListByStatus(_ context.Context, status models.EscalationStatus) ([]models.Escalation, error) {
	defer r.s.lock()()
	var out []models.Escalation
	for _, esc := range r.s.state.escalations {
		if esc.Status == status {
			out = append(out, esc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memoryEscalations) CountByStatus(ctx context.Context, status models.EscalationStatus) (int64, error) {
	escs, err := r.ListByStatus(ctx, status)
	return int64(len(escs)), err
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	defer r.s.lock()()
	for _, existing := range r.s.state.users {
		if existing.Identifier == user.Identifier {
			return ErrDuplicate
		}
		if user.LoginID != nil && existing.LoginID != nil && *existing.LoginID == *user.LoginID {
			return ErrDuplicate
		}
	}
	now := r.s.now()
	user.ID = r.s.state.id()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.state.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	defer r.s.lock()()
	user, ok := r.s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetByLoginID(_ context.Context, loginID string) (*models.User, error) {
	defer r.s.lock()()
	for _, user := range r.s.state.users {
		if user.LoginID != nil && *user.LoginID == loginID {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) GetByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	defer r.s.lock()()
	for _, user := range r.s.state.users {
		if user.Identifier == identifier {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) Save(_ context.Context, user *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.state.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = r.s.now()
	r.s.state.users[user.ID] = *user
	return nil
}

func (r memoryUsers) Count(_ context.Context) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.s.state.users)), nil
}

type memoryStaff struct{ s *MemoryStore }

func (r memoryStaff) Create(_ context.Context, staff *models.StaffMember) error {
	defer r.s.lock()()
	for _, existing := range r.s.state.staff {
		if existing.UserID == staff.UserID || existing.StaffID == staff.StaffID {
			return ErrDuplicate
		}
	}
	staff.ID = r.s.state.id()
	staff.CreatedAt = r.s.now()
	r.s.state.staff[staff.ID] = *staff
	return nil
}

func (r memoryStaff) GetByUserID(_ context.Context, userID uint) (*models.StaffMember, error) {
	defer r.s.lock()()
	for _, staff := range r.s.state.staff {
		if staff.UserID == userID {
			return &staff, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryStaff) Save(_ context.Context, staff *models.StaffMember) error {
	defer r.s.lock()()
	if _, ok := r.s.state.staff[staff.ID]; !ok {
		return ErrNotFound
	}
	r.s.state.staff[staff.ID] = *staff
	return nil
}

func (r memoryStaff) List(_ context.Context) ([]models.StaffMember, error) {
	defer r.s.lock()()
	out := make([]models.StaffMember, 0, len(r.s.state.staff))
	for _, staff := range r.s.state.staff {
		out = append(out, staff)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
)

// In-memory repositories used across the service tests. They broadcast to
// subscribers the way the real snapshot listeners do.

type fakeNotificationRepo struct {
	mu          sync.Mutex
	events      map[string]*models.NotificationEvent
	seq         int
	subs        []notifSub
	failMarkAll bool
}

type notifSub struct {
	userID string
	ch     chan []models.NotificationEvent
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{events: make(map[string]*models.NotificationEvent)}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, event *models.NotificationEvent) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("n%d", f.seq)
	stored := *event
	stored.ID = id
	f.events[id] = &stored
	event.ID = id
	f.broadcastLocked()
	return id, nil
}

func (f *fakeNotificationRepo) ListByRecipient(ctx context.Context, userID string) ([]models.NotificationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked(userID), nil
}

func (f *fakeNotificationRepo) listLocked(userID string) []models.NotificationEvent {
	var events []models.NotificationEvent
	for _, event := range f.events {
		if event.ToUserID == userID {
			events = append(events, *event)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp > events[j].Timestamp })
	return events
}

func (f *fakeNotificationRepo) Subscribe(ctx context.Context, userID string) (<-chan []models.NotificationEvent, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []models.NotificationEvent, 16)
	f.subs = append(f.subs, notifSub{userID: userID, ch: ch})
	ch <- f.listLocked(userID)
	return ch, func() {}, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[notificationID]
	if !ok {
		return repositories.ErrNotFound
	}
	event.Read = true
	f.broadcastLocked()
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkAll {
		return errors.New("event store unavailable")
	}
	for _, event := range f.events {
		if event.ToUserID == userID {
			event.Read = true
		}
	}
	f.broadcastLocked()
	return nil
}

func (f *fakeNotificationRepo) broadcastLocked() {
	for _, sub := range f.subs {
		select {
		case sub.ch <- f.listLocked(sub.userID):
		default:
		}
	}
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	convs    map[string]models.Conversation
	seq      int
	subs     []chan map[string]models.Conversation
	failMark bool
	failGet  bool
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{convs: make(map[string]models.Conversation)}
}

func (f *fakeMessageRepo) GetConversations(ctx context.Context) (map[string]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errors.New("realtime store unavailable")
	}
	return f.copyLocked(), nil
}

func (f *fakeMessageRepo) copyLocked() map[string]models.Conversation {
	out := make(map[string]models.Conversation, len(f.convs))
	for id, conv := range f.convs {
		next := make(models.Conversation, len(conv))
		for key, record := range conv {
			next[key] = record
		}
		out[id] = next
	}
	return out
}

func (f *fakeMessageRepo) Subscribe(ctx context.Context) (<-chan map[string]models.Conversation, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan map[string]models.Conversation, 16)
	f.subs = append(f.subs, ch)
	ch <- f.copyLocked()
	return ch, func() {}, nil
}

func (f *fakeMessageRepo) Append(ctx context.Context, conversationID string, record *models.MessageRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	key := fmt.Sprintf("m%d", f.seq)
	if f.convs[conversationID] == nil {
		f.convs[conversationID] = make(models.Conversation)
	}
	f.convs[conversationID][key] = *record
	f.broadcastLocked()
	return key, nil
}

func (f *fakeMessageRepo) MarkConversationsRead(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMark {
		return errors.New("realtime store unavailable")
	}
	for convID, conv := range f.convs {
		if !models.ConversationHasUser(convID, userID) {
			continue
		}
		for key, record := range conv {
			if record.From != userID {
				record.Read = true
				conv[key] = record
			}
		}
	}
	f.broadcastLocked()
	return nil
}

func (f *fakeMessageRepo) broadcastLocked() {
	for _, ch := range f.subs {
		select {
		case ch <- f.copyLocked():
		default:
		}
	}
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.ChatSession
	messages map[string][]models.ChatMessage
	seq      int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*models.ChatSession),
		messages: make(map[string][]models.ChatMessage),
	}
}

func (f *fakeSessionRepo) FindByParticipants(ctx context.Context, studentID, mentorID string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, session := range f.sessions {
		if session.StudentID == studentID && session.MentorID == mentorID {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSessionRepo) Get(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) Create(ctx context.Context, session *models.ChatSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("s%d", f.seq)
	stored := *session
	stored.ID = id
	f.sessions[id] = &stored
	session.ID = id
	return id, nil
}

func (f *fakeSessionRepo) AppendMessage(ctx context.Context, sessionID string, message *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return repositories.ErrNotFound
	}
	f.messages[sessionID] = append(f.messages[sessionID], *message)
	return nil
}

func (f *fakeSessionRepo) UpdateOnSend(ctx context.Context, sessionID, lastMessage string, timestamp int64, receiverIsMentor bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return repositories.ErrNotFound
	}
	session.LastMessage = lastMessage
	session.LastMessageTimestamp = timestamp
	if receiverIsMentor {
		session.UnreadForMentor++
	} else {
		session.UnreadForStudent++
	}
	return nil
}

func (f *fakeSessionRepo) MarkRead(ctx context.Context, sessionID, otherUserID string, readerIsMentor bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return repositories.ErrNotFound
	}
	msgs := f.messages[sessionID]
	for i := range msgs {
		if msgs[i].SenderID == otherUserID {
			msgs[i].IsRead = true
		}
	}
	if readerIsMentor {
		session.UnreadForMentor = 0
	} else {
		session.UnreadForStudent = 0
	}
	return nil
}

func (f *fakeSessionRepo) ListByParticipant(ctx context.Context, role models.Role, userID string) ([]models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sessions []models.ChatSession
	for _, session := range f.sessions {
		if (role == models.RoleMentor && session.MentorID == userID) ||
			(role == models.RoleStudent && session.StudentID == userID) {
			sessions = append(sessions, *session)
		}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastMessageTimestamp > sessions[j].LastMessageTimestamp
	})
	return sessions, nil
}

func (f *fakeSessionRepo) SubscribeByParticipant(ctx context.Context, role models.Role, userID string) (<-chan []models.ChatSession, func(), error) {
	ch := make(chan []models.ChatSession, 16)
	sessions, _ := f.ListByParticipant(ctx, role, userID)
	ch <- sessions
	return ch, func() {}, nil
}

func (f *fakeSessionRepo) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := append([]models.ChatMessage(nil), f.messages[sessionID]...)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp > msgs[j].Timestamp })
	return msgs, nil
}

func (f *fakeSessionRepo) SubscribeMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, func(), error) {
	ch := make(chan []models.ChatMessage, 16)
	msgs, _ := f.ListMessages(ctx, sessionID)
	ch <- msgs
	return ch, func() {}, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]models.UserCompact
}

func newFakeUserRepo(users ...models.UserCompact) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]models.UserCompact)}
	for _, user := range users {
		repo.users[user.UID] = user
	}
	return repo
}

func (f *fakeUserRepo) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.users[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.User{UID: info.UID, Name: info.Name, PhotoURL: info.PhotoURL}, nil
}

func (f *fakeUserRepo) GetDisplayInfo(ctx context.Context, uid string) (models.UserCompact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.users[uid]
	if !ok {
		return models.UserCompact{}, repositories.ErrNotFound
	}
	return info, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.UID] = user.ToCompact()
	return nil
}

func (f *fakeUserRepo) Update(ctx context.Context, uid string, updates map[string]interface{}) error {
	return nil
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/raite-app/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ChatService maintains exactly one mentoring thread per (mentor, student)
// pair, appends messages and keeps the per-recipient unread counters that
// back the badge display.
type ChatService struct {
	sessions repositories.SessionRepository
	users    repositories.UserRepository
	notifier *NotificationService
}

// NewChatService creates a new ChatService
func NewChatService(sessions repositories.SessionRepository, users repositories.UserRepository, notifier *NotificationService) *ChatService {
	return &ChatService{sessions: sessions, users: users, notifier: notifier}
}

// StartOrReuseSession opens the thread between the student and the mentor,
// creating it on first contact, and appends the initial message from the
// student. A whitespace-only message is a silent no-op that returns no id.
func (s *ChatService) StartOrReuseSession(ctx context.Context, studentID, mentorID, initialMessage string) (string, error) {
	text := strings.TrimSpace(initialMessage)
	if text == "" {
		return "", nil
	}

	session, err := s.sessions.FindByParticipants(ctx, studentID, mentorID)
	if errors.Is(err, repositories.ErrNotFound) {
		session = &models.ChatSession{MentorID: mentorID, StudentID: studentID}
		if _, err := s.sessions.Create(ctx, session); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	if _, err := s.append(ctx, session, studentID, text); err != nil {
		return "", err
	}
	return session.ID, nil
}

// SendMessage appends a message to an existing session and returns the new
// message id. Unknown sessions and senders outside the pair yield NotFound;
// a whitespace-only message is a silent no-op.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, senderID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !session.Participant(senderID) {
		return "", repositories.ErrNotFound
	}
	return s.append(ctx, session, senderID, text)
}

// append stores the message, bumps the receiver's unread counter together
// with the last-message summary, and notifies the receiver.
func (s *ChatService) append(ctx context.Context, session *models.ChatSession, senderID, text string) (string, error) {
	receiverID := session.OtherParticipant(senderID)
	now := time.Now().UnixMilli()

	message := &models.ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Text:      text,
		Timestamp: now,
	}
	if err := s.sessions.AppendMessage(ctx, session.ID, message); err != nil {
		return "", err
	}
	if err := s.sessions.UpdateOnSend(ctx, session.ID, text, now, receiverID == session.MentorID); err != nil {
		return "", err
	}

	s.notifier.Notify(ctx, models.TypeMessage, senderID, receiverID, session.ID, "", text)
	return message.ID, nil
}

// MarkMessagesAsRead flags every message from the other participant as read
// and resets the caller's unread counter to zero unconditionally. Callers
// outside the pair are a no-op.
func (s *ChatService) MarkMessagesAsRead(ctx context.Context, sessionID, userID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Participant(userID) {
		return nil
	}
	return s.sessions.MarkRead(ctx, sessionID, session.OtherParticipant(userID), userID == session.MentorID)
}

// ListSessions returns the user's sessions for one role, newest activity
// first, enriched with participant display info.
func (s *ChatService) ListSessions(ctx context.Context, userID string, role models.Role) ([]models.ChatSession, error) {
	sessions, err := s.sessions.ListByParticipant(ctx, role, userID)
	if err != nil {
		return nil, err
	}
	s.enrichSessions(ctx, sessions)
	return sessions, nil
}

// SubscribeSessions streams the user's session list, enriching every
// emission with participant display info before it leaves the service.
func (s *ChatService) SubscribeSessions(ctx context.Context, userID string, role models.Role) (<-chan []models.ChatSession, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	in, stop, err := s.sessions.SubscribeByParticipant(ctx, role, userID)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	out := make(chan []models.ChatSession, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-in:
				if !ok {
					return
				}
				s.enrichSessions(ctx, batch)
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	disposer := func() {
		stop()
		cancel()
	}
	return out, disposer, nil
}

// enrichSessions attaches display info for both participants. Lookups run
// concurrently and join before the list is handed out; a failed lookup
// leaves the session with ids only.
func (s *ChatService) enrichSessions(ctx context.Context, sessions []models.ChatSession) {
	g, gctx := errgroup.WithContext(ctx)
	for i := range sessions {
		i := i
		g.Go(func() error {
			if info, err := s.users.GetDisplayInfo(gctx, sessions[i].MentorID); err == nil {
				sessions[i].Mentor = &info
			} else {
				logger.Log.WithError(err).WithField("user_id", sessions[i].MentorID).Debug("mentor lookup failed")
			}
			return nil
		})
		g.Go(func() error {
			if info, err := s.users.GetDisplayInfo(gctx, sessions[i].StudentID); err == nil {
				sessions[i].Student = &info
			} else {
				logger.Log.WithError(err).WithField("user_id", sessions[i].StudentID).Debug("student lookup failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// ListMessages returns the most recent messages of a session, newest first.
func (s *ChatService) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	return s.sessions.ListMessages(ctx, sessionID)
}

// SubscribeMessages streams the most recent messages of a session.
func (s *ChatService) SubscribeMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, func(), error) {
	return s.sessions.SubscribeMessages(ctx, sessionID)
}

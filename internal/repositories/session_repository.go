package repositories

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/pkg/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	chatsCollection       = "chats"
	chatMessagesSubpath   = "messages"
	recentMessagesLimit   = 50
	listenerRetryInterval = 2 * time.Second
)

// SessionRepository defines the interface for mentor/student chat sessions
type SessionRepository interface {
	FindByParticipants(ctx context.Context, studentID, mentorID string) (*models.ChatSession, error)
	Get(ctx context.Context, sessionID string) (*models.ChatSession, error)
	Create(ctx context.Context, session *models.ChatSession) (string, error)
	AppendMessage(ctx context.Context, sessionID string, message *models.ChatMessage) error
	UpdateOnSend(ctx context.Context, sessionID, lastMessage string, timestamp int64, receiverIsMentor bool) error
	MarkRead(ctx context.Context, sessionID, otherUserID string, readerIsMentor bool) error
	ListByParticipant(ctx context.Context, role models.Role, userID string) ([]models.ChatSession, error)
	SubscribeByParticipant(ctx context.Context, role models.Role, userID string) (<-chan []models.ChatSession, func(), error)
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	SubscribeMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, func(), error)
}

// FirestoreSessionRepository implements SessionRepository on the chats
// collection and its messages subcollection
type FirestoreSessionRepository struct {
	client *firestore.Client
}

// NewFirestoreSessionRepository creates a new FirestoreSessionRepository
func NewFirestoreSessionRepository(client *firestore.Client) *FirestoreSessionRepository {
	return &FirestoreSessionRepository{client: client}
}

func (r *FirestoreSessionRepository) col() *firestore.CollectionRef {
	return r.client.Collection(chatsCollection)
}

func (r *FirestoreSessionRepository) messages(sessionID string) *firestore.CollectionRef {
	return r.col().Doc(sessionID).Collection(chatMessagesSubpath)
}

func roleField(role models.Role) string {
	if role == models.RoleMentor {
		return "mentorId"
	}
	return "studentId"
}

func counterField(forMentor bool) string {
	if forMentor {
		return "unreadForMentor"
	}
	return "unreadForStudent"
}

// FindByParticipants looks up the session for an exact (student, mentor) pair.
func (r *FirestoreSessionRepository) FindByParticipants(ctx context.Context, studentID, mentorID string) (*models.ChatSession, error) {
	it := r.col().
		Where("studentId", "==", studentID).
		Where("mentorId", "==", mentorID).
		Limit(1).
		Documents(ctx)
	defer it.Stop()

	doc, err := it.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(doc)
}

// Get resolves a session by document id.
func (r *FirestoreSessionRepository) Get(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	doc, err := r.col().Doc(sessionID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(doc)
}

// Create stores a new session document and returns its id.
func (r *FirestoreSessionRepository) Create(ctx context.Context, session *models.ChatSession) (string, error) {
	ref, _, err := r.col().Add(ctx, session)
	if err != nil {
		return "", err
	}
	session.ID = ref.ID
	return ref.ID, nil
}

// AppendMessage stores a message under the session with the caller-chosen id.
func (r *FirestoreSessionRepository) AppendMessage(ctx context.Context, sessionID string, message *models.ChatMessage) error {
	_, err := r.messages(sessionID).Doc(message.ID).Create(ctx, message)
	return err
}

// UpdateOnSend bumps the last-message summary and the receiver's unread
// counter. Counters are blind increments; concurrent senders both land.
func (r *FirestoreSessionRepository) UpdateOnSend(ctx context.Context, sessionID, lastMessage string, timestamp int64, receiverIsMentor bool) error {
	_, err := r.col().Doc(sessionID).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: lastMessage},
		{Path: "lastMessageTimestamp", Value: timestamp},
		{Path: counterField(receiverIsMentor), Value: firestore.Increment(1)},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// MarkRead flags every message from the other participant as read and resets
// the reader's unread counter to zero, all inside one transaction.
func (r *FirestoreSessionRepository) MarkRead(ctx context.Context, sessionID, otherUserID string, readerIsMentor bool) error {
	query := r.messages(sessionID).
		Where("senderId", "==", otherUserID).
		Where("isRead", "==", false)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		it := tx.Documents(query)
		defer it.Stop()

		var refs []*firestore.DocumentRef
		for {
			doc, err := it.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}
			refs = append(refs, doc.Ref)
		}
		for _, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{{Path: "isRead", Value: true}}); err != nil {
				return err
			}
		}
		// Reset unconditionally, even when no message needed flagging.
		return tx.Update(r.col().Doc(sessionID), []firestore.Update{
			{Path: counterField(readerIsMentor), Value: 0},
		})
	})
}

// ListByParticipant returns the user's sessions, newest activity first.
func (r *FirestoreSessionRepository) ListByParticipant(ctx context.Context, role models.Role, userID string) ([]models.ChatSession, error) {
	it := r.participantQuery(role, userID).Documents(ctx)
	defer it.Stop()
	return decodeSessions(it)
}

// SubscribeByParticipant emits the user's session list on every change.
func (r *FirestoreSessionRepository) SubscribeByParticipant(ctx context.Context, role models.Role, userID string) (<-chan []models.ChatSession, func(), error) {
	query := r.participantQuery(role, userID)
	return subscribeQuery(ctx, query, decodeSessions, "chat session listener failed, retrying")
}

func (r *FirestoreSessionRepository) participantQuery(role models.Role, userID string) firestore.Query {
	return r.col().
		Where(roleField(role), "==", userID).
		OrderBy("lastMessageTimestamp", firestore.Desc)
}

// ListMessages returns the most recent messages of a session, newest first.
func (r *FirestoreSessionRepository) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	it := r.messagesQuery(sessionID).Documents(ctx)
	defer it.Stop()
	return decodeMessages(it)
}

// SubscribeMessages emits the most recent messages on every change.
func (r *FirestoreSessionRepository) SubscribeMessages(ctx context.Context, sessionID string) (<-chan []models.ChatMessage, func(), error) {
	query := r.messagesQuery(sessionID)
	return subscribeQuery(ctx, query, decodeMessages, "chat message listener failed, retrying")
}

func (r *FirestoreSessionRepository) messagesQuery(sessionID string) firestore.Query {
	return r.messages(sessionID).
		OrderBy("timestamp", firestore.Desc).
		Limit(recentMessagesLimit)
}

// subscribeQuery runs a snapshot listener for the query, decoding each
// snapshot with decode and re-establishing the listener after failures.
func subscribeQuery[T any](ctx context.Context, query firestore.Query, decode func(*firestore.DocumentIterator) ([]T, error), failMsg string) (<-chan []T, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []T, 1)

	go func() {
		defer close(out)
		for {
			err := listenQuery(ctx, query, decode, out)
			if err != nil {
				if status.Code(err) == codes.Canceled || ctx.Err() != nil {
					return
				}
				logger.Log.WithError(err).Warn(failMsg)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(listenerRetryInterval):
			}
		}
	}()

	return out, cancel, nil
}

func listenQuery[T any](ctx context.Context, query firestore.Query, decode func(*firestore.DocumentIterator) ([]T, error), out chan<- []T) error {
	snaps := query.Snapshots(ctx)
	defer snaps.Stop()

	for {
		snap, err := snaps.Next()
		if err != nil {
			return err
		}
		items, err := decode(snap.Documents)
		if err != nil {
			return err
		}
		select {
		case out <- items:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func decodeSession(doc *firestore.DocumentSnapshot) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := doc.DataTo(&session); err != nil {
		return nil, err
	}
	session.ID = doc.Ref.ID
	return &session, nil
}

func decodeSessions(it *firestore.DocumentIterator) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		session, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func decodeMessages(it *firestore.DocumentIterator) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var message models.ChatMessage
		if err := doc.DataTo(&message); err != nil {
			return nil, err
		}
		message.ID = doc.Ref.ID
		messages = append(messages, message)
	}
	return messages, nil
}

package repositories

import (
	"context"
	"reflect"
	"time"

	"firebase.google.com/go/v4/db"
	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/pkg/logger"
)

const messagesPath = "messages"

// MessageRepository defines the interface for raw direct-message records in
// the Realtime Database.
type MessageRepository interface {
	GetConversations(ctx context.Context) (map[string]models.Conversation, error)
	Subscribe(ctx context.Context) (<-chan map[string]models.Conversation, func(), error)
	Append(ctx context.Context, conversationID string, record *models.MessageRecord) (string, error)
	MarkConversationsRead(ctx context.Context, userID string) error
}

// RealtimeMessageRepository implements MessageRepository on the
// messages/{conversationID}/{pushKey} tree.
//
// The Go Admin SDK has no streaming listener for the Realtime Database, so
// Subscribe polls the tree and emits whenever the value changed.
type RealtimeMessageRepository struct {
	client   *db.Client
	interval time.Duration
}

// NewRealtimeMessageRepository creates a new RealtimeMessageRepository
func NewRealtimeMessageRepository(client *db.Client, pollInterval time.Duration) *RealtimeMessageRepository {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &RealtimeMessageRepository{client: client, interval: pollInterval}
}

func (r *RealtimeMessageRepository) root() *db.Ref {
	return r.client.NewRef(messagesPath)
}

// GetConversations reads the whole message tree.
func (r *RealtimeMessageRepository) GetConversations(ctx context.Context) (map[string]models.Conversation, error) {
	var convs map[string]models.Conversation
	if err := r.root().Get(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Subscribe emits the full conversation map whenever it changes. Read errors
// are logged and the last good value is retained; the stream only terminates
// when the returned disposer (or ctx) cancels it.
func (r *RealtimeMessageRepository) Subscribe(ctx context.Context) (<-chan map[string]models.Conversation, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan map[string]models.Conversation, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		var last map[string]models.Conversation
		emitted := false
		for {
			convs, err := r.GetConversations(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Log.WithError(err).Warn("message poll failed, keeping last value")
			} else if !emitted || !reflect.DeepEqual(convs, last) {
				last = convs
				emitted = true
				select {
				case out <- convs:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out, cancel, nil
}

// Append pushes a message record onto the conversation and returns the key.
func (r *RealtimeMessageRepository) Append(ctx context.Context, conversationID string, record *models.MessageRecord) (string, error) {
	ref, err := r.root().Child(conversationID).Push(ctx, record)
	if err != nil {
		return "", err
	}
	return ref.Key, nil
}

// MarkConversationsRead flags every unread inbound message across all of the
// user's conversations in one multi-path update, which the Realtime Database
// applies atomically.
func (r *RealtimeMessageRepository) MarkConversationsRead(ctx context.Context, userID string) error {
	convs, err := r.GetConversations(ctx)
	if err != nil {
		return err
	}
	updates := BuildReadUpdates(convs, userID)
	if len(updates) == 0 {
		return nil
	}
	return r.root().Update(ctx, updates)
}

// BuildReadUpdates returns the multi-path patch that marks every unread
// inbound message of the user as read.
func BuildReadUpdates(convs map[string]models.Conversation, userID string) map[string]interface{} {
	updates := make(map[string]interface{})
	for convID, conv := range convs {
		if !models.ConversationHasUser(convID, userID) {
			continue
		}
		for key, record := range conv {
			if record.From != userID && !record.Read {
				updates[convID+"/"+key+"/read"] = true
			}
		}
	}
	return updates
}

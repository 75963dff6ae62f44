package repositories

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/raite-app/backend/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const notificationsCollection = "notifications"

// NotificationRepository defines the interface for raw notification events
type NotificationRepository interface {
	Create(ctx context.Context, event *models.NotificationEvent) (string, error)
	ListByRecipient(ctx context.Context, userID string) ([]models.NotificationEvent, error)
	Subscribe(ctx context.Context, userID string) (<-chan []models.NotificationEvent, func(), error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// FirestoreNotificationRepository implements NotificationRepository on the
// notifications collection
type FirestoreNotificationRepository struct {
	client *firestore.Client
}

// NewFirestoreNotificationRepository creates a new FirestoreNotificationRepository
func NewFirestoreNotificationRepository(client *firestore.Client) *FirestoreNotificationRepository {
	return &FirestoreNotificationRepository{client: client}
}

func (r *FirestoreNotificationRepository) col() *firestore.CollectionRef {
	return r.client.Collection(notificationsCollection)
}

// Create appends a new event document and returns its store-assigned id.
func (r *FirestoreNotificationRepository) Create(ctx context.Context, event *models.NotificationEvent) (string, error) {
	ref, _, err := r.col().Add(ctx, event)
	if err != nil {
		return "", err
	}
	event.ID = ref.ID
	return ref.ID, nil
}

// ListByRecipient returns every event addressed to the user, newest first.
func (r *FirestoreNotificationRepository) ListByRecipient(ctx context.Context, userID string) ([]models.NotificationEvent, error) {
	it := r.col().
		Where("toUserId", "==", userID).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer it.Stop()

	return decodeEvents(it)
}

// Subscribe emits the user's full event list on every snapshot change.
// Listener errors are logged and the listener is re-established; the stream
// only terminates when the returned disposer (or ctx) cancels it.
func (r *FirestoreNotificationRepository) Subscribe(ctx context.Context, userID string) (<-chan []models.NotificationEvent, func(), error) {
	query := r.col().Where("toUserId", "==", userID)
	return subscribeQuery(ctx, query, decodeEvents, "notification listener failed, retrying")
}

func decodeEvents(it *firestore.DocumentIterator) ([]models.NotificationEvent, error) {
	var events []models.NotificationEvent
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var event models.NotificationEvent
		if err := doc.DataTo(&event); err != nil {
			return nil, err
		}
		event.ID = doc.Ref.ID
		events = append(events, event)
	}
	return events, nil
}

// MarkRead flags a single event as read. Marking an already-read event is a
// no-op success.
func (r *FirestoreNotificationRepository) MarkRead(ctx context.Context, notificationID string) error {
	_, err := r.col().Doc(notificationID).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// MarkAllRead flags every unread event of the user inside one transaction so
// a partial write never leaves the collection half-updated.
func (r *FirestoreNotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query := r.col().
		Where("toUserId", "==", userID).
		Where("read", "==", false)

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
			if err := tx.Update(ref, []firestore.Update{{Path: "read", Value: true}}); err != nil {
				return err
			}
		}
		return nil
	})
}

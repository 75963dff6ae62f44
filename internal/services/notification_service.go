package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/raite-app/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// NotificationService merges the two notification sources (structured event
// documents in Firestore and raw chat message records in the Realtime
// Database) into one de-duplicated feed with a single unread indicator.
//
// Constructed once at startup with injected repositories; no package-level
// state.
type NotificationService struct {
	events   repositories.NotificationRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository

	mu   sync.Mutex
	subs map[*feedSub]struct{}
}

// readNudge tells an active subscription that one source was just marked
// fully read, so it can update its cached view without waiting for the
// store to re-emit.
type readNudge struct {
	events   bool
	messages bool
}

type feedSub struct {
	userID string
	nudge  chan readNudge
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(events repositories.NotificationRepository, messages repositories.MessageRepository, users repositories.UserRepository) *NotificationService {
	return &NotificationService{
		events:   events,
		messages: messages,
		users:    users,
		subs:     make(map[*feedSub]struct{}),
	}
}

// Subscribe streams the merged feed for the user. Every emission recomputes
// the whole update from the latest value of both sources, so the unread flag
// never reflects a stale snapshot of the other source. One empty or failing
// source degrades the feed to the other source's data; it never fails the
// stream. The returned disposer must be called to release the underlying
// listeners.
func (s *NotificationService) Subscribe(ctx context.Context, userID string) (<-chan models.FeedUpdate, func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	eventCh, stopEvents, err := s.events.Subscribe(ctx, userID)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	messageCh, stopMessages, err := s.messages.Subscribe(ctx)
	if err != nil {
		stopEvents()
		cancel()
		return nil, nil, err
	}

	sub := &feedSub{userID: userID, nudge: make(chan readNudge, 4)}
	s.register(sub)

	out := make(chan models.FeedUpdate, 1)
	go func() {
		defer close(out)

		var events []models.NotificationEvent
		var convs map[string]models.Conversation

		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-eventCh:
				if !ok {
					eventCh = nil
					continue
				}
				events = batch
			case batch, ok := <-messageCh:
				if !ok {
					messageCh = nil
					continue
				}
				convs = batch
			case n := <-sub.nudge:
				if n.events {
					events = markEventsRead(events)
				}
				if n.messages {
					convs = markConversationsRead(convs, userID)
				}
			}

			update := s.buildUpdate(ctx, userID, events, convs)
			select {
			case out <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	disposer := func() {
		s.unregister(sub)
		stopEvents()
		stopMessages()
		cancel()
	}
	return out, disposer, nil
}

// Snapshot computes the merged feed once, without holding a subscription.
func (s *NotificationService) Snapshot(ctx context.Context, userID string) (models.FeedUpdate, error) {
	events, eventErr := s.events.ListByRecipient(ctx, userID)
	convs, msgErr := s.messages.GetConversations(ctx)

	if eventErr != nil && msgErr != nil {
		return models.FeedUpdate{}, errors.Join(eventErr, msgErr)
	}
	if eventErr != nil {
		logger.Log.WithError(eventErr).Warn("notification events unavailable, serving messages only")
	}
	if msgErr != nil {
		logger.Log.WithError(msgErr).Warn("message records unavailable, serving events only")
	}

	return s.buildUpdate(ctx, userID, events, convs), nil
}

func (s *NotificationService) buildUpdate(ctx context.Context, userID string, events []models.NotificationEvent, convs map[string]models.Conversation) models.FeedUpdate {
	messages := s.ComputeMessageNotifications(ctx, convs, userID)
	return models.FeedUpdate{
		Grouped:   GroupNotifications(events),
		Messages:  messages,
		HasUnread: hasUnread(events, messages),
	}
}

func hasUnread(events []models.NotificationEvent, messages []models.MessageNotification) bool {
	for _, event := range events {
		if !event.Read {
			return true
		}
	}
	return len(messages) > 0
}

// GroupNotifications collapses raw events into feed entries. The group key
// is (type, contentId, fromUserId); the entry carries the fields of the most
// recent member, its timestamp is the group maximum, and count is the group
// size. The result is sorted descending by timestamp.
func GroupNotifications(events []models.NotificationEvent) []models.GroupedNotification {
	type groupKey struct {
		typ     models.NotificationType
		content string
		from    string
	}

	groups := make(map[groupKey]*models.GroupedNotification)
	for _, event := range events {
		k := groupKey{event.Type, event.ContentID, event.FromUserID}
		g, ok := groups[k]
		if !ok {
			groups[k] = &models.GroupedNotification{NotificationEvent: event, Count: 1}
			continue
		}
		g.Count++
		if event.Timestamp >= g.Timestamp {
			g.NotificationEvent = event
		}
	}

	grouped := make([]models.GroupedNotification, 0, len(groups))
	for _, g := range groups {
		grouped = append(grouped, *g)
	}
	sort.SliceStable(grouped, func(i, j int) bool {
		return grouped[i].Timestamp > grouped[j].Timestamp
	})
	return grouped
}

// SummarizeConversations reduces the raw message tree to one entry per
// conversation of the user that holds unread inbound messages. Pure; display
// info is attached separately.
func SummarizeConversations(convs map[string]models.Conversation, userID string) []models.MessageNotification {
	var notifs []models.MessageNotification
	for convID, conv := range convs {
		if !models.ConversationHasUser(convID, userID) {
			continue
		}

		var latest models.MessageRecord
		unread := 0
		for _, record := range conv {
			if record.From == userID || record.Read {
				continue
			}
			unread++
			if record.Timestamp >= latest.Timestamp {
				latest = record
			}
		}
		if unread == 0 {
			continue
		}

		notifs = append(notifs, models.MessageNotification{
			ChatID:      convID,
			UserID:      models.OtherParticipant(convID, userID),
			LastMessage: latest.Text,
			UnreadCount: unread,
			Timestamp:   latest.Timestamp,
		})
	}

	sort.SliceStable(notifs, func(i, j int) bool {
		return notifs[i].Timestamp > notifs[j].Timestamp
	})
	return notifs
}

// ComputeMessageNotifications summarizes the user's unread conversations and
// resolves the other participant's display info. Lookups run concurrently
// and a failed lookup degrades to the bare user id.
func (s *NotificationService) ComputeMessageNotifications(ctx context.Context, convs map[string]models.Conversation, userID string) []models.MessageNotification {
	notifs := SummarizeConversations(convs, userID)
	if len(notifs) == 0 {
		return notifs
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range notifs {
		i := i
		g.Go(func() error {
			info, err := s.users.GetDisplayInfo(gctx, notifs[i].UserID)
			if err != nil {
				logger.Log.WithError(err).WithField("user_id", notifs[i].UserID).Debug("display info lookup failed")
				return nil
			}
			notifs[i].UserName = info.Name
			notifs[i].UserPhoto = info.PhotoURL
			return nil
		})
	}
	_ = g.Wait()
	return notifs
}

// Create appends a new notification event. Self-notifications are suppressed
// silently: no write, no error.
func (s *NotificationService) Create(ctx context.Context, event *models.NotificationEvent) error {
	if event.ToUserID == event.FromUserID {
		return nil
	}
	event.ContentText = models.TruncateContent(event.ContentText)
	event.Timestamp = time.Now().UnixMilli()
	event.Read = false
	_, err := s.events.Create(ctx, event)
	return err
}

// CreateForSender resolves the sender's display info and appends the event
// described by the request. The write error is surfaced to the caller.
func (s *NotificationService) CreateForSender(ctx context.Context, fromUserID string, req models.CreateNotificationRequest) (*models.NotificationEvent, error) {
	info, err := s.users.GetDisplayInfo(ctx, fromUserID)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", fromUserID).Warn("sender lookup failed, notifying without display info")
		info = models.UserCompact{UID: fromUserID}
	}

	event := &models.NotificationEvent{
		Type:             req.Type,
		FromUserID:       fromUserID,
		FromUserName:     info.Name,
		FromUserPhoto:    info.PhotoURL,
		ToUserID:         req.ToUserID,
		ContentID:        req.ContentID,
		RelatedContentID: req.RelatedContentID,
		ContentText:      req.ContentText,
	}
	if err := s.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Notify is the best-effort producer entry point: a failed write is logged
// instead of failing the caller's main flow.
func (s *NotificationService) Notify(ctx context.Context, typ models.NotificationType, fromUserID, toUserID, contentID, relatedContentID, contentText string) {
	if toUserID == "" || toUserID == fromUserID {
		return
	}
	_, err := s.CreateForSender(ctx, fromUserID, models.CreateNotificationRequest{
		Type:             typ,
		ToUserID:         toUserID,
		ContentID:        contentID,
		RelatedContentID: relatedContentID,
		ContentText:      contentText,
	})
	if err != nil {
		logger.Log.WithError(err).Warn("notification create failed")
	}
}

// MarkAsRead flags one event as read; already-read events are a no-op.
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID string) error {
	return s.events.MarkRead(ctx, notificationID)
}

// MarkAllAsRead clears the unread state of both sources. Each store is one
// atomic batch; a failed store is reported while the other's success still
// stands, and active subscriptions are updated optimistically per succeeded
// store.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	var errs []error

	if err := s.events.MarkAllRead(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("notification events: %w", err))
	} else {
		s.nudgeSubs(userID, readNudge{events: true})
	}

	if err := s.messages.MarkConversationsRead(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("message records: %w", err))
	} else {
		s.nudgeSubs(userID, readNudge{messages: true})
	}

	return errors.Join(errs...)
}

func (s *NotificationService) register(sub *feedSub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
}

func (s *NotificationService) unregister(sub *feedSub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

func (s *NotificationService) nudgeSubs(userID string, n readNudge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.nudge <- n:
		default:
		}
	}
}

func markEventsRead(events []models.NotificationEvent) []models.NotificationEvent {
	updated := make([]models.NotificationEvent, len(events))
	for i, event := range events {
		event.Read = true
		updated[i] = event
	}
	return updated
}

func markConversationsRead(convs map[string]models.Conversation, userID string) map[string]models.Conversation {
	updated := make(map[string]models.Conversation, len(convs))
	for convID, conv := range convs {
		next := make(models.Conversation, len(conv))
		for key, record := range conv {
			if models.ConversationHasUser(convID, userID) && record.From != userID {
				record.Read = true
			}
			next[key] = record
		}
		updated[convID] = next
	}
	return updated
}

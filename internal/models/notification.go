package models

// NotificationType is the closed set of event kinds the feed understands.
type NotificationType string

const (
	TypeMessage             NotificationType = "message"
	TypePostLike            NotificationType = "post_like"
	TypePostComment         NotificationType = "post_comment"
	TypeForumQuestionLike   NotificationType = "forum_question_like"
	TypeForumQuestionComment NotificationType = "forum_question_comment"
	TypeForumAnswerLike     NotificationType = "forum_answer_like"
	TypeForumAnswerComment  NotificationType = "forum_answer_comment"
	TypeRaiteRequest        NotificationType = "raite_request"
	TypeRaiteAccepted       NotificationType = "raite_accepted"
	TypeRaiteCancelled      NotificationType = "raite_cancelled"
)

// MaxContentTextLen caps the preview text stored on an event.
const MaxContentTextLen = 100

// NotificationEvent is one raw per-action record stored in Firestore.
type NotificationEvent struct {
	ID               string           `json:"id" firestore:"-"`
	Type             NotificationType `json:"type" firestore:"type"`
	FromUserID       string           `json:"from_user_id" firestore:"fromUserId"`
	FromUserName     string           `json:"from_user_name" firestore:"fromUserName"`
	FromUserPhoto    string           `json:"from_user_photo,omitempty" firestore:"fromUserPhoto,omitempty"`
	ToUserID         string           `json:"to_user_id" firestore:"toUserId"`
	ContentID        string           `json:"content_id" firestore:"contentId"`
	RelatedContentID string           `json:"related_content_id,omitempty" firestore:"relatedContentId,omitempty"`
	ContentText      string           `json:"content_text,omitempty" firestore:"contentText,omitempty"`
	Timestamp        int64            `json:"timestamp" firestore:"timestamp"` // epoch milliseconds
	Read             bool             `json:"read" firestore:"read"`
}

// GroupedNotification collapses all events sharing (type, contentId,
// fromUserId) into a single feed entry with a count.
type GroupedNotification struct {
	NotificationEvent
	Count int `json:"count"`
}

// FeedUpdate is one emission of the merged notification feed.
type FeedUpdate struct {
	Grouped   []GroupedNotification `json:"grouped"`
	Messages  []MessageNotification `json:"messages"`
	HasUnread bool                  `json:"has_unread"`
}

// CreateNotificationRequest defines the request body for creating an event.
type CreateNotificationRequest struct {
	Type             NotificationType `json:"type" validate:"required"`
	ToUserID         string           `json:"to_user_id" validate:"required"`
	ContentID        string           `json:"content_id" validate:"required"`
	RelatedContentID string           `json:"related_content_id,omitempty"`
	ContentText      string           `json:"content_text,omitempty"`
}

// TruncateContent shortens preview text to MaxContentTextLen runes.
func TruncateContent(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxContentTextLen {
		return text
	}
	return string(runes[:MaxContentTextLen])
}

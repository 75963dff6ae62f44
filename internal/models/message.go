package models

import (
	"sort"
	"strings"
)

// MessageRecord is one direct message stored in the Realtime Database under
// messages/{conversationID}/{pushKey}.
type MessageRecord struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Read      bool   `json:"read"`
}

// Conversation maps push keys to message records for one thread.
type Conversation map[string]MessageRecord

// MessageNotification summarizes the unread inbound messages of one
// conversation for the notification feed. Derived, never persisted.
type MessageNotification struct {
	ChatID      string `json:"chat_id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	UserPhoto   string `json:"user_photo,omitempty"`
	LastMessage string `json:"last_message"`
	UnreadCount int    `json:"unread_count"`
	Timestamp   int64  `json:"timestamp"`
}

// ConversationID derives the thread id for a pair of users. The two ids are
// sorted before joining so both participants compute the same id.
func ConversationID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// ConversationHasUser reports whether the given user participates in the
// conversation identified by id.
func ConversationHasUser(conversationID, userID string) bool {
	for _, part := range strings.Split(conversationID, "_") {
		if part == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant of the conversation that is not
// the given user, or "" when the id does not contain the user.
func OtherParticipant(conversationID, userID string) string {
	parts := strings.Split(conversationID, "_")
	if len(parts) != 2 {
		return ""
	}
	switch userID {
	case parts[0]:
		return parts[1]
	case parts[1]:
		return parts[0]
	}
	return ""
}

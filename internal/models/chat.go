package models

// Role selects which side of a mentoring session a user is on.
type Role string

const (
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
)

// ChatSession is a persistent mentor/student thread stored in Firestore.
// The unread counters are kept per recipient so that one participant reading
// the thread never clears the other's badge.
type ChatSession struct {
	ID                   string `json:"id" firestore:"-"`
	MentorID             string `json:"mentor_id" firestore:"mentorId"`
	StudentID            string `json:"student_id" firestore:"studentId"`
	LastMessage          string `json:"last_message" firestore:"lastMessage"`
	LastMessageTimestamp int64  `json:"last_message_timestamp" firestore:"lastMessageTimestamp"`
	UnreadForMentor      int    `json:"unread_for_mentor" firestore:"unreadForMentor"`
	UnreadForStudent     int    `json:"unread_for_student" firestore:"unreadForStudent"`

	// Display info of the participants, attached at read time.
	Mentor  *UserCompact `json:"mentor,omitempty" firestore:"-"`
	Student *UserCompact `json:"student,omitempty" firestore:"-"`
}

// Participant reports whether the user belongs to the session.
func (s *ChatSession) Participant(userID string) bool {
	return userID == s.MentorID || userID == s.StudentID
}

// OtherParticipant returns the id of the participant that is not userID.
func (s *ChatSession) OtherParticipant(userID string) string {
	if userID == s.MentorID {
		return s.StudentID
	}
	return s.MentorID
}

// UnreadFor returns the unread counter owned by the given participant.
func (s *ChatSession) UnreadFor(userID string) int {
	if userID == s.MentorID {
		return s.UnreadForMentor
	}
	return s.UnreadForStudent
}

// ChatMessage is one message in a session's messages subcollection.
type ChatMessage struct {
	ID        string `json:"id" firestore:"-"`
	SenderID  string `json:"sender_id" firestore:"senderId"`
	Text      string `json:"text" firestore:"text"`
	Timestamp int64  `json:"timestamp" firestore:"timestamp"` // epoch milliseconds
	IsRead    bool   `json:"is_read" firestore:"isRead"`
}

// StartSessionRequest defines the request body for starting a mentoring chat.
type StartSessionRequest struct {
	MentorID string `json:"mentor_id" validate:"required"`
	Message  string `json:"message" validate:"required,min=1,max=2000"`
}

// SendMessageRequest defines the request body for sending a chat message.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

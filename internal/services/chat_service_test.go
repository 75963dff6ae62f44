package services

import (
	"context"
	"testing"
	"time"

	"github.com/raite-app/backend/internal/models"
	"github.com/raite-app/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatService() (*ChatService, *fakeSessionRepo, *fakeNotificationRepo) {
	sessions := newFakeSessionRepo()
	events := newFakeNotificationRepo()
	messages := newFakeMessageRepo()
	users := newFakeUserRepo(
		models.UserCompact{UID: "student1", Name: "Sara", PhotoURL: "https://img/sara.png"},
		models.UserCompact{UID: "mentor1", Name: "Marco"},
	)
	notifier := NewNotificationService(events, messages, users)
	return NewChatService(sessions, users, notifier), sessions, events
}

func TestStartOrReuseSessionCreatesThenReuses(t *testing.T) {
	svc, sessions, _ := newTestChatService()
	ctx := context.Background()

	first, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Sigues ahí?")
	require.NoError(t, err)
	assert.Equal(t, first, second, "the pair owns exactly one session")

	session, err := sessions.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, session.UnreadForMentor)
	assert.Equal(t, 0, session.UnreadForStudent)
	assert.Equal(t, "Sigues ahí?", session.LastMessage)

	msgs, err := sessions.ListMessages(ctx, first)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestStartOrReuseSessionScenarioFirstContact(t *testing.T) {
	svc, sessions, events := newTestChatService()
	ctx := context.Background()

	id, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)

	session, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, session.UnreadForMentor)
	assert.Equal(t, "Hola", session.LastMessage)

	feed, err := events.ListByRecipient(ctx, "mentor1")
	require.NoError(t, err)
	grouped := GroupNotifications(feed)
	require.Len(t, grouped, 1)
	assert.Equal(t, models.TypeMessage, grouped[0].Type)
	assert.Equal(t, 1, grouped[0].Count)
	assert.Equal(t, "Sara", grouped[0].FromUserName)
}

func TestStartOrReuseSessionEmptyMessage(t *testing.T) {
	svc, sessions, _ := newTestChatService()

	id, err := svc.StartOrReuseSession(context.Background(), "student1", "mentor1", "   \n\t")
	require.NoError(t, err, "empty message is a silent no-op")
	assert.Empty(t, id)
	assert.Empty(t, sessions.sessions, "no session is created")
}

func TestSendMessageUnknownSession(t *testing.T) {
	svc, _, _ := newTestChatService()

	_, err := svc.SendMessage(context.Background(), "missing", "student1", "hello")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSendMessageNonParticipant(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()

	id, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, id, "intruder", "let me in")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSendMessageCountsForReceiver(t *testing.T) {
	svc, sessions, events := newTestChatService()
	ctx := context.Background()

	id, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)

	msgID, err := svc.SendMessage(ctx, id, "mentor1", "Bienvenida!")
	require.NoError(t, err)
	require.NotEmpty(t, msgID)

	session, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, session.UnreadForMentor, "student's earlier message still pending")
	assert.Equal(t, 1, session.UnreadForStudent, "mentor's reply counts against the student")
	assert.Equal(t, "Bienvenida!", session.LastMessage)

	feed, err := events.ListByRecipient(ctx, "student1")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.TypeMessage, feed[0].Type)
	assert.Equal(t, id, feed[0].ContentID)
}

func TestMarkMessagesAsReadResetsCounter(t *testing.T) {
	tests := []struct {
		name     string
		messages int
	}{
		{"one pending message", 1},
		{"several pending messages", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sessions, _ := newTestChatService()
			ctx := context.Background()

			id, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
			require.NoError(t, err)
			for i := 1; i < tt.messages; i++ {
				_, err := svc.SendMessage(ctx, id, "student1", "otra vez")
				require.NoError(t, err)
			}

			require.NoError(t, svc.MarkMessagesAsRead(ctx, id, "mentor1"))

			session, err := sessions.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 0, session.UnreadForMentor)
			assert.Equal(t, 0, session.UnreadForStudent)

			msgs, err := sessions.ListMessages(ctx, id)
			require.NoError(t, err)
			require.Len(t, msgs, tt.messages)
			for _, msg := range msgs {
				assert.True(t, msg.IsRead)
			}

			// Marking with nothing pending still resets unconditionally.
			require.NoError(t, svc.MarkMessagesAsRead(ctx, id, "mentor1"))
			session, err = sessions.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 0, session.UnreadForMentor)
		})
	}
}

func TestMarkMessagesAsReadNonParticipantNoop(t *testing.T) {
	svc, sessions, _ := newTestChatService()
	ctx := context.Background()

	id, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)

	require.NoError(t, svc.MarkMessagesAsRead(ctx, id, "intruder"))

	session, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, session.UnreadForMentor, "counters untouched")

	msgs, err := sessions.ListMessages(ctx, id)
	require.NoError(t, err)
	assert.False(t, msgs[0].IsRead)
}

func TestListSessionsEnriched(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()

	_, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx, "mentor1", models.RoleMentor)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].Mentor)
	require.NotNil(t, sessions[0].Student)
	assert.Equal(t, "Marco", sessions[0].Mentor.Name)
	assert.Equal(t, "Sara", sessions[0].Student.Name)
}

func TestListSessionsOrderedByActivity(t *testing.T) {
	svc, _, _ := newTestChatService()
	ctx := context.Background()

	first, err := svc.StartOrReuseSession(ctx, "student1", "mentor1", "Hola")
	require.NoError(t, err)
	second, err := svc.StartOrReuseSession(ctx, "student2", "mentor1", "Buenas")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // millisecond timestamps must differ for the order check
	_, err = svc.SendMessage(ctx, first, "student1", "una más")
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx, "mentor1", models.RoleMentor)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID, "latest activity first")
	assert.Equal(t, second, sessions[1].ID)
}

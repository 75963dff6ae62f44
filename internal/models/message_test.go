package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDOrderIndependent(t *testing.T) {
	assert.Equal(t, ConversationID("ana", "ben"), ConversationID("ben", "ana"))
	assert.Equal(t, "ana_ben", ConversationID("ben", "ana"))
}

func TestConversationHasUser(t *testing.T) {
	id := ConversationID("ana", "ben")
	assert.True(t, ConversationHasUser(id, "ana"))
	assert.True(t, ConversationHasUser(id, "ben"))
	assert.False(t, ConversationHasUser(id, "an"), "prefix of a participant id does not match")
	assert.False(t, ConversationHasUser(id, "mia"))
}

func TestOtherParticipant(t *testing.T) {
	id := ConversationID("ana", "ben")
	assert.Equal(t, "ben", OtherParticipant(id, "ana"))
	assert.Equal(t, "ana", OtherParticipant(id, "ben"))
	assert.Empty(t, OtherParticipant(id, "mia"))
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "short", TruncateContent("short"))
	long := strings.Repeat("á", MaxContentTextLen+20)
	truncated := TruncateContent(long)
	assert.Equal(t, MaxContentTextLen, len([]rune(truncated)), "truncation counts runes, not bytes")
}

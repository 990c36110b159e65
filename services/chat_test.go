package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

func TestSendChatToWorld(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	resp, err := f.chat.Send("u1", dto.SendChatRequest{Message: "hello", Room: shared.ChatScopeWorld})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, shared.ChatScopeWorld, resp.Room)
	assert.NotEmpty(t, resp.ID)
}

func TestSendChatTrimsWhitespace(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	resp, err := f.chat.Send("u1", dto.SendChatRequest{Message: "  hi there  ", Room: shared.ChatScopeWorld})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Message)
}

func TestSendChatEmptyMessageRejected(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	_, err := f.chat.Send("u1", dto.SendChatRequest{Message: "   ", Room: shared.ChatScopeWorld})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestSendChatUnknownScopeRejected(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	for _, room := range []string{"lobby", "cinema_", "disco"} {
		_, err := f.chat.Send("u1", dto.SendChatRequest{Message: "hi", Room: room})
		requireStatus(t, err, http.StatusBadRequest)
	}
}

func TestSendChatWithoutProfileForbidden(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.chat.Send("ghost", dto.SendChatRequest{Message: "hi", Room: shared.ChatScopeWorld})
	requireStatus(t, err, http.StatusForbidden)
}

func TestSendChatCinemaScope(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	resp, err := f.chat.Send("u1", dto.SendChatRequest{Message: "great film", Room: "cinema_main"})
	require.NoError(t, err)
	assert.Equal(t, "cinema_main", resp.Room)
}

func TestChatHistoryChronologicalAndScoped(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	for _, m := range []string{"first", "second", "third"} {
		_, err := f.chat.Send("u1", dto.SendChatRequest{Message: m, Room: shared.ChatScopeWorld})
		require.NoError(t, err)
	}
	_, err := f.chat.Send("u1", dto.SendChatRequest{Message: "screening only", Room: "cinema_main"})
	require.NoError(t, err)

	history, err := f.chat.History(shared.ChatScopeWorld, 0)
	require.NoError(t, err)
	require.Len(t, history.Messages, 3)
	assert.Equal(t, "first", history.Messages[0].Message)
	assert.Equal(t, "third", history.Messages[2].Message)
}

func TestChatHistoryLimit(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	for i := 0; i < 5; i++ {
		_, err := f.chat.Send("u1", dto.SendChatRequest{Message: "msg", Room: shared.ChatScopeWorld})
		require.NoError(t, err)
	}

	history, err := f.chat.History(shared.ChatScopeWorld, 2)
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)
}

func TestChatHistoryDefaultsToWorld(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	history, err := f.chat.History("", 0)
	require.NoError(t, err)
	assert.Equal(t, shared.ChatScopeWorld, history.Room)
}

package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

func createProfile(t *testing.T, f *worldFixture, userID, username string) *model.WorldProfile {
	t.Helper()

	profile := &model.WorldProfile{
		ID:          "wp_" + userID,
		UserID:      userID,
		Username:    username,
		CurrentRoom: shared.RoomLobby,
		Level:       1,
		LastSeen:    time.Now(),
	}
	require.NoError(t, f.store.CreateProfile(profile))
	return profile
}

func TestCalculateLevelCurve(t *testing.T) {
	svc := &QuestService{}

	assert.Equal(t, 1, svc.calculateLevel(0))
	assert.Equal(t, 1, svc.calculateLevel(99))
	assert.Equal(t, 2, svc.calculateLevel(100))
	assert.Equal(t, 2, svc.calculateLevel(249))
	assert.Equal(t, 3, svc.calculateLevel(250))

	assert.Equal(t, 100, svc.XPForNextLevel(0))
	assert.Equal(t, 150, svc.XPForNextLevel(100))
}

func TestTrackActionUnknownTypeRejected(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	_, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: "teleport"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestTrackActionWithoutProfileForbidden(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.quests.TrackAction("ghost", dto.TrackActionRequest{ActionType: shared.ActionDance})
	requireStatus(t, err, http.StatusForbidden)
}

func TestTrackActionCompletesOnceQuest(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	resp, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionFirstLogin})
	require.NoError(t, err)
	require.Len(t, resp.Updated, 1)
	assert.True(t, resp.Updated[0].Completed)
	assert.Equal(t, "first_login", resp.Updated[0].QuestCode)
	assert.Equal(t, 50, resp.TotalXPEarned)
	assert.Equal(t, 50, resp.XP)
	assert.Equal(t, 1, resp.Level)
}

func TestTrackActionReplayNeverDoubleAwards(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	_, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionFirstLogin})
	require.NoError(t, err)

	resp, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionFirstLogin})
	require.NoError(t, err)
	assert.Empty(t, resp.Updated)
	assert.Equal(t, 0, resp.TotalXPEarned)
	assert.Equal(t, 50, resp.XP)
}

func TestTrackActionAccumulatesProgress(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	for i := 1; i <= 4; i++ {
		resp, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionChatMessage})
		require.NoError(t, err)
		require.Len(t, resp.Updated, 1)
		assert.False(t, resp.Updated[0].Completed)
		assert.Equal(t, i, resp.Updated[0].Progress)
		assert.Equal(t, 5, resp.Updated[0].Requirement)
	}

	resp, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionChatMessage})
	require.NoError(t, err)
	require.Len(t, resp.Updated, 1)
	assert.True(t, resp.Updated[0].Completed)
	assert.Equal(t, 60, resp.TotalXPEarned)
}

func TestTrackActionTimeSpentUsesMinutes(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	resp, err := f.quests.TrackAction("u1", dto.TrackActionRequest{
		ActionType: shared.ActionTimeSpent,
		ActionData: map[string]interface{}{"minutes": float64(45)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Updated, 1)
	assert.True(t, resp.Updated[0].Completed)
	assert.Equal(t, 100, resp.TotalXPEarned)
}

func TestTrackActionLevelsUp(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	// first_login (50) + time_spent (100) crosses the 100 XP boundary.
	_, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionFirstLogin})
	require.NoError(t, err)

	resp, err := f.quests.TrackAction("u1", dto.TrackActionRequest{
		ActionType: shared.ActionTimeSpent,
		ActionData: map[string]interface{}{"minutes": float64(30)},
	})
	require.NoError(t, err)
	assert.Equal(t, 150, resp.XP)
	assert.Equal(t, 2, resp.Level)
}

func TestGetQuestLog(t *testing.T) {
	f := newWorldFixture(t)
	createProfile(t, f, "u1", "alice")

	_, err := f.quests.TrackAction("u1", dto.TrackActionRequest{ActionType: shared.ActionDance})
	require.NoError(t, err)

	log, err := f.quests.GetQuestLog("u1")
	require.NoError(t, err)
	require.Len(t, log.Quests, len(defaultQuests))

	var dance dto.QuestProgressResponse
	for _, q := range log.Quests {
		if q.QuestCode == "dance_10" {
			dance = q
		}
	}
	assert.Equal(t, 1, dance.Progress)
	assert.Equal(t, 10, dance.Requirement)
	assert.False(t, dance.Completed)
}

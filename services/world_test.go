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

func TestEnterWorldCreatesProfileAndVisit(t *testing.T) {
	f := newWorldFixture(t)

	resp := f.enterWorld(t, "u1", "alice")
	assert.Equal(t, "alice", resp.Profile.Username)
	assert.Equal(t, shared.RoomLobby, resp.Profile.Room)
	assert.True(t, resp.Profile.IsOnline)
	assert.NotEmpty(t, resp.VisitID)
	assert.NotEmpty(t, resp.SocketURL)
	assert.False(t, resp.OnboardingOK)

	visit, err := f.store.GetVisit(resp.VisitID)
	require.NoError(t, err)
	assert.Nil(t, visit.SessionEnd)
}

func TestEnterWorldReentryKeepsProfile(t *testing.T) {
	f := newWorldFixture(t)

	first := f.enterWorld(t, "u1", "alice")

	again, err := f.world.EnterWorld("u1", dto.EnterWorldRequest{})
	require.NoError(t, err)
	assert.Equal(t, first.Profile.UserID, again.Profile.UserID)
	assert.NotEqual(t, first.VisitID, again.VisitID)
	assert.True(t, again.OnboardingOK)
}

func TestEnterWorldUsernameConflict(t *testing.T) {
	f := newWorldFixture(t)

	f.enterWorld(t, "u1", "alice")
	f.createUser(t, "u2", "bob")

	_, err := f.world.EnterWorld("u2", dto.EnterWorldRequest{Username: "alice"})
	requireStatus(t, err, http.StatusConflict)
}

func TestEnterWorldUnknownUser(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.world.EnterWorld("nobody", dto.EnterWorldRequest{})
	requireStatus(t, err, http.StatusNotFound)
}

func TestLeaveWorldUsesServerDurationOnSkew(t *testing.T) {
	f := newWorldFixture(t)
	f.createUser(t, "u1", "alice")
	createProfile(t, f, "u1", "alice")

	visit := &model.WorldVisit{
		ID:           "v1",
		UserID:       "u1",
		SessionStart: time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, f.store.CreateVisit(visit))

	resp, err := f.world.LeaveWorld("u1", dto.LeaveWorldRequest{VisitID: "v1", DurationSeconds: 5})
	require.NoError(t, err)
	assert.InDelta(t, 600, resp.DurationSeconds, 35)
	require.NotNil(t, resp.SessionEnd)
}

func TestLeaveWorldAcceptsPlausibleDuration(t *testing.T) {
	f := newWorldFixture(t)
	f.createUser(t, "u1", "alice")
	createProfile(t, f, "u1", "alice")

	visit := &model.WorldVisit{
		ID:           "v1",
		UserID:       "u1",
		SessionStart: time.Now().Add(-100 * time.Second),
	}
	require.NoError(t, f.store.CreateVisit(visit))

	resp, err := f.world.LeaveWorld("u1", dto.LeaveWorldRequest{VisitID: "v1", DurationSeconds: 110})
	require.NoError(t, err)
	assert.Equal(t, 110, resp.DurationSeconds)
}

func TestLeaveWorldReplayIsNoop(t *testing.T) {
	f := newWorldFixture(t)
	f.createUser(t, "u1", "alice")
	createProfile(t, f, "u1", "alice")

	visit := &model.WorldVisit{
		ID:           "v1",
		UserID:       "u1",
		SessionStart: time.Now().Add(-time.Minute),
	}
	require.NoError(t, f.store.CreateVisit(visit))

	first, err := f.world.LeaveWorld("u1", dto.LeaveWorldRequest{VisitID: "v1", DurationSeconds: 60})
	require.NoError(t, err)

	replay, err := f.world.LeaveWorld("u1", dto.LeaveWorldRequest{VisitID: "v1", DurationSeconds: 9999})
	require.NoError(t, err)
	assert.Equal(t, first.DurationSeconds, replay.DurationSeconds)
}

func TestLeaveWorldForeignVisitForbidden(t *testing.T) {
	f := newWorldFixture(t)
	f.createUser(t, "u1", "alice")
	createProfile(t, f, "u1", "alice")

	visit := &model.WorldVisit{
		ID:           "v1",
		UserID:       "someone_else",
		SessionStart: time.Now(),
	}
	require.NoError(t, f.store.CreateVisit(visit))

	_, err := f.world.LeaveWorld("u1", dto.LeaveWorldRequest{VisitID: "v1", DurationSeconds: 1})
	requireStatus(t, err, http.StatusForbidden)
}

func TestDisconnectTearsDownSession(t *testing.T) {
	f := newWorldFixture(t)

	entered := f.enterWorld(t, "u1", "alice")
	_, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 1})
	require.NoError(t, err)

	require.NoError(t, f.world.Disconnect("u1"))

	profile, err := f.store.GetProfile("u1")
	require.NoError(t, err)
	assert.False(t, profile.IsOnline)

	visit, err := f.store.GetVisit(entered.VisitID)
	require.NoError(t, err)
	assert.NotNil(t, visit.SessionEnd)

	claims, err := f.seats.GetSeats("cinema_main")
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newWorldFixture(t)

	f.enterWorld(t, "u1", "alice")
	require.NoError(t, f.world.Disconnect("u1"))
	require.NoError(t, f.world.Disconnect("u1"))
	require.NoError(t, f.world.Disconnect("never_entered"))
	require.NoError(t, f.world.Disconnect(""))
}

func TestStalenessSweepClosesAbandonedSessions(t *testing.T) {
	f := newWorldFixture(t)
	f.createUser(t, "u1", "alice")

	profile := &model.WorldProfile{
		ID:          "wp_u1",
		UserID:      "u1",
		Username:    "alice",
		CurrentRoom: shared.RoomLobby,
		IsOnline:    true,
		Level:       1,
		LastSeen:    time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, f.store.CreateProfile(profile))

	visit := &model.WorldVisit{
		ID:           "v1",
		UserID:       "u1",
		SessionStart: time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, f.store.CreateVisit(visit))

	f.world.sweepStaleProfiles()

	swept, err := f.store.GetProfile("u1")
	require.NoError(t, err)
	assert.False(t, swept.IsOnline)

	closed, err := f.store.GetVisit("v1")
	require.NoError(t, err)
	assert.NotNil(t, closed.SessionEnd)
}

func TestStalenessSweepLeavesFreshSessionsAlone(t *testing.T) {
	f := newWorldFixture(t)

	f.enterWorld(t, "u1", "alice")
	f.world.sweepStaleProfiles()

	profile, err := f.store.GetProfile("u1")
	require.NoError(t, err)
	assert.True(t, profile.IsOnline)
}

func TestLeaderboardOrdersByXP(t *testing.T) {
	f := newWorldFixture(t)

	for _, u := range []struct {
		id, name string
		xp       int
	}{
		{"u1", "alice", 300},
		{"u2", "bob", 500},
		{"u3", "carol", 100},
	} {
		createProfile(t, f, u.id, u.name)
		require.NoError(t, f.store.UpdateProfileXP(u.id, u.xp, 1))
	}

	resp, err := f.world.GetLeaderboard(10)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "bob", resp.Entries[0].Username)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, "carol", resp.Entries[2].Username)
}

package services

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

func TestSitCinemaClaimsSeat(t *testing.T) {
	f := newWorldFixture(t)

	resp, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 5})
	require.NoError(t, err)
	assert.Equal(t, "cinema_main", resp.Venue)
	assert.Equal(t, "seat_5", resp.Slot)
	assert.Equal(t, "u1", resp.UserID)
}

func TestSitCinemaContestedSeatHasOneWinner(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 12})
	require.NoError(t, err)

	_, err = f.seats.SitCinema("u2", "cinema_main", dto.SitCinemaRequest{SeatIndex: 12})
	requireStatus(t, err, http.StatusConflict)

	claims, err := f.seats.GetSeats("cinema_main")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "u1", claims[0].UserID)
}

func TestSitCinemaSameSeatIsNoop(t *testing.T) {
	f := newWorldFixture(t)

	first, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 3})
	require.NoError(t, err)

	again, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, first.Slot, again.Slot)
	assert.Equal(t, first.OccupiedAt.Unix(), again.OccupiedAt.Unix())
}

func TestSitCinemaMoveWithinVenueReleasesOldSeat(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 3})
	require.NoError(t, err)

	moved, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 4})
	require.NoError(t, err)
	assert.Equal(t, "seat_4", moved.Slot)

	claims, err := f.seats.GetSeats("cinema_main")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "seat_4", claims[0].Slot)

	// The vacated seat is claimable again.
	_, err = f.seats.SitCinema("u2", "cinema_main", dto.SitCinemaRequest{SeatIndex: 3})
	require.NoError(t, err)
}

func TestSitCinemaAcrossRoomsReleasesOldSeat(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitCinema("u1", "cinema_a", dto.SitCinemaRequest{SeatIndex: 1})
	require.NoError(t, err)

	_, err = f.seats.SitCinema("u1", "cinema_b", dto.SitCinemaRequest{SeatIndex: 2})
	require.NoError(t, err)

	// One claim per venue type: the cinema_a seat is vacated.
	oldRoom, err := f.seats.GetSeats("cinema_a")
	require.NoError(t, err)
	assert.Empty(t, oldRoom)

	newRoom, err := f.seats.GetSeats("cinema_b")
	require.NoError(t, err)
	require.Len(t, newRoom, 1)
	assert.Equal(t, "u1", newRoom[0].UserID)
}

func TestSitCinemaKeepsStadiumSeat(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitStadium("u1", dto.SitStadiumRequest{X: 0, Z: 5})
	require.NoError(t, err)

	_, err = f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 7})
	require.NoError(t, err)

	stadium, err := f.seats.GetSeats(shared.RoomStadium)
	require.NoError(t, err)
	assert.Len(t, stadium, 1)

	cinema, err := f.seats.GetSeats("cinema_main")
	require.NoError(t, err)
	assert.Len(t, cinema, 1)
}

func TestSitCinemaSeatIndexOutOfRange(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: cinemaSeatCount})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: -1})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestStandWithoutSeatSucceeds(t *testing.T) {
	f := newWorldFixture(t)

	resp, err := f.seats.Stand("u1")
	require.NoError(t, err)
	assert.False(t, resp.Released)
}

func TestStandReleasesAllVenues(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 1})
	require.NoError(t, err)
	_, err = f.seats.SitStadium("u1", dto.SitStadiumRequest{X: 0, Z: 5})
	require.NoError(t, err)

	resp, err := f.seats.Stand("u1")
	require.NoError(t, err)
	assert.True(t, resp.Released)

	cinema, err := f.seats.GetSeats("cinema_main")
	require.NoError(t, err)
	assert.Empty(t, cinema)

	stadium, err := f.seats.GetSeats(shared.RoomStadium)
	require.NoError(t, err)
	assert.Empty(t, stadium)
}

func TestSitStadiumPicksNearestSide(t *testing.T) {
	f := newWorldFixture(t)

	south, err := f.seats.SitStadium("u1", dto.SitStadiumRequest{X: 0, Z: 8})
	require.NoError(t, err)
	assert.Contains(t, south.Slot, shared.StadiumSideSouth)
	assert.Greater(t, south.Z, 0.0)

	north, err := f.seats.SitStadium("u2", dto.SitStadiumRequest{X: 0, Z: -8})
	require.NoError(t, err)
	assert.Contains(t, north.Slot, shared.StadiumSideNorth)
	assert.Less(t, north.Z, 0.0)
}

func TestSitStadiumFullColumnConflicts(t *testing.T) {
	f := newWorldFixture(t)

	// Fill every row of the column that X=0, Z>0 resolves to.
	for row := 0; row < stadiumRows; row++ {
		slot := fmt.Sprintf("%s_r%d_c%d", shared.StadiumSideSouth, row, stadiumColumns/2)
		_, err := f.seats.claim(fmt.Sprintf("filler_%d", row), shared.RoomStadium, slot)
		require.NoError(t, err)
	}

	_, err := f.seats.SitStadium("u9", dto.SitStadiumRequest{X: 0, Z: 8})
	requireStatus(t, err, http.StatusConflict)
}

func TestResetAllSeats(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.seats.SitCinema("u1", "cinema_main", dto.SitCinemaRequest{SeatIndex: 1})
	require.NoError(t, err)
	_, err = f.seats.SitCinema("u2", "cinema_main", dto.SitCinemaRequest{SeatIndex: 2})
	require.NoError(t, err)

	resp, err := f.seats.ResetAllSeats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Cleared)

	claims, err := f.seats.GetSeats("cinema_main")
	require.NoError(t, err)
	assert.Empty(t, claims)
}

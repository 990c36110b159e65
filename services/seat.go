package services

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

const SEAT_SVC = "seat_svc"

const (
	cinemaSeatCount = 48
	cinemaSeatsPerRow = 8

	stadiumRows    = 5
	stadiumColumns = 12
)

// SeatService arbitrates venue seating. Claims race freely against the
// database; the unique index on (venue, slot) picks exactly one winner per
// seat, so no in-process locking is needed.
type SeatService struct {
	context.DefaultService

	store       *worldStore
	presenceSvc *PresenceService
	eventSvc    *EventService
}

func (svc SeatService) Id() string {
	return SEAT_SVC
}

func (svc *SeatService) Configure(ctx *context.Context) error {
	svc.store = resolveWorldStore(ctx)
	svc.presenceSvc = ctx.Service(PRESENCE_SVC).(*PresenceService)
	svc.eventSvc = ctx.Service(EVENT_SVC).(*EventService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *SeatService) Start() error {
	return nil
}

// SitCinema claims an explicit seat index in a cinema room. Re-sitting on the
// seat you already hold is a no-op that returns the existing claim.
func (svc *SeatService) SitCinema(userID, roomID string, req dto.SitCinemaRequest) (*dto.SeatClaimResponse, error) {
	if req.SeatIndex < 0 || req.SeatIndex >= cinemaSeatCount {
		return nil, shared.NewBadRequestError(nil, "Seat index out of range")
	}

	slot := fmt.Sprintf("seat_%d", req.SeatIndex)
	return svc.claim(userID, roomID, slot)
}

// SitStadium picks the stand side nearest the caller, snaps their X to the
// nearest column, and tries rows in random order so crowds spread out. If
// every candidate row is taken the section is full.
func (svc *SeatService) SitStadium(userID string, req dto.SitStadiumRequest) (*dto.SeatClaimResponse, error) {
	side := shared.StadiumSideNorth
	if req.Z >= 0 {
		side = shared.StadiumSideSouth
	}

	col := int(math.Round(req.X/stadiumColSpacing)) + stadiumColumns/2
	if col < 0 {
		col = 0
	}
	if col >= stadiumColumns {
		col = stadiumColumns - 1
	}

	var lastErr error
	for _, row := range rand.Perm(stadiumRows) {
		slot := fmt.Sprintf("%s_r%d_c%d", side, row, col)
		resp, err := svc.claim(userID, shared.RoomStadium, slot)
		if err == nil {
			return resp, nil
		}
		if appErr, ok := shared.GetAppError(err); !ok || appErr.StatusCode != 409 {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (svc *SeatService) claim(userID, venue, slot string) (*dto.SeatClaimResponse, error) {
	held, err := svc.store.GetUserSeatClaims(userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to look up seats")
	}

	// One claim per venue type: moving within a venue or to a sibling venue
	// of the same type vacates the old seat first.
	for i := range held {
		cur := &held[i]
		if cur.Venue == venue && cur.Slot == slot {
			return svc.toResponse(cur), nil
		}
		if cur.Venue != venue && venueType(cur.Venue) != venueType(venue) {
			continue
		}
		if err := svc.releaseClaim(cur); err != nil {
			return nil, shared.NewInternalError(err, "Failed to release current seat")
		}
	}

	id, _ := uuid.NewV7()
	next := &model.SeatClaim{
		ID:         id.String(),
		Venue:      venue,
		Slot:       slot,
		UserID:     userID,
		OccupiedAt: time.Now(),
	}

	if err := svc.store.CreateSeatClaim(next); err != nil {
		if err == ErrSeatTaken {
			return nil, shared.NewConflictError(err, "Seat already taken")
		}
		return nil, shared.NewInternalError(err, "Failed to claim seat")
	}

	seatClaimsTotal.Inc()
	resp := svc.toResponse(next)

	// Snap the avatar onto the seat so late joiners see them seated.
	if err := svc.store.UpdateProfilePosition(userID, resp.X, resp.Y, resp.Z, resp.Rotation, venue); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Warn("Failed to move profile onto seat")
	}

	svc.presenceSvc.BroadcastEvent("seat_claimed", resp)
	svc.eventSvc.Publish(QueueSeatClaimed, resp)
	return resp, nil
}

// venueType collapses sibling venues: every cinema room counts as one type,
// the stadium is its own.
func venueType(venue string) string {
	if strings.HasPrefix(venue, shared.ChatScopeCinemaPrefix) {
		return shared.RoomCinema
	}
	return venue
}

// Stand releases every seat the user holds across all venues. Standing while
// not seated succeeds and reports nothing released.
func (svc *SeatService) Stand(userID string) (*dto.StandResponse, error) {
	claims, err := svc.store.ReleaseSeatClaims(userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to release seats")
	}

	for i := range claims {
		svc.announceRelease(&claims[i])
	}

	if len(claims) > 0 {
		// Back to standing height at the last vacated spot.
		last := &claims[len(claims)-1]
		x, _, z, rotation := slotPosition(last.Venue, last.Slot)
		if err := svc.store.UpdateProfilePosition(userID, x, 0, z, rotation, last.Venue); err != nil {
			log.WithError(err).WithField(shared.UserID, userID).Warn("Failed to restore standing position")
		}
	}
	return &dto.StandResponse{Released: len(claims) > 0}, nil
}

// ReleaseSeats is the internal variant used by session teardown.
func (svc *SeatService) ReleaseSeats(userID string) error {
	claims, err := svc.store.ReleaseSeatClaims(userID)
	if err != nil {
		return err
	}
	for i := range claims {
		svc.announceRelease(&claims[i])
	}
	return nil
}

func (svc *SeatService) GetSeats(venue string) ([]dto.SeatClaimResponse, error) {
	claims, err := svc.store.GetSeatClaims(venue)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load seats")
	}

	out := make([]dto.SeatClaimResponse, 0, len(claims))
	for i := range claims {
		out = append(out, *svc.toResponse(&claims[i]))
	}
	return out, nil
}

// ResetAllSeats clears every claim in every venue. Admin recovery hatch for
// stuck seats.
func (svc *SeatService) ResetAllSeats() (*dto.SeatResetResponse, error) {
	cleared, err := svc.store.ClearAllSeatClaims()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to reset seats")
	}

	svc.presenceSvc.BroadcastEvent("seats_reset", map[string]int64{"cleared": cleared})
	log.WithField("cleared", cleared).Info("All seat claims reset")
	return &dto.SeatResetResponse{Cleared: cleared}, nil
}

func (svc *SeatService) releaseClaim(claim *model.SeatClaim) error {
	if err := svc.store.Db().Where("id = ?", claim.ID).Delete(&model.SeatClaim{}).Error; err != nil {
		return err
	}
	svc.announceRelease(claim)
	return nil
}

func (svc *SeatService) announceRelease(claim *model.SeatClaim) {
	released := map[string]string{
		"venue":   claim.Venue,
		"slot":    claim.Slot,
		"user_id": claim.UserID,
	}
	svc.presenceSvc.BroadcastEvent("seat_released", released)
	svc.eventSvc.Publish(QueueSeatReleased, released)
}

func (svc *SeatService) toResponse(claim *model.SeatClaim) *dto.SeatClaimResponse {
	x, y, z, rotation := slotPosition(claim.Venue, claim.Slot)
	return &dto.SeatClaimResponse{
		Venue:      claim.Venue,
		Slot:       claim.Slot,
		UserID:     claim.UserID,
		OccupiedAt: claim.OccupiedAt,
		X:          x,
		Y:          y,
		Z:          z,
		Rotation:   rotation,
	}
}

// ==================== SEAT GEOMETRY ====================

const (
	cinemaSeatSpacing = 1.2
	cinemaRowSpacing  = 1.5
	cinemaFirstRowZ   = 4.0
	cinemaSeatY       = 0.5

	stadiumColSpacing = 1.5
	stadiumRowSpacing = 1.2
	stadiumRowRise    = 0.6
	stadiumStandZ     = 10.0
)

// slotPosition maps a slot identifier back to world coordinates. Geometry is
// fixed per venue type, so clients and server always agree on where a seat is.
func slotPosition(venue, slot string) (x, y, z, rotation float64) {
	if venue == shared.RoomStadium {
		return stadiumSlotPosition(slot)
	}
	return cinemaSlotPosition(slot)
}

func cinemaSlotPosition(slot string) (x, y, z, rotation float64) {
	var idx int
	if _, err := fmt.Sscanf(slot, "seat_%d", &idx); err != nil {
		return 0, cinemaSeatY, cinemaFirstRowZ, 0
	}

	row := idx / cinemaSeatsPerRow
	col := idx % cinemaSeatsPerRow

	x = (float64(col) - float64(cinemaSeatsPerRow-1)/2) * cinemaSeatSpacing
	y = cinemaSeatY
	z = cinemaFirstRowZ + float64(row)*cinemaRowSpacing
	rotation = math.Pi // face the screen
	return
}

func stadiumSlotPosition(slot string) (x, y, z, rotation float64) {
	var side string
	var row, col int
	parts := strings.SplitN(slot, "_", 3)
	if len(parts) == 3 {
		side = parts[0]
		fmt.Sscanf(parts[1], "r%d", &row)
		fmt.Sscanf(parts[2], "c%d", &col)
	}

	x = (float64(col) - float64(stadiumColumns)/2) * stadiumColSpacing
	y = cinemaSeatY + float64(row)*stadiumRowRise
	z = stadiumStandZ + float64(row)*stadiumRowSpacing
	rotation = math.Pi // face the pitch
	if side == shared.StadiumSideNorth {
		z = -z
		rotation = 0
	}
	return
}

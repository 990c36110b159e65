package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

type SeatHandler struct {
	seatSvc SeatServiceInterface
}

func NewSeatHandler(seatSvc SeatServiceInterface) *SeatHandler {
	return &SeatHandler{seatSvc: seatSvc}
}

// @Summary Sit in a cinema seat
// @Description Claim an explicit seat in a cinema room. Conflicting claims lose with 409.
// @Tags seats
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param roomId path string true "Cinema room ID"
// @Param sitRequest body dto.SitCinemaRequest true "Seat index"
// @Success 200 {object} shared.Response{data=dto.SeatClaimResponse}
// @Router /api/v1/world/rooms/{roomId}/sit [post]
func (h *SeatHandler) SitCinema(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	roomID := c.Params("roomId")

	var req dto.SitCinemaRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.seatSvc.SitCinema(userID, roomID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Seat claimed", resp)
}

// @Summary List occupied seats in a room
// @Tags seats
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param roomId path string true "Room ID"
// @Success 200 {object} shared.Response{data=[]dto.SeatClaimResponse}
// @Router /api/v1/world/rooms/{roomId}/seats [get]
func (h *SeatHandler) GetSeats(c *fiber.Ctx) error {
	resp, err := h.seatSvc.GetSeats(c.Params("roomId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Sit in the stadium
// @Description Claim a stand spot near the caller's position. The side is chosen from the coordinates, the row at random.
// @Tags seats
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param sitRequest body dto.SitStadiumRequest true "World coordinates"
// @Success 200 {object} shared.Response{data=dto.SeatClaimResponse}
// @Router /api/v1/world/stadium/sit [post]
func (h *SeatHandler) SitStadium(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.SitStadiumRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	resp, err := h.seatSvc.SitStadium(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Seat claimed", resp)
}

// @Summary Stand up
// @Description Release every seat the caller holds. Succeeds even when not seated.
// @Tags seats
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.StandResponse}
// @Router /api/v1/world/stand [post]
func (h *SeatHandler) Stand(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.seatSvc.Stand(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Stood up", resp)
}

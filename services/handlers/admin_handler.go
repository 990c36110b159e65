package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/worldplex-live/worldplex_api/shared"
)

type AdminHandler struct {
	seatSvc  SeatServiceInterface
	worldSvc WorldServiceInterface
}

func NewAdminHandler(seatSvc SeatServiceInterface, worldSvc WorldServiceInterface) *AdminHandler {
	return &AdminHandler{seatSvc: seatSvc, worldSvc: worldSvc}
}

// @Summary Reset all seats
// @Description Clear every seat claim in every venue
// @Tags admin
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Success 200 {object} shared.Response{data=dto.SeatResetResponse}
// @Router /api/v1/admin/world/seats/reset [post]
func (h *AdminHandler) ResetSeats(c *fiber.Ctx) error {
	resp, err := h.seatSvc.ResetAllSeats()
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Seats reset", resp)
}

// @Summary List open visits
// @Description Every visit without a session end, oldest first
// @Tags admin
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Admin Bearer Token" default(Bearer <admin_token>)
// @Success 200 {object} shared.Response{data=[]dto.VisitInfo}
// @Router /api/v1/admin/world/visits [get]
func (h *AdminHandler) OpenVisits(c *fiber.Ctx) error {
	resp, err := h.worldSvc.GetOpenVisits()
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

type WorldHandler struct {
	worldSvc WorldServiceInterface
}

func NewWorldHandler(worldSvc WorldServiceInterface) *WorldHandler {
	return &WorldHandler{worldSvc: worldSvc}
}

// @Summary Enter the world
// @Description Create or resume the caller's world profile and open a visit
// @Tags world
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param enterRequest body dto.EnterWorldRequest true "Entry options"
// @Success 200 {object} shared.Response{data=dto.EnterWorldResponse}
// @Router /api/v1/world/enter [post]
func (h *WorldHandler) EnterWorld(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.EnterWorldRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return err
		}
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.worldSvc.EnterWorld(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Entered world", resp)
}

// @Summary Heartbeat
// @Description Keep the caller's world session alive
// @Tags world
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.HeartbeatResponse}
// @Router /api/v1/world/heartbeat [post]
func (h *WorldHandler) Heartbeat(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.worldSvc.Heartbeat(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Heartbeat recorded", resp)
}

// @Summary Leave the world
// @Description Close the caller's visit and release their seats
// @Tags world
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param leaveRequest body dto.LeaveWorldRequest true "Visit to close"
// @Success 200 {object} shared.Response{data=dto.LeaveWorldResponse}
// @Router /api/v1/world/leave [post]
func (h *WorldHandler) LeaveWorld(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.LeaveWorldRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.worldSvc.LeaveWorld(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Left world", resp)
}

// @Summary Disconnect beacon
// @Description Best-effort teardown sent on page unload. Accepts JSON or a text/plain beacon body and always succeeds.
// @Tags world
// @Accept json
// @Produce json
// @Param disconnectRequest body dto.DisconnectRequest true "User to tear down"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/world/disconnect [post]
func (h *WorldHandler) Disconnect(c *fiber.Ctx) error {
	var req dto.DisconnectRequest
	if err := c.BodyParser(&req); err != nil {
		// sendBeacon ships JSON with a text/plain content type.
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return shared.ResponseJSON(c, http.StatusOK, "OK", nil)
		}
	}

	if err := h.worldSvc.Disconnect(req.UserID); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "OK", nil)
}

// @Summary Get own world profile
// @Tags world
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.PresenceState}
// @Router /api/v1/world/profile [get]
func (h *WorldHandler) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.worldSvc.GetProfile(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary XP leaderboard
// @Tags world
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param limit query int false "Entries to return (max 100)"
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/world/leaderboard [get]
func (h *WorldHandler) Leaderboard(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	resp, err := h.worldSvc.GetLeaderboard(limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Upload avatar image
// @Tags world
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} shared.Response{data=dto.AvatarUploadResponse}
// @Router /api/v1/world/avatar [post]
func (h *WorldHandler) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	file, err := c.FormFile("avatar")
	if err != nil {
		return shared.NewBadRequestError(err, "Avatar file is required")
	}

	resp, err := h.worldSvc.UploadAvatar(userID, file)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Avatar updated", resp)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

type QuestHandler struct {
	questSvc QuestServiceInterface
}

func NewQuestHandler(questSvc QuestServiceInterface) *QuestHandler {
	return &QuestHandler{questSvc: questSvc}
}

// @Summary Track a world action
// @Description Score an action against the quest catalog and award any XP it completes
// @Tags quests
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param actionRequest body dto.TrackActionRequest true "Action details"
// @Success 200 {object} shared.Response{data=dto.TrackActionResponse}
// @Router /api/v1/world/actions [post]
func (h *QuestHandler) TrackAction(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.TrackActionRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.questSvc.TrackAction(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Action tracked", resp)
}

// @Summary Quest log
// @Description Every active quest with the caller's progress
// @Tags quests
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.QuestListResponse}
// @Router /api/v1/world/quests [get]
func (h *QuestHandler) GetQuestLog(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	resp, err := h.questSvc.GetQuestLog(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

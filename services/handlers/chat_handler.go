package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

type ChatHandler struct {
	chatSvc ChatServiceInterface
}

func NewChatHandler(chatSvc ChatServiceInterface) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// @Summary Send a chat message
// @Description Persist a message and fan it out to the scope's connected clients
// @Tags chat
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param chatRequest body dto.SendChatRequest true "Message and scope"
// @Success 201 {object} shared.Response{data=dto.ChatMessageResponse}
// @Router /api/v1/world/chat [post]
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.SendChatRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.chatSvc.Send(userID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Message sent", resp)
}

// @Summary Chat history
// @Description Most recent messages of a scope, oldest first
// @Tags chat
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param room query string false "Chat scope" default(world)
// @Param limit query int false "Messages to return (max 50)"
// @Success 200 {object} shared.Response{data=dto.ChatHistoryResponse}
// @Router /api/v1/world/chat [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	resp, err := h.chatSvc.History(c.Query("room"), limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

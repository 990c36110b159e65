package services

import (
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

const CHAT_SVC = "chat_svc"

const chatHistoryLimit = 50

// ChatService persists world chat and fans it out through the presence
// gateway. Valid scopes are the shared world channel and per-screening cinema
// channels.
type ChatService struct {
	context.DefaultService

	store       *worldStore
	presenceSvc *PresenceService
	questSvc    *QuestService
}

func (svc ChatService) Id() string {
	return CHAT_SVC
}

func (svc *ChatService) Configure(ctx *context.Context) error {
	svc.store = resolveWorldStore(ctx)
	svc.presenceSvc = ctx.Service(PRESENCE_SVC).(*PresenceService)
	svc.questSvc = ctx.Service(QUEST_SVC).(*QuestService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *ChatService) Start() error {
	return nil
}

func validChatScope(room string) bool {
	if room == shared.ChatScopeWorld {
		return true
	}
	return strings.HasPrefix(room, shared.ChatScopeCinemaPrefix) &&
		len(room) > len(shared.ChatScopeCinemaPrefix)
}

func (svc *ChatService) Send(userID string, req dto.SendChatRequest) (*dto.ChatMessageResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, shared.NewBadRequestError(nil, "Message is empty")
	}
	if !validChatScope(req.Room) {
		return nil, shared.NewBadRequestError(nil, "Unknown chat scope")
	}

	profile, err := svc.store.GetProfile(userID)
	if err != nil {
		return nil, shared.NewForbiddenError(err, "Enter the world before chatting")
	}

	id, _ := uuid.NewV7()
	msg := &model.ChatMessage{
		ID:        id.String(),
		UserID:    userID,
		Username:  profile.Username,
		Message:   message,
		Room:      req.Room,
		CreatedAt: time.Now(),
	}
	if err := svc.store.CreateChatMessage(msg); err != nil {
		return nil, shared.NewInternalError(err, "Failed to store chat message")
	}

	resp := chatToResponse(msg)
	svc.presenceSvc.BroadcastChat(resp)
	chatMessagesTotal.Inc()

	svc.questSvc.TrackActionAsync(userID, dto.TrackActionRequest{
		ActionType: shared.ActionChatMessage,
	})

	return &resp, nil
}

// History returns the most recent messages of a scope in chronological order.
func (svc *ChatService) History(room string, limit int) (*dto.ChatHistoryResponse, error) {
	if room == "" {
		room = shared.ChatScopeWorld
	}
	if !validChatScope(room) {
		return nil, shared.NewBadRequestError(nil, "Unknown chat scope")
	}
	if limit <= 0 || limit > chatHistoryLimit {
		limit = chatHistoryLimit
	}

	messages, err := svc.store.GetRecentChatMessages(room, limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load chat history")
	}

	out := make([]dto.ChatMessageResponse, len(messages))
	for i := range messages {
		// Query is newest-first, response is oldest-first.
		out[len(messages)-1-i] = chatToResponse(&messages[i])
	}
	return &dto.ChatHistoryResponse{Room: room, Messages: out}, nil
}

func chatToResponse(msg *model.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Username:  msg.Username,
		Message:   msg.Message,
		Room:      msg.Room,
		CreatedAt: msg.CreatedAt,
	}
}

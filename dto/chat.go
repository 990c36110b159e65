package dto

import "time"

type SendChatRequest struct {
	Room    string `json:"room" validate:"required" example:"world"`
	Message string `json:"message" validate:"required,max=500" example:"hello"`
}

func (s SendChatRequest) Validate() error {
	return GetValidator().Struct(s)
}

type ChatMessageResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Room      string    `json:"room"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Room     string                `json:"room"`
	Messages []ChatMessageResponse `json:"messages"`
}

// ChatBubble is ephemeral presentation state derived from received messages;
// it lives in the gateway only and is never persisted.
type ChatBubble struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

package dto

import "time"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`
	Username string `json:"username" validate:"required,world_username" example:"moviefan"`
	Password string `json:"password" validate:"required,min=8" example:"SecurePass123"`
}

func (r RegisterRequest) Validate() error {
	return GetValidator().Struct(r)
}

type RegisterResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	EmailOrUsername string `json:"email_or_username" validate:"required" example:"user@example.com"`
	Password        string `json:"password" validate:"required" example:"SecurePass123"`
}

func (l LoginRequest) Validate() error {
	return GetValidator().Struct(l)
}

type LoginResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type TokenPair struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

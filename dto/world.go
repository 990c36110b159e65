package dto

import "time"

type EnterWorldRequest struct {
	Username    string `json:"username,omitempty" validate:"omitempty,world_username" example:"moviefan"`
	AvatarStyle string `json:"avatar_style,omitempty" validate:"omitempty,max=40" example:"classic"`
}

func (e EnterWorldRequest) Validate() error {
	return GetValidator().Struct(e)
}

type EnterWorldResponse struct {
	Profile      PresenceState `json:"profile"`
	VisitID      string        `json:"visit_id"`
	SocketURL    string        `json:"socket_url"`
	OnboardingOK bool          `json:"onboarding_complete"`
}

// PresenceState is the full-state presence payload exchanged with clients.
// Incoming events replace the previous state for that user wholesale; there
// is no delta merging.
type PresenceState struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Z           float64   `json:"z"`
	Rotation    float64   `json:"rotation"`
	Room        string    `json:"room"`
	IsOnline    bool      `json:"is_online"`
	AvatarStyle string    `json:"avatar_style,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	XP          int       `json:"xp"`
	Level       int       `json:"level"`
	LastSeen    time.Time `json:"last_seen"`
}

type LeaveWorldRequest struct {
	VisitID         string `json:"visit_id" validate:"required"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
}

func (l LeaveWorldRequest) Validate() error {
	return GetValidator().Struct(l)
}

type LeaveWorldResponse struct {
	VisitID         string     `json:"visit_id"`
	SessionEnd      *time.Time `json:"session_end"`
	DurationSeconds int        `json:"duration_seconds"`
}

// DisconnectRequest arrives over the beacon transport on page unload; it may
// be sent as text/plain and carries no auth header.
type DisconnectRequest struct {
	UserID string `json:"user_id"`
}

type HeartbeatResponse struct {
	LastSeen time.Time `json:"last_seen"`
}

type VisitInfo struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	SessionStart    time.Time  `json:"session_start"`
	SessionEnd      *time.Time `json:"session_end"`
	DurationSeconds int        `json:"session_duration_seconds"`
}

type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	Rank     int    `json:"rank"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type AvatarUploadResponse struct {
	AvatarURL string `json:"avatar_url"`
}

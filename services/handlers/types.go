package handlers

import (
	"mime/multipart"

	"github.com/worldplex-live/worldplex_api/dto"
)

type AuthServiceInterface interface {
	Register(req dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(req dto.LoginRequest) (*dto.LoginResponse, error)
}

type JWTServiceInterface interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	VerifyJWTToken(token string) (string, string, error)
}

type WorldServiceInterface interface {
	EnterWorld(userID string, req dto.EnterWorldRequest) (*dto.EnterWorldResponse, error)
	Heartbeat(userID string) (*dto.HeartbeatResponse, error)
	LeaveWorld(userID string, req dto.LeaveWorldRequest) (*dto.LeaveWorldResponse, error)
	Disconnect(userID string) error
	GetProfile(userID string) (*dto.PresenceState, error)
	GetLeaderboard(limit int) (*dto.LeaderboardResponse, error)
	GetOpenVisits() ([]dto.VisitInfo, error)
	UploadAvatar(userID string, file *multipart.FileHeader) (*dto.AvatarUploadResponse, error)
}

type SeatServiceInterface interface {
	SitCinema(userID, roomID string, req dto.SitCinemaRequest) (*dto.SeatClaimResponse, error)
	SitStadium(userID string, req dto.SitStadiumRequest) (*dto.SeatClaimResponse, error)
	Stand(userID string) (*dto.StandResponse, error)
	GetSeats(venue string) ([]dto.SeatClaimResponse, error)
	ResetAllSeats() (*dto.SeatResetResponse, error)
}

type ChatServiceInterface interface {
	Send(userID string, req dto.SendChatRequest) (*dto.ChatMessageResponse, error)
	History(room string, limit int) (*dto.ChatHistoryResponse, error)
}

type QuestServiceInterface interface {
	TrackAction(userID string, req dto.TrackActionRequest) (*dto.TrackActionResponse, error)
	GetQuestLog(userID string) (*dto.QuestListResponse, error)
}

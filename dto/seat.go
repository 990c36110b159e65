package dto

import "time"

type SitCinemaRequest struct {
	SeatIndex int `json:"seat_index" validate:"gte=0,lt=48"`
}

func (s SitCinemaRequest) Validate() error {
	return GetValidator().Struct(s)
}

type SitStadiumRequest struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type SeatClaimResponse struct {
	Venue      string    `json:"venue"`
	Slot       string    `json:"slot"`
	UserID     string    `json:"user_id"`
	OccupiedAt time.Time `json:"occupied_at"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Z          float64   `json:"z"`
	Rotation   float64   `json:"rotation"`
}

type StandResponse struct {
	Released bool `json:"released"`
}

type SeatResetResponse struct {
	Cleared int64 `json:"cleared"`
}

package model

import "time"

// WorldProfile is the presence record for one user inside the interactive
// world. Only the owning user writes position fields; every client reads them.
type WorldProfile struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"uniqueIndex;not null"`
	Username    string `gorm:"uniqueIndex;not null"`
	PosX        float64
	PosY        float64
	PosZ        float64
	Rotation    float64
	CurrentRoom string `gorm:"index"`
	IsOnline    bool   `gorm:"index"`
	AvatarStyle string
	AvatarURL   string
	XP          int
	Level       int `gorm:"default:1"`
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SeatClaim records occupancy of a single venue slot. The unique index on
// (venue, slot) is what makes concurrent sit calls safe: exactly one insert
// wins. The unique index on (venue, user_id) keeps a user to one seat per
// venue.
type SeatClaim struct {
	ID         string    `gorm:"primaryKey"`
	Venue      string    `gorm:"not null;uniqueIndex:idx_seat_venue_slot,priority:1;uniqueIndex:idx_seat_venue_user,priority:1"`
	Slot       string    `gorm:"not null;uniqueIndex:idx_seat_venue_slot,priority:2"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_seat_venue_user,priority:2"`
	OccupiedAt time.Time
}

type ChatMessage struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Username  string
	Message   string
	Room      string    `gorm:"index:idx_chat_room_created,priority:1"`
	CreatedAt time.Time `gorm:"index:idx_chat_room_created,priority:2"`
}

// WorldVisit bounds one continuous visit. A nil SessionEnd means the visit is
// still open (or was abandoned and will be closed by the staleness sweep).
type WorldVisit struct {
	ID                     string `gorm:"primaryKey"`
	UserID                 string `gorm:"index"`
	SessionStart           time.Time
	SessionEnd             *time.Time
	SessionDurationSeconds int
}

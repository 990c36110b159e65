package model

import "time"

type Quest struct {
	ID          string `gorm:"primaryKey"`
	Code        string `gorm:"uniqueIndex;not null"`
	Title       string
	ActionType  string `gorm:"index"`
	Requirement int
	XPReward    int
	IsActive    bool `gorm:"default:true"`
	CreatedAt   time.Time
}

// QuestProgress is monotonic per (user, quest); once Completed flips true the
// row is never mutated again.
type QuestProgress struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"not null;uniqueIndex:idx_quest_progress_user,priority:1"`
	QuestID     string `gorm:"not null;uniqueIndex:idx_quest_progress_user,priority:2"`
	Progress    int
	Completed   bool
	XPEarned    int
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

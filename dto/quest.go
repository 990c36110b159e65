package dto

type TrackActionRequest struct {
	ActionType string                 `json:"action_type" validate:"required" example:"visit_disco"`
	ActionData map[string]interface{} `json:"action_data,omitempty"`
	VisitID    string                 `json:"visit_id,omitempty"`
}

func (t TrackActionRequest) Validate() error {
	return GetValidator().Struct(t)
}

// QuestDelta reports either a completion (XPEarned set) or progress
// (Progress/Requirement set) for one quest. The two are mutually exclusive
// per quest per call.
type QuestDelta struct {
	QuestID     string `json:"quest_id"`
	QuestCode   string `json:"quest_code"`
	Title       string `json:"title"`
	Completed   bool   `json:"completed"`
	XPEarned    int    `json:"xp_earned,omitempty"`
	Progress    int    `json:"progress,omitempty"`
	Requirement int    `json:"requirement,omitempty"`
}

type TrackActionResponse struct {
	Success       bool         `json:"success"`
	Updated       []QuestDelta `json:"updated"`
	TotalXPEarned int          `json:"total_xp_earned"`
	XP            int          `json:"xp"`
	Level         int          `json:"level"`
}

type QuestProgressResponse struct {
	QuestID     string `json:"quest_id"`
	QuestCode   string `json:"quest_code"`
	Title       string `json:"title"`
	Progress    int    `json:"progress"`
	Requirement int    `json:"requirement"`
	Completed   bool   `json:"completed"`
	XPEarned    int    `json:"xp_earned"`
}

type QuestListResponse struct {
	Quests []QuestProgressResponse `json:"quests"`
	XP     int                     `json:"xp"`
	Level  int                     `json:"level"`
}

package shared

const (
	UserID = "user_id"

	RoleUser  = "user"
	RoleAdmin = "admin"

	ChatScopeWorld        = "world"
	ChatScopeCinemaPrefix = "cinema_"

	RoomLobby   = "lobby"
	RoomCinema  = "cinema"
	RoomDisco   = "disco"
	RoomStadium = "stadium"
	RoomArcade  = "arcade"

	StadiumSideNorth = "north"
	StadiumSideSouth = "south"

	ActionFirstLogin   = "first_login"
	ActionVisitCinema  = "visit_cinema"
	ActionVisitDisco   = "visit_disco"
	ActionVisitStadium = "visit_stadium"
	ActionVisitArcade  = "visit_arcade"
	ActionDance        = "dance"
	ActionChatMessage  = "chat_message"
	ActionArcadePlay   = "arcade_play"
	ActionTimeSpent    = "time_spent"
)

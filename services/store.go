package services

import (
	"errors"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

// worldStore holds every query the world core runs against gorm. Both the
// Postgres and Sqlite services embed it, so services and tests talk to the
// same surface regardless of driver.
type worldStore struct {
	db *gorm.DB
}

var ErrSeatTaken = errors.New("seat taken")

// resolveWorldStore picks whichever database service is registered in the
// container. Postgres wins when both are present.
func resolveWorldStore(ctx *context.Context) *worldStore {
	if svc, ok := ctx.Service(POSTGRES_SVC).(*PostgresService); ok && svc != nil {
		return &svc.worldStore
	}
	if svc, ok := ctx.Service(SQLITE_SVC).(*SqliteService); ok && svc != nil {
		return &svc.worldStore
	}
	return nil
}

func (s *worldStore) Db() *gorm.DB {
	return s.db
}

func (s *worldStore) migrate() error {
	err := s.db.AutoMigrate(
		&model.User{},
		&model.WorldProfile{},
		&model.SeatClaim{},
		&model.ChatMessage{},
		&model.WorldVisit{},
		&model.Quest{},
		&model.QuestProgress{},
	)
	if err != nil {
		return err
	}

	return s.seedQuests()
}

var defaultQuests = []model.Quest{
	{Code: "first_login", Title: "First Steps", ActionType: shared.ActionFirstLogin, Requirement: 1, XPReward: 50},
	{Code: "visit_cinema", Title: "Movie Night", ActionType: shared.ActionVisitCinema, Requirement: 1, XPReward: 30},
	{Code: "visit_disco", Title: "Hit the Dance Floor", ActionType: shared.ActionVisitDisco, Requirement: 1, XPReward: 30},
	{Code: "visit_stadium", Title: "Match Day", ActionType: shared.ActionVisitStadium, Requirement: 1, XPReward: 30},
	{Code: "visit_arcade", Title: "Insert Coin", ActionType: shared.ActionVisitArcade, Requirement: 1, XPReward: 30},
	{Code: "dance_10", Title: "Dancing Machine", ActionType: shared.ActionDance, Requirement: 10, XPReward: 80},
	{Code: "chat_5", Title: "Social Butterfly", ActionType: shared.ActionChatMessage, Requirement: 5, XPReward: 60},
	{Code: "arcade_3", Title: "High Score Hunter", ActionType: shared.ActionArcadePlay, Requirement: 3, XPReward: 70},
	{Code: "time_30", Title: "Regular", ActionType: shared.ActionTimeSpent, Requirement: 30, XPReward: 100},
}

func (s *worldStore) seedQuests() error {
	for _, quest := range defaultQuests {
		q := quest
		id, _ := uuid.NewV7()
		q.ID = id.String()
		q.IsActive = true

		err := s.db.Where("code = ?", q.Code).FirstOrCreate(&q).Error
		if err != nil {
			log.WithError(err).WithField("code", q.Code).Error("Failed to seed quest")
			return err
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// ==================== USERS ====================

func (s *worldStore) CreateUser(user *model.User) error {
	return s.db.Create(user).Error
}

func (s *worldStore) GetUser(userID string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *worldStore) GetUserByEmailOrUsername(emailOrUsername string) (*model.User, error) {
	var user model.User
	err := s.db.Where("LOWER(email) = LOWER(?) OR LOWER(username) = LOWER(?)",
		emailOrUsername, emailOrUsername).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *worldStore) UpdateUserLastLogin(userID string, at time.Time) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Update("last_login", at).Error
}

// ==================== WORLD PROFILES ====================

func (s *worldStore) GetProfile(userID string) (*model.WorldProfile, error) {
	var profile model.WorldProfile
	if err := s.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *worldStore) CreateProfile(profile *model.WorldProfile) error {
	return s.db.Create(profile).Error
}

func (s *worldStore) UpdateProfile(profile *model.WorldProfile) error {
	profile.UpdatedAt = time.Now()
	return s.db.Save(profile).Error
}

// UpdateProfilePosition is the movement write-behind target; it only touches
// the fields the owning client is allowed to mutate.
func (s *worldStore) UpdateProfilePosition(userID string, x, y, z, rotation float64, room string) error {
	now := time.Now()
	return s.db.Model(&model.WorldProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"pos_x":        x,
			"pos_y":        y,
			"pos_z":        z,
			"rotation":     rotation,
			"current_room": room,
			"last_seen":    now,
			"updated_at":   now,
		}).Error
}

func (s *worldStore) MarkProfileOnline(userID string) error {
	now := time.Now()
	return s.db.Model(&model.WorldProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_online":  true,
			"last_seen":  now,
			"updated_at": now,
		}).Error
}

// MarkProfileOffline is idempotent: marking an already-offline profile is a
// no-op that still stamps last_seen, so beacon and sweep can both fire.
func (s *worldStore) MarkProfileOffline(userID string) error {
	now := time.Now()
	return s.db.Model(&model.WorldProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_online":  false,
			"last_seen":  now,
			"updated_at": now,
		}).Error
}

func (s *worldStore) TouchProfile(userID string) error {
	now := time.Now()
	return s.db.Model(&model.WorldProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"last_seen":  now,
			"updated_at": now,
		}).Error
}

func (s *worldStore) GetOnlineProfiles() ([]model.WorldProfile, error) {
	var profiles []model.WorldProfile
	err := s.db.Where("is_online = ?", true).Find(&profiles).Error
	return profiles, err
}

func (s *worldStore) GetStaleOnlineProfiles(cutoff time.Time) ([]model.WorldProfile, error) {
	var profiles []model.WorldProfile
	err := s.db.Where("is_online = ? AND last_seen < ?", true, cutoff).Find(&profiles).Error
	return profiles, err
}

func (s *worldStore) UpdateProfileXP(userID string, xp, level int) error {
	return s.db.Model(&model.WorldProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"xp":         xp,
			"level":      level,
			"updated_at": time.Now(),
		}).Error
}

func (s *worldStore) UpdateProfileAvatarURL(userID, url string) error {
	return s.db.Model(&model.WorldProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"avatar_url": url,
			"updated_at": time.Now(),
		}).Error
}

func (s *worldStore) GetXPLeaderboard(limit int) ([]model.WorldProfile, error) {
	var profiles []model.WorldProfile
	err := s.db.Order("xp DESC").Limit(limit).Find(&profiles).Error
	return profiles, err
}

// ==================== SEAT CLAIMS ====================

// CreateSeatClaim is the conditional write at the heart of seat allocation:
// the insert races freely and the unique index on (venue, slot) decides the
// winner. Losers get ErrSeatTaken.
func (s *worldStore) CreateSeatClaim(claim *model.SeatClaim) error {
	err := s.db.Create(claim).Error
	if isDuplicateKey(err) {
		return ErrSeatTaken
	}
	return err
}

func (s *worldStore) GetUserSeatClaims(userID string) ([]model.SeatClaim, error) {
	var claims []model.SeatClaim
	err := s.db.Where("user_id = ?", userID).Find(&claims).Error
	return claims, err
}

func (s *worldStore) GetSeatClaims(venue string) ([]model.SeatClaim, error) {
	var claims []model.SeatClaim
	err := s.db.Where("venue = ?", venue).Order("occupied_at ASC").Find(&claims).Error
	return claims, err
}

// ReleaseSeatClaims clears every claim the user holds and reports the venues
// released. Used by stand, disconnect, and the staleness sweep alike.
func (s *worldStore) ReleaseSeatClaims(userID string) ([]model.SeatClaim, error) {
	var claims []model.SeatClaim
	if err := s.db.Where("user_id = ?", userID).Find(&claims).Error; err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return claims, nil
	}
	err := s.db.Where("user_id = ?", userID).Delete(&model.SeatClaim{}).Error
	return claims, err
}

// ClearAllSeatClaims is the admin emergency reset; it bypasses ownership on
// purpose.
func (s *worldStore) ClearAllSeatClaims() (int64, error) {
	res := s.db.Where("1 = 1").Delete(&model.SeatClaim{})
	return res.RowsAffected, res.Error
}

// ==================== CHAT ====================

func (s *worldStore) CreateChatMessage(msg *model.ChatMessage) error {
	return s.db.Create(msg).Error
}

func (s *worldStore) GetRecentChatMessages(room string, limit int) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	err := s.db.Where("room = ?", room).
		Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

// ==================== WORLD VISITS ====================

func (s *worldStore) CreateVisit(visit *model.WorldVisit) error {
	return s.db.Create(visit).Error
}

func (s *worldStore) GetVisit(visitID string) (*model.WorldVisit, error) {
	var visit model.WorldVisit
	if err := s.db.Where("id = ?", visitID).First(&visit).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

// CloseVisit writes session_end and duration, scoped to the owning user and
// to still-open rows so a replayed request cannot rewrite a closed visit.
func (s *worldStore) CloseVisit(visitID, userID string, end time.Time, durationSeconds int) (int64, error) {
	res := s.db.Model(&model.WorldVisit{}).
		Where("id = ? AND user_id = ? AND session_end IS NULL", visitID, userID).
		Updates(map[string]interface{}{
			"session_end":              end,
			"session_duration_seconds": durationSeconds,
		})
	return res.RowsAffected, res.Error
}

// CloseOpenVisits closes any dangling visit for the user, computing duration
// from session_start. Used on disconnect where the client supplies nothing.
func (s *worldStore) CloseOpenVisits(userID string, end time.Time) error {
	var visits []model.WorldVisit
	if err := s.db.Where("user_id = ? AND session_end IS NULL", userID).Find(&visits).Error; err != nil {
		return err
	}
	for _, visit := range visits {
		duration := int(end.Sub(visit.SessionStart).Seconds())
		if duration < 0 {
			duration = 0
		}
		_, err := s.CloseVisit(visit.ID, userID, end, duration)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *worldStore) GetOpenVisits() ([]model.WorldVisit, error) {
	var visits []model.WorldVisit
	err := s.db.Where("session_end IS NULL").Order("session_start ASC").Find(&visits).Error
	return visits, err
}

// ==================== QUESTS ====================

func (s *worldStore) GetActiveQuestsByAction(actionType string) ([]model.Quest, error) {
	var quests []model.Quest
	err := s.db.Where("action_type = ? AND is_active = ?", actionType, true).Find(&quests).Error
	return quests, err
}

func (s *worldStore) GetQuestProgress(userID, questID string) (*model.QuestProgress, error) {
	var progress model.QuestProgress
	err := s.db.Where("user_id = ? AND quest_id = ?", userID, questID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *worldStore) CreateQuestProgress(progress *model.QuestProgress) error {
	return s.db.Create(progress).Error
}

func (s *worldStore) UpdateQuestProgress(progress *model.QuestProgress) error {
	progress.UpdatedAt = time.Now()
	return s.db.Save(progress).Error
}

func (s *worldStore) ListQuestProgress(userID string) ([]model.Quest, map[string]*model.QuestProgress, error) {
	var quests []model.Quest
	if err := s.db.Where("is_active = ?", true).Order("code ASC").Find(&quests).Error; err != nil {
		return nil, nil, err
	}

	var rows []model.QuestProgress
	if err := s.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	byQuest := make(map[string]*model.QuestProgress, len(rows))
	for i := range rows {
		byQuest[rows[i].QuestID] = &rows[i]
	}
	return quests, byQuest, nil
}

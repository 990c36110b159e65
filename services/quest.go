package services

import (
	stdContext "context"
	"fmt"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

const QUEST_SVC = "quest_svc"

const visitActionTTL = 24 * time.Hour

// QuestService scores world actions against the quest catalog and awards XP.
// Scoring is idempotent where it matters: visit actions dedup per visit, and
// a completed quest row is terminal so replays can never double-award.
type QuestService struct {
	context.DefaultService

	store       *worldStore
	redisSvc    *RedisService
	presenceSvc *PresenceService
	eventSvc    *EventService
}

func (svc QuestService) Id() string {
	return QUEST_SVC
}

func (svc *QuestService) Configure(ctx *context.Context) error {
	svc.store = resolveWorldStore(ctx)
	svc.redisSvc = ctx.Service(REDIS_SVC).(*RedisService)
	svc.presenceSvc = ctx.Service(PRESENCE_SVC).(*PresenceService)
	svc.eventSvc = ctx.Service(EVENT_SVC).(*EventService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuestService) Start() error {
	return nil
}

func knownActionType(actionType string) bool {
	switch actionType {
	case shared.ActionFirstLogin, shared.ActionVisitCinema, shared.ActionVisitDisco,
		shared.ActionVisitStadium, shared.ActionVisitArcade, shared.ActionDance,
		shared.ActionChatMessage, shared.ActionArcadePlay, shared.ActionTimeSpent:
		return true
	}
	return false
}

// TrackAction applies one world action to every active quest listening for
// it. The response carries only the quests that actually changed.
func (svc *QuestService) TrackAction(userID string, req dto.TrackActionRequest) (*dto.TrackActionResponse, error) {
	if !knownActionType(req.ActionType) {
		return nil, shared.NewBadRequestError(nil, "Unknown action type")
	}

	profile, err := svc.store.GetProfile(userID)
	if err != nil {
		return nil, shared.NewForbiddenError(err, "Enter the world before tracking actions")
	}

	resp := &dto.TrackActionResponse{
		Success: true,
		Updated: []dto.QuestDelta{},
		XP:      profile.XP,
		Level:   profile.Level,
	}

	if svc.isDuplicateVisitAction(req) {
		return resp, nil
	}

	quests, err := svc.store.GetActiveQuestsByAction(req.ActionType)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load quests")
	}

	amount := actionAmount(req)
	totalXP := 0

	for i := range quests {
		delta, xp, err := svc.applyAction(userID, &quests[i], amount)
		if err != nil {
			return nil, err
		}
		if delta != nil {
			resp.Updated = append(resp.Updated, *delta)
		}
		totalXP += xp
	}

	if totalXP > 0 {
		profile.XP += totalXP
		profile.Level = svc.calculateLevel(profile.XP)
		if err := svc.store.UpdateProfileXP(userID, profile.XP, profile.Level); err != nil {
			return nil, shared.NewInternalError(err, "Failed to award XP")
		}

		svc.presenceSvc.BroadcastEvent("xp", map[string]interface{}{
			"user_id": userID,
			"xp":      profile.XP,
			"level":   profile.Level,
		})
	}

	questActionsTotal.Inc()
	resp.TotalXPEarned = totalXP
	resp.XP = profile.XP
	resp.Level = profile.Level
	return resp, nil
}

// TrackActionAsync is the fire and forget variant used by other services.
// Quest scoring must never fail the operation that produced the action.
func (svc *QuestService) TrackActionAsync(userID string, req dto.TrackActionRequest) {
	go func() {
		if _, err := svc.TrackAction(userID, req); err != nil {
			log.WithError(err).WithFields(log.Fields{
				shared.UserID: userID,
				"action_type": req.ActionType,
			}).Warn("Background quest tracking failed")
		}
	}()
}

// applyAction advances one quest. Completed rows are terminal: they are never
// touched again, which is what makes XP awards exactly-once.
func (svc *QuestService) applyAction(userID string, quest *model.Quest, amount int) (*dto.QuestDelta, int, error) {
	progress, err := svc.store.GetQuestProgress(userID, quest.ID)
	if isNotFound(err) {
		id, _ := uuid.NewV7()
		progress = &model.QuestProgress{
			ID:      id.String(),
			UserID:  userID,
			QuestID: quest.ID,
		}
		if err := svc.store.CreateQuestProgress(progress); err != nil {
			if !isDuplicateKey(err) {
				return nil, 0, shared.NewInternalError(err, "Failed to create quest progress")
			}
			// Lost a create race, reload the winner's row.
			progress, err = svc.store.GetQuestProgress(userID, quest.ID)
			if err != nil {
				return nil, 0, shared.NewInternalError(err, "Failed to load quest progress")
			}
		}
	} else if err != nil {
		return nil, 0, shared.NewInternalError(err, "Failed to load quest progress")
	}

	if progress.Completed {
		return nil, 0, nil
	}

	progress.Progress += amount
	if progress.Progress > quest.Requirement {
		progress.Progress = quest.Requirement
	}

	xpEarned := 0
	if progress.Progress >= quest.Requirement {
		now := time.Now()
		progress.Completed = true
		progress.XPEarned = quest.XPReward
		progress.CompletedAt = &now
		xpEarned = quest.XPReward
	}

	if err := svc.store.UpdateQuestProgress(progress); err != nil {
		return nil, 0, shared.NewInternalError(err, "Failed to update quest progress")
	}

	delta := &dto.QuestDelta{
		QuestID:   quest.ID,
		QuestCode: quest.Code,
		Title:     quest.Title,
		Completed: progress.Completed,
	}
	if progress.Completed {
		delta.XPEarned = quest.XPReward
		svc.eventSvc.Publish(QueueQuestCompleted, map[string]interface{}{
			"user_id":    userID,
			"quest_id":   quest.ID,
			"quest_code": quest.Code,
			"xp_reward":  quest.XPReward,
		})
	} else {
		delta.Progress = progress.Progress
		delta.Requirement = quest.Requirement
	}
	return delta, xpEarned, nil
}

// isDuplicateVisitAction dedups venue visits within one visit session via a
// redis set. Redis being down degrades to scoring the action again, which the
// terminal-completion rule already caps.
func (svc *QuestService) isDuplicateVisitAction(req dto.TrackActionRequest) bool {
	if req.VisitID == "" || !strings.HasPrefix(req.ActionType, "visit_") {
		return false
	}

	ctx := stdContext.Background()
	key := fmt.Sprintf("world:visit:%s:actions", req.VisitID)

	seen, err := svc.redisSvc.SIsMember(ctx, key, req.ActionType)
	if err != nil {
		log.WithError(err).Warn("Visit dedup check failed")
		return false
	}
	if seen {
		return true
	}

	if err := svc.redisSvc.SAdd(ctx, key, req.ActionType); err != nil {
		log.WithError(err).Warn("Visit dedup record failed")
		return false
	}
	_ = svc.redisSvc.Expire(ctx, key, visitActionTTL)
	return false
}

func actionAmount(req dto.TrackActionRequest) int {
	if req.ActionType == shared.ActionTimeSpent {
		if raw, ok := req.ActionData["minutes"]; ok {
			if minutes, ok := raw.(float64); ok && minutes > 0 {
				return int(minutes)
			}
		}
		return 0
	}
	return 1
}

func (svc *QuestService) GetQuestLog(userID string) (*dto.QuestListResponse, error) {
	profile, err := svc.store.GetProfile(userID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "World profile not found")
	}

	quests, byQuest, err := svc.store.ListQuestProgress(userID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load quest log")
	}

	out := make([]dto.QuestProgressResponse, 0, len(quests))
	for i := range quests {
		entry := dto.QuestProgressResponse{
			QuestID:     quests[i].ID,
			QuestCode:   quests[i].Code,
			Title:       quests[i].Title,
			Requirement: quests[i].Requirement,
		}
		if progress, ok := byQuest[quests[i].ID]; ok {
			entry.Progress = progress.Progress
			entry.Completed = progress.Completed
			entry.XPEarned = progress.XPEarned
		}
		out = append(out, entry)
	}

	return &dto.QuestListResponse{
		Quests: out,
		XP:     profile.XP,
		Level:  profile.Level,
	}, nil
}

// ==================== XP CURVE ====================

func (svc *QuestService) calculateLevel(totalXP int) int {
	level := 1
	requiredXP := 100 // Base XP for level 2

	for totalXP >= requiredXP {
		totalXP -= requiredXP
		level++
		requiredXP = int(float64(requiredXP) * 1.5) // Each level requires 1.5x more XP
	}

	return level
}

// XPForNextLevel reports how much XP the user still needs to level up.
func (svc *QuestService) XPForNextLevel(currentXP int) int {
	currentLevel := svc.calculateLevel(currentXP)
	return svc.getTotalXPForLevel(currentLevel+1) - currentXP
}

func (svc *QuestService) getTotalXPForLevel(targetLevel int) int {
	if targetLevel <= 1 {
		return 0
	}

	totalXP := 0
	requiredXP := 100 // Base XP for level 2
	for level := 2; level <= targetLevel; level++ {
		totalXP += requiredXP
		requiredXP = int(float64(requiredXP) * 1.5)
	}
	return totalXP
}

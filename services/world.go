package services

import (
	stdContext "context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

const WORLD_SVC = "world_svc"

const (
	// A reported session duration may differ from the server-side elapsed
	// time by at most this much before the server value wins.
	durationSkewTolerance = 30 * time.Second

	staleSweepInterval = time.Minute
	staleAfter         = 2 * time.Minute
)

// WorldService owns session lifecycle: entering the world, heartbeats,
// leaving, disconnect beacons, and the staleness sweep that cleans up after
// clients that vanished without any of the above.
type WorldService struct {
	context.DefaultService

	store       *worldStore
	redisSvc    *RedisService
	presenceSvc *PresenceService
	questSvc    *QuestService
	seatSvc     *SeatService
	eventSvc    *EventService
	minioSvc    *MinIOService

	sweepStop chan struct{}
}

func (svc WorldService) Id() string {
	return WORLD_SVC
}

func (svc *WorldService) Configure(ctx *context.Context) error {
	svc.store = resolveWorldStore(ctx)
	svc.redisSvc = ctx.Service(REDIS_SVC).(*RedisService)
	svc.presenceSvc = ctx.Service(PRESENCE_SVC).(*PresenceService)
	svc.questSvc = ctx.Service(QUEST_SVC).(*QuestService)
	svc.seatSvc = ctx.Service(SEAT_SVC).(*SeatService)
	svc.eventSvc = ctx.Service(EVENT_SVC).(*EventService)
	svc.minioSvc = ctx.Service(MINIO_SVC).(*MinIOService)

	svc.sweepStop = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *WorldService) Start() error {
	go svc.startStalenessSweep()
	return nil
}

func (svc *WorldService) Shutdown() {
	close(svc.sweepStop)
}

// EnterWorld creates the profile on first entry and opens a visit. Re-entry
// with an open visit reuses the profile and opens a fresh visit.
func (svc *WorldService) EnterWorld(userID string, req dto.EnterWorldRequest) (*dto.EnterWorldResponse, error) {
	user, err := svc.store.GetUser(userID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "User not found")
	}

	firstEntry := false
	profile, err := svc.store.GetProfile(userID)
	if isNotFound(err) {
		username := req.Username
		if username == "" {
			username = user.Username
		}

		id, _ := uuid.NewV7()
		profile = &model.WorldProfile{
			ID:          id.String(),
			UserID:      userID,
			Username:    username,
			CurrentRoom: shared.RoomLobby,
			AvatarStyle: req.AvatarStyle,
			Level:       1,
			LastSeen:    time.Now(),
		}
		if err := svc.store.CreateProfile(profile); err != nil {
			if isDuplicateKey(err) {
				return nil, shared.NewConflictError(err, "Username already taken")
			}
			return nil, shared.NewInternalError(err, "Failed to create world profile")
		}
		firstEntry = true
	} else if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load world profile")
	} else if req.AvatarStyle != "" && req.AvatarStyle != profile.AvatarStyle {
		profile.AvatarStyle = req.AvatarStyle
		if err := svc.store.UpdateProfile(profile); err != nil {
			return nil, shared.NewInternalError(err, "Failed to update world profile")
		}
	}

	if err := svc.store.MarkProfileOnline(userID); err != nil {
		return nil, shared.NewInternalError(err, "Failed to mark profile online")
	}
	profile.IsOnline = true

	visitID, _ := uuid.NewV7()
	visit := &model.WorldVisit{
		ID:           visitID.String(),
		UserID:       userID,
		SessionStart: time.Now(),
	}
	if err := svc.store.CreateVisit(visit); err != nil {
		return nil, shared.NewInternalError(err, "Failed to open visit")
	}

	if firstEntry {
		svc.questSvc.TrackActionAsync(userID, dto.TrackActionRequest{
			ActionType: shared.ActionFirstLogin,
			VisitID:    visit.ID,
		})
	}

	svc.presenceSvc.BroadcastPresence(profileToPresence(profile))

	return &dto.EnterWorldResponse{
		Profile:      profileToPresence(profile),
		VisitID:      visit.ID,
		SocketURL:    svc.presenceSvc.SocketURL(),
		OnboardingOK: !firstEntry,
	}, nil
}

func (svc *WorldService) Heartbeat(userID string) (*dto.HeartbeatResponse, error) {
	if err := svc.store.MarkProfileOnline(userID); err != nil {
		return nil, shared.NewInternalError(err, "Failed to record heartbeat")
	}

	key := fmt.Sprintf("world:online:%s", userID)
	if err := svc.redisSvc.Set(stdContext.Background(), key, "1", staleAfter); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Debug("Failed to refresh online key")
	}

	return &dto.HeartbeatResponse{LastSeen: time.Now()}, nil
}

// LeaveWorld closes the visit. The client-reported duration is only trusted
// within a small skew of what the server measured; otherwise the server
// elapsed time is stored.
func (svc *WorldService) LeaveWorld(userID string, req dto.LeaveWorldRequest) (*dto.LeaveWorldResponse, error) {
	visit, err := svc.store.GetVisit(req.VisitID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "Visit not found")
	}
	if visit.UserID != userID {
		return nil, shared.NewForbiddenError(nil, "Visit belongs to another user")
	}

	if visit.SessionEnd != nil {
		// Already closed, replay is a no-op.
		return &dto.LeaveWorldResponse{
			VisitID:         visit.ID,
			SessionEnd:      visit.SessionEnd,
			DurationSeconds: visit.SessionDurationSeconds,
		}, nil
	}

	now := time.Now()
	elapsed := now.Sub(visit.SessionStart)
	duration := time.Duration(req.DurationSeconds) * time.Second
	if duration < elapsed-durationSkewTolerance || duration > elapsed+durationSkewTolerance {
		duration = elapsed
	}
	durationSeconds := int(duration.Seconds())

	if _, err := svc.store.CloseVisit(visit.ID, userID, now, durationSeconds); err != nil {
		return nil, shared.NewInternalError(err, "Failed to close visit")
	}

	svc.questSvc.TrackActionAsync(userID, dto.TrackActionRequest{
		ActionType: shared.ActionTimeSpent,
		ActionData: map[string]interface{}{"minutes": float64(durationSeconds / 60)},
		VisitID:    visit.ID,
	})

	svc.teardown(userID)
	svc.eventSvc.Publish(QueueSessionEnded, map[string]interface{}{
		"user_id":          userID,
		"visit_id":         visit.ID,
		"duration_seconds": durationSeconds,
		"ended_at":         now,
	})

	return &dto.LeaveWorldResponse{
		VisitID:         visit.ID,
		SessionEnd:      &now,
		DurationSeconds: durationSeconds,
	}, nil
}

// Disconnect handles the unload beacon. It is unauthenticated and fully
// idempotent: a user who already left, or who never entered, produces no
// error and no visible change.
func (svc *WorldService) Disconnect(userID string) error {
	if userID == "" {
		return nil
	}
	if _, err := svc.store.GetProfile(userID); isNotFound(err) {
		return nil
	} else if err != nil {
		return shared.NewInternalError(err, "Failed to load world profile")
	}

	now := time.Now()
	if err := svc.store.CloseOpenVisits(userID, now); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Error("Failed to close open visits on disconnect")
	}

	svc.teardown(userID)
	svc.eventSvc.Publish(QueueSessionEnded, map[string]interface{}{
		"user_id":  userID,
		"ended_at": now,
		"reason":   "disconnect",
	})
	return nil
}

// teardown releases everything tied to an active session: seats, online flag,
// the live socket, and the presence broadcast telling other clients.
func (svc *WorldService) teardown(userID string) {
	if err := svc.seatSvc.ReleaseSeats(userID); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Error("Failed to release seats")
	}
	if err := svc.store.MarkProfileOffline(userID); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Error("Failed to mark profile offline")
	}
	if err := svc.redisSvc.Delete(stdContext.Background(), fmt.Sprintf("world:online:%s", userID)); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Debug("Failed to drop online key")
	}
	svc.presenceSvc.DisconnectUser(userID)
	svc.presenceSvc.BroadcastEvent("presence_offline", map[string]string{"user_id": userID})
}

func (svc *WorldService) GetProfile(userID string) (*dto.PresenceState, error) {
	profile, err := svc.store.GetProfile(userID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "World profile not found")
	}
	state := profileToPresence(profile)
	return &state, nil
}

func (svc *WorldService) GetLeaderboard(limit int) (*dto.LeaderboardResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	profiles, err := svc.store.GetXPLeaderboard(limit)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load leaderboard")
	}

	entries := make([]dto.LeaderboardEntry, 0, len(profiles))
	for i := range profiles {
		entries = append(entries, dto.LeaderboardEntry{
			UserID:   profiles[i].UserID,
			Username: profiles[i].Username,
			XP:       profiles[i].XP,
			Level:    profiles[i].Level,
			Rank:     i + 1,
		})
	}
	return &dto.LeaderboardResponse{Entries: entries}, nil
}

func (svc *WorldService) GetOpenVisits() ([]dto.VisitInfo, error) {
	visits, err := svc.store.GetOpenVisits()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load visits")
	}

	out := make([]dto.VisitInfo, 0, len(visits))
	for _, v := range visits {
		out = append(out, dto.VisitInfo{
			ID:              v.ID,
			UserID:          v.UserID,
			SessionStart:    v.SessionStart,
			SessionEnd:      v.SessionEnd,
			DurationSeconds: v.SessionDurationSeconds,
		})
	}
	return out, nil
}

// UploadAvatar stores the image in object storage and points the profile at a
// presigned URL for it.
func (svc *WorldService) UploadAvatar(userID string, file *multipart.FileHeader) (*dto.AvatarUploadResponse, error) {
	profile, err := svc.store.GetProfile(userID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "World profile not found")
	}

	src, err := file.Open()
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Failed to read upload")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, shared.NewBadRequestError(nil, "Avatar must be an image")
	}

	objectName := fmt.Sprintf("avatars/%s%s", userID, filepath.Ext(file.Filename))
	if _, err := svc.minioSvc.UploadFile(objectName, src, file.Size, contentType); err != nil {
		return nil, shared.NewInternalError(err, "Failed to store avatar")
	}

	url, err := svc.minioSvc.GetFileURL(objectName, 7*24*time.Hour)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to generate avatar URL")
	}

	if err := svc.store.UpdateProfileAvatarURL(userID, url); err != nil {
		return nil, shared.NewInternalError(err, "Failed to save avatar URL")
	}

	profile.AvatarURL = url
	svc.presenceSvc.BroadcastPresence(profileToPresence(profile))
	return &dto.AvatarUploadResponse{AvatarURL: url}, nil
}

// ==================== STALENESS SWEEP ====================

func (svc *WorldService) startStalenessSweep() {
	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.sweepStaleProfiles()
		case <-svc.sweepStop:
			return
		}
	}
}

// sweepStaleProfiles catches sessions that ended without a leave call or a
// disconnect beacon. Anything online but silent past the threshold is torn
// down exactly like a disconnect.
func (svc *WorldService) sweepStaleProfiles() {
	cutoff := time.Now().Add(-staleAfter)
	profiles, err := svc.store.GetStaleOnlineProfiles(cutoff)
	if err != nil {
		log.WithError(err).Error("Staleness sweep query failed")
		return
	}

	for i := range profiles {
		userID := profiles[i].UserID
		log.WithField(shared.UserID, userID).Info("Sweeping stale world session")

		if err := svc.store.CloseOpenVisits(userID, time.Now()); err != nil {
			log.WithError(err).WithField(shared.UserID, userID).Error("Failed to close visits for stale session")
		}
		svc.teardown(userID)
	}
}

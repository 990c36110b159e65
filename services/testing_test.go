package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

func newTestStore(t *testing.T) *worldStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	store := &worldStore{db: db}
	require.NoError(t, store.migrate())
	return store
}

// newTestPresence builds a gateway with live channels but no listener and no
// hub goroutine. Broadcasts land in the buffered queues where tests can
// inspect them; hub handlers can be driven directly.
func newTestPresence(store *worldStore) *PresenceService {
	return &PresenceService{
		store:      store,
		register:   make(chan *wsClient, 8),
		unregister: make(chan *wsClient, 8),
		moves:      make(chan clientMove, 256),
		chatIn:     make(chan dto.ChatMessageResponse, 64),
		out:        make(chan outbound, 256),
		closeUser:  make(chan string, 16),
		stop:       make(chan struct{}),
		clients:    make(map[string]*wsClient),
		bubbles:    make(map[string]dto.ChatBubble),
		dirty:      make(map[string]moveMessage),
		publicURL:  "ws://localhost:8001/world/ws",
	}
}

type worldFixture struct {
	store    *worldStore
	presence *PresenceService
	events   *EventService
	quests   *QuestService
	seats    *SeatService
	chat     *ChatService
	world    *WorldService
	auth     *AuthService
	jwt      *JWTService
}

func newWorldFixture(t *testing.T) *worldFixture {
	t.Helper()

	store := newTestStore(t)
	presence := newTestPresence(store)
	events := &EventService{}

	quests := &QuestService{
		store:       store,
		redisSvc:    &RedisService{},
		presenceSvc: presence,
		eventSvc:    events,
	}
	seats := &SeatService{
		store:       store,
		presenceSvc: presence,
		eventSvc:    events,
	}
	chat := &ChatService{
		store:       store,
		presenceSvc: presence,
		questSvc:    quests,
	}
	jwt := &JWTService{
		AccessTokenDuration: time.Hour,
		jwtSecretKey:        "test-secret",
	}
	world := &WorldService{
		store:       store,
		redisSvc:    &RedisService{},
		presenceSvc: presence,
		questSvc:    quests,
		seatSvc:     seats,
		eventSvc:    events,
		sweepStop:   make(chan struct{}),
	}
	auth := &AuthService{store: store, jwtSvc: jwt}

	return &worldFixture{
		store:    store,
		presence: presence,
		events:   events,
		quests:   quests,
		seats:    seats,
		chat:     chat,
		world:    world,
		auth:     auth,
		jwt:      jwt,
	}
}

func (f *worldFixture) createUser(t *testing.T, id, username string) *model.User {
	t.Helper()

	user := &model.User{
		ID:       id,
		Email:    username + "@example.com",
		Username: username,
		Role:     shared.RoleUser,
	}
	require.NoError(t, f.store.CreateUser(user))
	return user
}

func (f *worldFixture) enterWorld(t *testing.T, userID, username string) *dto.EnterWorldResponse {
	t.Helper()

	f.createUser(t, userID, username)
	resp, err := f.world.EnterWorld(userID, dto.EnterWorldRequest{})
	require.NoError(t, err)
	return resp
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()

	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, status, appErr.StatusCode)
}

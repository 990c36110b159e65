package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

const PRESENCE_SVC = "presence_svc"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// Movement messages above this rate are dropped, not queued.
	moveRateLimit = 20
	moveRateBurst = 40

	bubbleTTL = 5 * time.Second
)

// PresenceService runs the realtime gateway. It owns a single hub goroutine
// that holds every connected client, the chat bubble map, and the pending
// position writes; all mutation flows through its channels so there is no
// shared-state locking.
//
// The gateway listens on its own port because Fiber sits on fasthttp and
// cannot host a gorilla upgrade.
type PresenceService struct {
	context.DefaultService

	store  *worldStore
	jwtSvc *JWTService

	port      string
	publicURL string
	server    *http.Server
	upgrader  websocket.Upgrader

	register   chan *wsClient
	unregister chan *wsClient
	moves      chan clientMove
	chatIn     chan dto.ChatMessageResponse
	out        chan outbound
	closeUser  chan string
	stop       chan struct{}

	// Hub-owned state. Touched only by the run goroutine.
	clients map[string]*wsClient
	bubbles map[string]dto.ChatBubble
	dirty   map[string]moveMessage
}

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type moveMessage struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Rotation float64 `json:"rotation"`
	Room     string  `json:"room"`
}

type outbound struct {
	room    string // empty broadcasts to every client
	payload []byte
}

type clientMove struct {
	client *wsClient
	move   moveMessage
}

type wsClient struct {
	svc      *PresenceService
	conn     *websocket.Conn
	userID   string
	username string
	room     string
	send     chan []byte
	limiter  *rate.Limiter
}

func (svc PresenceService) Id() string {
	return PRESENCE_SVC
}

func (svc *PresenceService) Configure(ctx *context.Context) error {
	svc.jwtSvc = ctx.Service(JWT_SVC).(*JWTService)
	svc.store = resolveWorldStore(ctx)

	svc.port = os.Getenv("WS_PORT")
	if svc.port == "" {
		svc.port = "8001"
	}
	svc.publicURL = os.Getenv("WS_PUBLIC_URL")
	if svc.publicURL == "" {
		svc.publicURL = fmt.Sprintf("ws://localhost:%s/world/ws", svc.port)
	}

	svc.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	svc.register = make(chan *wsClient)
	svc.unregister = make(chan *wsClient)
	svc.moves = make(chan clientMove, 256)
	svc.chatIn = make(chan dto.ChatMessageResponse, 64)
	svc.out = make(chan outbound, 256)
	svc.closeUser = make(chan string, 16)
	svc.stop = make(chan struct{})

	svc.clients = make(map[string]*wsClient)
	svc.bubbles = make(map[string]dto.ChatBubble)
	svc.dirty = make(map[string]moveMessage)

	return svc.DefaultService.Configure(ctx)
}

func (svc *PresenceService) SocketURL() string {
	return svc.publicURL
}

func (svc *PresenceService) Start() error {
	go svc.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/world/ws", svc.handleSocket)

	svc.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", svc.port),
		Handler: mux,
	}

	log.WithField("port", svc.port).Info("Presence gateway started")
	err := svc.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (svc *PresenceService) Shutdown() {
	close(svc.stop)
	if svc.server != nil {
		_ = svc.server.Close()
	}
}

// ==================== HUB ====================

func (svc *PresenceService) run() {
	flush := time.NewTicker(time.Second)
	purge := time.NewTicker(time.Second)
	defer flush.Stop()
	defer purge.Stop()

	for {
		select {
		case c := <-svc.register:
			svc.handleRegister(c)

		case c := <-svc.unregister:
			svc.handleUnregister(c)

		case m := <-svc.moves:
			svc.handleMove(m)

		case msg := <-svc.chatIn:
			svc.handleChat(msg)

		case o := <-svc.out:
			svc.fanout(o)

		case userID := <-svc.closeUser:
			if c, ok := svc.clients[userID]; ok {
				_ = c.conn.Close()
			}

		case <-flush.C:
			svc.flushPositions()

		case <-purge.C:
			svc.purgeBubbles()

		case <-svc.stop:
			for _, c := range svc.clients {
				_ = c.conn.Close()
			}
			return
		}
	}
}

// handleRegister sends the joiner a full snapshot before any incremental
// event can reach them, then announces the join to everyone else. Both happen
// inside the hub goroutine so the ordering cannot invert.
func (svc *PresenceService) handleRegister(c *wsClient) {
	if old, ok := svc.clients[c.userID]; ok {
		_ = old.conn.Close()
	}
	svc.clients[c.userID] = c
	wsConnectionsGauge.Set(float64(len(svc.clients)))

	profiles, err := svc.store.GetOnlineProfiles()
	if err != nil {
		log.WithError(err).Error("Failed to load snapshot profiles")
		profiles = nil
	}

	players := make([]dto.PresenceState, 0, len(profiles))
	for i := range profiles {
		players = append(players, profileToPresence(&profiles[i]))
	}

	snapshot, err := encodeEnvelope("snapshot", map[string]interface{}{
		"players": players,
		"bubbles": svc.bubbles,
	})
	if err == nil {
		c.trySend(snapshot)
	}

	// Announce the join with the stored position so peers do not snap the
	// avatar to the origin until the first move tick.
	state := dto.PresenceState{
		UserID:   c.userID,
		Username: c.username,
		Room:     c.room,
		IsOnline: true,
		LastSeen: time.Now(),
	}
	if p, err := svc.store.GetProfile(c.userID); err == nil {
		state = profileToPresence(p)
		state.IsOnline = true
	}

	joined, err := encodeEnvelope("presence", state)
	if err == nil {
		svc.fanout(outbound{payload: joined})
	}
}

func (svc *PresenceService) handleUnregister(c *wsClient) {
	cur, ok := svc.clients[c.userID]
	if !ok || cur != c {
		return
	}
	delete(svc.clients, c.userID)
	close(c.send)
	wsConnectionsGauge.Set(float64(len(svc.clients)))

	if m, ok := svc.dirty[c.userID]; ok {
		delete(svc.dirty, c.userID)
		if err := svc.store.UpdateProfilePosition(c.userID, m.X, m.Y, m.Z, m.Rotation, m.Room); err != nil {
			log.WithError(err).WithField(shared.UserID, c.userID).Error("Failed to flush position on disconnect")
		}
	}
	delete(svc.bubbles, c.userID)

	if err := svc.store.MarkProfileOffline(c.userID); err != nil {
		log.WithError(err).WithField(shared.UserID, c.userID).Error("Failed to mark profile offline")
	}

	gone, err := encodeEnvelope("presence_offline", map[string]string{"user_id": c.userID})
	if err == nil {
		svc.fanout(outbound{payload: gone})
	}
}

func (svc *PresenceService) handleMove(m clientMove) {
	if cur, ok := svc.clients[m.client.userID]; !ok || cur != m.client {
		return
	}
	if m.move.Room == "" {
		m.move.Room = m.client.room
	}
	m.client.room = m.move.Room
	svc.dirty[m.client.userID] = m.move
	presenceUpdatesTotal.Inc()

	payload, err := encodeEnvelope("presence", dto.PresenceState{
		UserID:   m.client.userID,
		Username: m.client.username,
		X:        m.move.X,
		Y:        m.move.Y,
		Z:        m.move.Z,
		Rotation: m.move.Rotation,
		Room:     m.move.Room,
		IsOnline: true,
		LastSeen: time.Now(),
	})
	if err == nil {
		svc.fanout(outbound{payload: payload})
	}
}

func (svc *PresenceService) handleChat(msg dto.ChatMessageResponse) {
	svc.bubbles[msg.UserID] = dto.ChatBubble{Message: msg.Message, At: msg.CreatedAt}

	payload, err := encodeEnvelope("chat", msg)
	if err != nil {
		return
	}

	scope := ""
	if msg.Room != shared.ChatScopeWorld {
		scope = msg.Room
	}
	svc.fanout(outbound{room: scope, payload: payload})
}

func (svc *PresenceService) fanout(o outbound) {
	for _, c := range svc.clients {
		if o.room != "" && c.room != o.room {
			continue
		}
		c.trySend(o.payload)
	}
}

// flushPositions is the 1/s write-behind for movement. Clients move at 20
// messages a second; the database sees at most one update per user per tick.
func (svc *PresenceService) flushPositions() {
	for userID, m := range svc.dirty {
		if err := svc.store.UpdateProfilePosition(userID, m.X, m.Y, m.Z, m.Rotation, m.Room); err != nil {
			log.WithError(err).WithField(shared.UserID, userID).Error("Failed to flush position")
			continue
		}
		delete(svc.dirty, userID)
	}
}

func (svc *PresenceService) purgeBubbles() {
	cutoff := time.Now().Add(-bubbleTTL)
	for userID, bubble := range svc.bubbles {
		if bubble.At.Before(cutoff) {
			delete(svc.bubbles, userID)
		}
	}
}

// ==================== PUBLIC BROADCAST API ====================

func (svc *PresenceService) BroadcastPresence(state dto.PresenceState) {
	payload, err := encodeEnvelope("presence", state)
	if err != nil {
		return
	}
	svc.enqueue(outbound{payload: payload})
}

func (svc *PresenceService) BroadcastChat(msg dto.ChatMessageResponse) {
	select {
	case svc.chatIn <- msg:
	default:
		log.Warn("Chat broadcast queue full, dropping message")
	}
}

func (svc *PresenceService) BroadcastEvent(eventType string, data interface{}) {
	payload, err := encodeEnvelope(eventType, data)
	if err != nil {
		return
	}
	svc.enqueue(outbound{payload: payload})
}

// DisconnectUser force-closes the user's socket if one is open.
func (svc *PresenceService) DisconnectUser(userID string) {
	select {
	case svc.closeUser <- userID:
	default:
	}
}

func (svc *PresenceService) enqueue(o outbound) {
	select {
	case svc.out <- o:
	default:
		log.Warn("Broadcast queue full, dropping event")
	}
}

// ==================== SOCKET LIFECYCLE ====================

func (svc *PresenceService) handleSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	userID, _, err := svc.jwtSvc.VerifyJWTToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	profile, err := svc.store.GetProfile(userID)
	if err != nil {
		http.Error(w, "enter the world first", http.StatusForbidden)
		return
	}

	conn, err := svc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	if err := svc.store.MarkProfileOnline(userID); err != nil {
		log.WithError(err).WithField(shared.UserID, userID).Error("Failed to mark profile online")
	}

	client := &wsClient{
		svc:      svc,
		conn:     conn,
		userID:   userID,
		username: profile.Username,
		room:     profile.CurrentRoom,
		send:     make(chan []byte, 64),
		limiter:  rate.NewLimiter(moveRateLimit, moveRateBurst),
	}

	svc.register <- client

	go client.writePump()
	client.readPump()
}

func (c *wsClient) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// Slow consumer, drop the frame rather than stall the hub.
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.svc.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField(shared.UserID, c.userID).Debug("Websocket read error")
			}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch env.Type {
		case "move":
			if !c.limiter.Allow() {
				continue
			}
			var m moveMessage
			if err := json.Unmarshal(env.Data, &m); err != nil {
				continue
			}
			select {
			case c.svc.moves <- clientMove{client: c, move: m}:
			default:
			}
		case "ping":
			if pong, err := encodeEnvelope("pong", nil); err == nil {
				c.trySend(pong)
			}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeEnvelope(eventType string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(wsEnvelope{Type: eventType, Data: raw})
}

func profileToPresence(p *model.WorldProfile) dto.PresenceState {
	return dto.PresenceState{
		UserID:      p.UserID,
		Username:    p.Username,
		X:           p.PosX,
		Y:           p.PosY,
		Z:           p.PosZ,
		Rotation:    p.Rotation,
		Room:        p.CurrentRoom,
		IsOnline:    p.IsOnline,
		AvatarStyle: p.AvatarStyle,
		AvatarURL:   p.AvatarURL,
		XP:          p.XP,
		Level:       p.Level,
		LastSeen:    p.LastSeen,
	}
}

package ws

import (
	"sync"
	"time"

	"github.com/hertz-contrib/websocket"
	"github.com/rs/zerolog"
)

const writeWait = 10 * time.Second

// Hub owns this instance's real-time connections, keyed by player id. It is
// strictly local; peers never touch another instance's connections.
type Hub struct {
	mu       sync.Mutex
	byPlayer map[string]map[*subscriber]struct{}
	log      zerolog.Logger

	// OnConnect fires for every new connection; OnDisconnect fires with the
	// count of remaining local connections for that player.
	OnConnect    func(playerID string)
	OnDisconnect func(playerID string, remaining int)
}

type subscriber struct {
	playerID string
	conn     *websocket.Conn
	mu       sync.Mutex
}

// write sends one message guarded by the subscriber mutex and a deadline.
func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		byPlayer: make(map[string]map[*subscriber]struct{}),
		log:      log,
	}
}

// Serve registers the connection and blocks reading until the client goes
// away. Inbound frames are drained and ignored; the socket is push-only.
func (h *Hub) Serve(playerID string, conn *websocket.Conn) {
	sub := &subscriber{playerID: playerID, conn: conn}
	h.mu.Lock()
	if h.byPlayer[playerID] == nil {
		h.byPlayer[playerID] = make(map[*subscriber]struct{})
	}
	h.byPlayer[playerID][sub] = struct{}{}
	h.mu.Unlock()

	if h.OnConnect != nil {
		h.OnConnect(playerID)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(sub)
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	subs, ok := h.byPlayer[sub.playerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := subs[sub]; !member {
		h.mu.Unlock()
		return
	}
	delete(subs, sub)
	remaining := len(subs)
	if remaining == 0 {
		delete(h.byPlayer, sub.playerID)
	}
	h.mu.Unlock()

	_ = sub.conn.Close()
	if h.OnDisconnect != nil {
		h.OnDisconnect(sub.playerID, remaining)
	}
}

// PushToPlayer delivers to every local connection subscribed to the player.
func (h *Hub) PushToPlayer(playerID string, message []byte) {
	for _, sub := range h.snapshot(playerID) {
		h.send(sub, message)
	}
}

// PushAll delivers to every local connection.
func (h *Hub) PushAll(message []byte) {
	for _, sub := range h.snapshot("") {
		h.send(sub, message)
	}
}

// Connections reports the local connection count for a player.
func (h *Hub) Connections(playerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byPlayer[playerID])
}

func (h *Hub) send(sub *subscriber, message []byte) {
	if err := sub.write(message); err != nil {
		h.log.Debug().Err(err).Str("player_id", sub.playerID).Msg("push failed, dropping connection")
		h.drop(sub)
	}
}

// snapshot copies the target subscriber set so pushes run without the hub
// lock held. Empty playerID selects everyone.
func (h *Hub) snapshot(playerID string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*subscriber
	if playerID != "" {
		for sub := range h.byPlayer[playerID] {
			out = append(out, sub)
		}
		return out
	}
	for _, subs := range h.byPlayer {
		for sub := range subs {
			out = append(out, sub)
		}
	}
	return out
}

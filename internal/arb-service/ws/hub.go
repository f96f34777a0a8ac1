package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// client serializa as escritas numa conexão; o gorilla não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) writeRaw(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por liga
// subs: mapeia liga (ou "*") para o conjunto de clientes inscritos
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}

	OnBroadcast func(delivered int) // métricas
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Cada cliente pode se inscrever em várias ligas
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.League == "" {
				_ = c.write(ServerMsg{Type: "error", Error: "league required"})
				continue
			}
			h.subscribe(c, msg.League)
			_ = c.write(ServerMsg{Type: "subscribed", League: msg.League})
		case "unsubscribe":
			h.unsubscribe(c, msg.League)
			_ = c.write(ServerMsg{Type: "unsubscribed", League: msg.League})
		case "ping":
			_ = c.write(ServerMsg{Type: "pong"})
		default:
			_ = c.write(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Hub) subscribe(c *client, league string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[league]; !ok {
		h.subs[league] = make(map[*client]struct{})
	}
	h.subs[league][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, league string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[league]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, league)
		}
	}
}

// drop remove o cliente de todas as assinaturas ao desconectar
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for league, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, league)
		}
	}
}

// Subscribers retorna quantos clientes distintos receberiam uma oportunidade da liga
func (h *Hub) Subscribers(league string) int {
	return len(h.targets(league))
}

func (h *Hub) targets(league string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*client]struct{})
	var out []*client
	for _, key := range []string{league, AllLeagues} {
		for c := range h.subs[key] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// Broadcast envia a oportunidade aos inscritos na liga e aos inscritos em "*"
func (h *Hub) Broadcast(update OpportunityUpdate) {
	targets := h.targets(update.League)
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return
	}

	delivered := 0
	for _, c := range targets {
		if err := c.writeRaw(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
			continue
		}
		delivered++
	}
	if h.OnBroadcast != nil {
		h.OnBroadcast(delivered)
	}
}

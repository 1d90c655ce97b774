package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Krimson/ai-walker/walker/internal/advisory"
	"github.com/Krimson/ai-walker/walker/internal/analysis"
	"github.com/Krimson/ai-walker/walker/internal/obstacle"
)

const (
	// Время на запись одного сообщения клиенту
	writeWait = 10 * time.Second
	// Клиент должен ответить на ping за это время
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	MessageTypeFrameAdvisory = "frame_advisory"
)

// Hub управляет WebSocket соединениями
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал для рассылки сообщений клиентам
	broadcast chan envelope

	// Мютекс для безопасной работы с картой клиентов
	mu sync.RWMutex

	// Последние решения для каждой сессии (session_id -> decision)
	lastDecisions map[string]advisory.Decision
	decisionMu    sync.RWMutex

	upgrader websocket.Upgrader

	// Закрывается, когда Run завершился
	done chan struct{}
}

// Client представляет WebSocket клиента
type Client struct {
	hub *Hub

	// WebSocket соединение
	conn *websocket.Conn

	// Буферизованный канал исходящих сообщений
	send chan []byte

	// ID сессии для фильтрации данных; пустой - все сессии
	sessionID string

	// Закрывается по выходу из readPump
	closed chan struct{}
}

type envelope struct {
	sessionID string
	data      []byte
}

// AdvisoryMessage - подсказка по кадру, отправляемая на клиент
type AdvisoryMessage struct {
	Type         string              `json:"type"`
	SessionID    string              `json:"session_id"`
	FrameIndex   int                 `json:"frame_index"`
	Timestamp    float64             `json:"timestamp"`
	Guidance     advisory.Decision   `json:"guidance"`
	RiskLevel    obstacle.Severity   `json:"risk_level"`
	SceneSummary string              `json:"scene_summary"`
	Obstacles    []obstacle.Obstacle `json:"obstacles"`
	Notices      []string            `json:"notices"`
}

// NewHub создает новый Hub. allowedOrigins содержит "*" или список разрешённых Origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan envelope, 256),
		lastDecisions: make(map[string]advisory.Decision),
		done:          make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Run запускает Hub до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client registered: %p, session: %q", client, client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[WEBSOCKET] Client unregistered: %p", client)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.sessionID != "" && client.sessionID != msg.sessionID {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Клиент не успевает читать - отключаем
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish рассылает подсказку по кадру подписчикам сессии (реализует batch.Publisher)
func (h *Hub) Publish(sessionID string, fa analysis.FrameAnalysis) {
	h.decisionMu.Lock()
	h.lastDecisions[sessionID] = fa.Guidance
	h.decisionMu.Unlock()

	message, err := json.Marshal(NewAdvisoryMessage(sessionID, fa))
	if err != nil {
		log.Printf("[ERROR] Failed to marshal advisory: %v", err)
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, data: message}:
	default:
		log.Printf("[WARN] Broadcast channel full, dropping advisory: session=%s frame=%d",
			sessionID, fa.FrameIndex)
	}
}

// NewAdvisoryMessage собирает сообщение для клиента из анализа кадра
func NewAdvisoryMessage(sessionID string, fa analysis.FrameAnalysis) AdvisoryMessage {
	obstacles := fa.Obstacles
	if obstacles == nil {
		obstacles = []obstacle.Obstacle{}
	}
	return AdvisoryMessage{
		Type:         MessageTypeFrameAdvisory,
		SessionID:    sessionID,
		FrameIndex:   fa.FrameIndex,
		Timestamp:    fa.Timestamp,
		Guidance:     fa.Guidance,
		RiskLevel:    fa.RiskLevel,
		SceneSummary: fa.SceneSummary,
		Obstacles:    obstacles,
		Notices:      advisory.Notices(fa.Obstacles),
	}
}

// GetLastDecision возвращает последнее решение, разосланное по сессии
func (h *Hub) GetLastDecision(sessionID string) (advisory.Decision, bool) {
	h.decisionMu.RLock()
	defer h.decisionMu.RUnlock()
	d, ok := h.lastDecisions[sessionID]
	return d, ok
}

// ClientCount возвращает число подключённых клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket обрабатывает WebSocket соединения
// GET /ws?session_id=...
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: r.URL.Query().Get("session_id"),
		closed:    make(chan struct{}),
	}

	select {
	case h.register <- client:
	case <-h.done:
		// Hub уже остановлен
		conn.Close()
		close(client.closed)
		return
	}

	// Новому клиенту сразу отправляем последнее решение по его сессии
	if client.sessionID != "" {
		if d, ok := h.GetLastDecision(client.sessionID); ok {
			if data, err := json.Marshal(AdvisoryMessage{
				Type:      MessageTypeFrameAdvisory,
				SessionID: client.sessionID,
				Guidance:  d,
				Obstacles: []obstacle.Obstacle{},
				Notices:   []string{},
			}); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}
		}
	}

	// Запускаем горутины для клиента
	go client.writePump()
	go client.readPump()
}

// readPump читает входящие сообщения, чтобы обрабатывать ping/pong и закрытие
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		close(c.closed)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ERROR] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[ERROR] Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

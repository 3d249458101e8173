package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/session"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsSendBuffer = 16
)

// viewRequest запрос представления. seq растет с каждым изменением селектора, начиная с 1.
type viewRequest struct {
	Seq        uint64 `json:"seq"`
	SearchID   string `json:"search_id"`
	GapSeconds int64  `json:"gap_seconds"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type viewReply struct {
	Seq   uint64    `json:"seq"`
	View  *viewJSON `json:"view,omitempty"`
	Error *wsError  `json:"error,omitempty"`
}

// WebSocketHandler канал пересчета представлений: клиент присылает
// {seq, search_id, gap_seconds} при каждом изменении интервала, сервер
// отвечает только на самый новый seq.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	sessions *session.Manager
	loc      *time.Location
	perf     config.PerformanceConfig
	logger   *utils.Logger

	mu      sync.Mutex
	clients map[*viewClient]struct{}
}

// outgoing сообщение в очереди отправки. seq 0 у ответов без номера запроса.
type outgoing struct {
	seq  uint64
	data []byte
}

// viewClient WebSocket соединение
type viewClient struct {
	conn      *websocket.Conn
	send      chan outgoing
	ctx       context.Context
	cancel    context.CancelFunc
	handler   *WebSocketHandler
	latestSeq atomic.Uint64

	// Один пересчет на клиента: pending хранит только самый новый запрос
	mu      sync.Mutex
	pending *viewRequest
	wake    chan struct{}
}

func newViewClient(conn *websocket.Conn, h *WebSocketHandler) *viewClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &viewClient{
		conn:    conn,
		send:    make(chan outgoing, wsSendBuffer),
		ctx:     ctx,
		cancel:  cancel,
		handler: h,
		wake:    make(chan struct{}, 1),
	}
}

// NewWebSocketHandler создает новый WebSocket handler
func NewWebSocketHandler(sessions *session.Manager, loc *time.Location, perf config.PerformanceConfig, origins []string, logger *utils.Logger) *WebSocketHandler {
	if loc == nil {
		loc = time.UTC
	}
	if perf.WebSocketPingInterval <= 0 {
		perf.WebSocketPingInterval = 30 * time.Second
	}
	if perf.WebSocketPongTimeout <= perf.WebSocketPingInterval {
		perf.WebSocketPongTimeout = 2 * perf.WebSocketPingInterval
	}
	if perf.WebSocketMaxMessage <= 0 {
		perf.WebSocketMaxMessage = 4096
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(origins),
		},
		sessions: sessions,
		loc:      loc,
		perf:     perf,
		logger:   logger,
		clients:  make(map[*viewClient]struct{}),
	}
}

// checkOrigin пропускает запросы без Origin (не браузер) и разрешенные источники
func checkOrigin(origins []string) func(r *http.Request) bool {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowAll || origin == "" || allowed[origin]
	}
}

// HandleWebSocket обрабатывает WebSocket подключения
// GET /ws/v1/views
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade to WebSocket")
		metrics.WebSocketErrors.Inc()
		return
	}

	client := newViewClient(conn, h)
	h.register(client)

	h.logger.WithField("client_ip", c.ClientIP()).Info("WebSocket client connected")

	go client.writePump()
	go client.viewPump()
	go client.readPump()
}

func (h *WebSocketHandler) register(c *viewClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WebSocketConnections.Inc()
}

func (h *WebSocketHandler) unregister(c *viewClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		metrics.WebSocketConnections.Dec()
		h.logger.Debug("WebSocket client disconnected")
	}
}

// ActiveConnections число открытых соединений
func (h *WebSocketHandler) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll закрывает все соединения (при остановке сервера)
func (h *WebSocketHandler) CloseAll() {
	h.mu.Lock()
	clients := make([]*viewClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.cancel()
		c.conn.Close()
	}
}

// readPump читает запросы клиента
func (c *viewClient) readPump() {
	defer func() {
		c.cancel()
		c.handler.unregister(c)
		c.conn.Close()
	}()

	perf := c.handler.perf
	c.conn.SetReadLimit(perf.WebSocketMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(perf.WebSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(perf.WebSocketPongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.logger.WithError(err).Warn("WebSocket read error")
				metrics.WebSocketErrors.Inc()
			}
			return
		}

		c.handleMessage(message)
	}
}

// writePump отправляет ответы и ping
func (c *viewClient) writePump() {
	ticker := time.NewTicker(c.handler.perf.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			// Ответ мог устареть, пока стоял в очереди
			if !c.deliverable(message.seq) {
				c.handler.logger.WithField("seq", message.seq).Debug("Dropping stale view reply")
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message.data); err != nil {
				c.handler.logger.WithError(err).Warn("WebSocket write error")
				metrics.WebSocketErrors.Inc()
				return
			}
			metrics.WebSocketMessagesOut.WithLabelValues("view").Inc()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketErrors.Inc()
				return
			}
			metrics.WebSocketMessagesOut.WithLabelValues("ping").Inc()

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// advance запоминает seq, если он новее всех полученных
func (c *viewClient) advance(seq uint64) bool {
	for {
		current := c.latestSeq.Load()
		if seq <= current {
			return false
		}
		if c.latestSeq.CompareAndSwap(current, seq) {
			return true
		}
	}
}

// stale seq устарел: пришел запрос с большим seq
func (c *viewClient) stale(seq uint64) bool {
	return seq < c.latestSeq.Load()
}

// deliverable ответ можно отправить: без номера или для самого нового seq.
// latestSeq растет до постановки ответа в очередь, поэтому после отправки
// ответа на seq ни один ответ на меньший seq уже не пройдет.
func (c *viewClient) deliverable(seq uint64) bool {
	return seq == 0 || !c.stale(seq)
}

func (c *viewClient) handleMessage(message []byte) {
	var req viewRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.reply(viewReply{Error: &wsError{Code: "invalid_message", Message: "Message must be {seq, search_id, gap_seconds}"}})
		return
	}
	if !c.advance(req.Seq) {
		c.handler.logger.WithField("seq", req.Seq).Debug("Dropping out-of-date view request")
		return
	}
	if req.GapSeconds < 0 {
		c.reply(viewReply{Seq: req.Seq, Error: &wsError{Code: "invalid_gap", Message: "gap_seconds must not be negative"}})
		return
	}

	c.schedule(req)
}

// schedule заменяет ожидающий запрос более новым и будит viewPump
func (c *viewClient) schedule(req viewRequest) {
	c.mu.Lock()
	c.pending = &req
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// takePending забирает ожидающий запрос
func (c *viewClient) takePending() (viewRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return viewRequest{}, false
	}
	req := *c.pending
	c.pending = nil
	return req, true
}

// viewPump последовательно пересчитывает представления, пропуская
// запросы, которые успели замениться более новыми
func (c *viewClient) viewPump() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}
		if req, ok := c.takePending(); ok {
			c.computeView(req)
		}
	}
}

// computeView считает представление и отправляет его, если за это время не пришел более новый запрос
func (c *viewClient) computeView(req viewRequest) {
	view, err := c.handler.sessions.View(c.ctx, req.SearchID, filter.SampleFilterConfig{MinGapSeconds: req.GapSeconds})
	if c.stale(req.Seq) {
		c.handler.logger.WithField("seq", req.Seq).Debug("Dropping stale view reply")
		return
	}

	if err != nil {
		apiErr := classifyError(err)
		c.reply(viewReply{Seq: req.Seq, Error: &wsError{Code: apiErr.Code, Message: apiErr.Message}})
		return
	}

	v := convertView(view, c.handler.loc)
	c.reply(viewReply{Seq: req.Seq, View: &v})
}

func (c *viewClient) reply(r viewReply) {
	data, err := json.Marshal(r)
	if err != nil {
		c.handler.logger.WithError(err).Error("Failed to marshal view reply")
		return
	}

	select {
	case c.send <- outgoing{seq: r.Seq, data: data}:
	case <-c.ctx.Done():
	}
}

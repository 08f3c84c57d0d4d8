package gateway

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/auth"
	"blackjack-lite/internal/codec"
	"blackjack-lite/internal/lobby"
	"blackjack-lite/internal/table"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Application close codes.
const (
	CloseUnauthorized     = 4001
	CloseReplaced         = 4002
	CloseTableUnavailable = 4003
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

// Connection represents a WebSocket client connection
type Connection struct {
	ID       string
	StaticID string
	Identity auth.Identity
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway
	Table    *table.Table

	done       chan struct{}
	closeOnce  sync.Once
	closeFrame []byte
}

type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	staticConns map[string]*Connection // staticID -> connection
	lobby       *lobby.Lobby
	auth        auth.Resolver
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby, resolver auth.Resolver, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		connections: make(map[string]*Connection),
		staticConns: make(map[string]*Connection),
		lobby:       lby,
		auth:        resolver,
		logger:      logger.Named("gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return g
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}

// HandleWebSocket authenticates the handshake, upgrades and attaches the
// connection to its table. Query: token, staticId, table.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identity, authErr := g.auth.Resolve(r.Context(), q.Get("token"))

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	if authErr != nil {
		g.logger.Info("handshake rejected", zap.String("remote", r.RemoteAddr), zap.Error(authErr))
		reject(conn, CloseUnauthorized, "unauthorized")
		return
	}

	t, err := g.lobby.GetOrCreate(q.Get("table"), g)
	if err != nil {
		g.logger.Warn("table unavailable", zap.String("table", q.Get("table")), zap.Error(err))
		reject(conn, CloseTableUnavailable, "table unavailable")
		return
	}

	c := &Connection{
		ID:       uuid.NewString(),
		StaticID: strings.TrimSpace(q.Get("staticId")),
		Identity: identity,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Gateway:  g,
		Table:    t,
		done:     make(chan struct{}),
	}
	g.register(c)
	go c.writePump()

	if err := t.Attach(c.ID, identity.ID, identity.Guest); err != nil {
		g.logger.Warn("attach failed", zap.String("conn", c.ID), zap.Error(err))
		c.close(websocket.CloseInternalServerErr, "attach failed")
		g.removeConnection(c)
		return
	}
	go c.readPump()
}

func (g *Gateway) register(c *Connection) {
	g.mu.Lock()
	g.connections[c.ID] = c
	var prev *Connection
	if c.StaticID != "" {
		prev = g.staticConns[c.StaticID]
		g.staticConns[c.StaticID] = c
	}
	total := len(g.connections)
	g.mu.Unlock()

	if prev != nil && prev != c {
		g.logger.Info("static id reconnected, evicting previous connection",
			zap.String("static_id", c.StaticID),
			zap.String("old_conn", prev.ID),
			zap.String("conn", c.ID))
		prev.close(CloseReplaced, "replaced")
	}
	g.logger.Info("client connected",
		zap.String("conn", c.ID),
		zap.String("identity", c.Identity.ID),
		zap.String("table", c.Table.ID),
		zap.Int("total", total))
}

func reject(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = conn.Close()
}

// close asks the write pump to send a close frame and hang up.
func (c *Connection) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeFrame = websocket.FormatCloseMessage(code, reason)
		close(c.done)
	})
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		if err := c.Table.Detach(c.ID); err != nil && !errors.Is(err, table.ErrTableClosed) {
			c.Gateway.logger.Warn("detach failed", zap.String("conn", c.ID), zap.Error(err))
		}
		c.close(websocket.CloseNormalClosure, "")
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.Gateway.logger.Info("read error", zap.String("conn", c.ID), zap.Error(err))
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Connection) handleMessage(data []byte) {
	action, err := codec.DecodeAction(data)
	if err != nil {
		c.Gateway.logger.Warn("dropped inbound message", zap.String("conn", c.ID), zap.Error(err))
		c.sendError(err)
		return
	}
	if c.Identity.Guest {
		c.sendError(blackjack.ErrGuestNotAllowed)
		return
	}
	if err := c.Table.Act(c.ID, action); err != nil {
		c.Gateway.logger.Debug("action rejected",
			zap.String("conn", c.ID),
			zap.String("type", action.Type()),
			zap.Error(err))
		c.sendError(err)
	}
}

func (c *Connection) sendError(err error) {
	c.enqueue(codec.EncodeError(codec.ErrorCode(err), err))
}

// enqueue never blocks; a full buffer drops the frame for this connection.
func (c *Connection) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.Send <- data:
	default:
		c.Gateway.logger.Warn("send buffer full, dropping frame", zap.String("conn", c.ID))
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, c.closeFrame)
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connections[c.ID] == c {
		delete(g.connections, c.ID)
	}
	if c.StaticID != "" && g.staticConns[c.StaticID] == c {
		delete(g.staticConns, c.StaticID)
	}
	g.logger.Info("client disconnected", zap.String("conn", c.ID), zap.Int("total", len(g.connections)))
}

func (g *Gateway) lookup(connID string) *Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections[connID]
}

// Send delivers a table frame to one connection.
func (g *Gateway) Send(connID string, data []byte) {
	if c := g.lookup(connID); c != nil {
		c.enqueue(data)
	}
}

// Close evicts a connection whose seat moved to a newer one.
func (g *Gateway) Close(connID string) {
	if c := g.lookup(connID); c != nil {
		c.close(CloseReplaced, "replaced")
	}
}

// Count returns the number of live connections.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Shutdown closes every connection with a going-away frame.
func (g *Gateway) Shutdown() {
	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.connections))
	for _, c := range g.connections {
		conns = append(conns, c)
	}
	g.mu.RUnlock()
	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
}

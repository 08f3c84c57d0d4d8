package httpapi

import (
	"net/http"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/auth"
	"blackjack-lite/internal/ledger"
	"blackjack-lite/internal/lobby"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Deps struct {
	Lobby     *lobby.Lobby
	WebSocket http.HandlerFunc
	Auth      auth.Resolver
	Ledger    ledger.Service

	// AdminPasswordHash guards introspection with basic auth when set (bcrypt).
	AdminPasswordHash string
	AllowedOrigins    []string
	Logger            *zap.Logger
}

// NewRouter wires every HTTP route of the server.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), accessLog(logger), cors.New(corsConfig(d.AllowedOrigins)))
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if d.WebSocket != nil {
		r.GET("/ws", gin.WrapF(d.WebSocket))
	}

	rooms := r.Group("/rooms")
	if d.AdminPasswordHash != "" {
		rooms.Use(adminAuth(d.AdminPasswordHash))
	}
	rooms.GET("", listRooms(d.Lobby))
	rooms.GET("/:id/connections", roomConnections(d.Lobby))

	if d.Ledger != nil && d.Auth != nil {
		ledger.NewHTTPHandler(d.Auth, d.Ledger).RegisterRoutes(r)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

type roomSummary struct {
	ID          string          `json:"id"`
	Phase       blackjack.Phase `json:"phase"`
	Seated      int             `json:"seated"`
	Connections int             `json:"connections"`
}

func listRooms(lby *lobby.Lobby) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := lby.ListTables()
		rooms := make([]roomSummary, 0, len(ids))
		for _, id := range ids {
			t := lby.GetTable(id)
			if t == nil {
				continue
			}
			snap := t.Snapshot()
			rooms = append(rooms, roomSummary{
				ID:          id,
				Phase:       snap.Phase,
				Seated:      len(snap.Players),
				Connections: len(t.Connections()),
			})
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	}
}

func roomConnections(lby *lobby.Lobby) gin.HandlerFunc {
	return func(c *gin.Context) {
		t := lby.GetTable(c.Param("id"))
		if t == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connections": t.Connections()})
	}
}

func adminAuth(passwordHash string) gin.HandlerFunc {
	hash := []byte(passwordHash)
	return func(c *gin.Context) {
		_, password, ok := c.Request.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
			c.Header("WWW-Authenticate", `Basic realm="blackjack"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

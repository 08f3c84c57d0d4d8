package ledger

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blackjack-lite/internal/auth"

	"github.com/gin-gonic/gin"
)

type HTTPHandler struct {
	auth   auth.Resolver
	ledger Service
}

func NewHTTPHandler(resolver auth.Resolver, ledgerService Service) *HTTPHandler {
	return &HTTPHandler{auth: resolver, ledger: ledgerService}
}

func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	rounds := r.Group("/api/rounds")
	rounds.GET("/recent", h.handleRecent)
	rounds.GET("/:id/events", h.handleEvents)
}

func (h *HTTPHandler) handleRecent(c *gin.Context) {
	identity, ok := h.resolveIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	items, err := h.ledger.ListRecent(ctx, identity, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query recent rounds failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *HTTPHandler) handleEvents(c *gin.Context) {
	if _, ok := h.resolveIdentity(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
		return
	}
	roundID := strings.TrimSpace(c.Param("id"))
	if roundID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing round id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	events, err := h.ledger.GetRoundEvents(ctx, roundID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "round not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query round events failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"round_id": roundID, "events": events})
}

// resolveIdentity accepts only non-guest bearer credentials.
func (h *HTTPHandler) resolveIdentity(c *gin.Context) (string, bool) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		return "", false
	}
	id, err := h.auth.Resolve(c.Request.Context(), token)
	if err != nil || id.Guest {
		return "", false
	}
	return id.ID, true
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

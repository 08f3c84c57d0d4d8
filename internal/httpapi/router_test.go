package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/auth"
	"blackjack-lite/internal/codec"
	"blackjack-lite/internal/ledger"
	"blackjack-lite/internal/lobby"
	"blackjack-lite/internal/table"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopSender struct{}

func (nopSender) Send(string, []byte) {}
func (nopSender) Close(string)        {}

func newTestLobby(t *testing.T) *lobby.Lobby {
	t.Helper()
	cfg := table.DefaultConfig()
	cfg.TickInterval = time.Hour
	lby := lobby.New(lobby.Options{Table: cfg})
	t.Cleanup(lby.Close)
	return lby
}

func serve(r http.Handler, method, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Lobby: newTestLobby(t)})
	w := serve(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRoomConnections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lby := newTestLobby(t)
	tbl, err := lby.GetOrCreate("main", nopSender{})
	require.NoError(t, err)
	require.NoError(t, tbl.Attach("conn-1", "alice", false))
	require.NoError(t, tbl.Attach("conn-2", "", true))

	r := NewRouter(Deps{Lobby: lby, Auth: auth.InsecureResolver{}, Ledger: mustNoopLedger(t)})

	w := serve(r, http.MethodGet, "/rooms/main/connections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Connections map[string]string `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"conn-1": "alice", "conn-2": "guest"}, body.Connections)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/rooms/other/connections", nil).Code)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		assert.Equal(t, http.StatusMethodNotAllowed, serve(r, method, "/rooms/main/connections", nil).Code, method)
	}
}

func TestListRooms(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lby := newTestLobby(t)
	felt, err := lby.GetOrCreate("main", nopSender{})
	require.NoError(t, err)
	require.NoError(t, felt.Attach("conn-1", "alice", false))
	require.NoError(t, felt.Act("conn-1", codec.PlayerJoin{Seat: 2}))
	_, err = lby.GetOrCreate("annex", nopSender{})
	require.NoError(t, err)

	r := NewRouter(Deps{Lobby: lby})
	w := serve(r, http.MethodGet, "/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Rooms []roomSummary `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []roomSummary{
		{ID: "annex", Phase: blackjack.PhaseWaiting},
		{ID: "main", Phase: blackjack.PhaseWaiting, Seated: 1, Connections: 1},
	}, body.Rooms)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, http.MethodPost, "/rooms", nil).Code)
}

func TestRoomConnectionsAdminGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lby := newTestLobby(t)
	_, err := lby.GetOrCreate("main", nopSender{})
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	r := NewRouter(Deps{Lobby: lby, AdminPasswordHash: string(hash)})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/rooms/main/connections", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/rooms/main/connections", func(req *http.Request) {
		req.SetBasicAuth("admin", "wrong")
	}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/rooms/main/connections", func(req *http.Request) {
		req.SetBasicAuth("admin", "hunter2")
	}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/rooms", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Lobby: newTestLobby(t), AllowedOrigins: []string{"https://play.example.com"}})
	w := serve(r, http.MethodOptions, "/health", func(req *http.Request) {
		req.Header.Set("Origin", "https://play.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://play.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func mustNoopLedger(t *testing.T) ledger.Service {
	t.Helper()
	svc, _, err := ledger.NewService(context.Background(), ledger.Options{})
	require.NoError(t, err)
	return svc
}

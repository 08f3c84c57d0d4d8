package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceModes(t *testing.T) {
	ctx := context.Background()

	s, mode, err := NewService(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, ModeNoop, mode)
	require.NoError(t, s.RecordRound(ctx, RoundRecord{RoundID: "r"}))
	_, err = s.GetRoundEvents(ctx, "r")
	assert.True(t, errors.Is(err, ErrNotFound))

	s, mode, err = NewService(ctx, Options{Mode: "SQLite", SQLitePath: t.TempDir() + "/l.db"})
	require.NoError(t, err)
	assert.Equal(t, ModeSQLite, mode)
	assert.NoError(t, s.Close())

	_, mode, err = NewService(ctx, Options{Mode: "cassandra"})
	assert.Error(t, err)
	assert.Equal(t, "cassandra", mode)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	b64, err := EncodeEnvelope([]byte(`{"room":"blackjack","type":"welcome","data":{"isPlayer":true,"seat":2}}`))
	require.NoError(t, err)

	frame, err := DecodeEnvelope(b64)
	require.NoError(t, err)
	assert.Equal(t, "welcome", frame["type"])
	data, ok := frame["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["isPlayer"])
	assert.Equal(t, float64(2), data["seat"])

	_, err = EncodeEnvelope([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 20, normalizeLimit(0))
	assert.Equal(t, 20, normalizeLimit(-3))
	assert.Equal(t, 20, normalizeLimit(maxListLimit+1))
	assert.Equal(t, 7, normalizeLimit(7))
}

func TestRedisKeys(t *testing.T) {
	s := newRedisService(nil, "", 10, nil)
	assert.Equal(t, "blackjack:rounds", s.RoundsChannel())
	assert.Equal(t, "blackjack:history:alice", s.historyKey("alice"))
	assert.Equal(t, "blackjack:round:r1:events", s.eventsKey("r1"))
	assert.NoError(t, s.Close())
}

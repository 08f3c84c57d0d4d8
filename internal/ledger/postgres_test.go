package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T, recentLimit int) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newPostgresService(db, recentLimit, nil), mock
}

func TestPostgresRecordRound(t *testing.T) {
	s, mock := newMockPostgres(t, 50)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	round := sampleRound("r1", at)

	mock.ExpectBegin()
	for _, e := range round.Entries {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO round_history")).
			WithArgs(e.Identity, "r1", "main", at, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM round_history")).
			WithArgs(e.Identity, 50).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, s.RecordRound(context.Background(), round))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordRoundRollsBack(t *testing.T) {
	s, mock := newMockPostgres(t, 0)
	round := sampleRound("r1", time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO round_history")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	assert.Error(t, s.RecordRound(context.Background(), round))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRecent(t *testing.T) {
	s, mock := newMockPostgres(t, 0)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"round_id", "table_id", "played_at", "summary_json"}).
		AddRow("r2", "main", at.Add(time.Minute), []byte(`{"state":"win"}`)).
		AddRow("r1", "main", at, []byte(`{"state":"push"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM round_history")).
		WithArgs("bob", 20).
		WillReturnRows(rows)

	items, err := s.ListRecent(context.Background(), "bob", 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r2", items[0].RoundID)
	assert.Equal(t, "win", items[0].Summary["state"])
	assert.Equal(t, "push", items[1].Summary["state"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRecentSkipsCorruptSummary(t *testing.T) {
	s, mock := newMockPostgres(t, 0)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"round_id", "table_id", "played_at", "summary_json"}).
		AddRow("r2", "main", at.Add(time.Minute), []byte(`{"state":`)).
		AddRow("r1", "main", at, []byte(`{"state":"push"}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM round_history")).
		WithArgs("bob", 20).
		WillReturnRows(rows)

	items, err := s.ListRecent(context.Background(), "bob", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].RoundID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRoundEvents(t *testing.T) {
	s, mock := newMockPostgres(t, 0)

	rows := sqlmock.NewRows([]string{"seq", "event_type", "envelope_b64", "server_ts_ms"}).
		AddRow(int64(1), "stateUpdate", "AAAA", int64(1700)).
		AddRow(int64(2), "betTimerEnd", "BBBB", nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM round_event_stream")).
		WithArgs("r1").
		WillReturnRows(rows)

	events, err := s.GetRoundEvents(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].ServerTsMs)
	assert.Equal(t, int64(1700), *events[0].ServerTsMs)
	assert.Nil(t, events[1].ServerTsMs)

	mock.ExpectQuery(regexp.QuoteMeta("FROM round_event_stream")).
		WithArgs("empty").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "event_type", "envelope_b64", "server_ts_ms"}))
	_, err = s.GetRoundEvents(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendEvent(t *testing.T) {
	s, mock := newMockPostgres(t, 0)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO round_event_stream")).
		WithArgs("r1", int64(4), "stateUpdate", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s.AppendEvent("r1", 4, "stateUpdate", []byte(`{"type":"stateUpdate"}`))
	s.AppendEvent("", 5, "stateUpdate", []byte(`{"type":"stateUpdate"}`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

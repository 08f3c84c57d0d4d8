package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisURL    = "redis://localhost:6379/0"
	defaultRedisPrefix = "blackjack"
	eventTapeTTL       = 24 * time.Hour
)

// RedisService publishes settled rounds on a channel and keeps capped
// per-identity history lists plus a short-lived event tape per round.
type RedisService struct {
	client      *redis.Client
	prefix      string
	recentLimit int
	logger      *zap.Logger
}

func NewRedisService(ctx context.Context, rawURL, prefix string, recentLimit int, logger *zap.Logger) (*RedisService, error) {
	if strings.TrimSpace(rawURL) == "" {
		rawURL = defaultRedisURL
	}
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisService(client, prefix, recentLimit, logger), nil
}

func newRedisService(client *redis.Client, prefix string, recentLimit int, logger *zap.Logger) *RedisService {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisService{client: client, prefix: prefix, recentLimit: recentLimit, logger: logger}
}

func (s *RedisService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// RoundsChannel is where settled rounds are published.
func (s *RedisService) RoundsChannel() string {
	return s.prefix + ":rounds"
}

func (s *RedisService) historyKey(identity string) string {
	return s.prefix + ":history:" + identity
}

func (s *RedisService) eventsKey(roundID string) string {
	return s.prefix + ":round:" + roundID + ":events"
}

func (s *RedisService) AppendEvent(roundID string, seq uint64, eventType string, payload []byte) {
	if strings.TrimSpace(roundID) == "" || len(payload) == 0 {
		return
	}
	envelope, err := EncodeEnvelope(payload)
	if err != nil {
		s.logger.Warn("encode round event failed", zap.String("round", roundID), zap.Error(err))
		return
	}
	ts := time.Now().UTC().UnixMilli()
	raw, err := json.Marshal(EventItem{Seq: seq, EventType: eventType, EnvelopeB64: envelope, ServerTsMs: &ts})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	key := s.eventsKey(roundID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, raw)
		pipe.Expire(ctx, key, eventTapeTTL)
		return nil
	})
	if err != nil {
		s.logger.Warn("append round event failed", zap.String("round", roundID), zap.Uint64("seq", seq), zap.Error(err))
	}
}

func (s *RedisService) RecordRound(ctx context.Context, round RoundRecord) error {
	if strings.TrimSpace(round.RoundID) == "" {
		return fmt.Errorf("round id is required")
	}
	if round.PlayedAt.IsZero() {
		round.PlayedAt = time.Now().UTC()
	}
	published, err := json.Marshal(round)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range round.Entries {
			item, err := json.Marshal(HistoryItem{
				RoundID:  round.RoundID,
				TableID:  round.TableID,
				PlayedAt: round.PlayedAt,
				Summary:  entrySummary(round, e),
			})
			if err != nil {
				return err
			}
			key := s.historyKey(e.Identity)
			pipe.LPush(ctx, key, item)
			if s.recentLimit > 0 {
				pipe.LTrim(ctx, key, 0, int64(s.recentLimit-1))
			}
		}
		pipe.Publish(ctx, s.RoundsChannel(), published)
		return nil
	})
	return err
}

func (s *RedisService) ListRecent(ctx context.Context, identity string, limit int) ([]HistoryItem, error) {
	if strings.TrimSpace(identity) == "" {
		return []HistoryItem{}, nil
	}
	limit = normalizeLimit(limit)
	raws, err := s.client.LRange(ctx, s.historyKey(identity), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(raws))
	for _, raw := range raws {
		var item HistoryItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			s.logger.Warn("skip corrupt history item", zap.String("identity", identity), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisService) GetRoundEvents(ctx context.Context, roundID string) ([]EventItem, error) {
	if strings.TrimSpace(roundID) == "" {
		return nil, ErrNotFound
	}
	raws, err := s.client.LRange(ctx, s.eventsKey(roundID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]EventItem, 0, len(raws))
	for _, raw := range raws {
		var e EventItem
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

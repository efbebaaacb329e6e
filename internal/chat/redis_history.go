package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	historyKeyPrefix = "medassist:chat:"
	historyTTL       = 24 * time.Hour
)

// RedisHistory stores each session as a JSON-encoded Redis list that
// expires a day after the last write.
type RedisHistory struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

func NewRedisHistory(client *redis.Client, tracer trace.Tracer) *RedisHistory {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("medassist.chat.history")
	}
	return &RedisHistory{
		redis:       client,
		tracer:      tracer,
		ttl:         historyTTL,
		maxMessages: maxHistoryMessages,
	}
}

func (h *RedisHistory) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	if sessionID == "" {
		return errors.New("chat: session id required")
	}
	if len(msgs) == 0 {
		return nil
	}

	ctx, span := h.tracer.Start(ctx, "chat.history.append")
	defer span.End()

	values := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("chat: marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(sessionID)
	pipe := h.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, h.ttl)
	pipe.LTrim(ctx, key, -h.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: append history: %w", err)
	}
	return nil
}

// Load returns the stored messages oldest first. Entries that fail to
// decode are skipped.
func (h *RedisHistory) Load(ctx context.Context, sessionID string) ([]Message, error) {
	if sessionID == "" {
		return nil, errors.New("chat: session id required")
	}

	ctx, span := h.tracer.Start(ctx, "chat.history.load")
	defer span.End()

	raw, err := h.redis.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: load history: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (h *RedisHistory) Clear(ctx context.Context, sessionID string) error {
	ctx, span := h.tracer.Start(ctx, "chat.history.clear")
	defer span.End()

	if err := h.redis.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: clear history: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

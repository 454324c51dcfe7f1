package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coilworks/springchat/internal/agent/model"
	errx "github.com/coilworks/springchat/internal/core/error"
	logx "github.com/coilworks/springchat/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisRecordRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisRecordRepository(rdb redis.Cmdable, ttl time.Duration) *RedisRecordRepository {
	return &RedisRecordRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisRecordRepository) recordKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:record", conversationID)
}

func (r *RedisRecordRepository) turnsKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:turns", conversationID)
}

func (r *RedisRecordRepository) SaveRecord(ctx context.Context, conversationID string, record *model.ParameterRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal parameter record")
		return fmt.Errorf("marshal record: %w", err)
	}
	key := r.recordKey(conversationID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write parameter record to redis")
		return errx.WrapRedis(err)
	}
	// keep the turn list on the same clock as the record
	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, r.turnsKey(conversationID), r.ttl).Err(); err != nil {
			logx.Error().Err(err).Str("key", r.turnsKey(conversationID)).Msg("failed to set expire")
			return errx.WrapRedis(err)
		}
	}
	return nil
}

func (r *RedisRecordRepository) LoadRecord(ctx context.Context, conversationID string) (*model.ParameterRecord, error) {
	key := r.recordKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load parameter record from redis")
		return nil, errx.WrapRedis(err)
	}

	var rec model.ParameterRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to unmarshal parameter record")
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	if rec.Values == nil {
		rec.Values = make(map[model.Field]model.FieldValue)
	}
	return &rec, nil
}

func (r *RedisRecordRepository) AppendTurn(ctx context.Context, conversationID string, turn model.TurnSummary) error {
	b, err := json.Marshal(turn)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to marshal turn summary")
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := r.turnsKey(conversationID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push turn summary to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on turns key")
		}
	}
	return nil
}

func (r *RedisRecordRepository) LoadTurns(ctx context.Context, conversationID string) ([]model.TurnSummary, error) {
	key := r.turnsKey(conversationID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.TurnSummary{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load turn history from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]model.TurnSummary, 0, len(rows))
	for i, s := range rows {
		var t model.TurnSummary
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal turn summary")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisRecordRepository) Clear(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, r.recordKey(conversationID), r.turnsKey(conversationID)).Err(); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to delete conversation data from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.RecordRepository = (*RedisRecordRepository)(nil)

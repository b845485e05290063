package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"actionitems-backend/internal/schedule/domain"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRedisKeyPrefix namespaces every key written by the redis backend
	DefaultRedisKeyPrefix = "actionitems:"

	redisMaxTxRetries = 5
)

// redisScheduleRepository stores each schedule as a JSON document with two
// sorted-set indexes: per user (scored by insertion sequence) and by next run.
type redisScheduleRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisScheduleRepository creates a Redis-backed ScheduleRepository
func NewRedisScheduleRepository(client *redis.Client, keyPrefix string) ScheduleRepository {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &redisScheduleRepository{client: client, keyPrefix: keyPrefix}
}

func (r *redisScheduleRepository) scheduleKey(id string) string {
	return r.keyPrefix + "schedule:" + id
}

func (r *redisScheduleRepository) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID + ":schedules"
}

func (r *redisScheduleRepository) dueKey() string {
	return r.keyPrefix + "next_run"
}

func (r *redisScheduleRepository) seqKey() string {
	return r.keyPrefix + "seq"
}

func (r *redisScheduleRepository) Create(ctx context.Context, s *domain.ScheduledEmail) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	seq, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	key := r.scheduleKey(s.ID)
	return r.withRetry(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("schedule %s already exists", s.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, r.userKey(s.UserID), redis.Z{Score: float64(seq), Member: s.ID})
			pipe.ZAdd(ctx, r.dueKey(), redis.Z{Score: dueScore(s.NextRun), Member: s.ID})
			return nil
		})
		return err
	}, key)
}

func (r *redisScheduleRepository) FindByID(ctx context.Context, id string) (*domain.ScheduledEmail, error) {
	data, err := r.client.Get(ctx, r.scheduleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return decodeSchedule(data)
}

func (r *redisScheduleRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.ScheduledEmail, error) {
	ids, err := r.client.ZRange(ctx, r.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user schedules: %w", err)
	}
	return r.load(ctx, ids)
}

func (r *redisScheduleRepository) Update(ctx context.Context, id string, fn MutateFunc) (*domain.ScheduledEmail, error) {
	key := r.scheduleKey(id)
	var updated *domain.ScheduledEmail

	err := r.withRetry(ctx, func(tx *redis.Tx) error {
		updated = nil
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		s, err := decodeSchedule(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		encoded, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode schedule: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.ZAdd(ctx, r.dueKey(), redis.Z{Score: dueScore(s.NextRun), Member: s.ID})
			return nil
		})
		if err != nil {
			return err
		}
		updated = s
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *redisScheduleRepository) Delete(ctx context.Context, id string) (bool, error) {
	key := r.scheduleKey(id)
	var deleted bool

	err := r.withRetry(ctx, func(tx *redis.Tx) error {
		deleted = false
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		s, err := decodeSchedule(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, r.userKey(s.UserID), id)
			pipe.ZRem(ctx, r.dueKey(), id)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}, key)
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *redisScheduleRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledEmail, error) {
	ids, err := r.client.ZRangeByScore(ctx, r.dueKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due schedules: %w", err)
	}
	schedules, err := r.load(ctx, ids)
	if err != nil {
		return nil, err
	}

	due := schedules[:0]
	for _, s := range schedules {
		if s.IsActive && !s.NextRun.After(now) {
			due = append(due, s)
		}
	}
	return due, nil
}

// load fetches schedules by id, keeping the order of ids and skipping ids
// whose document disappeared.
func (r *redisScheduleRepository) load(ctx context.Context, ids []string) ([]*domain.ScheduledEmail, error) {
	schedules := []*domain.ScheduledEmail{}
	if len(ids) == 0 {
		return schedules, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.scheduleKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		s, err := decodeSchedule([]byte(str))
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

// withRetry runs fn in a WATCH transaction, retrying when a watched key
// changes underneath it.
func (r *redisScheduleRepository) withRetry(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		err = r.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("schedule transaction aborted after %d attempts: %w", redisMaxTxRetries, err)
}

func decodeSchedule(data []byte) (*domain.ScheduledEmail, error) {
	var s domain.ScheduledEmail
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	return &s, nil
}

func dueScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrLockHeld is returned when another request holds the session lock.
var ErrLockHeld = errors.New("session lock already held")

const (
	deadlinesKey = "exam:deadlines"
	lockTTL      = 10 * time.Second
)

// Store persists sessions and the deadline index.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Lock(ctx context.Context, id uuid.UUID) (unlock func() error, err error)
	SetLatest(ctx context.Context, userID, id uuid.UUID) error
	Latest(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error)
	ScheduleDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error
	ClearDeadline(ctx context.Context, id uuid.UUID) error
	DueSessions(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// RedisStore handles exam state in Redis with atomic locks.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store whose session keys expire after ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{redis: client, ttl: ttl, logger: logger}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("exam:session:%s", id.String())
}

// Save stores the session JSON and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err()
}

// Get returns the session or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lock acquires a short distributed lock for session state transitions.
func (s *RedisStore) Lock(ctx context.Context, id uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("exam:lock:%s", id.String())
	lockValue := uuid.NewString()

	acquired, err := s.redis.SetNX(ctx, key, lockValue, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}

	unlock := func() error {
		// only delete our own lock
		return unlockScript.Run(context.WithoutCancel(ctx), s.redis, []string{key}, lockValue).Err()
	}
	return unlock, nil
}

func latestKey(userID uuid.UUID) string {
	return fmt.Sprintf("exam:latest:%s", userID.String())
}

// SetLatest remembers the user's most recent session.
func (s *RedisStore) SetLatest(ctx context.Context, userID, id uuid.UUID) error {
	return s.redis.Set(ctx, latestKey(userID), id.String(), s.ttl).Err()
}

// Latest returns the user's most recent session id.
func (s *RedisStore) Latest(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := s.redis.Get(ctx, latestKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get latest session: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// ScheduleDeadline indexes the session by deadline for the expiry worker.
func (s *RedisStore) ScheduleDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	return s.redis.ZAdd(ctx, deadlinesKey, redis.Z{
		Score:  float64(deadline.UnixMilli()),
		Member: id.String(),
	}).Err()
}

// ClearDeadline removes the session from the deadline index.
func (s *RedisStore) ClearDeadline(ctx context.Context, id uuid.UUID) error {
	return s.redis.ZRem(ctx, deadlinesKey, id.String()).Err()
}

// DueSessions lists sessions whose deadline is at or before now.
func (s *RedisStore) DueSessions(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	members, err := s.redis.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range deadlines: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			s.logger.Warn().Str("member", m).Msg("dropping malformed deadline entry")
			_ = s.redis.ZRem(ctx, deadlinesKey, m).Err()
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hash fields of the per-user progress record.
const (
	FieldLicense       = "selected_category"
	FieldBestScore     = "best_score"
	FieldFinishedExams = "finished_exams"
	FieldLanguage      = "language"
	learningPrefix     = "learning_last_question_"
)

// LearningField is the field holding the learning position of license.
func LearningField(license string) string {
	return learningPrefix + license
}

// Store persists per-user key-value progress.
type Store interface {
	All(ctx context.Context, userID uuid.UUID) (map[string]string, error)
	Get(ctx context.Context, userID uuid.UUID, field string) (string, bool, error)
	Set(ctx context.Context, userID uuid.UUID, field, value string) error
	Delete(ctx context.Context, userID uuid.UUID, fields ...string) error
	// RecordExam increments the finished count and raises the best score atomically.
	RecordExam(ctx context.Context, userID uuid.UUID, score int) (finished, best int, err error)
}

// RedisStore keeps one hash per user.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(userID uuid.UUID) string {
	return "progress:" + userID.String()
}

func (s *RedisStore) All(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.key(userID)).Result()
}

func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key(userID), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, userID uuid.UUID, field, value string) error {
	return s.client.HSet(ctx, s.key(userID), field, value).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.client.HDel(ctx, s.key(userID), fields...).Err()
}

var recordExamScript = redis.NewScript(`
local finished = redis.call("HINCRBY", KEYS[1], ARGV[2], 1)
local best = tonumber(redis.call("HGET", KEYS[1], ARGV[3]) or "0") or 0
local score = tonumber(ARGV[1])
if score > best then
	redis.call("HSET", KEYS[1], ARGV[3], ARGV[1])
	best = score
end
return {finished, best}
`)

func (s *RedisStore) RecordExam(ctx context.Context, userID uuid.UUID, score int) (int, int, error) {
	res, err := recordExamScript.Run(ctx, s.client, []string{s.key(userID)},
		score, FieldFinishedExams, FieldBestScore).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("record exam: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("record exam: unexpected reply %v", res)
	}
	return int(res[0]), int(res[1]), nil
}

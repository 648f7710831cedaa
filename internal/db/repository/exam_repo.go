package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExamAnswer is one graded answer of a finished exam.
type ExamAnswer struct {
	Position   int
	QuestionID int64
	Answer     string
	Correct    bool
}

// ExamResult is a finished exam attempt.
type ExamResult struct {
	SessionID     uuid.UUID
	Attempt       int
	UserID        uuid.UUID
	License       string
	Score         int
	MaxScore      int
	CorrectCount  int
	QuestionCount int
	Expired       bool
	StartedAt     time.Time
	FinishedAt    time.Time
	Answers       []ExamAnswer
}

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// ExamRepository persists exam results.
type ExamRepository struct {
	db DBTX
	tx txRunner
}

// NewExamRepository wires the repository. tx may be nil, then writes are not transactional.
func NewExamRepository(db DBTX, tx txRunner) *ExamRepository {
	return &ExamRepository{db: db, tx: tx}
}

// SaveResult stores the attempt with its answers. Saving the same attempt twice is a no-op.
func (r *ExamRepository) SaveResult(ctx context.Context, res ExamResult) error {
	if r.tx == nil {
		return saveResult(ctx, r.db, res)
	}
	return r.tx.WithinTx(ctx, func(ctx context.Context, tx DBTX) error {
		return saveResult(ctx, tx, res)
	})
}

func saveResult(ctx context.Context, db DBTX, res ExamResult) error {
	tag, err := db.Exec(ctx, `
		INSERT INTO exam_results (
			session_id, attempt, user_id, license, score, max_score,
			correct_count, question_count, expired, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id, attempt) DO NOTHING`,
		res.SessionID, res.Attempt, res.UserID, res.License, res.Score, res.MaxScore,
		res.CorrectCount, res.QuestionCount, res.Expired, res.StartedAt, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	for _, a := range res.Answers {
		if _, err := db.Exec(ctx, `
			INSERT INTO exam_result_answers (session_id, attempt, position, question_id, answer, correct)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.SessionID, res.Attempt, a.Position, a.QuestionID, a.Answer, a.Correct,
		); err != nil {
			return fmt.Errorf("insert exam answer %d: %w", a.Position, err)
		}
	}
	return nil
}

// ListByUser returns the most recent attempts of a user, newest first.
func (r *ExamRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ExamResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT session_id, attempt, user_id, license, score, max_score,
		       correct_count, question_count, expired, started_at, finished_at
		FROM exam_results
		WHERE user_id = $1
		ORDER BY finished_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	defer rows.Close()

	var out []ExamResult
	for rows.Next() {
		var res ExamResult
		if err := rows.Scan(
			&res.SessionID, &res.Attempt, &res.UserID, &res.License, &res.Score, &res.MaxScore,
			&res.CorrectCount, &res.QuestionCount, &res.Expired, &res.StartedAt, &res.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exam result: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exam results: %w", err)
	}
	return out, nil
}

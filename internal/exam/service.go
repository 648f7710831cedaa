package exam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	"github.com/gokatarajesh/theory-exam/internal/metrics"
	"github.com/gokatarajesh/theory-exam/internal/question"
)

var (
	ErrNotFound        = errors.New("exam not found")
	ErrNoQuestions     = errors.New("no questions for license")
	ErrQuestionsFailed = errors.New("question pool unavailable")
	ErrFinished        = errors.New("exam already finished")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrNotCurrent      = errors.New("only the current question can be answered")
	ErrInvalidIndex    = errors.New("question index out of range")
	ErrInvalidAnswer   = errors.New("answer not allowed for this question")
	ErrBusy            = errors.New("exam is being updated, try again")
)

// QuestionSource supplies the two exam pools.
type QuestionSource interface {
	ForLicenseByKind(ctx context.Context, license string, kind question.Kind) ([]question.Question, error)
}

// Progress is the part of the progress service the exam needs.
type Progress interface {
	License(ctx context.Context, userID uuid.UUID) (string, error)
	RecordExam(ctx context.Context, userID uuid.UUID, score int) error
}

// ResultStore persists finished attempts.
type ResultStore interface {
	SaveResult(ctx context.Context, res repository.ExamResult) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]repository.ExamResult, error)
}

// Config sets the exam shape.
type Config struct {
	Duration   time.Duration
	YesNoCount int
	MultiCount int
}

// DefaultConfig is 25 minutes with 20 yes/no and 12 multiple-choice questions.
func DefaultConfig() Config {
	return Config{Duration: 25 * time.Minute, YesNoCount: 20, MultiCount: 12}
}

// Options holds optional collaborators.
type Options struct {
	Results ResultStore
	Events  Publisher
	Metrics *metrics.Metrics
	Rand    question.Rand
	Now     func() time.Time
}

// Service runs exam sessions.
type Service struct {
	store     Store
	questions QuestionSource
	progress  Progress
	results   ResultStore
	events    Publisher
	metrics   *metrics.Metrics
	cfg       Config
	rng       question.Rand
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(store Store, questions QuestionSource, progress Progress, cfg Config, opts Options, logger zerolog.Logger) *Service {
	if opts.Rand == nil {
		opts.Rand = question.DefaultRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &Service{
		store:     store,
		questions: questions,
		progress:  progress,
		results:   opts.Results,
		events:    opts.Events,
		metrics:   opts.Metrics,
		cfg:       cfg,
		rng:       opts.Rand,
		now:       opts.Now,
		logger:    logger.With().Str("component", "exam").Logger(),
	}
}

// Start draws a new exam for the user's selected license.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (*Session, error) {
	license, err := s.progress.License(ctx, userID)
	if err != nil {
		return nil, err
	}

	yesNo, err := s.questions.ForLicenseByKind(ctx, license, question.KindYesNo)
	if err != nil {
		return nil, fmt.Errorf("%w: yes/no pool: %w", ErrQuestionsFailed, err)
	}
	multi, err := s.questions.ForLicenseByKind(ctx, license, question.KindMultipleChoice)
	if err != nil {
		return nil, fmt.Errorf("%w: multiple-choice pool: %w", ErrQuestionsFailed, err)
	}

	basic := question.Sample(yesNo, s.cfg.YesNoCount, s.rng)
	special := question.Sample(multi, s.cfg.MultiCount, s.rng)
	if len(basic)+len(special) == 0 {
		return nil, ErrNoQuestions
	}

	qs := make([]question.Question, 0, len(basic)+len(special))
	qs = append(qs, basic...)
	qs = append(qs, special...)

	now := s.now()
	sess := &Session{
		ID:         uuid.New(),
		UserID:     userID,
		License:    license,
		Questions:  qs,
		YesNoCount: len(basic),
		Duration:   s.cfg.Duration,
	}
	sess.Reset(now)

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := s.store.ScheduleDeadline(ctx, sess.ID, sess.Deadline); err != nil {
		s.logger.Warn().Err(err).Str("exam_id", sess.ID.String()).Msg("schedule deadline failed")
	}
	if err := s.store.SetLatest(ctx, userID, sess.ID); err != nil {
		s.logger.Warn().Err(err).Str("exam_id", sess.ID.String()).Msg("remember latest exam failed")
	}

	s.metrics.ExamsStarted.WithLabelValues(license).Inc()
	s.logger.Info().
		Str("exam_id", sess.ID.String()).
		Str("user_id", userID.String()).
		Str("license", license).
		Int("yes_no", len(basic)).
		Int("multiple_choice", len(special)).
		Msg("exam started")
	return sess, nil
}

// Get returns the session, finishing it first when its time ran out.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Session, error) {
	sess, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if sess.Finished() || !sess.Expired(s.now()) {
		return sess, nil
	}

	var out *Session
	err = s.withLock(ctx, id, func() error {
		fresh, err := s.load(ctx, userID, id)
		if err != nil {
			return err
		}
		if !fresh.Finished() && fresh.Expired(s.now()) {
			if err := s.finalize(ctx, fresh, true); err != nil {
				return err
			}
		}
		out = fresh
		return nil
	})
	if errors.Is(err, ErrBusy) {
		// someone else is finishing it; serve what we have
		return sess, nil
	}
	return out, err
}

// Latest returns the user's most recent session.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID) (*Session, error) {
	id, ok, err := s.store.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID, id)
}

// Answer records the answer to the current question and advances. Answering
// the last question, or answering after the deadline, finishes the exam.
func (s *Service) Answer(ctx context.Context, userID, id uuid.UUID, index int, raw string) (*Session, error) {
	var out *Session
	err := s.withLock(ctx, id, func() error {
		sess, err := s.load(ctx, userID, id)
		if err != nil {
			return err
		}
		if sess.Finished() {
			return ErrFinished
		}
		if sess.Expired(s.now()) {
			if err := s.finalize(ctx, sess, true); err != nil {
				return err
			}
			return ErrFinished
		}
		if index < 0 || index >= len(sess.Questions) {
			return ErrInvalidIndex
		}
		if sess.Answers[index] != "" {
			return ErrAlreadyAnswered
		}
		if index != sess.Current {
			return ErrNotCurrent
		}
		answer, ok := sess.NormalizeAnswer(index, raw)
		if !ok {
			return ErrInvalidAnswer
		}

		sess.Answers[index] = answer
		correct := answer == sess.Questions[index].Correct
		s.metrics.ExamAnswers.WithLabelValues(fmt.Sprint(correct)).Inc()

		if index == len(sess.Questions)-1 {
			if err := s.finalize(ctx, sess, false); err != nil {
				return err
			}
		} else {
			sess.Current = index + 1
			if err := s.store.Save(ctx, sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}
		out = sess
		return nil
	})
	return out, err
}

// Retry restarts the exam with the same questions. An attempt that ran out of
// time but was never read is recorded first.
func (s *Service) Retry(ctx context.Context, userID, id uuid.UUID) (*Session, error) {
	var out *Session
	err := s.withLock(ctx, id, func() error {
		sess, err := s.load(ctx, userID, id)
		if err != nil {
			return err
		}
		if !sess.Finished() && sess.Expired(s.now()) {
			if err := s.finalize(ctx, sess, true); err != nil {
				return err
			}
		}
		sess.Reset(s.now())
		if err := s.store.Save(ctx, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if err := s.store.ScheduleDeadline(ctx, sess.ID, sess.Deadline); err != nil {
			s.logger.Warn().Err(err).Str("exam_id", sess.ID.String()).Msg("schedule deadline failed")
		}
		s.metrics.ExamsStarted.WithLabelValues(sess.License).Inc()
		s.publish(ctx, Event{Type: EventRestarted, ExamID: sess.ID, UserID: userID, Attempt: sess.Attempt})
		out = sess
		return nil
	})
	return out, err
}

// History lists the user's finished attempts, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]repository.ExamResult, error) {
	if s.results == nil {
		return nil, nil
	}
	return s.results.ListByUser(ctx, userID, limit)
}

// ExpireDue finishes sessions whose deadline passed and returns how many it finished.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := s.now()
	ids, err := s.store.DueSessions(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	finished := 0
	for _, id := range ids {
		err := s.withLock(ctx, id, func() error {
			sess, err := s.store.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				return s.store.ClearDeadline(ctx, id)
			}
			if err != nil {
				return err
			}
			if sess.Finished() {
				return s.store.ClearDeadline(ctx, id)
			}
			if !sess.Expired(now) {
				return nil
			}
			if err := s.finalize(ctx, sess, true); err != nil {
				return err
			}
			finished++
			return nil
		})
		if err != nil && !errors.Is(err, ErrBusy) {
			s.logger.Warn().Err(err).Str("exam_id", id.String()).Msg("expire session failed")
		}
	}
	return finished, nil
}

func (s *Service) load(ctx context.Context, userID, id uuid.UUID) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrNotFound
	}
	return sess, nil
}

const (
	lockAttempts = 5
	lockBackoff  = 25 * time.Millisecond
)

func (s *Service) withLock(ctx context.Context, id uuid.UUID, fn func() error) error {
	var unlock func() error
	for attempt := 0; ; attempt++ {
		var err error
		unlock, err = s.store.Lock(ctx, id)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrLockHeld) {
			return err
		}
		if attempt == lockAttempts-1 {
			return ErrBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff):
		}
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Warn().Err(err).Str("exam_id", id.String()).Msg("release lock failed")
		}
	}()
	return fn()
}

// finalize grades and closes the session once; side effects after the save
// only log on failure.
func (s *Service) finalize(ctx context.Context, sess *Session, expired bool) error {
	if sess.Finished() {
		return nil
	}
	now := s.now()
	res := Grade(sess.Questions, sess.Answers)
	res.Expired = expired

	sess.Status = StatusFinished
	sess.FinishedAt = &now
	sess.Result = &res
	if err := s.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save finished session: %w", err)
	}

	log := s.logger.With().Str("exam_id", sess.ID.String()).Str("user_id", sess.UserID.String()).Logger()
	if err := s.store.ClearDeadline(ctx, sess.ID); err != nil {
		log.Warn().Err(err).Msg("clear deadline failed")
	}
	if err := s.progress.RecordExam(ctx, sess.UserID, res.Score); err != nil {
		log.Warn().Err(err).Msg("record exam stats failed")
	}
	if s.results != nil {
		if err := s.results.SaveResult(ctx, toRecord(sess, now)); err != nil {
			log.Warn().Err(err).Msg("persist exam result failed")
		}
	}

	reason := metrics.ReasonAnswered
	if expired {
		reason = metrics.ReasonExpired
	}
	s.metrics.ExamsFinished.WithLabelValues(sess.License, reason).Inc()
	s.metrics.ExamScoreRatio.Observe(res.Ratio())

	s.publish(ctx, Event{Type: EventFinished, ExamID: sess.ID, UserID: sess.UserID, Attempt: sess.Attempt, Result: &res})
	log.Info().
		Int("score", res.Score).
		Int("max_score", res.MaxScore).
		Bool("expired", expired).
		Msg("exam finished")
	return nil
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("exam_id", evt.ExamID.String()).Str("event", evt.Type).Msg("publish exam event failed")
	}
}

func toRecord(sess *Session, finishedAt time.Time) repository.ExamResult {
	rec := repository.ExamResult{
		SessionID:     sess.ID,
		Attempt:       sess.Attempt,
		UserID:        sess.UserID,
		License:       sess.License,
		Score:         sess.Result.Score,
		MaxScore:      sess.Result.MaxScore,
		CorrectCount:  sess.Result.Correct,
		QuestionCount: sess.Result.Total,
		Expired:       sess.Result.Expired,
		StartedAt:     sess.StartedAt,
		FinishedAt:    finishedAt,
		Answers:       make([]repository.ExamAnswer, len(sess.Questions)),
	}
	for i, q := range sess.Questions {
		rec.Answers[i] = repository.ExamAnswer{
			Position:   i,
			QuestionID: q.ID,
			Answer:     sess.Answers[i],
			Correct:    sess.Answers[i] != "" && sess.Answers[i] == q.Correct,
		}
	}
	return rec
}

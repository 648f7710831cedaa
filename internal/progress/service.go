// Package progress keeps the per-user flags: selected license, language,
// learning positions and exam statistics.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/question"
)

var (
	ErrNoLicense       = errors.New("no license category selected")
	ErrUnknownLicense  = errors.New("unknown license category")
	ErrUnknownLanguage = errors.New("unsupported language")
)

// Stats summarizes a user's activity.
type Stats struct {
	FinishedExams   int `json:"finished_exams"`
	BestScore       int `json:"best_score"`
	ViewedQuestions int `json:"viewed_questions"`
}

// Service wraps Store with validation and defaults.
type Service struct {
	store    Store
	logger   zerolog.Logger
	onSelect func(license string)
}

// NewService builds the service. onSelect, when set, runs after a license is chosen.
func NewService(store Store, logger zerolog.Logger, onSelect func(license string)) *Service {
	return &Service{store: store, logger: logger, onSelect: onSelect}
}

// SelectLicense stores the chosen license category.
func (s *Service) SelectLicense(ctx context.Context, userID uuid.UUID, code string) (question.License, error) {
	lic, ok := question.LookupLicense(code)
	if !ok {
		return question.License{}, ErrUnknownLicense
	}
	if err := s.store.Set(ctx, userID, FieldLicense, lic.Code); err != nil {
		return question.License{}, fmt.Errorf("save license: %w", err)
	}
	if s.onSelect != nil {
		s.onSelect(lic.Code)
	}
	return lic, nil
}

// License returns the selected license code or ErrNoLicense.
func (s *Service) License(ctx context.Context, userID uuid.UUID) (string, error) {
	v, ok, err := s.store.Get(ctx, userID, FieldLicense)
	if err != nil {
		return "", fmt.Errorf("read license: %w", err)
	}
	if !ok || v == "" {
		return "", ErrNoLicense
	}
	return v, nil
}

// ClearLicense forgets the selected license so the user picks again.
func (s *Service) ClearLicense(ctx context.Context, userID uuid.UUID) error {
	return s.store.Delete(ctx, userID, FieldLicense)
}

// SetLanguage stores the UI/content language.
func (s *Service) SetLanguage(ctx context.Context, userID uuid.UUID, raw string) (i18n.Lang, error) {
	lang, ok := i18n.Parse(raw)
	if !ok {
		return "", ErrUnknownLanguage
	}
	if err := s.store.Set(ctx, userID, FieldLanguage, string(lang)); err != nil {
		return "", fmt.Errorf("save language: %w", err)
	}
	return lang, nil
}

// Language returns the saved language, the default one when unset or unreadable.
func (s *Service) Language(ctx context.Context, userID uuid.UUID) i18n.Lang {
	v, ok, err := s.store.Get(ctx, userID, FieldLanguage)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read language failed")
		return i18n.Default
	}
	if !ok {
		return i18n.Default
	}
	if lang, ok := i18n.Parse(v); ok {
		return lang
	}
	return i18n.Default
}

// LearningPosition returns the saved index for license, 0 when missing or invalid.
func (s *Service) LearningPosition(ctx context.Context, userID uuid.UUID, license string) int {
	v, ok, err := s.store.Get(ctx, userID, LearningField(license))
	if err != nil {
		s.logger.Warn().Err(err).Str("license", license).Msg("read learning position failed")
		return 0
	}
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetLearningPosition saves the learning index for license.
func (s *Service) SetLearningPosition(ctx context.Context, userID uuid.UUID, license string, index int) error {
	if index < 0 {
		index = 0
	}
	return s.store.Set(ctx, userID, LearningField(license), strconv.Itoa(index))
}

// RecordExam counts a finished exam and keeps the best score.
func (s *Service) RecordExam(ctx context.Context, userID uuid.UUID, score int) error {
	finished, best, err := s.store.RecordExam(ctx, userID, score)
	if err != nil {
		return err
	}
	s.logger.Debug().
		Str("user_id", userID.String()).
		Int("score", score).
		Int("best", best).
		Int("finished", finished).
		Msg("exam recorded")
	return nil
}

// Stats reads counters and sums learning positions (index+1 per license).
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	all, err := s.store.All(ctx, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("read progress: %w", err)
	}
	var st Stats
	st.FinishedExams = atoiOrZero(all[FieldFinishedExams])
	st.BestScore = atoiOrZero(all[FieldBestScore])
	for field, v := range all {
		if !strings.HasPrefix(field, learningPrefix) || v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			st.ViewedQuestions += n + 1
		}
	}
	return st, nil
}

func atoiOrZero(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

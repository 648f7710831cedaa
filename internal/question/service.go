package question

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/db/repository"
	"github.com/gokatarajesh/theory-exam/internal/i18n"
)

// Store reads the question bank.
type Store interface {
	List(ctx context.Context, f repository.QuestionFilter) ([]repository.QuestionRow, error)
}

// PoolKey identifies a cached question pool.
type PoolKey struct {
	License string
	Topic   string
	Kind    Kind
}

// PoolCache defines cache behavior (implemented by Redis-backed Cache).
type PoolCache interface {
	Get(ctx context.Context, key PoolKey) ([]Question, bool, error)
	Set(ctx context.Context, key PoolKey, qs []Question) error
}

// Service serves question pools from the cache or the store.
type Service struct {
	store  Store
	cache  PoolCache
	logger zerolog.Logger
}

// NewService builds the service. cache may be nil.
func NewService(store Store, cache PoolCache, logger zerolog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// ForLicense returns every question tagged with license.
func (s *Service) ForLicense(ctx context.Context, license string) ([]Question, error) {
	return s.pool(ctx, PoolKey{License: license})
}

// ForLicenseByKind returns the yes/no or multiple-choice pool of a license.
func (s *Service) ForLicenseByKind(ctx context.Context, license string, kind Kind) ([]Question, error) {
	return s.pool(ctx, PoolKey{License: license, Kind: kind})
}

// ForTopic returns the license+topic questions localized to lang.
func (s *Service) ForTopic(ctx context.Context, license, topic string, lang i18n.Lang) ([]Question, error) {
	qs, err := s.pool(ctx, PoolKey{License: license, Topic: topic})
	if err != nil {
		return nil, err
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Localize(lang)
	}
	return out, nil
}

// Warm loads the pools an exam and learning session need for license.
func (s *Service) Warm(ctx context.Context, license string) error {
	for _, key := range []PoolKey{
		{License: license},
		{License: license, Kind: KindYesNo},
		{License: license, Kind: KindMultipleChoice},
	} {
		if _, err := s.pool(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) pool(ctx context.Context, key PoolKey) ([]Question, error) {
	if s.cache != nil {
		qs, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("license", key.License).Msg("question cache read failed")
		} else if ok {
			return qs, nil
		}
	}

	rows, err := s.store.List(ctx, repository.QuestionFilter{
		License: key.License,
		Topic:   key.Topic,
		Kind:    string(key.Kind),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	qs := make([]Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, FromRow(row))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, qs); err != nil {
			s.logger.Warn().Err(err).Str("license", key.License).Msg("question cache write failed")
		}
	}
	return qs, nil
}

// FromRow converts a repository row, folding NULLs into empty strings.
func FromRow(row repository.QuestionRow) Question {
	q := Question{
		ID:       row.ID,
		Licenses: row.Licenses,
		Topic:    deref(row.Topic),
		Prompt:   row.Prompt,
		AnswerA:  deref(row.AnswerA),
		AnswerB:  deref(row.AnswerB),
		AnswerC:  deref(row.AnswerC),
		Correct:  row.Correct,
		Media:    deref(row.Media),
	}
	if row.Points != nil {
		q.Points = int(*row.Points)
	}
	for sfx, tr := range row.Translations {
		t := Translation{
			Prompt:  deref(tr.Prompt),
			AnswerA: deref(tr.AnswerA),
			AnswerB: deref(tr.AnswerB),
			AnswerC: deref(tr.AnswerC),
		}
		if t == (Translation{}) {
			continue
		}
		if q.Translations == nil {
			q.Translations = map[string]Translation{}
		}
		q.Translations[sfx] = t
	}
	return q
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

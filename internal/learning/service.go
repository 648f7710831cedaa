// Package learning serves sequential learning mode and topic practice.
package learning

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/question"
)

var (
	ErrUnknownTopic  = errors.New("unknown practice topic")
	ErrUnknownAction = errors.New("unknown navigation action")
)

// Navigation actions.
const (
	ActionNext = "next"
	ActionPrev = "prev"
	ActionGoto = "goto"
)

// QuestionSource is the part of the question service learning needs.
type QuestionSource interface {
	ForLicense(ctx context.Context, license string) ([]question.Question, error)
	ForTopic(ctx context.Context, license, topic string, lang i18n.Lang) ([]question.Question, error)
}

// Progress is the part of the progress service learning needs.
type Progress interface {
	License(ctx context.Context, userID uuid.UUID) (string, error)
	Language(ctx context.Context, userID uuid.UUID) i18n.Lang
	LearningPosition(ctx context.Context, userID uuid.UUID, license string) int
	SetLearningPosition(ctx context.Context, userID uuid.UUID, license string, index int) error
}

// View is one step of learning or practice.
type View struct {
	License    string         `json:"license"`
	Topic      string         `json:"topic,omitempty"`
	TopicLabel string         `json:"topic_label,omitempty"`
	Index      int            `json:"index"`
	Total      int            `json:"total"`
	CanPrev    bool           `json:"can_prev"`
	CanNext    bool           `json:"can_next"`
	Question   *question.View `json:"question,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Service browses questions one at a time.
type Service struct {
	questions QuestionSource
	progress  Progress
	presenter *question.Presenter
	labels    question.Translator
	logger    zerolog.Logger
}

func NewService(questions QuestionSource, progress Progress, presenter *question.Presenter, labels question.Translator, logger zerolog.Logger) *Service {
	return &Service{
		questions: questions,
		progress:  progress,
		presenter: presenter,
		labels:    labels,
		logger:    logger.With().Str("component", "learning").Logger(),
	}
}

// Open shows the question the user stopped at for the selected license.
func (s *Service) Open(ctx context.Context, userID uuid.UUID, lang i18n.Lang) (View, error) {
	license, qs, err := s.learningSet(ctx, userID)
	if err != nil {
		return View{}, err
	}
	index := clamp(s.progress.LearningPosition(ctx, userID, license), len(qs))
	return s.render(ctx, license, qs, index, lang), nil
}

// Move navigates with next, prev or goto (with target) and saves the new position.
func (s *Service) Move(ctx context.Context, userID uuid.UUID, action string, target int, lang i18n.Lang) (View, error) {
	license, qs, err := s.learningSet(ctx, userID)
	if err != nil {
		return View{}, err
	}

	current := clamp(s.progress.LearningPosition(ctx, userID, license), len(qs))
	var next int
	switch action {
	case ActionNext:
		next = current + 1
	case ActionPrev:
		next = current - 1
	case ActionGoto:
		next = target
	default:
		return View{}, ErrUnknownAction
	}
	next = clamp(next, len(qs))

	if len(qs) > 0 && next != current {
		if err := s.progress.SetLearningPosition(ctx, userID, license, next); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID.String()).Str("license", license).Msg("save learning position failed")
		}
	}
	return s.render(ctx, license, qs, next, lang), nil
}

// Topic shows question index of a practice topic. Positions are not saved.
func (s *Service) Topic(ctx context.Context, userID uuid.UUID, topic string, index int, lang i18n.Lang) (View, error) {
	t, ok := question.LookupTopic(topic)
	if !ok {
		return View{}, ErrUnknownTopic
	}
	license, err := s.progress.License(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if lang == "" {
		lang = s.progress.Language(ctx, userID)
	}

	qs, err := s.questions.ForTopic(ctx, license, t.Name, lang)
	if err != nil {
		s.logger.Warn().Err(err).Str("license", license).Str("topic", t.Name).Msg("load practice questions failed")
		qs = nil
	}

	index = clamp(index, len(qs))
	v := View{
		License:    license,
		Topic:      t.Name,
		TopicLabel: s.label(lang, t.Key),
		Index:      index,
		Total:      len(qs),
		CanPrev:    index > 0,
		CanNext:    index < len(qs)-1,
	}
	if len(qs) == 0 {
		v.Message = s.label(lang, "no_questions")
		return v, nil
	}
	qv := s.presenter.Present(ctx, qs[index], lang, question.WithStyle(question.OptionLettered))
	v.Question = &qv
	return v, nil
}

func (s *Service) learningSet(ctx context.Context, userID uuid.UUID) (string, []question.Question, error) {
	license, err := s.progress.License(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	qs, err := s.questions.ForLicense(ctx, license)
	if err != nil {
		s.logger.Warn().Err(err).Str("license", license).Msg("load learning questions failed")
		return license, nil, nil
	}
	return license, qs, nil
}

func (s *Service) render(ctx context.Context, license string, qs []question.Question, index int, lang i18n.Lang) View {
	v := View{
		License: license,
		Index:   index,
		Total:   len(qs),
		CanPrev: index > 0,
		CanNext: index < len(qs)-1,
	}
	if len(qs) == 0 {
		v.Message = s.label(lang, "no_questions")
		return v
	}
	qv := s.presenter.Present(ctx, qs[index], lang, question.WithStyle(question.OptionBare))
	v.Question = &qv
	return v
}

func (s *Service) label(lang i18n.Lang, key string) string {
	if s.labels == nil {
		return ""
	}
	return s.labels.T(lang, key)
}

// clamp keeps i within [0, n-1], 0 for an empty list.
func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

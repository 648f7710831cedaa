package question

import (
	"context"

	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/media"
)

// MediaResolver turns a media file name into a loadable source.
type MediaResolver interface {
	Resolve(ctx context.Context, name string) (media.Source, bool)
}

// Translator looks up UI labels.
type Translator interface {
	T(l i18n.Lang, key string, args ...interface{}) string
}

// View is a question as shown to a client.
type View struct {
	ID      int64         `json:"id"`
	Topic   string        `json:"topic,omitempty"`
	Kind    Kind          `json:"kind"`
	Prompt  string        `json:"prompt"`
	Options []Option      `json:"options"`
	Points  int           `json:"points"`
	Media   *media.Source `json:"media,omitempty"`
}

// OptionsFunc builds the options of an already localized question.
type OptionsFunc func(q Question) []Option

// WithStyle is the plain Options of q in the given style.
func WithStyle(style OptionStyle) OptionsFunc {
	return func(q Question) []Option { return q.Options(style) }
}

// Presenter localizes questions, labels yes/no options and resolves media.
type Presenter struct {
	media  MediaResolver
	labels Translator
}

// NewPresenter builds a presenter. Either dependency may be nil.
func NewPresenter(resolver MediaResolver, labels Translator) *Presenter {
	return &Presenter{media: resolver, labels: labels}
}

// Present renders q in lang.
func (p *Presenter) Present(ctx context.Context, q Question, lang i18n.Lang, options OptionsFunc) View {
	lq := q.Localize(lang)
	opts := options(lq)
	for i := range opts {
		switch opts[i].Key {
		case AnswerYes:
			opts[i].Text = p.label(lang, "answer_yes", opts[i].Text)
		case AnswerNo:
			opts[i].Text = p.label(lang, "answer_no", opts[i].Text)
		}
	}

	v := View{
		ID:      lq.ID,
		Topic:   lq.Topic,
		Kind:    lq.Kind(),
		Prompt:  lq.Prompt,
		Options: opts,
		Points:  lq.PointsOrDefault(),
	}
	if p.media != nil && lq.Media != "" {
		if src, ok := p.media.Resolve(ctx, lq.Media); ok {
			v.Media = &src
		}
	}
	return v
}

func (p *Presenter) label(lang i18n.Lang, key, fallback string) string {
	if p.labels == nil {
		return fallback
	}
	return p.labels.T(lang, key)
}

package exam

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/theory-exam/internal/i18n"
	"github.com/gokatarajesh/theory-exam/internal/question"
)

// QuestionView is one exam question as shown to the client. Correctness is
// only revealed once the attempt is finished.
type QuestionView struct {
	Index   int           `json:"index"`
	Section question.Kind `json:"section"`
	Answer  string        `json:"answer,omitempty"`
	Correct string        `json:"correct_answer,omitempty"`
	Right   *bool         `json:"is_correct,omitempty"`
	Locked  bool          `json:"locked"`
	Detail  question.View `json:"question"`
}

// View is the client-facing state of a session.
type View struct {
	ID               uuid.UUID      `json:"id"`
	License          string         `json:"license"`
	Attempt          int            `json:"attempt"`
	Status           Status         `json:"status"`
	Total            int            `json:"total"`
	YesNoCount       int            `json:"yes_no_count"`
	Current          int            `json:"current"`
	Answered         int            `json:"answered"`
	RemainingSeconds int            `json:"remaining_seconds"`
	Clock            string         `json:"clock"`
	Progress         float64        `json:"progress"`
	StartedAt        time.Time      `json:"started_at"`
	Deadline         time.Time      `json:"deadline"`
	Question         *QuestionView  `json:"question,omitempty"`
	Review           []QuestionView `json:"review,omitempty"`
	Result           *Result        `json:"result,omitempty"`
	ResultText       string         `json:"result_text,omitempty"`
}

// Viewer renders sessions for a language.
type Viewer struct {
	presenter *question.Presenter
	labels    question.Translator
	now       func() time.Time
}

func NewViewer(presenter *question.Presenter, labels question.Translator) *Viewer {
	return &Viewer{presenter: presenter, labels: labels, now: time.Now}
}

// Render shows the current question while active and the full review once finished.
func (v *Viewer) Render(ctx context.Context, sess *Session, lang i18n.Lang) View {
	now := v.now()
	out := View{
		ID:               sess.ID,
		License:          sess.License,
		Attempt:          sess.Attempt,
		Status:           sess.Status,
		Total:            len(sess.Questions),
		YesNoCount:       sess.YesNoCount,
		Current:          sess.Current,
		RemainingSeconds: sess.Remaining(now),
		Progress:         sess.Progress(now),
		StartedAt:        sess.StartedAt,
		Deadline:         sess.Deadline,
		Result:           sess.Result,
	}
	out.Clock = FormatClock(out.RemainingSeconds)
	for _, a := range sess.Answers {
		if a != "" {
			out.Answered++
		}
	}

	if !sess.Finished() {
		if sess.Current < len(sess.Questions) {
			qv := v.question(ctx, sess, sess.Current, lang, false)
			out.Question = &qv
		}
		return out
	}

	out.Progress = 1
	out.Review = make([]QuestionView, len(sess.Questions))
	for i := range sess.Questions {
		out.Review[i] = v.question(ctx, sess, i, lang, true)
	}
	if sess.Result != nil && v.labels != nil {
		out.ResultText = v.labels.T(lang, "exam_result_score", sess.Result.Score, sess.Result.MaxScore)
	}
	return out
}

func (v *Viewer) question(ctx context.Context, sess *Session, index int, lang i18n.Lang, reveal bool) QuestionView {
	q := sess.Questions[index]
	detail := v.presenter.Present(ctx, q, lang, func(lq question.Question) []question.Option {
		opts := sess.Options(index, lq)
		if reveal {
			for i := range opts {
				opts[i].Correct = opts[i].Key == q.Correct
			}
		}
		return opts
	})

	qv := QuestionView{
		Index:   index,
		Section: sess.Section(index),
		Answer:  sess.Answers[index],
		Locked:  sess.Answers[index] != "" || sess.Finished(),
		Detail:  detail,
	}
	if reveal {
		qv.Correct = q.Correct
		right := qv.Answer != "" && qv.Answer == q.Correct
		qv.Right = &right
	}
	return qv
}

// Package exam runs timed exam sessions: draw, answer, countdown, scoring and retry.
package exam

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/theory-exam/internal/question"
)

// Status of a session.
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Result is the graded outcome of one attempt.
type Result struct {
	Score    int  `json:"score"`
	MaxScore int  `json:"max_score"`
	Correct  int  `json:"correct"`
	Total    int  `json:"total"`
	Expired  bool `json:"expired"`
}

// Session is the state of one exam, stored in Redis.
type Session struct {
	ID         uuid.UUID           `json:"id"`
	UserID     uuid.UUID           `json:"user_id"`
	License    string              `json:"license"`
	Attempt    int                 `json:"attempt"`
	Questions  []question.Question `json:"questions"`
	YesNoCount int                 `json:"yes_no_count"`
	Answers    []string            `json:"answers"`
	Current    int                 `json:"current"`
	Duration   time.Duration       `json:"duration"`
	StartedAt  time.Time           `json:"started_at"`
	Deadline   time.Time           `json:"deadline"`
	Status     Status              `json:"status"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Result     *Result             `json:"result,omitempty"`
}

// Finished reports whether the session has a result.
func (s *Session) Finished() bool {
	return s.Status == StatusFinished
}

// Expired reports whether the countdown reached zero at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// Remaining returns the whole seconds left at now, never negative.
func (s *Session) Remaining(now time.Time) int {
	if s.Finished() {
		return 0
	}
	left := s.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Progress is the elapsed share of the exam time, from 0 to 1.
func (s *Session) Progress(now time.Time) float64 {
	total := s.Duration.Seconds()
	if total <= 0 {
		return 1
	}
	p := 1 - float64(s.Remaining(now))/total
	return math.Min(1, math.Max(0, p))
}

// Section returns the kind of answer the question at index expects.
func (s *Session) Section(index int) question.Kind {
	if index < s.YesNoCount {
		return question.KindYesNo
	}
	return question.KindMultipleChoice
}

// AllowedAnswers lists the answers accepted for the question at index.
func (s *Session) AllowedAnswers(index int) []string {
	if s.Section(index) == question.KindYesNo {
		return []string{question.AnswerYes, question.AnswerNo}
	}
	q := s.Questions[index]
	var out []string
	for _, letter := range question.Letters {
		if q.Answer(letter) != "" {
			out = append(out, letter)
		}
	}
	return out
}

// NormalizeAnswer maps raw input onto an allowed answer, case-insensitively.
func (s *Session) NormalizeAnswer(index int, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, a := range s.AllowedAnswers(index) {
		if strings.EqualFold(a, raw) {
			return a, true
		}
	}
	return "", false
}

// Options are the choices shown for the question at index, without correctness.
func (s *Session) Options(index int, q question.Question) []question.Option {
	if s.Section(index) == question.KindYesNo {
		return []question.Option{
			{Key: question.AnswerYes, Text: question.AnswerYes},
			{Key: question.AnswerNo, Text: question.AnswerNo},
		}
	}
	var opts []question.Option
	for _, letter := range question.Letters {
		if text := q.Answer(letter); text != "" {
			opts = append(opts, question.Option{Key: letter, Text: text})
		}
	}
	return opts
}

// Reset clears answers and restarts the countdown for another attempt.
func (s *Session) Reset(now time.Time) {
	s.Attempt++
	s.Answers = make([]string, len(s.Questions))
	s.Current = 0
	s.StartedAt = now
	s.Deadline = now.Add(s.Duration)
	s.Status = StatusActive
	s.FinishedAt = nil
	s.Result = nil
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

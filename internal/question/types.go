package question

import (
	"strings"

	"github.com/gokatarajesh/theory-exam/internal/i18n"
)

// Kind separates the two exam sections.
type Kind string

const (
	KindYesNo          Kind = "yes_no"
	KindMultipleChoice Kind = "multiple_choice"
)

// Yes/no answers as stored in the correct-answer column.
const (
	AnswerYes = "Tak"
	AnswerNo  = "Nie"
)

// Letters of multiple-choice answers in display order.
var Letters = []string{"A", "B", "C"}

// Translation holds the localized columns of one language.
type Translation struct {
	Prompt  string `json:"prompt,omitempty"`
	AnswerA string `json:"answer_a,omitempty"`
	AnswerB string `json:"answer_b,omitempty"`
	AnswerC string `json:"answer_c,omitempty"`
}

// Question is one row of the question bank. Empty strings stand for NULL columns.
type Question struct {
	ID           int64                  `json:"id"`
	Licenses     string                 `json:"licenses"`
	Topic        string                 `json:"topic,omitempty"`
	Prompt       string                 `json:"prompt"`
	AnswerA      string                 `json:"answer_a,omitempty"`
	AnswerB      string                 `json:"answer_b,omitempty"`
	AnswerC      string                 `json:"answer_c,omitempty"`
	Correct      string                 `json:"correct"`
	Points       int                    `json:"points,omitempty"`
	Media        string                 `json:"media,omitempty"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// Option is one selectable answer.
type Option struct {
	Key     string `json:"key"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// OptionStyle controls how multiple-choice option text is rendered.
type OptionStyle int

const (
	// OptionBare renders the answer text only.
	OptionBare OptionStyle = iota
	// OptionLettered prefixes the text with "A. ".
	OptionLettered
)

// Kind reports yes_no when none of the A/B/C answers is set.
func (q Question) Kind() Kind {
	if q.AnswerA == "" && q.AnswerB == "" && q.AnswerC == "" {
		return KindYesNo
	}
	return KindMultipleChoice
}

// Answer returns the text of answer letter, empty when unset.
func (q Question) Answer(letter string) string {
	switch strings.ToUpper(letter) {
	case "A":
		return q.AnswerA
	case "B":
		return q.AnswerB
	case "C":
		return q.AnswerC
	}
	return ""
}

// PointsOrDefault returns the question weight, 1 when unset.
func (q Question) PointsOrDefault() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// IsYesNoAnswer reports whether a is Tak or Nie.
func IsYesNoAnswer(a string) bool {
	return a == AnswerYes || a == AnswerNo
}

// Options lists the selectable answers. Yes/no questions with a Tak/Nie key
// get the two fixed options, everything else the non-empty letters.
func (q Question) Options(style OptionStyle) []Option {
	if q.Kind() == KindYesNo && IsYesNoAnswer(q.Correct) {
		return []Option{
			{Key: AnswerYes, Text: AnswerYes, Correct: q.Correct == AnswerYes},
			{Key: AnswerNo, Text: AnswerNo, Correct: q.Correct == AnswerNo},
		}
	}
	opts := make([]Option, 0, len(Letters))
	for _, letter := range Letters {
		text := q.Answer(letter)
		if text == "" {
			continue
		}
		if style == OptionLettered {
			text = letter + ". " + text
		}
		opts = append(opts, Option{Key: letter, Text: text, Correct: q.Correct == letter})
	}
	return opts
}

// Localize returns a copy with prompt and answers taken from the lang columns
// when they are filled. Answers missing in the base row stay missing.
func (q Question) Localize(lang i18n.Lang) Question {
	suffix := strings.TrimPrefix(lang.ColumnSuffix(), "_")
	if suffix == "" {
		return q
	}
	tr, ok := q.Translations[suffix]
	if !ok {
		return q
	}
	out := q
	if tr.Prompt != "" {
		out.Prompt = tr.Prompt
	}
	if out.AnswerA != "" && tr.AnswerA != "" {
		out.AnswerA = tr.AnswerA
	}
	if out.AnswerB != "" && tr.AnswerB != "" {
		out.AnswerB = tr.AnswerB
	}
	if out.AnswerC != "" && tr.AnswerC != "" {
		out.AnswerC = tr.AnswerC
	}
	return out
}

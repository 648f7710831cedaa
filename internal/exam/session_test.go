package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/theory-exam/internal/question"
)

func TestFormatClock(t *testing.T) {
	cases := map[int]string{
		1500: "25:00",
		61:   "1:01",
		59:   "0:59",
		0:    "0:00",
		-5:   "0:00",
	}
	for secs, want := range cases {
		assert.Equal(t, want, FormatClock(secs), "%d seconds", secs)
	}
}

func TestCountdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{Duration: 25 * time.Minute}
	s.Reset(start)

	assert.Equal(t, 1500, s.Remaining(start))
	assert.Equal(t, 0.0, s.Progress(start))

	// partial seconds round up
	assert.Equal(t, 1499, s.Remaining(start.Add(1500*time.Millisecond)))

	half := start.Add(12*time.Minute + 30*time.Second)
	assert.InDelta(t, 0.5, s.Progress(half), 0.001)
	assert.False(t, s.Expired(half))

	end := start.Add(25 * time.Minute)
	assert.True(t, s.Expired(end))
	assert.Equal(t, 0, s.Remaining(end.Add(time.Minute)))
	assert.Equal(t, 1.0, s.Progress(end.Add(time.Minute)))
}

func TestAllowedAnswersBySection(t *testing.T) {
	s := &Session{
		YesNoCount: 1,
		Questions: []question.Question{
			{Prompt: "tak/nie", Correct: question.AnswerYes},
			{Prompt: "abc", AnswerA: "a", AnswerB: "b", Correct: "A"},
		},
	}

	assert.Equal(t, []string{question.AnswerYes, question.AnswerNo}, s.AllowedAnswers(0))
	assert.Equal(t, []string{"A", "B"}, s.AllowedAnswers(1))

	a, ok := s.NormalizeAnswer(0, " nie ")
	assert.True(t, ok)
	assert.Equal(t, question.AnswerNo, a)

	_, ok = s.NormalizeAnswer(1, "c")
	assert.False(t, ok)

	opts := s.Options(0, s.Questions[0])
	assert.Len(t, opts, 2)
	for _, o := range opts {
		assert.False(t, o.Correct)
	}
}

func TestNormalizeAnswerIgnoresCase(t *testing.T) {
	s := &Session{
		YesNoCount: 1,
		Questions: []question.Question{
			{Prompt: "tak/nie", Correct: question.AnswerYes},
			{Prompt: "abc", AnswerA: "a", AnswerB: "b", AnswerC: "c", Correct: "B"},
		},
	}

	cases := []struct {
		index int
		raw   string
		want  string
		ok    bool
	}{
		{0, "tak", "Tak", true},
		{0, "TAK", "Tak", true},
		{0, "Tak", "Tak", true},
		{0, "nIE", "Nie", true},
		{0, "yes", "", false},
		{1, "b", "B", true},
		{1, " c\n", "C", true},
		{1, "d", "", false},
		{1, "tak", "", false},
		{0, "", "", false},
	}
	for _, tc := range cases {
		got, ok := s.NormalizeAnswer(tc.index, tc.raw)
		assert.Equal(t, tc.ok, ok, "%d %q", tc.index, tc.raw)
		assert.Equal(t, tc.want, got, "%d %q", tc.index, tc.raw)
	}
}

func TestGrade(t *testing.T) {
	qs := []question.Question{
		{Correct: question.AnswerYes},
		{Correct: question.AnswerNo, Points: 2},
		{AnswerA: "x", AnswerB: "y", Correct: "B", Points: 3},
	}

	res := Grade(qs, []string{question.AnswerYes, question.AnswerYes, "B"})
	assert.Equal(t, Result{Score: 4, MaxScore: 6, Correct: 2, Total: 3}, res)
	assert.InDelta(t, 4.0/6.0, res.Ratio(), 1e-9)

	empty := Grade(qs, make([]string, 3))
	assert.Zero(t, empty.Score)
	assert.Equal(t, 6, empty.MaxScore)

	assert.Zero(t, Grade(nil, nil).Ratio())
}

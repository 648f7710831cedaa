package exam

import "github.com/gokatarajesh/theory-exam/internal/question"

// Grade scores answers against questions. Each correct answer earns the
// question's points (1 when unset); the maximum is the sum over all questions.
func Grade(questions []question.Question, answers []string) Result {
	res := Result{Total: len(questions)}
	for i, q := range questions {
		pts := q.PointsOrDefault()
		res.MaxScore += pts
		if i < len(answers) && answers[i] != "" && answers[i] == q.Correct {
			res.Score += pts
			res.Correct++
		}
	}
	return res
}

// Ratio is score over max score, 0 for an empty exam.
func (r Result) Ratio() float64 {
	if r.MaxScore == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.MaxScore)
}

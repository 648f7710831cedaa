package question

import "math/rand/v2"

// Rand is the source of randomness used for shuffling.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide generator.
var DefaultRand Rand = globalRand{}

// Shuffle returns a Fisher-Yates shuffled copy of qs.
func Shuffle(qs []Question, rng Rand) []Question {
	if rng == nil {
		rng = DefaultRand
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample returns n random questions, or all of them shuffled when fewer exist.
func Sample(qs []Question, n int, rng Rand) []Question {
	if n <= 0 {
		return nil
	}
	out := Shuffle(qs, rng)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

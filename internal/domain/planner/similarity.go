package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/mkravets/brollplan/internal/types"
)

// ErrDimensionMismatch indicates that two embeddings of different lengths were
// compared. That is malformed upstream data (an embedding-collaborator bug),
// so it propagates instead of being absorbed into the plan.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Cosine returns the cosine similarity of a and b. A zero-magnitude vector
// yields 0 rather than NaN so degenerate embeddings rank as non-matching.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Match is the winning candidate for one transcript segment.
type Match struct {
	BRollID    string
	Confidence float64
	Reason     string
}

const reasonMetadataLimit = 100

// BestMatch scores the segment embedding against every candidate in the pool
// and returns the strictly best one. Ties keep the first-encountered
// candidate, so the result is stable with respect to pool order. Returns nil
// only for an empty pool.
func BestMatch(embedding []float64, pool []types.BRoll) (*Match, error) {
	if len(pool) == 0 {
		return nil, nil
	}
	bestIdx := -1
	bestScore := math.Inf(-1)
	for i := range pool {
		score, err := Cosine(embedding, pool[i].Embedding)
		if err != nil {
			return nil, err
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	win := pool[bestIdx]
	return &Match{
		BRollID:    win.ID,
		Confidence: bestScore,
		Reason:     fmt.Sprintf("segment matches b-roll described as %q", truncate(win.Metadata, reasonMetadataLimit)),
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

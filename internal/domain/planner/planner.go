package planner

import (
	"sort"

	"github.com/mkravets/brollplan/internal/types"
)

// Config holds the tunable thresholds of the insertion planner. All values
// are seconds except MinConfidence and MaxInsertions.
type Config struct {
	MinInsertionGap      float64
	MinInsertionDuration float64
	MaxInsertionDuration float64
	MinConfidence        float64
	MaxInsertions        int
	AvoidFirstSeconds    float64
	AvoidLastSeconds     float64
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		MinInsertionGap:      8,
		MinInsertionDuration: 2,
		MaxInsertionDuration: 5,
		MinConfidence:        0.3,
		MaxInsertions:        6,
		AvoidFirstSeconds:    2,
		AvoidLastSeconds:     3,
	}
}

// Segments shorter than this never host an insertion.
const minSegmentDuration = 1.5

// Plan decides where B-roll gets inserted on the A-roll timeline.
//
// The selection is a deliberate single pass: eligible segments are walked in
// ascending start order and each either produces an insertion or is dropped
// for good. No backtracking, so identical inputs always produce identical
// output and emission order is already chronological.
//
// Well-formed input never fails; zero eligible segments, zero candidates or
// zero qualifying matches all degrade to an empty plan. The only error is a
// dimension mismatch between embeddings, which aborts with no partial output.
func Plan(segments []types.TranscriptSegment, brolls []types.BRoll, arollDuration float64, cfg Config) ([]types.Insertion, error) {
	eligible := make([]types.TranscriptSegment, 0, len(segments))
	for _, s := range segments {
		if s.StartSec < cfg.AvoidFirstSeconds {
			continue
		}
		if s.EndSec > arollDuration-cfg.AvoidLastSeconds {
			continue
		}
		if s.Duration() < minSegmentDuration {
			continue
		}
		if s.Embedding == nil {
			continue
		}
		eligible = append(eligible, s)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].StartSec < eligible[j].StartSec
	})

	used := make(map[string]bool, len(brolls))
	var out []types.Insertion
	lastInsertionEnd := cfg.AvoidFirstSeconds

	for _, seg := range eligible {
		if len(out) >= cfg.MaxInsertions {
			break
		}
		if seg.StartSec < lastInsertionEnd+cfg.MinInsertionGap {
			continue
		}

		// Prefer b-roll not yet placed in this plan; reuse only once every
		// candidate has been consumed and insertions are still wanted.
		pool := unusedPool(brolls, used)
		if len(pool) == 0 {
			pool = brolls
		}

		match, err := BestMatch(seg.Embedding, pool)
		if err != nil {
			return nil, err
		}
		if match == nil || match.Confidence < cfg.MinConfidence {
			continue
		}

		insertionStart := seg.StartSec + 0.5
		duration := clamp(seg.EndSec-insertionStart-0.5, cfg.MinInsertionDuration, cfg.MaxInsertionDuration)

		out = append(out, types.Insertion{
			StartSec:    insertionStart,
			DurationSec: duration,
			BRollID:     match.BRollID,
			Confidence:  match.Confidence,
			Reason:      match.Reason,
		})
		used[match.BRollID] = true
		lastInsertionEnd = insertionStart + duration
	}
	return out, nil
}

func unusedPool(brolls []types.BRoll, used map[string]bool) []types.BRoll {
	if len(used) == 0 {
		return brolls
	}
	out := make([]types.BRoll, 0, len(brolls))
	for _, b := range brolls {
		if !used[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// clamp applies the lower bound before the upper bound, so a max below min
// resolves in favor of max.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		x = lo
	}
	if x > hi {
		x = hi
	}
	return x
}

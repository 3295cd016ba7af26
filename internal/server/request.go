package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mkravets/brollplan/internal/domain/planner"
	"github.com/mkravets/brollplan/internal/types"
)

type planRequest struct {
	VideoSource string         `json:"video_source" binding:"required"`
	BRoll       []brollItem    `json:"broll" binding:"required"`
	Config      *planOverrides `json:"config"`
}

type brollItem struct {
	ID       string `json:"id"`
	Metadata string `json:"metadata"`
}

// planOverrides lets one request tune individual thresholds without touching
// the server defaults. Absent fields keep the default.
type planOverrides struct {
	MinInsertionGap      *float64 `json:"min_insertion_gap"`
	MinInsertionDuration *float64 `json:"min_insertion_duration"`
	MaxInsertionDuration *float64 `json:"max_insertion_duration"`
	MinConfidence        *float64 `json:"min_confidence"`
	MaxInsertions        *int     `json:"max_insertions"`
	AvoidFirstSeconds    *float64 `json:"avoid_first_seconds"`
	AvoidLastSeconds     *float64 `json:"avoid_last_seconds"`
}

func (r planRequest) brolls() ([]types.BRoll, error) {
	if len(r.BRoll) == 0 {
		return nil, errors.New("at least one b-roll candidate is required")
	}
	out := make([]types.BRoll, 0, len(r.BRoll))
	seen := make(map[string]bool, len(r.BRoll))
	for i, item := range r.BRoll {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("broll[%d]: id is required", i)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("broll id %q appears more than once", item.ID)
		}
		seen[item.ID] = true
		if strings.TrimSpace(item.Metadata) == "" {
			return nil, fmt.Errorf("broll %q: metadata is required", item.ID)
		}
		out = append(out, types.BRoll{ID: item.ID, Metadata: item.Metadata})
	}
	return out, nil
}

func (r planRequest) plannerConfig(defaults planner.Config) (planner.Config, error) {
	cfg := defaults
	o := r.Config
	if o == nil {
		return cfg, nil
	}
	if o.MinInsertionGap != nil {
		cfg.MinInsertionGap = *o.MinInsertionGap
	}
	if o.MinInsertionDuration != nil {
		cfg.MinInsertionDuration = *o.MinInsertionDuration
	}
	if o.MaxInsertionDuration != nil {
		cfg.MaxInsertionDuration = *o.MaxInsertionDuration
	}
	if o.MinConfidence != nil {
		cfg.MinConfidence = *o.MinConfidence
	}
	if o.MaxInsertions != nil {
		cfg.MaxInsertions = *o.MaxInsertions
	}
	if o.AvoidFirstSeconds != nil {
		cfg.AvoidFirstSeconds = *o.AvoidFirstSeconds
	}
	if o.AvoidLastSeconds != nil {
		cfg.AvoidLastSeconds = *o.AvoidLastSeconds
	}

	if cfg.MinInsertionGap < 0 {
		return planner.Config{}, errors.New("min_insertion_gap must be >= 0")
	}
	if cfg.MinInsertionDuration <= 0 {
		return planner.Config{}, errors.New("min_insertion_duration must be > 0")
	}
	if cfg.MaxInsertionDuration < cfg.MinInsertionDuration {
		return planner.Config{}, errors.New("max_insertion_duration must be >= min_insertion_duration")
	}
	if cfg.MinConfidence < -1 || cfg.MinConfidence > 1 {
		return planner.Config{}, errors.New("min_confidence must be within [-1, 1]")
	}
	if cfg.MaxInsertions <= 0 {
		return planner.Config{}, errors.New("max_insertions must be > 0")
	}
	if cfg.AvoidFirstSeconds < 0 || cfg.AvoidLastSeconds < 0 {
		return planner.Config{}, errors.New("avoid windows must be >= 0")
	}
	return cfg, nil
}

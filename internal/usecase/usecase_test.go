package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkravets/brollplan/internal/domain/planner"
	"github.com/mkravets/brollplan/internal/types"
)

type fakeVideoTool struct {
	duration     time.Duration
	extractCalls int
}

func (f *fakeVideoTool) ExtractAudioMono16k(_ context.Context, _, _ string) error {
	f.extractCalls++
	return nil
}

func (f *fakeVideoTool) ProbeDuration(_ context.Context, _ string) (time.Duration, error) {
	return f.duration, nil
}

type fakeASR struct {
	tr  types.Transcript
	err error
}

func (f fakeASR) Transcribe(_ context.Context, _, _ string) (types.Transcript, error) {
	return f.tr, f.err
}

// fakeEmbedder maps known texts to fixed vectors so similarity is controlled
// by the test, not by arithmetic accidents.
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			v = []float64{0, 0}
		}
		out[i] = v
	}
	return out, nil
}

func testDeps(duration time.Duration, tr types.Transcript, vectors map[string][]float64) (Deps, *fakeVideoTool, *fakeEmbedder) {
	video := &fakeVideoTool{duration: duration}
	emb := &fakeEmbedder{vectors: vectors}
	return Deps{Video: video, ASR: fakeASR{tr: tr}, Embedder: emb}, video, emb
}

func TestRun_ProducesChronologicalPlan(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.TranscriptSegment{
		{StartSec: 10, EndSec: 16, Text: "talking about city traffic"},
		{StartSec: 30, EndSec: 36, Text: "now about espresso machines"},
	}}
	vectors := map[string][]float64{
		"talking about city traffic":  {1, 0},
		"now about espresso machines": {0, 1},
		"aerial shot of downtown":     {1, 0.1},
		"coffee pour closeup":         {0.1, 1},
	}
	deps, video, emb := testDeps(60*time.Second, tr, vectors)

	res, err := New(deps).Run(context.Background(), Input{
		InputPath: "in.mp4",
		BRolls: []types.BRoll{
			{ID: "city", Metadata: "aerial shot of downtown"},
			{ID: "coffee", Metadata: "coffee pour closeup"},
		},
		Planner:  planner.DefaultConfig(),
		CacheDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if video.extractCalls != 1 {
		t.Fatalf("expected 1 audio extraction, got %d", video.extractCalls)
	}
	if emb.calls != 2 {
		t.Fatalf("expected 2 embed calls (segments, b-roll), got %d", emb.calls)
	}
	if res.Plan.ArollDurationSec != 60 {
		t.Fatalf("expected 60s duration, got %v", res.Plan.ArollDurationSec)
	}
	if len(res.Plan.Insertions) != 2 {
		t.Fatalf("expected 2 insertions, got %d", len(res.Plan.Insertions))
	}
	if res.Plan.Insertions[0].BRollID != "city" || res.Plan.Insertions[1].BRollID != "coffee" {
		t.Fatalf("expected semantic matches city,coffee; got %s,%s",
			res.Plan.Insertions[0].BRollID, res.Plan.Insertions[1].BRollID)
	}
	if res.Plan.Insertions[0].StartSec >= res.Plan.Insertions[1].StartSec {
		t.Fatalf("insertions not chronological: %v then %v",
			res.Plan.Insertions[0].StartSec, res.Plan.Insertions[1].StartSec)
	}
	if len(res.Plan.TranscriptSegments) != 2 {
		t.Fatalf("expected transcript echoed in plan, got %d segments", len(res.Plan.TranscriptSegments))
	}
}

func TestRun_RequiresBRollCandidates(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps(60*time.Second, types.Transcript{}, nil)
	_, err := New(deps).Run(context.Background(), Input{
		InputPath: "in.mp4",
		Planner:   planner.DefaultConfig(),
		CacheDir:  t.TempDir(),
	})
	if err == nil {
		t.Fatalf("expected error without b-roll candidates")
	}
}

func TestRun_RequiresNonEmptyTranscript(t *testing.T) {
	t.Parallel()

	deps, _, _ := testDeps(60*time.Second, types.Transcript{}, nil)
	_, err := New(deps).Run(context.Background(), Input{
		InputPath: "in.mp4",
		BRolls:    []types.BRoll{{ID: "b1", Metadata: "clip"}},
		Planner:   planner.DefaultConfig(),
		CacheDir:  t.TempDir(),
	})
	if err == nil {
		t.Fatalf("expected error for empty transcript")
	}
}

func TestRun_PropagatesASRFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("asr exploded")
	deps := Deps{
		Video:    &fakeVideoTool{duration: time.Minute},
		ASR:      fakeASR{err: wantErr},
		Embedder: &fakeEmbedder{},
	}
	_, err := New(deps).Run(context.Background(), Input{
		InputPath: "in.mp4",
		BRolls:    []types.BRoll{{ID: "b1", Metadata: "clip"}},
		Planner:   planner.DefaultConfig(),
		CacheDir:  t.TempDir(),
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected ASR error to propagate, got %v", err)
	}
}

func TestRun_NoMatchesYieldsEmptyPlanNotError(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.TranscriptSegment{
		{StartSec: 10, EndSec: 16, Text: "segment text"},
	}}
	// Orthogonal vectors: similarity sits at 0, below the confidence floor.
	vectors := map[string][]float64{
		"segment text": {1, 0},
		"unrelated":    {0, 1},
	}
	deps, _, _ := testDeps(60*time.Second, tr, vectors)

	res, err := New(deps).Run(context.Background(), Input{
		InputPath: "in.mp4",
		BRolls:    []types.BRoll{{ID: "b1", Metadata: "unrelated"}},
		Planner:   planner.DefaultConfig(),
		CacheDir:  t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Plan.Insertions) != 0 {
		t.Fatalf("expected empty plan, got %d insertions", len(res.Plan.Insertions))
	}
}

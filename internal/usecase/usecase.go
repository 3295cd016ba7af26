package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mkravets/brollplan/internal/domain/planner"
	"github.com/mkravets/brollplan/internal/ports"
	"github.com/mkravets/brollplan/internal/types"
)

type Deps struct {
	Video    ports.VideoTool
	ASR      ports.ASR
	Embedder ports.Embedder
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	// InputPath is a local A-roll video file.
	InputPath string
	// BRolls carries the candidate descriptors; embeddings are attached here.
	BRolls   []types.BRoll
	Planner  planner.Config
	CacheDir string
	Logf     func(format string, args ...any)
}

type Result struct {
	Plan types.Plan
}

// Run executes the planning flow: extract audio, transcribe, embed segment
// texts and b-roll metadata, then hand everything to the planner.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if len(in.BRolls) == 0 {
		return Result{}, errors.New("at least one b-roll candidate is required")
	}

	wav := filepath.Join(in.CacheDir, "audio.wav")
	if err := u.d.Video.ExtractAudioMono16k(ctx, in.InputPath, wav); err != nil {
		return Result{}, err
	}

	duration, err := u.d.Video.ProbeDuration(ctx, in.InputPath)
	if err != nil {
		return Result{}, err
	}

	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return Result{}, err
	}
	if len(tr.Segments) == 0 {
		return Result{}, errors.New("transcript is empty: no speech detected")
	}
	logf("transcribed %d segments over %.1fs", len(tr.Segments), duration.Seconds())

	segments := tr.Segments
	segTexts := make([]string, len(segments))
	for i, s := range segments {
		segTexts[i] = s.Text
	}
	segVecs, err := u.d.Embedder.Embed(ctx, segTexts)
	if err != nil {
		return Result{}, fmt.Errorf("embed transcript: %w", err)
	}
	if len(segVecs) != len(segments) {
		return Result{}, fmt.Errorf("embed transcript: got %d vectors for %d segments", len(segVecs), len(segments))
	}
	for i := range segments {
		segments[i].Embedding = segVecs[i]
	}

	brolls := append([]types.BRoll(nil), in.BRolls...)
	metaTexts := make([]string, len(brolls))
	for i, b := range brolls {
		metaTexts[i] = b.Metadata
	}
	brollVecs, err := u.d.Embedder.Embed(ctx, metaTexts)
	if err != nil {
		return Result{}, fmt.Errorf("embed b-roll metadata: %w", err)
	}
	if len(brollVecs) != len(brolls) {
		return Result{}, fmt.Errorf("embed b-roll metadata: got %d vectors for %d candidates", len(brollVecs), len(brolls))
	}
	for i := range brolls {
		brolls[i].Embedding = brollVecs[i]
	}

	insertions, err := planner.Plan(segments, brolls, duration.Seconds(), in.Planner)
	if err != nil {
		return Result{}, err
	}
	logf("planned %d insertions from %d candidates", len(insertions), len(brolls))

	return Result{Plan: types.Plan{
		ArollDurationSec:   duration.Seconds(),
		TranscriptSegments: segments,
		Insertions:         insertions,
	}}, nil
}

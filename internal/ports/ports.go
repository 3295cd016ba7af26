package ports

import (
	"context"
	"time"

	"github.com/mkravets/brollplan/internal/types"
)

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
	ProbeDuration(ctx context.Context, inVideo string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// Embedder turns texts into fixed-length vectors, one per input, in input
// order. All vectors from one call share the same dimensionality.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Fetcher materializes an A-roll source (local path or URL) as a local file.
type Fetcher interface {
	Fetch(ctx context.Context, source, destDir string) (string, error)
}

package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mkravets/brollplan/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// whisperOutput mirrors the JSON that whisper.cpp writes with -oj.
type whisperOutput struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}

	var raw whisperOutput
	if err := json.Unmarshal(jb, &raw); err != nil {
		return types.Transcript{}, err
	}

	tr := types.Transcript{Segments: make([]types.TranscriptSegment, 0, len(raw.Segments))}
	for _, s := range raw.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		tr.Segments = append(tr.Segments, types.TranscriptSegment{
			StartSec: s.Start,
			EndSec:   s.End,
			Text:     text,
		})
	}
	return tr, nil
}

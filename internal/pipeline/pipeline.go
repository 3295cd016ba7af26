package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/mkravets/brollplan/internal/domain/planner"
	"github.com/mkravets/brollplan/internal/embedcache"
	"github.com/mkravets/brollplan/internal/ports"
	"github.com/mkravets/brollplan/internal/ports/adapters/ffmpeg"
	"github.com/mkravets/brollplan/internal/ports/adapters/httpfetch"
	"github.com/mkravets/brollplan/internal/ports/adapters/openaiembed"
	"github.com/mkravets/brollplan/internal/ports/adapters/whispercpp"
	"github.com/mkravets/brollplan/internal/types"
	"github.com/mkravets/brollplan/internal/usecase"
)

type Config struct {
	// Input is a local video path or an http(s) URL.
	Input     string
	BRollPath string
	OutDir    string
	Planner   planner.Config
	Logf      func(format string, args ...any)
	Logger    *slog.Logger

	// CacheDir is the base directory for local artifacts (audio, transcripts,
	// downloads, embedding cache). If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	EmbedAPIKey       string
	EmbedModel        string
	EmbedBaseURL      string
	EmbedAllowedHosts []string
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if !strings.HasPrefix(c.Input, "http://") && !strings.HasPrefix(c.Input, "https://") {
		if _, err := os.Stat(c.Input); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.BRollPath == "" {
		return errors.New("b-roll descriptor file is required")
	}
	if _, err := os.Stat(c.BRollPath); err != nil {
		return fmt.Errorf("stat b-roll file: %w", err)
	}
	if c.WhisperModel == "" {
		return errors.New("whisper model path is required")
	}
	if c.EmbedAPIKey == "" {
		return errors.New("embeddings API key is required")
	}
	p := c.Planner
	if p.MinInsertionGap < 0 {
		return errors.New("min insertion gap must be >= 0")
	}
	if p.MinInsertionDuration <= 0 {
		return errors.New("min insertion duration must be > 0")
	}
	if p.MaxInsertionDuration < p.MinInsertionDuration {
		return errors.New("max insertion duration must be >= min insertion duration")
	}
	if p.MaxInsertions <= 0 {
		return errors.New("max insertions must be > 0")
	}
	return openaiembed.ValidateBaseURL(c.EmbedBaseURL, c.EmbedAllowedHosts)
}

type Result struct {
	Plan     types.Plan
	PlanPath string
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	brolls, err := LoadBRolls(cfg.BRollPath)
	if err != nil {
		return Result{}, err
	}

	// adapters
	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	asr := whispercpp.New(cfg.WhisperBin, cfg.WhisperModel)
	embedder := openaiembed.New(cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedBaseURL)
	fetcher := httpfetch.New()

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}

	cache, err := embedcache.Open(filepath.Join(baseCache, "embeddings.db"), embedder.Model(), embedder, logger)
	if err != nil {
		return Result{}, err
	}
	defer cache.Close()

	logf("fetching input")
	localInput, err := fetcher.Fetch(ctx, cfg.Input, filepath.Join(baseCache, "downloads"))
	if err != nil {
		return Result{}, err
	}

	jobID := hash(localInput)
	cacheDir := filepath.Join(baseCache, "runs", jobID)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Result{}, err
	}
	logf("cache: %s", cacheDir)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, localInput, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Result{}, err
	}
	logf("output run dir: %s", runOutDir)

	uc := usecase.New(usecase.Deps{
		Video:    video,
		ASR:      asr,
		Embedder: cache,
	})
	res, err := uc.Run(ctx, usecase.Input{
		InputPath: localInput,
		BRolls:    brolls,
		Planner:   cfg.Planner,
		CacheDir:  cacheDir,
		Logf:      logf,
	})
	if err != nil {
		return Result{}, err
	}

	b, err := json.MarshalIndent(res.Plan, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal plan: %w", err)
	}
	planPath := filepath.Join(runOutDir, "plan.json")
	if err := os.WriteFile(planPath, b, 0o644); err != nil {
		return Result{}, err
	}
	logf("plan written (%d insertions): %s", len(res.Plan.Insertions), planPath)

	return Result{Plan: res.Plan, PlanPath: planPath}, nil
}

// LoadBRolls reads b-roll descriptors from a JSON file: [{"id", "metadata"}].
func LoadBRolls(path string) ([]types.BRoll, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read b-roll file: %w", err)
	}
	var brolls []types.BRoll
	if err := json.Unmarshal(b, &brolls); err != nil {
		return nil, fmt.Errorf("parse b-roll file: %w", err)
	}
	if len(brolls) == 0 {
		return nil, errors.New("b-roll file contains no candidates")
	}
	seen := make(map[string]bool, len(brolls))
	for i, br := range brolls {
		if strings.TrimSpace(br.ID) == "" {
			return nil, fmt.Errorf("b-roll entry %d: id is required", i)
		}
		if seen[br.ID] {
			return nil, fmt.Errorf("b-roll id %q appears more than once", br.ID)
		}
		seen[br.ID] = true
		if strings.TrimSpace(br.Metadata) == "" {
			return nil, fmt.Errorf("b-roll %q: metadata is required", br.ID)
		}
	}
	return brolls, nil
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.Embedder = (*openaiembed.Adapter)(nil)
var _ ports.Embedder = (*embedcache.Cache)(nil)
var _ ports.Fetcher = (*httpfetch.Adapter)(nil)

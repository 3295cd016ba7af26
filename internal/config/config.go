// Package config loads the optional brollplan.toml file. Flags and
// environment variables override anything set here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/mkravets/brollplan/internal/domain/planner"
)

type Config struct {
	Server     Server     `toml:"server"`
	Embeddings Embeddings `toml:"embeddings"`
	Whisper    Whisper    `toml:"whisper"`
	Paths      Paths      `toml:"paths"`
	Planner    Planner    `toml:"planner"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Embeddings struct {
	BaseURL      string   `toml:"base_url"`
	Model        string   `toml:"model"`
	AllowedHosts []string `toml:"allowed_hosts"`
}

type Whisper struct {
	Bin   string `toml:"bin"`
	Model string `toml:"model"`
}

type Paths struct {
	CacheDir string `toml:"cache_dir"`
	OutDir   string `toml:"out_dir"`
}

// Planner mirrors planner.Config with TOML tags.
type Planner struct {
	MinInsertionGap      float64 `toml:"min_insertion_gap"`
	MinInsertionDuration float64 `toml:"min_insertion_duration"`
	MaxInsertionDuration float64 `toml:"max_insertion_duration"`
	MinConfidence        float64 `toml:"min_confidence"`
	MaxInsertions        int     `toml:"max_insertions"`
	AvoidFirstSeconds    float64 `toml:"avoid_first_seconds"`
	AvoidLastSeconds     float64 `toml:"avoid_last_seconds"`
}

// Default returns a fully populated configuration.
func Default() Config {
	p := planner.DefaultConfig()
	return Config{
		Server: Server{Addr: ":8080"},
		Embeddings: Embeddings{
			Model: "text-embedding-3-small",
		},
		Whisper: Whisper{
			Bin:   ".cache/bin/whisper.cpp",
			Model: ".cache/models/ggml-base.bin",
		},
		Paths: Paths{
			CacheDir: ".cache",
			OutDir:   "out",
		},
		Planner: Planner{
			MinInsertionGap:      p.MinInsertionGap,
			MinInsertionDuration: p.MinInsertionDuration,
			MaxInsertionDuration: p.MaxInsertionDuration,
			MinConfidence:        p.MinConfidence,
			MaxInsertions:        p.MaxInsertions,
			AvoidFirstSeconds:    p.AvoidFirstSeconds,
			AvoidLastSeconds:     p.AvoidLastSeconds,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when the
// path is the implicit default location.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	p := c.Planner
	if p.MinInsertionGap < 0 {
		return errors.New("planner.min_insertion_gap must be >= 0")
	}
	if p.MinInsertionDuration <= 0 {
		return errors.New("planner.min_insertion_duration must be > 0")
	}
	if p.MaxInsertionDuration < p.MinInsertionDuration {
		return errors.New("planner.max_insertion_duration must be >= min_insertion_duration")
	}
	if p.MinConfidence < -1 || p.MinConfidence > 1 {
		return errors.New("planner.min_confidence must be within [-1, 1]")
	}
	if p.MaxInsertions <= 0 {
		return errors.New("planner.max_insertions must be > 0")
	}
	if p.AvoidFirstSeconds < 0 || p.AvoidLastSeconds < 0 {
		return errors.New("planner avoid windows must be >= 0")
	}
	return nil
}

// PlannerConfig converts the TOML view into the domain config.
func (c Config) PlannerConfig() planner.Config {
	return planner.Config{
		MinInsertionGap:      c.Planner.MinInsertionGap,
		MinInsertionDuration: c.Planner.MinInsertionDuration,
		MaxInsertionDuration: c.Planner.MaxInsertionDuration,
		MinConfidence:        c.Planner.MinConfidence,
		MaxInsertions:        c.Planner.MaxInsertions,
		AvoidFirstSeconds:    c.Planner.AvoidFirstSeconds,
		AvoidLastSeconds:     c.Planner.AvoidLastSeconds,
	}
}

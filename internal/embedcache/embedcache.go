// Package embedcache wraps an Embedder with a SQLite-backed vector cache so
// repeated runs over the same transcript or b-roll set do not re-bill the
// embedding API.
package embedcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mkravets/brollplan/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS embeddings (
    key        TEXT PRIMARY KEY,
    model      TEXT NOT NULL,
    vector     TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

// Cache is a read-through embedding cache keyed by sha256(model|text).
type Cache struct {
	db     *sql.DB
	model  string
	inner  ports.Embedder
	logger *slog.Logger
}

// Open connects to (or creates) the cache database at path and wraps inner.
// The model name participates in cache keys so switching embedding models
// never serves stale vectors.
func Open(path, model string, inner ports.Embedder, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Cache{db: db, model: model, inner: inner, logger: logger}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Embed serves cached vectors where available and delegates the misses to the
// wrapped embedder in one batch, preserving input order.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		vec, found, err := c.lookup(ctx, c.key(text))
		if err != nil {
			return nil, err
		}
		if found {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	c.logger.Debug("embedding cache lookup",
		slog.Int("texts", len(texts)),
		slog.Int("hits", len(texts)-len(missTexts)),
		slog.Int("misses", len(missTexts)))

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	for i, vec := range vecs {
		out[missIdx[i]] = vec
		if err := c.store(ctx, c.key(missTexts[i]), vec); err != nil {
			// A failed write costs a future cache hit, nothing more.
			c.logger.Warn("failed to store embedding in cache", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "|" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) lookup(ctx context.Context, key string) ([]float64, bool, error) {
	var encoded string
	err := c.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE key = ?`, key).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	var vec []float64
	if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return vec, true, nil
}

func (c *Cache) store(ctx context.Context, key string, vec []float64) error {
	encoded, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, model, vector, created_at) VALUES (?, ?, ?, ?)`,
		key, c.model, string(encoded), time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

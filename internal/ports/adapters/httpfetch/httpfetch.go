package httpfetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Adapter materializes an A-roll source as a local file: local paths pass
// through untouched, http(s) URLs are downloaded into destDir.
type Adapter struct {
	client  *http.Client
	maxSize int64
}

const defaultMaxSize = 2 << 30 // 2 GiB

func New() *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 30 * time.Minute},
		maxSize: defaultMaxSize,
	}
}

func (a *Adapter) Fetch(ctx context.Context, source, destDir string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("fetch: empty source")
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("fetch local file: %w", err)
		}
		return source, nil
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("fetch: parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return "", fmt.Errorf("fetch %s: got %q, not a video", u.Host, ct)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, downloadName(source))

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, a.maxSize+1))
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return "", closeErr
	}
	if n > a.maxSize {
		_ = os.Remove(dest)
		return "", fmt.Errorf("fetch %s: source exceeds %d bytes", u.Host, a.maxSize)
	}
	return dest, nil
}

// downloadName derives a stable local filename from the source URL, keeping
// the extension so ffmpeg can sniff the container.
func downloadName(source string) string {
	sum := sha256.Sum256([]byte(source))
	name := hex.EncodeToString(sum[:])[:12]
	if ext := path.Ext(strings.SplitN(path.Base(source), "?", 2)[0]); ext != "" && len(ext) <= 5 {
		name += ext
	}
	return name
}

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

const (
	maxFilenameRunes = 100
	// DefaultMaxBytes caps a single artifact.
	DefaultMaxBytes int64 = 100 << 20
)

// HTTPDownloader fetches item artifacts (paper PDFs) over HTTP.
type HTTPDownloader struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

var _ ports.Downloader = (*HTTPDownloader)(nil)

// NewHTTPDownloader wires an HTTP client; nil gets a 30s-timeout default.
func NewHTTPDownloader(client *http.Client, logger *slog.Logger) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDownloader{client: client, maxBytes: DefaultMaxBytes, logger: logger.With("component", "downloader")}
}

// Download writes the artifact to dir/<safe title>.pdf. Partial files are
// removed on failure. Every error is a *domain.DownloadError.
func (d *HTTPDownloader) Download(ctx context.Context, item domain.CandidateItem, dir string) (string, error) {
	if item.ArtifactURL == "" {
		return "", &domain.DownloadError{URL: item.SourceURL, Err: errors.New("item has no artifact url")}
	}
	fail := func(err error) (string, error) {
		return "", &domain.DownloadError{URL: item.ArtifactURL, Err: err}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail(fmt.Errorf("create dir: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.ArtifactURL, nil)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", "ResearchRadar/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("server returned %s", resp.Status))
	}

	path := filepath.Join(dir, Filename(item))
	f, err := os.Create(path)
	if err != nil {
		return fail(fmt.Errorf("create file: %w", err))
	}

	n, copyErr := io.Copy(f, io.LimitReader(resp.Body, d.maxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return fail(fmt.Errorf("write file: %w", copyErr))
	case n > d.maxBytes:
		_ = os.Remove(path)
		return fail(fmt.Errorf("artifact exceeds %s", humanize.IBytes(uint64(d.maxBytes))))
	case closeErr != nil:
		_ = os.Remove(path)
		return fail(fmt.Errorf("close file: %w", closeErr))
	}

	d.logger.Debug("artifact downloaded", "id", item.ID, "path", path, "size", humanize.IBytes(uint64(n)))
	return path, nil
}

// Filename derives a filesystem-safe name from the item title: letters,
// digits, spaces, dashes and underscores survive, truncated to 100 runes.
// Truncated names carry the item ID so long titles sharing a prefix stay
// distinct.
func Filename(item domain.CandidateItem) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, item.Title)
	safe = strings.Join(strings.Fields(safe), " ")
	id := safeID(item.ID)

	runes := []rune(safe)
	if len(runes) > maxFilenameRunes {
		safe = strings.TrimSpace(string(runes[:maxFilenameRunes]))
		if id != "" {
			safe += "_" + id
		}
	}
	if safe == "" {
		safe = id
	}
	if safe == "" {
		safe = "artifact"
	}
	return safe + ".pdf"
}

func safeID(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return '_'
	}, strings.TrimSpace(id))
}

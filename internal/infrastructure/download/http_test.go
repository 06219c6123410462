package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/logging"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf/ok":
			_, _ = w.Write([]byte("%PDF-1.7 body"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewHTTPDownloader(server.Client(), logging.Discard())

	path, err := d.Download(context.Background(), domain.CandidateItem{
		ID: "2603.1", Title: "BEV: Perception / Planning?", ArtifactURL: server.URL + "/pdf/ok",
	}, filepath.Join(dir, "papers"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "papers", "BEV Perception Planning.pdf"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 body", string(body))

	_, err = d.Download(context.Background(), domain.CandidateItem{
		ID: "x", Title: "Missing", ArtifactURL: server.URL + "/pdf/missing",
	}, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDownload)
	assert.NoFileExists(t, filepath.Join(dir, "Missing.pdf"))
}

func TestDownloadRejectsOversizedArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewHTTPDownloader(server.Client(), logging.Discard())
	d.maxBytes = 16

	_, err := d.Download(context.Background(), domain.CandidateItem{Title: "Big", ArtifactURL: server.URL}, dir)
	assert.ErrorIs(t, err, domain.ErrDownload)
	assert.NoFileExists(t, filepath.Join(dir, "Big.pdf"))
}

func TestDownloadWithoutArtifact(t *testing.T) {
	d := NewHTTPDownloader(nil, nil)
	_, err := d.Download(context.Background(), domain.CandidateItem{Title: "x"}, t.TempDir())
	assert.ErrorIs(t, err, domain.ErrDownload)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Occupancy-Nets_v2.pdf", Filename(domain.CandidateItem{Title: "Occupancy-Nets_v2!"}))
	assert.Equal(t, "2603.01234.pdf", Filename(domain.CandidateItem{Title: "???", ID: "2603.01234"}))
	assert.Equal(t, "artifact.pdf", Filename(domain.CandidateItem{}))

	long := Filename(domain.CandidateItem{Title: strings.Repeat("a", 150)})
	assert.Equal(t, 104, len(long))

	prefix := strings.Repeat("Scaling occupancy ", 6)
	first := Filename(domain.CandidateItem{ID: "2603.00001", Title: prefix + "for urban scenes"})
	second := Filename(domain.CandidateItem{ID: "2603.00002", Title: prefix + "for highway scenes"})
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, "_2603.00001.pdf"), first)
}

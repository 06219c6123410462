package gdrive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/logging"
)

func TestZipDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "research_2026-03-10")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "papers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "research_results_2026-03-10.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "papers", "BEV.pdf"), []byte("%PDF"), 0o644))

	dest := filepath.Join(root, "research_2026-03-10.zip")
	require.NoError(t, ZipDir(dir, dest))

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "papers/BEV.pdf" {
			rc, err := f.Open()
			require.NoError(t, err)
			body, _ := io.ReadAll(rc)
			rc.Close()
			assert.Equal(t, "%PDF", string(body))
		}
	}
	sort.Strings(names)
	assert.Equal(t, []string{"papers/BEV.pdf", "research_results_2026-03-10.json"}, names)
}

func TestZipDirMissingSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.zip")
	assert.Error(t, ZipDir(filepath.Join(t.TempDir(), "absent"), dest))
	assert.NoFileExists(t, dest)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	_, err := LoadToken(path)
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveToken(path, tok))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func tokenServer(t *testing.T, access string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600,"grant":%q}`,
			access, r.Form.Get("grant_type"))
	}))
	t.Cleanup(server.Close)
	return server
}

func writeCredentials(t *testing.T, tokenURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	body := fmt.Sprintf(`{"installed":{"client_id":"cid","client_secret":"secret","redirect_uris":["http://localhost"],
		"auth_uri":"https://accounts.example.com/auth","token_uri":%q}}`, tokenURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAuthorizeExchangesCode(t *testing.T) {
	server := tokenServer(t, "fresh")
	cfg, err := OAuthConfig(writeCredentials(t, server.URL))
	require.NoError(t, err)

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	var out bytes.Buffer

	tok, err := Authorize(context.Background(), cfg, tokenFile, strings.NewReader("the-code\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Contains(t, out.String(), "https://accounts.example.com/auth")
	assert.Contains(t, out.String(), "access_type=offline")

	saved, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", saved.RefreshToken)

	_, err = Authorize(context.Background(), cfg, tokenFile, strings.NewReader("\n"), io.Discard)
	assert.Error(t, err)
}

func TestRenewRefreshesExistingToken(t *testing.T) {
	server := tokenServer(t, "renewed")
	creds := writeCredentials(t, server.URL)
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(tokenFile, &oauth2.Token{AccessToken: "old", RefreshToken: "refresh-0", Expiry: time.Now().Add(-time.Hour)}))

	var out bytes.Buffer
	tok, err := Renew(context.Background(), creds, tokenFile, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, "renewed", tok.AccessToken)
	assert.Contains(t, out.String(), "token refreshed")

	saved, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "renewed", saved.AccessToken)
}

func TestUploaderUpload(t *testing.T) {
	bodies := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		raw, _ := io.ReadAll(r.Body)
		bodies <- string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-1","name":"research_2026-03-10.zip","size":"4","webViewLink":"https://drive.example/file-1"}`))
	}))
	defer server.Close()

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"),
	)
	require.NoError(t, err)

	archive := filepath.Join(t.TempDir(), "research_2026-03-10.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK.."), 0o644))

	u := NewUploaderWithService(svc, logging.Discard())
	u.now = func() time.Time { return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC) }

	res, err := u.Upload(context.Background(), archive, "folder-9")
	require.NoError(t, err)
	assert.Equal(t, "file-1", res.FileID)
	assert.Equal(t, int64(4), res.Size)
	assert.Equal(t, "https://drive.example/file-1", res.Link)
	gotBody := <-bodies
	assert.Contains(t, gotBody, "folder-9")
	assert.Contains(t, gotBody, "PK..")
}

func TestUploaderFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"),
	)
	require.NoError(t, err)
	u := NewUploaderWithService(svc, logging.Discard())

	archive := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(archive, []byte("PK"), 0o644))

	_, err = u.Upload(context.Background(), archive, "")
	assert.ErrorIs(t, err, domain.ErrUpload)

	_, err = u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), "")
	assert.ErrorIs(t, err, domain.ErrUpload)
}

func TestNewUploaderRequiresToken(t *testing.T) {
	creds := writeCredentials(t, "https://oauth.example/token")
	_, err := NewUploader(context.Background(), creds, filepath.Join(t.TempDir(), "token.json"), nil)
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = NewUploader(context.Background(), filepath.Join(t.TempDir(), "nope.json"), "token.json", nil)
	assert.Error(t, err)
}

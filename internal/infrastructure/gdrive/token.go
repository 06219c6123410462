package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// ErrNoToken means the token file is missing; run the auth command first.
var ErrNoToken = errors.New("google drive token not found, run `researchradar auth`")

// OAuthConfig reads the installed-app client secret downloaded from the
// Google Cloud console.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(raw, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", credentialsFile, err)
	}
	return cfg, nil
}

// LoadToken reads a cached token. A missing file returns ErrNoToken.
func LoadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", path, err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(raw, tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes the token with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write token %s: %w", path, err)
	}
	return nil
}

// persistingSource saves refreshed tokens back to disk so the next run does
// not need to refresh again.
type persistingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last string
}

func newPersistingSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, path string) *persistingSource {
	return &persistingSource{
		src:  cfg.TokenSource(ctx, tok),
		path: path,
		last: tok.AccessToken,
	}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh google drive token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := SaveToken(p.path, tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

package gdrive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
)

// Authorize runs the installed-app consent flow: it prints the consent URL
// to out, reads the authorization code from in and saves the token.
func Authorize(ctx context.Context, cfg *oauth2.Config, tokenFile string, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	url := cfg.AuthCodeURL("research-radar", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open the following link in your browser, approve access, then paste the authorization code:\n\n%s\n\ncode: ", url)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := SaveToken(tokenFile, tok); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "token saved to %s\n", tokenFile)
	return tok, nil
}

// Renew refreshes the cached token when possible and falls back to the
// interactive flow when there is no usable refresh token.
func Renew(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(tokenFile)
	switch {
	case errors.Is(err, ErrNoToken):
		return Authorize(ctx, cfg, tokenFile, in, out)
	case err != nil:
		return nil, err
	}

	if tok.RefreshToken != "" {
		// Force a refresh by dropping the access token.
		stale := &oauth2.Token{RefreshToken: tok.RefreshToken}
		fresh, err := cfg.TokenSource(ctx, stale).Token()
		if err == nil {
			if err := SaveToken(tokenFile, fresh); err != nil {
				return nil, err
			}
			fmt.Fprintf(out, "token refreshed, valid until %s\n", fresh.Expiry.Format("2006-01-02 15:04:05"))
			return fresh, nil
		}
		fmt.Fprintf(out, "refresh failed (%v), starting a new authorization\n", err)
	}
	return Authorize(ctx, cfg, tokenFile, in, out)
}

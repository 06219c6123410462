package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

const zipMIME = "application/zip"

// Uploader stores run archives in a Google Drive folder.
type Uploader struct {
	service *drive.Service
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.Uploader = (*Uploader)(nil)

// NewUploader authenticates with the cached OAuth token. Refreshed tokens are
// written back to tokenFile.
func NewUploader(ctx context.Context, credentialsFile, tokenFile string, logger *slog.Logger) (*Uploader, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, newPersistingSource(ctx, cfg, tok, tokenFile)))
	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewUploaderWithService(service, logger), nil
}

// NewUploaderWithService wraps an existing Drive client.
func NewUploaderWithService(service *drive.Service, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{service: service, logger: logger.With("component", "gdrive"), now: time.Now}
}

// Upload sends the archive as a single file; folderID may be empty for the
// drive root. Every error is a *domain.UploadError.
func (u *Uploader) Upload(ctx context.Context, archivePath, folderID string) (ports.UploadResult, error) {
	fail := func(err error) (ports.UploadResult, error) {
		return ports.UploadResult{}, &domain.UploadError{Path: archivePath, Err: err}
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	meta := &drive.File{
		Name:        filepath.Base(archivePath),
		Description: fmt.Sprintf("Research results - %s", u.now().Format("2006-01-02")),
		MimeType:    zipMIME,
	}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	created, err := u.service.Files.Create(meta).
		Media(f, googleapi.ContentType(zipMIME)).
		Fields("id", "name", "size", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return fail(err)
	}

	u.logger.Info("archive uploaded", "file_id", created.Id, "name", created.Name, "size", humanize.Bytes(uint64(created.Size)))
	return ports.UploadResult{
		FileID: created.Id,
		Name:   created.Name,
		Size:   created.Size,
		Link:   created.WebViewLink,
	}, nil
}

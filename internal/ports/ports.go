package ports

import (
	"context"
	"time"

	"ResearchRadar/internal/domain"
)

// PaperSearcher pulls raw paper records published since the given instant.
type PaperSearcher interface {
	SearchPapers(ctx context.Context, queries []string, since time.Time) ([]domain.RawRecord, error)
}

// VideoSearcher pulls raw video records; maxMinutes is a hint the provider may
// ignore, the ranking engine enforces the cutoff anyway.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, queries []string, since time.Time, maxMinutes int) ([]domain.RawRecord, error)
}

// Summarizer produces a short summary of an item's text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, kind domain.Kind) (string, error)
}

// Downloader stores an item's artifact under dir and returns the local path.
type Downloader interface {
	Download(ctx context.Context, item domain.CandidateItem, dir string) (string, error)
}

// UploadResult describes a file stored in the cloud folder.
type UploadResult struct {
	FileID string `json:"file_id"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Link   string `json:"link,omitempty"`
}

// Uploader pushes a run archive to remote storage.
type Uploader interface {
	Upload(ctx context.Context, archivePath, folderID string) (UploadResult, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

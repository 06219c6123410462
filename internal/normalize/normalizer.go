package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ResearchRadar/internal/domain"
)

// Normalizer converts provider records into CandidateItems. Relative
// timestamps are resolved against the clock; All reads it once per batch.
type Normalizer struct {
	now    func() time.Time
	logger *slog.Logger
}

// New builds a Normalizer; a nil clock means time.Now.
func New(clock func() time.Time, logger *slog.Logger) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{now: clock, logger: logger}
}

// Now reads the normalizer's clock in UTC.
func (n *Normalizer) Now() time.Time {
	return n.now().UTC()
}

// Normalize dispatches on the record variant.
func (n *Normalizer) Normalize(raw domain.RawRecord) (domain.CandidateItem, error) {
	return normalizeAt(raw, n.Now())
}

func normalizeAt(raw domain.RawRecord, now time.Time) (domain.CandidateItem, error) {
	now = now.UTC()
	switch rec := raw.(type) {
	case domain.RawPaper:
		return normalizePaper(rec, now)
	case *domain.RawPaper:
		return normalizePaper(*rec, now)
	case domain.RawVideo:
		return normalizeVideo(rec, now)
	case *domain.RawVideo:
		return normalizeVideo(*rec, now)
	default:
		return domain.CandidateItem{}, fmt.Errorf("normalize: unsupported record type %T", raw)
	}
}

// All normalizes every record, dropping and logging the malformed ones.
func (n *Normalizer) All(raws []domain.RawRecord) ([]domain.CandidateItem, int) {
	return n.AllAt(raws, n.Now())
}

// AllAt is All with relative timestamps anchored at now.
func (n *Normalizer) AllAt(raws []domain.RawRecord, now time.Time) ([]domain.CandidateItem, int) {
	items := make([]domain.CandidateItem, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		item, err := normalizeAt(raw, now)
		if err != nil {
			dropped++
			var malformed *domain.MalformedRecordError
			if errors.As(err, &malformed) {
				n.warn("drop malformed record", "kind", malformed.Kind, "id", malformed.ID, "reason", malformed.Reason)
			} else {
				n.warn("drop record", "error", err)
			}
			continue
		}
		items = append(items, item)
	}
	return items, dropped
}

func normalizePaper(rec domain.RawPaper, now time.Time) (domain.CandidateItem, error) {
	title := CollapseSpace(rec.Title)
	id := firstNonEmpty(strings.TrimSpace(rec.ID), strings.TrimSpace(rec.URL), slug(title))
	if title == "" {
		return domain.CandidateItem{}, &domain.MalformedRecordError{Kind: domain.KindPaper, ID: id, Reason: "empty title"}
	}

	published, err := ParseTimestamp(rec.Published, now)
	if err != nil {
		return domain.CandidateItem{}, &domain.MalformedRecordError{Kind: domain.KindPaper, ID: id, Reason: fmt.Sprintf("published %q: %v", rec.Published, err)}
	}

	authors := make([]string, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		if a = CollapseSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	return domain.CandidateItem{
		ID:          id,
		Kind:        domain.KindPaper,
		Title:       title,
		Description: CollapseSpace(rec.Abstract),
		PublishedAt: published,
		SourceURL:   strings.TrimSpace(rec.URL),
		ArtifactURL: strings.TrimSpace(rec.PDFURL),
		Authors:     authors,
		Source:      rec.Source,
	}, nil
}

func normalizeVideo(rec domain.RawVideo, now time.Time) (domain.CandidateItem, error) {
	title := CollapseSpace(rec.Title)
	id := firstNonEmpty(strings.TrimSpace(rec.ID), strings.TrimSpace(rec.URL), slug(title))
	if title == "" {
		return domain.CandidateItem{}, &domain.MalformedRecordError{Kind: domain.KindVideo, ID: id, Reason: "empty title"}
	}

	published, err := ParseTimestamp(rec.PublishedText, now)
	if err != nil {
		return domain.CandidateItem{}, &domain.MalformedRecordError{Kind: domain.KindVideo, ID: id, Reason: fmt.Sprintf("published %q: %v", rec.PublishedText, err)}
	}

	metrics := domain.Metrics{
		domain.MetricViews: float64(ParseCount(rec.ViewsText)),
	}
	if rec.LikesText != "" {
		metrics[domain.MetricLikes] = float64(ParseCount(rec.LikesText))
	}
	if d, ok := ParseDuration(rec.DurationText); ok {
		metrics[domain.MetricDurationSeconds] = d.Seconds()
	}

	return domain.CandidateItem{
		ID:          id,
		Kind:        domain.KindVideo,
		Title:       title,
		Description: CollapseSpace(rec.Description),
		PublishedAt: published,
		SourceURL:   strings.TrimSpace(rec.URL),
		Channel:     CollapseSpace(rec.Channel),
		Source:      rec.Source,
		Metrics:     metrics,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func slug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (n *Normalizer) warn(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Warn(msg, args...)
	}
}

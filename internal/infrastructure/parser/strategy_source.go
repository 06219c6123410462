package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
	"ResearchRadar/internal/scanner"
)

// StrategySource implements both search ports via registered scanner
// strategies, picking the configured sources of the matching kind.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SourceConfig
	logger   *slog.Logger
	now      func() time.Time
}

var (
	_ ports.PaperSearcher = (*StrategySource)(nil)
	_ ports.VideoSearcher = (*StrategySource)(nil)
)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sites []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
		now:      time.Now,
	}
}

// SearchPapers runs every paper source.
func (s *StrategySource) SearchPapers(ctx context.Context, queries []string, since time.Time) ([]domain.RawRecord, error) {
	return s.search(ctx, domain.KindPaper, queries, since, 0)
}

// SearchVideos runs every video source.
func (s *StrategySource) SearchVideos(ctx context.Context, queries []string, since time.Time, maxMinutes int) ([]domain.RawRecord, error) {
	return s.search(ctx, domain.KindVideo, queries, since, maxMinutes)
}

func (s *StrategySource) search(ctx context.Context, kind domain.Kind, queries []string, since time.Time, maxMinutes int) ([]domain.RawRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("search", "kind", kind, "sites", len(s.sites), "queries", len(queries), "since", since.Format(time.RFC3339))

	var aggregated []domain.RawRecord
	for _, site := range s.sites {
		if site.Kind != kind {
			continue
		}
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Queries:            queries,
			Since:              since,
			Now:                s.now(),
			MaxDurationMinutes: maxMinutes,
			SiteName:           site.Name,
			Options:            site.Options,
			Categories:         toScannerCategories(site.Categories),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return aggregated, ctx.Err()
			}
			s.warn("site scan failed, skipping", "site", site.Name, "error", err)
			continue
		}

		s.debug("site produced records", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, withSource(results, site.Name)...)
	}

	s.debug("strategy source done", "kind", kind, "total_records", len(aggregated))
	return aggregated, nil
}

func withSource(records []domain.RawRecord, site string) []domain.RawRecord {
	for i, rec := range records {
		switch r := rec.(type) {
		case domain.RawPaper:
			if r.Source == "" {
				r.Source = site
				records[i] = r
			}
		case domain.RawVideo:
			if r.Source == "" {
				r.Source = site
				records[i] = r
			}
		}
	}
	return records
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	g "github.com/serpapi/google-search-results-golang"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/scanner"
)

// SerpSearchFunc executes one SerpApi request and returns the decoded JSON.
type SerpSearchFunc func(ctx context.Context, params map[string]string) (map[string]any, error)

// SerpAPIYouTubeScanner uses the SerpApi youtube engine instead of scraping
// the results page.
type SerpAPIYouTubeScanner struct {
	search SerpSearchFunc
	logger *slog.Logger
}

var _ scanner.Scanner = (*SerpAPIYouTubeScanner)(nil)

// NewSerpAPIYouTubeScanner builds a scanner backed by the SerpApi client.
func NewSerpAPIYouTubeScanner(apiKey string, logger *slog.Logger) *SerpAPIYouTubeScanner {
	return NewSerpAPIYouTubeScannerWithSearch(serpAPISearch(apiKey), logger)
}

// NewSerpAPIYouTubeScannerWithSearch injects the request function.
func NewSerpAPIYouTubeScannerWithSearch(search SerpSearchFunc, logger *slog.Logger) *SerpAPIYouTubeScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerpAPIYouTubeScanner{search: search, logger: logger.With("component", "serpapi-youtube")}
}

func serpAPISearch(apiKey string) SerpSearchFunc {
	return func(ctx context.Context, params map[string]string) (map[string]any, error) {
		if apiKey == "" {
			return nil, errors.New("serpapi api key is not configured")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		search := g.NewSearch("youtube", params, apiKey)
		res, err := search.GetJSON()
		if err != nil {
			return nil, err
		}
		return map[string]any(res), nil
	}
}

// Name identifies the strategy inside the registry.
func (s *SerpAPIYouTubeScanner) Name() string {
	return "serpapi-youtube"
}

// Scan issues one youtube-engine search per query.
func (s *SerpAPIYouTubeScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided for site %s", req.SiteName)
	}

	var (
		results []domain.RawRecord
		errs    []error
		seen    = map[string]struct{}{}
	)
	for _, query := range req.Queries {
		payload, err := s.search(ctx, map[string]string{
			"search_query": query,
			"sp":           youtubeSortByDate,
			"hl":           req.Option("hl", "en"),
			"gl":           req.Option("gl", "us"),
		})
		if err != nil {
			s.logger.Warn("serpapi query failed", "query", query, "error", err)
			errs = append(errs, fmt.Errorf("query %q: %w", query, err))
			continue
		}
		if msg, ok := payload["error"].(string); ok && msg != "" {
			s.logger.Warn("serpapi reported error", "query", query, "error", msg)
			errs = append(errs, fmt.Errorf("query %q: serpapi: %s", query, msg))
			continue
		}

		videos := serpVideos(payload)
		for _, v := range videos {
			if _, ok := seen[v.ID]; ok {
				continue
			}
			seen[v.ID] = struct{}{}
			v.Source = req.SiteName
			results = append(results, v)
		}
		s.logger.Debug("serpapi query done", "query", query, "videos", len(videos))
	}

	if len(errs) == len(req.Queries) {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func serpVideos(payload map[string]any) []domain.RawVideo {
	list, _ := payload["video_results"].([]any)
	out := make([]domain.RawVideo, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		link := str(m["link"])
		id := videoIDFromLink(link)
		if id == "" {
			continue
		}

		channel := ""
		if ch, ok := m["channel"].(map[string]any); ok {
			channel = str(ch["name"])
		}

		out = append(out, domain.RawVideo{
			ID:            id,
			Title:         str(m["title"]),
			Channel:       channel,
			Description:   str(m["description"]),
			URL:           link,
			PublishedText: str(m["published_date"]),
			ViewsText:     str(m["views"]),
			DurationText:  str(m["length"]),
		})
	}
	return out
}

func videoIDFromLink(link string) string {
	if _, after, ok := strings.Cut(link, "v="); ok {
		id, _, _ := strings.Cut(after, "&")
		return id
	}
	if idx := strings.LastIndex(link, "/"); idx >= 0 && idx < len(link)-1 {
		return link[idx+1:]
	}
	return ""
}

// str renders JSON scalars; SerpApi reports views as a number.
func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/scanner"
)

const (
	youtubeResultsURL     = "https://www.youtube.com/results"
	youtubeWatchURL       = "https://www.youtube.com/watch?v="
	defaultYouTubeResults = 20
	// sp=CAI= orders results by upload date.
	youtubeSortByDate = "CAI="
	initialDataMarker = "ytInitialData"
)

// YouTubeScanner reads the search results page and decodes the ytInitialData
// blob embedded in one of its scripts.
type YouTubeScanner struct {
	client *http.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*YouTubeScanner)(nil)

// NewYouTubeScanner wires an HTTP client; nil gets a 20s-timeout default.
func NewYouTubeScanner(client *http.Client, logger *slog.Logger) *YouTubeScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTubeScanner{client: client, logger: logger.With("component", "youtube")}
}

// Name identifies the strategy inside the registry.
func (y *YouTubeScanner) Name() string {
	return "youtube"
}

// Scan runs one results-page search per query. Failing queries are logged and
// skipped; the scan fails only when every query failed.
func (y *YouTubeScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided for site %s", req.SiteName)
	}

	endpoint := req.Option("base_url", youtubeResultsURL)
	limit := defaultYouTubeResults
	if raw := req.Option("max_results", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("site %s: invalid max_results %q", req.SiteName, raw)
		}
		limit = n
	}

	var (
		results []domain.RawRecord
		errs    []error
		seen    = map[string]struct{}{}
	)
	for _, query := range req.Queries {
		videos, err := y.search(ctx, endpoint, query)
		if err != nil {
			y.logger.Warn("youtube query failed", "query", query, "error", err)
			errs = append(errs, fmt.Errorf("query %q: %w", query, err))
			continue
		}
		if len(videos) > limit {
			videos = videos[:limit]
		}
		for _, v := range videos {
			if _, ok := seen[v.ID]; ok {
				continue
			}
			seen[v.ID] = struct{}{}
			v.Source = req.SiteName
			results = append(results, v)
		}
		y.logger.Debug("youtube query done", "query", query, "videos", len(videos))
	}

	if len(errs) == len(req.Queries) {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func (y *YouTubeScanner) search(ctx context.Context, endpoint, query string) ([]domain.RawVideo, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid youtube endpoint %s: %w", endpoint, err)
	}
	q := parsed.Query()
	q.Set("search_query", query)
	q.Set("sp", youtubeSortByDate)
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	raw, err := extractInitialData(doc)
	if err != nil {
		return nil, err
	}

	var data ytInitialData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", initialDataMarker, err)
	}
	return data.videos(), nil
}

// extractInitialData finds the script assigning ytInitialData and returns the
// JSON object literal.
func extractInitialData(doc *goquery.Document) ([]byte, error) {
	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, initialDataMarker)
		if idx < 0 {
			return true
		}
		rest := text[idx:]
		start := strings.Index(rest, "{")
		end := strings.LastIndex(rest, "}")
		if start < 0 || end <= start {
			return true
		}
		payload = rest[start : end+1]
		return false
	})
	if payload == "" {
		return nil, fmt.Errorf("%s not found in results page", initialDataMarker)
	}
	return []byte(payload), nil
}

type ytText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t ytText) String() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type ytVideoRenderer struct {
	VideoID            string `json:"videoId"`
	Title              ytText `json:"title"`
	OwnerText          ytText `json:"ownerText"`
	LongBylineText     ytText `json:"longBylineText"`
	PublishedTimeText  ytText `json:"publishedTimeText"`
	ViewCountText      ytText `json:"viewCountText"`
	LengthText         ytText `json:"lengthText"`
	DescriptionSnippet ytText `json:"descriptionSnippet"`
	DetailedSnippets   []struct {
		SnippetText ytText `json:"snippetText"`
	} `json:"detailedMetadataSnippets"`
}

type ytInitialData struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer struct {
							Contents []struct {
								VideoRenderer *ytVideoRenderer `json:"videoRenderer"`
							} `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

func (d ytInitialData) videos() []domain.RawVideo {
	var out []domain.RawVideo
	sections := d.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents
	for _, section := range sections {
		for _, entry := range section.ItemSectionRenderer.Contents {
			r := entry.VideoRenderer
			if r == nil || r.VideoID == "" {
				continue
			}
			out = append(out, r.raw())
		}
	}
	return out
}

func (r ytVideoRenderer) raw() domain.RawVideo {
	channel := r.OwnerText.String()
	if channel == "" {
		channel = r.LongBylineText.String()
	}
	description := r.DescriptionSnippet.String()
	if description == "" && len(r.DetailedSnippets) > 0 {
		description = r.DetailedSnippets[0].SnippetText.String()
	}
	return domain.RawVideo{
		ID:            r.VideoID,
		Title:         r.Title.String(),
		Channel:       channel,
		Description:   description,
		URL:           youtubeWatchURL + r.VideoID,
		PublishedText: r.PublishedTimeText.String(),
		ViewsText:     r.ViewCountText.String(),
		DurationText:  r.LengthText.String(),
	}
}

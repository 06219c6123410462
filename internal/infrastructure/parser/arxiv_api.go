package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/scanner"
)

const (
	arxivAPIURL          = "https://export.arxiv.org/api/query"
	defaultArxivResults  = "20"
	defaultArxivInterval = time.Second
	userAgent            = "ResearchRadar/1.0"
)

var arxivVersionExpr = regexp.MustCompile(`v\d+$`)

// ArxivAPIScanner queries the arXiv Atom API once per search term, newest
// submissions first, and stops reading a feed at the first entry older than
// the lookback window.
type ArxivAPIScanner struct {
	client   *http.Client
	parser   *gofeed.Parser
	interval time.Duration
	logger   *slog.Logger
}

var _ scanner.Scanner = (*ArxivAPIScanner)(nil)

// NewArxivAPIScanner wires an HTTP client; nil gets a 30s-timeout default.
func NewArxivAPIScanner(client *http.Client, logger *slog.Logger) *ArxivAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArxivAPIScanner{
		client:   client,
		parser:   gofeed.NewParser(),
		interval: defaultArxivInterval,
		logger:   logger.With("component", "arxiv-api"),
	}
}

// Name identifies the strategy inside the registry.
func (a *ArxivAPIScanner) Name() string {
	return "arxiv-api"
}

// Scan runs every query. A failing query is logged and skipped; the scan only
// fails when no query succeeded.
func (a *ArxivAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided for site %s", req.SiteName)
	}

	endpoint := req.Option("base_url", arxivAPIURL)
	maxResults := req.Option("max_results", defaultArxivResults)
	interval := a.interval
	if raw := req.Option("query_interval", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("site %s: invalid query_interval %q: %w", req.SiteName, raw, err)
		}
		interval = d
	}

	var (
		results []domain.RawRecord
		errs    []error
		seen    = map[string]struct{}{}
	)
	for i, query := range req.Queries {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(interval):
			}
		}

		feedURL, err := buildArxivQueryURL(endpoint, query, maxResults)
		if err != nil {
			return nil, err
		}
		feed, err := a.fetchFeed(ctx, feedURL)
		if err != nil {
			a.logger.Warn("arxiv query failed", "query", query, "error", err)
			errs = append(errs, fmt.Errorf("query %q: %w", query, err))
			continue
		}

		papers := a.extractPapers(feed, req.Since, req.SiteName)
		for _, p := range papers {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			results = append(results, p)
		}
		a.logger.Debug("arxiv query done", "query", query, "entries", len(feed.Items), "kept", len(papers))
	}

	if len(errs) == len(req.Queries) {
		return nil, errors.Join(errs...)
	}
	return results, nil
}

func (a *ArxivAPIScanner) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	feed, err := a.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (a *ArxivAPIScanner) extractPapers(feed *gofeed.Feed, since time.Time, siteName string) []domain.RawPaper {
	papers := make([]domain.RawPaper, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.PublishedParsed != nil && !since.IsZero() && item.PublishedParsed.Before(since) {
			// Feed is sorted by submission date, so everything after is older.
			break
		}
		papers = append(papers, paperFromFeedItem(item, siteName))
	}
	return papers
}

func paperFromFeedItem(item *gofeed.Item, siteName string) domain.RawPaper {
	absURL := item.Link
	if absURL == "" {
		absURL = item.GUID
	}

	authors := make([]string, 0, len(item.Authors))
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			authors = append(authors, person.Name)
		}
	}

	published := item.Published
	if published == "" {
		published = item.Updated
	}

	return domain.RawPaper{
		ID:        arxivShortID(item.GUID, absURL),
		Title:     item.Title,
		Abstract:  item.Description,
		Published: published,
		URL:       absURL,
		PDFURL:    pdfURL(item, absURL),
		Authors:   authors,
		Source:    siteName,
	}
}

// arxivShortID turns "http://arxiv.org/abs/2603.01234v2" into "2603.01234".
func arxivShortID(candidates ...string) string {
	for _, c := range candidates {
		if idx := strings.Index(c, "/abs/"); idx >= 0 {
			id := strings.Trim(c[idx+len("/abs/"):], "/")
			return arxivVersionExpr.ReplaceAllString(id, "")
		}
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func pdfURL(item *gofeed.Item, absURL string) string {
	for _, link := range item.Links {
		if strings.Contains(link, "/pdf/") {
			return link
		}
	}
	if strings.Contains(absURL, "/abs/") {
		return strings.Replace(absURL, "/abs/", "/pdf/", 1)
	}
	return ""
}

func buildArxivQueryURL(endpoint, query, maxResults string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid arxiv endpoint %s: %w", endpoint, err)
	}

	term := strings.TrimSpace(query)
	if strings.ContainsAny(term, " \t") {
		term = `"` + term + `"`
	}

	q := parsed.Query()
	q.Set("search_query", "all:"+term)
	q.Set("start", "0")
	q.Set("max_results", maxResults)
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/scanner"
)

const (
	arxivBaseURL = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivListingScanner crawls category listing pages and extracts the entries
// dated inside the lookback window. It needs no search terms; relevance is
// decided downstream.
type ArxivListingScanner struct {
	client   *http.Client
	pageSize int
	logger   *slog.Logger
}

var _ scanner.Scanner = (*ArxivListingScanner)(nil)

// NewArxivListingScanner wires an HTTP client; pageSize defaults to 200.
func NewArxivListingScanner(client *http.Client, logger *slog.Logger) *ArxivListingScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArxivListingScanner{client: client, pageSize: 200, logger: logger.With("component", "arxiv-listing")}
}

// Name identifies the strategy inside the registry.
func (a *ArxivListingScanner) Name() string {
	return "arxiv-listing"
}

// Scan walks through each category URL and returns entries dated between
// req.Since and req.Now (whole days, UTC).
func (a *ArxivListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawRecord, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories provided for site %s", req.SiteName)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	window := dayWindow{
		from: req.Since.UTC().Truncate(24 * time.Hour),
		to:   now.UTC().Truncate(24 * time.Hour),
	}

	results := make([]domain.RawRecord, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(cat.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			doc, err := a.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.Name, err)
			}

			pagePapers, shouldContinue := a.extractPapers(doc, window, req.SiteName, cat.Name)
			for _, paper := range pagePapers {
				if _, ok := seen[paper.ID]; ok {
					continue
				}
				seen[paper.ID] = struct{}{}
				results = append(results, paper)
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
		a.logger.Debug("category scanned", "category", cat.Name, "total", len(results))
	}

	return results, nil
}

type dayWindow struct {
	from, to time.Time
}

func (a *ArxivListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (a *ArxivListingScanner) extractPapers(doc *goquery.Document, window dayWindow, siteName, category string) ([]domain.RawPaper, bool) {
	var (
		collected    []domain.RawPaper
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		paper, publishedAt, ok := parseEntry(dt, dd, siteName, category)
		if !ok {
			// Undated entries still go to the normalizer, which decides.
			collected = append(collected, paper)
			return true
		}

		day := publishedAt.UTC().Truncate(24 * time.Hour)
		if day.Before(window.from) {
			continueScan = false
			return false
		}
		if !day.After(window.to) {
			collected = append(collected, paper)
		}
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

// parseEntry extracts one dt/dd pair. ok is false when the entry carries no
// recognizable date.
func parseEntry(dt, dd *goquery.Selection, siteName, category string) (domain.RawPaper, time.Time, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")

	id := strings.TrimSpace(link.Text())
	id = strings.TrimPrefix(id, "arXiv:")
	if id == "" {
		id = strings.TrimPrefix(href, "/abs/")
	}

	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}
	if id == "" {
		id = href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimPrefix(title, "Title:")
	title = strings.TrimSpace(title)

	abstract := dd.Find("p.mathjax").First().Text()
	abstract = strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:")
	abstract = strings.TrimSpace(abstract)

	var authors []string
	dd.Find(".list-authors a").Each(func(_ int, s *goquery.Selection) {
		if name := strings.TrimSpace(s.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}
	match := dateExpr.FindString(dateText)

	source := siteName
	if category != "" {
		source = fmt.Sprintf("%s/%s", siteName, category)
	}

	paper := domain.RawPaper{
		ID:        id,
		Title:     title,
		Abstract:  abstract,
		Published: match,
		URL:       href,
		PDFURL:    strings.Replace(href, "/abs/", "/pdf/", 1),
		Authors:   authors,
		Source:    source,
	}

	if match == "" {
		return paper, time.Time{}, false
	}
	publishedAt, err := time.Parse("2 Jan 2006", match)
	if err != nil {
		return paper, time.Time{}, false
	}
	return paper, publishedAt, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid category url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

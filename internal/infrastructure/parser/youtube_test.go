package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/logging"
	"ResearchRadar/internal/scanner"
)

const youtubePage = `<!DOCTYPE html><html><head>
<script>var ytcfg = {"x": 1};</script>
<script nonce="n">var ytInitialData = {"contents":{"twoColumnSearchResultsRenderer":{"primaryContents":{"sectionListRenderer":{"contents":[
 {"itemSectionRenderer":{"contents":[
  {"videoRenderer":{"videoId":"abc123","title":{"runs":[{"text":"BEV Perception "},{"text":"Explained"}]},
   "ownerText":{"runs":[{"text":"Driving Lab"}]},
   "publishedTimeText":{"simpleText":"2 days ago"},
   "viewCountText":{"simpleText":"1,234,567 views"},
   "lengthText":{"simpleText":"12:34"},
   "detailedMetadataSnippets":[{"snippetText":{"runs":[{"text":"A walk through BEV models"}]}}]}},
  {"adSlotRenderer":{}},
  {"videoRenderer":{"videoId":"def456","title":{"runs":[{"text":"Occupancy Networks"}]},
   "longBylineText":{"runs":[{"text":"AV Talks"}]},
   "publishedTimeText":{"simpleText":"Streamed 5 hours ago"},
   "viewCountText":{"simpleText":"No views"}}}
 ]}}
]}}}}};</script>
</head><body></body></html>`

func TestYouTubeScannerScan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, youtubeSortByDate, r.URL.Query().Get("sp"))
		_, _ = w.Write([]byte(youtubePage))
	}))
	defer server.Close()

	sc := NewYouTubeScanner(server.Client(), logging.Discard())
	records, err := sc.Scan(context.Background(), scanner.Request{
		Queries:  []string{"bev perception", "occupancy"},
		SiteName: "youtube",
		Options:  map[string]string{"base_url": server.URL},
	})
	require.NoError(t, err)
	require.Len(t, records, 2, "videos repeated across queries are reported once")

	first, ok := records[0].(domain.RawVideo)
	require.True(t, ok)
	assert.Equal(t, "abc123", first.ID)
	assert.Equal(t, "BEV Perception Explained", first.Title)
	assert.Equal(t, "Driving Lab", first.Channel)
	assert.Equal(t, "A walk through BEV models", first.Description)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", first.URL)
	assert.Equal(t, "2 days ago", first.PublishedText)
	assert.Equal(t, "1,234,567 views", first.ViewsText)
	assert.Equal(t, "12:34", first.DurationText)
	assert.Equal(t, "youtube", first.Source)

	second := records[1].(domain.RawVideo)
	assert.Equal(t, "AV Talks", second.Channel)
	assert.Empty(t, second.DurationText)
}

func TestYouTubeScannerMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(youtubePage))
	}))
	defer server.Close()

	sc := NewYouTubeScanner(server.Client(), logging.Discard())
	records, err := sc.Scan(context.Background(), scanner.Request{
		Queries: []string{"q"},
		Options: map[string]string{"base_url": server.URL, "max_results": "1"},
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = sc.Scan(context.Background(), scanner.Request{
		Queries: []string{"q"},
		Options: map[string]string{"base_url": server.URL, "max_results": "lots"},
	})
	assert.Error(t, err)
}

func TestYouTubeScannerMissingInitialData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>var other = {};</script></html>`))
	}))
	defer server.Close()

	sc := NewYouTubeScanner(server.Client(), logging.Discard())
	_, err := sc.Scan(context.Background(), scanner.Request{
		Queries: []string{"q"},
		Options: map[string]string{"base_url": server.URL},
	})
	assert.ErrorContains(t, err, initialDataMarker)
}

func TestExtractInitialData(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<script>window["ytInitialData"] = {"a":{"b":1}};</script>`))
	require.NoError(t, err)

	raw, err := extractInitialData(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"b":1}}`, string(raw))
}

package domain

import "time"

// Kind tells papers and videos apart; pipeline stages never mix kinds.
type Kind string

const (
	KindPaper Kind = "paper"
	KindVideo Kind = "video"
)

// Metric keys carried in CandidateItem.Metrics.
const (
	MetricCitations       = "citations"
	MetricViews           = "views"
	MetricLikes           = "likes"
	MetricDurationSeconds = "duration_seconds"
)

// Metrics holds provider numeric signals. A missing key means the provider
// did not report the signal; it is not the same as zero.
type Metrics map[string]float64

// Get returns the metric value and whether it was reported.
func (m Metrics) Get(key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key]
	return v, ok
}

// CandidateItem is a normalized paper or video flowing through the pipeline.
type CandidateItem struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	SourceURL   string    `json:"source_url"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	Authors     []string  `json:"authors,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	Source      string    `json:"source,omitempty"`
	Metrics     Metrics   `json:"metrics,omitempty"`

	Score *float64 `json:"score,omitempty"`
	Rank  int      `json:"rank,omitempty"`

	Summary       string   `json:"summary"`
	SummarySource string   `json:"summary_source,omitempty"`
	LocalPath     string   `json:"local_path,omitempty"`
	Degradations  []string `json:"degradations,omitempty"`
}

// ScoreValue returns the assigned score, or zero before scoring.
func (c CandidateItem) ScoreValue() float64 {
	if c.Score == nil {
		return 0
	}
	return *c.Score
}

// Degraded reports whether enrichment fell back for this item.
func (c CandidateItem) Degraded() bool {
	return len(c.Degradations) > 0
}

// Text is the title plus description haystack used by keyword matching.
func (c CandidateItem) Text() string {
	if c.Description == "" {
		return c.Title
	}
	return c.Title + " " + c.Description
}

// Completeness counts non-empty optional fields; dedupe keeps the richer record.
func (c CandidateItem) Completeness() int {
	n := 0
	for _, s := range []string{c.Description, c.SourceURL, c.ArtifactURL, c.Channel} {
		if s != "" {
			n++
		}
	}
	if len(c.Authors) > 0 {
		n++
	}
	n += len(c.Metrics)
	return n
}

// RawRecord is a provider record before normalization. Concrete variants are
// RawPaper and RawVideo.
type RawRecord interface {
	Kind() Kind
}

// RawPaper is what paper scanners extract from the index.
type RawPaper struct {
	ID        string
	Title     string
	Abstract  string
	Published string
	URL       string
	PDFURL    string
	Authors   []string
	Source    string
}

// Kind implements RawRecord.
func (RawPaper) Kind() Kind { return KindPaper }

// RawVideo is what video scanners extract from a search results page.
type RawVideo struct {
	ID            string
	Title         string
	Channel       string
	Description   string
	URL           string
	PublishedText string
	ViewsText     string
	LikesText     string
	DurationText  string
	Source        string
}

// Kind implements RawRecord.
func (RawVideo) Kind() Kind { return KindVideo }

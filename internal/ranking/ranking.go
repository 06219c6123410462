package ranking

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"ResearchRadar/internal/domain"
)

// abstractLengthThreshold is the description length (chars) that earns the
// thoroughness bonus.
const abstractLengthThreshold = 500

// Criteria are the keyword groups matched against title and description.
type Criteria struct {
	Quality     []string
	Impact      []string
	Innovation  []string
	CodeMarkers []string
}

// Options configure an Engine.
type Options struct {
	Weights               Weights
	Criteria              Criteria
	DaysBack              int
	MaxVideoLengthMinutes int
}

// Engine scores and orders candidates. It holds no mutable state.
type Engine struct {
	weights  Weights
	criteria Criteria
	window   time.Duration
	maxVideo time.Duration
}

// NewEngine lowercases keyword lists once.
func NewEngine(opts Options) *Engine {
	return &Engine{
		weights: opts.Weights,
		criteria: Criteria{
			Quality:     lowerAll(opts.Criteria.Quality),
			Impact:      lowerAll(opts.Criteria.Impact),
			Innovation:  lowerAll(opts.Criteria.Innovation),
			CodeMarkers: lowerAll(opts.Criteria.CodeMarkers),
		},
		window:   time.Duration(opts.DaysBack) * 24 * time.Hour,
		maxVideo: time.Duration(opts.MaxVideoLengthMinutes) * time.Minute,
	}
}

// Breakdown shows how each signal contributed to a score.
type Breakdown struct {
	Quality        float64 `json:"quality"`
	Impact         float64 `json:"impact"`
	Innovation     float64 `json:"innovation"`
	Code           float64 `json:"code"`
	AbstractLength float64 `json:"abstract_length"`
	Recency        float64 `json:"recency"`
	Engagement     float64 `json:"engagement"`
}

// Total sums the signal groups.
func (b Breakdown) Total() float64 {
	return b.Quality + b.Impact + b.Innovation + b.Code + b.AbstractLength + b.Recency + b.Engagement
}

// Score returns the additive heuristic score for one item.
func (e *Engine) Score(item domain.CandidateItem, now time.Time) float64 {
	return e.Explain(item, now).Total()
}

// Explain computes every signal separately.
func (e *Engine) Explain(item domain.CandidateItem, now time.Time) Breakdown {
	text := strings.ToLower(item.Text())

	b := Breakdown{
		Quality:    e.weights.Quality * float64(countMatches(text, e.criteria.Quality)),
		Impact:     e.weights.Impact * float64(countMatches(text, e.criteria.Impact)),
		Innovation: e.weights.Innovation * float64(countMatches(text, e.criteria.Innovation)),
		Recency:    RecencyBonus(e.weights.RecencyMax, now.Sub(item.PublishedAt), e.window),
	}
	if countMatches(text, e.criteria.CodeMarkers) > 0 {
		b.Code = e.weights.CodeBonus
	}
	if len(item.Description) > abstractLengthThreshold {
		b.AbstractLength = e.weights.AbstractLength
	}
	if item.Kind == domain.KindVideo {
		views, _ := item.Metrics.Get(domain.MetricViews)
		likes, _ := item.Metrics.Get(domain.MetricLikes)
		b.Engagement = e.weights.Views*Saturate(views) + e.weights.Likes*Saturate(likes)
	}
	return b
}

// Eligible applies hard cutoffs that run before scoring: videos longer than
// the configured maximum never enter the ranking.
func (e *Engine) Eligible(item domain.CandidateItem) bool {
	if item.Kind != domain.KindVideo || e.maxVideo <= 0 {
		return true
	}
	seconds, ok := item.Metrics.Get(domain.MetricDurationSeconds)
	if !ok {
		return true
	}
	return time.Duration(seconds*float64(time.Second)) <= e.maxVideo
}

// Rank drops ineligible items, scores the rest and returns them ordered by
// score desc, then PublishedAt desc, then ID asc. Rank is set from 1.
func (e *Engine) Rank(items []domain.CandidateItem, now time.Time) []domain.CandidateItem {
	ranked := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if !e.Eligible(item) {
			continue
		}
		score := e.Score(item, now)
		item.Score = &score
		ranked = append(ranked, item)
	}

	slices.SortStableFunc(ranked, Compare)

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Compare is the total order used by Rank.
func Compare(a, b domain.CandidateItem) int {
	if c := cmp.Compare(b.ScoreValue(), a.ScoreValue()); c != 0 {
		return c
	}
	if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Top returns at most n leading items of an already ranked slice.
func Top(items []domain.CandidateItem, n int) []domain.CandidateItem {
	if n < 0 {
		n = 0
	}
	if n > len(items) {
		n = len(items)
	}
	return slices.Clone(items[:n])
}

// RecencyBonus decays linearly from max at age 0 to zero at the window edge.
func RecencyBonus(max float64, age, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	fraction := float64(age) / float64(window)
	fraction = math.Min(math.Max(fraction, 0), 1)
	return max * (1 - fraction)
}

// Saturate is the engagement transform: monotonic and logarithmic, so 10x
// the views adds a constant rather than multiplying the score.
func Saturate(v float64) float64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Log10(1 + v)
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func lowerAll(terms []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

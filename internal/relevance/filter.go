package relevance

import (
	"strings"
	"time"

	"ResearchRadar/internal/domain"
)

// Guard excludes items that mention Term without any of RequiresAny, e.g. a
// "robot" paper that never talks about driving or vehicles.
type Guard struct {
	Term        string
	RequiresAny []string
}

// Rules configures the filter stage.
type Rules struct {
	Include  []string
	Exclude  []string
	Guards   []Guard
	DaysBack int
}

// Filter applies the lookback window and keyword rules.
type Filter struct {
	include []string
	exclude []string
	guards  []Guard
	window  time.Duration
}

// NewFilter lowercases terms once so matching stays cheap per item.
func NewFilter(r Rules) *Filter {
	guards := make([]Guard, 0, len(r.Guards))
	for _, g := range r.Guards {
		term := strings.ToLower(strings.TrimSpace(g.Term))
		if term == "" {
			continue
		}
		guards = append(guards, Guard{Term: term, RequiresAny: lowerAll(g.RequiresAny)})
	}
	return &Filter{
		include: lowerAll(r.Include),
		exclude: lowerAll(r.Exclude),
		guards:  guards,
		window:  time.Duration(r.DaysBack) * 24 * time.Hour,
	}
}

// Apply returns items inside [now-window, now] that pass the keyword rules.
// The input slice is not modified.
func (f *Filter) Apply(items []domain.CandidateItem, now time.Time) []domain.CandidateItem {
	out := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if !f.InWindow(item, now) {
			continue
		}
		if !f.Relevant(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// InWindow reports whether the item was published within the lookback window.
func (f *Filter) InWindow(item domain.CandidateItem, now time.Time) bool {
	if f.window <= 0 {
		return true
	}
	published := item.PublishedAt.UTC()
	now = now.UTC()
	return !published.After(now) && now.Sub(published) <= f.window
}

// Relevant applies include, exclude and guard rules. Exclusion always wins.
func (f *Filter) Relevant(item domain.CandidateItem) bool {
	text := strings.ToLower(item.Text())

	if !isRelevant(text, f.include, f.exclude) {
		return false
	}

	for _, g := range f.guards {
		if strings.Contains(text, g.Term) && !containsAny(text, g.RequiresAny) {
			return false
		}
	}
	return true
}

// IsRelevant is the rule in its simplest form: at least one include term and
// no exclude term, case-insensitively, over title and description. An empty
// include list matches everything.
func IsRelevant(item domain.CandidateItem, includeTerms, excludeTerms []string) bool {
	return isRelevant(strings.ToLower(item.Text()), lowerAll(includeTerms), lowerAll(excludeTerms))
}

func isRelevant(text string, include, exclude []string) bool {
	for _, term := range exclude {
		if strings.Contains(text, term) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, term := range include {
		if strings.Contains(text, term) {
			return true
		}
		if hyphenated := strings.ReplaceAll(term, " ", "-"); hyphenated != term && strings.Contains(text, hyphenated) {
			return true
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

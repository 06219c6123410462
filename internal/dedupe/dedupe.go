package dedupe

import (
	"strings"
	"unicode"

	"ResearchRadar/internal/domain"
)

// DefaultThreshold is the token-set Jaccard similarity at which two titles
// are considered the same work.
const DefaultThreshold = 0.85

// Options tunes duplicate detection.
type Options struct {
	Threshold float64
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 || o.Threshold > 1 {
		return DefaultThreshold
	}
	return o.Threshold
}

// Dedupe collapses duplicates within each kind. Order of first appearance is
// preserved; the richer record of each duplicate group survives. Passes repeat
// until nothing merges, so Dedupe(Dedupe(x)) == Dedupe(x).
func Dedupe(items []domain.CandidateItem, opts Options) []domain.CandidateItem {
	threshold := opts.threshold()

	var kinds []domain.Kind
	partitions := map[domain.Kind][]domain.CandidateItem{}
	for _, it := range items {
		if _, ok := partitions[it.Kind]; !ok {
			kinds = append(kinds, it.Kind)
		}
		partitions[it.Kind] = append(partitions[it.Kind], it)
	}

	out := make([]domain.CandidateItem, 0, len(items))
	for _, kind := range kinds {
		part := partitions[kind]
		for {
			next := pass(part, threshold)
			if len(next) == len(part) {
				break
			}
			part = next
		}
		out = append(out, part...)
	}
	return out
}

type entry struct {
	item   domain.CandidateItem
	title  string
	tokens map[string]struct{}
}

func pass(items []domain.CandidateItem, threshold float64) []domain.CandidateItem {
	kept := make([]entry, 0, len(items))

outer:
	for _, it := range items {
		candidate := newEntry(it)
		for i := range kept {
			if duplicates(kept[i], candidate, threshold) {
				if better(candidate.item, kept[i].item) {
					kept[i] = candidate
				}
				continue outer
			}
		}
		kept = append(kept, candidate)
	}

	out := make([]domain.CandidateItem, len(kept))
	for i, e := range kept {
		out[i] = e.item
	}
	return out
}

func newEntry(it domain.CandidateItem) entry {
	title := NormalizeTitle(it.Title)
	return entry{item: it, title: title, tokens: tokenSet(title)}
}

func duplicates(a, b entry, threshold float64) bool {
	if a.item.ID != "" && a.item.ID == b.item.ID {
		return true
	}
	if a.title == b.title {
		return true
	}
	return Jaccard(a.tokens, b.tokens) >= threshold
}

// better reports whether a should replace b: more complete metadata first,
// then the more recent publication, then the lower ID.
func better(a, b domain.CandidateItem) bool {
	if ca, cb := a.Completeness(), b.Completeness(); ca != cb {
		return ca > cb
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}

// NormalizeTitle lowercases, replaces punctuation with spaces and collapses
// whitespace.
func NormalizeTitle(title string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, title)
	return strings.Join(strings.Fields(mapped), " ")
}

// Jaccard is |a∩b| / |a∪b|; two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func tokenSet(normalized string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

package llm

import (
	"context"
	"strings"
	"unicode/utf8"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

// ProviderTemplate marks summaries built without an LLM.
const ProviderTemplate = "template"

const templateExcerptRunes = 400

// TemplateSummarizer builds a deterministic summary from the item text. It
// never fails and doubles as the fallback when a provider call fails.
type TemplateSummarizer struct{}

var _ ports.Summarizer = TemplateSummarizer{}

// Provider names the backend for reports.
func (TemplateSummarizer) Provider() string {
	return ProviderTemplate
}

// Summarize returns Fallback(text, kind).
func (TemplateSummarizer) Summarize(_ context.Context, text string, kind domain.Kind) (string, error) {
	return Fallback(text, kind), nil
}

// Fallback renders the template summary.
func Fallback(text string, kind domain.Kind) string {
	excerpt := excerpt(strings.Join(strings.Fields(text), " "), templateExcerptRunes)
	label := "Paper"
	if kind == domain.KindVideo {
		label = "Video"
	}
	if excerpt == "" {
		return label + " summary unavailable: no description was provided."
	}
	return label + " overview (automatic summary unavailable): " + excerpt
}

func excerpt(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}

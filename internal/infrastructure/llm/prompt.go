package llm

import (
	"fmt"
	"strings"

	"ResearchRadar/internal/domain"
)

const systemPrompt = "You are a research assistant who writes concise technical summaries for autonomous driving engineers."

// BuildPrompt renders the user message for one item.
func BuildPrompt(text string, kind domain.Kind) string {
	var b strings.Builder
	switch kind {
	case domain.KindVideo:
		b.WriteString("Summarize this autonomous driving video for an engineer deciding whether to watch it.\n\n")
	default:
		b.WriteString("Provide a technical summary of this autonomous driving research paper.\n\n")
	}
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\nCover:\n")
	for i, point := range focusPoints(kind) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, point)
	}
	b.WriteString("\nKeep it concise but technical (150-250 words).")
	return b.String()
}

func focusPoints(kind domain.Kind) []string {
	if kind == domain.KindVideo {
		return []string{
			"Main topic and who presents it",
			"Key technical ideas shown",
			"Practical takeaways for autonomous driving",
		}
	}
	return []string{
		"Key technical contributions",
		"Methodology",
		"Results and improvements",
		"Potential impact on autonomous driving",
		"Limitations or future work",
	}
}

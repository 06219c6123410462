package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ResearchRadar/internal/domain"
)

const (
	reportTitle   = "Research Radar Report"
	reportAuthors = 3
	dateLayout    = "2006-01-02"
	stampLayout   = "2006-01-02 15:04 MST"
)

// JSON is the structured view: every field of the report, indented.
func JSON(r Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// RenderMarkdown is the human-readable view: run header, ranked lists with
// summaries, degraded items and the upload outcome.
func RenderMarkdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", reportTitle)
	fmt.Fprintf(&b, "- **Date:** %s\n", r.GeneratedAt.Format(stampLayout))
	fmt.Fprintf(&b, "- **Run ID:** `%s`\n", r.RunID)
	if r.Summarizer != "" {
		fmt.Fprintf(&b, "- **Summarizer:** %s\n", strings.ToUpper(r.Summarizer))
	}
	fmt.Fprintf(&b, "- **Lookback:** %s\n", plural(r.Config.DaysBack, "day"))
	fmt.Fprintf(&b, "- **Papers:** %s\n", countsLine(r.Counts.Papers))
	fmt.Fprintf(&b, "- **Videos:** %s\n\n", countsLine(r.Counts.Videos))

	b.WriteString("## Top Papers\n\n")
	if len(r.Papers) == 0 {
		b.WriteString("_No papers matched this run._\n\n")
	}
	for i, it := range r.Papers {
		writePaper(&b, position(i, it), it)
	}

	b.WriteString("## Top Videos\n\n")
	if len(r.Videos) == 0 {
		b.WriteString("_No videos matched this run._\n\n")
	}
	for i, it := range r.Videos {
		writeVideo(&b, position(i, it), it)
	}

	if len(r.Degraded) > 0 {
		b.WriteString("## Degraded Items\n\n")
		for _, d := range r.Degraded {
			fmt.Fprintf(&b, "- `%s` %s: %s\n", d.ID, d.Title, strings.Join(d.Reasons, "; "))
		}
		b.WriteString("\n")
	}

	if u := r.Upload; u != nil {
		b.WriteString("## Upload\n\n")
		if u.Succeeded() {
			fmt.Fprintf(&b, "Uploaded `%s` (%s)", u.Name, humanize.Bytes(uint64(max(u.Size, 0))))
			if u.Link != "" {
				fmt.Fprintf(&b, ": [open in Drive](%s)", u.Link)
			}
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "Upload failed: %s\n", u.Error)
		}
	}

	return b.String()
}

// RenderHTML converts the markdown view into a standalone HTML page.
func RenderHTML(r Report) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
		Title: fmt.Sprintf("%s %s", reportTitle, r.GeneratedAt.Format(dateLayout)),
	})
	return markdown.ToHTML([]byte(RenderMarkdown(r)), p, renderer)
}

// Digest is the plain-text message sent to chat notifiers.
func Digest(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", reportTitle, r.GeneratedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Papers: %d, videos: %d\n\n", len(r.Papers), len(r.Videos))

	for _, section := range []struct {
		name  string
		items []domain.CandidateItem
	}{{"Papers", r.Papers}, {"Videos", r.Videos}} {
		if len(section.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s\n", section.name)
		for i, it := range section.items {
			fmt.Fprintf(&b, "%d. %s\nScore: %.2f\n%s\n%s\n\n",
				position(i, it), it.Title, it.ScoreValue(), it.Summary, it.SourceURL)
		}
	}

	if u := r.Upload; u.Succeeded() && u.Link != "" {
		fmt.Fprintf(&b, "Archive: %s\n", u.Link)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writePaper(b *strings.Builder, pos int, it domain.CandidateItem) {
	writeHeading(b, pos, it)
	if len(it.Authors) > 0 {
		authors := it.Authors
		suffix := ""
		if len(authors) > reportAuthors {
			authors, suffix = authors[:reportAuthors], " et al."
		}
		fmt.Fprintf(b, "- **Authors:** %s%s\n", strings.Join(authors, ", "), suffix)
	}
	fmt.Fprintf(b, "- **Published:** %s\n", it.PublishedAt.Format(dateLayout))
	if it.SourceURL != "" {
		fmt.Fprintf(b, "- **Abstract page:** %s\n", it.SourceURL)
	}
	if it.ArtifactURL != "" {
		fmt.Fprintf(b, "- **PDF:** %s\n", it.ArtifactURL)
	}
	if it.LocalPath != "" {
		fmt.Fprintf(b, "- **Local copy:** `%s`\n", it.LocalPath)
	}
	writeSummary(b, it)
}

func writeVideo(b *strings.Builder, pos int, it domain.CandidateItem) {
	writeHeading(b, pos, it)
	if it.Channel != "" {
		fmt.Fprintf(b, "- **Channel:** %s\n", it.Channel)
	}
	fmt.Fprintf(b, "- **Published:** %s\n", it.PublishedAt.Format(dateLayout))
	if v, ok := it.Metrics.Get(domain.MetricViews); ok {
		fmt.Fprintf(b, "- **Views:** %s\n", humanize.Comma(int64(v)))
	}
	if v, ok := it.Metrics.Get(domain.MetricLikes); ok {
		fmt.Fprintf(b, "- **Likes:** %s\n", humanize.Comma(int64(v)))
	}
	if v, ok := it.Metrics.Get(domain.MetricDurationSeconds); ok {
		fmt.Fprintf(b, "- **Duration:** %s\n", time.Duration(v)*time.Second)
	}
	if it.SourceURL != "" {
		fmt.Fprintf(b, "- **Watch:** %s\n", it.SourceURL)
	}
	writeSummary(b, it)
}

func writeHeading(b *strings.Builder, pos int, it domain.CandidateItem) {
	fmt.Fprintf(b, "### %d. %s\n\n", pos, it.Title)
	fmt.Fprintf(b, "- **Score:** %.2f\n", it.ScoreValue())
}

func writeSummary(b *strings.Builder, it domain.CandidateItem) {
	b.WriteString("\n")
	if it.Summary != "" {
		b.WriteString(it.Summary)
		b.WriteString("\n")
	}
	if it.Degraded() {
		b.WriteString("\n> Fallback summary.\n")
	}
	b.WriteString("\n")
}

func countsLine(c StageCounts) string {
	return fmt.Sprintf("%s fetched, %s relevant, %s unique, %s selected",
		humanize.Comma(int64(c.Fetched)),
		humanize.Comma(int64(c.Relevant)),
		humanize.Comma(int64(c.Unique)),
		humanize.Comma(int64(c.Selected)))
}

// position prefers the assigned rank and falls back to list order.
func position(i int, it domain.CandidateItem) int {
	if it.Rank > 0 {
		return it.Rank
	}
	return i + 1
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Paths lists the files produced by one Write.
type Paths struct {
	Dir      string
	JSON     string
	Markdown string
	HTML     string
}

// FileWriter stores reports as date-stamped files under an output directory.
type FileWriter struct {
	HTML bool
}

// RunDir is <outputDir>/research_<date> for the day of t.
func RunDir(outputDir string, t time.Time) string {
	return filepath.Join(outputDir, "research_"+t.Format(dateLayout))
}

// ArchivePath is the zip uploaded for a run; it lives next to the run
// directory, never inside it.
func ArchivePath(outputDir string, t time.Time) string {
	return filepath.Join(outputDir, "research_"+t.Format(dateLayout)+".zip")
}

// Write renders r into RunDir(outputDir, r.GeneratedAt). Rewriting the same
// run overwrites the previous files.
func (w FileWriter) Write(outputDir string, r Report) (Paths, error) {
	stamp := r.GeneratedAt.Format(dateLayout)
	dir := RunDir(outputDir, r.GeneratedAt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create run dir: %w", err)
	}

	paths := Paths{
		Dir:      dir,
		JSON:     filepath.Join(dir, "research_results_"+stamp+".json"),
		Markdown: filepath.Join(dir, "research_report_"+stamp+".md"),
	}

	data, err := JSON(r)
	if err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(paths.JSON, data, 0o644); err != nil {
		return Paths{}, fmt.Errorf("write results: %w", err)
	}

	if err := os.WriteFile(paths.Markdown, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write markdown report: %w", err)
	}

	if w.HTML {
		paths.HTML = filepath.Join(dir, "research_report_"+stamp+".html")
		if err := os.WriteFile(paths.HTML, RenderHTML(r), 0o644); err != nil {
			return Paths{}, fmt.Errorf("write html report: %w", err)
		}
	}

	return paths, nil
}

package report

import (
	"cmp"
	"crypto/rand"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a ULID stamped with t. IDs minted within the same
// millisecond still sort in creation order.
func NewRunID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// StageCounts tracks how many items of one kind survived each stage.
type StageCounts struct {
	Fetched   int `json:"fetched"`
	Malformed int `json:"malformed"`
	Relevant  int `json:"relevant"`
	Unique    int `json:"unique"`
	Ranked    int `json:"ranked"`
	Selected  int `json:"selected"`
}

// Counts groups stage counts per kind.
type Counts struct {
	Papers StageCounts `json:"papers"`
	Videos StageCounts `json:"videos"`
}

// Meta is the run metadata merged into a report.
type Meta struct {
	RunID       string
	GeneratedAt time.Time
	Summarizer  string
	Counts      Counts
	Config      config.Config
}

// DegradedItem lists an item whose enrichment fell back, with the reasons.
type DegradedItem struct {
	ID      string      `json:"id"`
	Kind    domain.Kind `json:"kind"`
	Title   string      `json:"title"`
	Reasons []string    `json:"reasons"`
}

// UploadOutcome records either the uploaded file or the failure message.
type UploadOutcome struct {
	ports.UploadResult
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the archive reached the cloud folder.
func (u *UploadOutcome) Succeeded() bool {
	return u != nil && u.Error == ""
}

// Report is the assembled outcome of one run.
type Report struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Summarizer  string                 `json:"summarizer"`
	Counts      Counts                 `json:"counts"`
	Config      config.Config          `json:"config"`
	Papers      []domain.CandidateItem `json:"papers"`
	Videos      []domain.CandidateItem `json:"videos"`
	Degraded    []DegradedItem         `json:"degraded"`
	Upload      *UploadOutcome         `json:"upload,omitempty"`
}

// Assemble merges enriched items with run metadata. Items are copied and
// ordered by Rank; a missing run ID or timestamp is filled in.
func Assemble(meta Meta, papers, videos []domain.CandidateItem) Report {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	if meta.RunID == "" {
		meta.RunID = NewRunID(meta.GeneratedAt)
	}

	r := Report{
		RunID:       meta.RunID,
		GeneratedAt: meta.GeneratedAt,
		Summarizer:  meta.Summarizer,
		Counts:      meta.Counts,
		Config:      meta.Config,
		Papers:      byRank(papers),
		Videos:      byRank(videos),
		Degraded:    []DegradedItem{},
	}
	for _, items := range [][]domain.CandidateItem{r.Papers, r.Videos} {
		for _, it := range items {
			if !it.Degraded() {
				continue
			}
			r.Degraded = append(r.Degraded, DegradedItem{
				ID:      it.ID,
				Kind:    it.Kind,
				Title:   it.Title,
				Reasons: slices.Clone(it.Degradations),
			})
		}
	}
	return r
}

// RecordUpload attaches the upload outcome.
func (r *Report) RecordUpload(res ports.UploadResult, err error) {
	if err != nil {
		r.Upload = &UploadOutcome{Error: err.Error()}
		return
	}
	r.Upload = &UploadOutcome{UploadResult: res}
}

func byRank(items []domain.CandidateItem) []domain.CandidateItem {
	out := slices.Clone(items)
	if out == nil {
		out = []domain.CandidateItem{}
	}
	slices.SortStableFunc(out, func(a, b domain.CandidateItem) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
	return out
}

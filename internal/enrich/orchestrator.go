package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

const (
	// DefaultWorkers matches the parallel_workers default.
	DefaultWorkers = 3
	// SourceTemplate marks summaries produced by the fallback.
	SourceTemplate = "template"

	maxPromptAuthors = 5
)

// Options tune the enrichment stage.
type Options struct {
	Workers     int
	MinInterval time.Duration
	// Timeout bounds the whole stage; zero means no bound.
	Timeout time.Duration
	// CallTimeout bounds each summarization request; zero means no bound.
	CallTimeout time.Duration
	Download    bool
	// Provider is recorded as SummarySource on successful summaries.
	Provider string
}

// Orchestrator enriches the top-N items with summaries and artifacts using a
// fixed pool of workers. It never fails: every problem becomes a degradation
// on the affected item.
type Orchestrator struct {
	summarizer ports.Summarizer
	fallback   ports.Summarizer
	downloader ports.Downloader
	limiter    *rate.Limiter
	opts       Options
	logger     *slog.Logger
}

// New wires the collaborators. fallback and downloader may be nil.
func New(summarizer, fallback ports.Summarizer, downloader ports.Downloader, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Provider == "" {
		opts.Provider = "llm"
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Orchestrator{
		summarizer: summarizer,
		fallback:   fallback,
		downloader: downloader,
		limiter:    rate.NewLimiter(limit, 1),
		opts:       opts,
		logger:     logger.With("component", "enrich"),
	}
}

// Enrich returns one output per input, in input order. Artifacts land in dir.
// Tasks still queued when the stage timeout fires get a template summary and
// a degradation; finished results are kept.
func (o *Orchestrator) Enrich(ctx context.Context, items []domain.CandidateItem, dir string) []domain.CandidateItem {
	out := make([]domain.CandidateItem, len(items))
	for i, it := range items {
		it.Degradations = slices.Clone(it.Degradations)
		out[i] = it
	}
	if len(out) == 0 {
		return out
	}

	stageCtx := ctx
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	workers := min(o.opts.Workers, len(out))
	tasks := make(chan int)
	done := make(chan struct{}, workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := range tasks {
				out[i] = o.process(stageCtx, out[i], dir)
			}
		}()
	}

	started := make([]bool, len(out))
feed:
	for i := range out {
		// Check first so an expired stage never hands out more work.
		if stageCtx.Err() != nil {
			break
		}
		select {
		case tasks <- i:
			started[i] = true
		case <-stageCtx.Done():
			break feed
		}
	}
	close(tasks)
	for w := 0; w < workers; w++ {
		<-done
	}

	skipped := 0
	for i, ok := range started {
		if !ok {
			out[i] = o.degrade(out[i], "enrichment timed out before the task started")
			skipped++
		}
	}
	if skipped > 0 {
		o.logger.Warn("enrichment stage timed out", "skipped", skipped, "total", len(out))
	}
	return out
}

func (o *Orchestrator) process(ctx context.Context, item domain.CandidateItem, dir string) domain.CandidateItem {
	summary, err := o.summarize(ctx, item)
	if err != nil {
		o.logger.Warn("summarization failed, using template", "id", item.ID, "error", err)
		item = o.degrade(item, "summary: "+err.Error())
	} else {
		item.Summary = summary
		item.SummarySource = o.opts.Provider
	}

	if o.opts.Download && o.downloader != nil && item.ArtifactURL != "" {
		path, err := o.downloader.Download(ctx, item, dir)
		if err != nil {
			o.logger.Warn("download failed", "id", item.ID, "error", err)
			item.LocalPath = ""
			item.Degradations = append(item.Degradations, "download: "+err.Error())
		} else {
			item.LocalPath = path
		}
	}
	return item
}

func (o *Orchestrator) summarize(ctx context.Context, item domain.CandidateItem) (string, error) {
	if o.summarizer == nil {
		return "", &domain.SummarizationError{Provider: o.opts.Provider, Err: errors.New("no summarizer configured")}
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return "", &domain.SummarizationError{Provider: o.opts.Provider, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	callCtx := ctx
	if o.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
	}

	summary, err := o.summarizer.Summarize(callCtx, Input(item), item.Kind)
	if err != nil {
		var se *domain.SummarizationError
		if !errors.As(err, &se) {
			err = &domain.SummarizationError{Provider: o.opts.Provider, Err: err}
		}
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", &domain.SummarizationError{Provider: o.opts.Provider, Err: errors.New("empty summary")}
	}
	return summary, nil
}

// degrade fills the template summary and records why.
func (o *Orchestrator) degrade(item domain.CandidateItem, reason string) domain.CandidateItem {
	item.Summary = o.fallbackSummary(item)
	item.SummarySource = SourceTemplate
	item.Degradations = append(item.Degradations, reason)
	return item
}

func (o *Orchestrator) fallbackSummary(item domain.CandidateItem) string {
	if o.fallback != nil {
		// Fallback summarizers are local and must not depend on the expired stage.
		if s, err := o.fallback.Summarize(context.Background(), Input(item), item.Kind); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fmt.Sprintf("Summary unavailable for %q.", item.Title)
}

// Input renders the text handed to summarizers.
func Input(item domain.CandidateItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	if len(item.Authors) > 0 {
		authors := item.Authors
		if len(authors) > maxPromptAuthors {
			authors = authors[:maxPromptAuthors]
		}
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(authors, ", "))
	}
	if item.Channel != "" {
		fmt.Fprintf(&b, "Channel: %s\n", item.Channel)
	}
	label := "Abstract"
	if item.Kind == domain.KindVideo {
		label = "Description"
	}
	fmt.Fprintf(&b, "%s: %s", label, item.Description)
	return b.String()
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/dedupe"
	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/normalize"
	"ResearchRadar/internal/ports"
	"ResearchRadar/internal/ranking"
	"ResearchRadar/internal/relevance"
	"ResearchRadar/internal/report"
)

// Enricher runs the expensive per-item stage on the ranked top-N slice.
type Enricher interface {
	Enrich(ctx context.Context, items []domain.CandidateItem, dir string) []domain.CandidateItem
}

// ReportWriter persists an assembled report under an output directory.
type ReportWriter interface {
	Write(outputDir string, r report.Report) (report.Paths, error)
}

// ArchiveFunc packs a run directory into a single file at dest.
type ArchiveFunc func(dir, dest string) error

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Config     config.Config
	Papers     ports.PaperSearcher
	Videos     ports.VideoSearcher
	Normalizer *normalize.Normalizer
	Filter     *relevance.Filter
	Ranker     *ranking.Engine
	Enricher   Enricher
	Writer     ReportWriter
	Archive    ArchiveFunc
	Uploader   ports.Uploader
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the research workflow: search, normalize, filter,
// dedupe, rank, enrich the top-N and publish the report.
type Pipeline struct {
	cfg        config.Config
	papers     ports.PaperSearcher
	videos     ports.VideoSearcher
	normalizer *normalize.Normalizer
	filter     *relevance.Filter
	ranker     *ranking.Engine
	enricher   Enricher
	writer     ReportWriter
	archive    ArchiveFunc
	uploader   ports.Uploader
	notifier   ports.Notifier
	logger     *slog.Logger
}

// Result is what one run produced.
type Result struct {
	Report report.Report
	Paths  report.Paths
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:        deps.Config,
		papers:     deps.Papers,
		videos:     deps.Videos,
		normalizer: deps.Normalizer,
		filter:     deps.Filter,
		ranker:     deps.Ranker,
		enricher:   deps.Enricher,
		writer:     deps.Writer,
		archive:    deps.Archive,
		uploader:   deps.Uploader,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// Run executes one full pass anchored at now. Provider, enrichment, upload
// and notification failures are logged and never abort the run; the report is
// always written. ErrNoResults is returned only when require_results is set.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (Result, error) {
	runID := report.NewRunID(now)
	log := p.logger.With("run_id", runID)
	since := now.AddDate(0, 0, -p.cfg.DaysBack)
	queries := p.cfg.SearchTerms

	log.Info("run started", "days_back", p.cfg.DaysBack, "since", since.Format(time.RFC3339), "queries", len(queries))

	var counts report.Counts
	var papers, videos []domain.CandidateItem

	if p.papers != nil && p.cfg.TopPapers > 0 {
		raws, err := p.papers.SearchPapers(ctx, queries, since)
		if sErr := p.searchFailed(ctx, log, domain.KindPaper, err); sErr != nil {
			return Result{}, sErr
		}
		papers, counts.Papers = p.selectTop(log, raws, now, p.cfg.TopPapers)
	}

	if p.videos != nil && p.cfg.TopVideos > 0 {
		raws, err := p.videos.SearchVideos(ctx, queries, since, p.cfg.MaxVideoLengthMinutes)
		if sErr := p.searchFailed(ctx, log, domain.KindVideo, err); sErr != nil {
			return Result{}, sErr
		}
		videos, counts.Videos = p.selectTop(log, raws, now, p.cfg.TopVideos)
	}

	runDir := report.RunDir(p.cfg.Output.Dir, now)
	if p.enricher != nil {
		papers = p.enricher.Enrich(ctx, papers, runDir)
		videos = p.enricher.Enrich(ctx, videos, runDir)
	}

	rep := report.Assemble(report.Meta{
		RunID:       runID,
		GeneratedAt: now,
		Summarizer:  p.cfg.Summarizer.Provider,
		Counts:      counts,
		Config:      p.cfg,
	}, papers, videos)

	res := Result{Report: rep}
	if p.writer != nil {
		paths, err := p.writer.Write(p.cfg.Output.Dir, rep)
		if err != nil {
			return res, fmt.Errorf("write report: %w", err)
		}
		res.Paths = paths
		log.Info("report written", "dir", paths.Dir, "papers", len(rep.Papers), "videos", len(rep.Videos), "degraded", len(rep.Degraded))

		if p.cfg.UploadToCloud && p.uploader != nil {
			p.upload(ctx, log, &res, now)
		}
	}

	p.notify(ctx, log, res.Report)

	if p.cfg.RequireResults && len(rep.Papers)+len(rep.Videos) == 0 {
		return res, fmt.Errorf("run %s: %w", runID, domain.ErrNoResults)
	}

	log.Info("run finished", "papers", len(rep.Papers), "videos", len(rep.Videos))
	return res, nil
}

// selectTop takes one kind's raw records down to the ranked top-N slice.
func (p *Pipeline) selectTop(log *slog.Logger, raws []domain.RawRecord, now time.Time, topN int) ([]domain.CandidateItem, report.StageCounts) {
	var c report.StageCounts
	c.Fetched = len(raws)

	// Searches take time; relative timestamps and the window share one anchor.
	anchor := now.UTC()
	if clock := p.normalizer.Now(); clock.After(anchor) {
		anchor = clock
	}

	items, dropped := p.normalizer.AllAt(raws, anchor)
	c.Malformed = dropped

	relevant := p.filter.Apply(items, anchor)
	c.Relevant = len(relevant)

	unique := dedupe.Dedupe(relevant, dedupe.Options{Threshold: p.cfg.Dedupe.SimilarityThreshold})
	c.Unique = len(unique)

	ranked := p.ranker.Rank(unique, anchor)
	c.Ranked = len(ranked)

	top := ranking.Top(ranked, topN)
	c.Selected = len(top)

	log.Info("candidates selected",
		"fetched", c.Fetched,
		"malformed", c.Malformed,
		"relevant", c.Relevant,
		"unique", c.Unique,
		"ranked", c.Ranked,
		"selected", c.Selected)
	return top, c
}

// searchFailed logs provider errors and only surfaces cancellation.
func (p *Pipeline) searchFailed(ctx context.Context, log *slog.Logger, kind domain.Kind, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("search %ss: %w", kind, ctxErr)
	}
	log.Warn("search failed, continuing with partial results", "kind", kind, "error", err)
	return nil
}

func (p *Pipeline) upload(ctx context.Context, log *slog.Logger, res *Result, now time.Time) {
	archivePath := report.ArchivePath(p.cfg.Output.Dir, now)

	var (
		uploaded ports.UploadResult
		err      error
	)
	if p.archive == nil {
		err = &domain.UploadError{Path: archivePath, Err: errors.New("no archiver configured")}
	} else if aErr := p.archive(res.Paths.Dir, archivePath); aErr != nil {
		err = &domain.UploadError{Path: archivePath, Err: aErr}
	} else {
		uploaded, err = p.uploader.Upload(ctx, archivePath, p.cfg.CloudFolderID)
	}

	if err != nil {
		log.Warn("upload failed, local files kept", "archive", archivePath, "error", err)
	} else {
		log.Info("archive uploaded", "file_id", uploaded.FileID, "link", uploaded.Link)
		if rmErr := os.Remove(archivePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn("could not remove archive", "archive", archivePath, "error", rmErr)
		}
	}

	res.Report.RecordUpload(uploaded, err)
	paths, wErr := p.writer.Write(p.cfg.Output.Dir, res.Report)
	if wErr != nil {
		log.Warn("could not record upload outcome in report", "error", wErr)
		return
	}
	res.Paths = paths
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, rep report.Report) {
	if p.notifier == nil {
		return
	}
	if len(rep.Papers)+len(rep.Videos) == 0 {
		log.Debug("nothing to notify")
		return
	}
	if err := p.notifier.PublishDigest(ctx, report.Digest(rep)); err != nil {
		log.Warn("digest notification failed", "error", err)
	}
}

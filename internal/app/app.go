package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/enrich"
	"ResearchRadar/internal/infrastructure/download"
	"ResearchRadar/internal/infrastructure/gdrive"
	"ResearchRadar/internal/infrastructure/llm"
	"ResearchRadar/internal/infrastructure/parser"
	"ResearchRadar/internal/infrastructure/scheduler"
	"ResearchRadar/internal/infrastructure/telegram"
	"ResearchRadar/internal/logging"
	"ResearchRadar/internal/normalize"
	"ResearchRadar/internal/ports"
	"ResearchRadar/internal/ranking"
	"ResearchRadar/internal/relevance"
	"ResearchRadar/internal/report"
	"ResearchRadar/internal/scanner"
	"ResearchRadar/internal/usecase"
)

const httpTimeout = 60 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
	closers  []func() error
}

// New builds every adapter from cfg. Misconfigured sources fail here, before
// any network call.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	client := &http.Client{Timeout: httpTimeout}

	registry := scanner.NewRegistry(
		parser.NewArxivAPIScanner(client, baseLogger.With("component", "scanner.arxiv-api")),
		parser.NewArxivListingScanner(client, baseLogger.With("component", "scanner.arxiv-listing")),
		parser.NewYouTubeScanner(client, baseLogger.With("component", "scanner.youtube")),
		parser.NewSerpAPIYouTubeScanner(cfg.SerpAPI.APIKey, baseLogger),
	)
	if err := checkSources(cfg, registry); err != nil {
		return nil, err
	}
	source := parser.NewStrategySource(registry, cfg.Sources, baseLogger.With("component", "source"))

	summarizer, closeSummarizer, err := llm.New(ctx, cfg.Summarizer, baseLogger.With("component", "llm"))
	if err != nil {
		return nil, &domain.ConfigurationError{Key: "summarizer", Err: err}
	}
	closers := []func() error{closeSummarizer}

	enricher := enrich.New(summarizer, llm.TemplateSummarizer{}, download.NewHTTPDownloader(client, baseLogger), enrich.Options{
		Workers:     cfg.ParallelWorkers,
		MinInterval: cfg.Summarizer.MinInterval,
		Timeout:     cfg.EnrichTimeout,
		CallTimeout: cfg.Summarizer.Timeout,
		Download:    cfg.DownloadPapers,
		Provider:    summarizer.Provider(),
	}, baseLogger)

	var uploader ports.Uploader
	if cfg.UploadToCloud {
		u, err := gdrive.NewUploader(ctx, cfg.Drive.CredentialsFile, cfg.Drive.TokenFile, baseLogger)
		if err != nil {
			// Upload is best effort; the report records why it did not happen.
			baseLogger.Warn("google drive unavailable, upload will fail", "error", err)
			uploader = unavailableUploader{err: err}
		} else {
			uploader = u
		}
	}

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Enabled() {
		notifier = tg
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Config:     cfg,
		Papers:     source,
		Videos:     source,
		Normalizer: normalize.New(time.Now, baseLogger),
		Filter: relevance.NewFilter(relevance.Rules{
			Include:  cfg.IncludeTerms(),
			Exclude:  cfg.ExcludeTerms,
			Guards:   guards(cfg.ContextGuards),
			DaysBack: cfg.DaysBack,
		}),
		Ranker: ranking.NewEngine(ranking.Options{
			Weights: ranking.WeightsFrom(cfg.RankingWeights, baseLogger.With("component", "ranking")),
			Criteria: ranking.Criteria{
				Quality:     cfg.RankingCriteria.QualityIndicators,
				Impact:      cfg.RankingCriteria.ImpactIndicators,
				Innovation:  cfg.RankingCriteria.InnovationIndicators,
				CodeMarkers: cfg.RankingCriteria.CodeMarkers,
			},
			DaysBack:              cfg.DaysBack,
			MaxVideoLengthMinutes: cfg.MaxVideoLengthMinutes,
		}),
		Enricher: enricher,
		Writer:   report.FileWriter{HTML: cfg.Output.HTML},
		Archive:  gdrive.ZipDir,
		Uploader: uploader,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, pipeline: pipeline, logger: baseLogger, closers: closers}, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.Result, error) {
	now := time.Now().In(a.cfg.Schedule.Location())
	return a.pipeline.Run(ctx, now)
}

// Schedule runs the pipeline every schedule.interval until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Schedule.Interval, a.cfg.Schedule.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start schedule: %w", err)
	}
	a.logger.Info("schedule started", "interval", a.cfg.Schedule.Interval.String(), "timezone", a.cfg.Schedule.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases provider clients.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkSources(cfg config.Config, registry *scanner.Registry) error {
	var errs []error
	for i, src := range cfg.Sources {
		key := fmt.Sprintf("sources[%d].scanner", i)
		if _, err := registry.Resolve(src.Scanner); err != nil {
			errs = append(errs, &domain.ConfigurationError{Key: key, Err: err})
			continue
		}
		if src.Scanner == "serpapi-youtube" && cfg.SerpAPI.APIKey == "" {
			errs = append(errs, &domain.ConfigurationError{Key: key, Err: errors.New("serpapi-youtube needs serpapi.api_key or SERPAPI_API_KEY")})
		}
	}
	return errors.Join(errs...)
}

func guards(cfg []config.ContextGuard) []relevance.Guard {
	out := make([]relevance.Guard, 0, len(cfg))
	for _, g := range cfg {
		out = append(out, relevance.Guard{Term: g.Term, RequiresAny: g.RequiresAny})
	}
	return out
}

type unavailableUploader struct {
	err error
}

func (u unavailableUploader) Upload(_ context.Context, archivePath, _ string) (ports.UploadResult, error) {
	return ports.UploadResult{}, &domain.UploadError{Path: archivePath, Err: u.err}
}

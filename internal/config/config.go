package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ResearchRadar/internal/domain"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "RESEARCH_RADAR_CONFIG"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	kimiAPIKeyEnv    = "KIMI_API_KEY"
	serpAPIKeyEnv    = "SERPAPI_API_KEY"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv      = "LOG_LEVEL"
)

// Summarizer providers understood by the app wiring.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderKimi     = "kimi"
	ProviderTemplate = "template"
)

// Config holds every run option. It is built once at startup and passed
// down by value; nothing mutates it afterwards.
type Config struct {
	DaysBack              int            `yaml:"days_back" json:"days_back"`
	TopPapers             int            `yaml:"top_papers" json:"top_papers"`
	TopVideos             int            `yaml:"top_videos" json:"top_videos"`
	MaxVideoLengthMinutes int            `yaml:"max_video_length_minutes" json:"max_video_length_minutes"`
	ParallelWorkers       int            `yaml:"parallel_workers" json:"parallel_workers"`
	SearchTerms           []string       `yaml:"search_terms" json:"search_terms"`
	ExcludeTerms          []string       `yaml:"exclude_terms" json:"exclude_terms"`
	RequiredTerms         []string       `yaml:"required_terms" json:"required_terms,omitempty"`
	RankingWeights        map[string]any `yaml:"ranking_weights" json:"ranking_weights,omitempty"`
	UploadToCloud         bool           `yaml:"upload_to_cloud" json:"upload_to_cloud"`
	CloudFolderID         string         `yaml:"cloud_folder_id" json:"cloud_folder_id,omitempty"`

	RankingCriteria RankingCriteria `yaml:"ranking_criteria" json:"ranking_criteria"`
	ContextGuards   []ContextGuard  `yaml:"context_guards" json:"context_guards,omitempty"`
	Dedupe          DedupeConfig    `yaml:"dedupe" json:"dedupe"`
	DownloadPapers  bool            `yaml:"download_papers" json:"download_papers"`
	RequireResults  bool            `yaml:"require_results" json:"require_results"`
	EnrichTimeout   time.Duration   `yaml:"enrich_timeout" json:"enrich_timeout"`

	Summarizer    SummarizerConfig   `yaml:"summarizer" json:"summarizer"`
	Output        OutputConfig       `yaml:"output" json:"output"`
	Sources       []SourceConfig     `yaml:"sources" json:"sources"`
	Drive         DriveConfig        `yaml:"drive" json:"drive"`
	SerpAPI       SerpAPIConfig      `yaml:"serpapi" json:"-"`
	Notifications NotificationConfig `yaml:"notifications" json:"-"`
	Schedule      ScheduleConfig     `yaml:"schedule" json:"schedule"`
	Logging       LoggingConfig      `yaml:"logging" json:"-"`
}

// RankingCriteria lists keyword groups used by the scoring engine.
type RankingCriteria struct {
	QualityIndicators    []string `yaml:"quality_indicators" json:"quality_indicators"`
	ImpactIndicators     []string `yaml:"impact_indicators" json:"impact_indicators"`
	InnovationIndicators []string `yaml:"innovation_indicators" json:"innovation_indicators"`
	CodeMarkers          []string `yaml:"code_markers" json:"code_markers"`
}

// ContextGuard drops items mentioning Term without any of RequiresAny.
type ContextGuard struct {
	Term        string   `yaml:"term" json:"term"`
	RequiresAny []string `yaml:"requires_any" json:"requires_any"`
}

// DedupeConfig tunes near-duplicate detection.
type DedupeConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// SummarizerConfig selects and tunes the LLM provider.
type SummarizerConfig struct {
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"-"`
	BaseURL     string        `yaml:"base_url" json:"base_url,omitempty"`
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
}

// Key returns the configured API key, or the provider's environment variable.
func (s SummarizerConfig) Key() string {
	if s.APIKey != "" {
		return s.APIKey
	}
	switch s.Provider {
	case ProviderGemini:
		return os.Getenv(geminiAPIKeyEnv)
	case ProviderOpenAI:
		return os.Getenv(openAIAPIKeyEnv)
	case ProviderKimi:
		return os.Getenv(kimiAPIKeyEnv)
	}
	return ""
}

// OutputConfig describes where run artifacts land.
type OutputConfig struct {
	Dir  string `yaml:"dir" json:"dir"`
	HTML bool   `yaml:"html" json:"html"`
}

// SourceConfig describes a single provider with its scanner strategy.
type SourceConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Kind       domain.Kind       `yaml:"kind" json:"kind"`
	Scanner    string            `yaml:"scanner" json:"scanner"`
	Categories []CategoryConfig  `yaml:"categories" json:"categories,omitempty"`
	Options    map[string]string `yaml:"options" json:"options,omitempty"`
}

// CategoryConfig holds concrete listing endpoints (e.g., arXiv category URLs).
type CategoryConfig struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// DriveConfig points at the OAuth client secret and cached token.
type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	TokenFile       string `yaml:"token_file" json:"token_file"`
}

// SerpAPIConfig carries the SerpApi key for the serpapi video scanner.
type SerpAPIConfig struct {
	APIKey string `yaml:"api_key"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ScheduleConfig defines how often the schedule command re-runs.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	Timezone string        `yaml:"timezone" json:"timezone"`
}

// Location resolves the schedule timezone, falling back to UTC.
func (s ScheduleConfig) Location() *time.Location {
	tz := s.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML (or JSON) document at path, or at $RESEARCH_RADAR_CONFIG
// when path is empty, applies .env and environment overrides, and validates the
// result. Keys absent from the document keep their defaults.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &domain.ConfigurationError{Err: fmt.Errorf("read %s: %w", path, err)}
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes raw over cfg so that omitted keys retain cfg's values.
func Parse(raw []byte, cfg *Config) error {
	var doc legacyDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return &domain.ConfigurationError{Err: fmt.Errorf("parse: %w", err)}
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return &domain.ConfigurationError{Err: fmt.Errorf("parse: %w", err)}
	}
	doc.apply(cfg)
	return nil
}

// legacyDocument accepts the nested research_settings layout of older
// config.json files alongside the flat keys.
type legacyDocument struct {
	ResearchSettings *struct {
		DaysBack        *int    `yaml:"days_back"`
		TopPapers       *int    `yaml:"top_papers"`
		TopVideos       *int    `yaml:"top_videos"`
		ParallelWorkers *int    `yaml:"parallel_workers"`
		MaxVideoMinutes *int    `yaml:"max_video_length_minutes"`
		DownloadPapers  *bool   `yaml:"download_papers"`
		UploadToDrive   *bool   `yaml:"upload_to_google_drive"`
		DriveFolderID   *string `yaml:"google_drive_folder_id"`
	} `yaml:"research_settings"`
	ExcludeTerms    []string       `yaml:"exclude_terms"`
	ExclusionTerms  []string       `yaml:"exclusion_terms"`
	RankingCriteria map[string]any `yaml:"ranking_criteria"`
}

func (d legacyDocument) apply(cfg *Config) {
	if s := d.ResearchSettings; s != nil {
		setInt(&cfg.DaysBack, s.DaysBack)
		setInt(&cfg.TopPapers, s.TopPapers)
		setInt(&cfg.TopVideos, s.TopVideos)
		setInt(&cfg.ParallelWorkers, s.ParallelWorkers)
		setInt(&cfg.MaxVideoLengthMinutes, s.MaxVideoMinutes)
		if s.DownloadPapers != nil {
			cfg.DownloadPapers = *s.DownloadPapers
		}
		if s.UploadToDrive != nil {
			cfg.UploadToCloud = *s.UploadToDrive
		}
		if s.DriveFolderID != nil {
			cfg.CloudFolderID = *s.DriveFolderID
		}
	}
	if d.ExcludeTerms == nil && d.ExclusionTerms != nil {
		cfg.ExcludeTerms = d.ExclusionTerms
	}
	// Older documents kept scalar bonuses next to the keyword lists.
	for key, v := range d.RankingCriteria {
		if _, isList := v.([]any); isList {
			continue
		}
		if cfg.RankingWeights == nil {
			cfg.RankingWeights = map[string]any{}
		}
		if _, set := cfg.RankingWeights[key]; !set {
			cfg.RankingWeights[key] = v
		}
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(serpAPIKeyEnv); v != "" {
		c.SerpAPI.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// IncludeTerms returns the relevance include list: required_terms when set,
// otherwise the search terms themselves.
func (c Config) IncludeTerms() []string {
	if len(c.RequiredTerms) > 0 {
		return c.RequiredTerms
	}
	return c.SearchTerms
}

// Validate rejects values that cannot drive a run.
func (c Config) Validate() error {
	var errs []error
	positive := func(key string, v int) {
		if v <= 0 {
			errs = append(errs, &domain.ConfigurationError{Key: key, Err: fmt.Errorf("must be positive, got %d", v)})
		}
	}
	positive("days_back", c.DaysBack)
	positive("parallel_workers", c.ParallelWorkers)
	positive("max_video_length_minutes", c.MaxVideoLengthMinutes)

	if c.TopPapers < 0 {
		errs = append(errs, &domain.ConfigurationError{Key: "top_papers", Err: fmt.Errorf("must not be negative, got %d", c.TopPapers)})
	}
	if c.TopVideos < 0 {
		errs = append(errs, &domain.ConfigurationError{Key: "top_videos", Err: fmt.Errorf("must not be negative, got %d", c.TopVideos)})
	}

	if t := c.Dedupe.SimilarityThreshold; t <= 0 || t > 1 {
		errs = append(errs, &domain.ConfigurationError{Key: "dedupe.similarity_threshold", Err: fmt.Errorf("must be in (0, 1], got %v", t)})
	}

	if c.Summarizer.MinInterval < 0 {
		errs = append(errs, &domain.ConfigurationError{Key: "summarizer.min_interval", Err: errors.New("must not be negative")})
	}
	if c.EnrichTimeout < 0 {
		errs = append(errs, &domain.ConfigurationError{Key: "enrich_timeout", Err: errors.New("must not be negative")})
	}

	switch c.Summarizer.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderKimi, ProviderTemplate:
	default:
		errs = append(errs, &domain.ConfigurationError{Key: "summarizer.provider", Err: fmt.Errorf("unknown provider %q", c.Summarizer.Provider)})
	}

	if c.UploadToCloud && c.Drive.CredentialsFile == "" {
		errs = append(errs, &domain.ConfigurationError{Key: "drive.credentials_file", Err: errors.New("required when upload_to_cloud is set")})
	}

	if c.Output.Dir == "" {
		errs = append(errs, &domain.ConfigurationError{Key: "output.dir", Err: errors.New("must not be empty")})
	}

	for i, src := range c.Sources {
		key := fmt.Sprintf("sources[%d]", i)
		if strings.TrimSpace(src.Scanner) == "" {
			errs = append(errs, &domain.ConfigurationError{Key: key + ".scanner", Err: errors.New("must not be empty")})
		}
		if src.Kind != domain.KindPaper && src.Kind != domain.KindVideo {
			errs = append(errs, &domain.ConfigurationError{Key: key + ".kind", Err: fmt.Errorf("unknown kind %q", src.Kind)})
		}
	}

	for i, g := range c.ContextGuards {
		if strings.TrimSpace(g.Term) == "" {
			errs = append(errs, &domain.ConfigurationError{Key: fmt.Sprintf("context_guards[%d].term", i), Err: errors.New("must not be empty")})
		}
	}

	return errors.Join(errs...)
}

// Default returns the documented defaults for every key.
func Default() Config {
	return Config{
		DaysBack:              7,
		TopPapers:             5,
		TopVideos:             5,
		MaxVideoLengthMinutes: 30,
		ParallelWorkers:       3,
		SearchTerms: []string{
			"autonomous driving",
			"self-driving",
			"automated driving",
			"end-to-end driving",
			"BEV perception",
			"motion planning vehicle",
		},
		ExcludeTerms: []string{
			"underwater",
			"medical imaging",
			"drone delivery",
			"protein",
		},
		RankingCriteria: RankingCriteria{
			QualityIndicators:    []string{"state-of-the-art", "benchmark", "extensive experiments", "outperforms", "ablation"},
			ImpactIndicators:     []string{"real-world", "deployment", "safety", "large-scale", "dataset"},
			InnovationIndicators: []string{"novel", "first", "new paradigm", "foundation model", "end-to-end"},
			CodeMarkers:          []string{"github", "code available", "open source", "open-source", "publicly available", "repository"},
		},
		ContextGuards: []ContextGuard{
			{Term: "robot", RequiresAny: []string{"driving", "vehicle"}},
			{Term: "agent", RequiresAny: []string{"driving", "vehicle"}},
		},
		Dedupe:         DedupeConfig{SimilarityThreshold: 0.85},
		DownloadPapers: true,
		Summarizer: SummarizerConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-1.5-flash",
			MinInterval: time.Second,
			Timeout:     60 * time.Second,
			MaxTokens:   500,
		},
		Output: OutputConfig{Dir: "output"},
		Sources: []SourceConfig{
			{Name: "arxiv", Kind: domain.KindPaper, Scanner: "arxiv-api", Options: map[string]string{"max_results": "20"}},
			{Name: "youtube", Kind: domain.KindVideo, Scanner: "youtube"},
		},
		Drive: DriveConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		Schedule: ScheduleConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Overrides are command-line values that take precedence over the document.
// Nil fields leave the loaded value alone.
type Overrides struct {
	DaysBack  *int
	TopPapers *int
	TopVideos *int
	Provider  *string
	APIKey    *string
}

// Apply merges o into c and re-validates. Switching provider drops the
// configured model so the new provider's default is used.
func (c *Config) Apply(o Overrides) error {
	setInt(&c.DaysBack, o.DaysBack)
	setInt(&c.TopPapers, o.TopPapers)
	setInt(&c.TopVideos, o.TopVideos)
	if o.Provider != nil {
		provider := strings.ToLower(strings.TrimSpace(*o.Provider))
		if provider != c.Summarizer.Provider {
			c.Summarizer.Model = ""
			c.Summarizer.BaseURL = ""
		}
		c.Summarizer.Provider = provider
	}
	if o.APIKey != nil {
		c.Summarizer.APIKey = *o.APIKey
	}
	return c.Validate()
}

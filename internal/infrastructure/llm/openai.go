package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

const (
	// KimiBaseURL is Moonshot's OpenAI-compatible endpoint.
	KimiBaseURL = "https://api.moonshot.cn/v1"

	defaultOpenAIModel = openai.GPT4oMini
	defaultKimiModel   = "moonshot-v1-8k"
)

// OpenAIOptions configure an OpenAI-compatible summarizer.
type OpenAIOptions struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

// OpenAISummarizer implements ports.Summarizer for OpenAI and any
// OpenAI-compatible API such as Kimi.
type OpenAISummarizer struct {
	client    *openai.Client
	provider  string
	model     string
	maxTokens int
}

var _ ports.Summarizer = (*OpenAISummarizer)(nil)

// NewOpenAISummarizer builds a client; provider "kimi" defaults the base URL
// and model to Moonshot's.
func NewOpenAISummarizer(opts OpenAIOptions) *OpenAISummarizer {
	cfg := openai.DefaultConfig(opts.APIKey)

	provider := opts.Provider
	if provider == "" {
		provider = "openai"
	}
	model := opts.Model

	switch {
	case opts.BaseURL != "":
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	case provider == "kimi":
		cfg.BaseURL = KimiBaseURL
	}
	if model == "" {
		model = defaultOpenAIModel
		if provider == "kimi" {
			model = defaultKimiModel
		}
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &OpenAISummarizer{
		client:    openai.NewClientWithConfig(cfg),
		provider:  provider,
		model:     model,
		maxTokens: opts.MaxTokens,
	}
}

// Provider names the backend for reports.
func (s *OpenAISummarizer) Provider() string {
	return s.provider
}

// Summarize sends one chat completion request.
func (s *OpenAISummarizer) Summarize(ctx context.Context, text string, kind domain.Kind) (string, error) {
	res, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(text, kind)},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", &domain.SummarizationError{Provider: s.provider, Err: err}
	}
	if len(res.Choices) == 0 {
		return "", &domain.SummarizationError{Provider: s.provider, Err: errors.New("no choices found")}
	}

	summary := strings.TrimSpace(res.Choices[0].Message.Content)
	if summary == "" {
		return "", &domain.SummarizationError{Provider: s.provider, Err: errors.New("empty completion")}
	}
	return summary, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/ports"
)

const defaultGeminiModel = "gemini-1.5-flash"

// contentGenerator is the slice of *genai.GenerativeModel the summarizer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configure the Gemini summarizer.
type GeminiOptions struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// GeminiSummarizer implements ports.Summarizer on Google's Gemini API.
type GeminiSummarizer struct {
	client *genai.Client
	model  contentGenerator
}

var _ ports.Summarizer = (*GeminiSummarizer)(nil)

// NewGeminiSummarizer opens a client. Call Close when done.
func NewGeminiSummarizer(ctx context.Context, opts GeminiOptions) (*GeminiSummarizer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	name := opts.Model
	if name == "" {
		name = defaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	model.SetTemperature(0.3)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	return &GeminiSummarizer{client: client, model: model}, nil
}

// Provider names the backend for reports.
func (g *GeminiSummarizer) Provider() string {
	return "gemini"
}

// Summarize generates content from a single text part.
func (g *GeminiSummarizer) Summarize(ctx context.Context, text string, kind domain.Kind) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(BuildPrompt(text, kind)))
	if err != nil {
		return "", &domain.SummarizationError{Provider: "gemini", Err: err}
	}

	summary := strings.TrimSpace(responseText(resp))
	if summary == "" {
		return "", &domain.SummarizationError{Provider: "gemini", Err: errors.New("empty response")}
	}
	return summary, nil
}

// Close releases the underlying client.
func (g *GeminiSummarizer) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

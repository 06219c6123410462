package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchRadar/internal/config"
	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/logging"
)

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  Title: BEV\nAbstract: stuff  ", domain.KindPaper)
	assert.Contains(t, p, "research paper")
	assert.Contains(t, p, "Title: BEV\nAbstract: stuff\n")
	assert.Contains(t, p, "5. Limitations or future work")

	v := BuildPrompt("clip", domain.KindVideo)
	assert.Contains(t, v, "video")
	assert.NotContains(t, v, "Limitations")
}

func TestOpenAISummarizer(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  A crisp summary. "},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	s := NewOpenAISummarizer(OpenAIOptions{Provider: "kimi", APIKey: "sk-test", BaseURL: server.URL + "/", MaxTokens: 100})

	out, err := s.Summarize(context.Background(), "Title: BEV", domain.KindPaper)
	require.NoError(t, err)
	assert.Equal(t, "A crisp summary.", out)
	assert.Equal(t, defaultKimiModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Title: BEV")
	assert.Equal(t, "kimi", s.Provider())
}

func TestOpenAISummarizerErrorIsSummarizationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	s := NewOpenAISummarizer(OpenAIOptions{APIKey: "k", BaseURL: server.URL})
	_, err := s.Summarize(context.Background(), "x", domain.KindPaper)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSummarization))
	var se *domain.SummarizationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "openai", se.Provider)
}

func TestOpenAISummarizerEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	s := NewOpenAISummarizer(OpenAIOptions{APIKey: "k", BaseURL: server.URL})
	_, err := s.Summarize(context.Background(), "x", domain.KindVideo)
	assert.ErrorIs(t, err, domain.ErrSummarization)
}

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
	got  []genai.Part
}

func (f *fakeGenerator) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.got = parts
	return f.resp, f.err
}

func TestGeminiSummarizer(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Gemini "), genai.Text("summary")}},
		}},
	}}
	g := &GeminiSummarizer{model: gen}

	out, err := g.Summarize(context.Background(), "Title: Occupancy", domain.KindPaper)
	require.NoError(t, err)
	assert.Equal(t, "Gemini summary", out)
	require.Len(t, gen.got, 1)
	assert.Contains(t, string(gen.got[0].(genai.Text)), "Title: Occupancy")
	assert.NoError(t, g.Close())
}

func TestGeminiSummarizerFailures(t *testing.T) {
	g := &GeminiSummarizer{model: &fakeGenerator{err: errors.New("quota")}}
	_, err := g.Summarize(context.Background(), "x", domain.KindPaper)
	assert.ErrorIs(t, err, domain.ErrSummarization)

	g = &GeminiSummarizer{model: &fakeGenerator{resp: &genai.GenerateContentResponse{}}}
	_, err = g.Summarize(context.Background(), "x", domain.KindPaper)
	assert.ErrorIs(t, err, domain.ErrSummarization)

	_, err = NewGeminiSummarizer(context.Background(), GeminiOptions{})
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	assert.Equal(t, "Paper summary unavailable: no description was provided.", Fallback("  ", domain.KindPaper))

	short := Fallback("Title: BEV\n\nAbstract: we   do things", domain.KindVideo)
	assert.Equal(t, "Video overview (automatic summary unavailable): Title: BEV Abstract: we do things", short)

	long := Fallback(strings.Repeat("word ", 200), domain.KindPaper)
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Less(t, len(long), 500)

	out, err := TemplateSummarizer{}.Summarize(context.Background(), "x", domain.KindPaper)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()

	s, closeFn, err := New(ctx, config.SummarizerConfig{Provider: config.ProviderTemplate}, log)
	require.NoError(t, err)
	assert.Equal(t, ProviderTemplate, s.Provider())
	assert.NoError(t, closeFn())

	t.Setenv("OPENAI_API_KEY", "")
	s, _, err = New(ctx, config.SummarizerConfig{Provider: config.ProviderOpenAI}, log)
	require.NoError(t, err)
	assert.Equal(t, ProviderTemplate, s.Provider(), "missing key degrades to template")

	s, _, err = New(ctx, config.SummarizerConfig{Provider: config.ProviderKimi, APIKey: "k"}, log)
	require.NoError(t, err)
	assert.Equal(t, "kimi", s.Provider())

	_, _, err = New(ctx, config.SummarizerConfig{Provider: "bard", APIKey: "k"}, log)
	assert.Error(t, err)
}

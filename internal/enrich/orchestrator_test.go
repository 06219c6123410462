package enrich

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchRadar/internal/domain"
	"ResearchRadar/internal/logging"
)

type fakeSummarizer struct {
	mu    sync.Mutex
	calls []time.Time
	fn    func(ctx context.Context, text string) (string, error)
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, _ domain.Kind) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.mu.Unlock()
	return f.fn(ctx, text)
}

type templateFake struct{}

func (templateFake) Summarize(_ context.Context, text string, _ domain.Kind) (string, error) {
	return "TEMPLATE " + strings.SplitN(text, "\n", 2)[0], nil
}

type fakeDownloader struct {
	failID string
	calls  sync.Map
}

func (f *fakeDownloader) Download(_ context.Context, item domain.CandidateItem, dir string) (string, error) {
	f.calls.Store(item.ID, true)
	if item.ID == f.failID {
		return "", &domain.DownloadError{URL: item.ArtifactURL, Err: errors.New("404")}
	}
	return dir + "/" + item.ID + ".pdf", nil
}

func items(n int) []domain.CandidateItem {
	out := make([]domain.CandidateItem, n)
	for i := range out {
		out[i] = domain.CandidateItem{
			ID:    fmt.Sprintf("p%d", i+1),
			Kind:  domain.KindPaper,
			Title: fmt.Sprintf("Paper %d", i+1),
			Rank:  i + 1,
		}
	}
	return out
}

func TestEnrichOneFailureOfFive(t *testing.T) {
	sum := &fakeSummarizer{fn: func(_ context.Context, text string) (string, error) {
		if strings.Contains(text, "Paper 3") {
			return "", &domain.SummarizationError{Provider: "gemini", Err: errors.New("quota exceeded")}
		}
		return "LLM " + strings.SplitN(text, "\n", 2)[0], nil
	}}
	o := New(sum, templateFake{}, nil, Options{Workers: 3, Provider: "gemini"}, logging.Discard())

	in := items(5)
	out := o.Enrich(context.Background(), in, "")

	require.Len(t, out, 5)
	for i, it := range out {
		assert.Equal(t, in[i].ID, it.ID, "order preserved")
		assert.NotEmpty(t, it.Summary)
	}

	failed := out[2]
	assert.True(t, failed.Degraded())
	assert.Equal(t, SourceTemplate, failed.SummarySource)
	assert.Equal(t, "TEMPLATE Title: Paper 3", failed.Summary)
	assert.Contains(t, failed.Degradations[0], "quota exceeded")

	for _, i := range []int{0, 1, 3, 4} {
		assert.False(t, out[i].Degraded(), out[i].ID)
		assert.Equal(t, "gemini", out[i].SummarySource)
		assert.True(t, strings.HasPrefix(out[i].Summary, "LLM "))
	}

	assert.Empty(t, in[2].Summary, "input slice is untouched")
}

func TestEnrichWrapsForeignErrors(t *testing.T) {
	sum := &fakeSummarizer{fn: func(context.Context, string) (string, error) { return "", errors.New("boom") }}
	o := New(sum, nil, nil, Options{Provider: "openai"}, logging.Discard())

	out := o.Enrich(context.Background(), items(1), "")
	require.Len(t, out, 1)
	assert.Equal(t, `Summary unavailable for "Paper 1".`, out[0].Summary)
	assert.Contains(t, out[0].Degradations[0], "summarize via openai: boom")

	empty := &fakeSummarizer{fn: func(context.Context, string) (string, error) { return "  ", nil }}
	out = New(empty, nil, nil, Options{}, logging.Discard()).Enrich(context.Background(), items(1), "")
	assert.True(t, out[0].Degraded())
}

func TestEnrichRateLimitSpacing(t *testing.T) {
	const interval = 40 * time.Millisecond
	sum := &fakeSummarizer{fn: func(context.Context, string) (string, error) { return "ok", nil }}
	o := New(sum, nil, nil, Options{Workers: 3, MinInterval: interval}, logging.Discard())

	out := o.Enrich(context.Background(), items(4), "")
	require.Len(t, out, 4)

	sum.mu.Lock()
	calls := slices.Clone(sum.calls)
	sum.mu.Unlock()
	require.Len(t, calls, 4)

	slices.SortFunc(calls, func(a, b time.Time) int { return a.Compare(b) })
	assert.GreaterOrEqual(t, calls[3].Sub(calls[0]), 2*interval)
	for i := 1; i < len(calls); i++ {
		gap := calls[i].Sub(calls[i-1])
		assert.GreaterOrEqual(t, gap, interval/2, "gap %d was %s", i, gap)
	}
}

func TestEnrichTimeoutKeepsFinishedResults(t *testing.T) {
	sum := &fakeSummarizer{fn: func(ctx context.Context, text string) (string, error) {
		if strings.Contains(text, "Paper 1") {
			return "fast", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o := New(sum, templateFake{}, nil, Options{Workers: 1, Timeout: 50 * time.Millisecond}, logging.Discard())

	start := time.Now()
	out := o.Enrich(context.Background(), items(4), "")

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, out, 4)
	assert.Equal(t, "fast", out[0].Summary)
	assert.False(t, out[0].Degraded())
	for _, it := range out[1:] {
		assert.True(t, it.Degraded(), it.ID)
		assert.Equal(t, SourceTemplate, it.SummarySource)
		assert.NotEmpty(t, it.Summary)
	}
}

func TestEnrichDownloads(t *testing.T) {
	sum := &fakeSummarizer{fn: func(context.Context, string) (string, error) { return "ok", nil }}
	dl := &fakeDownloader{failID: "p2"}

	in := items(3)
	in[0].ArtifactURL = "https://arxiv.org/pdf/1"
	in[1].ArtifactURL = "https://arxiv.org/pdf/2"

	out := New(sum, nil, dl, Options{Download: true}, logging.Discard()).Enrich(context.Background(), in, "papers")

	assert.Equal(t, "papers/p1.pdf", out[0].LocalPath)
	assert.False(t, out[0].Degraded())

	assert.Empty(t, out[1].LocalPath)
	require.Len(t, out[1].Degradations, 1)
	assert.Contains(t, out[1].Degradations[0], "download")
	assert.Equal(t, "ok", out[1].Summary, "download failure keeps the summary")

	_, called := dl.calls.Load("p3")
	assert.False(t, called, "items without artifact are not downloaded")

	dl2 := &fakeDownloader{}
	New(sum, nil, dl2, Options{Download: false}, logging.Discard()).Enrich(context.Background(), in, "papers")
	_, called = dl2.calls.Load("p1")
	assert.False(t, called)
}

func TestEnrichEmptyAndLengthInvariant(t *testing.T) {
	sum := &fakeSummarizer{fn: func(context.Context, string) (string, error) { return "ok", nil }}
	o := New(sum, nil, nil, Options{Workers: 8}, logging.Discard())

	assert.Empty(t, o.Enrich(context.Background(), nil, ""))
	for _, n := range []int{1, 2, 7, 20} {
		assert.Len(t, o.Enrich(context.Background(), items(n), ""), n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := o.Enrich(ctx, items(5), "")
	require.Len(t, out, 5)
	for _, it := range out {
		assert.NotEmpty(t, it.Summary)
	}
}

func TestInput(t *testing.T) {
	paper := domain.CandidateItem{
		Kind: domain.KindPaper, Title: "BEV", Description: "abstract",
		Authors: []string{"a", "b", "c", "d", "e", "f"},
	}
	assert.Equal(t, "Title: BEV\nAuthors: a, b, c, d, e\nAbstract: abstract", Input(paper))

	video := domain.CandidateItem{Kind: domain.KindVideo, Title: "Talk", Channel: "Lab", Description: "desc"}
	assert.Equal(t, "Title: Talk\nChannel: Lab\nDescription: desc", Input(video))
}

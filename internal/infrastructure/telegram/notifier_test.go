package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDigest(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		_ = r.ParseForm()
		assert.Equal(t, "42", r.Form.Get("chat_id"))
		mu.Lock()
		texts = append(texts, r.Form.Get("text"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42")
	n.baseURL = server.URL
	n.client = server.Client()

	require.NoError(t, n.PublishDigest(context.Background(), "Top papers\n1. BEV"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Top papers\n1. BEV"}, texts)
}

func TestPublishDigestErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42")
	n.baseURL = server.URL
	n.client = server.Client()
	assert.ErrorContains(t, n.PublishDigest(context.Background(), "x"), "chat not found")

	assert.Error(t, NewNotifier("", "42").PublishDigest(context.Background(), "x"))
	assert.False(t, NewNotifier("TOKEN", "").Enabled())
	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"short"}, split("short", 10))

	text := strings.Repeat("line of text\n", 10)
	parts := split(text, 40)
	assert.Equal(t, text, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 40)
		assert.True(t, strings.HasSuffix(p, "\n"))
	}

	noBreaks := strings.Repeat("x", 25)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, split(noBreaks, 10))
}

package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResearchRadar/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, Request) ([]domain.RawRecord, error) {
	return []domain.RawRecord{domain.RawPaper{ID: s.name}}, nil
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(stubScanner{name: "b"}, stubScanner{name: "a"})

	got, err := reg.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name())

	_, err = reg.Resolve("missing")
	assert.ErrorContains(t, err, "missing")

	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestRegistryZeroValue(t *testing.T) {
	var reg Registry
	reg.Register(stubScanner{name: "x"})

	_, err := reg.Resolve("x")
	assert.NoError(t, err)
}

func TestRequestOption(t *testing.T) {
	req := Request{Options: map[string]string{"max_results": "50", "empty": ""}}

	assert.Equal(t, "50", req.Option("max_results", "20"))
	assert.Equal(t, "20", req.Option("empty", "20"))
	assert.Equal(t, "x", req.Option("absent", "x"))
	assert.Equal(t, "x", Request{}.Option("absent", "x"))
}

package tutorial

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSynth is a minimal ContentSynthesizer for extraction tests. fn receives
// the prompt and decides the response per call.
type stubSynth struct {
	fn func(prompt string) (string, error)
}

func (s *stubSynth) Complete(_ context.Context, prompt string) (string, error) {
	return s.fn(prompt)
}

func testExtractorConfig() ExtractorConfig {
	cfg := DefaultExtractorConfig()
	cfg.Backoff = time.Millisecond
	return cfg
}

func TestStaticCandidatesGroupsByDirectory(t *testing.T) {
	files := []SourceFile{
		{Path: "main.go", Symbols: []string{"App"}},
		{Path: "internal/store/db.go", Symbols: []string{"Store"}},
		{Path: "internal/store/query.go", Symbols: []string{"Query"}},
		{Path: "internal/api/server.go", Symbols: []string{"Server"}},
	}

	cands := staticCandidates(files)
	require.Len(t, cands, 3)

	// Sorted by group name.
	assert.Equal(t, "internal/api", cands[0].name)
	assert.Equal(t, "internal/store", cands[1].name)
	assert.Equal(t, "root", cands[2].name)

	assert.Len(t, cands[1].files, 2)
	assert.Equal(t, []string{"Store", "Query"}, cands[1].symbols)
}

func TestExtractParsesSynthesizerResponse(t *testing.T) {
	files := []SourceFile{
		{Path: "store/db.go", Language: "go", Content: []byte("package store"), Symbols: []string{"Store"}},
	}
	synth := &stubSynth{fn: func(string) (string, error) {
		return "Name: Storage Layer\nSummary: Persists application data.\nCategory: Data Layer", nil
	}}

	abstractions, err := Extract(context.Background(), files, synth, testExtractorConfig())
	require.NoError(t, err)
	require.Len(t, abstractions, 1)

	abs := abstractions[0]
	assert.Equal(t, "storage-layer", abs.ID)
	assert.Equal(t, "Storage Layer", abs.Name)
	assert.Equal(t, "Persists application data.", abs.Summary)
	assert.Equal(t, "Data Layer", abs.Category)
	assert.Equal(t, []string{"store/db.go"}, abs.Files)
}

func TestExtractFallsBackOnMalformedResponse(t *testing.T) {
	files := []SourceFile{{Path: "util/strings.go", Content: []byte("package util")}}
	synth := &stubSynth{fn: func(string) (string, error) {
		return "I cannot comply with that format.", nil
	}}

	abstractions, err := Extract(context.Background(), files, synth, testExtractorConfig())
	require.NoError(t, err)
	require.Len(t, abstractions, 1)

	// Static candidate name and default category survive.
	assert.Equal(t, "util", abstractions[0].Name)
	assert.Equal(t, "util", abstractions[0].ID)
	assert.Equal(t, "Utilities", abstractions[0].Category)
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	files := []SourceFile{{Path: "api/server.go", Content: []byte("package api")}}

	calls := 0
	synth := &stubSynth{fn: func(string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "Name: API Server\nSummary: Serves requests.\nCategory: Transport", nil
	}}

	abstractions, err := Extract(context.Background(), files, synth, testExtractorConfig())
	require.NoError(t, err)
	require.Len(t, abstractions, 1)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "api-server", abstractions[0].ID)
}

func TestExtractExhaustedRetriesIsExtractionError(t *testing.T) {
	files := []SourceFile{{Path: "api/server.go", Content: []byte("package api")}}
	synth := &stubSynth{fn: func(string) (string, error) {
		return "", errors.New("provider down")
	}}

	_, err := Extract(context.Background(), files, synth, testExtractorConfig())
	require.Error(t, err)

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "api", extErr.Candidate)
	assert.Equal(t, 3, extErr.Attempts)
	assert.Equal(t, CodeExtraction, ErrorCode(err))
}

func TestExtractDedupesNearDuplicateNames(t *testing.T) {
	files := []SourceFile{
		{Path: "cache/lru.go", Content: []byte("package cache")},
		{Path: "caching/ttl.go", Content: []byte("package caching")},
	}
	synth := &stubSynth{fn: func(prompt string) (string, error) {
		// Both groups report names that normalize to the same key.
		if strings.Contains(prompt, "cache/lru.go") {
			return "Name: Cache Layer\nSummary: LRU cache.\nCategory: Data Layer", nil
		}
		return "Name: cache-layer\nSummary: TTL cache.\nCategory: Data Layer", nil
	}}

	abstractions, err := Extract(context.Background(), files, synth, testExtractorConfig())
	require.NoError(t, err)
	require.Len(t, abstractions, 1)

	// First-discovered entry wins; file sets merge.
	assert.Equal(t, "Cache Layer", abstractions[0].Name)
	assert.ElementsMatch(t, []string{"cache/lru.go", "caching/ttl.go"}, abstractions[0].Files)
}

func TestExtractEmptyInput(t *testing.T) {
	abstractions, err := Extract(context.Background(), nil, &stubSynth{fn: func(string) (string, error) {
		t.Fatal("synthesizer must not be called for empty input")
		return "", nil
	}}, testExtractorConfig())
	require.NoError(t, err)
	assert.Empty(t, abstractions)
}

func TestBuildConceptPromptCapsSource(t *testing.T) {
	cand := candidate{
		name: "big",
		files: []SourceFile{
			{Path: "big/a.go", Content: make([]byte, 1000)},
			{Path: "big/b.go", Content: make([]byte, 1000)},
		},
	}
	prompt, err := buildConceptPrompt(cand, 100)
	require.NoError(t, err)
	// Both file headers cannot fit: only the first file contributes source.
	assert.Contains(t, prompt, "--- big/a.go ---")
	assert.NotContains(t, prompt, "--- big/b.go ---")
}

package tutorial

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitWritesAllDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	docs := []Document{
		{Path: "index.md", Content: "# Index\n"},
		{Path: "chapter_01.md", Content: "# Chapter 1\n"},
		{Path: "code_examples.md", Content: "# Examples\n"},
	}

	require.NoError(t, Emit(docs, dir))

	for _, doc := range docs {
		content, err := os.ReadFile(filepath.Join(dir, doc.Path))
		require.NoError(t, err)
		assert.Equal(t, doc.Content, string(content))
	}
}

func TestEmitSetsFileMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Emit([]Document{{Path: "index.md", Content: "x"}}, dir))

	info, err := os.Stat(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestEmitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	docs := []Document{{Path: "index.md", Content: "# Same\n"}}

	require.NoError(t, Emit(docs, dir))
	first, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)

	require.NoError(t, Emit(docs, dir))
	second, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEmitLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Emit([]Document{{Path: "index.md", Content: "x"}}, dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.md", entries[0].Name())
}

func TestEmitFailureIsEmitError(t *testing.T) {
	// Emitting into a path whose parent is a regular file cannot succeed.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	err := Emit([]Document{{Path: "index.md", Content: "x"}}, filepath.Join(blocker, "out"))
	require.Error(t, err)

	var emitErr *EmitError
	assert.True(t, errors.As(err, &emitErr))
	assert.Equal(t, CodeEmit, ErrorCode(err))
}

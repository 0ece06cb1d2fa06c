package tutorial

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/codetutor/internal/parser"
)

func writeTestFile(t *testing.T, root, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func TestScanDiscoversAndParsesFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", []byte("package main\n\nimport \"fmt\"\n\nfunc Hello() {\n\tfmt.Println(\"hi\")\n}\n"))
	writeTestFile(t, root, "lib/util.py", []byte("def add(a, b):\n    return a + b\n"))
	writeTestFile(t, root, "README.md", []byte("# readme\n"))

	s, err := NewScanner(ScannerConfig{}, parser.NewParser())
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Sorted by path.
	assert.Equal(t, "README.md", files[0].Path)
	assert.Equal(t, "lib/util.py", files[1].Path)
	assert.Equal(t, "main.go", files[2].Path)

	assert.Equal(t, "unknown", files[0].Language)
	assert.Equal(t, "python", files[1].Language)
	assert.Equal(t, "go", files[2].Language)

	require.NotEmpty(t, files[2].Functions)
	assert.Equal(t, "Hello", files[2].Functions[0].Name)
	assert.NotEmpty(t, files[2].Imports)
}

func TestScanSkipsVendorAndBinaries(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "main.go", []byte("package main\n"))
	writeTestFile(t, root, "vendor/dep/dep.go", []byte("package dep\n"))
	writeTestFile(t, root, "node_modules/pkg/index.js", []byte("module.exports = {}\n"))
	writeTestFile(t, root, "app.bin", append([]byte("ELF"), 0x00, 0x01, 0x02))

	s, err := NewScanner(ScannerConfig{}, parser.NewParser())
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestScanRespectsSizeCap(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "small.go", []byte("package small\n"))
	writeTestFile(t, root, "big.go", bytes.Repeat([]byte("// padding\n"), 200))

	s, err := NewScanner(ScannerConfig{MaxFileSize: 100}, parser.NewParser())
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "small.go", files[0].Path)
}

func TestScanIncludeExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", []byte("package a\n"))
	writeTestFile(t, root, "sub/b.go", []byte("package b\n"))
	writeTestFile(t, root, "sub/b_test.go", []byte("package b\n"))
	writeTestFile(t, root, "notes.txt", []byte("notes\n"))

	s, err := NewScanner(ScannerConfig{
		Include: []string{"**.go"},
		Exclude: []string{"**_test.go"},
	}, parser.NewParser())
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].Path)
	assert.Equal(t, "sub/b.go", files[1].Path)
}

func TestScanMissingRootIsScanError(t *testing.T) {
	s, err := NewScanner(ScannerConfig{}, parser.NewParser())
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)

	var scanErr *ScanError
	assert.True(t, errors.As(err, &scanErr))
	assert.Equal(t, CodeScan, ErrorCode(err))
}

func TestScanRootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.go")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))

	s, err := NewScanner(ScannerConfig{}, parser.NewParser())
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), file)
	var scanErr *ScanError
	assert.True(t, errors.As(err, &scanErr))
}

func TestNewScannerRejectsBadGlob(t *testing.T) {
	_, err := NewScanner(ScannerConfig{Include: []string{"[unclosed"}}, parser.NewParser())
	require.Error(t, err)
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text content")))
	assert.True(t, isBinary([]byte{0x7f, 'E', 'L', 'F', 0x00}))

	// NUL past the 8000-byte probe window is not considered binary.
	data := append(bytes.Repeat([]byte{'a'}, 8001), 0x00)
	assert.False(t, isBinary(data))
}

package tutorial

import (
	"bufio"
	"bytes"
	"context"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/julianshen/codetutor/internal/parser"
)

// langExtensions maps file extensions to language names.
var langExtensions = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".jsx":  "javascript",
	".java": "java",
	".rs":   "rust",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
}

// skipDirs contains directory names that are always excluded from scanning.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	"build":        true,
	"dist":         true,
	"__pycache__":  true,
}

// ScannerConfig controls file discovery.
type ScannerConfig struct {
	Include     []string // glob patterns; empty means include everything
	Exclude     []string // glob patterns; matched files are dropped
	MaxFileSize int64    // files larger than this are skipped
}

// DefaultScannerConfig returns sensible scanner defaults.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		MaxFileSize: 512 * 1024,
	}
}

// Scanner discovers and reads source files under a root directory.
type Scanner struct {
	cfg     ScannerConfig
	include []glob.Glob
	exclude []glob.Glob
	parser  *parser.Parser
}

// NewScanner compiles the include/exclude patterns and returns a Scanner.
func NewScanner(cfg ScannerConfig, p *parser.Parser) (*Scanner, error) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultScannerConfig().MaxFileSize
	}
	s := &Scanner{cfg: cfg, parser: p}
	for _, pattern := range cfg.Include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, &ScanError{Root: pattern, Err: err}
		}
		s.include = append(s.include, g)
	}
	for _, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, &ScanError{Root: pattern, Err: err}
		}
		s.exclude = append(s.exclude, g)
	}
	return s, nil
}

// Scan discovers source files under root and extracts functions, imports,
// and exported symbols. The result is sorted by path and deduplicated.
// An inaccessible root is a fatal ScanError; unreadable individual files
// are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, root string) ([]SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Root: root, Err: fs.ErrInvalid}
	}

	relPaths, err := listFiles(ctx, root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}
	sort.Strings(relPaths)

	seen := make(map[string]bool, len(relPaths))
	var files []SourceFile
	for _, rel := range relPaths {
		if seen[rel] || s.skip(rel) {
			continue
		}
		seen[rel] = true

		absPath := filepath.Join(root, rel)
		fi, err := os.Stat(absPath)
		if err != nil || fi.IsDir() {
			continue
		}
		if fi.Size() > s.cfg.MaxFileSize {
			log.Printf("WARNING: skipping %s: exceeds size cap (%d bytes)", rel, fi.Size())
			continue
		}

		content, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("WARNING: skipping unreadable file %s: %v", rel, err)
			continue
		}
		if isBinary(content) {
			continue
		}

		sf := SourceFile{
			Path:    rel,
			Content: content,
			Size:    fi.Size(),
		}

		lang, supported := langExtensions[filepath.Ext(rel)]
		if supported {
			sf.Language = lang
			sf.Functions, sf.Imports, sf.Symbols = parseFile(s.parser, rel, content)
		} else {
			sf.Language = "unknown"
		}

		files = append(files, sf)
	}

	return files, nil
}

// skip reports whether a relative path is excluded by directory rules or
// glob patterns.
func (s *Scanner) skip(relPath string) bool {
	slashed := filepath.ToSlash(relPath)
	for _, part := range strings.Split(slashed, "/") {
		if skipDirs[part] {
			return true
		}
	}
	for _, g := range s.exclude {
		if g.Match(slashed) {
			return true
		}
	}
	if len(s.include) == 0 {
		return false
	}
	for _, g := range s.include {
		if g.Match(slashed) {
			return false
		}
	}
	return true
}

// listFiles returns relative file paths under root. It tries git ls-files
// first; if root is not a git repo it falls back to filepath.WalkDir.
func listFiles(ctx context.Context, root string) ([]string, error) {
	paths, err := gitLsFiles(ctx, root)
	if err == nil {
		return paths, nil
	}
	return walkFiles(root)
}

// gitLsFiles runs "git ls-files" in root and returns the output lines.
func gitLsFiles(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, scanner.Err()
}

// walkFiles uses filepath.WalkDir to list all files under root, skipping
// directories in the skipDirs set.
func walkFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("WARNING: scanner skipping path %q: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	return paths, err
}

// isBinary reports whether content looks like a binary file. A NUL byte in
// the first 8000 bytes is the same heuristic git uses.
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}

// parseFile parses a single file and returns its functions, imports, and
// exported symbols. The tree is closed before returning, avoiding
// use-after-free when called in a loop.
func parseFile(p *parser.Parser, filename string, source []byte) ([]parser.FunctionDef, []string, []string) {
	if p == nil {
		return nil, nil, nil
	}
	tree, err := p.Parse(filename, source)
	if err != nil {
		return nil, nil, nil
	}
	defer tree.Close()
	return tree.Functions(), tree.Imports(), tree.Symbols()
}

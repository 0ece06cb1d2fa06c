package tutorial

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"
)

// ContentSynthesizer abstracts the generative backend for testability.
// Implementations are expected to be deterministic (temperature 0) or to
// flag their output as non-reproducible.
type ContentSynthesizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ExtractorConfig controls concept extraction.
type ExtractorConfig struct {
	Concurrency int           // max concurrent synthesizer calls
	MaxRetries  int           // retries per candidate before failing the job
	Backoff     time.Duration // base backoff between retries, doubled each attempt
	MaxSource   int           // max bytes of source included per candidate prompt
}

// DefaultExtractorConfig returns sensible extraction defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Concurrency: 5,
		MaxRetries:  2,
		Backoff:     500 * time.Millisecond,
		MaxSource:   60_000,
	}
}

var conceptTmpl = template.Must(template.New("concept").Parse(
	`You are documenting a codebase. The component below groups related source files.

Component: {{.Name}}
Files:
{{range .Files}}- {{.Path}} [{{.Language}}]
{{end}}
Exported symbols: {{.Symbols}}

Source excerpts:
{{.Source}}

Respond in exactly this format:
Name: <short display name for this component>
Summary: <one-line responsibility summary>
Category: <one of: Business Logic, Data Layer, Transport, Utilities, Configuration, Presentation>`))

// candidate is a statically derived abstraction candidate: one directory
// grouping of scanned files plus their exported symbols.
type candidate struct {
	name    string
	files   []SourceFile
	symbols []string
}

// Extract derives abstractions from scanned files using static grouping
// followed by generative summarization. Every returned abstraction maps to
// at least one source file. Synthesizer failures are retried with backoff;
// exhausting retries fails extraction with an ExtractionError.
func Extract(ctx context.Context, files []SourceFile, synth ContentSynthesizer, cfg ExtractorConfig) ([]Abstraction, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultExtractorConfig().Concurrency
	}
	if cfg.MaxSource <= 0 {
		cfg.MaxSource = DefaultExtractorConfig().MaxSource
	}

	candidates := staticCandidates(files)
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]Abstraction, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, cand := range candidates {
		i, cand := i, cand
		g.Go(func() error {
			abs, err := extractOne(ctx, cand, synth, cfg)
			if err != nil {
				return err
			}
			results[i] = abs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupe(results), nil
}

// staticCandidates groups files by their directory and collects exported
// symbols per group. Groups are returned in sorted name order for
// determinism.
func staticCandidates(files []SourceFile) []candidate {
	groups := map[string]*candidate{}
	for _, f := range files {
		name := moduleFromPath(f.Path)
		c, ok := groups[name]
		if !ok {
			c = &candidate{name: name}
			groups[name] = c
		}
		c.files = append(c.files, f)
		c.symbols = append(c.symbols, f.Symbols...)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]candidate, 0, len(names))
	for _, name := range names {
		out = append(out, *groups[name])
	}
	return out
}

// moduleFromPath infers a component grouping from the file's directory.
// Files at the root return "root".
func moduleFromPath(relPath string) string {
	dir := filepath.Dir(relPath)
	if dir == "." {
		return "root"
	}
	return filepath.ToSlash(dir)
}

// extractOne runs the generative summarization for a single candidate,
// retrying with doubling backoff.
func extractOne(ctx context.Context, cand candidate, synth ContentSynthesizer, cfg ExtractorConfig) (Abstraction, error) {
	prompt, err := buildConceptPrompt(cand, cfg.MaxSource)
	if err != nil {
		return Abstraction{}, fmt.Errorf("rendering concept prompt: %w", err)
	}

	var response string
	var lastErr error
	attempts := cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := cfg.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return Abstraction{}, ctx.Err()
			case <-time.After(wait):
			}
		}
		response, lastErr = synth.Complete(ctx, prompt)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return Abstraction{}, &ExtractionError{Candidate: cand.name, Attempts: attempts, Err: lastErr}
	}

	abs := parseConceptResponse(cand, response)
	for _, f := range cand.files {
		abs.Files = append(abs.Files, f.Path)
	}
	return abs, nil
}

// buildConceptPrompt renders the extraction prompt, capping included source.
func buildConceptPrompt(cand candidate, maxSource int) (string, error) {
	var source bytes.Buffer
	for _, f := range cand.files {
		if source.Len() >= maxSource {
			break
		}
		fmt.Fprintf(&source, "--- %s ---\n", f.Path)
		remaining := maxSource - source.Len()
		content := f.Content
		if len(content) > remaining {
			content = content[:remaining]
		}
		source.Write(content)
		source.WriteByte('\n')
	}

	var buf bytes.Buffer
	err := conceptTmpl.Execute(&buf, struct {
		Name    string
		Files   []SourceFile
		Symbols string
		Source  string
	}{
		Name:    cand.name,
		Files:   cand.files,
		Symbols: strings.Join(cand.symbols, ", "),
		Source:  source.String(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseConceptResponse parses the synthesizer response into an Abstraction,
// falling back to static values when a field is missing.
func parseConceptResponse(cand candidate, response string) Abstraction {
	abs := Abstraction{Name: cand.name, Category: "Utilities"}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Name:"):
			if v := strings.TrimSpace(strings.TrimPrefix(line, "Name:")); v != "" {
				abs.Name = v
			}
		case strings.HasPrefix(line, "Summary:"):
			abs.Summary = strings.TrimSpace(strings.TrimPrefix(line, "Summary:"))
		case strings.HasPrefix(line, "Category:"):
			if v := strings.TrimSpace(strings.TrimPrefix(line, "Category:")); v != "" {
				abs.Category = v
			}
		}
	}

	abs.ID = Slugify(abs.Name)
	if abs.ID == "" {
		abs.ID = Slugify(cand.name)
	}
	return abs
}

// dedupe merges abstractions whose normalized names collide. The
// first-discovered entry wins; file sets are merged.
func dedupe(abstractions []Abstraction) []Abstraction {
	seen := map[string]int{} // normalized name -> index in out
	var out []Abstraction

	for _, abs := range abstractions {
		key := normalizeName(abs.Name)
		if idx, ok := seen[key]; ok {
			out[idx].Files = mergePaths(out[idx].Files, abs.Files)
			continue
		}
		seen[key] = len(out)
		out = append(out, abs)
	}
	return out
}

// normalizeName lowercases and strips non-alphanumerics for near-duplicate
// detection.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mergePaths appends paths from b not already present in a.
func mergePaths(a, b []string) []string {
	have := make(map[string]bool, len(a))
	for _, p := range a {
		have[p] = true
	}
	for _, p := range b {
		if !have[p] {
			a = append(a, p)
		}
	}
	return a
}

package tutorial

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/julianshen/codetutor/internal/parser"
)

// GeneratorConfig controls chapter content generation.
type GeneratorConfig struct {
	Concurrency int           // max concurrent chapter generations
	MaxRetries  int           // drafting retries per chapter
	Backoff     time.Duration // base backoff between retries, doubled each attempt
	Strict      bool          // fail the job instead of emitting placeholder chapters
	MaxExamples int           // code examples cited per chapter
}

// DefaultGeneratorConfig returns sensible generation defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Concurrency: 4,
		MaxRetries:  2,
		Backoff:     time.Second,
		MaxExamples: 2,
	}
}

var chapterTmpl = template.Must(template.New("chapter").Parse(
	`Write a tutorial chapter about the component "{{.Name}}" ({{.Summary}}) in category {{.Category}}.

Its source files:
{{range .Files}}- {{.}}
{{end}}
Related components (reference them inline as [[id]] placeholders where helpful):
{{range .Related}}- [[{{.ID}}]] {{.Name}}: {{.Label}}
{{end}}
Respond in markdown with exactly these seven sections, each starting with the
given "###" header on its own line:

### Problem & Motivation
### Core Concept Explanation
### Practical Usage Examples
### Internal Implementation Walkthrough
### System Integration
### Best Practices & Tips
### Chapter Conclusion`))

// relatedRef is a neighboring abstraction surfaced to the chapter prompt.
type relatedRef struct {
	ID    string
	Name  string
	Label string
}

// Generate synthesizes one chapter per sequenced abstraction. The sequenced
// order is frozen before fan-out; chapters are generated concurrently with a
// bounded pool since they are independent once the graph stages complete.
//
// Each chapter walks Pending -> Drafting -> Reviewed -> Finalized. Drafting
// retries with doubling backoff up to MaxRetries; on exhaustion the policy
// is explicit: strict mode fails with a GenerationError, otherwise the
// chapter is emitted as a placeholder marked incomplete. Cancellation
// discards partial results.
func Generate(ctx context.Context, sequenced []Abstraction, files []SourceFile, relationships []Relationship, synth ContentSynthesizer, cfg GeneratorConfig) ([]*Chapter, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultGeneratorConfig().Concurrency
	}
	if cfg.MaxExamples <= 0 {
		cfg.MaxExamples = DefaultGeneratorConfig().MaxExamples
	}

	fileIndex := make(map[string]SourceFile, len(files))
	for _, f := range files {
		fileIndex[f.Path] = f
	}
	names := make(map[string]string, len(sequenced))
	for _, abs := range sequenced {
		names[abs.ID] = abs.Name
	}

	chapters := make([]*Chapter, len(sequenced))
	for i, abs := range sequenced {
		chapters[i] = &Chapter{
			Index:       i + 1,
			Title:       abs.Name,
			Abstraction: abs,
			State:       ChapterPending,
		}
	}

	p := pool.New().WithMaxGoroutines(cfg.Concurrency)
	var mu sync.Mutex
	var firstErr error

	for _, ch := range chapters {
		ch := ch
		p.Go(func() {
			err := generateChapter(ctx, ch, fileIndex, relationships, names, synth, cfg)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return chapters, nil
}

// generateChapter drives a single chapter through its state machine.
func generateChapter(ctx context.Context, ch *Chapter, fileIndex map[string]SourceFile, relationships []Relationship, names map[string]string, synth ContentSynthesizer, cfg GeneratorConfig) error {
	if err := ch.advance(ChapterDrafting); err != nil {
		return err
	}

	prompt, err := buildChapterPrompt(ch.Abstraction, relationships, names)
	if err != nil {
		return fmt.Errorf("rendering chapter prompt: %w", err)
	}

	attempts := cfg.MaxRetries + 1
	var sections []Section
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := ch.advance(ChapterDrafting); err != nil {
				return err
			}
			wait := cfg.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		var response string
		response, lastErr = synth.Complete(ctx, prompt)
		if lastErr != nil {
			continue
		}
		sections, lastErr = parseChapterResponse(response)
		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		genErr := &GenerationError{Abstraction: ch.Abstraction.ID, Attempts: attempts, Err: lastErr}
		if cfg.Strict {
			return genErr
		}
		log.Printf("WARNING: %v; emitting placeholder chapter", genErr)
		ch.Sections = placeholderSections()
		ch.Incomplete = true
	} else {
		ch.Sections = sections
	}

	ch.Examples = citeExamples(ch, fileIndex, cfg.MaxExamples)

	if err := ch.advance(ChapterReviewed); err != nil {
		return err
	}
	return ch.advance(ChapterFinalized)
}

// buildChapterPrompt renders the generation prompt including the
// abstraction's relationship neighborhood.
func buildChapterPrompt(abs Abstraction, relationships []Relationship, names map[string]string) (string, error) {
	var related []relatedRef
	for _, rel := range relationships {
		switch abs.ID {
		case rel.From:
			related = append(related, relatedRef{ID: rel.To, Name: names[rel.To], Label: rel.Label})
		case rel.To:
			related = append(related, relatedRef{ID: rel.From, Name: names[rel.From], Label: rel.Label})
		}
	}

	var buf bytes.Buffer
	err := chapterTmpl.Execute(&buf, struct {
		Name     string
		Summary  string
		Category string
		Files    []string
		Related  []relatedRef
	}{
		Name:     abs.Name,
		Summary:  abs.Summary,
		Category: abs.Category,
		Files:    abs.Files,
		Related:  related,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseChapterResponse splits the synthesizer response on the seven fixed
// "###" headers. A missing or empty section is an error, which triggers a
// drafting retry.
func parseChapterResponse(response string) ([]Section, error) {
	headerToKind := make(map[string]SectionKind, len(sectionHeaders))
	for kind, header := range sectionHeaders {
		headerToKind[header] = kind
	}

	bodies := map[SectionKind]*strings.Builder{}
	var current *strings.Builder
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if header, found := strings.CutPrefix(trimmed, "### "); found {
			if kind, ok := headerToKind[strings.TrimSpace(header)]; ok {
				current = &strings.Builder{}
				bodies[kind] = current
				continue
			}
		}
		if current != nil {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	var sections []Section
	for _, kind := range sectionOrder {
		b, ok := bodies[kind]
		if !ok {
			return nil, fmt.Errorf("response missing section %q", sectionHeaders[kind])
		}
		body := strings.TrimSpace(b.String())
		if body == "" {
			return nil, fmt.Errorf("response has empty section %q", sectionHeaders[kind])
		}
		sections = append(sections, Section{Kind: kind, Body: body})
	}
	return sections, nil
}

// placeholderSections fills all seven sections with an explicit incomplete
// marker so readers never see a half-written chapter silently.
func placeholderSections() []Section {
	var sections []Section
	for _, kind := range sectionOrder {
		sections = append(sections, Section{
			Kind: kind,
			Body: "_Generation incomplete: this section could not be synthesized._",
		})
	}
	return sections
}

// citeExamples selects up to max code examples from the abstraction's own
// files, each citing a real file and line range. Selection is static and
// deterministic, which keeps examples factually grounded regardless of what
// the synthesizer produced.
func citeExamples(ch *Chapter, fileIndex map[string]SourceFile, max int) []CodeExample {
	var examples []CodeExample

	paths := append([]string(nil), ch.Abstraction.Files...)
	sort.Strings(paths)

	for _, path := range paths {
		if len(examples) >= max {
			break
		}
		f, ok := fileIndex[path]
		if !ok || len(f.Functions) == 0 {
			continue
		}
		fn := pickExampleFunction(f.Functions)
		code := extractLines(f.Content, fn.StartLine, fn.EndLine)
		if code == "" {
			continue
		}
		examples = append(examples, CodeExample{
			Chapter:     ch.Index,
			Language:    f.Language,
			Description: fmt.Sprintf("%s (%s)", fn.Name, ch.Abstraction.Name),
			Code:        code,
			File:        f.Path,
			StartLine:   fn.StartLine,
			EndLine:     fn.EndLine,
		})
	}
	return examples
}

// pickExampleFunction prefers the first exported-looking function, falling
// back to the first function.
func pickExampleFunction(funcs []parser.FunctionDef) parser.FunctionDef {
	for _, fn := range funcs {
		if len(fn.Name) > 0 && fn.Name[0] >= 'A' && fn.Name[0] <= 'Z' {
			return fn
		}
	}
	return funcs[0]
}

// extractLines returns the 1-indexed inclusive line range from content.
func extractLines(content []byte, start, end int) string {
	if start < 1 || end < start {
		return ""
	}
	lines := strings.Split(string(content), "\n")
	if start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

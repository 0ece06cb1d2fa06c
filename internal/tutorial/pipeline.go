package tutorial

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/julianshen/codetutor/internal/parser"
)

// Config holds all pipeline configuration for one run.
type Config struct {
	Root      string // target source tree
	Title     string // tutorial title; defaults to the root directory name
	OutputDir string // output root; the job writes into OutputDir/<job-id>/
	Scanner   ScannerConfig
	Extractor ExtractorConfig
	Generator GeneratorConfig
}

// Run executes the full pipeline against one target repository and returns
// the finished job aggregate. The job walks Pending -> Scanning ->
// Extracting -> Sequencing -> Generating -> Linking -> Emitted; any fatal
// stage error moves it to Failed with Err set and no output published.
//
// The job is owned by this goroutine. Each stage's output is treated as
// immutable once the stage completes, which is what makes the generation
// fan-out safe without locks. Cancelling ctx aborts in-flight generative
// calls and discards partial results.
func Run(ctx context.Context, cfg Config, synth ContentSynthesizer, p *parser.Parser) (*Job, error) {
	job := &Job{
		ID:    uuid.New().String(),
		Root:  cfg.Root,
		State: StatePending,
	}

	title := cfg.Title
	if title == "" {
		title = filepath.Base(cfg.Root) + " Tutorial"
	}

	fail := func(err error) (*Job, error) {
		job.Err = err
		_ = job.transition(StateFailed)
		return job, err
	}

	// Stage 1: scan.
	if err := job.transition(StateScanning); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "codetutor: scanning %s...\n", cfg.Root)
	scanner, err := NewScanner(cfg.Scanner, p)
	if err != nil {
		return fail(err)
	}
	job.Files, err = scanner.Scan(ctx, cfg.Root)
	if err != nil {
		return fail(err)
	}

	// Stage 2: extract concepts and build relationships.
	if err := job.transition(StateExtracting); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "codetutor: extracting concepts from %d files...\n", len(job.Files))
	job.Abstractions, err = Extract(ctx, job.Files, synth, cfg.Extractor)
	if err != nil {
		return fail(err)
	}
	job.Relationships = BuildRelationships(ctx, job.Files, job.Abstractions, synth)
	if err := ValidateRelationships(job.Relationships, job.Abstractions); err != nil {
		return fail(err)
	}

	// Stage 3: sequence chapters. The order is frozen here, before the
	// generation fan-out begins.
	if err := job.transition(StateSequencing); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "codetutor: sequencing %d abstractions...\n", len(job.Abstractions))
	sequenced, warnings, err := Sequence(job.Abstractions, job.Relationships)
	if err != nil {
		return fail(err)
	}
	job.Warnings = warnings

	// Stage 4: generate chapter content and diagrams.
	if err := job.transition(StateGenerating); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "codetutor: generating %d chapters...\n", len(sequenced))
	job.Chapters, err = Generate(ctx, sequenced, job.Files, job.Relationships, synth, cfg.Generator)
	if err != nil {
		return fail(err)
	}
	job.Architecture, job.Flowchart = SynthesizeDiagrams(sequenced, job.Relationships)
	for _, ch := range job.Chapters {
		ch.Diagram = ChapterDiagram(ch.Abstraction, sequenced, job.Relationships)
	}

	// Stage 5: link.
	if err := job.transition(StateLinking); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "codetutor: linking %d chapters...\n", len(job.Chapters))
	docs, err := Link(title, job.Chapters, job.Architecture, job.Flowchart)
	if err != nil {
		return fail(err)
	}

	// Stage 6: emit into the job-scoped directory.
	outDir := filepath.Join(cfg.OutputDir, job.ID)
	fmt.Fprintf(os.Stderr, "codetutor: emitting %d documents to %s...\n", len(docs), outDir)
	if err := Emit(docs, outDir); err != nil {
		return fail(err)
	}

	if err := job.transition(StateEmitted); err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stderr, "codetutor: done.\n")
	return job, nil
}

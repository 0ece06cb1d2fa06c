// cmd/codetutor/generate.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/julianshen/codetutor/internal/jobstore"
	"github.com/julianshen/codetutor/internal/parser"
	"github.com/julianshen/codetutor/internal/provider"
	"github.com/julianshen/codetutor/internal/source"
	"github.com/julianshen/codetutor/internal/synth"
	"github.com/julianshen/codetutor/internal/tutorial"
)

func generateCmd() *cobra.Command {
	var (
		repoFlag        string
		titleFlag       string
		outputFlag      string
		includeFlag     []string
		excludeFlag     []string
		concurrencyFlag int
		strictFlag      bool
		fixtureFlag     string
	)

	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Generate a tutorial from a codebase",
		Long: `Scan a codebase, extract its core abstractions, and generate a
cross-linked markdown tutorial ordered from foundations to details.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if repoFlag != "" {
				spec, err := source.ParseRepoSpec(repoFlag)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "codetutor: fetching %s...\n", spec)
				fetcher := source.NewFetcher(os.Getenv("GITHUB_TOKEN"))
				fetched, err := fetcher.Fetch(cmd.Context(), spec)
				if err != nil {
					return fmt.Errorf("fetching repository: %w", err)
				}
				defer os.RemoveAll(filepath.Dir(fetched))
				root = fetched
				if titleFlag == "" {
					titleFlag = spec.Repo + " Tutorial"
				}
			}

			var synthesizer tutorial.ContentSynthesizer
			if fixtureFlag != "" {
				synthesizer, err = synth.LoadFixture(fixtureFlag)
				if err != nil {
					return fmt.Errorf("loading fixture: %w", err)
				}
			} else {
				p, err := provider.NewProvider(cfg)
				if err != nil {
					return fmt.Errorf("creating provider: %w", err)
				}
				synthesizer = synth.NewCompleter(p, cfg.Provider.Model, cfg.Provider.MaxTokens, cfg.Provider.RequestsPerSecond)
			}

			outDir := outputFlag
			if outDir == "" {
				outDir = cfg.Output.Dir
			}

			genCfg := tutorial.Config{
				Root:      root,
				Title:     titleFlag,
				OutputDir: outDir,
				Scanner: tutorial.ScannerConfig{
					Include:     append(cfg.Scanner.Include, includeFlag...),
					Exclude:     append(cfg.Scanner.Exclude, excludeFlag...),
					MaxFileSize: cfg.Scanner.MaxFileSize,
				},
				Extractor: tutorial.ExtractorConfig{
					Concurrency: cfg.Extractor.Concurrency,
					MaxRetries:  cfg.Extractor.MaxRetries,
				},
				Generator: tutorial.GeneratorConfig{
					Concurrency: cfg.Generator.Concurrency,
					MaxRetries:  cfg.Generator.MaxRetries,
					MaxExamples: cfg.Generator.MaxExamples,
					Strict:      strictFlag || cfg.Generator.Strict,
				},
			}
			if concurrencyFlag > 0 {
				genCfg.Extractor.Concurrency = concurrencyFlag
				genCfg.Generator.Concurrency = concurrencyFlag
			}

			started := time.Now()
			job, runErr := tutorial.Run(cmd.Context(), genCfg, synthesizer, parser.NewParser())
			recordJob(job, started)

			if runErr != nil {
				return runErr
			}

			fmt.Fprintf(os.Stderr, "codetutor: tutorial written to %s\n", filepath.Join(outDir, job.ID))
			for _, w := range job.Warnings {
				fmt.Fprintf(os.Stderr, "codetutor: warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repoFlag, "repo", "", "GitHub repository to fetch and document (owner/repo[@ref])")
	cmd.Flags().StringVar(&titleFlag, "title", "", "tutorial title (default: directory name)")
	cmd.Flags().StringVar(&outputFlag, "output", "", "output directory (default from config)")
	cmd.Flags().StringSliceVar(&includeFlag, "include", nil, "glob patterns of files to include")
	cmd.Flags().StringSliceVar(&excludeFlag, "exclude", nil, "glob patterns of files to exclude")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "max parallel LLM calls (overrides config)")
	cmd.Flags().BoolVar(&strictFlag, "strict", false, "fail the run instead of emitting placeholder chapters")
	cmd.Flags().StringVar(&fixtureFlag, "fixture", "", "YAML fixture file to use instead of a live LLM")

	return cmd
}

// recordJob persists the run outcome to the job history database. History is
// best effort: a storage failure must not mask the run result.
func recordJob(job *tutorial.Job, started time.Time) {
	if job == nil {
		return
	}

	dir, err := configDir()
	if err != nil {
		log.Printf("WARNING: failed to record job history: %v", err)
		return
	}
	store, err := jobstore.NewStore(filepath.Join(dir, "jobs.db"))
	if err != nil {
		log.Printf("WARNING: failed to open job history: %v", err)
		return
	}
	defer store.Close()

	rec := jobstore.Record{
		ID:         job.ID,
		Root:       job.Root,
		State:      string(job.State),
		Chapters:   len(job.Chapters),
		Warnings:   len(job.Warnings),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if job.Err != nil {
		rec.ErrorCode = tutorial.ErrorCode(job.Err)
	}
	if err := store.Save(rec); err != nil {
		log.Printf("WARNING: failed to save job history: %v", err)
	}
}

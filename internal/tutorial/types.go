package tutorial

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/julianshen/codetutor/internal/parser"
)

// SourceFile represents a source file discovered by the scanner stage.
// It is immutable once the scan completes.
type SourceFile struct {
	Path      string
	Language  string
	Content   []byte
	Size      int64
	Functions []parser.FunctionDef
	Imports   []string
	Symbols   []string
}

// Abstraction is a named component extracted from the target codebase.
// ID is a stable slug derived from the display name.
type Abstraction struct {
	ID       string
	Name     string
	Summary  string
	Category string
	Files    []string
}

// Relationship is a directed, labeled edge between two abstractions.
// From and To are abstraction IDs; self-loops are never stored.
type Relationship struct {
	From  string
	To    string
	Label string
}

// SectionKind identifies one of the fixed chapter sections.
type SectionKind string

const (
	SectionProblem        SectionKind = "problem"
	SectionConcept        SectionKind = "concept"
	SectionExamples       SectionKind = "examples"
	SectionImplementation SectionKind = "implementation"
	SectionIntegration    SectionKind = "integration"
	SectionBestPractices  SectionKind = "best-practices"
	SectionConclusion     SectionKind = "conclusion"
)

// sectionOrder is the fixed order sections appear in every chapter.
var sectionOrder = []SectionKind{
	SectionProblem,
	SectionConcept,
	SectionExamples,
	SectionImplementation,
	SectionIntegration,
	SectionBestPractices,
	SectionConclusion,
}

// sectionHeaders maps each section kind to its markdown header text.
var sectionHeaders = map[SectionKind]string{
	SectionProblem:        "Problem & Motivation",
	SectionConcept:        "Core Concept Explanation",
	SectionExamples:       "Practical Usage Examples",
	SectionImplementation: "Internal Implementation Walkthrough",
	SectionIntegration:    "System Integration",
	SectionBestPractices:  "Best Practices & Tips",
	SectionConclusion:     "Chapter Conclusion",
}

// Section is one prose block within a chapter.
type Section struct {
	Kind SectionKind
	Body string
}

// CodeExample is a code snippet cited from a real scanned file.
type CodeExample struct {
	Chapter     int
	Language    string
	Description string
	Code        string
	File        string
	StartLine   int
	EndLine     int
}

// ChapterState tracks the per-chapter generation state machine.
type ChapterState string

const (
	ChapterPending   ChapterState = "pending"
	ChapterDrafting  ChapterState = "drafting"
	ChapterReviewed  ChapterState = "reviewed"
	ChapterFinalized ChapterState = "finalized"
)

// chapterTransitions lists the legal chapter state transitions.
var chapterTransitions = map[ChapterState][]ChapterState{
	ChapterPending:  {ChapterDrafting},
	ChapterDrafting: {ChapterDrafting, ChapterReviewed}, // drafting may retry
	ChapterReviewed: {ChapterFinalized},
}

// Chapter is one output document bound to exactly one abstraction.
// Index is 1-based and fixed once sequencing completes.
type Chapter struct {
	Index       int
	Title       string
	Abstraction Abstraction
	Sections    []Section
	Examples    []CodeExample
	Diagram     *Diagram
	State       ChapterState
	Incomplete  bool // placeholder emitted after generation retries exhausted
}

// Filename returns the two-digit zero-padded chapter file name.
func (c Chapter) Filename() string {
	return fmt.Sprintf("chapter_%02d.md", c.Index)
}

// advance moves the chapter to the next state, returning an error on an
// illegal transition.
func (c *Chapter) advance(next ChapterState) error {
	for _, allowed := range chapterTransitions[c.State] {
		if allowed == next {
			c.State = next
			return nil
		}
	}
	return fmt.Errorf("illegal chapter transition %s -> %s", c.State, next)
}

// Diagram holds a generated Mermaid diagram.
type Diagram struct {
	Title   string
	Type    string // "architecture", "relationships", "chapter"
	Content string
}

// JobState is the lifecycle state of a Job.
type JobState string

const (
	StatePending    JobState = "pending"
	StateScanning   JobState = "scanning"
	StateExtracting JobState = "extracting"
	StateSequencing JobState = "sequencing"
	StateGenerating JobState = "generating"
	StateLinking    JobState = "linking"
	StateEmitted    JobState = "emitted"
	StateFailed     JobState = "failed"
)

// jobTransitions lists the legal job state transitions. Any state may move
// to StateFailed.
var jobTransitions = map[JobState][]JobState{
	StatePending:    {StateScanning},
	StateScanning:   {StateExtracting},
	StateExtracting: {StateSequencing},
	StateSequencing: {StateGenerating},
	StateGenerating: {StateLinking},
	StateLinking:    {StateEmitted},
}

// Job is the root aggregate for one pipeline run. It is owned by a single
// orchestrating goroutine; stage outputs are treated as immutable once the
// producing stage completes.
type Job struct {
	ID            string
	Root          string
	State         JobState
	Files         []SourceFile
	Abstractions  []Abstraction
	Relationships []Relationship
	Chapters      []*Chapter
	Architecture  *Diagram
	Flowchart     *Diagram
	Warnings      []CycleWarning
	Err           error
}

// transition moves the job to the next lifecycle state. Moving to
// StateFailed is always legal; anything else must follow the pipeline order.
func (j *Job) transition(next JobState) error {
	if next == StateFailed {
		j.State = StateFailed
		return nil
	}
	for _, allowed := range jobTransitions[j.State] {
		if allowed == next {
			j.State = next
			return nil
		}
	}
	return fmt.Errorf("illegal job transition %s -> %s", j.State, next)
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a display name into a stable abstraction identifier:
// lowercased, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

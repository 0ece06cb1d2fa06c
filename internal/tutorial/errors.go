package tutorial

import (
	"errors"
	"fmt"
)

// Error codes surfaced on failed jobs. The code of the first fatal error is
// recorded in the job store.
const (
	CodeScan       = "SCAN_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeGeneration = "GENERATION_ERROR"
	CodeBrokenLink = "BROKEN_LINK_ERROR"
	CodeEmit       = "EMIT_ERROR"
)

// ScanError indicates the scan root was inaccessible. Always fatal.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ExtractionError indicates concept extraction failed after retries.
type ExtractionError struct {
	Candidate string
	Attempts  int
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %q after %d attempts: %v", e.Candidate, e.Attempts, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// GenerationError indicates a chapter's content synthesis failed after
// retries. Fatal only in strict mode; otherwise the chapter is emitted as a
// placeholder.
type GenerationError struct {
	Abstraction string
	Attempts    int
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating chapter for %q after %d attempts: %v", e.Abstraction, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// BrokenLinkError indicates a cross-reference did not resolve to any
// sequenced chapter. Always fatal: a tutorial with dangling links is worse
// than a failed build.
type BrokenLinkError struct {
	Reference string
	Source    string
}

func (e *BrokenLinkError) Error() string {
	return fmt.Sprintf("broken link %q in %s", e.Reference, e.Source)
}

// EmitError indicates a filesystem write failed after one retry.
type EmitError struct {
	Path string
	Err  error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emitting %s: %v", e.Path, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

// CycleWarning records one edge removed to break a dependency cycle during
// sequencing. Non-fatal; sequencing proceeds deterministically.
type CycleWarning struct {
	From string
	To   string
}

func (w CycleWarning) String() string {
	return fmt.Sprintf("cycle broken: removed edge %s -> %s", w.From, w.To)
}

// ErrorCode maps a pipeline error to its taxonomy code, or "" for unknown
// errors. Wrapped errors are unwrapped.
func ErrorCode(err error) string {
	var (
		scanErr   *ScanError
		extErr    *ExtractionError
		genErr    *GenerationError
		linkErr   *BrokenLinkError
		emitError *EmitError
	)
	switch {
	case errors.As(err, &scanErr):
		return CodeScan
	case errors.As(err, &extErr):
		return CodeExtraction
	case errors.As(err, &genErr):
		return CodeGeneration
	case errors.As(err, &linkErr):
		return CodeBrokenLink
	case errors.As(err, &emitError):
		return CodeEmit
	default:
		return ""
	}
}

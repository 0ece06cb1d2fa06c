package tutorial

import (
	"fmt"
	"regexp"
	"strings"
)

// Document is a single finalized output file.
type Document struct {
	Path    string
	Title   string
	Content string
}

var crossRefRe = regexp.MustCompile(`\[\[([a-z0-9-]+)\]\]`)

// Link resolves cross-references and assembles the final document set:
// index.md, one chapter_NN.md per chapter, and code_examples.md. It runs
// only after sequencing is final, since chapter numbers shift during
// sequencing. An unresolvable [[abstraction-id]] reference is a fatal
// BrokenLinkError: a dangling link is never emitted silently.
func Link(title string, chapters []*Chapter, architecture, flowchart *Diagram) ([]Document, error) {
	targets := make(map[string]*Chapter, len(chapters))
	for _, ch := range chapters {
		targets[ch.Abstraction.ID] = ch
	}

	var docs []Document
	docs = append(docs, buildIndex(title, chapters, architecture, flowchart))

	for _, ch := range chapters {
		content, err := renderChapter(ch, chapters, targets)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{
			Path:    ch.Filename(),
			Title:   ch.Title,
			Content: content,
		})
	}

	docs = append(docs, buildCodeExamplesIndex(chapters))
	return docs, nil
}

// buildIndex creates index.md: overview, both diagrams, and a numbered ToC.
func buildIndex(title string, chapters []*Chapter, architecture, flowchart *Diagram) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Overview\n\n")
	for _, ch := range chapters {
		fmt.Fprintf(&b, "- **%s**: %s\n", ch.Abstraction.Name, ch.Abstraction.Summary)
	}
	b.WriteString("\n")

	if architecture != nil {
		writeMermaidBlock(&b, *architecture)
	}
	if flowchart != nil {
		writeMermaidBlock(&b, *flowchart)
	}

	b.WriteString("## Table of Contents\n\n")
	for _, ch := range chapters {
		fmt.Fprintf(&b, "%d. [%s](%s)\n", ch.Index, ch.Title, ch.Filename())
	}
	b.WriteString("\n")

	return Document{Path: "index.md", Title: title, Content: b.String()}
}

// renderChapter produces the chapter markdown with fixed section headers in
// fixed order, cited code examples, the optional context diagram, and
// previous/next navigation links.
func renderChapter(ch *Chapter, all []*Chapter, targets map[string]*Chapter) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chapter %d: %s\n\n", ch.Index, ch.Title)

	if ch.Incomplete {
		b.WriteString("> **Note**: generation incomplete — this chapter is a placeholder.\n\n")
	}

	for _, section := range ch.Sections {
		fmt.Fprintf(&b, "### %s\n\n", sectionHeaders[section.Kind])
		b.WriteString(section.Body)
		b.WriteString("\n\n")

		if section.Kind == SectionExamples {
			for i, ex := range ch.Examples {
				fmt.Fprintf(&b, "#### Example %d: %s\n\n", i+1, ex.Description)
				fmt.Fprintf(&b, "From `%s` (lines %d-%d):\n\n", ex.File, ex.StartLine, ex.EndLine)
				fmt.Fprintf(&b, "```%s\n%s\n```\n\n", ex.Language, ex.Code)
			}
		}
		if section.Kind == SectionIntegration && ch.Diagram != nil {
			writeMermaidBlock(&b, *ch.Diagram)
		}
	}

	writeNavigation(&b, ch, all)

	return resolveCrossRefs(b.String(), ch.Filename(), targets)
}

// resolveCrossRefs rewrites [[abstraction-id]] placeholders into relative
// chapter links.
func resolveCrossRefs(content, source string, targets map[string]*Chapter) (string, error) {
	var linkErr error
	resolved := crossRefRe.ReplaceAllStringFunc(content, func(match string) string {
		id := crossRefRe.FindStringSubmatch(match)[1]
		target, ok := targets[id]
		if !ok {
			if linkErr == nil {
				linkErr = &BrokenLinkError{Reference: id, Source: source}
			}
			return match
		}
		return fmt.Sprintf("[%s](%s)", target.Title, target.Filename())
	})
	if linkErr != nil {
		return "", linkErr
	}
	return resolved, nil
}

// writeNavigation appends previous/next chapter links.
func writeNavigation(b *strings.Builder, ch *Chapter, all []*Chapter) {
	b.WriteString("---\n\n")
	var parts []string
	if ch.Index > 1 {
		prev := all[ch.Index-2]
		parts = append(parts, fmt.Sprintf("[Previous: %s](%s)", prev.Title, prev.Filename()))
	}
	parts = append(parts, "[Index](index.md)")
	if ch.Index < len(all) {
		next := all[ch.Index]
		parts = append(parts, fmt.Sprintf("[Next: %s](%s)", next.Title, next.Filename()))
	}
	b.WriteString(strings.Join(parts, " | "))
	b.WriteString("\n")
}

// buildCodeExamplesIndex creates code_examples.md: a flat index of all
// cited examples grouped by chapter.
func buildCodeExamplesIndex(chapters []*Chapter) Document {
	var b strings.Builder
	b.WriteString("# Code Examples Index\n\n")

	for _, ch := range chapters {
		if len(ch.Examples) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## [Chapter %d: %s](%s)\n\n", ch.Index, ch.Title, ch.Filename())
		for i, ex := range ch.Examples {
			fmt.Fprintf(&b, "%d. `%s` — %s (`%s:%d-%d`)\n", i+1, ex.Language, ex.Description, ex.File, ex.StartLine, ex.EndLine)
		}
		b.WriteString("\n")
	}

	return Document{Path: "code_examples.md", Title: "Code Examples", Content: b.String()}
}

// writeMermaidBlock appends a fenced mermaid code block for a diagram.
func writeMermaidBlock(b *strings.Builder, d Diagram) {
	if d.Title != "" {
		fmt.Fprintf(b, "### %s\n\n", d.Title)
	}
	b.WriteString("```mermaid\n")
	b.WriteString(d.Content)
	if !strings.HasSuffix(d.Content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
}

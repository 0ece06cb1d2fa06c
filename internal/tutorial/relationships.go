package tutorial

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

var labelTmpl = template.Must(template.New("labels").Parse(
	`The components below interact in a codebase. For each directed pair, provide a short
verb phrase describing the interaction (e.g. "reads configuration from", "renders").

{{range .Edges}}{{.From}} -> {{.To}}
{{end}}
Respond with one line per pair in exactly this format:
<from> -> <to>: <verb phrase>`))

// BuildRelationships infers directed relationships between abstractions from
// pairwise co-occurrence signals: import references and symbol mentions
// within each abstraction's source files. When a synthesizer is provided,
// edge labels are refined into verb phrases; refinement failures are
// non-fatal and keep the static labels.
//
// Invariants: no self-loops; exact duplicate edges are merged; when two
// labels would describe the same pair, the most specific (longest) phrase
// is kept. The result is sorted by (From, To, Label) for determinism.
func BuildRelationships(ctx context.Context, files []SourceFile, abstractions []Abstraction, synth ContentSynthesizer) []Relationship {
	fileIndex := make(map[string]SourceFile, len(files))
	for _, f := range files {
		fileIndex[f.Path] = f
	}

	// Directory prefixes and exported symbols per abstraction, used as
	// matching cues.
	dirs := make(map[string][]string, len(abstractions))
	symbols := make(map[string][]string, len(abstractions))
	for _, abs := range abstractions {
		seen := map[string]bool{}
		for _, path := range abs.Files {
			dir := filepath.ToSlash(filepath.Dir(path))
			if dir != "." && !seen[dir] {
				seen[dir] = true
				dirs[abs.ID] = append(dirs[abs.ID], dir)
			}
			if f, ok := fileIndex[path]; ok {
				for _, sym := range f.Symbols {
					if len(sym) >= 4 {
						symbols[abs.ID] = append(symbols[abs.ID], sym)
					}
				}
			}
		}
	}

	var edges []Relationship
	for _, from := range abstractions {
		for _, to := range abstractions {
			if from.ID == to.ID {
				continue
			}
			if label := detectEdge(from, to, fileIndex, dirs[to.ID], symbols[to.ID]); label != "" {
				edges = append(edges, Relationship{From: from.ID, To: to.ID, Label: label})
			}
		}
	}

	edges = mergeEdges(edges)

	if synth != nil && len(edges) > 0 {
		edges = refineLabels(ctx, edges, synth)
	}

	sortEdges(edges)
	return edges
}

// detectEdge returns a static label when files of from reference the target
// abstraction, or "" when no signal is found. Import references are the
// stronger cue and win over plain symbol mentions.
func detectEdge(from, to Abstraction, fileIndex map[string]SourceFile, toDirs, toSymbols []string) string {
	for _, path := range from.Files {
		f, ok := fileIndex[path]
		if !ok {
			continue
		}
		for _, imp := range f.Imports {
			for _, dir := range toDirs {
				if strings.Contains(imp, dir) {
					return "imports from"
				}
			}
		}
	}
	for _, path := range from.Files {
		f, ok := fileIndex[path]
		if !ok {
			continue
		}
		for _, sym := range toSymbols {
			if bytes.Contains(f.Content, []byte(sym)) {
				return "references"
			}
		}
	}
	return ""
}

// mergeEdges drops exact duplicates and resolves label collisions on the
// same pair by keeping the most specific (longest) label.
func mergeEdges(edges []Relationship) []Relationship {
	best := map[[2]string]map[string]bool{} // pair -> label set
	for _, e := range edges {
		pair := [2]string{e.From, e.To}
		if best[pair] == nil {
			best[pair] = map[string]bool{}
		}
		best[pair][e.Label] = true
	}

	var out []Relationship
	for pair, labels := range best {
		kept := keepDistinctLabels(labels)
		for _, label := range kept {
			out = append(out, Relationship{From: pair[0], To: pair[1], Label: label})
		}
	}
	return out
}

// keepDistinctLabels keeps genuinely distinct labels for one pair but
// collapses near-duplicates: a label that is a substring of a longer label
// is dropped in favor of the longer, more informative one.
func keepDistinctLabels(labels map[string]bool) []string {
	all := make([]string, 0, len(labels))
	for l := range labels {
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool { return len(all[i]) > len(all[j]) })

	var kept []string
	for _, l := range all {
		redundant := false
		for _, k := range kept {
			if strings.Contains(k, l) {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, l)
		}
	}
	return kept
}

// refineLabels asks the synthesizer for verb-phrase labels in a single
// batched call. On any failure the static labels are kept.
func refineLabels(ctx context.Context, edges []Relationship, synth ContentSynthesizer) []Relationship {
	var buf bytes.Buffer
	err := labelTmpl.Execute(&buf, struct{ Edges []Relationship }{Edges: edges})
	if err != nil {
		log.Printf("WARNING: label prompt rendering failed: %v", err)
		return edges
	}

	response, err := synth.Complete(ctx, buf.String())
	if err != nil {
		log.Printf("WARNING: relationship label refinement failed: %v", err)
		return edges
	}

	refined := map[[2]string]string{}
	for _, line := range strings.Split(response, "\n") {
		from, to, label, ok := parseLabelLine(line)
		if ok {
			refined[[2]string{from, to}] = label
		}
	}

	for i, e := range edges {
		if label, ok := refined[[2]string{e.From, e.To}]; ok && label != "" {
			// Keep the more specific phrase when the static label is longer.
			if len(label) >= len(e.Label) {
				edges[i].Label = label
			}
		}
	}
	return mergeEdges(edges)
}

// parseLabelLine parses "<from> -> <to>: <verb phrase>".
func parseLabelLine(line string) (from, to, label string, ok bool) {
	line = strings.TrimSpace(line)
	arrow := strings.Index(line, "->")
	colon := strings.Index(line, ":")
	if arrow < 0 || colon < arrow {
		return "", "", "", false
	}
	from = strings.TrimSpace(line[:arrow])
	to = strings.TrimSpace(line[arrow+2 : colon])
	label = strings.TrimSpace(line[colon+1:])
	if from == "" || to == "" || label == "" {
		return "", "", "", false
	}
	return from, to, label, true
}

// sortEdges orders edges by (From, To, Label) for deterministic output.
func sortEdges(edges []Relationship) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Label < edges[j].Label
	})
}

// ValidateRelationships checks referential integrity: every edge endpoint
// must name an abstraction in the given set.
func ValidateRelationships(edges []Relationship, abstractions []Abstraction) error {
	known := make(map[string]bool, len(abstractions))
	for _, abs := range abstractions {
		known[abs.ID] = true
	}
	for _, e := range edges {
		if !known[e.From] || !known[e.To] {
			return fmt.Errorf("relationship %s -> %s references unknown abstraction", e.From, e.To)
		}
	}
	return nil
}

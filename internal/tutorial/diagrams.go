package tutorial

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// SynthesizeDiagrams produces the whole-repo Mermaid diagrams: a "graph TB"
// architecture view with subgraphs by category and a "flowchart TD"
// relationship view with edge labels. Both are purely derived from the
// frozen graph stages, so regeneration is byte-deterministic.
func SynthesizeDiagrams(abstractions []Abstraction, relationships []Relationship) (architecture, flowchart *Diagram) {
	return architectureDiagram(abstractions), relationshipDiagram(abstractions, relationships)
}

// architectureDiagram renders a graph TB with one subgraph per category.
func architectureDiagram(abstractions []Abstraction) *Diagram {
	byCategory := map[string][]Abstraction{}
	for _, abs := range abstractions {
		byCategory[abs.Category] = append(byCategory[abs.Category], abs)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("graph TB\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "    subgraph %s[\"%s\"]\n", nodeID("category:"+cat), escapeMermaid(cat))
		members := byCategory[cat]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		for _, abs := range members {
			fmt.Fprintf(&b, "        %s[\"%s\"]\n", nodeID(abs.ID), escapeMermaid(abs.Name))
		}
		b.WriteString("    end\n")
	}

	return &Diagram{
		Title:   "System Architecture",
		Type:    "architecture",
		Content: b.String(),
	}
}

// relationshipDiagram renders a flowchart TD with labeled edges.
func relationshipDiagram(abstractions []Abstraction, relationships []Relationship) *Diagram {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	sorted := append([]Abstraction(nil), abstractions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, abs := range sorted {
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", nodeID(abs.ID), escapeMermaid(abs.Name))
	}
	for _, rel := range relationships {
		fmt.Fprintf(&b, "    %s -->|%s| %s\n", nodeID(rel.From), escapeMermaid(rel.Label), nodeID(rel.To))
	}

	return &Diagram{
		Title:   "Component Relationships",
		Type:    "relationships",
		Content: b.String(),
	}
}

// ChapterDiagram renders the abstraction's relationship neighborhood as a
// flowchart. It returns nil for trivially linear neighborhoods (at most two
// edges with no branching): a diagram is not generated for simple
// sequential paths.
func ChapterDiagram(abs Abstraction, abstractions []Abstraction, relationships []Relationship) *Diagram {
	names := make(map[string]string, len(abstractions))
	for _, a := range abstractions {
		names[a.ID] = a.Name
	}

	var edges []Relationship
	for _, rel := range relationships {
		if rel.From == abs.ID || rel.To == abs.ID {
			edges = append(edges, rel)
		}
	}
	if isTrivialLinear(edges) {
		return nil
	}

	// Nodes in the neighborhood, sorted for stable output.
	nodeSet := map[string]bool{abs.ID: true}
	for _, e := range edges {
		nodeSet[e.From] = true
		nodeSet[e.To] = true
	}
	nodes := sortedKeys(nodeSet)

	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for _, id := range nodes {
		name := names[id]
		if name == "" {
			name = id
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", nodeID(id), escapeMermaid(name))
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "    %s -->|%s| %s\n", nodeID(e.From), escapeMermaid(e.Label), nodeID(e.To))
	}

	return &Diagram{
		Title:   abs.Name + " in Context",
		Type:    "chapter",
		Content: b.String(),
	}
}

// isTrivialLinear reports whether the edge set forms a simple sequential
// path: at most two edges and no node appearing as source or target more
// than once.
func isTrivialLinear(edges []Relationship) bool {
	if len(edges) <= 1 {
		return true
	}
	if len(edges) > 2 {
		return false
	}
	outDeg := map[string]int{}
	inDeg := map[string]int{}
	for _, e := range edges {
		outDeg[e.From]++
		inDeg[e.To]++
		if outDeg[e.From] > 1 || inDeg[e.To] > 1 {
			return false
		}
	}
	return true
}

// nodeID derives a stable Mermaid node identifier from an abstraction ID
// using FNV-1a, so identifiers survive regeneration and never collide with
// Mermaid reserved words.
func nodeID(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return fmt.Sprintf("n%08x", h.Sum32())
}

// escapeMermaid replaces characters that would break Mermaid label syntax.
func escapeMermaid(s string) string {
	r := strings.NewReplacer(
		"\"", "#quot;",
		"[", "#91;",
		"]", "#93;",
		"{", "#123;",
		"}", "#125;",
		"|", "#124;",
	)
	return r.Replace(s)
}

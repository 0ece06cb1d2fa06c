package tutorial

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

// Sequence assigns a linear chapter order to abstractions using Kahn's
// algorithm over the "is dependency of" sub-relation, so foundational
// concepts precede their dependents. Ties are broken alphabetically by
// abstraction ID. Cycles are broken deterministically by removing incoming
// edges of the smallest blocked node; each removal is returned as a
// CycleWarning and logged. Sequencing never fails on cyclic input.
func Sequence(abstractions []Abstraction, relationships []Relationship) ([]Abstraction, []CycleWarning, error) {
	if len(abstractions) == 0 {
		return nil, nil, nil
	}

	byID := make(map[string]Abstraction, len(abstractions))
	ids := make([]string, 0, len(abstractions))
	for _, abs := range abstractions {
		if _, dup := byID[abs.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate abstraction id %q", abs.ID)
		}
		byID[abs.ID] = abs
		ids = append(ids, abs.ID)
	}
	sort.Strings(ids)

	g := graph.New(graph.StringHash, graph.Directed())
	for _, id := range ids {
		if err := g.AddVertex(id); err != nil {
			return nil, nil, fmt.Errorf("adding vertex %s: %w", id, err)
		}
	}
	for _, rel := range relationships {
		from, to := sequenceEdge(rel)
		if from == to {
			continue
		}
		// Duplicate edges (same pair, different labels) collapse to one
		// ordering constraint.
		if err := g.AddEdge(from, to); err != nil && err != graph.ErrEdgeAlreadyExists {
			return nil, nil, fmt.Errorf("adding edge %s -> %s: %w", from, to, err)
		}
	}

	order, warnings, err := stableKahn(g, ids)
	if err != nil {
		return nil, nil, err
	}

	out := make([]Abstraction, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, warnings, nil
}

// dependencyLabels are label prefixes whose edges point dependent ->
// dependency and must be inverted for sequencing, so the dependency is
// documented first.
var dependencyLabels = []string{"imports", "depends", "uses", "references", "reads", "configures itself from"}

// sequenceEdge maps a relationship to a "comes before" edge for sequencing.
func sequenceEdge(rel Relationship) (from, to string) {
	label := strings.ToLower(rel.Label)
	for _, prefix := range dependencyLabels {
		if strings.HasPrefix(label, prefix) {
			return rel.To, rel.From
		}
	}
	return rel.From, rel.To
}

// stableKahn runs Kahn's algorithm with an alphabetical ready queue. When no
// node is ready (a cycle), the blocked node with the fewest remaining
// incoming edges (smallest ID on ties) has its incoming edges removed, one
// warning per removed edge.
func stableKahn(g graph.Graph[string, string], ids []string) ([]string, []CycleWarning, error) {
	preds, err := g.PredecessorMap()
	if err != nil {
		return nil, nil, fmt.Errorf("predecessor map: %w", err)
	}

	// Remaining incoming edge sets, mutated as nodes are emitted.
	incoming := make(map[string]map[string]bool, len(ids))
	indegree := make(map[string]int, len(ids))
	for _, id := range ids {
		incoming[id] = map[string]bool{}
		for pred := range preds[id] {
			incoming[id][pred] = true
		}
		indegree[id] = len(incoming[id])
	}

	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, nil, fmt.Errorf("adjacency map: %w", err)
	}

	var ready []string
	for _, id := range ids {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	emitted := make(map[string]bool, len(ids))
	var order []string
	var warnings []CycleWarning

	for len(order) < len(ids) {
		if len(ready) == 0 {
			// Cycle: unblock the node with the fewest remaining incoming
			// edges, smallest ID on ties.
			victim := pickCycleVictim(ids, emitted, indegree)
			srcs := sortedKeys(incoming[victim])
			for _, src := range srcs {
				warnings = append(warnings, CycleWarning{From: src, To: victim})
				log.Printf("WARNING: %s", CycleWarning{From: src, To: victim})
				delete(incoming[victim], src)
			}
			indegree[victim] = 0
			ready = append(ready, victim)
		}

		next := ready[0]
		ready = ready[1:]
		if emitted[next] {
			continue
		}
		emitted[next] = true
		order = append(order, next)

		var unblocked []string
		for succ := range adj[next] {
			if emitted[succ] {
				continue
			}
			if incoming[succ][next] {
				delete(incoming[succ], next)
				indegree[succ]--
				if indegree[succ] == 0 {
					unblocked = append(unblocked, succ)
				}
			}
		}
		sort.Strings(unblocked)
		ready = mergeSorted(ready, unblocked)
	}

	return order, warnings, nil
}

// pickCycleVictim selects the non-emitted node with minimal remaining
// in-degree, breaking ties by smallest ID. Removing its incoming edges
// unblocks the most of the graph for the fewest removed edges.
func pickCycleVictim(ids []string, emitted map[string]bool, indegree map[string]int) string {
	victim := ""
	for _, id := range ids {
		if emitted[id] {
			continue
		}
		if victim == "" || indegree[id] < indegree[victim] {
			victim = id
		}
	}
	return victim
}

// sortedKeys returns the map keys in sorted order.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeSorted merges two sorted string slices into one sorted slice.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

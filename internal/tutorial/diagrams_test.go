package tutorial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeDiagramsDeterministic(t *testing.T) {
	abstractions := []Abstraction{
		{ID: "api", Name: "API", Category: "Transport"},
		{ID: "storage", Name: "Storage", Category: "Data Layer"},
		{ID: "cache", Name: "Cache", Category: "Data Layer"},
	}
	relationships := []Relationship{
		{From: "api", To: "storage", Label: "persists through"},
		{From: "api", To: "cache", Label: "reads from"},
	}

	arch1, flow1 := SynthesizeDiagrams(abstractions, relationships)
	arch2, flow2 := SynthesizeDiagrams(abstractions, relationships)

	assert.Equal(t, arch1.Content, arch2.Content)
	assert.Equal(t, flow1.Content, flow2.Content)
}

func TestArchitectureDiagramGroupsByCategory(t *testing.T) {
	abstractions := []Abstraction{
		{ID: "api", Name: "API", Category: "Transport"},
		{ID: "storage", Name: "Storage", Category: "Data Layer"},
	}

	arch := architectureDiagram(abstractions)
	assert.Equal(t, "architecture", arch.Type)
	assert.Contains(t, arch.Content, "graph TB")
	assert.Contains(t, arch.Content, `["Data Layer"]`)
	assert.Contains(t, arch.Content, `["Transport"]`)
	assert.Contains(t, arch.Content, `["API"]`)
	assert.Contains(t, arch.Content, `["Storage"]`)
}

func TestRelationshipDiagramLabelsEdges(t *testing.T) {
	abstractions := []Abstraction{
		{ID: "api", Name: "API"},
		{ID: "storage", Name: "Storage"},
	}
	relationships := []Relationship{{From: "api", To: "storage", Label: "persists through"}}

	flow := relationshipDiagram(abstractions, relationships)
	assert.Equal(t, "relationships", flow.Type)
	assert.Contains(t, flow.Content, "flowchart TD")
	assert.Contains(t, flow.Content, "-->|persists through|")
}

func TestChapterDiagramOmittedForTrivialNeighborhood(t *testing.T) {
	abstractions := []Abstraction{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
		{ID: "c", Name: "C"},
	}

	// Single edge: trivially linear.
	single := []Relationship{{From: "a", To: "b", Label: "calls"}}
	assert.Nil(t, ChapterDiagram(abstractions[0], abstractions, single))

	// Two edges forming a chain through the abstraction: still linear.
	chain := []Relationship{
		{From: "a", To: "b", Label: "calls"},
		{From: "b", To: "c", Label: "calls"},
	}
	assert.Nil(t, ChapterDiagram(abstractions[1], abstractions, chain))
}

func TestChapterDiagramRenderedForBranching(t *testing.T) {
	abstractions := []Abstraction{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
		{ID: "c", Name: "C"},
	}
	// Two edges sharing a source: branching, so a diagram is warranted.
	branching := []Relationship{
		{From: "a", To: "b", Label: "calls"},
		{From: "a", To: "c", Label: "notifies"},
	}

	d := ChapterDiagram(abstractions[0], abstractions, branching)
	require.NotNil(t, d)
	assert.Equal(t, "chapter", d.Type)
	assert.Equal(t, "A in Context", d.Title)
	assert.Contains(t, d.Content, "flowchart LR")
	assert.Contains(t, d.Content, `["B"]`)
	assert.Contains(t, d.Content, `["C"]`)
}

func TestIsTrivialLinear(t *testing.T) {
	assert.True(t, isTrivialLinear(nil))
	assert.True(t, isTrivialLinear([]Relationship{{From: "a", To: "b"}}))
	assert.True(t, isTrivialLinear([]Relationship{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
	}))
	assert.False(t, isTrivialLinear([]Relationship{
		{From: "a", To: "b"},
		{From: "a", To: "c"},
	}))
	assert.False(t, isTrivialLinear([]Relationship{
		{From: "a", To: "c"},
		{From: "b", To: "c"},
	}))
	assert.False(t, isTrivialLinear([]Relationship{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
		{From: "c", To: "a"},
	}))
}

func TestNodeIDStableAndPrefixed(t *testing.T) {
	assert.Equal(t, nodeID("storage"), nodeID("storage"))
	assert.NotEqual(t, nodeID("storage"), nodeID("api"))
	assert.Regexp(t, `^n[0-9a-f]{8}$`, nodeID("storage"))
}

func TestEscapeMermaid(t *testing.T) {
	assert.Equal(t, "plain name", escapeMermaid("plain name"))
	assert.Equal(t, "#quot;quoted#quot;", escapeMermaid(`"quoted"`))
	assert.Equal(t, "a#91;0#93; #123;x#125; y#124;z", escapeMermaid("a[0] {x} y|z"))
}

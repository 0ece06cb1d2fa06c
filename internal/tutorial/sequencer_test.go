package tutorial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func absIDs(abstractions []Abstraction) []string {
	ids := make([]string, len(abstractions))
	for i, a := range abstractions {
		ids[i] = a.ID
	}
	return ids
}

func TestSequenceLinearChain(t *testing.T) {
	abstractions := []Abstraction{
		{ID: "e"}, {ID: "d"}, {ID: "c"}, {ID: "b"}, {ID: "a"},
	}
	// "calls" is not a dependency label, so edges point in document order.
	relationships := []Relationship{
		{From: "a", To: "b", Label: "calls"},
		{From: "b", To: "c", Label: "calls"},
		{From: "c", To: "d", Label: "calls"},
		{From: "d", To: "e", Label: "calls"},
	}

	order, warnings, err := Sequence(abstractions, relationships)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, absIDs(order))
}

func TestSequenceInvertsDependencyEdges(t *testing.T) {
	abstractions := []Abstraction{{ID: "api"}, {ID: "storage"}}
	// api imports from storage: storage is the dependency and must come first.
	relationships := []Relationship{
		{From: "api", To: "storage", Label: "imports from"},
	}

	order, warnings, err := Sequence(abstractions, relationships)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"storage", "api"}, absIDs(order))
}

func TestSequenceAlphabeticalTieBreak(t *testing.T) {
	abstractions := []Abstraction{{ID: "zeta"}, {ID: "alpha"}, {ID: "mid"}}

	order, warnings, err := Sequence(abstractions, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, absIDs(order))
}

func TestSequenceBreaksCycleWithOneWarning(t *testing.T) {
	abstractions := []Abstraction{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	relationships := []Relationship{
		{From: "a", To: "b", Label: "calls"},
		{From: "b", To: "c", Label: "calls"},
		{From: "c", To: "a", Label: "calls"},
	}

	order, warnings, err := Sequence(abstractions, relationships)
	require.NoError(t, err)

	// A three-node cycle breaks with exactly one removed edge: unblocking the
	// smallest node frees the rest of the chain.
	require.Len(t, warnings, 1)
	assert.Equal(t, CycleWarning{From: "c", To: "a"}, warnings[0])
	assert.Equal(t, []string{"a", "b", "c"}, absIDs(order))
}

func TestSequenceCycleDeterministic(t *testing.T) {
	abstractions := []Abstraction{{ID: "x"}, {ID: "y"}}
	relationships := []Relationship{
		{From: "x", To: "y", Label: "calls"},
		{From: "y", To: "x", Label: "calls"},
	}

	first, firstWarnings, err := Sequence(abstractions, relationships)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, againWarnings, err := Sequence(abstractions, relationships)
		require.NoError(t, err)
		assert.Equal(t, absIDs(first), absIDs(again))
		assert.Equal(t, firstWarnings, againWarnings)
	}
}

func TestSequenceDuplicateEdgesCollapse(t *testing.T) {
	abstractions := []Abstraction{{ID: "a"}, {ID: "b"}}
	relationships := []Relationship{
		{From: "a", To: "b", Label: "calls"},
		{From: "a", To: "b", Label: "notifies"},
	}

	order, warnings, err := Sequence(abstractions, relationships)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"a", "b"}, absIDs(order))
}

func TestSequenceDuplicateIDFails(t *testing.T) {
	abstractions := []Abstraction{{ID: "dup"}, {ID: "dup"}}
	_, _, err := Sequence(abstractions, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate abstraction id")
}

func TestSequenceEmptyInput(t *testing.T) {
	order, warnings, err := Sequence(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, order)
	assert.Empty(t, warnings)
}

func TestSequenceEdgeMapping(t *testing.T) {
	tests := []struct {
		name  string
		rel   Relationship
		from  string
		to    string
	}{
		{"imports inverts", Relationship{From: "a", To: "b", Label: "imports from"}, "b", "a"},
		{"uses inverts", Relationship{From: "a", To: "b", Label: "uses"}, "b", "a"},
		{"reads inverts", Relationship{From: "a", To: "b", Label: "reads configuration from"}, "b", "a"},
		{"calls keeps direction", Relationship{From: "a", To: "b", Label: "calls"}, "a", "b"},
		{"renders keeps direction", Relationship{From: "a", To: "b", Label: "renders"}, "a", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := sequenceEdge(tt.rel)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortPairs(t *testing.T) {
	pairs := []Pair[string, string]{
		{V1: "n2", V2: "n3"},
		{V1: "n1", V2: "n4"},
		{V1: "n1", V2: "n2"},
		{V1: "n10", V2: "n2"},
	}
	SortPairs(pairs)
	assert.Equal(t, []Pair[string, string]{
		{V1: "n1", V2: "n2"},
		{V1: "n1", V2: "n4"},
		{V1: "n10", V2: "n2"},
		{V1: "n2", V2: "n3"},
	}, pairs)
}

func TestMakeSortedPair(t *testing.T) {
	assert.Equal(t, Pair[int, int]{V1: 1, V2: 2}, MakeSortedPair(2, 1))
	assert.Equal(t, Pair[int, int]{V1: 1, V2: 2}, MakeSortedPair(1, 2))
	assert.Equal(t, MakeSortedPair("b", "a"), MakeSortedPair("a", "b"))
}

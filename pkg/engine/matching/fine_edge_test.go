package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFineEdgeRange(t *testing.T) {
	cases := []struct {
		name           string
		numNodes, idx  int
		wantLo, wantHi int
	}{
		{"two nodes", 2, 1, 0, 0},
		{"three nodes uses every edge", 3, 0, 0, 1},
		{"first node", 6, 0, 0, 0},
		{"last node", 6, 5, 4, 4},
		{"second node", 6, 1, 0, 2},
		{"middle node", 6, 3, 2, 4},
		{"second to last node", 6, 4, 3, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lo, hi := fineEdgeRange(tc.numNodes, tc.idx)
			assert.Equal(t, tc.wantLo, lo)
			assert.Equal(t, tc.wantHi, hi)
		})
	}
}

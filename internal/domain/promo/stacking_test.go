package promo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStacking(t *testing.T) {
	mk := func(id string, priority int, stackable bool) Promotion {
		return Promotion{ID: id, Status: StatusActive, Priority: priority, Stackable: stackable}
	}

	tests := []struct {
		name     string
		eligible []Promotion
		wantIDs  []string
	}{
		{
			name:     "empty input",
			eligible: nil,
			wantIDs:  nil,
		},
		{
			name:     "single stackable",
			eligible: []Promotion{mk("a", 1, true)},
			wantIDs:  []string{"a"},
		},
		{
			name:     "single non-stackable",
			eligible: []Promotion{mk("a", 1, false)},
			wantIDs:  []string{"a"},
		},
		{
			name: "non-stackable cuts off everything below it",
			eligible: []Promotion{
				mk("low", 1, true),
				mk("mid", 5, false),
				mk("top", 10, true),
			},
			wantIDs: []string{"top", "mid"},
		},
		{
			name: "all stackable apply in priority order",
			eligible: []Promotion{
				mk("b", 5, true),
				mk("a", 10, true),
				mk("c", 1, true),
			},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name: "highest priority non-stackable wins alone",
			eligible: []Promotion{
				mk("solo", 10, false),
				mk("other", 5, true),
			},
			wantIDs: []string{"solo"},
		},
		{
			name: "equal priority keeps input order",
			eligible: []Promotion{
				mk("first", 5, true),
				mk("second", 5, true),
				mk("third", 5, true),
			},
			wantIDs: []string{"first", "second", "third"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStacking(tt.eligible)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestResolveStackingDoesNotMutateInput(t *testing.T) {
	eligible := []Promotion{
		{ID: "low", Priority: 1, Stackable: true},
		{ID: "high", Priority: 10, Stackable: true},
	}

	out := ResolveStacking(eligible)
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].ID)

	// The caller's slice keeps its original order.
	assert.Equal(t, "low", eligible[0].ID)
	assert.Equal(t, "high", eligible[1].ID)
}

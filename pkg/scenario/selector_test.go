package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/pulsewave/pkg/types"
)

func TestWeightedSelectorReturnsEveryScenario(t *testing.T) {
	scenarios := []types.Scenario{
		{Name: "a", Weight: 1},
		{Name: "b", Weight: 3},
	}
	sel := NewWeightedSelector(scenarios)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[sel.Select().Name] = true
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestWeightedSelectorPanicsOnNonPositiveWeight(t *testing.T) {
	assert.Panics(t, func() {
		NewWeightedSelector([]types.Scenario{{Name: "a", Weight: 0}})
	})
}

func TestRoundRobinSelectorCycles(t *testing.T) {
	scenarios := []types.Scenario{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	sel := NewRoundRobinSelector(scenarios)

	got := []string{sel.Select().Name, sel.Select().Name, sel.Select().Name, sel.Select().Name}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

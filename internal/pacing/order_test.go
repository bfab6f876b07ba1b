package pacing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderActionsPreservesDependentPairs(t *testing.T) {
	seq := []Action{
		{Class: ActionClick, Target: "#name"},
		{Class: ActionKeystroke, Target: "#name"},
		{Class: ActionClick, Target: "#email"},
		{Class: ActionKeystroke, Target: "#email"},
		{Class: ActionUpload, Target: "#resume", Barrier: true},
		{Class: ActionClick, Target: "#submit", Barrier: true},
	}

	// Many seeds, so swaps and filler insertions all get exercised.
	for seed := int64(0); seed < 50; seed++ {
		s := NewSampler(DefaultPolicy(), rand.New(rand.NewSource(seed)))
		out := s.OrderActions(seq)

		// Every original action survives, in multiset terms.
		var kept []Action
		for _, a := range out {
			if a.Class == ActionScroll && a.Target == "" {
				continue // filler
			}
			kept = append(kept, a)
		}
		assert.Len(t, kept, len(seq), "seed %d lost or duplicated actions", seed)

		// Click-before-type per target.
		for _, target := range []string{"#name", "#email"} {
			clickIdx, typeIdx := -1, -1
			for i, a := range kept {
				if a.Target != target {
					continue
				}
				if a.Class == ActionClick {
					clickIdx = i
				} else {
					typeIdx = i
				}
			}
			assert.Less(t, clickIdx, typeIdx, "seed %d reordered dependent pair on %s", seed, target)
		}

		// Barriers stay pinned at the tail in their original order.
		assert.True(t, kept[len(kept)-2].Barrier)
		assert.Equal(t, "#resume", kept[len(kept)-2].Target)
		assert.Equal(t, "#submit", kept[len(kept)-1].Target)
	}
}

func TestOrderActionsDeterministicForFixedSeed(t *testing.T) {
	seq := []Action{
		{Class: ActionKeystroke, Target: "#a"},
		{Class: ActionKeystroke, Target: "#b"},
		{Class: ActionKeystroke, Target: "#c"},
	}

	a := NewSampler(DefaultPolicy(), rand.New(rand.NewSource(9)))
	b := NewSampler(DefaultPolicy(), rand.New(rand.NewSource(9)))
	assert.Equal(t, a.OrderActions(seq), b.OrderActions(seq))
}

func TestOrderActionsEmptyAndSingle(t *testing.T) {
	s := NewSampler(DefaultPolicy(), rand.New(rand.NewSource(3)))

	assert.Empty(t, s.OrderActions(nil))

	single := []Action{{Class: ActionClick, Target: "#x"}}
	out := s.OrderActions(single)
	assert.Equal(t, single[0], out[0])
}

package pacing

// Action is one planned browser step. Target names the element the action
// touches; actions sharing a Target form a dependent pair and keep their
// relative order. Barrier actions (uploads, final submits) never move.
type Action struct {
	Class   ActionClass
	Target  string
	Barrier bool
}

// OrderActions returns a copy of seq with small human-like perturbations:
// adjacent independent actions may swap, and filler scroll actions may be
// inserted. Dependent pairs and barriers are never reordered, so the result
// is always semantically equivalent to the input.
func (s *Sampler) OrderActions(seq []Action) []Action {
	out := make([]Action, len(seq))
	copy(out, seq)

	for i := 0; i+1 < len(out); i++ {
		if !swappable(out[i], out[i+1]) {
			continue
		}
		if s.rng.Float64() < s.policy.SwapProbability {
			out[i], out[i+1] = out[i+1], out[i]
		}
	}

	// Insert filler scrolls after the perturbation pass so insertions cannot
	// enable an illegal swap.
	var withFiller []Action
	for i, a := range out {
		withFiller = append(withFiller, a)
		if i+1 < len(out) && s.rng.Float64() < s.policy.FillerProbability {
			withFiller = append(withFiller, Action{Class: ActionScroll})
		}
	}
	return withFiller
}

// swappable reports whether two adjacent actions are independent. Actions on
// the same target are ordered (focus before type, type before its click), and
// barriers pin everything around them.
func swappable(a, b Action) bool {
	if a.Barrier || b.Barrier {
		return false
	}
	if a.Target != "" && a.Target == b.Target {
		return false
	}
	return true
}

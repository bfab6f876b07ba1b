// Package pacing computes randomized, bounded delays and action-ordering
// jitter for browser-facing actions. It is a pure function of its policy and
// an injected random source, so a fixed seed replays identical sequences.
package pacing

import (
	"fmt"
	"math/rand"
	"time"
)

// ActionClass identifies the kind of externally observable browser action.
type ActionClass string

// Action classes with independently configured delay bounds
const (
	ActionNavigate  ActionClass = "navigate"
	ActionClick     ActionClass = "click"
	ActionKeystroke ActionClass = "keystroke"
	ActionUpload    ActionClass = "upload"
	ActionScroll    ActionClass = "scroll"
	// ActionReview models a human pausing to read a page before acting.
	ActionReview ActionClass = "review"
	// ActionGap is the idle period between two submissions.
	ActionGap ActionClass = "gap"
)

// Bounds is an inclusive [Min, Max] delay range for one action class.
type Bounds struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Policy configures delay bounds per action class plus typing jitter
// parameters. Immutable per run.
type Policy struct {
	Delays map[ActionClass]Bounds `json:"delays"`
	// ThinkProbability is the chance of an extra "thinking" pause after a
	// keystroke, drawn from the review bounds scaled down.
	ThinkProbability float64 `json:"think_probability"`
	// SwapProbability is the chance that two adjacent independent actions
	// are swapped by OrderActions.
	SwapProbability float64 `json:"swap_probability"`
	// FillerProbability is the chance of inserting a filler scroll between
	// two actions.
	FillerProbability float64 `json:"filler_probability"`
}

// DefaultPolicy returns bounds modeled on observed human interaction cadence.
func DefaultPolicy() *Policy {
	return &Policy{
		Delays: map[ActionClass]Bounds{
			ActionNavigate:  {Min: 2 * time.Second, Max: 5 * time.Second},
			ActionClick:     {Min: 500 * time.Millisecond, Max: 2500 * time.Millisecond},
			ActionKeystroke: {Min: 50 * time.Millisecond, Max: 180 * time.Millisecond},
			ActionUpload:    {Min: 1 * time.Second, Max: 3 * time.Second},
			ActionScroll:    {Min: 50 * time.Millisecond, Max: 200 * time.Millisecond},
			ActionReview:    {Min: 3 * time.Second, Max: 8 * time.Second},
			ActionGap:       {Min: 30 * time.Second, Max: 60 * time.Second},
		},
		ThinkProbability:  0.2,
		SwapProbability:   0.15,
		FillerProbability: 0.1,
	}
}

// Validate checks that every bound is non-negative and ordered.
func (p *Policy) Validate() error {
	for class, b := range p.Delays {
		if b.Min < 0 {
			return fmt.Errorf("pacing policy: negative min for %s", class)
		}
		if b.Max < b.Min {
			return fmt.Errorf("pacing policy: max < min for %s", class)
		}
	}
	return nil
}

// Sampler samples delays and orderings from a Policy using an injected
// random source. It holds no other state and knows nothing about job content.
type Sampler struct {
	policy *Policy
	rng    *rand.Rand
}

// NewSampler creates a Sampler. The caller owns the *rand.Rand; passing a
// fixed-seed source makes every sample deterministic.
func NewSampler(policy *Policy, rng *rand.Rand) *Sampler {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Sampler{policy: policy, rng: rng}
}

// DelayFor samples a duration within the configured bounds for the class.
// Unconfigured classes fall back to the click bounds.
func (s *Sampler) DelayFor(class ActionClass) time.Duration {
	b, ok := s.policy.Delays[class]
	if !ok {
		b = s.policy.Delays[ActionClick]
	}
	if b.Max <= b.Min {
		return b.Min
	}
	return b.Min + time.Duration(s.rng.Int63n(int64(b.Max-b.Min)+1))
}

// TypingDelays returns one delay per rune of text, with occasional longer
// "thinking" pauses mixed in, so callers can replay a human typing cadence.
func (s *Sampler) TypingDelays(text string) []time.Duration {
	runes := []rune(text)
	delays := make([]time.Duration, len(runes))
	for i := range runes {
		d := s.DelayFor(ActionKeystroke)
		if s.rng.Float64() < s.policy.ThinkProbability {
			d += s.DelayFor(ActionScroll) * 4
		}
		delays[i] = d
	}
	return delays
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalStates(t *testing.T) {
	terminal := []State{StateFilteredRejected, StateSubmitted, StateFailed, StateSkipped}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	active := []State{StateDiscovered, StateFilteredAccepted, StateContentReady, StateSubmitting}
	for _, s := range active {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from State
		to   State
		ok   bool
	}{
		{StateDiscovered, StateFilteredAccepted, true},
		{StateDiscovered, StateFilteredRejected, true},
		{StateDiscovered, StateSubmitting, false},
		{StateFilteredAccepted, StateContentReady, true},
		{StateFilteredAccepted, StateFailed, true},
		{StateContentReady, StateSubmitting, true},
		{StateContentReady, StateSubmitted, false},
		{StateSubmitting, StateSubmitted, true},
		{StateSubmitting, StateFailed, true},
		{StateSubmitting, StateContentReady, false},
		// A retryable failure re-enters the queue.
		{StateFailed, StateContentReady, true},
		// Terminal rest states never move forward.
		{StateSubmitted, StateFailed, false},
		{StateFilteredRejected, StateFilteredAccepted, false},
		{StateSkipped, StateContentReady, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

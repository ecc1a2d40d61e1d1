package dice_test

import (
	"sync"
	"testing"

	"github.com/cory-johannsen/diceengine/internal/dice"
)

// scriptedSource replays fixed die faces in order.
type scriptedSource struct {
	t     testing.TB
	mu    sync.Mutex
	faces []int
	next  int
}

func newScriptedSource(t testing.TB, faces ...int) *scriptedSource {
	return &scriptedSource{t: t, faces: faces}
}

func (s *scriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.faces) {
		s.t.Fatalf("scriptedSource exhausted after %d draws", len(s.faces))
	}
	f := s.faces[s.next]
	s.next++
	if f < 1 || f > n {
		s.t.Fatalf("scripted face %d outside [1, %d]", f, n)
	}
	return f - 1
}

// countingSource wraps a Source and counts draws.
type countingSource struct {
	mu    sync.Mutex
	inner dice.Source
	calls int
}

func (c *countingSource) Intn(n int) int {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Intn(n)
}

func (c *countingSource) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newEngine(src dice.Source) *dice.Engine {
	return dice.NewEngine(dice.DefaultLimits(), src)
}

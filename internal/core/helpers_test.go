package core

import (
	"sync"
	"testing"

	"simcore/pkg/domain"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) record(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, prefix+msg)
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.record("d:", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.record("i:", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.record("w:", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.record("e:", msg) }

func (c *captureLogger) has(call string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

func nodeView(name string, filters ...domain.DataFilter) domain.View {
	v := domain.NewView(name, domain.KindNode, domain.AccessRead)
	v.SetFilters(filters)
	return v
}

func mustNode(t *testing.T, s *System, x, y, z float64, views ...domain.View) *Node {
	t.Helper()
	n, err := s.AddNode(domain.Point{X: x, Y: y, Z: z}, views...)
	if err != nil {
		t.Fatalf("add node: %v", err)
	}
	return n
}

func ids[T Component](items []T) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID())
	}
	return out
}

package core

import (
	"errors"
	"testing"

	"simcore/pkg/domain"
)

func TestRestoreKeepsGivenIDs(t *testing.T) {
	s := NewSystem(WithSystemID("root"))
	if s.ID() != "root" || s.LineageID() != "root" {
		t.Fatalf("unexpected root identity %s %s", s.ID(), s.LineageID())
	}
	n := NewNode(1, 2, 3)
	if err := s.Restore(n, "n1", nodeView("V")); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n.ID() != "n1" || s.Node("n1") != n || !s.DataViewer("V").Contains("n1") {
		t.Fatalf("restored node not reachable under its id")
	}
	sub, err := s.RestoreSubSystem("sub1")
	if err != nil {
		t.Fatalf("restore subsystem: %v", err)
	}
	if sub.ID() != "sub1" || sub.LineageID() != "sub1" || s.SubSystem("sub1") != sub {
		t.Fatalf("restored subsystem identity %s %s", sub.ID(), sub.LineageID())
	}
}

func TestRejectedRestoreLeavesComponentUntouched(t *testing.T) {
	s := NewSystem()
	existing := mustNode(t, s, 0, 0, 0)

	n := NewNode(1, 1, 1)
	before := n.ID()
	if err := s.Restore(n, existing.ID()); !errors.Is(err, domain.ErrOwnershipConflict) {
		t.Fatalf("expected ErrOwnershipConflict, got %v", err)
	}
	if n.ID() != before || n.OwnerID() != "" {
		t.Fatalf("rejected node changed identity: %s owner %q", n.ID(), n.OwnerID())
	}

	e := NewEdge(existing.ID(), "ghost")
	before = e.ID()
	if err := s.Restore(e, "e1"); !errors.Is(err, domain.ErrStructuralViolation) {
		t.Fatalf("expected ErrStructuralViolation, got %v", err)
	}
	if e.ID() != before || s.Edge("e1") != nil {
		t.Fatalf("rejected edge changed identity or landed in the system")
	}

	sub := NewSystem()
	id, lineage := sub.ID(), sub.LineageID()
	if err := s.Restore(sub, existing.ID()); err == nil {
		t.Fatalf("expected duplicate id rejection")
	}
	if sub.ID() != id || sub.LineageID() != lineage {
		t.Fatalf("rejected subsystem changed identity: %s %s", sub.ID(), sub.LineageID())
	}

	if err := s.Restore(nil, "x"); !errors.Is(err, domain.ErrStructuralViolation) {
		t.Fatalf("expected ErrStructuralViolation for nil, got %v", err)
	}
}

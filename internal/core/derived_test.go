package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"simcore/pkg/domain"
)

func TestSuccessorReadsThroughUntilMigrated(t *testing.T) {
	s := NewSystem()
	n1 := mustNode(t, s, 1, 2, 3)
	if err := n1.ChangeAttribute("h", domain.DoubleValue(1)); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	d := s.CreateSuccessor()

	got := d.Node(n1.ID())
	if got == nil || got.Position() != n1.Position() {
		t.Fatalf("successor should see the predecessor node")
	}
	if d.Migrated(n1.ID()) || d.Owns(n1.ID()) {
		t.Fatalf("lookup must not migrate")
	}
	if err := got.SetPosition(domain.Point{X: 9}); !errors.Is(err, domain.ErrSealed) {
		t.Fatalf("predecessor node must be read-only, got %v", err)
	}

	m, err := d.MutableNode(n1.ID())
	if err != nil || m == nil {
		t.Fatalf("mutable node: %v", err)
	}
	if m == n1 || m.ID() != n1.ID() {
		t.Fatalf("migration must copy and keep the id")
	}
	if err := m.SetPosition(domain.Point{X: 9, Y: 9, Z: 9}); err != nil {
		t.Fatalf("set position: %v", err)
	}
	if err := m.ChangeAttribute("h", domain.DoubleValue(2)); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if n1.Position() != (domain.Point{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("predecessor node changed: %+v", n1.Position())
	}
	if v, _ := n1.AttributeValue("h"); v.Double() != 1 {
		t.Fatalf("predecessor attribute changed: %v", v.Double())
	}
	if d.Node(n1.ID()) != m || !d.Migrated(n1.ID()) {
		t.Fatalf("successor should resolve to its local copy")
	}
	if again, _ := d.MutableNode(n1.ID()); again != m {
		t.Fatalf("migration must happen once")
	}
	if m.OwnerID() != d.ID() {
		t.Fatalf("copy owner %s, want %s", m.OwnerID(), d.ID())
	}
}

func TestSealedPredecessorRejectsChanges(t *testing.T) {
	s := NewSystem()
	n := mustNode(t, s, 0, 0, 0)
	sub, err := s.AddSubSystem()
	if err != nil {
		t.Fatalf("subsystem: %v", err)
	}
	d := s.CreateSuccessor()

	if !s.Sealed() || !sub.Sealed() || d.Sealed() {
		t.Fatalf("unexpected sealed flags %v %v %v", s.Sealed(), sub.Sealed(), d.Sealed())
	}
	checks := map[string]error{
		"add node":      func() error { _, err := s.AddNode(domain.Point{}); return err }(),
		"remove":        func() error { _, err := s.RemoveChild(n.ID()); return err }(),
		"attribute":     n.ChangeAttribute("x", domain.DoubleValue(1)),
		"nested add":    func() error { _, err := sub.AddEntity(); return err }(),
		"system attr":   s.ChangeAttribute("x", domain.DoubleValue(1)),
		"mutable":       func() error { _, err := s.Mutable(n.ID()); return err }(),
		"viewer":        func() error { _, err := s.AddDataViewer(nodeView("v")); return err }(),
		"remove viewer": func() error { _, err := s.RemoveDataViewer("v"); return err }(),
	}
	for name, err := range checks {
		if !errors.Is(err, domain.ErrSealed) {
			t.Fatalf("%s: expected ErrSealed, got %v", name, err)
		}
	}

	local, err := d.MutableSubSystem(sub.ID())
	if err != nil || local == nil || local == sub {
		t.Fatalf("mutable subsystem: %v", err)
	}
	if _, err := local.AddEntity(); err != nil {
		t.Fatalf("migrated subsystem should accept changes: %v", err)
	}
	if len(sub.Entities()) != 0 {
		t.Fatalf("predecessor subsystem changed")
	}
}

func TestSuccessorRemovalUsesTombstones(t *testing.T) {
	s := NewSystem()
	v := nodeView("V")
	n1 := mustNode(t, s, 0, 0, 0, v)
	n2 := mustNode(t, s, 1, 0, 0, v)
	d := s.CreateSuccessor()

	if ok, err := d.RemoveChild(n2.ID()); !ok || err != nil {
		t.Fatalf("remove: %v %v", ok, err)
	}
	if d.Node(n2.ID()) != nil {
		t.Fatalf("removed node still visible in successor")
	}
	if s.Node(n2.ID()) != n2 {
		t.Fatalf("predecessor lost its node")
	}
	if diff := cmp.Diff([]string{n1.ID()}, ids(d.Nodes())); diff != "" {
		t.Fatalf("successor nodes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{n1.ID()}, d.IDsInView("V")); diff != "" {
		t.Fatalf("successor view (-want +got):\n%s", diff)
	}
	if got := len(s.IDsInView("V")); got != 2 {
		t.Fatalf("predecessor view changed, has %d ids", got)
	}

	d2 := d.CreateSuccessor()
	if d2.Node(n2.ID()) != nil || d2.Node(n1.ID()) != n1 {
		t.Fatalf("second generation must honour tombstones and fall through")
	}
}

func TestSuccessorEdgesMigrateEndpoints(t *testing.T) {
	s := NewSystem()
	a := mustNode(t, s, 0, 0, 0)
	b := mustNode(t, s, 1, 0, 0)
	d := s.CreateSuccessor()

	e, err := d.AddEdge(a.ID(), b.ID())
	if err != nil {
		t.Fatalf("add edge: %v", err)
	}
	if !d.Owns(a.ID()) || !d.Owns(b.ID()) {
		t.Fatalf("endpoints should be migrated")
	}
	if len(a.EdgeIDs()) != 0 {
		t.Fatalf("predecessor node gained an edge ref")
	}
	if got := d.EdgeBetween(a.ID(), b.ID()); got != e {
		t.Fatalf("edge lookup failed in successor")
	}
	if s.EdgeBetween(a.ID(), b.ID()) != nil {
		t.Fatalf("edge leaked into predecessor")
	}
	if ok, _ := d.RemoveChild(a.ID()); !ok || d.Edge(e.ID()) != nil {
		t.Fatalf("node removal should cascade in successor")
	}
}

func TestSuccessorFaceRemovalDropsHoleFromFallThroughFaces(t *testing.T) {
	s := NewSystem()
	a := mustNode(t, s, 0, 0, 0)
	b := mustNode(t, s, 4, 0, 0)
	c := mustNode(t, s, 4, 4, 0)
	outer, err := s.AddFace([]string{a.ID(), b.ID(), c.ID()})
	if err != nil {
		t.Fatalf("outer: %v", err)
	}
	hole, err := s.AddFace([]string{a.ID(), b.ID(), c.ID()})
	if err != nil {
		t.Fatalf("hole: %v", err)
	}
	if err := outer.AddHole(hole.ID()); err != nil {
		t.Fatalf("add hole: %v", err)
	}
	d := s.CreateSuccessor()

	if ok, err := d.RemoveChild(hole.ID()); !ok || err != nil {
		t.Fatalf("remove: %v %v", ok, err)
	}
	got := d.Face(outer.ID())
	if got == nil || got == outer || !d.Owns(outer.ID()) {
		t.Fatalf("outer face should migrate when its hole goes away")
	}
	if len(got.HoleIDs()) != 0 {
		t.Fatalf("successor face still lists hole %v", got.HoleIDs())
	}
	if diff := cmp.Diff([]string{hole.ID()}, outer.HoleIDs()); diff != "" {
		t.Fatalf("predecessor holes changed (-want +got):\n%s", diff)
	}
}

func TestSuccessorEdgeRemovalDropsRefFromFallThroughNodes(t *testing.T) {
	s := NewSystem()
	a := mustNode(t, s, 0, 0, 0)
	b := mustNode(t, s, 1, 0, 0)
	e, err := s.AddEdge(a.ID(), b.ID())
	if err != nil {
		t.Fatalf("edge: %v", err)
	}
	d := s.CreateSuccessor()

	if ok, err := d.RemoveChild(e.ID()); !ok || err != nil {
		t.Fatalf("remove: %v %v", ok, err)
	}
	for _, n := range []*Node{a, b} {
		if got := d.Node(n.ID()).EdgeIDs(); len(got) != 0 {
			t.Fatalf("successor node %s still lists edges %v", n.ID(), got)
		}
		if diff := cmp.Diff([]string{e.ID()}, n.EdgeIDs()); diff != "" {
			t.Fatalf("predecessor node edges changed (-want +got):\n%s", diff)
		}
	}
}

func TestWritingViewerMigratesMembers(t *testing.T) {
	s := NewSystem()
	w := domain.NewView("W", domain.KindNode, domain.AccessWrite)
	w.AddAttribute("h", domain.TypeDouble)
	r := nodeView("R")
	n1 := mustNode(t, s, 0, 0, 0, w, r)
	n2 := mustNode(t, s, 1, 0, 0, w, r)
	d := s.CreateSuccessor()

	reads := d.DataViewer("R").Components()
	if reads[0] != Component(n1) || d.Migrated(n1.ID()) {
		t.Fatalf("reading view must not migrate")
	}
	writes := d.DataViewer("W").Components()
	if len(writes) != 2 {
		t.Fatalf("expected 2 components, got %d", len(writes))
	}
	for i, orig := range []*Node{n1, n2} {
		if writes[i] == Component(orig) || writes[i].ID() != orig.ID() || !d.Owns(orig.ID()) {
			t.Fatalf("member %d not migrated", i)
		}
		if err := writes[i].ChangeAttribute("h", domain.DoubleValue(float64(i))); err != nil {
			t.Fatalf("write through view: %v", err)
		}
	}
	if n1.HasAttribute("h") || n2.HasAttribute("h") {
		t.Fatalf("predecessor nodes changed")
	}
}

func TestSuccessorCopyAndLineage(t *testing.T) {
	s := NewSystem()
	if err := s.ChangeAttribute("run", domain.StringValue("r1")); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	n := mustNode(t, s, 0, 0, 0)
	d := s.CreateSuccessor()
	d2 := d.CreateSuccessor()

	if d.ID() == s.ID() || d.LineageID() != s.ID() || d2.LineageID() != s.ID() {
		t.Fatalf("successors need fresh ids and the root lineage")
	}
	if s.Generation() != 0 || d.Generation() != 1 || d2.Generation() != 2 {
		t.Fatalf("generations %d %d %d", s.Generation(), d.Generation(), d2.Generation())
	}
	if d2.Predecessor() != d || len(d.Predecessors()) != 1 || len(s.Predecessors()) != 0 {
		t.Fatalf("predecessor links broken")
	}
	if succ := s.Successors(); len(succ) != 1 || succ[0] != d {
		t.Fatalf("successor links broken")
	}
	if v, ok := d2.AttributeValue("run"); !ok || v.String() != "r1" {
		t.Fatalf("system attributes should carry over")
	}

	if _, err := d.SuccessorCopy(n); !errors.Is(err, domain.ErrSealed) {
		t.Fatalf("sealed successor must refuse migration, got %v", err)
	}
	c1, err := d2.SuccessorCopy(n)
	if err != nil {
		t.Fatalf("successor copy: %v", err)
	}
	c2, err := d2.SuccessorCopy(n)
	if err != nil || c1 != c2 {
		t.Fatalf("successor copy must be idempotent")
	}
	if _, err := d2.SuccessorCopy(NewNode(0, 0, 0)); !errors.Is(err, domain.ErrStructuralViolation) {
		t.Fatalf("expected rejection of foreign component, got %v", err)
	}
	if got, err := d2.Mutable("missing"); got != nil || err != nil {
		t.Fatalf("missing id should give nil, nil; got %v %v", got, err)
	}
	if got, err := d2.MutableEdge(n.ID()); got != nil || err != nil {
		t.Fatalf("kind mismatch should give nil, nil; got %v %v", got, err)
	}
}

func TestSuccessorInheritsViewers(t *testing.T) {
	s := NewSystem()
	v := nodeView("V", xAbove5)
	mustNode(t, s, 0, 0, 0, v)
	n2 := mustNode(t, s, 10, 0, 0, v)
	d := s.CreateSuccessor()

	dv := d.DataViewer("V")
	if dv == nil || dv == s.DataViewer("V") {
		t.Fatalf("successor needs its own viewer")
	}
	if diff := cmp.Diff([]string{n2.ID()}, dv.IDs()); diff != "" {
		t.Fatalf("inherited filtered list (-want +got):\n%s", diff)
	}
	m, err := d.MutableNode(n2.ID())
	if err != nil {
		t.Fatalf("mutable: %v", err)
	}
	if err := m.SetPosition(domain.Point{X: 1}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if dv.Contains(n2.ID()) {
		t.Fatalf("successor viewer should refilter the local copy")
	}
	if !s.DataViewer("V").Contains(n2.ID()) {
		t.Fatalf("predecessor viewer changed")
	}
}

package core

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"simcore/internal/infra/persistence"
	"simcore/internal/infra/persistence/memory"
	"simcore/pkg/domain"
)

type journalEntry struct {
	Delete bool
	Kind   domain.RecordKind
	ID     string
}

func entries(store *memory.Store) []journalEntry {
	var out []journalEntry
	for _, op := range store.Journal() {
		out = append(out, journalEntry{Delete: op.Delete, Kind: op.Record.Kind, ID: op.Record.ID})
	}
	return out
}

func TestPersistHookSeesStructuralAndAttributeChanges(t *testing.T) {
	store := memory.NewStore()
	s := NewSystem(WithPersistHook(persistence.NewHook(store, nil)))
	a := mustNode(t, s, 0, 0, 0)
	b := mustNode(t, s, 1, 0, 0)
	if err := a.ChangeAttribute("h", domain.DoubleValue(2.5)); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	e, err := s.AddEdge(a.ID(), b.ID())
	if err != nil {
		t.Fatalf("edge: %v", err)
	}
	if _, err := s.RemoveChild(a.ID()); err != nil {
		t.Fatalf("remove: %v", err)
	}

	attrID := domain.AttributeRecordID(a.ID(), "h")
	want := []journalEntry{
		{Kind: domain.RecordSystem, ID: s.ID()},
		{Kind: domain.RecordNode, ID: a.ID()},
		{Kind: domain.RecordNode, ID: b.ID()},
		{Kind: domain.RecordAttribute, ID: attrID},
		{Kind: domain.RecordEdge, ID: e.ID()},
		{Delete: true, Kind: domain.RecordEdge, ID: e.ID()},
		{Delete: true, Kind: domain.RecordAttribute, ID: attrID},
		{Delete: true, Kind: domain.RecordNode, ID: a.ID()},
	}
	if diff := cmp.Diff(want, entries(store)); diff != "" {
		t.Fatalf("hook call sequence (-want +got):\n%s", diff)
	}
}

func TestAttributeRecordCarriesBinaryValue(t *testing.T) {
	store := memory.NewStore()
	s := NewSystem(WithPersistHook(persistence.NewHook(store, nil)))
	e, err := s.AddEntity()
	if err != nil {
		t.Fatalf("entity: %v", err)
	}
	ts, err := domain.TimeSeriesValue([]string{"2024-01-01", "2024-01-02"}, []float64{1, 2})
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if err := e.ChangeAttribute("flow", ts); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if !e.Attribute("flow").Persisted() {
		t.Fatalf("attribute should be marked persisted")
	}
	rec, ok, err := store.Get(context.Background(), domain.RecordAttribute, domain.AttributeRecordID(e.ID(), "flow"))
	if err != nil || !ok {
		t.Fatalf("attribute record missing: %v", err)
	}
	if rec.OwnerID != e.ID() || rec.Fields["type"] != "TIMESERIES" || rec.Fields["name"] != "flow" {
		t.Fatalf("unexpected record %+v", rec)
	}
	var decoded domain.Value
	if err := decoded.UnmarshalBinary(rec.Fields["value"].([]byte)); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(ts) {
		t.Fatalf("decoded value differs")
	}
}

func TestPersistHookRecordsLineage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := NewSystem(WithPersistHook(persistence.NewHook(store, nil)))
	n := mustNode(t, s, 0, 0, 0)
	d := s.CreateSuccessor()

	pred, _, _ := store.Get(ctx, domain.RecordSystem, s.ID())
	if pred.Fields["sealed"] != true {
		t.Fatalf("predecessor record should be sealed: %+v", pred.Fields)
	}
	if diff := cmp.Diff([]string{d.ID()}, pred.Fields["successors"]); diff != "" {
		t.Fatalf("successors (-want +got):\n%s", diff)
	}
	succ, ok, _ := store.Get(ctx, domain.RecordSystem, d.ID())
	if !ok || succ.Fields["generation"] != 1 || succ.Fields["lineage"] != s.ID() {
		t.Fatalf("successor record %+v", succ.Fields)
	}
	if diff := cmp.Diff([]string{s.ID()}, succ.Fields["predecessors"]); diff != "" {
		t.Fatalf("predecessors (-want +got):\n%s", diff)
	}

	if _, err := d.MutableNode(n.ID()); err != nil {
		t.Fatalf("mutable: %v", err)
	}
	rec, _, _ := store.Get(ctx, domain.RecordNode, n.ID())
	if rec.OwnerID != d.ID() {
		t.Fatalf("migrated node should be persisted under the successor, owner %s", rec.OwnerID)
	}
}

func TestNestedSystemRemovalDeletesDescendants(t *testing.T) {
	store := memory.NewStore()
	s := NewSystem(WithPersistHook(persistence.NewHook(store, nil)))
	sub, err := s.AddSubSystem()
	if err != nil {
		t.Fatalf("subsystem: %v", err)
	}
	inner := mustNode(t, sub, 0, 0, 0)
	if _, err := s.RemoveChild(sub.ID()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("only the root record should remain, got %d", store.Len())
	}
	if _, ok, _ := store.Get(context.Background(), domain.RecordNode, inner.ID()); ok {
		t.Fatalf("nested node record survived")
	}
}

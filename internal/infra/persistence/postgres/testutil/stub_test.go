package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBStoresAndQueriesRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	insert := "INSERT INTO records(kind,id,owner) VALUES($1,$2,$3) ON CONFLICT(kind,id) DO UPDATE SET owner=EXCLUDED.owner"
	for _, owner := range []string{"a", "b"} {
		if _, err := conn.ExecContext(ctx, insert, []driver.NamedValue{{Value: "node"}, {Value: "n1"}, {Value: owner}}); err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if _, err := conn.ExecContext(ctx, insert, []driver.NamedValue{{Value: "edge"}, {Value: "n1"}, {Value: "c"}}); err != nil {
		t.Fatalf("ExecContext insert: %v", err)
	}
	if got := len(conn.Rows("records")); got != 2 {
		t.Fatalf("expected conflicting insert to replace, got %d rows", got)
	}

	rows, err := conn.QueryContext(ctx, "SELECT owner FROM records WHERE kind=$1 AND id=$2", []driver.NamedValue{{Value: "node"}, {Value: "n1"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "b" {
		t.Fatalf("expected latest owner, got %v", dest[0])
	}
	_ = rows.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM records WHERE kind=$1 AND id=$2", []driver.NamedValue{{Value: "edge"}, {Value: "n1"}}); err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	left := conn.Rows("records")
	if len(left) != 1 || left[0]["kind"] != "node" {
		t.Fatalf("unexpected rows after delete: %v", left)
	}
}

// Package testutil provides a stub database for postgres store tests. It
// understands the handful of statement shapes the store issues: inserts with
// an ON CONFLICT key, deletes and selects with equality predicates joined by
// AND.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq atomic.Int64

// StubConn records statements and keeps table rows in memory.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailPing   bool
	RowsErr    error
	FailTables map[string]bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Rows returns a copy of the rows of table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.Tables[table]))
	for _, row := range c.Tables[table] {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		table, cols, conflict, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if c.FailTables[table] {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		if len(conflict) > 0 {
			keep := c.Tables[table][:0:0]
			for _, existing := range c.Tables[table] {
				if !sameKey(existing, row, conflict) {
					keep = append(keep, existing)
				}
			}
			c.Tables[table] = keep
		}
		c.Tables[table] = append(c.Tables[table], row)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, where, err := parseDelete(query)
		if err != nil {
			return nil, err
		}
		if c.FailTables[table] {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		if len(args) < len(where) {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		var keep []map[string]any
		var n int64
		for _, row := range c.Tables[table] {
			if matches(row, where, args) {
				n++
				continue
			}
			keep = append(keep, row)
		}
		c.Tables[table] = keep
		return driver.RowsAffected(n), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table, cols, where, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	if len(args) < len(where) {
		return nil, fmt.Errorf("missing args for select %s", table)
	}
	var values [][]driver.Value
	for _, row := range c.Tables[table] {
		if !matches(row, where, args) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func sameKey(a, b map[string]any, cols []string) bool {
	for _, col := range cols {
		if fmt.Sprint(a[col]) != fmt.Sprint(b[col]) {
			return false
		}
	}
	return true
}

func matches(row map[string]any, where []string, args []driver.NamedValue) bool {
	for i, col := range where {
		if fmt.Sprint(row[col]) != fmt.Sprint(args[i].Value) {
			return false
		}
	}
	return true
}

func parseInsert(query string) (string, []string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	cols := splitColumns(rest[open+1:closeIdx], ",")
	var conflict []string
	if idx := strings.Index(up, "ON CONFLICT"); idx != -1 {
		tail := query[idx+len("ON CONFLICT"):]
		o, c := strings.Index(tail, "("), strings.Index(tail, ")")
		if o == -1 || c <= o {
			return "", nil, nil, fmt.Errorf("cannot parse conflict target: %s", query)
		}
		conflict = splitColumns(tail[o+1:c], ",")
	}
	return table, cols, conflict, nil
}

func parseDelete(query string) (string, []string, error) {
	rest := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToLower(rest), "delete from ") {
		return "", nil, fmt.Errorf("cannot parse delete: %s", query)
	}
	rest = strings.TrimSpace(rest[len("delete from "):])
	whereIdx := strings.Index(strings.ToLower(rest), " where ")
	if whereIdx == -1 {
		return strings.ToLower(rest), nil, nil
	}
	table := strings.ToLower(strings.TrimSpace(rest[:whereIdx]))
	where, err := parseWhere(rest[whereIdx+len(" where "):])
	if err != nil {
		return "", nil, fmt.Errorf("cannot parse delete predicate: %s", query)
	}
	return table, where, nil
}

func parseSelect(query string) (string, []string, []string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(lower, "select ") {
		return "", nil, nil, fmt.Errorf("cannot parse select: %s", query)
	}
	query = strings.TrimSpace(query)
	fromIdx := strings.Index(lower, " from ")
	if fromIdx == -1 {
		return "", nil, nil, fmt.Errorf("cannot parse select: %s", query)
	}
	cols := splitColumns(query[len("select "):fromIdx], ",")
	rest := strings.TrimSpace(query[fromIdx+len(" from "):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, nil, fmt.Errorf("cannot parse select: %s", query)
	}
	table := strings.ToLower(fields[0])
	var where []string
	if idx := strings.Index(strings.ToLower(rest), " where "); idx != -1 {
		var err error
		if where, err = parseWhere(rest[idx+len(" where "):]); err != nil {
			return "", nil, nil, fmt.Errorf("cannot parse select predicate: %s", query)
		}
	}
	return table, cols, where, nil
}

// parseWhere returns the columns of "a=$1 AND b=$2" in placeholder order.
func parseWhere(raw string) ([]string, error) {
	var cols []string
	for _, part := range splitColumns(raw, " and ") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("bad predicate %q", part)
		}
		cols = append(cols, strings.TrimSpace(kv[0]))
	}
	return cols, nil
}

func splitColumns(raw, sep string) []string {
	parts := strings.Split(strings.ToLower(raw), sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}

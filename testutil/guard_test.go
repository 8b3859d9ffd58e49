package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		in   string
		want bool
	}{
		{DomainImportForbidden, "simcore/pkg/domain", true},
		{DomainImportForbidden, "example.com/pkg/domain@v1.2.3", true},
		{DomainImportForbidden, "example.com/pkg/domain/sub", false},
		{DomainImportForbidden, "example.com/pkg/domainutil", false},
		{InternalImportForbidden, "simcore/internal/core", true},
		{InternalImportForbidden, "example.com/internal", false},
		{InternalImportForbidden, "notinternal", false},
		{BackendImportForbidden, "simcore/internal/infra/blob/s3", true},
		{BackendImportForbidden, "simcore/internal/blob", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Errorf("predicate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\talias \"simcore/internal/infra/blob/fs\"\n)\nvar _ = fmt.Sprint\nvar _ = alias.New\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"simcore/internal/infra/persistence/memory\"\n")
	writeFile(t, dir, "notes.txt", "import \"simcore/internal/infra/x\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"simcore/internal/infra/y\"\n")

	viols, err := directImportViolations(dir, BackendImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "simcore/internal/infra/blob/fs (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}

	var rec recordingFatal
	failIfDirectViolations(&rec, "backends", viols)
	if !strings.Contains(rec.msg, "backends") || !strings.Contains(rec.msg, "a.go") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}
	AssertNoDirectImports(t, dir, func(p string) bool { return p == "unused/pkg" }, "none")
}

func TestDirectImportViolationsReportsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestTransitiveViolationMessage(t *testing.T) {
	var rec recordingFatal
	failIfTransitiveViolations(&rec, "none", nil)
	if rec.msg != "" {
		t.Fatalf("no violations must not fail")
	}
	failIfTransitiveViolations(&rec, "layering", []string{"a/b", "c/d"})
	if !strings.Contains(rec.msg, "layering") || !strings.Contains(rec.msg, "a/b\nc/d") {
		t.Fatalf("unexpected failure message %q", rec.msg)
	}
}

// TestDomainHasNoInternalDependencies guards the layering of the whole module:
// the value types must never pull in engine or backend packages.
func TestDomainHasNoInternalDependencies(t *testing.T) {
	AssertNoTransitiveDependency(t, "simcore/pkg/domain", InternalImportForbidden, "domain must stay free of internal packages")
}

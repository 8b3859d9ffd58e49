package core

import (
	"go/types"
	"sort"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestRecordStoreImplementationsAreSanctioned ensures concrete domain.RecordStore
// implementations live only in the vetted backend packages. Adding a backend
// means updating the allowed list on purpose.
func TestRecordStoreImplementationsAreSanctioned(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes}
	pkgs, err := packages.Load(cfg, "simcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var store *types.Interface
	for _, p := range pkgs {
		if p.PkgPath != "simcore/pkg/domain" {
			continue
		}
		obj := p.Types.Scope().Lookup("RecordStore")
		if obj == nil {
			t.Fatalf("domain.RecordStore not found")
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			t.Fatalf("domain.RecordStore is not an interface")
		}
		store = iface
	}
	if store == nil {
		t.Fatalf("failed to resolve RecordStore interface")
	}

	allowed := map[string]struct{}{
		"simcore/internal/infra/persistence/memory":   {},
		"simcore/internal/infra/persistence/sqlite":   {},
		"simcore/internal/infra/persistence/postgres": {},
		"simcore/internal/infra/persistence/badger":   {},
	}
	var unexpected []string
	found := make(map[string]bool)
	for _, p := range pkgs {
		if p.Types == nil {
			continue
		}
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			named, ok := scope.Lookup(name).Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if !types.Implements(types.NewPointer(named), store) {
				continue
			}
			if _, ok := allowed[p.PkgPath]; !ok {
				unexpected = append(unexpected, p.PkgPath+"."+name)
				continue
			}
			found[p.PkgPath] = true
		}
	}
	sort.Strings(unexpected)
	if len(unexpected) > 0 {
		t.Fatalf("unexpected RecordStore implementations (extend the allowed list when adding a backend):\n%v", unexpected)
	}
	for pkg := range allowed {
		if !found[pkg] {
			t.Errorf("backend %s no longer implements domain.RecordStore", pkg)
		}
	}
}

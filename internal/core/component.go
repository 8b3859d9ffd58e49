package core

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"

	"simcore/pkg/domain"
)

// Component is a node of the ownership tree. The implementations are fixed:
// *Node, *Edge, *Face, *RasterData, *System and *Entity; callers dispatch on
// the concrete type with a type switch.
//
// Attribute reads return snapshot copies. Changes go through AddAttribute,
// ChangeAttribute and RemoveAttribute so the owning system can persist them
// and keep its data viewers filtered.
type Component interface {
	ID() string
	Kind() domain.Kind
	OwnerID() string
	Attribute(name string) *domain.Attribute
	AttributeValue(name string) (domain.Value, bool)
	Attributes() []*domain.Attribute
	AttributeNames() []string
	HasAttribute(name string) bool
	AddAttribute(a *domain.Attribute) error
	ChangeAttribute(name string, v domain.Value) error
	RemoveAttribute(name string) (bool, error)

	base() *componentBase
	recordFields() map[string]any
}

type componentBase struct {
	id         string
	kind       domain.Kind
	owner      string
	host       atomic.Pointer[System]
	self       Component
	attributes map[string]*domain.Attribute
}

func newBase(kind domain.Kind) componentBase {
	return componentBase{
		id:         uuid.NewString(),
		kind:       kind,
		attributes: make(map[string]*domain.Attribute),
	}
}

func (b *componentBase) base() *componentBase { return b }

// ID returns the stable identity assigned at construction.
func (b *componentBase) ID() string { return b.id }

// Kind returns the component variant.
func (b *componentBase) Kind() domain.Kind { return b.kind }

// OwnerID returns the id of the owning system or "" while detached.
func (b *componentBase) OwnerID() string {
	defer b.rlock()()
	return b.owner
}

// hostSystem returns the system whose lock guards b, or nil while detached.
// Ownership changes store it under that system's write lock; readers load it
// before they lock.
func (b *componentBase) hostSystem() *System { return b.host.Load() }

func (b *componentBase) setHost(s *System) { b.host.Store(s) }

func (b *componentBase) rlock() func() {
	if h := b.hostSystem(); h != nil {
		h.mu.RLock()
		return h.mu.RUnlock
	}
	return func() {}
}

// mutate runs fn under the write lock of the system guarding b. Detached
// components are mutated without locking and fn receives a nil system.
func (b *componentBase) mutate(fn func(h *System) error) error {
	for {
		h := b.hostSystem()
		if h == nil {
			return fn(nil)
		}
		h.mu.Lock()
		if b.hostSystem() != h {
			h.mu.Unlock()
			continue
		}
		if h.sealed {
			h.mu.Unlock()
			return fmt.Errorf("%w: %s %s", domain.ErrSealed, b.kind, b.id)
		}
		err := fn(h)
		h.mu.Unlock()
		return err
	}
}

// Attribute returns a copy of the named attribute or nil.
func (b *componentBase) Attribute(name string) *domain.Attribute {
	defer b.rlock()()
	a, ok := b.attributes[name]
	if !ok {
		return nil
	}
	out := a.Clone()
	out.Bind(b.id)
	return out
}

// AttributeValue returns a copy of the named value.
func (b *componentBase) AttributeValue(name string) (domain.Value, bool) {
	defer b.rlock()()
	a, ok := b.attributes[name]
	if !ok {
		return domain.Value{}, false
	}
	return a.Value(), true
}

// Attributes returns copies of all attributes sorted by name.
func (b *componentBase) Attributes() []*domain.Attribute {
	defer b.rlock()()
	out := make([]*domain.Attribute, 0, len(b.attributes))
	for _, name := range b.attributeNamesLocked() {
		a := b.attributes[name].Clone()
		a.Bind(b.id)
		out = append(out, a)
	}
	return out
}

// AttributeNames returns the attribute names sorted.
func (b *componentBase) AttributeNames() []string {
	defer b.rlock()()
	return b.attributeNamesLocked()
}

func (b *componentBase) attributeNamesLocked() []string {
	names := make([]string, 0, len(b.attributes))
	for name := range b.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasAttribute reports whether the named attribute exists.
func (b *componentBase) HasAttribute(name string) bool {
	defer b.rlock()()
	_, ok := b.attributes[name]
	return ok
}

// AddAttribute stores a copy of a. An existing attribute of the same name keeps
// its identity and takes the new value.
func (b *componentBase) AddAttribute(a *domain.Attribute) error {
	if a == nil || a.Name() == "" {
		return fmt.Errorf("%w: attribute requires a name", domain.ErrStructuralViolation)
	}
	return b.ChangeAttribute(a.Name(), a.Value())
}

// ChangeAttribute replaces the value of name, creating the attribute if needed.
func (b *componentBase) ChangeAttribute(name string, v domain.Value) error {
	if name == "" {
		return fmt.Errorf("%w: attribute requires a name", domain.ErrStructuralViolation)
	}
	return b.mutate(func(h *System) error {
		attr, ok := b.attributes[name]
		if ok {
			attr.Set(v)
		} else {
			attr = domain.NewAttribute(name, v)
			attr.Bind(b.id)
			b.attributes[name] = attr
		}
		if h != nil {
			h.persistAttributeLocked(b, attr)
			h.refilterLocked(b.id)
		}
		return nil
	})
}

// RemoveAttribute drops the named attribute and reports whether it existed.
func (b *componentBase) RemoveAttribute(name string) (bool, error) {
	removed := false
	err := b.mutate(func(h *System) error {
		if _, ok := b.attributes[name]; !ok {
			return nil
		}
		delete(b.attributes, name)
		removed = true
		if h != nil {
			h.hook.Delete(domain.RecordAttribute, domain.AttributeRecordID(b.id, name))
			h.refilterLocked(b.id)
		}
		return nil
	})
	return removed, err
}

// cloneAttributes deep-copies attrs and binds the copies to ownerID.
func cloneAttributes(attrs map[string]*domain.Attribute, ownerID string) map[string]*domain.Attribute {
	out := make(map[string]*domain.Attribute, len(attrs))
	for name, a := range attrs {
		c := a.Clone()
		c.Bind(ownerID)
		out[name] = c
	}
	return out
}

// copyBase returns a detached copy of b keeping the id.
func (b *componentBase) copyBase() componentBase {
	return componentBase{
		id:         b.id,
		kind:       b.kind,
		attributes: cloneAttributes(b.attributes, b.id),
	}
}

// Entity is a plain attribute-bearing component without geometry.
type Entity struct {
	componentBase
}

// NewEntity returns a detached entity.
func NewEntity() *Entity {
	e := &Entity{componentBase: newBase(domain.KindComponent)}
	e.self = e
	return e
}

func (e *Entity) recordFields() map[string]any { return map[string]any{} }

// rawTarget evaluates filters against a component without taking locks. The
// caller must hold the lock of the system guarding c.
type rawTarget struct{ c Component }

func (t rawTarget) Coordinate(axis domain.Coordinate) (float64, bool) {
	n, ok := t.c.(*Node)
	if !ok {
		return 0, false
	}
	return n.pos.Axis(axis), true
}

func (t rawTarget) AttributeValue(name string) (domain.Value, bool) {
	a, ok := t.c.base().attributes[name]
	if !ok {
		return domain.Value{}, false
	}
	return a.Value(), true
}

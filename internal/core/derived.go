package core

import (
	"fmt"

	"simcore/pkg/domain"
)

// CreateSuccessor returns a derived snapshot of s and seals s. The successor
// starts with no local components: every lookup falls through to s until a
// component is migrated by SuccessorCopy, a Mutable lookup, a structural change
// touching it, or a writing data viewer. Data viewers are inherited with their
// current membership and filtered lists.
func (s *System) CreateSuccessor() *System {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := newSystem(s.hook, s.logger, s.sampler)
	d.predecessor = s
	d.lineage = s.lineage
	d.generation = s.generation + 1
	d.attributes = cloneAttributes(s.attributes, d.id)
	for name, dv := range s.viewers {
		d.viewers[name] = dv.cloneFor(d)
	}
	s.successors = append(s.successors, d)
	s.sealLocked()
	s.hook.Upsert(domain.RecordSystem, s.id, s.owner, s.recordFields())
	d.persistComponentLocked(d)
	s.logger.Debug("successor created", "system", s.id, "successor", d.id, "generation", d.generation)
	return d
}

func (s *System) sealLocked() {
	s.sealed = true
	for _, sub := range s.subsystems {
		sub.mu.Lock()
		sub.sealLocked()
		sub.mu.Unlock()
	}
}

// SuccessorCopy migrates src into s and returns the local copy. A component
// already local to s is returned unchanged; a component not visible in s is
// rejected.
func (s *System) SuccessorCopy(src Component) (Component, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil component", domain.ErrStructuralViolation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if local, ok := s.children[src.ID()]; ok {
		return local, nil
	}
	if s.sealed {
		return nil, fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	visible := s.lookupLocked(src.ID())
	if visible == nil {
		return nil, s.reject(fmt.Errorf("%w: %s %s is not visible in system %s", domain.ErrStructuralViolation, src.Kind(), src.ID(), s.id), "successor copy rejected")
	}
	return s.successorCopyLocked(visible), nil
}

// successorCopyLocked returns the local copy of c, copying it from the
// predecessor chain on first use. The copy keeps the id, so every id held by
// edges, faces and data viewers resolves to it from now on.
func (s *System) successorCopyLocked(c Component) Component {
	if c == nil {
		return nil
	}
	id := c.ID()
	if local, ok := s.children[id]; ok {
		return local
	}
	if s.predecessor == nil {
		return c
	}
	cp := cloneComponent(c)
	b := cp.base()
	b.setHost(s)
	b.owner = s.id
	s.indexLocked(cp)
	s.migrated[id] = struct{}{}
	s.persistComponentLocked(cp)
	return cp
}

func mutableAs[T Component](s *System, id string) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return zero, fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	c, ok := s.lookupLocked(id).(T)
	if !ok {
		return zero, nil
	}
	v, _ := s.successorCopyLocked(c).(T)
	return v, nil
}

// Mutable returns a component of s that may be changed, migrating it from the
// predecessor chain first. It returns nil without error when id is not visible.
func (s *System) Mutable(id string) (Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return nil, fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	c := s.lookupLocked(id)
	if c == nil {
		return nil, nil
	}
	return s.successorCopyLocked(c), nil
}

// MutableNode is Mutable for nodes.
func (s *System) MutableNode(id string) (*Node, error) { return mutableAs[*Node](s, id) }

// MutableEdge is Mutable for edges.
func (s *System) MutableEdge(id string) (*Edge, error) { return mutableAs[*Edge](s, id) }

// MutableFace is Mutable for faces.
func (s *System) MutableFace(id string) (*Face, error) { return mutableAs[*Face](s, id) }

// MutableRasterData is Mutable for raster layers.
func (s *System) MutableRasterData(id string) (*RasterData, error) {
	return mutableAs[*RasterData](s, id)
}

// MutableSubSystem is Mutable for nested systems.
func (s *System) MutableSubSystem(id string) (*System, error) { return mutableAs[*System](s, id) }

// MutableEntity is Mutable for entities.
func (s *System) MutableEntity(id string) (*Entity, error) { return mutableAs[*Entity](s, id) }

// Migrated reports whether id was copied into s from its predecessor.
func (s *System) Migrated(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.migrated[id]
	return ok
}

// Owns reports whether the authoritative copy of id lives in s itself.
func (s *System) Owns(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.children[id]
	return ok
}

// Predecessor returns the snapshot s was derived from or nil.
func (s *System) Predecessor() *System { return s.predecessor }

// Predecessors returns the direct predecessors of s.
func (s *System) Predecessors() []*System {
	if s.predecessor == nil {
		return nil
	}
	return []*System{s.predecessor}
}

// Successors returns the snapshots derived from s.
func (s *System) Successors() []*System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*System(nil), s.successors...)
}

// Generation is 0 for a root system and grows by one per successor.
func (s *System) Generation() int { return s.generation }

// LineageID returns the id of the root system of the snapshot chain.
func (s *System) LineageID() string { return s.lineage }

package core

import (
	"fmt"

	"simcore/pkg/domain"
)

// WithSystemID gives a new root system a known id. The lineage starts at the
// same id.
func WithSystemID(id string) SystemOption {
	return func(s *System) {
		if id != "" {
			s.id = id
			s.lineage = id
		}
	}
}

// Restore adds a detached component under a known id. Loaders use it to
// rebuild archived systems; the usual AddChild validation applies and a
// rejected component keeps its own id.
func (s *System) Restore(c Component, id string, views ...domain.View) error {
	if c == nil || id == "" {
		return fmt.Errorf("%w: restore needs a component and an id", domain.ErrStructuralViolation)
	}
	if owned(c) {
		return fmt.Errorf("%w: %s %s", domain.ErrOwnershipConflict, c.Kind(), c.ID())
	}
	b := c.base()
	prevID := b.id
	sub, isSystem := c.(*System)
	var prevLineage string
	if isSystem {
		prevLineage = sub.lineage
	}
	b.id = id
	if isSystem {
		sub.lineage = id
	}
	if err := s.AddChild(c, views...); err != nil {
		b.id = prevID
		if isSystem {
			sub.lineage = prevLineage
		}
		return err
	}
	return nil
}

// RestoreSubSystem is AddSubSystem with a known id.
func (s *System) RestoreSubSystem(id string, views ...domain.View) (*System, error) {
	sub := newSystem(s.hook, s.logger, s.sampler)
	if err := s.Restore(sub, id, views...); err != nil {
		return nil, err
	}
	return sub, nil
}

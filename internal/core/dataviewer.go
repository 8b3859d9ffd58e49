package core

import (
	"fmt"

	"simcore/pkg/domain"
)

// UpdateMode records how a data viewer applied its last view update.
type UpdateMode string

// Update modes.
const (
	UpdateNone        UpdateMode = "none"
	UpdateIncremental UpdateMode = "incremental"
	UpdateFull        UpdateMode = "full"
)

// DataViewer keeps, for one view of one system, the membership in insertion
// order and the subsequence passing the view filters. Both lists hold ids that
// are resolved through the system on read, so a derived system sees its local
// copy once a component migrated and the predecessor's before.
//
// Filter changes are applied incrementally when filters were only added; any
// removed filter forces a full pass over the membership.
type DataViewer struct {
	sys      *System
	view     domain.View
	members  []string
	member   map[string]struct{}
	filtered []string
	passing  map[string]struct{}
	mode     UpdateMode
	evals    int
}

func newDataViewer(s *System, v domain.View) *DataViewer {
	return &DataViewer{
		sys:     s,
		view:    v,
		member:  make(map[string]struct{}),
		passing: make(map[string]struct{}),
		mode:    UpdateNone,
	}
}

func (v *DataViewer) cloneFor(s *System) *DataViewer {
	out := newDataViewer(s, v.view.Clone())
	out.members = append([]string(nil), v.members...)
	out.filtered = append([]string(nil), v.filtered...)
	for id := range v.member {
		out.member[id] = struct{}{}
	}
	for id := range v.passing {
		out.passing[id] = struct{}{}
	}
	return out
}

// Name returns the bound view name. It never changes.
func (v *DataViewer) Name() string { return v.view.Name() }

// View returns a copy of the bound view.
func (v *DataViewer) View() domain.View {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	return v.view.Clone()
}

// AddComponent appends a component visible in the owning system.
func (v *DataViewer) AddComponent(c Component) error {
	s := v.sys
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	if c == nil {
		return fmt.Errorf("%w: nil component", domain.ErrStructuralViolation)
	}
	target := s.lookupLocked(c.ID())
	if target == nil {
		return s.reject(fmt.Errorf("%w: %s %s not in system %s", domain.ErrStructuralViolation, c.Kind(), c.ID(), s.id), "view membership rejected", "view", v.Name())
	}
	if target.Kind() != v.view.Kind() {
		return s.reject(fmt.Errorf("%w: view %s governs %s, not %s", domain.ErrStructuralViolation, v.Name(), v.view.Kind(), target.Kind()), "view membership rejected")
	}
	v.addLocked(target)
	return nil
}

func (v *DataViewer) addLocked(c Component) {
	id := c.ID()
	if _, ok := v.member[id]; ok {
		return
	}
	v.members = append(v.members, id)
	v.member[id] = struct{}{}
	if v.matchLocked(c, v.view.Filters()) {
		v.filtered = append(v.filtered, id)
		v.passing[id] = struct{}{}
	}
}

// RemoveComponent drops id from both lists and reports whether it was a member.
func (v *DataViewer) RemoveComponent(id string) (bool, error) {
	s := v.sys
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false, fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	return v.removeLocked(id), nil
}

func (v *DataViewer) removeLocked(id string) bool {
	if _, ok := v.member[id]; !ok {
		return false
	}
	delete(v.member, id)
	v.members = without(v.members, id)
	if _, ok := v.passing[id]; ok {
		delete(v.passing, id)
		v.filtered = without(v.filtered, id)
	}
	return true
}

func without(ids []string, id string) []string {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Update replaces the bound view. A view with a different name is rejected
// and leaves the viewer untouched.
func (v *DataViewer) Update(next domain.View) error {
	s := v.sys
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	return v.updateLocked(next)
}

func (v *DataViewer) updateLocked(next domain.View) error {
	if next.Name() != v.view.Name() {
		return v.sys.reject(fmt.Errorf("%w: viewer %s cannot take view %s", domain.ErrViewMismatch, v.view.Name(), next.Name()), "data viewer update rejected")
	}
	if next.Kind() != v.view.Kind() && len(v.members) > 0 {
		return v.sys.reject(fmt.Errorf("%w: viewer %s holds %s members, not %s", domain.ErrViewMismatch, v.view.Name(), v.view.Kind(), next.Kind()), "data viewer update rejected")
	}
	removed, added := domain.FilterSetDiff(v.view.Filters(), next.Filters())
	v.view = next.Clone()
	switch {
	case len(removed) > 0:
		v.recomputeLocked(v.members, v.view.Filters())
		v.mode = UpdateFull
	case len(added) > 0:
		v.recomputeLocked(v.filtered, added)
		v.mode = UpdateIncremental
	default:
		v.mode = UpdateIncremental
	}
	return nil
}

// recomputeLocked rebuilds the filtered list from candidates, which must be
// ordered as the membership.
func (v *DataViewer) recomputeLocked(candidates []string, filters []domain.DataFilter) {
	next := make([]string, 0, len(candidates))
	passing := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		c := v.sys.lookupLocked(id)
		if c != nil && v.matchLocked(c, filters) {
			next = append(next, id)
			passing[id] = struct{}{}
		}
	}
	v.filtered = next
	v.passing = passing
}

func (v *DataViewer) matchLocked(c Component, filters []domain.DataFilter) bool {
	t := rawTarget{c: c}
	for _, f := range filters {
		v.evals++
		if !f.Match(t) {
			return false
		}
	}
	return true
}

// Refilter re-evaluates one member against the current filters.
func (v *DataViewer) Refilter(id string) {
	s := v.sys
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return
	}
	v.refilterLocked(id)
}

func (v *DataViewer) refilterLocked(id string) {
	if _, ok := v.member[id]; !ok {
		return
	}
	c := v.sys.lookupLocked(id)
	pass := c != nil && v.matchLocked(c, v.view.Filters())
	_, was := v.passing[id]
	switch {
	case pass && !was:
		v.passing[id] = struct{}{}
		next := make([]string, 0, len(v.filtered)+1)
		for _, m := range v.members {
			if _, ok := v.passing[m]; ok {
				next = append(next, m)
			}
		}
		v.filtered = next
	case !pass && was:
		delete(v.passing, id)
		v.filtered = without(v.filtered, id)
	}
}

// Components returns the filtered components in membership order. On a derived
// system with a writing view every member is migrated first so the caller
// mutates local copies only. Other viewers only take the read lock.
func (v *DataViewer) Components() []Component {
	s := v.sys
	s.mu.RLock()
	if !v.migratesLocked() {
		defer s.mu.RUnlock()
		return v.componentsLocked()
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v.migratesLocked() {
		for _, id := range v.members {
			if c := s.lookupLocked(id); c != nil {
				s.successorCopyLocked(c)
			}
		}
	}
	return v.componentsLocked()
}

func (v *DataViewer) migratesLocked() bool {
	return v.sys.predecessor != nil && !v.sys.sealed && v.view.Writes()
}

func (v *DataViewer) componentsLocked() []Component {
	out := make([]Component, 0, len(v.filtered))
	for _, id := range v.filtered {
		if c := v.sys.lookupLocked(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// IDs returns the filtered ids in membership order.
func (v *DataViewer) IDs() []string {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	return append([]string(nil), v.filtered...)
}

// MemberIDs returns every member id in insertion order.
func (v *DataViewer) MemberIDs() []string {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	return append([]string(nil), v.members...)
}

// Contains reports whether id is in the filtered list.
func (v *DataViewer) Contains(id string) bool {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	_, ok := v.passing[id]
	return ok
}

func (v *DataViewer) hasMember(id string) bool {
	_, ok := v.member[id]
	return ok
}

// Len returns the membership size.
func (v *DataViewer) Len() int {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	return len(v.members)
}

// FilteredLen returns the filtered size.
func (v *DataViewer) FilteredLen() int {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	return len(v.filtered)
}

// LastUpdateMode reports how the most recent Update was applied.
func (v *DataViewer) LastUpdateMode() UpdateMode {
	v.sys.mu.RLock()
	defer v.sys.mu.RUnlock()
	return v.mode
}

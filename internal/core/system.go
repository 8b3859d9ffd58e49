package core

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"simcore/pkg/domain"
)

// System owns a heterogeneous collection of components, one data viewer per
// view and its snapshot lineage. Public methods take the system lock; helpers
// suffixed Locked assume the caller already holds it.
//
// Once a successor snapshot exists the system is sealed: it stays readable but
// every structural, attribute and geometry change is rejected with ErrSealed.
// Sealed systems never change again, so successors read them without locking.
type System struct {
	componentBase

	mu      sync.RWMutex
	hook    domain.PersistHook
	logger  Logger
	sampler domain.AreaSampler

	children   map[string]Component
	nodes      map[string]*Node
	edges      map[string]*Edge
	faces      map[string]*Face
	rasters    map[string]*RasterData
	subsystems map[string]*System
	entities   map[string]*Entity
	viewers    map[string]*DataViewer

	predecessor *System
	successors  []*System
	migrated    map[string]struct{}
	tombstones  map[string]struct{}
	sealed      bool
	lineage     string
	generation  int
}

// SystemOption configures a root system.
type SystemOption func(*System)

// WithPersistHook routes change notifications to h.
func WithPersistHook(h domain.PersistHook) SystemOption {
	return func(s *System) {
		if h != nil {
			s.hook = h
		}
	}
}

// WithSystemLogger sets the logger used for rejected operations and lineage events.
func WithSystemLogger(l Logger) SystemOption {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAreaSampler installs the raster aggregation used by SampleFace.
func WithAreaSampler(a domain.AreaSampler) SystemOption {
	return func(s *System) { s.sampler = a }
}

// NewSystem returns an empty root system.
func NewSystem(opts ...SystemOption) *System {
	s := newSystem(domain.NopPersistHook{}, noopLogger{}, nil)
	for _, opt := range opts {
		opt(s)
	}
	s.hook.Upsert(domain.RecordSystem, s.id, "", s.recordFields())
	return s
}

func newSystem(hook domain.PersistHook, logger Logger, sampler domain.AreaSampler) *System {
	s := &System{
		componentBase: newBase(domain.KindSystem),
		hook:          hook,
		logger:        logger,
		sampler:       sampler,
		children:      make(map[string]Component),
		nodes:         make(map[string]*Node),
		edges:         make(map[string]*Edge),
		faces:         make(map[string]*Face),
		rasters:       make(map[string]*RasterData),
		subsystems:    make(map[string]*System),
		entities:      make(map[string]*Entity),
		viewers:       make(map[string]*DataViewer),
		migrated:      make(map[string]struct{}),
		tombstones:    make(map[string]struct{}),
	}
	s.self = s
	s.setHost(s)
	s.lineage = s.id
	return s
}

func (s *System) reject(err error, msg string, args ...any) error {
	s.logger.Warn(msg, append(args, "system", s.id, "error", err)...)
	return err
}

// AddNode creates a node and registers it with the given views.
func (s *System) AddNode(p domain.Point, views ...domain.View) (*Node, error) {
	n := NewNode(p.X, p.Y, p.Z)
	if err := s.AddChild(n, views...); err != nil {
		return nil, err
	}
	return n, nil
}

// AddEdge connects two nodes visible in s.
func (s *System) AddEdge(startID, endID string, views ...domain.View) (*Edge, error) {
	e := NewEdge(startID, endID)
	if err := s.AddChild(e, views...); err != nil {
		return nil, err
	}
	return e, nil
}

// AddFace creates a face over nodes visible in s.
func (s *System) AddFace(nodeIDs []string, views ...domain.View) (*Face, error) {
	f := NewFace(nodeIDs)
	if err := s.AddChild(f, views...); err != nil {
		return nil, err
	}
	return f, nil
}

// AddRasterData stores a copy of r.
func (s *System) AddRasterData(r domain.Raster, views ...domain.View) (*RasterData, error) {
	rd := NewRasterData(r)
	if err := s.AddChild(rd, views...); err != nil {
		return nil, err
	}
	return rd, nil
}

// AddSubSystem creates a nested system sharing the hook, logger and sampler of s.
func (s *System) AddSubSystem(views ...domain.View) (*System, error) {
	sub := newSystem(s.hook, s.logger, s.sampler)
	if err := s.AddChild(sub, views...); err != nil {
		return nil, err
	}
	return sub, nil
}

// AddEntity creates a plain attribute-bearing component.
func (s *System) AddEntity(views ...domain.View) (*Entity, error) {
	e := NewEntity()
	if err := s.AddChild(e, views...); err != nil {
		return nil, err
	}
	return e, nil
}

// AddChild takes ownership of a detached component and registers it with the
// given views, creating their data viewers when absent. Nothing changes when
// validation fails.
func (s *System) AddChild(c Component, views ...domain.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateChildLocked(c, views); err != nil {
		return s.reject(err, "add child rejected")
	}
	s.insertLocked(c)
	for _, v := range views {
		s.viewerForLocked(v).addLocked(c)
	}
	return nil
}

// owned reads only the host pointer, which is safe without the owner's lock.
func owned(c Component) bool {
	b := c.base()
	if sys, ok := c.(*System); ok {
		return b.hostSystem() != sys
	}
	return b.hostSystem() != nil
}

func (s *System) validateChildLocked(c Component, views []domain.View) error {
	if s.sealed {
		return fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	if c == nil {
		return fmt.Errorf("%w: nil component", domain.ErrStructuralViolation)
	}
	b := c.base()
	if owned(c) {
		return fmt.Errorf("%w: %s %s", domain.ErrOwnershipConflict, b.kind, b.id)
	}
	if s.lookupLocked(b.id) != nil {
		return fmt.Errorf("%w: %s %s already present", domain.ErrOwnershipConflict, b.kind, b.id)
	}
	switch v := c.(type) {
	case *Edge:
		for _, id := range []string{v.start, v.end} {
			if _, ok := s.lookupLocked(id).(*Node); !ok {
				return fmt.Errorf("%w: edge endpoint %s is not a node of system %s", domain.ErrStructuralViolation, id, s.id)
			}
		}
	case *Face:
		if len(v.nodes) == 0 {
			return fmt.Errorf("%w: face without boundary", domain.ErrStructuralViolation)
		}
		for _, id := range v.nodes {
			if _, ok := s.lookupLocked(id).(*Node); !ok {
				return fmt.Errorf("%w: face node %s is not a node of system %s", domain.ErrStructuralViolation, id, s.id)
			}
		}
		for _, id := range v.holes {
			if _, ok := s.lookupLocked(id).(*Face); !ok || id == v.id {
				return fmt.Errorf("%w: hole %s is not another face of system %s", domain.ErrStructuralViolation, id, s.id)
			}
		}
	case *System:
		if v.predecessor != nil || len(v.successors) > 0 {
			return fmt.Errorf("%w: snapshot system %s cannot be nested", domain.ErrStructuralViolation, v.id)
		}
		for p := s; p != nil; p = p.parent() {
			if p == v {
				return fmt.Errorf("%w: system %s would own itself", domain.ErrStructuralViolation, v.id)
			}
		}
	}
	for _, view := range views {
		if view.Name() == "" {
			return fmt.Errorf("%w: unnamed view", domain.ErrStructuralViolation)
		}
		if view.Kind() != b.kind {
			return fmt.Errorf("%w: view %s governs %s, not %s", domain.ErrStructuralViolation, view.Name(), view.Kind(), b.kind)
		}
		if dv, ok := s.viewers[view.Name()]; ok && dv.view.Kind() != view.Kind() {
			return fmt.Errorf("%w: view %s already governs %s, not %s", domain.ErrStructuralViolation, view.Name(), dv.view.Kind(), view.Kind())
		}
	}
	return nil
}

func (s *System) parent() *System {
	h := s.hostSystem()
	if h == s {
		return nil
	}
	return h
}

func (s *System) insertLocked(c Component) {
	b := c.base()
	b.setHost(s)
	b.owner = s.id
	s.indexLocked(c)
	if e, ok := c.(*Edge); ok {
		for _, id := range []string{e.start, e.end} {
			if n, ok := s.successorCopyLocked(s.lookupLocked(id)).(*Node); ok {
				n.addEdgeRef(e.id)
			}
		}
	}
	s.persistComponentLocked(c)
}

func (s *System) indexLocked(c Component) {
	id := c.ID()
	s.children[id] = c
	switch v := c.(type) {
	case *Node:
		s.nodes[id] = v
	case *Edge:
		s.edges[id] = v
	case *Face:
		s.faces[id] = v
	case *RasterData:
		s.rasters[id] = v
	case *System:
		s.subsystems[id] = v
	case *Entity:
		s.entities[id] = v
	}
}

func (s *System) unindexLocked(id string) {
	delete(s.children, id)
	delete(s.nodes, id)
	delete(s.edges, id)
	delete(s.faces, id)
	delete(s.rasters, id)
	delete(s.subsystems, id)
	delete(s.entities, id)
}

// RemoveChild deletes a component visible in s and reports whether it existed.
// Removal cascades to every data viewer and, for nodes, to incident edges.
func (s *System) RemoveChild(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false, s.reject(fmt.Errorf("%w: system %s", domain.ErrSealed, s.id), "remove rejected", "component", id)
	}
	c := s.lookupLocked(id)
	if c == nil {
		return false, nil
	}
	s.removeLocked(c)
	return true, nil
}

func (s *System) removeLocked(c Component) {
	id := c.ID()
	switch v := c.(type) {
	case *Node:
		for _, eid := range append([]string(nil), v.edges...) {
			if e, ok := s.lookupLocked(eid).(*Edge); ok {
				s.removeLocked(e)
			}
		}
	case *Edge:
		for _, nid := range []string{v.start, v.end} {
			if n, ok := s.lookupLocked(nid).(*Node); ok && slices.Contains(n.edges, id) {
				s.successorCopyLocked(n).(*Node).dropEdgeRef(id)
			}
		}
	case *Face:
		// Faces still read through from the predecessor hold the hole too;
		// they migrate before the reference is dropped.
		for _, c := range s.visibleLocked(domain.KindFace, false) {
			f := c.(*Face)
			if f.id == id || !slices.Contains(f.holes, id) {
				continue
			}
			local := s.successorCopyLocked(f).(*Face)
			local.dropHoleRef(id)
			s.persistComponentLocked(local)
		}
	}
	for _, dv := range s.viewers {
		dv.removeLocked(id)
	}
	local, isLocal := s.children[id]
	if isLocal {
		s.unindexLocked(id)
		delete(s.migrated, id)
	}
	if s.predecessor != nil && s.predecessor.lookupLocked(id) != nil {
		s.tombstones[id] = struct{}{}
	}
	s.notifyDeleteLocked(c)
	if isLocal {
		// Detach last: once host is cleared, writers mutate without the lock.
		b := local.base()
		b.owner = ""
		if sub, ok := local.(*System); ok {
			sub.setHost(sub)
		} else {
			b.setHost(nil)
		}
	}
}

func (s *System) notifyDeleteLocked(c Component) {
	b := c.base()
	for name := range b.attributes {
		s.hook.Delete(domain.RecordAttribute, domain.AttributeRecordID(b.id, name))
	}
	if sub, ok := c.(*System); ok && sub != s {
		sub.mu.RLock()
		for _, child := range sub.children {
			sub.notifyDeleteLocked(child)
		}
		sub.mu.RUnlock()
	}
	s.hook.Delete(domain.RecordKindOf(b.kind), b.id)
}

// lookupLocked resolves id to the component currently visible in s: the local
// copy if present, otherwise the predecessor's unless it was removed here.
func (s *System) lookupLocked(id string) Component {
	if c, ok := s.children[id]; ok {
		return c
	}
	if s.predecessor == nil {
		return nil
	}
	if _, dead := s.tombstones[id]; dead {
		return nil
	}
	return s.predecessor.lookupLocked(id)
}

// visibleLocked lists the visible components of kind sorted by id.
func (s *System) visibleLocked(kind domain.Kind, all bool) []Component {
	var out []Component
	seen := make(map[string]struct{})
	for id, c := range s.children {
		seen[id] = struct{}{}
		if all || c.Kind() == kind {
			out = append(out, c)
		}
	}
	if s.predecessor != nil {
		for _, c := range s.predecessor.visibleLocked(kind, all) {
			id := c.ID()
			if _, ok := seen[id]; ok {
				continue
			}
			if _, dead := s.tombstones[id]; dead {
				continue
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func listOf[T Component](s *System, kind domain.Kind) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.visibleLocked(kind, false)
	out := make([]T, 0, len(found))
	for _, c := range found {
		out = append(out, c.(T))
	}
	return out
}

func lookupAs[T Component](s *System, id string) T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.lookupLocked(id).(T)
	return v
}

// Component returns the visible component with id or nil.
func (s *System) Component(id string) Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(id)
}

// Node returns the visible node with id or nil.
func (s *System) Node(id string) *Node { return lookupAs[*Node](s, id) }

// Edge returns the visible edge with id or nil.
func (s *System) Edge(id string) *Edge { return lookupAs[*Edge](s, id) }

// Face returns the visible face with id or nil.
func (s *System) Face(id string) *Face { return lookupAs[*Face](s, id) }

// RasterData returns the visible raster layer with id or nil.
func (s *System) RasterData(id string) *RasterData { return lookupAs[*RasterData](s, id) }

// SubSystem returns the visible nested system with id or nil.
func (s *System) SubSystem(id string) *System { return lookupAs[*System](s, id) }

// Entity returns the visible entity with id or nil.
func (s *System) Entity(id string) *Entity { return lookupAs[*Entity](s, id) }

// Nodes lists visible nodes sorted by id.
func (s *System) Nodes() []*Node { return listOf[*Node](s, domain.KindNode) }

// Edges lists visible edges sorted by id.
func (s *System) Edges() []*Edge { return listOf[*Edge](s, domain.KindEdge) }

// Faces lists visible faces sorted by id.
func (s *System) Faces() []*Face { return listOf[*Face](s, domain.KindFace) }

// RasterLayers lists visible raster layers sorted by id.
func (s *System) RasterLayers() []*RasterData { return listOf[*RasterData](s, domain.KindRasterData) }

// SubSystems lists visible nested systems sorted by id.
func (s *System) SubSystems() []*System { return listOf[*System](s, domain.KindSystem) }

// Entities lists visible entities sorted by id.
func (s *System) Entities() []*Entity { return listOf[*Entity](s, domain.KindComponent) }

// Children lists every visible component sorted by id.
func (s *System) Children() []Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleLocked(0, true)
}

// EdgeBetween returns the edge running from startID to endID or nil.
func (s *System) EdgeBetween(startID, endID string) *Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start, ok := s.lookupLocked(startID).(*Node)
	if !ok {
		return nil
	}
	for _, eid := range start.edges {
		if e, ok := s.lookupLocked(eid).(*Edge); ok && e.start == startID && e.end == endID {
			return e
		}
	}
	return nil
}

// IncidentEdges returns the visible edges touching nodeID in attachment order.
func (s *System) IncidentEdges(nodeID string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.lookupLocked(nodeID).(*Node)
	if !ok {
		return nil
	}
	var out []*Edge
	for _, eid := range n.edges {
		if e, ok := s.lookupLocked(eid).(*Edge); ok {
			out = append(out, e)
		}
	}
	return out
}

// FacePolygon resolves the boundary of a face to positions.
func (s *System) FacePolygon(faceID string) ([]domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facePolygonLocked(faceID)
}

func (s *System) facePolygonLocked(faceID string) ([]domain.Point, error) {
	f, ok := s.lookupLocked(faceID).(*Face)
	if !ok {
		return nil, fmt.Errorf("%w: face %s not in system %s", domain.ErrStructuralViolation, faceID, s.id)
	}
	pts := make([]domain.Point, 0, len(f.nodes))
	for _, id := range f.nodes {
		n, ok := s.lookupLocked(id).(*Node)
		if !ok {
			return nil, fmt.Errorf("%w: face %s references missing node %s", domain.ErrStructuralViolation, faceID, id)
		}
		pts = append(pts, n.pos)
	}
	return pts, nil
}

// SampleFace aggregates the cells of a raster layer inside a face using the
// configured AreaSampler. blockerID may be empty.
func (s *System) SampleFace(faceID, rasterID, blockerID string, mode domain.SampleMode) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sampler == nil {
		return 0, fmt.Errorf("system %s has no area sampler", s.id)
	}
	poly, err := s.facePolygonLocked(faceID)
	if err != nil {
		return 0, err
	}
	r, ok := s.lookupLocked(rasterID).(*RasterData)
	if !ok || r.raster == nil {
		return 0, fmt.Errorf("%w: raster %s not in system %s", domain.ErrStructuralViolation, rasterID, s.id)
	}
	var blocker domain.Raster
	if blockerID != "" {
		b, ok := s.lookupLocked(blockerID).(*RasterData)
		if !ok {
			return 0, fmt.Errorf("%w: blocker %s not in system %s", domain.ErrStructuralViolation, blockerID, s.id)
		}
		blocker = b.raster
	}
	if mode == domain.SampleMean {
		return s.sampler.MeanOverArea(r.raster, poly, blocker), nil
	}
	return s.sampler.SumOverArea(r.raster, poly, blocker), nil
}

// AddDataViewer binds v. An existing viewer of the same name is updated instead.
func (s *System) AddDataViewer(v domain.View) (*DataViewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return nil, s.reject(fmt.Errorf("%w: system %s", domain.ErrSealed, s.id), "data viewer rejected", "view", v.Name())
	}
	if v.Name() == "" {
		return nil, s.reject(fmt.Errorf("%w: unnamed view", domain.ErrStructuralViolation), "data viewer rejected")
	}
	if dv, ok := s.viewers[v.Name()]; ok {
		return dv, dv.updateLocked(v)
	}
	return s.viewerForLocked(v), nil
}

func (s *System) viewerForLocked(v domain.View) *DataViewer {
	dv, ok := s.viewers[v.Name()]
	if !ok {
		dv = newDataViewer(s, v.Clone())
		s.viewers[v.Name()] = dv
	}
	return dv
}

// RemoveDataViewer drops the viewer of name.
func (s *System) RemoveDataViewer(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false, fmt.Errorf("%w: system %s", domain.ErrSealed, s.id)
	}
	_, ok := s.viewers[name]
	delete(s.viewers, name)
	return ok, nil
}

// DataViewer returns the viewer bound to name or nil.
func (s *System) DataViewer(name string) *DataViewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewers[name]
}

// Views returns the current definition of every bound view sorted by name.
func (s *System) Views() []domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.View, 0, len(s.viewers))
	for _, dv := range s.viewers {
		out = append(out, dv.view.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ViewDefinition returns the current definition of the named view.
func (s *System) ViewDefinition(name string) (domain.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dv, ok := s.viewers[name]
	if !ok {
		return domain.View{}, false
	}
	return dv.view.Clone(), true
}

// ComponentsInView returns the filtered components of the named view keyed by id.
func (s *System) ComponentsInView(name string) map[string]Component {
	dv := s.DataViewer(name)
	out := make(map[string]Component)
	if dv == nil {
		return out
	}
	for _, c := range dv.Components() {
		out[c.ID()] = c
	}
	return out
}

// IDsInView returns the filtered ids of the named view sorted.
func (s *System) IDsInView(name string) []string {
	dv := s.DataViewer(name)
	if dv == nil {
		return nil
	}
	ids := dv.IDs()
	sort.Strings(ids)
	return ids
}

// ViewsOf returns the names of the views whose membership contains id, sorted.
func (s *System) ViewsOf(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for name, dv := range s.viewers {
		if dv.hasMember(id) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Sealed reports whether a successor snapshot froze s.
func (s *System) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

func (s *System) persistComponentLocked(c Component) {
	b := c.base()
	s.hook.Upsert(domain.RecordKindOf(b.kind), b.id, b.owner, c.recordFields())
	for _, name := range b.attributeNamesLocked() {
		s.persistAttributeLocked(b, b.attributes[name])
	}
}

func (s *System) persistAttributeLocked(b *componentBase, a *domain.Attribute) {
	data, err := a.Value().MarshalBinary()
	if err != nil {
		s.logger.Error("attribute encoding failed", "component", b.id, "attribute", a.Name(), "error", err)
		return
	}
	s.hook.Upsert(domain.RecordAttribute, domain.AttributeRecordID(b.id, a.Name()), b.id, map[string]any{
		"name":  a.Name(),
		"type":  a.Type().String(),
		"value": data,
	})
	a.MarkPersisted()
}

// componentChangedLocked persists the geometry of c and refilters it.
func (s *System) componentChangedLocked(c Component) {
	b := c.base()
	s.hook.Upsert(domain.RecordKindOf(b.kind), b.id, b.owner, c.recordFields())
	s.refilterLocked(b.id)
}

func (s *System) refilterLocked(id string) {
	for _, dv := range s.viewers {
		dv.refilterLocked(id)
	}
}

func (s *System) recordFields() map[string]any {
	preds := []string{}
	if s.predecessor != nil {
		preds = append(preds, s.predecessor.id)
	}
	succs := make([]string, 0, len(s.successors))
	for _, d := range s.successors {
		succs = append(succs, d.id)
	}
	return map[string]any{
		"lineage":      s.lineage,
		"generation":   s.generation,
		"predecessors": preds,
		"successors":   succs,
		"sealed":       s.sealed,
	}
}

// cloneTree deep-copies a nested system with its children and viewers,
// keeping every id. The copy is a detached root.
func (s *System) cloneTree() *System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := newSystem(s.hook, s.logger, s.sampler)
	out.componentBase = s.copyBase()
	out.self = out
	out.setHost(out)
	out.lineage = s.lineage
	out.generation = s.generation
	for _, c := range s.children {
		cp := cloneComponent(c)
		b := cp.base()
		b.setHost(out)
		b.owner = out.id
		out.indexLocked(cp)
	}
	for name, dv := range s.viewers {
		out.viewers[name] = dv.cloneFor(out)
	}
	return out
}

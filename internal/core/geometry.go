package core

import (
	"fmt"

	"simcore/pkg/domain"
)

// Node is a point in model space. Incident edges are tracked by id.
type Node struct {
	componentBase
	pos   domain.Point
	edges []string
}

// NewNode returns a detached node at (x, y, z).
func NewNode(x, y, z float64) *Node {
	n := &Node{componentBase: newBase(domain.KindNode), pos: domain.Point{X: x, Y: y, Z: z}}
	n.self = n
	return n
}

// Position returns the node coordinates.
func (n *Node) Position() domain.Point {
	defer n.rlock()()
	return n.pos
}

// Coordinate returns one axis of the position.
func (n *Node) Coordinate(c domain.Coordinate) (float64, bool) {
	return n.Position().Axis(c), true
}

// SetPosition moves the node.
func (n *Node) SetPosition(p domain.Point) error {
	return n.mutate(func(h *System) error {
		n.pos = p
		if h != nil {
			h.componentChangedLocked(n)
		}
		return nil
	})
}

// EdgeIDs returns the ids of edges recorded as incident. Use
// System.IncidentEdges to resolve only the edges still visible.
func (n *Node) EdgeIDs() []string {
	defer n.rlock()()
	return append([]string(nil), n.edges...)
}

func (n *Node) addEdgeRef(id string) {
	for _, e := range n.edges {
		if e == id {
			return
		}
	}
	n.edges = append(n.edges, id)
}

func (n *Node) dropEdgeRef(id string) {
	for i, e := range n.edges {
		if e == id {
			n.edges = append(n.edges[:i], n.edges[i+1:]...)
			return
		}
	}
}

func (n *Node) recordFields() map[string]any {
	return map[string]any{"x": n.pos.X, "y": n.pos.Y, "z": n.pos.Z}
}

// Edge connects two nodes of the same system.
type Edge struct {
	componentBase
	start string
	end   string
}

// NewEdge returns a detached edge. The endpoints are validated when the edge
// is added to a system.
func NewEdge(startID, endID string) *Edge {
	e := &Edge{componentBase: newBase(domain.KindEdge), start: startID, end: endID}
	e.self = e
	return e
}

// StartID returns the start node id.
func (e *Edge) StartID() string { return e.start }

// EndID returns the end node id.
func (e *Edge) EndID() string { return e.end }

func (e *Edge) recordFields() map[string]any {
	return map[string]any{"start": e.start, "end": e.end}
}

// Face is a polygon over an ordered list of boundary nodes with optional holes.
type Face struct {
	componentBase
	nodes []string
	holes []string
}

// NewFace returns a detached face. A closing node equal to the first one is dropped.
func NewFace(nodeIDs []string) *Face {
	f := &Face{componentBase: newBase(domain.KindFace), nodes: collapseRing(nodeIDs)}
	f.self = f
	return f
}

func collapseRing(ids []string) []string {
	out := append([]string(nil), ids...)
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// NodeIDs returns the boundary node ids in order.
func (f *Face) NodeIDs() []string {
	defer f.rlock()()
	return append([]string(nil), f.nodes...)
}

// HoleIDs returns the ids of hole faces.
func (f *Face) HoleIDs() []string {
	defer f.rlock()()
	return append([]string(nil), f.holes...)
}

// AddHole records another face of the same system as a hole.
func (f *Face) AddHole(holeID string) error {
	if holeID == f.id {
		return fmt.Errorf("%w: face %s cannot be its own hole", domain.ErrStructuralViolation, f.id)
	}
	return f.mutate(func(h *System) error {
		if h != nil {
			if _, ok := h.lookupLocked(holeID).(*Face); !ok {
				h.logger.Warn("hole rejected", "face", f.id, "hole", holeID)
				return fmt.Errorf("%w: hole %s is not a face of system %s", domain.ErrStructuralViolation, holeID, h.id)
			}
		}
		for _, existing := range f.holes {
			if existing == holeID {
				return nil
			}
		}
		f.holes = append(f.holes, holeID)
		if h != nil {
			h.componentChangedLocked(f)
		}
		return nil
	})
}

// ClearHoles removes every hole reference.
func (f *Face) ClearHoles() error {
	return f.mutate(func(h *System) error {
		f.holes = nil
		if h != nil {
			h.componentChangedLocked(f)
		}
		return nil
	})
}

func (f *Face) dropHoleRef(id string) {
	for i, h := range f.holes {
		if h == id {
			f.holes = append(f.holes[:i], f.holes[i+1:]...)
			return
		}
	}
}

func (f *Face) recordFields() map[string]any {
	return map[string]any{
		"nodes": append([]string(nil), f.nodes...),
		"holes": append([]string(nil), f.holes...),
	}
}

// RasterData wraps a raster layer.
type RasterData struct {
	componentBase
	raster domain.Raster
}

// NewRasterData returns a detached raster component holding a copy of r.
func NewRasterData(r domain.Raster) *RasterData {
	rd := &RasterData{componentBase: newBase(domain.KindRasterData)}
	if r != nil {
		rd.raster = r.CloneRaster()
	}
	rd.self = rd
	return rd
}

// Raster returns a copy of the raster or nil.
func (r *RasterData) Raster() domain.Raster {
	defer r.rlock()()
	if r.raster == nil {
		return nil
	}
	return r.raster.CloneRaster()
}

// Cell reads one cell; a component without raster returns 0.
func (r *RasterData) Cell(i, j int) float64 {
	defer r.rlock()()
	if r.raster == nil {
		return 0
	}
	return r.raster.Cell(i, j)
}

// SetCell writes one cell.
func (r *RasterData) SetCell(i, j int, v float64) error {
	return r.mutate(func(h *System) error {
		if r.raster == nil {
			return fmt.Errorf("%w: raster %s has no grid", domain.ErrStructuralViolation, r.id)
		}
		r.raster.SetCell(i, j, v)
		if h != nil {
			h.componentChangedLocked(r)
		}
		return nil
	})
}

// ReplaceRaster swaps in a copy of next.
func (r *RasterData) ReplaceRaster(next domain.Raster) error {
	return r.mutate(func(h *System) error {
		r.raster = nil
		if next != nil {
			r.raster = next.CloneRaster()
		}
		if h != nil {
			h.componentChangedLocked(r)
		}
		return nil
	})
}

func (r *RasterData) recordFields() map[string]any {
	if r.raster == nil {
		return map[string]any{}
	}
	cols, rows := r.raster.Size()
	dx, dy := r.raster.CellSize()
	ox, oy := r.raster.Origin()
	return map[string]any{"cols": cols, "rows": rows, "dx": dx, "dy": dy, "origin_x": ox, "origin_y": oy}
}

// cloneComponent deep-copies c keeping its id. The copy is detached.
func cloneComponent(c Component) Component {
	switch v := c.(type) {
	case *Node:
		n := &Node{componentBase: v.copyBase(), pos: v.pos, edges: append([]string(nil), v.edges...)}
		n.self = n
		return n
	case *Edge:
		e := &Edge{componentBase: v.copyBase(), start: v.start, end: v.end}
		e.self = e
		return e
	case *Face:
		f := &Face{componentBase: v.copyBase(), nodes: append([]string(nil), v.nodes...), holes: append([]string(nil), v.holes...)}
		f.self = f
		return f
	case *RasterData:
		r := &RasterData{componentBase: v.copyBase()}
		if v.raster != nil {
			r.raster = v.raster.CloneRaster()
		}
		r.self = r
		return r
	case *Entity:
		e := &Entity{componentBase: v.copyBase()}
		e.self = e
		return e
	case *System:
		return v.cloneTree()
	}
	return nil
}

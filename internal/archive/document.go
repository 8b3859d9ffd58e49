package archive

import (
	"fmt"
	"time"

	simcore "simcore/internal/core"
	"simcore/pkg/domain"
)

// FormatVersion is written into every document. Load rejects other versions.
const FormatVersion = 1

// Document is the JSON layout of an archived system.
type Document struct {
	Format  int          `json:"format"`
	SavedAt time.Time    `json:"saved_at"`
	System  SystemRecord `json:"system"`
}

// SystemRecord holds one system and, recursively, its subsystems.
type SystemRecord struct {
	ID          string            `json:"id"`
	Lineage     string            `json:"lineage"`
	Generation  int               `json:"generation"`
	Predecessor string            `json:"predecessor,omitempty"`
	Attributes  []AttributeRecord `json:"attributes,omitempty"`
	Nodes       []NodeRecord      `json:"nodes,omitempty"`
	Edges       []EdgeRecord      `json:"edges,omitempty"`
	Faces       []FaceRecord      `json:"faces,omitempty"`
	Rasters     []RasterRecord    `json:"rasters,omitempty"`
	Entities    []EntityRecord    `json:"entities,omitempty"`
	SubSystems  []SystemRecord    `json:"subsystems,omitempty"`
	Views       []ViewRecord      `json:"views,omitempty"`
}

// AttributeRecord stores a value in the binary attribute encoding; JSON
// renders the bytes as base64.
type AttributeRecord struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value []byte `json:"value"`
}

// NodeRecord is an archived node.
type NodeRecord struct {
	ID         string            `json:"id"`
	Position   domain.Point      `json:"position"`
	Attributes []AttributeRecord `json:"attributes,omitempty"`
}

// EdgeRecord is an archived edge.
type EdgeRecord struct {
	ID         string            `json:"id"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Attributes []AttributeRecord `json:"attributes,omitempty"`
}

// FaceRecord is an archived face.
type FaceRecord struct {
	ID         string            `json:"id"`
	Nodes      []string          `json:"nodes"`
	Holes      []string          `json:"holes,omitempty"`
	Attributes []AttributeRecord `json:"attributes,omitempty"`
}

// RasterRecord is an archived raster layer.
type RasterRecord struct {
	ID         string            `json:"id"`
	Grid       *domain.Grid      `json:"grid,omitempty"`
	Attributes []AttributeRecord `json:"attributes,omitempty"`
}

// EntityRecord is an archived plain component.
type EntityRecord struct {
	ID         string            `json:"id"`
	Attributes []AttributeRecord `json:"attributes,omitempty"`
}

// ViewRecord is a bound view with its explicit membership.
type ViewRecord struct {
	domain.ViewSpec
	Members []string `json:"members,omitempty"`
}

func attributesOf(c simcore.Component) ([]AttributeRecord, error) {
	var out []AttributeRecord
	for _, a := range c.Attributes() {
		data, err := a.Value().MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", c.ID(), a.Name(), err)
		}
		out = append(out, AttributeRecord{Name: a.Name(), Type: a.Type().String(), Value: data})
	}
	return out, nil
}

func restoreAttributes(c simcore.Component, records []AttributeRecord) error {
	for _, r := range records {
		var v domain.Value
		if err := v.UnmarshalBinary(r.Value); err != nil {
			return fmt.Errorf("decode %s.%s: %w", c.ID(), r.Name, err)
		}
		if v.Type().String() != r.Type {
			return fmt.Errorf("%w: %s.%s declares %s but encodes %s", domain.ErrCorruptEncoding, c.ID(), r.Name, r.Type, v.Type())
		}
		if err := c.ChangeAttribute(r.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// gridOf copies any raster into a Grid.
func gridOf(r domain.Raster) *domain.Grid {
	if r == nil {
		return nil
	}
	if g, ok := r.(*domain.Grid); ok {
		return g
	}
	cols, rows := r.Size()
	dx, dy := r.CellSize()
	ox, oy := r.Origin()
	g := &domain.Grid{Cols: cols, Rows: rows, DX: dx, DY: dy, OriginX: ox, OriginY: oy, Missing: r.NoData(), Values: make([]float64, cols*rows)}
	for j := range rows {
		for i := range cols {
			g.SetCell(i, j, r.Cell(i, j))
		}
	}
	return g
}

// validate checks the references a document carries: edge endpoints and face
// rings name nodes, holes name other faces, view members name components of
// the same system.
func (r SystemRecord) validate() error {
	kinds := make(map[string]domain.Kind)
	for _, n := range r.Nodes {
		kinds[n.ID] = domain.KindNode
	}
	for _, e := range r.Edges {
		kinds[e.ID] = domain.KindEdge
	}
	for _, f := range r.Faces {
		kinds[f.ID] = domain.KindFace
	}
	for _, rd := range r.Rasters {
		kinds[rd.ID] = domain.KindRasterData
	}
	for _, e := range r.Entities {
		kinds[e.ID] = domain.KindComponent
	}
	for _, sub := range r.SubSystems {
		kinds[sub.ID] = domain.KindSystem
	}
	for _, e := range r.Edges {
		for _, id := range []string{e.Start, e.End} {
			if kinds[id] != domain.KindNode {
				return fmt.Errorf("%w: edge %s endpoint %s is not a node of system %s", domain.ErrStructuralViolation, e.ID, id, r.ID)
			}
		}
	}
	for _, f := range r.Faces {
		for _, id := range f.Nodes {
			if kinds[id] != domain.KindNode {
				return fmt.Errorf("%w: face %s node %s is not a node of system %s", domain.ErrStructuralViolation, f.ID, id, r.ID)
			}
		}
		for _, id := range f.Holes {
			if id == f.ID || kinds[id] != domain.KindFace {
				return fmt.Errorf("%w: face %s hole %s is not another face of system %s", domain.ErrStructuralViolation, f.ID, id, r.ID)
			}
		}
	}
	for _, v := range r.Views {
		for _, id := range v.Members {
			if _, ok := kinds[id]; !ok {
				return fmt.Errorf("%w: view %s member %s is missing", domain.ErrStructuralViolation, v.Name, id)
			}
		}
	}
	for _, sub := range r.SubSystems {
		if err := sub.validate(); err != nil {
			return err
		}
	}
	return nil
}

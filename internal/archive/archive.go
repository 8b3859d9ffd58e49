// Package archive saves systems as versioned JSON documents in a blob store
// and loads them back as fresh root systems that keep every component id.
//
// A derived system is archived as it is seen: components that still fall
// through to a predecessor are written like local ones, so a loaded archive
// has no predecessor chain. Lineage ids are kept as metadata.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"simcore/internal/blob"
	"simcore/internal/blob/core"
	simcore "simcore/internal/core"
	"simcore/pkg/domain"
)

const (
	keyPrefix   = "systems"
	contentType = "application/json"
)

// Key returns the default blob key of sys: systems/<lineage>/<generation>-<id>.json.
func Key(sys *simcore.System) string {
	return path.Join(keyPrefix, sys.LineageID(), fmt.Sprintf("%04d-%s.json", sys.Generation(), sys.ID()))
}

// Save writes sys under key. Blob stores are create-only, so saving twice to
// the same key fails with core.ErrExists. A system holding dangling references
// is rejected with domain.ErrStructuralViolation and nothing is written.
func Save(ctx context.Context, store blob.Store, key string, sys *simcore.System) (core.Info, error) {
	if sys == nil {
		return core.Info{}, fmt.Errorf("archive: nil system")
	}
	rec, err := recordOf(sys)
	if err == nil {
		err = rec.validate()
	}
	if err != nil {
		return core.Info{}, fmt.Errorf("archive %s: %w", sys.ID(), err)
	}
	doc := Document{Format: FormatVersion, SavedAt: time.Now().UTC(), System: rec}
	data, err := json.Marshal(doc)
	if err != nil {
		return core.Info{}, fmt.Errorf("archive %s: %w", sys.ID(), err)
	}
	return store.Put(ctx, key, bytes.NewReader(data), core.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"format":     strconv.Itoa(FormatVersion),
			"system":     rec.ID,
			"lineage":    rec.Lineage,
			"generation": strconv.Itoa(rec.Generation),
		},
	})
}

// Read fetches and decodes the document under key.
func Read(ctx context.Context, store blob.Store, key string) (Document, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer rc.Close()
	var doc Document
	if err := json.NewDecoder(rc).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("archive %s: %w", key, err)
	}
	if doc.Format != FormatVersion {
		return Document{}, fmt.Errorf("archive %s: unsupported format %d", key, doc.Format)
	}
	if err := doc.System.validate(); err != nil {
		return Document{}, fmt.Errorf("archive %s: %w", key, err)
	}
	return doc, nil
}

// Load rebuilds the archived system as a new root. opts configure the root as
// for core.NewSystem, e.g. a persistence hook.
func Load(ctx context.Context, store blob.Store, key string, opts ...simcore.SystemOption) (*simcore.System, error) {
	doc, err := Read(ctx, store, key)
	if err != nil {
		return nil, err
	}
	sys := simcore.NewSystem(append([]simcore.SystemOption{simcore.WithSystemID(doc.System.ID)}, opts...)...)
	if err := restoreInto(sys, doc.System); err != nil {
		return nil, fmt.Errorf("archive %s: %w", key, err)
	}
	return sys, nil
}

// Summary describes an archive without rebuilding it.
type Summary struct {
	Key        string    `json:"key" yaml:"key"`
	Format     int       `json:"format" yaml:"format"`
	SavedAt    time.Time `json:"saved_at" yaml:"saved_at"`
	SystemID   string    `json:"system_id" yaml:"system_id"`
	Lineage    string    `json:"lineage" yaml:"lineage"`
	Generation int       `json:"generation" yaml:"generation"`
	Nodes      int       `json:"nodes" yaml:"nodes"`
	Edges      int       `json:"edges" yaml:"edges"`
	Faces      int       `json:"faces" yaml:"faces"`
	Rasters    int       `json:"rasters" yaml:"rasters"`
	Entities   int       `json:"entities" yaml:"entities"`
	SubSystems int       `json:"subsystems" yaml:"subsystems"`
	Attributes int       `json:"attributes" yaml:"attributes"`
	Views      []string  `json:"views,omitempty" yaml:"views,omitempty"`
}

// Summarize reads key and counts its top-level contents.
func Summarize(ctx context.Context, store blob.Store, key string) (Summary, error) {
	doc, err := Read(ctx, store, key)
	if err != nil {
		return Summary{}, err
	}
	rec := doc.System
	s := Summary{
		Key:        key,
		Format:     doc.Format,
		SavedAt:    doc.SavedAt,
		SystemID:   rec.ID,
		Lineage:    rec.Lineage,
		Generation: rec.Generation,
		Nodes:      len(rec.Nodes),
		Edges:      len(rec.Edges),
		Faces:      len(rec.Faces),
		Rasters:    len(rec.Rasters),
		Entities:   len(rec.Entities),
		SubSystems: len(rec.SubSystems),
		Attributes: len(rec.Attributes),
	}
	for _, v := range rec.Views {
		s.Views = append(s.Views, v.Name)
	}
	return s, nil
}

// Keys lists archive keys of one lineage, or of every lineage when lineage is
// empty, in key order.
func Keys(ctx context.Context, store blob.Store, lineage string) ([]string, error) {
	prefix := keyPrefix + "/"
	if lineage != "" {
		prefix += lineage + "/"
	}
	infos, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	return keys, nil
}

func recordOf(s *simcore.System) (SystemRecord, error) {
	rec := SystemRecord{ID: s.ID(), Lineage: s.LineageID(), Generation: s.Generation()}
	if p := s.Predecessor(); p != nil {
		rec.Predecessor = p.ID()
	}
	var err error
	if rec.Attributes, err = attributesOf(s); err != nil {
		return rec, err
	}
	for _, n := range s.Nodes() {
		attrs, err := attributesOf(n)
		if err != nil {
			return rec, err
		}
		rec.Nodes = append(rec.Nodes, NodeRecord{ID: n.ID(), Position: n.Position(), Attributes: attrs})
	}
	for _, e := range s.Edges() {
		attrs, err := attributesOf(e)
		if err != nil {
			return rec, err
		}
		rec.Edges = append(rec.Edges, EdgeRecord{ID: e.ID(), Start: e.StartID(), End: e.EndID(), Attributes: attrs})
	}
	for _, f := range s.Faces() {
		attrs, err := attributesOf(f)
		if err != nil {
			return rec, err
		}
		rec.Faces = append(rec.Faces, FaceRecord{ID: f.ID(), Nodes: f.NodeIDs(), Holes: f.HoleIDs(), Attributes: attrs})
	}
	for _, r := range s.RasterLayers() {
		attrs, err := attributesOf(r)
		if err != nil {
			return rec, err
		}
		rec.Rasters = append(rec.Rasters, RasterRecord{ID: r.ID(), Grid: gridOf(r.Raster()), Attributes: attrs})
	}
	for _, e := range s.Entities() {
		attrs, err := attributesOf(e)
		if err != nil {
			return rec, err
		}
		rec.Entities = append(rec.Entities, EntityRecord{ID: e.ID(), Attributes: attrs})
	}
	for _, sub := range s.SubSystems() {
		subRec, err := recordOf(sub)
		if err != nil {
			return rec, err
		}
		rec.SubSystems = append(rec.SubSystems, subRec)
	}
	for _, v := range s.Views() {
		vr := ViewRecord{ViewSpec: domain.SpecOf(v)}
		if dv := s.DataViewer(v.Name()); dv != nil {
			vr.Members = dv.MemberIDs()
		}
		rec.Views = append(rec.Views, vr)
	}
	return rec, nil
}

func restoreInto(s *simcore.System, rec SystemRecord) error {
	if err := restoreAttributes(s, rec.Attributes); err != nil {
		return err
	}
	for _, r := range rec.Nodes {
		n := simcore.NewNode(r.Position.X, r.Position.Y, r.Position.Z)
		if err := restore(s, n, r.ID, r.Attributes); err != nil {
			return err
		}
	}
	for _, r := range rec.Edges {
		if err := restore(s, simcore.NewEdge(r.Start, r.End), r.ID, r.Attributes); err != nil {
			return err
		}
	}
	faces := make(map[string]*simcore.Face, len(rec.Faces))
	for _, r := range rec.Faces {
		f := simcore.NewFace(r.Nodes)
		if err := restore(s, f, r.ID, r.Attributes); err != nil {
			return err
		}
		faces[r.ID] = f
	}
	for _, r := range rec.Faces {
		for _, hole := range r.Holes {
			if err := faces[r.ID].AddHole(hole); err != nil {
				return err
			}
		}
	}
	for _, r := range rec.Rasters {
		var raster domain.Raster
		if r.Grid != nil {
			raster = r.Grid
		}
		if err := restore(s, simcore.NewRasterData(raster), r.ID, r.Attributes); err != nil {
			return err
		}
	}
	for _, r := range rec.Entities {
		if err := restore(s, simcore.NewEntity(), r.ID, r.Attributes); err != nil {
			return err
		}
	}
	for _, r := range rec.SubSystems {
		sub, err := s.RestoreSubSystem(r.ID)
		if err != nil {
			return err
		}
		if err := restoreInto(sub, r); err != nil {
			return err
		}
	}
	for _, vr := range rec.Views {
		v, err := vr.ViewSpec.View()
		if err != nil {
			return err
		}
		dv, err := s.AddDataViewer(v)
		if err != nil {
			return err
		}
		for _, id := range vr.Members {
			c := s.Component(id)
			if c == nil {
				return fmt.Errorf("%w: view %s member %s is missing", domain.ErrStructuralViolation, vr.Name, id)
			}
			if err := dv.AddComponent(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func restore(s *simcore.System, c simcore.Component, id string, attrs []AttributeRecord) error {
	if err := s.Restore(c, id); err != nil {
		return err
	}
	return restoreAttributes(c, attrs)
}

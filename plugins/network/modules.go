package network

import (
	"context"
	"fmt"
	"math"

	"simcore/internal/core"
	"simcore/pkg/domain"
)

// View names shared by the network modules.
const (
	NodesView      = "nodes"
	ConduitsView   = "conduits"
	CatchmentsView = "catchments"
	TerrainView    = "terrain"
	BlockersView   = "blockers"
	OutfallsView   = "outfalls"
)

// Attribute names written by the network modules.
const (
	ClassAttribute      = "class"
	SlopeAttribute      = "slope"
	DownstreamAttribute = "downstream"
	RunoffAttribute     = "runoff"
)

// Node classes.
const (
	ClassOutfall  = "outfall"
	ClassJunction = "junction"
)

// GridModule lays out a regular network: one node per grid corner, a conduit
// between neighbouring corners and a catchment face per cell. Node elevation
// rises with x by Slope.
type GridModule struct {
	Cols    int
	Rows    int
	Spacing float64
	Slope   float64
}

func newGridModule(params map[string]any) (core.Module, error) {
	var m GridModule
	var err error
	if m.Cols, err = intParam(params, "cols", 2); err != nil {
		return nil, err
	}
	if m.Rows, err = intParam(params, "rows", 2); err != nil {
		return nil, err
	}
	if m.Spacing, err = floatParam(params, "spacing", 10); err != nil {
		return nil, err
	}
	if m.Slope, err = floatParam(params, "slope", 0.1); err != nil {
		return nil, err
	}
	if m.Cols <= 0 || m.Rows <= 0 {
		return nil, fmt.Errorf("grid needs at least one cell, got %dx%d", m.Cols, m.Rows)
	}
	if err := positive("spacing", m.Spacing); err != nil {
		return nil, err
	}
	return m, nil
}

func (GridModule) Name() string { return "network.grid" }

func (GridModule) Views() []domain.View {
	return []domain.View{
		domain.NewView(NodesView, domain.KindNode, domain.AccessWrite),
		domain.NewView(ConduitsView, domain.KindEdge, domain.AccessWrite),
		domain.NewView(CatchmentsView, domain.KindFace, domain.AccessWrite),
	}
}

func (m GridModule) Run(ctx context.Context, sc *core.StageContext) error {
	sys := sc.System()
	nodes, conduits, catchments := sc.Viewer(NodesView).View(), sc.Viewer(ConduitsView).View(), sc.Viewer(CatchmentsView).View()

	ids := make([][]string, m.Rows+1)
	for j := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids[j] = make([]string, m.Cols+1)
		for i := range ids[j] {
			x, y := float64(i)*m.Spacing, float64(j)*m.Spacing
			n, err := sys.AddNode(domain.Point{X: x, Y: y, Z: m.Slope * x}, nodes)
			if err != nil {
				return err
			}
			ids[j][i] = n.ID()
		}
	}
	link := func(a, b string) error {
		_, err := sys.AddEdge(a, b, conduits)
		return err
	}
	for j := 0; j <= m.Rows; j++ {
		for i := 0; i <= m.Cols; i++ {
			if i < m.Cols {
				if err := link(ids[j][i], ids[j][i+1]); err != nil {
					return err
				}
			}
			if j < m.Rows {
				if err := link(ids[j][i], ids[j+1][i]); err != nil {
					return err
				}
			}
		}
	}
	for j := 0; j < m.Rows; j++ {
		for i := 0; i < m.Cols; i++ {
			ring := []string{ids[j][i], ids[j][i+1], ids[j+1][i+1], ids[j+1][i]}
			if _, err := sys.AddFace(ring, catchments); err != nil {
				return err
			}
		}
	}
	sc.Logger().Info("network laid out", "nodes", (m.Cols+1)*(m.Rows+1), "catchments", m.Cols*m.Rows)
	return nil
}

// TerrainModule adds a rainfall raster of constant depth and, when cells are
// listed in Blocked, a blocker raster marking them.
type TerrainModule struct {
	Cols    int
	Rows    int
	Cell    float64
	Depth   float64
	Blocked [][2]int
}

func newTerrainModule(params map[string]any) (core.Module, error) {
	var m TerrainModule
	var err error
	if m.Cols, err = intParam(params, "cols", 4); err != nil {
		return nil, err
	}
	if m.Rows, err = intParam(params, "rows", 4); err != nil {
		return nil, err
	}
	if m.Cell, err = floatParam(params, "cell", 5); err != nil {
		return nil, err
	}
	if m.Depth, err = floatParam(params, "depth", 1); err != nil {
		return nil, err
	}
	if m.Blocked, err = cellsParam(params, "blocked"); err != nil {
		return nil, err
	}
	if err := positive("cell", m.Cell); err != nil {
		return nil, err
	}
	if m.Cols <= 0 || m.Rows <= 0 {
		return nil, fmt.Errorf("terrain needs at least one cell, got %dx%d", m.Cols, m.Rows)
	}
	return m, nil
}

func (TerrainModule) Name() string { return "network.terrain" }

func (TerrainModule) Views() []domain.View {
	return []domain.View{
		domain.NewView(TerrainView, domain.KindRasterData, domain.AccessWrite),
		domain.NewView(BlockersView, domain.KindRasterData, domain.AccessWrite),
	}
}

func (m TerrainModule) Run(_ context.Context, sc *core.StageContext) error {
	rain, err := domain.NewGrid(m.Cols, m.Rows, m.Cell, m.Cell)
	if err != nil {
		return err
	}
	for i := range rain.Values {
		rain.Values[i] = m.Depth
	}
	if _, err := sc.System().AddRasterData(rain, sc.Viewer(TerrainView).View()); err != nil {
		return err
	}
	if len(m.Blocked) == 0 {
		return nil
	}
	mask, _ := domain.NewGrid(m.Cols, m.Rows, m.Cell, m.Cell)
	for _, c := range m.Blocked {
		mask.SetCell(c[0], c[1], 1)
	}
	_, err = sc.System().AddRasterData(mask, sc.Viewer(BlockersView).View())
	return err
}

// RunoffModule samples the terrain raster over every catchment and stores the
// result in Attribute. Mode selects the aggregation.
type RunoffModule struct {
	Attribute string
	Mode      domain.SampleMode
	Sampler   domain.AreaSampler
}

func newRunoffModule(params map[string]any) (core.Module, error) {
	attr, err := stringParam(params, "attribute", RunoffAttribute)
	if err != nil {
		return nil, err
	}
	mode, err := stringParam(params, "mode", "sum")
	if err != nil {
		return nil, err
	}
	m := RunoffModule{Attribute: attr, Sampler: GridSampler{}}
	switch mode {
	case "sum":
		m.Mode = domain.SampleSum
	case "mean":
		m.Mode = domain.SampleMean
	default:
		return nil, fmt.Errorf("parameter mode: unknown aggregation %q", mode)
	}
	return m, nil
}

func (RunoffModule) Name() string { return "network.runoff" }

func (m RunoffModule) Views() []domain.View {
	catchments := domain.NewView(CatchmentsView, domain.KindFace, domain.AccessRead)
	catchments.AddAttribute(m.Attribute, domain.TypeDouble)
	return []domain.View{
		catchments,
		domain.NewView(TerrainView, domain.KindRasterData, domain.AccessRead),
		domain.NewView(BlockersView, domain.KindRasterData, domain.AccessRead),
	}
}

func (m RunoffModule) Run(ctx context.Context, sc *core.StageContext) error {
	rain := firstRaster(sc.Viewer(TerrainView))
	if rain == nil {
		return fmt.Errorf("%w: no raster in view %s", domain.ErrStructuralViolation, TerrainView)
	}
	mask := firstRaster(sc.Viewer(BlockersView))
	sampler := m.Sampler
	if sampler == nil {
		sampler = GridSampler{}
	}
	sys := sc.System()
	faces := sc.Viewer(CatchmentsView).Components()
	for _, c := range faces {
		if err := ctx.Err(); err != nil {
			return err
		}
		poly, err := sys.FacePolygon(c.ID())
		if err != nil {
			return err
		}
		v := sampler.SumOverArea(rain, poly, mask)
		if m.Mode == domain.SampleMean {
			v = sampler.MeanOverArea(rain, poly, mask)
		}
		if err := c.ChangeAttribute(m.Attribute, domain.DoubleValue(v)); err != nil {
			return err
		}
	}
	sc.Logger().Info("catchments sampled", "count", len(faces), "attribute", m.Attribute)
	return nil
}

func firstRaster(dv *core.DataViewer) domain.Raster {
	if dv == nil {
		return nil
	}
	for _, c := range dv.Components() {
		if rd, ok := c.(*core.RasterData); ok {
			if r := rd.Raster(); r != nil {
				return r
			}
		}
	}
	return nil
}

// ClassifyModule marks nodes at or below OutfallBelow as outfalls and every
// other node as a junction, then gives each conduit its slope and a link to
// its lower end.
type ClassifyModule struct {
	OutfallBelow float64
}

func newClassifyModule(params map[string]any) (core.Module, error) {
	below, err := floatParam(params, "outfall_below", 0)
	if err != nil {
		return nil, err
	}
	return ClassifyModule{OutfallBelow: below}, nil
}

func (ClassifyModule) Name() string { return "network.classify" }

func (ClassifyModule) Views() []domain.View {
	nodes := domain.NewView(NodesView, domain.KindNode, domain.AccessRead)
	nodes.AddAttribute(ClassAttribute, domain.TypeString)
	outfalls := domain.NewView(OutfallsView, domain.KindNode, domain.AccessRead)
	outfalls.GetAttribute(ClassAttribute, domain.TypeString).
		AddFilter(domain.AttributeStringFilter(ClassAttribute, ClassOutfall))
	conduits := domain.NewView(ConduitsView, domain.KindEdge, domain.AccessRead)
	conduits.AddAttribute(SlopeAttribute, domain.TypeDouble).
		AddLinks(DownstreamAttribute, NodesView)
	return []domain.View{nodes, outfalls, conduits}
}

func (m ClassifyModule) Run(ctx context.Context, sc *core.StageContext) error {
	sys := sc.System()
	outfalls := sc.Viewer(OutfallsView)
	for _, c := range sc.Viewer(NodesView).Components() {
		n, ok := c.(*core.Node)
		if !ok {
			continue
		}
		class := ClassJunction
		if n.Position().Z <= m.OutfallBelow {
			class = ClassOutfall
		}
		if err := n.ChangeAttribute(ClassAttribute, domain.StringValue(class)); err != nil {
			return err
		}
		if err := outfalls.AddComponent(n); err != nil {
			return err
		}
	}
	for _, c := range sc.Viewer(ConduitsView).Components() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, ok := c.(*core.Edge)
		if !ok {
			continue
		}
		start, end := sys.Node(e.StartID()), sys.Node(e.EndID())
		if start == nil || end == nil {
			return fmt.Errorf("%w: conduit %s lost an endpoint", domain.ErrStructuralViolation, e.ID())
		}
		a, b := start.Position(), end.Position()
		length := math.Hypot(b.X-a.X, b.Y-a.Y)
		slope := 0.0
		if length > 0 {
			slope = (a.Z - b.Z) / length
		}
		lower := end
		if a.Z < b.Z {
			lower = start
		}
		if err := e.ChangeAttribute(SlopeAttribute, domain.DoubleValue(slope)); err != nil {
			return err
		}
		if err := e.ChangeAttribute(DownstreamAttribute, domain.LinksValue([]domain.Link{{UUID: lower.ID(), View: NodesView}})); err != nil {
			return err
		}
	}
	sc.Logger().Info("network classified", "outfalls", outfalls.FilteredLen())
	return nil
}

package domain

import "fmt"

// Point is a position in model space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Axis returns the coordinate on axis c.
func (p Point) Axis(c Coordinate) float64 {
	switch c {
	case CoordY:
		return p.Y
	case CoordZ:
		return p.Z
	default:
		return p.X
	}
}

// Raster is a regular grid of cells anchored at Origin. Cell (i, j) covers
// [ox+i*dx, ox+(i+1)*dx) x [oy+j*dy, oy+(j+1)*dy).
type Raster interface {
	Size() (cols, rows int)
	CellSize() (dx, dy float64)
	Origin() (x, y float64)
	NoData() float64
	Cell(i, j int) float64
	SetCell(i, j int, v float64)
	// CloneRaster returns an independent deep copy.
	CloneRaster() Raster
}

// DefaultNoData marks cells without a value in grids created by NewGrid.
const DefaultNoData = -9999.0

// Grid is a dense row-major Raster.
type Grid struct {
	Cols    int       `json:"cols"`
	Rows    int       `json:"rows"`
	DX      float64   `json:"dx"`
	DY      float64   `json:"dy"`
	OriginX float64   `json:"origin_x"`
	OriginY float64   `json:"origin_y"`
	Missing float64   `json:"no_data"`
	Values  []float64 `json:"values"`
}

// NewGrid allocates a grid filled with zeros.
func NewGrid(cols, rows int, dx, dy float64) (*Grid, error) {
	if cols <= 0 || rows <= 0 || dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("invalid grid %dx%d with cell %gx%g", cols, rows, dx, dy)
	}
	return &Grid{Cols: cols, Rows: rows, DX: dx, DY: dy, Missing: DefaultNoData, Values: make([]float64, cols*rows)}, nil
}

func (g *Grid) Size() (int, int)             { return g.Cols, g.Rows }
func (g *Grid) CellSize() (float64, float64) { return g.DX, g.DY }
func (g *Grid) Origin() (float64, float64)   { return g.OriginX, g.OriginY }
func (g *Grid) NoData() float64              { return g.Missing }

// Cell returns the cell value or NoData outside the grid.
func (g *Grid) Cell(i, j int) float64 {
	if i < 0 || j < 0 || i >= g.Cols || j >= g.Rows {
		return g.Missing
	}
	return g.Values[j*g.Cols+i]
}

// SetCell writes a cell; writes outside the grid are ignored.
func (g *Grid) SetCell(i, j int, v float64) {
	if i < 0 || j < 0 || i >= g.Cols || j >= g.Rows {
		return
	}
	g.Values[j*g.Cols+i] = v
}

func (g *Grid) CloneRaster() Raster {
	out := *g
	out.Values = append([]float64(nil), g.Values...)
	return &out
}

// SampleMode selects the aggregation of SampleFace.
type SampleMode uint8

// Aggregations.
const (
	SampleSum SampleMode = iota
	SampleMean
)

// AreaSampler aggregates raster cells inside a polygon. Cells where blocker is
// set (non-zero and not NoData) are excluded; blocker may be nil.
type AreaSampler interface {
	SumOverArea(r Raster, polygon []Point, blocker Raster) float64
	MeanOverArea(r Raster, polygon []Point, blocker Raster) float64
}

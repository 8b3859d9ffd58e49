package network

import (
	"math"

	"simcore/pkg/domain"
)

// GridSampler aggregates the raster cells whose centres fall inside a polygon.
// Cells holding NoData are skipped, as are cells whose centre lands on a set
// blocker cell.
type GridSampler struct{}

// SumOverArea implements domain.AreaSampler.
func (GridSampler) SumOverArea(r domain.Raster, polygon []domain.Point, blocker domain.Raster) float64 {
	sum, _ := aggregate(r, polygon, blocker)
	return sum
}

// MeanOverArea implements domain.AreaSampler. An area without sampled cells
// has mean 0.
func (GridSampler) MeanOverArea(r domain.Raster, polygon []domain.Point, blocker domain.Raster) float64 {
	sum, n := aggregate(r, polygon, blocker)
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func aggregate(r domain.Raster, polygon []domain.Point, blocker domain.Raster) (float64, int) {
	if r == nil || len(polygon) < 3 {
		return 0, 0
	}
	cols, rows := r.Size()
	dx, dy := r.CellSize()
	ox, oy := r.Origin()
	missing := r.NoData()

	minX, minY, maxX, maxY := bounds(polygon)
	i0 := max(0, int(math.Floor((minX-ox)/dx)))
	i1 := min(cols-1, int(math.Floor((maxX-ox)/dx)))
	j0 := max(0, int(math.Floor((minY-oy)/dy)))
	j1 := min(rows-1, int(math.Floor((maxY-oy)/dy)))

	var sum float64
	var n int
	for j := j0; j <= j1; j++ {
		cy := oy + (float64(j)+0.5)*dy
		for i := i0; i <= i1; i++ {
			cx := ox + (float64(i)+0.5)*dx
			if !inside(polygon, cx, cy) || blocked(blocker, cx, cy) {
				continue
			}
			v := r.Cell(i, j)
			if v == missing || math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
	}
	return sum, n
}

func bounds(polygon []domain.Point) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range polygon {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// inside applies the even-odd rule; the ring may be open or closed.
func inside(polygon []domain.Point, x, y float64) bool {
	in := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if (a.Y > y) != (b.Y > y) && x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

func blocked(b domain.Raster, x, y float64) bool {
	if b == nil {
		return false
	}
	ox, oy := b.Origin()
	dx, dy := b.CellSize()
	cols, rows := b.Size()
	i := int(math.Floor((x - ox) / dx))
	j := int(math.Floor((y - oy) / dy))
	if i < 0 || j < 0 || i >= cols || j >= rows {
		return false
	}
	v := b.Cell(i, j)
	return v != 0 && v != b.NoData()
}

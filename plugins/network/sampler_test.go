package network

import (
	"math"
	"testing"

	"simcore/internal/core"
	"simcore/pkg/domain"
)

func filledGrid(t *testing.T, cols, rows int, cell, v float64) *domain.Grid {
	t.Helper()
	g, err := domain.NewGrid(cols, rows, cell, cell)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	for i := range g.Values {
		g.Values[i] = v
	}
	return g
}

func square(x0, y0, x1, y1 float64) []domain.Point {
	return []domain.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestGridSamplerAggregatesCellCentres(t *testing.T) {
	g := filledGrid(t, 4, 4, 1, 1)
	g.SetCell(1, 1, 5)
	g.SetCell(0, 1, g.NoData())
	mask, _ := domain.NewGrid(4, 4, 1, 1)
	mask.SetCell(1, 0, 1)
	mask.SetCell(0, 0, mask.NoData())

	var s GridSampler
	cases := []struct {
		name      string
		polygon   []domain.Point
		blocker   domain.Raster
		sum, mean float64
	}{
		{"two by two", square(0, 0, 2, 2), nil, 1 + 1 + 5, 7.0 / 3},
		{"blocked cell", square(0, 0, 2, 2), mask, 1 + 5, 3},
		{"closed ring", append(square(2, 2, 4, 4), domain.Point{X: 2, Y: 2}), nil, 4, 1},
		{"triangle", []domain.Point{{X: 0, Y: 2}, {X: 4, Y: 2}, {X: 0, Y: 4}}, nil, 4, 1},
		{"outside", square(10, 10, 12, 12), nil, 0, 0},
		{"degenerate", []domain.Point{{X: 0, Y: 0}, {X: 4, Y: 4}}, nil, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.SumOverArea(g, tc.polygon, tc.blocker); math.Abs(got-tc.sum) > 1e-9 {
				t.Fatalf("sum = %v, want %v", got, tc.sum)
			}
			if got := s.MeanOverArea(g, tc.polygon, tc.blocker); math.Abs(got-tc.mean) > 1e-9 {
				t.Fatalf("mean = %v, want %v", got, tc.mean)
			}
		})
	}
	if s.SumOverArea(nil, square(0, 0, 1, 1), nil) != 0 {
		t.Fatalf("nil raster must sample to zero")
	}
}

func TestGridSamplerHonoursOrigin(t *testing.T) {
	g := filledGrid(t, 2, 2, 10, 3)
	g.OriginX, g.OriginY = 100, 200
	if got := (GridSampler{}).SumOverArea(g, square(100, 200, 110, 210), nil); got != 3 {
		t.Fatalf("sum = %v, want 3", got)
	}
	if got := (GridSampler{}).SumOverArea(g, square(0, 0, 10, 10), nil); got != 0 {
		t.Fatalf("sum = %v, want 0", got)
	}
}

func TestSystemSampleFaceUsesGridSampler(t *testing.T) {
	sys := core.NewSystem(core.WithAreaSampler(GridSampler{}))
	var ids []string
	for _, p := range square(0, 0, 10, 10) {
		n, err := sys.AddNode(p)
		if err != nil {
			t.Fatalf("node: %v", err)
		}
		ids = append(ids, n.ID())
	}
	f, err := sys.AddFace(ids)
	if err != nil {
		t.Fatalf("face: %v", err)
	}
	rain, err := sys.AddRasterData(filledGrid(t, 4, 4, 5, 2))
	if err != nil {
		t.Fatalf("raster: %v", err)
	}
	mask, _ := domain.NewGrid(4, 4, 5, 5)
	mask.SetCell(1, 1, 1)
	blocker, err := sys.AddRasterData(mask)
	if err != nil {
		t.Fatalf("blocker: %v", err)
	}

	if got, err := sys.SampleFace(f.ID(), rain.ID(), "", domain.SampleSum); err != nil || got != 8 {
		t.Fatalf("sum = %v, %v; want 8", got, err)
	}
	if got, err := sys.SampleFace(f.ID(), rain.ID(), blocker.ID(), domain.SampleSum); err != nil || got != 6 {
		t.Fatalf("blocked sum = %v, %v; want 6", got, err)
	}
	if got, err := sys.SampleFace(f.ID(), rain.ID(), blocker.ID(), domain.SampleMean); err != nil || got != 2 {
		t.Fatalf("mean = %v, %v; want 2", got, err)
	}
}

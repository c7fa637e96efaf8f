package cluster

import (
	"math"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

// perspectiveView builds a camera at the origin looking down -Z.
func perspectiveView(fovY float32, width, height uint32, near, far float32) View {
	v := View{ViewportWidth: width, ViewportHeight: height, Near: near, Far: far}
	v.View = common.IdentityMat4()
	common.Perspective(v.Projection[:], fovY, float32(width)/float32(height), near, far)
	var vp [16]float32
	common.Mul4(vp[:], v.Projection[:], v.View[:])
	v.Frustum = common.ExtractFrustumFromMatrix(vp[:])
	return v
}

func occupiedCells(g *Grid, light uint32) [][3]uint32 {
	var out [][3]uint32
	d := g.Dims()
	for z := uint32(0); z < d[2]; z++ {
		for y := uint32(0); y < d[1]; y++ {
			for x := uint32(0); x < d[0]; x++ {
				if slices.Contains(g.Lights(x, y, z), light) {
					out = append(out, [3]uint32{x, y, z})
				}
			}
		}
	}
	return out
}

func TestAssignPointLightCells(t *testing.T) {
	view := perspectiveView(math.Pi/2, 600, 600, 1, 5)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(6, 6, 4), WithSlicing(SlicingLinear)), view)

	res := Assign(g, view, []VisibleLight{{Index: 0, Center: [3]float32{0.3, -1.2, -2.6}, Radius: 0.5}}, nil)

	cells := occupiedCells(g, 0)
	if len(cells) != 18 {
		t.Fatalf("light landed in %d cells, want 18: %v", len(cells), cells)
	}
	for _, c := range cells {
		if c[0] < 2 || c[0] > 4 || c[1] < 3 || c[1] > 5 || c[2] < 1 || c[2] > 2 {
			t.Errorf("unexpected cell %v", c)
		}
	}
	if res.Entries != 18 || g.TotalEntries() != 18 {
		t.Errorf("Entries = %d, TotalEntries = %d, want 18", res.Entries, g.TotalEntries())
	}
	if !slices.Equal(res.Visible, []uint32{0}) {
		t.Errorf("Visible = %v, want [0]", res.Visible)
	}
}

func TestAssignSliceBoundaries(t *testing.T) {
	// Linear slices over [1, 5] with Z=4 start at depths 1, 2, 3 and 4.
	view := perspectiveView(math.Pi/2, 600, 600, 1, 5)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(1, 1, 4), WithSlicing(SlicingLinear)), view)

	tests := []struct {
		name   string
		depth  float32
		radius float32
		want   [][3]uint32
	}{
		{"far extent on boundary stays below it", 2.5, 0.5, [][3]uint32{{0, 0, 1}}},
		{"near extent on boundary starts there", 3.5, 0.5, [][3]uint32{{0, 0, 2}}},
		{"spans two slices", 3, 0.5, [][3]uint32{{0, 0, 1}, {0, 0, 2}}},
		{"far extent on far plane", 4.5, 0.5, [][3]uint32{{0, 0, 3}}},
		{"inside one slice", 1.5, 0.25, [][3]uint32{{0, 0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Assign(g, view, []VisibleLight{{Index: 0, Center: [3]float32{0, 0, -tt.depth}, Radius: tt.radius}}, nil)
			if got := occupiedCells(g, 0); !slices.Equal(got, tt.want) {
				t.Errorf("cells = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssignCullsLightsOutsideFrustum(t *testing.T) {
	view := perspectiveView(math.Pi/2, 600, 600, 1, 5)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(6, 6, 4)), view)

	lights := []VisibleLight{
		{Index: 0, Center: [3]float32{0, 0, 3}, Radius: 1},
		{Index: 1, Center: [3]float32{0, 0, -20}, Radius: 2},
	}
	res := Assign(g, view, lights, nil)
	if g.TotalEntries() != 0 || res.Culled != 2 || len(res.Visible) != 0 {
		t.Errorf("expected both lights culled, got %+v with %d entries", res, g.TotalEntries())
	}
}

func TestAssignDirectionalLightEverywhere(t *testing.T) {
	view := perspectiveView(math.Pi/3, 640, 480, 0.1, 50)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(4, 3, 5)), view)

	Assign(g, view, []VisibleLight{{Index: 9, Directional: true}}, nil)
	for i := 0; i < g.CellCount(); i++ {
		if !slices.Equal(g.Cell(i), []uint32{9}) {
			t.Fatalf("cell %d = %v, want [9]", i, g.Cell(i))
		}
	}
}

func TestAssignOrthographicSingleCell(t *testing.T) {
	view := View{Orthographic: true, ViewportWidth: 100, ViewportHeight: 100, Near: 0, Far: 20}
	view.View = common.IdentityMat4()
	common.Ortho(view.Projection[:], -5, 5, -5, 5, 0, 20)
	var vp [16]float32
	common.Mul4(vp[:], view.Projection[:], view.View[:])
	view.Frustum = common.ExtractFrustumFromMatrix(vp[:])

	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(8, 8, 8)), view)
	if g.Dims() != [3]uint32{1, 1, 1} {
		t.Fatalf("orthographic grid dims = %v, want 1x1x1", g.Dims())
	}
	Assign(g, view, []VisibleLight{
		{Index: 0, Center: [3]float32{1, 1, -4}, Radius: 1},
		{Index: 1, Center: [3]float32{-3, 2, -15}, Radius: 2},
	}, nil)
	if got := g.Cell(0); !slices.Equal(got, []uint32{0, 1}) {
		t.Errorf("cell 0 = %v, want [0 1]", got)
	}
}

func TestAssignNearPlaneCoversWholeScreen(t *testing.T) {
	view := perspectiveView(math.Pi/2, 600, 600, 1, 10)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(4, 4, 4), WithSlicing(SlicingLinear)), view)

	Assign(g, view, []VisibleLight{{Index: 0, Center: [3]float32{0, 0, -1.5}, Radius: 1}}, nil)
	for y := uint32(0); y < 4; y++ {
		for x := uint32(0); x < 4; x++ {
			if len(g.Lights(x, y, 0)) != 1 {
				t.Errorf("tile (%d,%d) in slice 0 should hold the light", x, y)
			}
		}
	}
	if len(g.Lights(0, 0, 3)) != 0 {
		t.Error("the light should not reach the last slice")
	}
}

func TestAssignDepthMonotonic(t *testing.T) {
	view := perspectiveView(math.Pi/2, 800, 600, 0.1, 100)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(8, 6, 24)), view)

	prev := uint32(0)
	for i := 0; i < 40; i++ {
		depth := 0.5 + float32(i)*2
		Assign(g, view, []VisibleLight{{Index: 0, Center: [3]float32{0, 0, -depth}, Radius: 0.25}}, nil)
		cells := occupiedCells(g, 0)
		if len(cells) == 0 {
			t.Fatalf("light at depth %v landed nowhere", depth)
		}
		lo := cells[0][2]
		if lo < prev {
			t.Fatalf("nearest slice decreased at depth %v: %d < %d", depth, lo, prev)
		}
		prev = lo
	}
}

func TestAssignKeepsLightOrderWithPool(t *testing.T) {
	pool := schedule.NewPool(schedule.WithWorkers(4))
	defer pool.Close()

	view := perspectiveView(math.Pi/2, 600, 600, 0.5, 30)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(2, 2, 2)), view)

	var lights []VisibleLight
	for i := 0; i < 64; i++ {
		lights = append(lights, VisibleLight{Index: uint32(i), Center: [3]float32{0, 0, -5}, Radius: 40})
	}
	res := Assign(g, view, lights, pool)
	if len(res.Visible) != 64 {
		t.Fatalf("Visible has %d lights, want 64", len(res.Visible))
	}
	for i := 0; i < g.CellCount(); i++ {
		cell := g.Cell(i)
		if len(cell) != 64 || !slices.IsSorted(cell) {
			t.Fatalf("cell %d should hold all lights in order, got %v", i, cell)
		}
	}
}

func TestAssignMaxLightRangeFar(t *testing.T) {
	view := perspectiveView(math.Pi/2, 600, 600, 1, 100)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(1, 1, 4), WithSlicing(SlicingLinear), WithFarZMode(FarZMaxLightRange)), view)

	Assign(g, view, []VisibleLight{{Index: 0, Center: [3]float32{0, 0, -8}, Radius: 1}}, nil)
	if near, far := g.DepthRange(); near != 1 || far != 9 {
		t.Errorf("DepthRange() = %v, %v, want 1, 9", near, far)
	}
}

func TestAssignDegenerateDepthRange(t *testing.T) {
	view := perspectiveView(math.Pi/2, 600, 600, 1, 5)
	g := NewGrid()
	g.Configure(NewConfig(ModeFixedGrid, WithDims(2, 2, 2)), view)
	view.Far = 1

	res := Assign(g, view, []VisibleLight{
		{Index: 0, Center: [3]float32{0, 0, -2}, Radius: 1},
		{Index: 1, Directional: true},
	}, nil)
	if !res.Degenerate {
		t.Fatal("expected a degenerate result")
	}
	if !slices.Equal(res.Visible, []uint32{1}) {
		t.Errorf("Visible = %v, want only the directional light", res.Visible)
	}
}

func TestAssignDisabledGrid(t *testing.T) {
	view := perspectiveView(math.Pi/2, 600, 600, 1, 5)
	g := NewGrid()
	g.Configure(NewConfig(ModeNone), view)
	res := Assign(g, view, []VisibleLight{{Index: 0, Directional: true}}, nil)
	if res.Entries != 0 || len(res.Visible) != 0 {
		t.Errorf("disabled grid should assign nothing, got %+v", res)
	}
}

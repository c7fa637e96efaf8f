package cluster

import (
	"github.com/chewxy/math32"
)

// minSliceDepth keeps logarithmic slicing finite when a near plane of zero reaches it.
const minSliceDepth float32 = 1e-4

// Grid is one camera's cluster grid: X screen tiles by Y screen tiles by Z depth
// slices, each cell holding the indices of the lights that may affect it.
//
// The cell table is reallocated only when the resolved counts change. The
// light lists are cleared at the start of every assignment pass.
type Grid struct {
	config Config
	dims   [3]uint32

	near       float32
	far        float32
	firstSlice float32

	cells [][]uint32
}

// NewGrid creates an empty grid with no cells.
//
// Returns:
//   - *Grid: the new grid
func NewGrid() *Grid {
	return &Grid{}
}

// Configure resolves the cell counts for cfg and view and rebuilds the cell
// table when they differ from the current counts.
//
// Parameters:
//   - cfg: the camera's cluster configuration
//   - view: the camera inputs
//
// Returns:
//   - bool: true if the cell table was reallocated
func (g *Grid) Configure(cfg Config, view View) bool {
	g.config = cfg
	g.near = view.Near
	g.far = view.Far
	return g.Rebuild(Resolve(cfg, view))
}

// Rebuild reallocates the cell table for new counts. Nothing carries over
// from the previous table.
//
// Parameters:
//   - dims: the X, Y, Z cell counts
//
// Returns:
//   - bool: true if the counts changed and the table was reallocated
func (g *Grid) Rebuild(dims [3]uint32) bool {
	if dims == g.dims && g.cells != nil {
		return false
	}
	g.dims = dims
	g.cells = make([][]uint32, int(dims[0])*int(dims[1])*int(dims[2]))
	return true
}

// Clear empties every cell's light list, keeping the allocated capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Enabled reports whether the grid has any cells.
func (g *Grid) Enabled() bool {
	return len(g.cells) > 0
}

// Config returns the configuration the grid was last configured with.
func (g *Grid) Config() Config {
	return g.config
}

// Dims returns the X, Y, Z cell counts.
func (g *Grid) Dims() [3]uint32 {
	return g.dims
}

// CellCount returns X*Y*Z.
func (g *Grid) CellCount() int {
	return len(g.cells)
}

// DepthRange returns the near and far view depths the Z slices span.
func (g *Grid) DepthRange() (near, far float32) {
	return g.near, g.far
}

// CellIndex returns the flat index of cell (x, y, z): (z*Y + y)*X + x.
//
// Parameters:
//   - x, y, z: cell coordinates
//
// Returns:
//   - int: the flat cell index
func (g *Grid) CellIndex(x, y, z uint32) int {
	return int((z*g.dims[1]+y)*g.dims[0] + x)
}

// Cell returns the light list of a cell by flat index. The slice is owned by
// the grid and valid until the next assignment pass.
//
// Parameters:
//   - i: flat cell index
//
// Returns:
//   - []uint32: light indices in insertion order
func (g *Grid) Cell(i int) []uint32 {
	return g.cells[i]
}

// Lights returns the light list of cell (x, y, z).
//
// Parameters:
//   - x, y, z: cell coordinates
//
// Returns:
//   - []uint32: light indices in insertion order
func (g *Grid) Lights(x, y, z uint32) []uint32 {
	return g.cells[g.CellIndex(x, y, z)]
}

// TotalEntries returns the sum of every cell's light count.
func (g *Grid) TotalEntries() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}

// ZFactors returns scale and bias such that, for exponential slicing,
// slice = log(depth)*scale - bias. For linear slicing,
// slice = depth*scale - bias. Shaders use these to find a fragment's slice.
//
// Returns:
//   - scale, bias: the slice factors
func (g *Grid) ZFactors() (scale, bias float32) {
	z := float32(g.dims[2])
	if g.dims[2] <= 1 || g.far <= g.near {
		return 0, 0
	}
	if g.config.ZConfig.Slicing == SlicingLinear {
		scale = z / (g.far - g.near)
		return scale, g.near * scale
	}
	near, far := g.sliceStart(), g.far
	if g.firstSlice > 0 {
		z--
	}
	scale = z / math32.Log(far/near)
	bias = math32.Log(near) * scale
	if g.firstSlice > 0 {
		bias--
	}
	return scale, bias
}

// setDepthRange fixes the depth span the slices cover for this pass.
func (g *Grid) setDepthRange(near, far float32) {
	g.near = near
	g.far = far
	g.firstSlice = 0
	if fs := g.config.ZConfig.FirstSliceDepth; fs > near && fs < far && g.dims[2] > 1 &&
		g.config.ZConfig.Slicing == SlicingExponential {
		g.firstSlice = fs
	}
}

// sliceStart is the depth where exponential slicing begins.
func (g *Grid) sliceStart() float32 {
	if g.firstSlice > 0 {
		return g.firstSlice
	}
	return max(g.near, minSliceDepth)
}

// sliceCoord maps a view depth to a continuous slice coordinate in [0, Z].
// Integer values are slice boundaries; the mapping is monotonic in depth.
func (g *Grid) sliceCoord(depth float32) float32 {
	z := float32(g.dims[2])
	if g.dims[2] <= 1 {
		return 0
	}
	near, far := g.near, g.far
	depth = min(max(depth, near), far)

	if g.config.ZConfig.Slicing == SlicingLinear {
		return z * (depth - near) / (far - near)
	}
	if g.firstSlice > 0 {
		if depth <= g.firstSlice {
			return (depth - near) / (g.firstSlice - near)
		}
		return 1 + (z-1)*math32.Log(depth/g.firstSlice)/math32.Log(far/g.firstSlice)
	}
	near = max(near, minSliceDepth)
	depth = max(depth, near)
	return z * math32.Log(depth/near) / math32.Log(far/near)
}

// SliceIndex returns the Z slice containing a view depth. Slices are
// inclusive-lower, exclusive-upper: a depth exactly on a boundary belongs to
// the slice that starts there. Assign applies the same rule to light spans,
// so a span ending on a boundary stays in the lower slice.
//
// Parameters:
//   - depth: positive view-space depth
//
// Returns:
//   - uint32: the slice index in [0, Z-1]
func (g *Grid) SliceIndex(depth float32) uint32 {
	if g.dims[2] == 0 {
		return 0
	}
	s := math32.Floor(g.sliceCoord(depth))
	return uint32(min(max(s, 0), float32(g.dims[2]-1)))
}

func (g *Grid) append(cell int, light uint32) {
	g.cells[cell] = append(g.cells[cell], light)
}

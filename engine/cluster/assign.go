package cluster

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
)

// VisibleLight is a light offered to cluster assignment.
type VisibleLight struct {
	// Index is the light's index in the frame's GPU light array. It is the
	// value appended to cell lists.
	Index uint32
	// Directional lights affect every cell; Center and Radius are ignored.
	Directional bool
	// Center and Radius describe the world-space sphere of influence of a
	// point or spot light.
	Center [3]float32
	Radius float32
}

// Result summarizes one assignment pass.
type Result struct {
	// Visible lists the Index of every light that landed in at least one cell,
	// in input order.
	Visible []uint32
	// Culled counts point and spot lights rejected by the frustum test.
	Culled int
	// Entries is the total number of light indices written to cells.
	Entries int
	// Degenerate is set when the camera's depth range is empty; only
	// directional lights are assigned in that case.
	Degenerate bool
}

// cellBox is an inclusive 3D range of cell coordinates.
type cellBox struct {
	lo, hi [3]uint32
	ok     bool
}

// lightPrep holds per-light values computed before the depth range is known.
type lightPrep struct {
	viewCenter [3]float32
	depth      float32
	inFrustum  bool
}

// Assign clears the grid's light lists and appends every light's index to each
// cell its influence may reach.
//
// Directional lights go to every cell. Point and spot lights outside the camera
// frustum are skipped; the rest are bounded on screen by projecting their
// view-space box and in depth by slicing [depth-r, depth+r]. Ranges use
// inclusive-lower, exclusive-upper bounds so a sphere ending exactly on a
// boundary does not spill into the next cell.
//
// Per-light ranges are computed on pool; cells are filled afterwards on the
// calling goroutine in light order, so each cell's list keeps insertion order.
//
// Parameters:
//   - g: the grid, already configured for this camera
//   - view: the camera inputs
//   - lights: the candidate lights
//   - pool: executor for the per-light work; nil runs serially
//
// Returns:
//   - Result: the pass summary
func Assign(g *Grid, view View, lights []VisibleLight, pool schedule.Pool) Result {
	var res Result
	if !g.Enabled() {
		return res
	}
	if pool == nil {
		pool = schedule.Serial{}
	}
	g.Clear()

	prep := make([]lightPrep, len(lights))
	pool.ParallelFor(len(lights), func(i int) {
		l := lights[i]
		if l.Directional {
			return
		}
		vc := common.TransformPoint(view.View, l.Center)
		prep[i] = lightPrep{
			viewCenter: vc,
			depth:      -vc[2],
			inFrustum:  view.Frustum.IntersectsSphere(l.Center, l.Radius),
		}
	})

	near, far := clusterDepthRange(g.config.ZConfig, view, lights, prep)
	if !(far > near) {
		res.Degenerate = true
	}
	g.setDepthRange(near, far)

	boxes := make([]cellBox, len(lights))
	if !res.Degenerate {
		pool.ParallelFor(len(lights), func(i int) {
			l := lights[i]
			if l.Directional || !prep[i].inFrustum {
				return
			}
			boxes[i] = sphereCells(g, view, prep[i], l.Radius)
		})
	}

	all := g.CellCount()
	for i, l := range lights {
		if l.Directional {
			for c := 0; c < all; c++ {
				g.append(c, l.Index)
			}
			res.Entries += all
			res.Visible = append(res.Visible, l.Index)
			continue
		}
		b := boxes[i]
		if !b.ok {
			if !res.Degenerate {
				res.Culled++
			}
			continue
		}
		for z := b.lo[2]; z <= b.hi[2]; z++ {
			for y := b.lo[1]; y <= b.hi[1]; y++ {
				for x := b.lo[0]; x <= b.hi[0]; x++ {
					g.append(g.CellIndex(x, y, z), l.Index)
					res.Entries++
				}
			}
		}
		res.Visible = append(res.Visible, l.Index)
	}
	return res
}

// clusterDepthRange picks the near and far view depths the Z slices span.
func clusterDepthRange(z ZConfig, view View, lights []VisibleLight, prep []lightPrep) (near, far float32) {
	near = view.Near
	switch z.FarZMode {
	case FarZConstant:
		far = z.FarZ
	case FarZMaxLightRange:
		far = near
		for i, l := range lights {
			if l.Directional || !prep[i].inFrustum {
				continue
			}
			far = max(far, prep[i].depth+l.Radius)
		}
		far = min(far, view.Far)
		if far <= near {
			far = view.Far
		}
	default:
		far = view.Far
	}
	return near, far
}

// sphereCells computes the cell box of a sphere that passed the frustum test.
func sphereCells(g *Grid, view View, p lightPrep, radius float32) cellBox {
	var b cellBox
	dims := g.dims

	b.lo[2], b.hi[2] = cellRange(g.sliceCoord(p.depth-radius), g.sliceCoord(p.depth+radius), dims[2])

	if dims[0] == 1 && dims[1] == 1 {
		b.ok = true
		return b
	}
	if !view.Orthographic && p.depth-radius <= view.Near {
		// The sphere reaches the near plane, where its projection is unbounded.
		b.hi[0], b.hi[1] = dims[0]-1, dims[1]-1
		b.ok = true
		return b
	}

	ndcMin := mgl32.Vec2{math32.MaxFloat32, math32.MaxFloat32}
	ndcMax := mgl32.Vec2{-math32.MaxFloat32, -math32.MaxFloat32}
	for corner := 0; corner < 8; corner++ {
		c := p.viewCenter
		c[0] += signOf(corner&1) * radius
		c[1] += signOf(corner&2) * radius
		c[2] += signOf(corner&4) * radius
		ndc := common.TransformPoint(view.Projection, c)
		ndcMin[0], ndcMin[1] = min(ndcMin[0], ndc[0]), min(ndcMin[1], ndc[1])
		ndcMax[0], ndcMax[1] = max(ndcMax[0], ndc[0]), max(ndcMax[1], ndc[1])
	}
	ndcMin[0], ndcMin[1] = mgl32.Clamp(ndcMin[0], -1, 1), mgl32.Clamp(ndcMin[1], -1, 1)
	ndcMax[0], ndcMax[1] = mgl32.Clamp(ndcMax[0], -1, 1), mgl32.Clamp(ndcMax[1], -1, 1)

	// Tiles are numbered from the top-left corner of the screen.
	fx, fy := float32(dims[0]), float32(dims[1])
	b.lo[0], b.hi[0] = cellRange((ndcMin[0]+1)*0.5*fx, (ndcMax[0]+1)*0.5*fx, dims[0])
	b.lo[1], b.hi[1] = cellRange((1-ndcMax[1])*0.5*fy, (1-ndcMin[1])*0.5*fy, dims[1])
	b.ok = true
	return b
}

// cellRange converts a continuous [lo, hi] coordinate span into inclusive
// cell indices with inclusive-lower, exclusive-upper semantics, clamped to [0, n-1].
func cellRange(lo, hi float32, n uint32) (uint32, uint32) {
	l := math32.Floor(lo)
	h := math32.Ceil(hi) - 1
	if h < l {
		h = l
	}
	return clampIndex(l, n), clampIndex(h, n)
}

func clampIndex(v float32, n uint32) uint32 {
	if math32.IsNaN(v) || v < 0 || n == 0 {
		return 0
	}
	if v > float32(n-1) {
		return n - 1
	}
	return uint32(v)
}

func signOf(bit int) float32 {
	if bit != 0 {
		return 1
	}
	return -1
}

package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns dot(Normal, p) + Distance. Positive values lie on the
// inside of the plane.
func (p Plane) SignedDistance(point [3]float32) float32 {
	return mgl32.Vec3(p.Normal).Dot(mgl32.Vec3(point)) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
// A Frustum is a value; rebuild it rather than editing planes in place.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// EmptyFrustum returns a frustum that contains nothing. It stands in for the
// frustum of degenerate geometry so downstream culling produces empty sets.
//
// Returns:
//   - Frustum: a frustum every intersection test rejects
func EmptyFrustum() Frustum {
	var f Frustum
	for i := range f.Planes {
		f.Planes[i].Distance = -math32.MaxFloat32
	}
	return f
}

// IsEmpty reports whether f was produced by EmptyFrustum.
func (f *Frustum) IsEmpty() bool {
	for _, p := range f.Planes {
		if p.Normal != [3]float32{} || p.Distance != -math32.MaxFloat32 {
			return false
		}
	}
	return true
}

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix and use WebGPU
// clip space, where NDC depth spans [0, 1].
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// For column-major matrix M, element M[row][col] is at index col*4 + row
	// So M[i][j] = viewProj[j*4 + i]

	// Left plane: row3 + row0
	f.Planes[FrustumLeft].Normal[0] = viewProj[3] + viewProj[0]
	f.Planes[FrustumLeft].Normal[1] = viewProj[7] + viewProj[4]
	f.Planes[FrustumLeft].Normal[2] = viewProj[11] + viewProj[8]
	f.Planes[FrustumLeft].Distance = viewProj[15] + viewProj[12]

	// Right plane: row3 - row0
	f.Planes[FrustumRight].Normal[0] = viewProj[3] - viewProj[0]
	f.Planes[FrustumRight].Normal[1] = viewProj[7] - viewProj[4]
	f.Planes[FrustumRight].Normal[2] = viewProj[11] - viewProj[8]
	f.Planes[FrustumRight].Distance = viewProj[15] - viewProj[12]

	// Bottom plane: row3 + row1
	f.Planes[FrustumBottom].Normal[0] = viewProj[3] + viewProj[1]
	f.Planes[FrustumBottom].Normal[1] = viewProj[7] + viewProj[5]
	f.Planes[FrustumBottom].Normal[2] = viewProj[11] + viewProj[9]
	f.Planes[FrustumBottom].Distance = viewProj[15] + viewProj[13]

	// Top plane: row3 - row1
	f.Planes[FrustumTop].Normal[0] = viewProj[3] - viewProj[1]
	f.Planes[FrustumTop].Normal[1] = viewProj[7] - viewProj[5]
	f.Planes[FrustumTop].Normal[2] = viewProj[11] - viewProj[9]
	f.Planes[FrustumTop].Distance = viewProj[15] - viewProj[13]

	// Near plane: row2 alone, since clip z >= 0 in WebGPU
	f.Planes[FrustumNear].Normal[0] = viewProj[2]
	f.Planes[FrustumNear].Normal[1] = viewProj[6]
	f.Planes[FrustumNear].Normal[2] = viewProj[10]
	f.Planes[FrustumNear].Distance = viewProj[14]

	// Far plane: row3 - row2
	f.Planes[FrustumFar].Normal[0] = viewProj[3] - viewProj[2]
	f.Planes[FrustumFar].Normal[1] = viewProj[7] - viewProj[6]
	f.Planes[FrustumFar].Normal[2] = viewProj[11] - viewProj[10]
	f.Planes[FrustumFar].Distance = viewProj[15] - viewProj[14]

	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := mgl32.Vec3(p.Normal).Len()

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}

// ContainsPoint reports whether p lies inside or on every plane of the frustum.
//
// Parameters:
//   - p: world-space point
//
// Returns:
//   - bool: true if the point is inside
func (f *Frustum) ContainsPoint(p [3]float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether a sphere is at least partially inside the
// frustum. A sphere is rejected only when it lies fully behind a single plane.
//
// Parameters:
//   - center: world-space sphere center
//   - radius: sphere radius
//
// Returns:
//   - bool: true unless the sphere is fully outside one plane
func (f *Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// IntersectsAABB tests an axis-aligned box with the positive-vertex method:
// for each plane only the corner furthest along the plane normal is checked.
//
// Parameters:
//   - min, max: world-space box corners
//
// Returns:
//   - bool: true unless the box is fully outside one plane
func (f *Frustum) IntersectsAABB(min, max [3]float32) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		var v [3]float32
		for a := 0; a < 3; a++ {
			if p.Normal[a] >= 0 {
				v[a] = max[a]
			} else {
				v[a] = min[a]
			}
		}
		if p.SignedDistance(v) < 0 {
			return false
		}
	}
	return true
}

// IntersectsOBB tests an oriented box by projecting its half extents onto each
// plane normal.
//
// Parameters:
//   - center: world-space box center
//   - halfExtents: half size along each local axis
//   - axes: unit local axes in world space
//
// Returns:
//   - bool: true unless the box is fully outside one plane
func (f *Frustum) IntersectsOBB(center, halfExtents [3]float32, axes [3][3]float32) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		n := mgl32.Vec3(p.Normal)
		r := halfExtents[0]*math32.Abs(n.Dot(mgl32.Vec3(axes[0]))) +
			halfExtents[1]*math32.Abs(n.Dot(mgl32.Vec3(axes[1]))) +
			halfExtents[2]*math32.Abs(n.Dot(mgl32.Vec3(axes[2])))
		if p.SignedDistance(center) < -r {
			return false
		}
	}
	return true
}

// Intersects dispatches to the plane test matching the bounding volume kind.
// Volumes with an unknown kind are treated as visible.
//
// Parameters:
//   - b: the world-space bounding volume
//
// Returns:
//   - bool: true if the volume is at least partially inside
func (f *Frustum) Intersects(b BoundingVolume) bool {
	switch b.Kind {
	case BoundsSphere:
		return f.IntersectsSphere(b.Center, b.Radius)
	case BoundsAABB:
		return f.IntersectsAABB(b.Min(), b.Max())
	case BoundsOBB:
		return f.IntersectsOBB(b.Center, b.HalfExtents, b.Axes)
	default:
		return true
	}
}

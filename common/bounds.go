package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundsKind selects which fields of a BoundingVolume are meaningful.
type BoundsKind uint8

const (
	// BoundsSphere uses Center and Radius.
	BoundsSphere BoundsKind = iota
	// BoundsAABB uses Center and HalfExtents along the world axes.
	BoundsAABB
	// BoundsOBB uses Center, HalfExtents and Axes.
	BoundsOBB
)

// String returns a readable name for the bounds kind.
func (k BoundsKind) String() string {
	switch k {
	case BoundsSphere:
		return "sphere"
	case BoundsAABB:
		return "aabb"
	case BoundsOBB:
		return "obb"
	default:
		return "unknown"
	}
}

// BoundingVolume is a tagged bounding shape. Kind decides which test
// Frustum.Intersects runs; the other fields are ignored.
type BoundingVolume struct {
	Kind        BoundsKind
	Center      [3]float32
	Radius      float32
	HalfExtents [3]float32
	Axes        [3][3]float32
}

// NewSphereBounds creates a sphere bounding volume.
//
// Parameters:
//   - center: sphere center
//   - radius: sphere radius
//
// Returns:
//   - BoundingVolume: the sphere volume
func NewSphereBounds(center [3]float32, radius float32) BoundingVolume {
	return BoundingVolume{Kind: BoundsSphere, Center: center, Radius: radius}
}

// NewAABBBounds creates an axis-aligned box from its min and max corners.
//
// Parameters:
//   - min, max: box corners
//
// Returns:
//   - BoundingVolume: the box volume
func NewAABBBounds(min, max [3]float32) BoundingVolume {
	c := mgl32.Vec3(min).Add(mgl32.Vec3(max)).Mul(0.5)
	h := mgl32.Vec3(max).Sub(mgl32.Vec3(min)).Mul(0.5)
	return BoundingVolume{Kind: BoundsAABB, Center: [3]float32(c), HalfExtents: [3]float32(h)}
}

// NewOBBBounds creates an oriented box.
//
// Parameters:
//   - center: box center
//   - halfExtents: half size along each axis
//   - axes: box axes (normalized on construction)
//
// Returns:
//   - BoundingVolume: the oriented box volume
func NewOBBBounds(center, halfExtents [3]float32, axes [3][3]float32) BoundingVolume {
	for i := range axes {
		axes[i] = Normalize3(axes[i])
	}
	return BoundingVolume{Kind: BoundsOBB, Center: center, HalfExtents: halfExtents, Axes: axes}
}

// Min returns the minimum corner of an AABB volume.
func (b BoundingVolume) Min() [3]float32 {
	return [3]float32(mgl32.Vec3(b.Center).Sub(mgl32.Vec3(b.HalfExtents)))
}

// Max returns the maximum corner of an AABB volume.
func (b BoundingVolume) Max() [3]float32 {
	return [3]float32(mgl32.Vec3(b.Center).Add(mgl32.Vec3(b.HalfExtents)))
}

// BoundingSphere returns a sphere enclosing the volume.
//
// Returns:
//   - [3]float32: sphere center
//   - float32: sphere radius
func (b BoundingVolume) BoundingSphere() ([3]float32, float32) {
	if b.Kind == BoundsSphere {
		return b.Center, b.Radius
	}
	return b.Center, mgl32.Vec3(b.HalfExtents).Len()
}

// Transform maps a local-space volume into world space with a column-major
// model matrix. Spheres scale by the largest axis scale, boxes keep their kind
// (an AABB is re-fitted around the rotated box).
//
// Parameters:
//   - model: the local-to-world matrix
//
// Returns:
//   - BoundingVolume: the world-space volume
func (b BoundingVolume) Transform(model [16]float32) BoundingVolume {
	m := mgl32.Mat4(model)
	cols := [3]mgl32.Vec3{m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()}
	out := b
	out.Center = TransformPoint(model, b.Center)

	switch b.Kind {
	case BoundsSphere:
		scale := math32.Max(cols[0].Len(), math32.Max(cols[1].Len(), cols[2].Len()))
		out.Radius = b.Radius * scale
	case BoundsAABB:
		for row := 0; row < 3; row++ {
			var h float32
			for col := 0; col < 3; col++ {
				h += math32.Abs(cols[col][row]) * b.HalfExtents[col]
			}
			out.HalfExtents[row] = h
		}
	case BoundsOBB:
		for i := 0; i < 3; i++ {
			axis := [3]float32(mgl32.TransformNormal(mgl32.Vec3(b.Axes[i]), m))
			l := mgl32.Vec3(axis).Len()
			out.HalfExtents[i] = b.HalfExtents[i] * l
			out.Axes[i] = Normalize3(axis)
		}
	}
	return out
}

package shadow

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
)

// DefaultNear is the near plane used for point and spot shadow views.
const DefaultNear float32 = 0.1

// maxSpotFov keeps the spot projection finite when the outer cone reaches 90 degrees.
const maxSpotFov = math32.Pi - 1e-3

// View is one shadow map view of a light.
type View struct {
	Position       [3]float32
	Near           float32
	Far            float32
	View           [16]float32
	Projection     [16]float32
	ViewProjection [16]float32
	Frustum        common.Frustum
	// Empty marks a view built from degenerate input; its frustum rejects everything.
	Empty bool
}

// cubeFace is the look direction and up vector of one cube map face.
type cubeFace struct {
	dir, up [3]float32
}

// cubeFaces lists the point light shadow faces in cube map layer order.
var cubeFaces = [6]cubeFace{
	{[3]float32{1, 0, 0}, [3]float32{0, -1, 0}},
	{[3]float32{-1, 0, 0}, [3]float32{0, -1, 0}},
	{[3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
	{[3]float32{0, -1, 0}, [3]float32{0, 0, -1}},
	{[3]float32{0, 0, 1}, [3]float32{0, -1, 0}},
	{[3]float32{0, 0, -1}, [3]float32{0, -1, 0}},
}

// CascadeFrusta returns the culling frustum of each cascade. Empty cascades get
// a frustum that rejects everything.
//
// Parameters:
//   - cascades: the cascades of one directional light for one camera
//
// Returns:
//   - []common.Frustum: one frustum per cascade, in order
func CascadeFrusta(cascades []cascade.Cascade) []common.Frustum {
	out := make([]common.Frustum, len(cascades))
	for i := range cascades {
		if cascades[i].Empty {
			out[i] = common.EmptyFrustum()
			continue
		}
		out[i] = common.ExtractFrustumFromMatrix(cascades[i].ViewProjection[:])
	}
	return out
}

// PointFrusta builds the six 90 degree views of a point light, ordered
// +X, -X, +Y, -Y, +Z, -Z.
//
// Parameters:
//   - position: world-space light position
//   - lightRange: the light's range, used as the far plane
//   - near: the near plane distance
//
// Returns:
//   - [6]View: the face views; all are Empty when lightRange <= near
func PointFrusta(position [3]float32, lightRange, near float32) [6]View {
	var out [6]View
	for i, face := range cubeFaces {
		out[i] = perspectiveView(position, face.dir, face.up, math32.Pi/2, near, lightRange)
	}
	return out
}

// SpotFrustum builds the view of a spot light. The field of view spans the
// full outer cone.
//
// Parameters:
//   - position: world-space light position
//   - direction: cone axis
//   - outerCone: cosine of the outer cone half-angle
//   - lightRange: the light's range, used as the far plane
//   - near: the near plane distance
//
// Returns:
//   - View: the spot view; Empty for a zero direction or lightRange <= near
func SpotFrustum(position, direction [3]float32, outerCone, lightRange, near float32) View {
	fov := 2 * math32.Acos(common.Clamp(outerCone, -1, 1))
	fov = common.Clamp(fov, 1e-3, maxSpotFov)
	return perspectiveView(position, direction, [3]float32{0, 1, 0}, fov, near, lightRange)
}

func perspectiveView(position, dir, up [3]float32, fov, near, far float32) View {
	v := View{Position: position, Near: near, Far: far}
	if common.Normalize3(dir) == [3]float32{} || !(far > near) || !(near > 0) {
		return emptyView(v)
	}
	common.LookDir(v.View[:], position, dir, up)
	common.Perspective(v.Projection[:], fov, 1, near, far)
	common.Mul4(v.ViewProjection[:], v.Projection[:], v.View[:])
	v.Frustum = common.ExtractFrustumFromMatrix(v.ViewProjection[:])
	return v
}

func emptyView(v View) View {
	id := common.IdentityMat4()
	v.View, v.Projection, v.ViewProjection = id, id, id
	v.Frustum = common.EmptyFrustum()
	v.Empty = true
	return v
}

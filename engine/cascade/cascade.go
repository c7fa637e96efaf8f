package cascade

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
)

// Stage is the name cascade diagnostics are recorded under.
const Stage = "build_cascades"

// Cascade is one fitted shadow map view for a slice of a camera's view range.
type Cascade struct {
	// NearBound and FarBound are the view depths of the camera slice this
	// cascade covers.
	NearBound float32
	FarBound  float32
	// View is world to light space; Projection is the orthographic light
	// projection with depth in [0, 1].
	View           [16]float32
	Projection     [16]float32
	ViewProjection [16]float32
	// TexelSize is the world-space width of one shadow map texel.
	TexelSize float32
	// Empty marks a cascade built from degenerate input. Its matrices are
	// identity and it should be skipped.
	Empty bool
}

// CameraInputs is what the cascade builder reads from the viewing camera.
type CameraInputs struct {
	// ID identifies the camera in diagnostics.
	ID uint64
	// InverseView is camera to world.
	InverseView  [16]float32
	Orthographic bool
	// FovY is the vertical field of view in radians for perspective cameras.
	FovY   float32
	Aspect float32
	// OrthoHeight is the view height for orthographic cameras.
	OrthoHeight float32
	Near        float32
	Far         float32
}

// Build fits one cascade per configured split for a directional light.
//
// Cascade i covers view depths [near_i, far_i] where far_i is
// MaximumDistance*Fractions[i] and near_i is the previous far bound (the first
// starts at the camera near plane, or MinimumDistance if larger). Each
// cascade's orthographic box is sized from the slice's diagonal so its extent
// does not change as the camera rotates, and its origin is snapped to whole
// texels so shadow edges do not shimmer while the camera moves. The light-space
// depth range reaches back toward the light far enough to include every
// shadow caster above the slice.
//
// Parameters:
//   - cfg: the cascade configuration
//   - cam: the viewing camera
//   - lightDir: world-space direction the light travels
//   - casters: world-space bounds of the shadow casters
//   - rec: diagnostics recorder, may be nil
//
// Returns:
//   - []Cascade: one cascade per fraction, in order
func Build(cfg Config, cam CameraInputs, lightDir [3]float32, casters []common.BoundingVolume, rec diagnostics.Recorder) []Cascade {
	out := make([]Cascade, len(cfg.Fractions))

	maxDist := common.Coalesce(cfg.MaximumDistance, cam.Far)
	dir := common.Normalize3(lightDir)
	degenerate := func(i int, format string, args ...any) {
		out[i] = emptyCascade(out[i].NearBound, out[i].FarBound)
		if rec != nil {
			rec.Record(diagnostics.KindDegenerateGeometry, Stage, format, args...)
		}
	}

	var lightView [16]float32
	var inv [16]float32
	viewOK := dir != [3]float32{} && common.Invert4(inv[:], cam.InverseView[:])
	if viewOK {
		common.LookDir(lightView[:], [3]float32{}, dir, [3]float32{0, 1, 0})
	}

	prevFar := float32(0)
	for i, fraction := range cfg.Fractions {
		near := prevFar
		if i == 0 {
			near = max(cam.Near, cfg.MinimumDistance)
		}
		far := maxDist * fraction
		prevFar = far
		out[i].NearBound, out[i].FarBound = near, far

		switch {
		case dir == [3]float32{}:
			degenerate(i, "camera %d: zero light direction", cam.ID)
			continue
		case !viewOK:
			degenerate(i, "camera %d: singular view matrix", cam.ID)
			continue
		case cfg.Resolution == 0:
			degenerate(i, "camera %d: zero shadow map resolution", cam.ID)
			continue
		case !(far > near):
			degenerate(i, "camera %d: cascade %d has near %v >= far %v", cam.ID, i, near, far)
			continue
		}

		fitNear := near
		if i > 0 {
			fitNear = max(near*(1-cfg.Overlap), cam.Near)
		}
		out[i] = fit(cam, lightView, fitNear, far, cfg.Resolution, casters)
		out[i].NearBound, out[i].FarBound = near, far
	}
	return out
}

// fit builds the light matrices for the camera slice [near, far].
func fit(cam CameraInputs, lightView [16]float32, near, far float32, resolution uint32, casters []common.BoundingVolume) Cascade {
	corners := SliceCorners(cam, near, far)

	// The diagonal lengths do not depend on the camera orientation, so the
	// box size stays fixed while the camera turns.
	diameter := math32.Ceil(max(
		common.Distance3(corners[0], corners[6]),
		common.Distance3(corners[4], corners[6]),
	))
	texel := diameter / float32(resolution)

	minL := mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	maxL := mgl32.Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	for _, c := range corners {
		p := common.TransformPoint(lightView, c)
		for a := 0; a < 3; a++ {
			minL[a] = min(minL[a], p[a])
			maxL[a] = max(maxL[a], p[a])
		}
	}

	cx := SnapToTexel((minL[0]+maxL[0])/2, texel)
	cy := SnapToTexel((minL[1]+maxL[1])/2, texel)
	half := diameter / 2

	// Light space looks down -Z: depth along the light is -z.
	zNear, zFar := -maxL[2], -minL[2]
	for _, b := range casters {
		center, r := b.BoundingSphere()
		p := common.TransformPoint(lightView, center)
		if math32.Abs(p[0]-cx) > half+r || math32.Abs(p[1]-cy) > half+r {
			continue
		}
		zNear = min(zNear, -p[2]-r)
	}

	c := Cascade{View: lightView, TexelSize: texel}
	common.Ortho(c.Projection[:], cx-half, cx+half, cy-half, cy+half, zNear, zFar)
	common.Mul4(c.ViewProjection[:], c.Projection[:], c.View[:])
	return c
}

// SliceCorners returns the world-space corners of the camera's view volume
// between two view depths. Corners 0-3 lie on the near face and 4-7 on the far
// face, each face ordered bottom-left, bottom-right, top-right, top-left.
//
// Parameters:
//   - cam: the camera
//   - near, far: positive view depths
//
// Returns:
//   - [8][3]float32: the corners
func SliceCorners(cam CameraInputs, near, far float32) [8][3]float32 {
	var out [8][3]float32
	for face, depth := range [2]float32{near, far} {
		var hh float32
		if cam.Orthographic {
			hh = cam.OrthoHeight / 2
		} else {
			hh = depth * math32.Tan(cam.FovY/2)
		}
		hw := hh * cam.Aspect
		quad := [4][2]float32{{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh}}
		for k, q := range quad {
			out[face*4+k] = common.TransformPoint(cam.InverseView, [3]float32{q[0], q[1], -depth})
		}
	}
	return out
}

// SnapToTexel rounds v to the nearest multiple of texel. Snapping an already
// snapped value returns it unchanged.
//
// Parameters:
//   - v: a light-space coordinate
//   - texel: the texel size (values <= 0 leave v unchanged)
//
// Returns:
//   - float32: the snapped coordinate
func SnapToTexel(v, texel float32) float32 {
	if !(texel > 0) {
		return v
	}
	t := float64(texel)
	return float32(math.Round(float64(v)/t) * t)
}

func emptyCascade(near, far float32) Cascade {
	id := common.IdentityMat4()
	return Cascade{
		NearBound:      near,
		FarBound:       far,
		View:           id,
		Projection:     id,
		ViewProjection: id,
		Empty:          true,
	}
}

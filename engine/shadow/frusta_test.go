package shadow

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
)

func TestPointFrustaFaceOrder(t *testing.T) {
	pos := [3]float32{2, 1, -3}
	faces := PointFrusta(pos, 10, DefaultNear)

	samples := [6][3]float32{
		{7, 1, -3}, {-3, 1, -3}, {2, 6, -3}, {2, -4, -3}, {2, 1, 2}, {2, 1, -8},
	}
	for i, f := range faces {
		if f.Empty {
			t.Fatalf("face %d should not be empty", i)
		}
		for j, p := range samples {
			got := f.Frustum.ContainsPoint(p)
			if got != (i == j) {
				t.Errorf("face %d contains sample %d = %v, want %v", i, j, got, i == j)
			}
		}
	}
}

func TestPointFrustaCoverAllDirections(t *testing.T) {
	pos := [3]float32{0, 0, 0}
	faces := PointFrusta(pos, 5, DefaultNear)
	for _, p := range [][3]float32{{1, 0.9, 0.5}, {-2, 0.5, 3}, {0.1, -4, 0.2}, {-1, -0.8, -0.6}} {
		hit := false
		for _, f := range faces {
			if f.Frustum.ContainsPoint(p) {
				hit = true
			}
		}
		if !hit {
			t.Errorf("no face contains %v", p)
		}
	}
	if faces[0].Frustum.ContainsPoint([3]float32{6, 0, 0}) {
		t.Error("point beyond the range should be outside")
	}
}

func TestPointFrustaDegenerate(t *testing.T) {
	for i, f := range PointFrusta([3]float32{}, 0.05, DefaultNear) {
		if !f.Empty || !f.Frustum.IsEmpty() {
			t.Errorf("face %d should be empty when range is inside the near plane", i)
		}
	}
}

func TestSpotFrustum(t *testing.T) {
	cone := float32(math.Cos(math.Pi / 6))
	v := SpotFrustum([3]float32{0, 4, 0}, [3]float32{0, -1, 0}, cone, 8, DefaultNear)
	if v.Empty {
		t.Fatal("spot view should not be empty")
	}
	if !v.Frustum.ContainsPoint([3]float32{0, 0, 0}) {
		t.Error("point on the axis should be inside")
	}
	// 30 degree half-angle at 4 units down covers a radius of about 2.31.
	if !v.Frustum.ContainsPoint([3]float32{2.2, 0, 0}) {
		t.Error("point just inside the cone should be inside")
	}
	if v.Frustum.ContainsPoint([3]float32{2.5, 0, 0}) {
		t.Error("point outside the cone should be outside")
	}
	if v.Frustum.ContainsPoint([3]float32{0, -5, 0}) {
		t.Error("point beyond the range should be outside")
	}

	wide := SpotFrustum([3]float32{}, [3]float32{0, 0, -1}, 0, 5, DefaultNear)
	if wide.Empty || math.IsNaN(float64(wide.Projection[0])) {
		t.Error("a 90 degree cone should still give a finite projection")
	}
	if !SpotFrustum([3]float32{}, [3]float32{}, cone, 5, DefaultNear).Empty {
		t.Error("zero direction should give an empty view")
	}
}

func TestCascadeFrusta(t *testing.T) {
	var inv [16]float32
	common.Identity(inv[:])
	cam := cascade.CameraInputs{InverseView: inv, FovY: math.Pi / 3, Aspect: 1, Near: 0.1, Far: 50}
	cascades := cascade.Build(cascade.NewConfig(cascade.WithFractions(0.2, 1)), cam, [3]float32{0, -1, -0.2}, nil, nil)
	cascades = append(cascades, cascade.Cascade{Empty: true})

	frusta := CascadeFrusta(cascades)
	if len(frusta) != 3 {
		t.Fatalf("got %d frusta, want 3", len(frusta))
	}
	if !frusta[0].ContainsPoint([3]float32{0, 0, -5}) {
		t.Error("first cascade should contain a point in its slice")
	}
	if !frusta[2].IsEmpty() {
		t.Error("empty cascade should give an empty frustum")
	}
}

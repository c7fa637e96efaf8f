package common

import (
	"math"
	"testing"
)

func perspectiveFrustum(t *testing.T) Frustum {
	t.Helper()
	var proj, view, vp [16]float32
	Perspective(proj[:], math.Pi/2, 1, 1, 10)
	LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)
	Mul4(vp[:], proj[:], view[:])
	return ExtractFrustumFromMatrix(vp[:])
}

func TestFrustumContainsPoint(t *testing.T) {
	f := perspectiveFrustum(t)

	tests := []struct {
		name string
		p    [3]float32
		want bool
	}{
		{"center", [3]float32{0, 0, -5}, true},
		{"before near", [3]float32{0, 0, -0.5}, false},
		{"past far", [3]float32{0, 0, -11}, false},
		{"right of frustum", [3]float32{6, 0, -5}, false},
		{"above frustum", [3]float32{0, 6, -5}, false},
		{"behind camera", [3]float32{0, 0, 5}, false},
		{"inside corner", [3]float32{4, -4, -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsPoint(tt.p); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestFrustumNearPlaneDepthRange(t *testing.T) {
	f := perspectiveFrustum(t)
	near := f.Planes[FrustumNear]
	if d := near.SignedDistance([3]float32{0, 0, -1}); math.Abs(float64(d)) > 1e-4 {
		t.Errorf("near plane distance at z=-1: got %v, want 0", d)
	}
	far := f.Planes[FrustumFar]
	if d := far.SignedDistance([3]float32{0, 0, -10}); math.Abs(float64(d)) > 1e-3 {
		t.Errorf("far plane distance at z=-10: got %v, want 0", d)
	}
}

func TestFrustumIntersectsVolumes(t *testing.T) {
	f := perspectiveFrustum(t)

	tests := []struct {
		name string
		b    BoundingVolume
		want bool
	}{
		{"sphere inside", NewSphereBounds([3]float32{0, 0, -5}, 1), true},
		{"sphere beyond far", NewSphereBounds([3]float32{0, 0, -20}, 5), false},
		{"sphere straddling far", NewSphereBounds([3]float32{0, 0, -20}, 11), true},
		{"sphere left", NewSphereBounds([3]float32{-20, 0, -5}, 2), false},
		{"aabb inside", NewAABBBounds([3]float32{-1, -1, -6}, [3]float32{1, 1, -4}), true},
		{"aabb behind", NewAABBBounds([3]float32{-1, -1, 2}, [3]float32{1, 1, 4}), false},
		{"aabb straddling near", NewAABBBounds([3]float32{-1, -1, -2}, [3]float32{1, 1, 2}), true},
		{"obb inside", NewOBBBounds([3]float32{0, 0, -5}, [3]float32{1, 1, 1},
			[3][3]float32{{1, 1, 0}, {-1, 1, 0}, {0, 0, 1}}), true},
		{"obb outside right", NewOBBBounds([3]float32{30, 0, -5}, [3]float32{1, 1, 1},
			[3][3]float32{{1, 1, 0}, {-1, 1, 0}, {0, 0, 1}}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects(%s) = %v, want %v", tt.b.Kind, got, tt.want)
			}
		})
	}
}

func TestEmptyFrustumRejectsEverything(t *testing.T) {
	f := EmptyFrustum()
	if !f.IsEmpty() {
		t.Fatal("EmptyFrustum().IsEmpty() = false")
	}
	if f.ContainsPoint([3]float32{}) {
		t.Error("empty frustum contains origin")
	}
	if f.IntersectsSphere([3]float32{}, 1e6) {
		t.Error("empty frustum intersects huge sphere")
	}
	if f.IntersectsAABB([3]float32{-1e6, -1e6, -1e6}, [3]float32{1e6, 1e6, 1e6}) {
		t.Error("empty frustum intersects huge box")
	}
	pf := perspectiveFrustum(t)
	if pf.IsEmpty() {
		t.Error("perspective frustum reported empty")
	}
}

func TestOrthoFrustum(t *testing.T) {
	var proj [16]float32
	Ortho(proj[:], -2, 2, -2, 2, 0, 10)
	f := ExtractFrustumFromMatrix(proj[:])

	if !f.ContainsPoint([3]float32{1.9, -1.9, -9.9}) {
		t.Error("ortho frustum should contain point near its corner")
	}
	if f.ContainsPoint([3]float32{2.1, 0, -5}) {
		t.Error("ortho frustum should not contain point past right edge")
	}
	if f.ContainsPoint([3]float32{0, 0, 0.1}) {
		t.Error("ortho frustum should not contain point behind near plane")
	}
}

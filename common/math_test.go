package common

import (
	"math"
	"testing"
)

func approx(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func TestInvert4RoundTrip(t *testing.T) {
	var m, inv, out [16]float32
	BuildModelMatrix(m[:], 1, 2, 3, 0.3, 0.7, -0.2, 2, 2, 2)
	if !Invert4(inv[:], m[:]) {
		t.Fatal("Invert4 reported singular matrix")
	}
	Mul4(out[:], m[:], inv[:])
	id := IdentityMat4()
	for i := range out {
		if !approx(out[i], id[i], 1e-4) {
			t.Fatalf("m * inv(m) [%d] = %v, want %v", i, out[i], id[i])
		}
	}
}

func TestInvert4Singular(t *testing.T) {
	var zero, out [16]float32
	if Invert4(out[:], zero[:]) {
		t.Error("Invert4 of zero matrix should fail")
	}
}

func TestTransformPoint(t *testing.T) {
	var m [16]float32
	BuildModelMatrix(m[:], 5, 0, 0, 0, 0, 0, 1, 1, 1)
	got := TransformPoint(m, [3]float32{1, 2, 3})
	want := [3]float32{6, 2, 3}
	if got != want {
		t.Errorf("TransformPoint: got %v, want %v", got, want)
	}

	var proj [16]float32
	Perspective(proj[:], math.Pi/2, 1, 1, 10)
	ndc := TransformPoint(proj, [3]float32{0, 0, -1})
	if !approx(ndc[2], 0, 1e-5) {
		t.Errorf("near plane maps to ndc z %v, want 0", ndc[2])
	}
	ndc = TransformPoint(proj, [3]float32{0, 0, -10})
	if !approx(ndc[2], 1, 1e-5) {
		t.Errorf("far plane maps to ndc z %v, want 1", ndc[2])
	}
}

func TestLookDirParallelUp(t *testing.T) {
	var view [16]float32
	LookDir(view[:], [3]float32{0, 10, 0}, [3]float32{0, -1, 0}, [3]float32{0, 1, 0})
	for i, v := range view {
		if math.IsNaN(float64(v)) {
			t.Fatalf("view[%d] is NaN", i)
		}
	}
	p := TransformPoint(view, [3]float32{0, 0, 0})
	if !approx(p[2], -10, 1e-4) {
		t.Errorf("origin in light view: z = %v, want -10", p[2])
	}
}

func TestBoundsTransform(t *testing.T) {
	var m [16]float32
	BuildModelMatrix(m[:], 0, 0, -5, 0, math.Pi/2, 0, 2, 2, 2)

	s := NewSphereBounds([3]float32{}, 1).Transform(m)
	if !approx(s.Radius, 2, 1e-5) || !approx(s.Center[2], -5, 1e-5) {
		t.Errorf("sphere transform: got center %v radius %v", s.Center, s.Radius)
	}

	b := NewAABBBounds([3]float32{-1, -1, -3}, [3]float32{1, 1, 3}).Transform(m)
	if !approx(b.HalfExtents[0], 6, 1e-4) || !approx(b.HalfExtents[2], 2, 1e-4) {
		t.Errorf("aabb transform half extents: got %v, want [6 2 2]", b.HalfExtents)
	}

	o := NewOBBBounds([3]float32{}, [3]float32{1, 1, 1},
		[3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}).Transform(m)
	if !approx(o.HalfExtents[0], 2, 1e-5) {
		t.Errorf("obb transform half extent: got %v, want 2", o.HalfExtents[0])
	}
	if c, r := o.BoundingSphere(); !approx(r, float32(math.Sqrt(12)), 1e-4) || !approx(c[2], -5, 1e-5) {
		t.Errorf("obb bounding sphere: got %v %v", c, r)
	}
}

func TestClampAndCoalesce(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5,0,3) = %d", got)
	}
	if got := Clamp(-1.5, 0, 3); got != 0 {
		t.Errorf("Clamp(-1.5,0,3) = %v", got)
	}
	if got := Coalesce("", "", "x", "y"); got != "x" {
		t.Errorf("Coalesce = %q, want x", got)
	}
}

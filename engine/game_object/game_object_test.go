package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/chewxy/math32"
)

func TestNewGameObjectDefaults(t *testing.T) {
	obj := NewGameObject()
	if !obj.Enabled() {
		t.Error("expected object enabled by default")
	}
	if !obj.ShadowCaster() {
		t.Error("expected object to cast shadows by default")
	}
	if sx, sy, sz := obj.Scale(); sx != 1 || sy != 1 || sz != 1 {
		t.Errorf("scale = (%v, %v, %v), want unit", sx, sy, sz)
	}
	if _, ok := obj.Bounds(); ok {
		t.Error("expected no bounds by default")
	}
	if _, ok := obj.WorldBounds(); ok {
		t.Error("expected no world bounds without local bounds")
	}
	if obj.WorldMatrix() != common.IdentityMat4() {
		t.Error("expected identity world matrix before propagation")
	}
}

func TestBuilderOptions(t *testing.T) {
	parent := NewGameObject(WithID(1))
	l := light.NewLight(light.LightTypePoint)
	obj := NewGameObject(
		WithID(7),
		WithEnabled(false),
		WithShadowCaster(false),
		WithPosition(1, 2, 3),
		WithScale(2, 2, 2),
		WithRotation(0, 0.5, 0),
		WithRotationSpeed(0, 1, 0),
		WithBounds(common.NewSphereBounds([3]float32{}, 1)),
		WithParent(parent),
		WithLight(l),
	)

	if obj.ID() != 7 {
		t.Errorf("ID = %d, want 7", obj.ID())
	}
	if obj.Enabled() || obj.ShadowCaster() {
		t.Error("expected disabled non-caster")
	}
	pos, scale, rot, speed := obj.TransformData()
	if pos != [3]float32{1, 2, 3} || scale != [3]float32{2, 2, 2} || rot != [3]float32{0, 0.5, 0} || speed != [3]float32{0, 1, 0} {
		t.Errorf("unexpected transform data %v %v %v %v", pos, scale, rot, speed)
	}
	if obj.Parent() != parent {
		t.Error("expected parent to be set")
	}
	if obj.Light() != l {
		t.Error("expected light to be attached")
	}
}

func TestAdvance(t *testing.T) {
	obj := NewGameObject(WithRotationSpeed(1, 0, -2))
	obj.Advance(0.5)
	obj.Advance(0.5)
	rx, ry, rz := obj.Rotation()
	if rx != 1 || ry != 0 || rz != -2 {
		t.Errorf("rotation = (%v, %v, %v), want (1, 0, -2)", rx, ry, rz)
	}
}

func TestWorldBoundsFollowWorldMatrix(t *testing.T) {
	obj := NewGameObject(
		WithPosition(10, 0, -5),
		WithScale(3, 3, 3),
		WithBounds(common.NewSphereBounds([3]float32{}, 1)),
	)
	obj.SetWorldMatrix(obj.LocalMatrix())

	wb, ok := obj.WorldBounds()
	if !ok {
		t.Fatal("expected world bounds")
	}
	center, radius := wb.BoundingSphere()
	if common.Distance3(center, [3]float32{10, 0, -5}) > 1e-5 {
		t.Errorf("center = %v, want (10, 0, -5)", center)
	}
	if math32.Abs(radius-3) > 1e-5 {
		t.Errorf("radius = %v, want 3", radius)
	}
}

func TestSetters(t *testing.T) {
	obj := NewGameObject()
	obj.SetID(3)
	obj.SetEnabled(false)
	obj.SetShadowCaster(false)
	obj.SetPosition(4, 5, 6)
	obj.SetRotation(0.1, 0.2, 0.3)
	obj.SetRotationSpeed(1, 1, 1)
	obj.SetScale(2, 3, 4)
	obj.SetBounds(common.NewAABBBounds([3]float32{-1, -1, -1}, [3]float32{1, 1, 1}))
	obj.SetLight(nil)

	if obj.ID() != 3 || obj.Enabled() || obj.ShadowCaster() {
		t.Error("unexpected flags after setters")
	}
	if x, y, z := obj.Position(); x != 4 || y != 5 || z != 6 {
		t.Errorf("position = (%v, %v, %v)", x, y, z)
	}
	if sx, sy, sz := obj.Scale(); sx != 2 || sy != 3 || sz != 4 {
		t.Errorf("scale = (%v, %v, %v)", sx, sy, sz)
	}
	if b, ok := obj.Bounds(); !ok || b.Kind != common.BoundsAABB {
		t.Errorf("bounds = %v, %v", b, ok)
	}
	m := obj.LocalMatrix()
	if m[12] != 4 || m[13] != 5 || m[14] != 6 {
		t.Errorf("local translation = (%v, %v, %v)", m[12], m[13], m[14])
	}
}

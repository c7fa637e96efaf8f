package scene

import (
	"math"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-clusters/common"
	"github.com/Carmen-Shannon/oxy-clusters/engine/camera"
	"github.com/Carmen-Shannon/oxy-clusters/engine/cascade"
	"github.com/Carmen-Shannon/oxy-clusters/engine/diagnostics"
	"github.com/Carmen-Shannon/oxy-clusters/engine/game_object"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light"
	"github.com/Carmen-Shannon/oxy-clusters/engine/light_meta"
	"github.com/Carmen-Shannon/oxy-clusters/engine/schedule"
	"github.com/chewxy/math32"
)

func newTestScene(t *testing.T, options ...SceneBuilderOption) Scene {
	t.Helper()
	opts := append([]SceneBuilderOption{
		WithPool(schedule.Serial{}),
		WithRecorder(diagnostics.NewRecorder(diagnostics.WithQuiet(true))),
	}, options...)
	return NewScene("test", opts...)
}

func perspectiveCamera() camera.Camera {
	return camera.NewCamera(
		camera.WithFov(math.Pi/3),
		camera.WithViewport(1280, 720),
		camera.WithNear(0.1),
		camera.WithFar(100),
	)
}

func sphereObject(x, y, z, r float32, opts ...game_object.GameObjectBuilderOption) game_object.GameObject {
	base := []game_object.GameObjectBuilderOption{
		game_object.WithPosition(x, y, z),
		game_object.WithBounds(common.NewSphereBounds([3]float32{}, r)),
	}
	return game_object.NewGameObject(append(base, opts...)...)
}

func mustFrame(t *testing.T, s Scene) *FrameResult {
	t.Helper()
	res, err := s.Frame(1.0 / 60)
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	return res
}

func TestStageOrdering(t *testing.T) {
	s := newTestScene(t)
	level := make(map[string]int)
	for i, names := range s.Stages() {
		for _, name := range names {
			level[name] = i
		}
	}

	edges := [][2]string{
		{StageTransformPropagate, StageExtractLights},
		{StageExtractLights, StageAddClusters},
		{StageAddClusters, StageAssignLights},
		{StageTransformPropagate, StageCameraFrusta},
		{StageCameraFrusta, StageCameraVisibility},
		{StageTransformPropagate, StageBuildCascades},
		{StageBuildCascades, StageDirectionalFrusta},
		{StageAssignLights, StagePointFrusta},
		{StageAssignLights, StageSpotFrusta},
		{StageDirectionalFrusta, StageLightVisibility},
		{StagePointFrusta, StageLightVisibility},
		{StageSpotFrusta, StageLightVisibility},
		{StageCameraVisibility, StageLightVisibility},
		{StageAssignLights, StageLightVisibility},
		{StageLightVisibility, StageShadowSort},
		{StageCameraVisibility, StageMarshal},
		{StageAssignLights, StageMarshal},
		{StageShadowSort, StageMarshal},
	}
	for _, e := range edges {
		before, ok1 := level[e[0]]
		after, ok2 := level[e[1]]
		if !ok1 || !ok2 {
			t.Fatalf("missing stage in %v", e)
		}
		if before >= after {
			t.Errorf("%s (level %d) must run before %s (level %d)", e[0], before, e[1], after)
		}
	}
	if len(level) != 13 {
		t.Errorf("got %d stages, want 13", len(level))
	}
}

func TestCascadeBoundsEndToEnd(t *testing.T) {
	cam := perspectiveCamera()
	sun := light.NewLight(light.LightTypeDirectional,
		light.WithDirection(0.3, -1, -0.2),
		light.WithCastsShadows(true),
		light.WithCascadeConfig(cascade.NewConfig(
			cascade.WithFractions(0.1, 0.3, 0.6, 1.0),
			cascade.WithResolution(1024),
		)),
	)
	s := newTestScene(t, WithCameras(cam), WithLights(sun),
		WithObjects(sphereObject(0, 0, -20, 1)))

	res := mustFrame(t, s)

	cascades, ok := s.Cascades(sun.ID(), cam.ID())
	if !ok {
		t.Fatal("expected cascades for the sun and camera")
	}
	wantFar := []float32{10, 30, 60, 100}
	wantNear := []float32{0.1, 10, 30, 60}
	if len(cascades) != len(wantFar) {
		t.Fatalf("got %d cascades, want %d", len(cascades), len(wantFar))
	}
	for i, c := range cascades {
		if math32.Abs(c.FarBound-wantFar[i]) > 1e-3 || math32.Abs(c.NearBound-wantNear[i]) > 1e-4 {
			t.Errorf("cascade %d bounds = [%v, %v], want [%v, %v]", i, c.NearBound, c.FarBound, wantNear[i], wantFar[i])
		}
		if c.Empty {
			t.Errorf("cascade %d unexpectedly empty", i)
		}
	}

	if !res.LightVisible(sun.ID()) {
		t.Fatal("directional light should be globally visible")
	}
	if len(res.ShadowViews) != 4 {
		t.Fatalf("got %d shadow views, want 4", len(res.ShadowViews))
	}
	for i, v := range res.ShadowViews {
		if v.Kind != light.LightTypeDirectional || v.Face != i || v.CameraID != cam.ID() {
			t.Errorf("shadow view %d = %+v", i, v)
		}
	}
	if got := s.LightMeta().Lights()[0].ShadowIndex; got != 0 {
		t.Errorf("ShadowIndex = %d, want 0", got)
	}
	if got := len(s.LightMeta().ShadowViews()); got != 4 {
		t.Errorf("packed %d shadow views, want 4", got)
	}
}

func TestShadowMapSizeByLightType(t *testing.T) {
	sun := light.NewLight(light.LightTypeDirectional,
		light.WithDirection(0.3, -1, -0.2),
		light.WithCastsShadows(true),
		light.WithCascadeConfig(cascade.NewConfig(cascade.WithResolution(2048))),
	)
	lamp := light.NewLight(light.LightTypePoint,
		light.WithPosition(0, 0, -10),
		light.WithRange(20),
		light.WithCastsShadows(true),
	)
	spot := light.NewLight(light.LightTypeSpot,
		light.WithPosition(2, 0, -5),
		light.WithDirection(0, 0, -1),
		light.WithSpotCone(20, 30),
		light.WithRange(10),
		light.WithCastsShadows(true),
	)
	s := newTestScene(t, WithCameras(perspectiveCamera()), WithLights(sun, lamp, spot),
		WithPointShadowMapSize(256))

	res := mustFrame(t, s)

	kinds := map[light.LightType]int{}
	gpu := s.LightMeta().ShadowViews()
	if len(gpu) != len(res.ShadowViews) {
		t.Fatalf("packed %d shadow views, frame has %d", len(gpu), len(res.ShadowViews))
	}
	for i, v := range res.ShadowViews {
		kinds[v.Kind]++
		want := uint32(256)
		if v.Kind == light.LightTypeDirectional {
			want = 2048
		}
		if v.Resolution != want {
			t.Errorf("view %d (%v) resolution = %d, want %d", i, v.Kind, v.Resolution, want)
		}
		if got := gpu[i].TexelSize[0]; got != 1/float32(want) {
			t.Errorf("view %d texel size = %v, want %v", i, got, 1/float32(want))
		}
	}
	if kinds[light.LightTypePoint] != 6 || kinds[light.LightTypeSpot] != 1 || kinds[light.LightTypeDirectional] == 0 {
		t.Errorf("shadow views per type = %v", kinds)
	}

	s.SetPointShadowMapSize(0)
	if s.PointShadowMapSize() != DefaultPointShadowMapSize {
		t.Errorf("PointShadowMapSize() = %d, want default %d", s.PointShadowMapSize(), DefaultPointShadowMapSize)
	}
}

func TestOrthographicCameraGetsOneCell(t *testing.T) {
	cam := camera.NewCamera(camera.WithOrthographic(10), camera.WithViewport(800, 600), camera.WithFar(50))
	lamp := light.NewLight(light.LightTypePoint, light.WithPosition(0, 0, -5), light.WithRange(2))
	s := newTestScene(t, WithCameras(cam), WithLights(lamp))

	res := mustFrame(t, s)

	cr, ok := res.Camera(cam.ID())
	if !ok {
		t.Fatal("expected a camera result")
	}
	if cr.Dims != [3]uint32{1, 1, 1} {
		t.Errorf("Dims = %v, want [1 1 1]", cr.Dims)
	}
	if !slices.Equal(cr.Assignment.Visible, []uint32{0}) {
		t.Errorf("Visible = %v, want [0]", cr.Assignment.Visible)
	}
	g, _ := s.Grid(cam.ID())
	if !slices.Equal(g.Cell(0), []uint32{0}) {
		t.Errorf("cell 0 = %v, want [0]", g.Cell(0))
	}
	buffers, ok := s.LightMeta().Clusters(cam.ID())
	if !ok || len(buffers.Offsets) != 1 || buffers.Offsets[0].Count != 1 {
		t.Errorf("cluster buffers = %+v", buffers)
	}
}

func TestPointShadowSortAndCasterFlag(t *testing.T) {
	cam := perspectiveCamera()
	lamp := light.NewLight(light.LightTypePoint,
		light.WithPosition(0, 0, -10),
		light.WithRange(20),
		light.WithCastsShadows(true),
	)
	far := sphereObject(6, 0, -10, 0.5)
	near := sphereObject(3, 0, -10, 0.5)
	ghost := sphereObject(4, 0, -10, 0.5, game_object.WithShadowCaster(false))
	s := newTestScene(t, WithCameras(cam), WithLights(lamp), WithObjects(far, near, ghost))

	res := mustFrame(t, s)

	if len(res.ShadowViews) != 6 {
		t.Fatalf("got %d shadow views, want 6", len(res.ShadowViews))
	}
	posX := res.ShadowViews[0]
	if posX.Kind != light.LightTypePoint || posX.Face != 0 {
		t.Fatalf("first view = %+v, want +X face", posX)
	}
	want := []uint64{near.ID(), far.ID()}
	if !slices.Equal(posX.Visible, want) {
		t.Errorf("+X face visible = %v, want %v", posX.Visible, want)
	}

	cr, _ := res.Camera(cam.ID())
	if !slices.Contains(cr.Visible, ghost.ID()) {
		t.Errorf("camera should still see the non-caster, got %v", cr.Visible)
	}
}

func TestLightOutsideCamerasGetsNoShadowViews(t *testing.T) {
	cam := perspectiveCamera()
	behind := light.NewLight(light.LightTypeSpot,
		light.WithPosition(0, 0, 50),
		light.WithDirection(0, 0, 1),
		light.WithRange(1),
		light.WithCastsShadows(true),
	)
	s := newTestScene(t, WithCameras(cam), WithLights(behind))

	res := mustFrame(t, s)

	if res.LightVisible(behind.ID()) {
		t.Error("light behind the camera should not be globally visible")
	}
	if len(res.ShadowViews) != 0 {
		t.Errorf("got %d shadow views, want 0", len(res.ShadowViews))
	}
	if got := s.LightMeta().Lights()[0].ShadowIndex; got != light.NoShadow {
		t.Errorf("ShadowIndex = %#x, want NoShadow", got)
	}
}

func TestLightCapacity(t *testing.T) {
	rec := diagnostics.NewRecorder(diagnostics.WithQuiet(true))
	cam := perspectiveCamera()
	s := newTestScene(t,
		WithRecorder(rec),
		WithCameras(cam),
		WithLimits(light_meta.NewLimits(light_meta.WithMaxLights(2))),
		WithLights(
			light.NewLight(light.LightTypePoint, light.WithPosition(0, 0, -5), light.WithRange(1)),
			light.NewLight(light.LightTypePoint, light.WithPosition(1, 0, -5), light.WithRange(4)),
			light.NewLight(light.LightTypePoint, light.WithPosition(-1, 0, -5), light.WithRange(2)),
		),
	)

	res := mustFrame(t, s)

	if len(res.Lights) != 2 || len(s.LightMeta().Lights()) != 2 {
		t.Errorf("got %d frame lights, %d packed; want 2", len(res.Lights), len(s.LightMeta().Lights()))
	}
	if got := rec.Count(diagnostics.KindCapacityExceeded); got != 1 {
		t.Errorf("capacity diagnostics = %d, want 1", got)
	}
}

func TestAttachedLightFollowsHierarchy(t *testing.T) {
	lamp := light.NewLight(light.LightTypePoint, light.WithRange(3))
	parent := game_object.NewGameObject(game_object.WithPosition(5, 0, -10))
	child := game_object.NewGameObject(
		game_object.WithParent(parent),
		game_object.WithPosition(0, 2, 0),
		game_object.WithLight(lamp),
	)
	s := newTestScene(t, WithCameras(perspectiveCamera()), WithObjects(parent, child))

	if got := len(s.Lights()); got != 1 {
		t.Fatalf("attached light not registered, lights = %d", got)
	}
	mustFrame(t, s)

	if got := lamp.Position(); common.Distance3(got, [3]float32{5, 2, -10}) > 1e-5 {
		t.Errorf("light position = %v, want (5, 2, -10)", got)
	}

	s.DetachLight(child)
	if got := len(s.Lights()); got != 0 {
		t.Errorf("lights after detach = %d, want 0", got)
	}
}

func TestMissingBoundsRecorded(t *testing.T) {
	rec := diagnostics.NewRecorder(diagnostics.WithQuiet(true))
	cam := perspectiveCamera()
	bare := game_object.NewGameObject(game_object.WithPosition(0, 0, -5))
	seen := sphereObject(0, 0, -5, 1)
	s := newTestScene(t, WithRecorder(rec), WithCameras(cam), WithObjects(bare, seen))

	res := mustFrame(t, s)

	if got := rec.Count(diagnostics.KindMissingData); got != 1 {
		t.Errorf("missing data diagnostics = %d, want 1", got)
	}
	cr, _ := res.Camera(cam.ID())
	if !slices.Equal(cr.Visible, []uint64{seen.ID()}) {
		t.Errorf("camera visible = %v, want [%d]", cr.Visible, seen.ID())
	}
}

func TestRegistryAndCameras(t *testing.T) {
	s := newTestScene(t)
	obj := game_object.NewGameObject()
	id := s.Add(obj)
	if id == 0 || s.Get(id) != obj || s.Count() != 1 {
		t.Fatalf("Add/Get mismatch: id=%d count=%d", id, s.Count())
	}
	cam := perspectiveCamera()
	s.AddCamera(cam)
	s.AddCamera(cam)
	if got := len(s.Cameras()); got != 1 {
		t.Errorf("cameras = %d, want 1", got)
	}
	mustFrame(t, s)
	if _, ok := s.Grid(cam.ID()); !ok {
		t.Error("expected a grid after the first frame")
	}
	s.RemoveCamera(cam.ID())
	if _, ok := s.Grid(cam.ID()); ok {
		t.Error("grid should be dropped with its camera")
	}
	s.Remove(id)
	if s.Count() != 0 || len(s.Objects()) != 0 {
		t.Error("expected an empty registry after Remove")
	}
}

func TestFrameWithWorkerPool(t *testing.T) {
	cam := perspectiveCamera()
	s := NewScene("pool",
		WithComputeWorkers(4),
		WithRecorder(diagnostics.NewRecorder(diagnostics.WithQuiet(true))),
		WithCameras(cam),
	)
	defer s.Close()
	for i := range 32 {
		x := float32(i%8) - 4
		s.AddLight(light.NewLight(light.LightTypePoint, light.WithPosition(x, 0, -float32(i)-2), light.WithRange(1.5)))
		s.Add(sphereObject(x, 1, -float32(i)-2, 0.5))
	}

	res := mustFrame(t, s)

	cr, _ := res.Camera(cam.ID())
	if cr.Assignment.Entries == 0 {
		t.Error("expected light entries in the grid")
	}
	if len(res.Timings) != 13 {
		t.Errorf("got %d stage timings, want 13", len(res.Timings))
	}
}

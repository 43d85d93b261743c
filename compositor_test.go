package raymarch

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
)

func newTestCompositor(t *testing.T, root Node, dev Device) *Compositor {
	t.Helper()
	c, err := New(root, dev, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// checkRestored fails if r does not hold the state set by newFakeRenderer with hostTarget bound.
func checkRestored(t *testing.T, r *fakeRenderer) {
	t.Helper()
	if !r.autoClear || !r.shadowAutoUpdate || !r.xrEnabled || r.clearAlpha != 1 || r.target != hostTarget {
		t.Errorf("renderer state not restored: autoClear=%v shadow=%v xr=%v alpha=%g target=%v",
			r.autoClear, r.shadowAutoUpdate, r.xrEnabled, r.clearAlpha, r.target)
	}
}

func TestRenderSingleBox(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	c := newTestCompositor(t, layer, dev)
	r := newFakeRenderer()
	r.target = hostTarget

	err := c.Render(r, newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{}))
	if err != nil {
		t.Fatal(err)
	}
	checkRestored(t, r)
	stats := c.Stats()
	if stats.Layers != 1 || stats.Visible != 1 || stats.Culled != 0 || stats.Passes != 1 || stats.Relinks != 2 || stats.Resizes != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if c.Capacity() != 1 || len(dev.raymarchers) != 1 || dev.raymarchers[0].defs.MaxEntities != 1 {
		t.Fatalf("want raymarcher linked for 1 entity, capacity=%d", c.Capacity())
	}
	rm := dev.raymarchers[0]
	if len(rm.numEntities) != 1 || rm.numEntities[0] != 1 {
		t.Errorf("want one pass with 1 entity, got %v", rm.numEntities)
	}
	if got := c.Layers(); len(got) != 1 || !closeTo(got[0].Distance, 10, 1e-4) {
		t.Errorf("want layer at distance 10, got %+v", got)
	}
	if w, h := c.TargetSize(); w != 800 || h != 600 {
		t.Errorf("target size %dx%d", w, h)
	}

	if len(r.draws) != 2 {
		t.Fatalf("want raymarch and composite draws, got %d", len(r.draws))
	}
	target := dev.targets[0]
	pass, composite := r.draws[0], r.draws[1]
	if pass.pipeline != rm || pass.target != target || pass.autoClear || !pass.depthMask {
		t.Errorf("bad raymarch pass state %+v", pass)
	}
	if composite.pipeline != dev.screens[0] || composite.target != hostTarget {
		t.Errorf("composite must draw onto the host target, got %+v", composite)
	}
	if len(r.clears) != 1 || r.clears[0] != target {
		t.Errorf("want offscreen target cleared once, got %v", r.clears)
	}
	if src := dev.screens[0].sources; len(src) != 1 || src[0] != target {
		t.Errorf("screen program sampling wrong target: %v", src)
	}

	// A second identical frame allocates nothing.
	err = c.Render(r, newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{}))
	if err != nil {
		t.Fatal(err)
	}
	stats = c.Stats()
	if stats.Relinks != 0 || stats.Resizes != 0 || len(dev.targets) != 1 || len(dev.screens[0].sources) != 1 {
		t.Errorf("steady frame reallocated resources: %+v", stats)
	}
}

func TestRenderNoVisibleLayers(t *testing.T) {
	root := NewGroup()
	root.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	c := newTestCompositor(t, root, dev)
	r := newFakeRenderer()
	r.target = hostTarget
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})

	err := c.Render(r, cam)
	if err != nil {
		t.Fatal(err)
	}
	if r.mutations != 0 || len(r.clears) != 0 || len(r.draws) != 0 || len(dev.targets) != 0 {
		t.Error("renderer touched with no layers in scene")
	}

	// A culled layer still reserves capacity.
	behind := NewLayer()
	behind.Add(primitive(ShapeBox, ms3.Vec{Z: 20}), primitive(ShapeSphere, ms3.Vec{Z: 21}))
	root.Add(behind)
	err = c.Render(r, cam)
	if err != nil {
		t.Fatal(err)
	}
	if c.Capacity() != 2 {
		t.Errorf("capacity must account for culled layers, got %d", c.Capacity())
	}
	if stats := c.Stats(); stats.Layers != 1 || stats.Visible != 0 || stats.Culled != 1 || stats.Passes != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if r.mutations != 0 || len(r.draws) != 0 {
		t.Error("renderer touched with no visible layers")
	}
}

func TestRenderNotPerspective(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	var logbuf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = log.New(&logbuf, "", 0)
	c, err := New(layer, dev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	r := newFakeRenderer()
	err = c.Render(r, flatCamera{})
	if !errors.Is(err, ErrNotPerspective) {
		t.Fatalf("want ErrNotPerspective, got %v", err)
	}
	if r.mutations != 0 || len(dev.raymarchers) != 0 || len(dev.targets) != 0 {
		t.Error("state touched before camera check")
	}
	if !strings.Contains(logbuf.String(), "perspective") {
		t.Errorf("camera error not logged: %q", logbuf.String())
	}
	if err = c.Render(r, nil); !errors.Is(err, ErrNotPerspective) {
		t.Errorf("nil camera: want ErrNotPerspective, got %v", err)
	}
}

func TestRenderCapacityGrowth(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	c := newTestCompositor(t, layer, dev)
	r := newFakeRenderer()
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	extra := primitive(ShapeSphere, ms3.Vec{X: 1})
	layer.Add(extra, primitive(ShapeSphere, ms3.Vec{X: -1}))
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if c.Capacity() != 3 || len(dev.raymarchers) != 2 || dev.raymarchers[1].defs.MaxEntities != 3 {
		t.Fatalf("want one relink to capacity 3, got capacity %d after %d links", c.Capacity(), len(dev.raymarchers))
	}
	if dev.raymarchers[0].released != 1 {
		t.Error("previous raymarcher not released")
	}
	if len(dev.screens) != 1 {
		t.Error("entity capacity must not relink the screen program")
	}

	layer.Remove(extra)
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if c.Capacity() != 3 || len(dev.raymarchers) != 2 {
		t.Error("capacity must never shrink")
	}
	rm := dev.raymarchers[1]
	if got := rm.numEntities[len(rm.numEntities)-1]; got != 2 {
		t.Errorf("want 2 entities uploaded, got %d", got)
	}
}

func TestRenderCapacityExceeded(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}), primitive(ShapeBox, ms3.Vec{X: 1}), primitive(ShapeBox, ms3.Vec{X: 2}))
	dev := newFakeDevice()
	dev.maxEntities = 2
	c := newTestCompositor(t, layer, dev)
	r := newFakeRenderer()
	err := c.Render(r, newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{}))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
	if len(r.draws) != 0 || r.mutations != 0 || c.Capacity() != 0 {
		t.Error("nothing may be drawn on capacity error")
	}
}

func TestRenderCapacityCountsMaterials(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}), primitive(ShapeBox, ms3.Vec{X: 1}), primitive(ShapeBox, ms3.Vec{X: 2}))
	dev := newFakeDevice()
	dev.maxEntities = 3
	cfg := DefaultConfig()
	cfg.Materials = []Material{{Color: ms3.Vec{X: 1}}}
	c, err := New(layer, dev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	r := newFakeRenderer()
	err = c.Render(r, newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{}))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded with extra material, got %v", err)
	}
	if len(dev.raymarchers) != 0 {
		t.Error("no raymarcher may be linked past the device limit")
	}
}

func TestRenderLinkFailureKeepsProgram(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	c := newTestCompositor(t, layer, dev)
	r := newFakeRenderer()
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	layer.Add(primitive(ShapeBox, ms3.Vec{X: 1}))
	dev.failLink = true
	if err := c.Render(r, cam); !errors.Is(err, errFake) {
		t.Fatalf("want link error, got %v", err)
	}
	if c.Capacity() != 1 || dev.raymarchers[0].released != 0 {
		t.Error("failed link must keep the previous program and capacity")
	}
	dev.failLink = false
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if c.Capacity() != 2 {
		t.Errorf("want capacity 2 after recovery, got %d", c.Capacity())
	}
}

func TestRenderResize(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	cfg := DefaultConfig()
	cfg.Resolution = 0.5
	c, err := New(layer, dev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	r := newFakeRenderer()
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})
	if err = c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if w, h := c.TargetSize(); w != 400 || h != 300 {
		t.Errorf("want 400x300 target, got %dx%d", w, h)
	}
	rm := dev.raymarchers[0]
	if rm.resolution[0] != 400 || rm.resolution[1] != 300 {
		t.Errorf("resolution uniform %v", rm.resolution)
	}

	r.width, r.height = 1024, 768
	if err = c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if len(dev.targets) != 2 || dev.targets[0].released != 1 {
		t.Fatal("target not reallocated on viewport change")
	}
	if src := dev.screens[0].sources; len(src) != 2 || src[1] != dev.targets[1] {
		t.Error("screen program not rebound to new target")
	}

	// Failed allocation keeps the old target and restores renderer state.
	r.target = hostTarget
	r.width = 640
	dev.failTarget = true
	draws := len(r.draws)
	if err = c.Render(r, cam); !errors.Is(err, errFake) {
		t.Fatalf("want allocation error, got %v", err)
	}
	checkRestored(t, r)
	if len(r.draws) != draws {
		t.Error("draws issued after failed resize")
	}
	if w, _ := c.TargetSize(); w != 512 {
		t.Errorf("previous target lost, width %d", w)
	}
}

func TestRenderLayerOrder(t *testing.T) {
	root := NewGroup()
	near, far := NewLayer(), NewLayer()
	near.Add(primitive(ShapeSphere, ms3.Vec{Z: 5}))
	far.Add(primitive(ShapeSphere, ms3.Vec{Z: -5}))
	root.Add(near, far)
	dev := newFakeDevice()
	c := newTestCompositor(t, root, dev)
	r := newFakeRenderer()
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})

	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if got := c.Layers(); got[0].Node != far || got[1].Node != near {
		t.Error("conetracing must draw back to front")
	}
	cfg := c.Config()
	cfg.Conetracing = false
	if err := c.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if got := c.Layers(); got[0].Node != near || got[1].Node != far {
		t.Error("opaque layers must draw front to back")
	}
	if c.Stats().Passes != 2 {
		t.Errorf("want 2 passes, got %d", c.Stats().Passes)
	}
}

func TestConfigureRelink(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	c := newTestCompositor(t, layer, dev)
	r := newFakeRenderer()
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}

	cfg := c.Config()
	cfg.Blending = 1
	cfg.Roughness = 0.5
	if err := c.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if len(dev.raymarchers) != 1 || len(dev.screens) != 1 {
		t.Error("uniform-only change relinked programs")
	}

	cfg.Conetracing = false
	if err := c.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if len(dev.raymarchers) != 2 || len(dev.screens) != 2 || dev.raymarchers[1].defs.Conetracing {
		t.Error("conetracing change must relink both programs")
	}

	cfg.Materials = []Material{{Color: ms3.Vec{X: 1}}}
	if err := c.Configure(cfg); err != nil {
		t.Fatal(err)
	}
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	if len(dev.raymarchers) != 3 || dev.raymarchers[2].defs.MaxMaterials != 2 || len(dev.screens) != 2 {
		t.Error("material count change must relink only the raymarcher")
	}

	bad := cfg
	bad.Resolution = -1
	if err := c.Configure(bad); err == nil {
		t.Error("expected invalid configuration error")
	}
	if c.Config().Resolution != 1 {
		t.Error("invalid configuration applied")
	}
}

func TestDispose(t *testing.T) {
	layer := NewLayer()
	layer.Add(primitive(ShapeBox, ms3.Vec{}))
	dev := newFakeDevice()
	c := newTestCompositor(t, layer, dev)
	r := newFakeRenderer()
	cam := newTestCamera(ms3.Vec{Z: 10}, ms3.Vec{})
	if err := c.Render(r, cam); err != nil {
		t.Fatal(err)
	}
	c.Dispose()
	c.Dispose()
	if dev.targets[0].released != 1 || dev.raymarchers[0].released != 1 || dev.screens[0].released != 1 {
		t.Error("resources must be released exactly once")
	}
	defer func() {
		if recover() == nil {
			t.Error("Render after Dispose must panic")
		}
	}()
	c.Render(r, cam)
}

func TestNewPanics(t *testing.T) {
	for _, test := range []struct {
		name string
		root Node
		dev  Device
	}{
		{name: "nil root", dev: newFakeDevice()},
		{name: "nil device", root: NewLayer()},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", test.name)
				}
			}()
			New(test.root, test.dev, DefaultConfig())
		}()
	}
}

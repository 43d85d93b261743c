package raymarch

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/raymarch/glbuild"
)

var errFake = errors.New("fake device failure")

type fakeTarget struct {
	w, h     int
	released int
}

func (t *fakeTarget) Size() (int, int) { return t.w, t.h }
func (t *fakeTarget) Release()         { t.released++ }

type fakeRaymarcher struct {
	defs     glbuild.Defines
	released int
	// Per SetUniforms call.
	numEntities []int
	bounds      []Sphere
	resolution  []float32
}

func (p *fakeRaymarcher) Release() { p.released++ }
func (p *fakeRaymarcher) SetUniforms(u *Uniforms) error {
	if u.NumEntities > len(u.Entities) || len(u.Entities) != p.defs.MaxEntities {
		return errors.New("entity array does not match compiled capacity")
	}
	p.numEntities = append(p.numEntities, u.NumEntities)
	p.bounds = append(p.bounds, u.Bounds)
	p.resolution = append(p.resolution, u.Resolution.X, u.Resolution.Y)
	return nil
}

type fakeScreen struct {
	defs     glbuild.Defines
	released int
	sources  []Target
}

func (p *fakeScreen) Release() { p.released++ }
func (p *fakeScreen) SetSource(t Target) error {
	p.sources = append(p.sources, t)
	return nil
}

type fakeDevice struct {
	maxEntities int
	failTarget  bool
	failLink    bool
	targets     []*fakeTarget
	raymarchers []*fakeRaymarcher
	screens     []*fakeScreen
}

func newFakeDevice() *fakeDevice { return &fakeDevice{maxEntities: 256} }

func (d *fakeDevice) NewTarget(w, h int) (Target, error) {
	if d.failTarget {
		return nil, errFake
	}
	t := &fakeTarget{w: w, h: h}
	d.targets = append(d.targets, t)
	return t, nil
}

func (d *fakeDevice) NewRaymarchPipeline(defs glbuild.Defines) (RaymarchPipeline, error) {
	if d.failLink {
		return nil, errFake
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	p := &fakeRaymarcher{defs: defs}
	d.raymarchers = append(d.raymarchers, p)
	return p, nil
}

func (d *fakeDevice) NewScreenPipeline(defs glbuild.Defines) (ScreenPipeline, error) {
	if d.failLink {
		return nil, errFake
	}
	p := &fakeScreen{defs: defs}
	d.screens = append(d.screens, p)
	return p, nil
}

// MaxEntities gives up one entity per material past the first.
func (d *fakeDevice) MaxEntities(materials int) int { return d.maxEntities - (materials - 1) }

// draw is the renderer state observed by a Render call.
type draw struct {
	pipeline  Pipeline
	target    Target
	autoClear bool
	depthMask bool
}

type fakeRenderer struct {
	autoClear        bool
	shadowAutoUpdate bool
	xrEnabled        bool
	clearAlpha       float32
	target           Target
	depthMask        bool
	width, height    int

	// mutations counts every setter call.
	mutations int
	clears    []Target
	draws     []draw
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		autoClear:        true,
		shadowAutoUpdate: true,
		xrEnabled:        true,
		clearAlpha:       1,
		width:            800,
		height:           600,
	}
}

func (r *fakeRenderer) AutoClear() bool            { return r.autoClear }
func (r *fakeRenderer) SetAutoClear(b bool)        { r.mutations++; r.autoClear = b }
func (r *fakeRenderer) ShadowAutoUpdate() bool     { return r.shadowAutoUpdate }
func (r *fakeRenderer) SetShadowAutoUpdate(b bool) { r.mutations++; r.shadowAutoUpdate = b }
func (r *fakeRenderer) XREnabled() bool            { return r.xrEnabled }
func (r *fakeRenderer) SetXREnabled(b bool)        { r.mutations++; r.xrEnabled = b }
func (r *fakeRenderer) ClearAlpha() float32        { return r.clearAlpha }
func (r *fakeRenderer) SetClearAlpha(a float32)    { r.mutations++; r.clearAlpha = a }
func (r *fakeRenderer) RenderTarget() Target       { return r.target }
func (r *fakeRenderer) SetRenderTarget(t Target)   { r.mutations++; r.target = t }
func (r *fakeRenderer) SetDepthMask(b bool)        { r.mutations++; r.depthMask = b }
func (r *fakeRenderer) DrawingBufferSize() (int, int) {
	return r.width, r.height
}

func (r *fakeRenderer) Clear() error {
	r.clears = append(r.clears, r.target)
	return nil
}

func (r *fakeRenderer) Render(p Pipeline, cam Camera) error {
	r.draws = append(r.draws, draw{pipeline: p, target: r.target, autoClear: r.autoClear, depthMask: r.depthMask})
	return nil
}

// hostTarget is bound on the fake renderer to check it is restored.
var hostTarget = &fakeTarget{w: 800, h: 600}

type testCamera struct {
	pos, lookAt ms3.Vec
	fov         float32
	near, far   float32
	aspect      float32
}

func newTestCamera(pos, lookAt ms3.Vec) *testCamera {
	return &testCamera{pos: pos, lookAt: lookAt, fov: math32.Pi / 4, near: 0.1, far: 100, aspect: 800. / 600}
}

func (c *testCamera) WorldPosition() ms3.Vec  { return c.pos }
func (c *testCamera) WorldDirection() ms3.Vec { return ms3.Unit(ms3.Sub(c.lookAt, c.pos)) }
func (c *testCamera) Fov() float32            { return c.fov }
func (c *testCamera) Near() float32           { return c.near }
func (c *testCamera) Far() float32            { return c.far }
func (c *testCamera) ProjView() [16]float32 {
	return mul4(perspective(c.fov, c.aspect, c.near, c.far), lookAt(c.pos, c.lookAt, ms3.Vec{Y: 1}))
}

// flatCamera is a camera with no perspective parameters.
type flatCamera struct{}

func (flatCamera) WorldPosition() ms3.Vec  { return ms3.Vec{} }
func (flatCamera) WorldDirection() ms3.Vec { return ms3.Vec{Z: -1} }
func (flatCamera) ProjView() [16]float32 {
	return [16]float32{0: 1, 5: 1, 10: 1, 15: 1}
}

func perspective(fovy, aspect, near, far float32) (m [16]float32) {
	f := 1 / math32.Tan(fovy/2)
	m[0] = f / aspect
	m[5] = f
	m[10] = (far + near) / (near - far)
	m[11] = -1
	m[14] = 2 * far * near / (near - far)
	return m
}

func lookAt(eye, center, up ms3.Vec) (m [16]float32) {
	f := ms3.Unit(ms3.Sub(center, eye))
	s := ms3.Unit(cross(f, up))
	u := cross(s, f)
	m[0], m[4], m[8], m[12] = s.X, s.Y, s.Z, -ms3.Dot(s, eye)
	m[1], m[5], m[9], m[13] = u.X, u.Y, u.Z, -ms3.Dot(u, eye)
	m[2], m[6], m[10], m[14] = -f.X, -f.Y, -f.Z, ms3.Dot(f, eye)
	m[15] = 1
	return m
}

func mul4(a, b [16]float32) (m [16]float32) {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			m[col*4+row] = sum
		}
	}
	return m
}

func primitive(shape Shape, pos ms3.Vec) *Group {
	e := NewEntity(shape)
	e.Position = pos
	return NewPrimitive(e)
}

func closeTo(a, b, tol float32) bool { return math32.Abs(a-b) <= tol }

package raymarch

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/raymarch/glbuild"
)

// FrameStats describes the work done by the last call to [Compositor.Render].
type FrameStats struct {
	// Layers is the number of layers found in the scene graph.
	Layers int
	// Visible is the number of layers that passed frustum culling and hold entities.
	Visible int
	// Culled is the number of layers discarded, either empty or outside the view.
	Culled int
	// Passes is the number of raymarching passes drawn.
	Passes int
	// Relinks counts the programs compiled this frame.
	Relinks int
	// Resizes counts offscreen target reallocations this frame.
	Resizes int
}

// Compositor raymarches the layers found under a scene graph node and composites
// them over the host's output. A Compositor is not safe for concurrent use: it
// is meant to be driven by the host's render loop.
type Compositor struct {
	root Node
	dev  Device
	cfg  Config

	raymarcher RaymarchPipeline
	// defs are the defines raymarcher was compiled with.
	defs       glbuild.Defines
	screen     ScreenPipeline
	screenDefs glbuild.Defines
	// screenStale is set when the screen program is not sampling the live target.
	screenStale bool

	scan      scanner
	visible   []*Layer
	pack      packer
	target    renderTarget
	uniforms  Uniforms
	materials []GPUMaterial
	stats     FrameStats
	disposed  bool
}

// New returns a compositor that raymarches the layers under root using resources
// allocated on dev. No GPU resources are allocated until a frame needs them.
func New(root Node, dev Device, cfg Config) (*Compositor, error) {
	if root == nil {
		panic("nil root Node")
	} else if dev == nil {
		panic("nil Device")
	}
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	c := &Compositor{
		root: root,
		dev:  dev,
		cfg:  cfg,
	}
	c.materials = cfg.appendMaterials(c.materials[:0])
	return c, nil
}

// Configure replaces the compositor's configuration. Changes to values that are
// compile-time constants of the raymarcher, such as Conetracing, the presence of
// an environment map or the number of materials, cause the program to be linked
// again on the next frame. Other values take effect on the next frame without relinking.
func (c *Compositor) Configure(cfg Config) error {
	err := cfg.Validate()
	if err != nil {
		return err
	}
	old := c.cfg.defines(c.pack.capacity())
	c.cfg = cfg
	c.materials = cfg.appendMaterials(c.materials[:0])
	if c.raymarcher != nil && old != cfg.defines(c.pack.capacity()) {
		c.logf("raymarch: configuration changed program defines, relinking on next frame")
	}
	return nil
}

// Config returns the current configuration.
func (c *Compositor) Config() Config { return c.cfg }

// Capacity returns the number of entities the raymarcher's entity array holds.
// It never decreases.
func (c *Compositor) Capacity() int { return c.pack.capacity() }

// Stats returns statistics of the last frame.
func (c *Compositor) Stats() FrameStats { return c.stats }

// Layers returns the visible layers of the last frame in the order they were drawn.
// The returned slice and layers are only valid until the next call to Render.
func (c *Compositor) Layers() []*Layer { return c.visible }

// TargetSize returns the size of the offscreen target, or 0,0 before the first drawn frame.
func (c *Compositor) TargetSize() (width, height int) { return c.target.size() }

// Render draws one frame. It scans the scene graph, culls and sorts layers, grows
// the entity array if needed, draws one raymarching pass per visible layer into
// the offscreen target and composites the target onto the renderer's bound target.
//
// When no layer is visible Render returns without touching the renderer.
// Renderer state modified during the passes is restored before Render returns,
// also on error. Render panics if called after [Compositor.Dispose].
func (c *Compositor) Render(r Renderer, cam Camera) error {
	if c.disposed {
		panic("raymarch: Render called on disposed Compositor")
	}
	pcam, ok := cam.(PerspectiveCamera)
	if !ok {
		err := fmt.Errorf("%w: got %T", ErrNotPerspective, cam)
		c.logf("%v", err)
		return err
	}
	c.stats = FrameStats{}
	layers := c.scan.scan(c.root)
	maxEntities := 0
	for i := range layers {
		maxEntities = max(maxEntities, len(layers[i].Entities))
	}
	frustum := FrustumFromMatrix(pcam.ProjView())
	c.visible = cull(c.visible[:0], layers, &frustum, pcam.WorldPosition())
	sortLayers(c.visible, c.cfg.Conetracing)
	c.stats.Layers = len(layers)
	c.stats.Visible = len(c.visible)
	c.stats.Culled = len(layers) - len(c.visible)

	err := c.reserve(maxEntities)
	if err != nil {
		return err
	}
	if len(c.visible) == 0 {
		return nil
	}
	err = c.drawLayers(r, pcam)
	if err != nil {
		return err
	}
	return c.composite(r, pcam)
}

// reserve makes sure the raymarcher can hold n entities and that both programs
// are linked with the current configuration. A new program replaces the old one
// only after it linked successfully.
func (c *Compositor) reserve(n int) error {
	grow, err := c.pack.checkCapacity(n, c.dev.MaxEntities(1+len(c.cfg.Materials)))
	if err != nil {
		c.logf("%v", err)
		return err
	}
	capacity := c.pack.capacity()
	if grow {
		capacity = n
	}
	if capacity == 0 {
		return nil // No entities seen yet, nothing to link.
	}
	defs := c.cfg.defines(capacity)
	if c.raymarcher == nil || defs != c.defs {
		rp, err := c.dev.NewRaymarchPipeline(defs)
		if err != nil {
			return fmt.Errorf("linking raymarcher for %d entities: %w", capacity, err)
		}
		if c.raymarcher != nil {
			c.raymarcher.Release()
		}
		c.raymarcher = rp
		c.defs = defs
		c.stats.Relinks++
		c.logf("raymarch: linked raymarcher with MAX_ENTITIES=%d MAX_MATERIALS=%d", defs.MaxEntities, defs.MaxMaterials)
	}
	if grow {
		c.pack.grow(capacity)
	}

	screenDefs := glbuild.DefaultDefines()
	screenDefs.MaxEntities = 1
	screenDefs.Conetracing = c.cfg.Conetracing
	if c.screen == nil || screenDefs != c.screenDefs {
		sp, err := c.dev.NewScreenPipeline(screenDefs)
		if err != nil {
			return fmt.Errorf("linking screen program: %w", err)
		}
		if c.screen != nil {
			c.screen.Release()
		}
		c.screen = sp
		c.screenDefs = screenDefs
		c.screenStale = true
		c.stats.Relinks++
	}
	return nil
}

// drawLayers draws every visible layer into the offscreen target.
func (c *Compositor) drawLayers(r Renderer, cam PerspectiveCamera) (err error) {
	saved := saveState(r)
	defer saved.restore(r)

	viewWidth, viewHeight := r.DrawingBufferSize()
	resized, err := c.target.fit(c.dev, viewWidth, viewHeight, c.cfg.Resolution)
	if err != nil {
		return fmt.Errorf("resizing render target: %w", err)
	}
	width, height := c.target.size()
	if resized {
		c.stats.Resizes++
		c.screenStale = true
		c.logf("raymarch: render target resized to %dx%d", width, height)
	}

	r.SetAutoClear(false)
	r.SetShadowAutoUpdate(false)
	r.SetXREnabled(false)
	r.SetClearAlpha(0)
	r.SetRenderTarget(c.target.target)
	r.SetDepthMask(true)
	err = r.Clear()
	if err != nil {
		return fmt.Errorf("clearing render target: %w", err)
	}

	u := &c.uniforms
	u.Blending = c.cfg.Blending
	u.CameraDirection = cam.WorldDirection()
	u.CameraPosition = cam.WorldPosition()
	u.CameraFar = cam.Far()
	u.CameraFov = cam.Fov()
	u.CameraNear = cam.Near()
	u.ProjView = cam.ProjView()
	u.Resolution = ms2.Vec{X: float32(width), Y: float32(height)}
	u.EnvMap = c.cfg.EnvMap
	u.EnvMapIntensity = c.cfg.EnvMapIntensity
	u.Materials = c.materials
	for _, l := range c.visible {
		u.Bounds = l.Bounds
		u.NumEntities = len(l.Entities)
		u.Entities = c.pack.pack(l.Entities, len(c.materials))
		err = c.raymarcher.SetUniforms(u)
		if err != nil {
			return fmt.Errorf("setting layer uniforms: %w", err)
		}
		err = r.Render(c.raymarcher, cam)
		if err != nil {
			return fmt.Errorf("raymarching layer: %w", err)
		}
		c.stats.Passes++
	}
	return nil
}

// composite draws the offscreen target over the renderer's bound target.
func (c *Compositor) composite(r Renderer, cam Camera) error {
	if c.screenStale {
		err := c.screen.SetSource(c.target.target)
		if err != nil {
			return fmt.Errorf("binding render target to screen program: %w", err)
		}
		c.screenStale = false
	}
	err := r.Render(c.screen, cam)
	if err != nil {
		return fmt.Errorf("compositing render target: %w", err)
	}
	return nil
}

// Dispose releases the offscreen target and programs. Calling Dispose more than
// once has no further effect.
func (c *Compositor) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.target.release()
	if c.raymarcher != nil {
		c.raymarcher.Release()
		c.raymarcher = nil
	}
	if c.screen != nil {
		c.screen.Release()
		c.screen = nil
	}
	c.visible = nil
	c.uniforms = Uniforms{}
}

func (c *Compositor) logf(format string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Printf(format, args...)
	}
}

// rendererState is the host renderer state the compositor modifies while drawing layers.
type rendererState struct {
	autoClear        bool
	shadowAutoUpdate bool
	xrEnabled        bool
	clearAlpha       float32
	target           Target
}

func saveState(r Renderer) rendererState {
	return rendererState{
		autoClear:        r.AutoClear(),
		shadowAutoUpdate: r.ShadowAutoUpdate(),
		xrEnabled:        r.XREnabled(),
		clearAlpha:       r.ClearAlpha(),
		target:           r.RenderTarget(),
	}
}

func (s rendererState) restore(r Renderer) {
	r.SetAutoClear(s.autoClear)
	r.SetShadowAutoUpdate(s.shadowAutoUpdate)
	r.SetXREnabled(s.xrEnabled)
	r.SetClearAlpha(s.clearAlpha)
	r.SetRenderTarget(s.target)
}

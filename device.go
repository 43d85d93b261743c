package raymarch

import (
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/raymarch/glbuild"
)

// Camera is the view the compositor renders from.
type Camera interface {
	WorldPosition() ms3.Vec
	// WorldDirection is the unit vector the camera looks along.
	WorldDirection() ms3.Vec
	// ProjView returns projection×view, column-major with OpenGL clip space conventions.
	ProjView() [16]float32
}

// PerspectiveCamera is the only kind of [Camera] the compositor can raymarch from
// since the raymarcher relies on the field of view and clip planes.
type PerspectiveCamera interface {
	Camera
	// Fov returns the vertical field of view in radians.
	Fov() float32
	Near() float32
	Far() float32
}

// Target is an offscreen color+depth render target. Both buffers always share dimensions.
type Target interface {
	Size() (width, height int)
	// Release frees the GPU buffers. It is called exactly once per Target.
	Release()
}

// Pipeline is a linked GPU program and its fixed function state.
type Pipeline interface {
	// Release frees the program. It is called exactly once per Pipeline.
	Release()
}

// RaymarchPipeline draws one layer per full-screen pass.
type RaymarchPipeline interface {
	Pipeline
	// SetUniforms uploads the values consumed by the next draw. Only
	// u.Entities[:u.NumEntities] need be uploaded.
	SetUniforms(u *Uniforms) error
}

// ScreenPipeline composites a [Target]'s color and depth onto the bound render target.
type ScreenPipeline interface {
	Pipeline
	SetSource(t Target) error
}

// EnvMap is an environment map texture in cube UV layout.
type EnvMap interface {
	Size() (width, height int)
}

// Device allocates the GPU resources owned by a [Compositor].
type Device interface {
	// NewTarget allocates a color+depth target. On error no resources remain allocated.
	NewTarget(width, height int) (Target, error)
	// NewRaymarchPipeline compiles and links the raymarching program.
	NewRaymarchPipeline(defs glbuild.Defines) (RaymarchPipeline, error)
	// NewScreenPipeline compiles and links the composite program.
	NewScreenPipeline(defs glbuild.Defines) (ScreenPipeline, error)
	// MaxEntities is the largest entity array the device can compile a raymarcher
	// for when it also holds a table of the given number of materials.
	MaxEntities(materials int) int
}

// Renderer is the host renderer. The compositor saves every flag it changes and
// restores it before returning, since other consumers may rely on them.
type Renderer interface {
	AutoClear() bool
	SetAutoClear(bool)
	ShadowAutoUpdate() bool
	SetShadowAutoUpdate(bool)
	XREnabled() bool
	SetXREnabled(bool)
	ClearAlpha() float32
	SetClearAlpha(float32)
	// RenderTarget returns the bound target. nil is the host's output surface.
	RenderTarget() Target
	SetRenderTarget(Target)
	SetDepthMask(bool)
	// DrawingBufferSize returns the size of the output surface in pixels.
	DrawingBufferSize() (width, height int)
	// Clear clears color and depth of the bound render target.
	Clear() error
	// Render draws p as a full-screen pass into the bound render target.
	Render(p Pipeline, cam Camera) error
}

// Uniforms are the per-pass inputs of the raymarching program.
type Uniforms struct {
	Blending        float32
	Bounds          Sphere
	CameraDirection ms3.Vec
	CameraPosition  ms3.Vec
	CameraFar       float32
	// CameraFov is the vertical field of view in radians.
	CameraFov  float32
	CameraNear float32
	ProjView   [16]float32
	// Resolution is the render target size in pixels.
	Resolution      ms2.Vec
	EnvMap          EnvMap
	EnvMapIntensity float32
	NumEntities     int
	// Entities spans the full entity array capacity.
	Entities  []GPUEntity
	Materials []GPUMaterial
}

// GPUEntity is the packed form of an [Entity] as uploaded to the raymarcher.
// It spans four vec4 slots: each vec3 shares its slot with the integer after it.
type GPUEntity struct {
	Color     [3]float32
	Operation int32
	Position  [3]float32
	Shape     int32
	Rotation  [4]float32
	Scale     [3]float32
	Material  int32
}

// GPUMaterial is the packed form of a [Material]. It spans two vec4 slots.
type GPUMaterial struct {
	Color  [3]float32
	_      float32
	Params [4]float32
}

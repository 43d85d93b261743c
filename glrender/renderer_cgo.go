//go:build !tinygo && cgo

package glrender

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/glgl/v4.1-core/glgl"
	"github.com/soypat/raymarch"
)

// Renderer draws full-screen pipelines into the default framebuffer or a [Target].
// Shadow and XR flags are recorded only, for hosts that run those passes themselves.
type Renderer struct {
	autoClear        bool
	shadowAutoUpdate bool
	xrEnabled        bool
	clearColor       [3]float32
	clearAlpha       float32
	target           raymarch.Target
	width, height    int
}

var _ raymarch.Renderer = (*Renderer)(nil)

// NewRenderer returns a renderer for a default framebuffer of the given size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		autoClear:        true,
		shadowAutoUpdate: true,
		clearAlpha:       1,
		width:            width,
		height:           height,
	}
}

// SetSize sets the default framebuffer size, i.e. after a window resize.
func (r *Renderer) SetSize(width, height int) { r.width, r.height = width, height }

// SetClearColor sets the RGB clear color. Alpha is set with SetClearAlpha.
func (r *Renderer) SetClearColor(red, green, blue float32) {
	r.clearColor = [3]float32{red, green, blue}
}

func (r *Renderer) AutoClear() bool               { return r.autoClear }
func (r *Renderer) SetAutoClear(b bool)           { r.autoClear = b }
func (r *Renderer) ShadowAutoUpdate() bool        { return r.shadowAutoUpdate }
func (r *Renderer) SetShadowAutoUpdate(b bool)    { r.shadowAutoUpdate = b }
func (r *Renderer) XREnabled() bool               { return r.xrEnabled }
func (r *Renderer) SetXREnabled(b bool)           { r.xrEnabled = b }
func (r *Renderer) ClearAlpha() float32           { return r.clearAlpha }
func (r *Renderer) SetClearAlpha(a float32)       { r.clearAlpha = a }
func (r *Renderer) RenderTarget() raymarch.Target { return r.target }
func (r *Renderer) SetDepthMask(b bool)           { gl.DepthMask(b) }

// DrawingBufferSize returns the default framebuffer size.
func (r *Renderer) DrawingBufferSize() (width, height int) { return r.width, r.height }

// SetRenderTarget binds t for subsequent draws. nil selects the default framebuffer.
// t must be nil or a *[Target].
func (r *Renderer) SetRenderTarget(t raymarch.Target) {
	if t != nil {
		if _, ok := t.(*Target); !ok {
			panic(fmt.Sprintf("glrender: unsupported render target %T", t))
		}
	}
	r.target = t
	r.bind()
}

func (r *Renderer) bind() {
	if t, ok := r.target.(*Target); ok && t != nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		gl.Viewport(0, 0, int32(t.width), int32(t.height))
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(r.width), int32(r.height))
}

// BeginFrame binds the default framebuffer and clears it if AutoClear is set.
func (r *Renderer) BeginFrame() error {
	r.SetRenderTarget(nil)
	gl.DepthMask(true)
	if !r.autoClear {
		return nil
	}
	return r.Clear()
}

// Clear clears color and depth of the bound target.
func (r *Renderer) Clear() error {
	r.bind()
	gl.ClearColor(r.clearColor[0], r.clearColor[1], r.clearColor[2], r.clearAlpha)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return glgl.Err()
}

// Render draws p over the bound target. Render never clears, see [Renderer.BeginFrame].
func (r *Renderer) Render(p raymarch.Pipeline, cam raymarch.Camera) error {
	var base *pipeline
	switch p := p.(type) {
	case *RaymarchPipeline:
		p.bindTextures()
		base = &p.pipeline
	case *ScreenPipeline:
		err := p.bindTextures()
		if err != nil {
			return err
		}
		base = &p.pipeline
	default:
		return fmt.Errorf("glrender: unsupported pipeline %T", p)
	}
	r.bind()
	if base.transparent {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		defer gl.Disable(gl.BLEND)
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	base.prog.Bind()
	gl.BindVertexArray(base.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(quadVertices)/2))
	gl.BindVertexArray(0)
	base.prog.Unbind()
	return glgl.Err()
}

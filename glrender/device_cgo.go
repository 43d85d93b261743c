//go:build !tinygo && cgo

package glrender

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/glgl/v4.1-core/glgl"
	"github.com/soypat/raymarch"
	"github.com/soypat/raymarch/glbuild"
	"github.com/soypat/raymarch/glbuild/glsllib"
)

// Device allocates render targets and links raymarch programs on the current GL context.
type Device struct {
	programmer      *glbuild.Programmer
	fns             []glbuild.ShaderFunction
	fragmentVectors int
	quad            uint32
	vert, frag      bytes.Buffer
}

var _ raymarch.Device = (*Device)(nil)

// NewDevice queries the current context's limits and uploads the full-screen quad.
func NewDevice() (*Device, error) {
	var vectors int32
	gl.GetIntegerv(gl.MAX_FRAGMENT_UNIFORM_VECTORS, &vectors)
	if vectors <= 0 {
		return nil, glErrOrMessage("querying fragment uniform vectors, is a GL context current?")
	}
	dev := &Device{
		programmer:      glbuild.NewDefaultProgrammer(),
		fns:             glsllib.Raymarcher(),
		fragmentVectors: int(vectors),
	}
	gl.GenBuffers(1, &dev.quad)
	gl.BindBuffer(gl.ARRAY_BUFFER, dev.quad)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(quadVertices), gl.Ptr(&quadVertices[0]), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if dev.quad == 0 {
		return nil, glErrOrMessage("creating quad vertex buffer")
	}
	return dev, glgl.Err()
}

// MaxEntities returns the largest entity array a raymarcher can be linked with
// alongside the given number of materials.
func (dev *Device) MaxEntities(materials int) int {
	return maxEntities(dev.fragmentVectors, materials)
}

// Release frees the quad buffer. Targets and pipelines must be released separately.
func (dev *Device) Release() {
	if dev.quad != 0 {
		gl.DeleteBuffers(1, &dev.quad)
		dev.quad = 0
	}
}

// NewTarget allocates a framebuffer with RGBA8 color and 24 bit depth textures.
func (dev *Device) NewTarget(width, height int) (raymarch.Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	t := &Target{width: width, height: height}
	gl.GenFramebuffers(1, &t.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	t.color = newTexture(width, height, gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	t.depth = newTexture(width, height, gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT, nil)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.color, 0)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, t.depth, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Release()
		return nil, glErrOrMessage(fmt.Sprintf("incomplete framebuffer status 0x%x", status))
	}
	if err := glgl.Err(); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// NewRaymarchPipeline writes, compiles and links the raymarching program for defs.
func (dev *Device) NewRaymarchPipeline(defs glbuild.Defines) (raymarch.RaymarchPipeline, error) {
	if need := maxEntities(dev.fragmentVectors, defs.MaxMaterials); defs.MaxEntities > need {
		return nil, fmt.Errorf("%w: %d entities with %d materials exceed fragment uniform storage (max %d entities)", raymarch.ErrCapacityExceeded, defs.MaxEntities, defs.MaxMaterials, need)
	}
	dev.vert.Reset()
	dev.frag.Reset()
	_, err := dev.programmer.WriteRaymarcherVertex(&dev.vert, defs)
	if err != nil {
		return nil, err
	}
	_, err = dev.programmer.WriteRaymarcherFragment(&dev.frag, defs, dev.fns)
	if err != nil {
		return nil, err
	}
	prog, vao, err := dev.link("raymarcher")
	if err != nil {
		return nil, err
	}
	p := &RaymarchPipeline{
		pipeline: pipeline{prog: prog, vao: vao, transparent: defs.Conetracing},
		envMapOn: defs.EnvMap,
		entities: make([]entityLocations, defs.MaxEntities),
		mats:     make([]materialLocations, defs.MaxMaterials),
	}
	p.locate()
	return p, nil
}

// NewScreenPipeline links the program that composites a [Target] onto the bound framebuffer.
func (dev *Device) NewScreenPipeline(defs glbuild.Defines) (raymarch.ScreenPipeline, error) {
	dev.vert.Reset()
	dev.frag.Reset()
	_, err := dev.programmer.WriteScreenVertex(&dev.vert, defs)
	if err != nil {
		return nil, err
	}
	_, err = dev.programmer.WriteScreenFragment(&dev.frag, defs)
	if err != nil {
		return nil, err
	}
	prog, vao, err := dev.link("screen")
	if err != nil {
		return nil, err
	}
	p := &ScreenPipeline{pipeline: pipeline{prog: prog, vao: vao, transparent: defs.Conetracing}}
	p.colorLoc = uniformLocation(prog, "colorTexture\x00")
	p.depthLoc = uniformLocation(prog, "depthTexture\x00")
	return p, nil
}

// link compiles the sources in dev.vert and dev.frag and binds the quad to the program's position attribute.
func (dev *Device) link(name string) (prog glgl.Program, vao uint32, err error) {
	dev.vert.WriteByte(0)
	dev.frag.WriteByte(0)
	prog, err = glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   dev.vert.String(),
		Fragment: dev.frag.String(),
	})
	if err != nil {
		return prog, 0, fmt.Errorf("compiling %s program: %w", name, err)
	}
	posAttrib, err := prog.AttribLocation("position\x00")
	if err != nil {
		prog.Delete()
		return prog, 0, err
	}
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, dev.quad)
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if err = glgl.Err(); err != nil {
		gl.DeleteVertexArrays(1, &vao)
		prog.Delete()
		return prog, 0, err
	}
	return prog, vao, nil
}

// Target is an offscreen framebuffer with color and depth textures of equal size.
type Target struct {
	fbo, color, depth uint32
	width, height     int
}

// Size returns the target size in pixels.
func (t *Target) Size() (width, height int) { return t.width, t.height }

// Release deletes the framebuffer and its textures.
func (t *Target) Release() {
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
	}
	if t.color != 0 {
		gl.DeleteTextures(1, &t.color)
	}
	if t.depth != 0 {
		gl.DeleteTextures(1, &t.depth)
	}
	t.fbo, t.color, t.depth = 0, 0, 0
}

type pipeline struct {
	prog glgl.Program
	vao  uint32
	// transparent pipelines are drawn with alpha blending.
	transparent bool
}

// Release deletes the program and its vertex array.
func (p *pipeline) Release() {
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
	p.prog.Delete()
}

type entityLocations [len(entityFields)]int32

type materialLocations [len(materialFields)]int32

// RaymarchPipeline is a linked raymarching program with its uniform locations cached.
type RaymarchPipeline struct {
	pipeline
	envMapOn bool
	envMap   uint32
	entities []entityLocations
	mats     []materialLocations

	blending, boundsCenter, boundsRadius                      int32
	camDir, camPos, camFar, camFov, camNear, projView, resLoc int32
	numEntities, envMapLoc                                    int32
}

func (p *RaymarchPipeline) locate() {
	prog := p.prog
	p.blending = uniformLocation(prog, "blending\x00")
	p.boundsCenter = uniformLocation(prog, "bounds.center\x00")
	p.boundsRadius = uniformLocation(prog, "bounds.radius\x00")
	p.camDir = uniformLocation(prog, "cameraDirection\x00")
	p.camPos = uniformLocation(prog, "cameraPosition\x00")
	p.camFar = uniformLocation(prog, "cameraFar\x00")
	p.camFov = uniformLocation(prog, "cameraFov\x00")
	p.camNear = uniformLocation(prog, "cameraNear\x00")
	p.projView = uniformLocation(prog, "projView\x00")
	p.resLoc = uniformLocation(prog, "resolution\x00")
	p.numEntities = uniformLocation(prog, "numEntities\x00")
	p.envMapLoc = uniformLocation(prog, "envMap\x00")
	var name []byte
	for i := range p.entities {
		for j, field := range entityFields {
			name = appendUniformName(name[:0], "entities", i, field)
			p.entities[i][j] = uniformLocation(prog, string(name))
		}
	}
	for i := range p.mats {
		for j, field := range materialFields {
			name = appendUniformName(name[:0], "materials", i, field)
			p.mats[i][j] = uniformLocation(prog, string(name))
		}
	}
}

// SetUniforms uploads u to the program. Only the first u.NumEntities entities are uploaded.
func (p *RaymarchPipeline) SetUniforms(u *raymarch.Uniforms) error {
	if u.NumEntities > len(p.entities) || u.NumEntities > len(u.Entities) {
		return fmt.Errorf("%d entities do not fit raymarcher compiled for %d", u.NumEntities, len(p.entities))
	}
	p.prog.Bind()
	defer p.prog.Unbind()
	gl.Uniform1f(p.blending, u.Blending)
	gl.Uniform3f(p.boundsCenter, u.Bounds.Center.X, u.Bounds.Center.Y, u.Bounds.Center.Z)
	gl.Uniform1f(p.boundsRadius, u.Bounds.Radius)
	gl.Uniform3f(p.camDir, u.CameraDirection.X, u.CameraDirection.Y, u.CameraDirection.Z)
	gl.Uniform3f(p.camPos, u.CameraPosition.X, u.CameraPosition.Y, u.CameraPosition.Z)
	gl.Uniform1f(p.camFar, u.CameraFar)
	gl.Uniform1f(p.camFov, u.CameraFov)
	gl.Uniform1f(p.camNear, u.CameraNear)
	gl.UniformMatrix4fv(p.projView, 1, false, &u.ProjView[0])
	gl.Uniform2f(p.resLoc, u.Resolution.X, u.Resolution.Y)
	gl.Uniform1i(p.numEntities, int32(u.NumEntities))
	for i, e := range u.Entities[:u.NumEntities] {
		loc := &p.entities[i]
		gl.Uniform3f(loc[0], e.Color[0], e.Color[1], e.Color[2])
		gl.Uniform1i(loc[1], e.Operation)
		gl.Uniform3f(loc[2], e.Position[0], e.Position[1], e.Position[2])
		gl.Uniform1i(loc[3], e.Shape)
		gl.Uniform4f(loc[4], e.Rotation[0], e.Rotation[1], e.Rotation[2], e.Rotation[3])
		gl.Uniform3f(loc[5], e.Scale[0], e.Scale[1], e.Scale[2])
		gl.Uniform1i(loc[6], e.Material)
	}
	for i, m := range u.Materials {
		if i >= len(p.mats) {
			break
		}
		loc := &p.mats[i]
		gl.Uniform3f(loc[0], m.Color[0], m.Color[1], m.Color[2])
		gl.Uniform4f(loc[1], m.Params[0], m.Params[1], m.Params[2], m.Params[3])
	}
	p.envMap = 0
	if p.envMapOn {
		env, ok := u.EnvMap.(*EnvMap)
		if !ok {
			return fmt.Errorf("raymarcher linked with environment map got %T", u.EnvMap)
		}
		p.envMap = env.tex
		gl.Uniform1i(p.envMapLoc, 0)
	}
	return glgl.Err()
}

func (p *RaymarchPipeline) bindTextures() {
	if p.envMap != 0 {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, p.envMap)
	}
}

// ScreenPipeline draws a [Target]'s color and depth onto the bound framebuffer.
type ScreenPipeline struct {
	pipeline
	source             *Target
	colorLoc, depthLoc int32
}

// SetSource sets the target sampled on the next draws. t must be a *[Target].
func (p *ScreenPipeline) SetSource(t raymarch.Target) error {
	target, ok := t.(*Target)
	if !ok || target == nil {
		return fmt.Errorf("screen pipeline requires a *glrender.Target, got %T", t)
	}
	p.source = target
	p.prog.Bind()
	defer p.prog.Unbind()
	gl.Uniform1i(p.colorLoc, 0)
	gl.Uniform1i(p.depthLoc, 1)
	return glgl.Err()
}

func (p *ScreenPipeline) bindTextures() error {
	if p.source == nil || p.source.fbo == 0 {
		return errors.New("screen pipeline has no live source target")
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, p.source.color)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, p.source.depth)
	gl.ActiveTexture(gl.TEXTURE0)
	return nil
}

// EnvMap is an environment map texture in cube UV layout.
type EnvMap struct {
	tex           uint32
	width, height int
}

// NewEnvMap uploads img as a linearly filtered RGBA texture. Images whose height
// is not a power of two are resampled.
func NewEnvMap(img image.Image) (*EnvMap, error) {
	rgba, err := envMapImage(img)
	if err != nil {
		return nil, err
	}
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	env := &EnvMap{width: w, height: h}
	env.tex = newTexture(w, h, gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, rgba.Pix)
	if err := glgl.Err(); err != nil {
		env.Release()
		return nil, err
	}
	return env, nil
}

// Size returns the texture size in texels.
func (env *EnvMap) Size() (width, height int) { return env.width, env.height }

// Release deletes the texture.
func (env *EnvMap) Release() {
	if env.tex != 0 {
		gl.DeleteTextures(1, &env.tex)
		env.tex = 0
	}
}

func newTexture(width, height int, internalFormat int32, format, xtype uint32, pix []byte) (tex uint32) {
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	var ptr = gl.Ptr(nil)
	if len(pix) > 0 {
		ptr = gl.Ptr(&pix[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(width), int32(height), 0, format, xtype, ptr)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

// uniformLocation returns -1 for uniforms the linker optimized out. GL ignores writes to -1.
func uniformLocation(prog glgl.Program, nullTerminated string) int32 {
	return gl.GetUniformLocation(prog.ID(), gl.Str(nullTerminated))
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}

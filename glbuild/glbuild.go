package glbuild

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/chewxy/math32"
)

const VersionStr = "#version 410 core\n"

// ShaderFunction is the source of a single GLSL function that programs
// written by a [Programmer] may call, i.e: a shape's distance function.
type ShaderFunction struct {
	// Name is the name of the function as declared in source.
	Name []byte
	// Source is the full function declaration.
	Source []byte
}

// MakeShaderFunction parses the function name out of a GLSL function definition.
func MakeShaderFunction(shaderDef []byte) (sf ShaderFunction, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	fnNameEnd := bytes.IndexByte(shaderDef, '(')
	fnNameStart := bytes.IndexByte(shaderDef, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return ShaderFunction{}, errors.New("unable to parse function name")
	}
	name := shaderDef[fnNameStart:fnNameEnd]
	name = bytes.TrimSpace(name)
	if len(name) == 0 {
		return ShaderFunction{}, errors.New("empty function name")
	}
	return ShaderFunction{Name: name, Source: shaderDef}, nil
}

// Defines are the compile-time constants of the raymarching program. Changing
// any of them requires the program to be compiled and linked again, so
// they are kept apart from regular uniforms. Defines is comparable.
type Defines struct {
	// MaxEntities is the length of the entity uniform array.
	MaxEntities int
	// MaxMaterials is the length of the material uniform array.
	MaxMaterials int
	// Conetracing enables coverage accumulation and makes the programs transparent.
	Conetracing bool

	MaxDistance   float32
	MaxIterations int
	MinCoverage   float32
	MinDistance   float32

	// EnvMap is set when an environment map is bound. The CubeUV fields
	// describe its mip layout and are ignored when EnvMap is false.
	EnvMap            bool
	CubeUVMaxMip      float32
	CubeUVTexelWidth  float32
	CubeUVTexelHeight float32
}

// DefaultDefines returns the raymarcher defaults with no entity capacity.
func DefaultDefines() Defines {
	return Defines{
		MaxEntities:   0,
		MaxMaterials:  1,
		Conetracing:   true,
		MaxDistance:   1000,
		MaxIterations: 500,
		MinCoverage:   0.02,
		MinDistance:   0.05,
	}
}

// SetEnvMapSize sets the cube UV layout defines for an environment map
// of the given texel height. A non-positive height removes the environment map.
func (d *Defines) SetEnvMapSize(height int) {
	if height <= 0 {
		d.EnvMap = false
		d.CubeUVMaxMip, d.CubeUVTexelWidth, d.CubeUVTexelHeight = 0, 0, 0
		return
	}
	h := float32(height)
	maxMip := math32.Log2(h) - 2
	d.EnvMap = true
	d.CubeUVMaxMip = maxMip
	d.CubeUVTexelWidth = 1 / (3 * math32.Max(math32.Pow(2, maxMip), 7*16))
	d.CubeUVTexelHeight = 1 / h
}

// Validate checks the defines describe a program that can be compiled.
func (d Defines) Validate() error {
	switch {
	case d.MaxEntities < 1:
		return errors.New("MaxEntities must be at least 1 to compile a program")
	case d.MaxMaterials < 1:
		return errors.New("MaxMaterials must be at least 1")
	case d.MaxIterations < 1:
		return errors.New("MaxIterations must be positive")
	case d.MaxDistance <= 0 || d.MinDistance <= 0 || d.MinDistance >= d.MaxDistance:
		return fmt.Errorf("bad march distance range [%g,%g]", d.MinDistance, d.MaxDistance)
	case d.MinCoverage < 0 || d.MinCoverage > 1:
		return errors.New("MinCoverage must be in [0,1]")
	}
	return nil
}

// AppendDecl appends the #define declarations of d to b.
func (d Defines) AppendDecl(b []byte) []byte {
	var num [32]byte
	if d.Conetracing {
		b = AppendDefineDecl(b, "CONETRACING", "1")
	}
	b = AppendDefineDecl(b, "MAX_ENTITIES", string(strconv.AppendInt(num[:0], int64(d.MaxEntities), 10)))
	b = AppendDefineDecl(b, "MAX_MATERIALS", string(strconv.AppendInt(num[:0], int64(d.MaxMaterials), 10)))
	b = AppendDefineDecl(b, "MAX_ITERATIONS", string(strconv.AppendInt(num[:0], int64(d.MaxIterations), 10)))
	b = AppendDefineDecl(b, "MAX_DISTANCE", string(appendFloatLiteral(num[:0], d.MaxDistance)))
	b = AppendDefineDecl(b, "MIN_COVERAGE", string(appendFloatLiteral(num[:0], d.MinCoverage)))
	b = AppendDefineDecl(b, "MIN_DISTANCE", string(appendFloatLiteral(num[:0], d.MinDistance)))
	if d.EnvMap {
		b = AppendDefineDecl(b, "ENVMAP_TYPE_CUBE_UV", "1")
		b = AppendDefineDecl(b, "CUBEUV_MAX_MIP", string(appendFloatLiteral(num[:0], d.CubeUVMaxMip)))
		b = AppendDefineDecl(b, "CUBEUV_TEXEL_WIDTH", string(appendFloatLiteral(num[:0], d.CubeUVTexelWidth)))
		b = AppendDefineDecl(b, "CUBEUV_TEXEL_HEIGHT", string(appendFloatLiteral(num[:0], d.CubeUVTexelHeight)))
	}
	return b
}

// appendFloatLiteral appends v so GLSL parses it as a float, i.e: "1000.0" and not "1000".
func appendFloatLiteral(b []byte, v float32) []byte {
	start := len(b)
	b = AppendFloat(b, '-', '.', v)
	if bytes.IndexByte(b[start:], '.') < 0 {
		b = append(b, '.', '0')
	} else if b[len(b)-1] == '.' {
		b = append(b, '0')
	}
	return b
}

//go:embed raymarcher.vert
var raymarcherVertex []byte

//go:embed raymarcher.frag
var raymarcherFragment []byte

//go:embed screen.vert
var screenVertex []byte

//go:embed screen.frag
var screenFragment []byte

// Programmer writes the source of the raymarching and screen composite programs.
type Programmer struct {
	scratch []byte
	// names maps function names to source hashes for checking duplicates.
	names map[uint64]uint64
}

// NewDefaultProgrammer returns a Programmer ready for use.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch: make([]byte, 0, 1024),
		names:   make(map[uint64]uint64),
	}
}

// WriteRaymarcherVertex writes the vertex stage of the raymarching program.
func (p *Programmer) WriteRaymarcherVertex(w io.Writer, defs Defines) (int, error) {
	return p.writeStage(w, defs, nil, raymarcherVertex)
}

// WriteRaymarcherFragment writes the fragment stage of the raymarching program. fns
// must provide every function the raymarcher body calls: shape distances, operators and lighting.
// Identical functions are written once, distinct functions sharing a name are an error.
func (p *Programmer) WriteRaymarcherFragment(w io.Writer, defs Defines, fns []ShaderFunction) (int, error) {
	return p.writeStage(w, defs, fns, raymarcherFragment)
}

// WriteScreenVertex writes the vertex stage of the screen composite program.
func (p *Programmer) WriteScreenVertex(w io.Writer, defs Defines) (int, error) {
	return p.writeStage(w, defs, nil, screenVertex)
}

// WriteScreenFragment writes the fragment stage of the screen composite program.
func (p *Programmer) WriteScreenFragment(w io.Writer, defs Defines) (int, error) {
	return p.writeStage(w, defs, nil, screenFragment)
}

func (p *Programmer) writeStage(w io.Writer, defs Defines, fns []ShaderFunction, body []byte) (n int, err error) {
	err = defs.Validate()
	if err != nil {
		return 0, err
	}
	p.scratch = append(p.scratch[:0], VersionStr...)
	p.scratch = defs.AppendDecl(p.scratch)
	p.scratch, err = p.appendFunctions(p.scratch, fns)
	if err != nil {
		return 0, err
	}
	n, err = w.Write(p.scratch)
	if err != nil {
		return n, err
	}
	ngot, err := w.Write(body)
	n += ngot
	return n, err
}

func (p *Programmer) appendFunctions(b []byte, fns []ShaderFunction) ([]byte, error) {
	clear(p.names)
	for _, fn := range fns {
		if len(fn.Name) == 0 {
			return b, errors.New("shader function with no name")
		}
		nameHash := hash(fn.Name, 0)
		srcHash := hash(fn.Source, nameHash)
		gotSrcHash, nameConflict := p.names[nameHash]
		if nameConflict {
			if gotSrcHash == srcHash {
				continue // Identical function already written.
			}
			return b, fmt.Errorf("distinct shader functions share name %q", fn.Name)
		}
		p.names[nameHash] = srcHash
		b = append(b, '\n')
		b = append(b, fn.Source...)
		b = append(b, '\n')
	}
	return b, nil
}

func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

const decimalDigits = 9

func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}

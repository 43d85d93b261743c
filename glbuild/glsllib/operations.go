package glsllib

import (
	_ "embed"

	"github.com/soypat/raymarch/glbuild"
)

//go:embed smoothunion.glsl
var smoothUnionSrc []byte

// SmoothUnion blends two color+distance samples (distance in w) with smoothing factor k:
//
//	vec4 opSmoothUnion(vec4 a, vec4 b, float k)
func SmoothUnion() glbuild.ShaderFunction {
	obj, _ := glbuild.MakeShaderFunction(smoothUnionSrc)
	return obj
}

//go:embed smoothsubtraction.glsl
var smoothSubtractionSrc []byte

// SmoothSubtraction carves b out of a with smoothing factor k:
//
//	vec4 opSmoothSubtraction(vec4 a, vec4 b, float k)
func SmoothSubtraction() glbuild.ShaderFunction {
	obj, _ := glbuild.MakeShaderFunction(smoothSubtractionSrc)
	return obj
}

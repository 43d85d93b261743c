package glsllib

import (
	_ "embed"

	"github.com/soypat/raymarch/glbuild"
)

//go:embed lighting.glsl
var lightingSrc []byte

// Lighting shades a surface point. params holds roughness and metalness in x and y:
//
//	vec3 getLight(vec3 position, vec3 normal, vec3 view, vec3 albedo, vec4 params)
func Lighting() glbuild.ShaderFunction {
	obj, _ := glbuild.MakeShaderFunction(lightingSrc)
	return obj
}

// Raymarcher returns every function the raymarching fragment program calls.
func Raymarcher() []glbuild.ShaderFunction {
	return []glbuild.ShaderFunction{
		Box3D(),
		Capsule3D(),
		Sphere3D(),
		SmoothUnion(),
		SmoothSubtraction(),
		Lighting(),
	}
}

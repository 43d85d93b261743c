package glsllib

import (
	_ "embed"

	"github.com/soypat/raymarch/glbuild"
)

//go:embed box3D.glsl
var box3DSrc []byte

// Box3D is the SDF definition for a unit box centered at the origin:
//
//	float sdBox(vec3 p)
func Box3D() glbuild.ShaderFunction {
	obj, _ := glbuild.MakeShaderFunction(box3DSrc)
	return obj
}

//go:embed capsule3D.glsl
var capsule3DSrc []byte

// Capsule3D is the SDF definition for a capsule along the Y axis that fits in a unit sphere:
//
//	float sdCapsule(vec3 p)
func Capsule3D() glbuild.ShaderFunction {
	obj, _ := glbuild.MakeShaderFunction(capsule3DSrc)
	return obj
}

//go:embed sphere3D.glsl
var sphere3DSrc []byte

// Sphere3D is the SDF definition for a sphere of radius 0.5:
//
//	float sdSphere(vec3 p)
func Sphere3D() glbuild.ShaderFunction {
	obj, _ := glbuild.MakeShaderFunction(sphere3DSrc)
	return obj
}

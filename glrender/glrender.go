// Package glrender implements the raymarch compositor's [raymarch.Device] and
// [raymarch.Renderer] on OpenGL 4.1+ core. All calls must be made from the
// goroutine that owns the current GL context.
package glrender

import (
	"errors"
	"strconv"
)

var errNoCGO = errors.New("glrender requires CGo and is not supported on TinyGo")

const (
	// Uniform vec4 slots taken by one entity and one material in the raymarcher.
	vectorsPerEntity   = 4
	vectorsPerMaterial = 2
	// reservedVectors covers camera, bounds and sampler uniforms.
	reservedVectors = 16
)

// maxEntities returns how many entities fit in a raymarcher's uniform storage
// when the fragment stage has fragmentVectors vec4 slots available.
func maxEntities(fragmentVectors, materials int) int {
	free := fragmentVectors - reservedVectors - materials*vectorsPerMaterial
	if free < vectorsPerEntity {
		return 0
	}
	return free / vectorsPerEntity
}

// entityFields are the Entity struct members in declaration order.
var entityFields = [...]string{"color", "operation", "position", "shape", "rotation", "scale", "material"}

var materialFields = [...]string{"color", "params"}

// appendUniformName appends the null terminated name of field of element i of array.
func appendUniformName(b []byte, array string, i int, field string) []byte {
	b = append(b, array...)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(i), 10)
	b = append(b, "]."...)
	b = append(b, field...)
	return append(b, 0)
}

// quadVertices are two triangles covering clip space.
var quadVertices = [...]float32{
	-1, -1,
	1, -1,
	-1, 1,
	-1, 1,
	1, -1,
	1, 1,
}

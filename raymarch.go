// Package raymarch composites layers of signed distance field primitives into
// a host 3D scene. Each layer is raymarched in a single full-screen pass into an
// offscreen color+depth target which is then drawn over the host's output.
//
// The package is backend independent: GPU resources are reached through the
// [Device], [Renderer], [Target] and [Pipeline] interfaces. See package glrender
// for an OpenGL implementation.
package raymarch

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

var (
	// ErrNotPerspective is returned by [Compositor.Render] when the camera does not
	// implement [PerspectiveCamera]. It is a configuration error.
	ErrNotPerspective = errors.New("raymarch: camera must be a perspective camera")
	// ErrCapacityExceeded is returned when a layer holds more entities than the
	// device can fit in the raymarcher's entity array.
	ErrCapacityExceeded = errors.New("raymarch: layer entity count exceeds device limit")
)

func vec3(v ms3.Vec) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// maxAbsElem returns the largest absolute component of v.
func maxAbsElem(v ms3.Vec) float32 {
	return maxf(absf(v.X), maxf(absf(v.Y), absf(v.Z)))
}

package raymarch

import (
	"github.com/soypat/geometry/ms3"
)

// Sphere is a bounding sphere. A negative radius marks an empty sphere.
type Sphere struct {
	Center ms3.Vec
	Radius float32
}

// EmptySphere returns a sphere that contains nothing. The union of an empty
// sphere with any sphere s is s.
func EmptySphere() Sphere { return Sphere{Radius: -1} }

// IsEmpty reports whether the sphere contains no points.
func (s Sphere) IsEmpty() bool { return s.Radius < 0 }

// ContainsPoint reports whether p lies inside or on the sphere.
func (s Sphere) ContainsPoint(p ms3.Vec) bool {
	if s.IsEmpty() {
		return false
	}
	d := ms3.Sub(p, s.Center)
	return ms3.Dot(d, d) <= s.Radius*s.Radius
}

// Union returns the smallest sphere enclosing both s and b.
func (s Sphere) Union(b Sphere) Sphere {
	switch {
	case s.IsEmpty():
		return b
	case b.IsEmpty():
		return s
	}
	delta := ms3.Sub(b.Center, s.Center)
	d := ms3.Norm(delta)
	if d+b.Radius <= s.Radius {
		return s // b inside s.
	} else if d+s.Radius <= b.Radius {
		return b
	}
	r := (d + s.Radius + b.Radius) / 2
	// d > 0 here: coincident centers are handled by the containment checks.
	return Sphere{
		Center: ms3.Add(s.Center, ms3.Scale((r-s.Radius)/d, delta)),
		Radius: r,
	}
}

// Transform returns the sphere after scaling, rotating and then translating it.
// Non-uniform scales grow the radius by the largest scale factor so the result
// still encloses the transformed shape.
func (s Sphere) Transform(pos ms3.Vec, rot Quat, scale ms3.Vec) Sphere {
	if s.IsEmpty() {
		return s
	}
	c := rot.Rotate(ms3.MulElem(scale, s.Center))
	return Sphere{
		Center: ms3.Add(pos, c),
		Radius: s.Radius * maxAbsElem(scale),
	}
}

// Plane is the set of points p where dot(Normal,p)+D == 0.
// Points with positive distance lie on the side the normal points to.
type Plane struct {
	Normal ms3.Vec
	D      float32
}

// Distance returns the signed distance from the plane to p. The plane must be normalized.
func (pl Plane) Distance(p ms3.Vec) float32 {
	return ms3.Dot(pl.Normal, p) + pl.D
}

func (pl Plane) normalize() Plane {
	n := ms3.Norm(pl.Normal)
	if n == 0 {
		return pl
	}
	inv := 1 / n
	return Plane{Normal: ms3.Scale(inv, pl.Normal), D: pl.D * inv}
}

// Frustum is a camera view volume bounded by six inward facing planes
// in the order left, right, bottom, top, far, near.
type Frustum [6]Plane

// FrustumFromMatrix extracts the frustum planes of a combined projection×view
// matrix stored column-major with OpenGL clip space conventions (z in [-w,w]).
func FrustumFromMatrix(m [16]float32) Frustum {
	// Rows of the matrix.
	row := func(i int) (float32, float32, float32, float32) {
		return m[i], m[4+i], m[8+i], m[12+i]
	}
	x0, x1, x2, x3 := row(0)
	y0, y1, y2, y3 := row(1)
	z0, z1, z2, z3 := row(2)
	w0, w1, w2, w3 := row(3)
	mk := func(a, b, c, d float32) Plane {
		return Plane{Normal: ms3.Vec{X: a, Y: b, Z: c}, D: d}.normalize()
	}
	return Frustum{
		mk(w0+x0, w1+x1, w2+x2, w3+x3), // left
		mk(w0-x0, w1-x1, w2-x2, w3-x3), // right
		mk(w0+y0, w1+y1, w2+y2, w3+y3), // bottom
		mk(w0-y0, w1-y1, w2-y2, w3-y3), // top
		mk(w0-z0, w1-z1, w2-z2, w3-z3), // far
		mk(w0+z0, w1+z1, w2+z2, w3+z3), // near
	}
}

// IntersectsSphere reports whether any part of s lies inside the frustum.
// The test is conservative: spheres near frustum corners may be reported
// as intersecting when they are not. Empty spheres never intersect.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	if s.IsEmpty() {
		return false
	}
	for i := range f {
		if f[i].Distance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

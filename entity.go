package raymarch

import (
	"strconv"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Shape is the kind of distance function an [Entity] evaluates in the raymarcher.
type Shape uint8

const (
	ShapeBox Shape = iota
	ShapeCapsule
	ShapeSphere
	numShapes
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeCapsule:
		return "capsule"
	case ShapeSphere:
		return "sphere"
	}
	return "Shape(" + strconv.Itoa(int(s)) + ")"
}

// Operation is the boolean operator that combines an [Entity] with the entities
// preceding it in its [Layer].
type Operation uint8

const (
	OpUnion Operation = iota
	OpSubtraction
	numOperations
)

func (op Operation) String() string {
	switch op {
	case OpUnion:
		return "union"
	case OpSubtraction:
		return "subtraction"
	}
	return "Operation(" + strconv.Itoa(int(op)) + ")"
}

// shapeBounds holds the local bounding sphere of each shape at unit scale.
// A unit box spans [-.5,.5] on all axes, the capsule and sphere have radius .5.
var shapeBounds = [numShapes]Sphere{
	ShapeBox:     {Radius: math32.Sqrt(3) / 2},
	ShapeCapsule: {Radius: 0.5},
	ShapeSphere:  {Radius: 0.5},
}

// Entity describes a single SDF primitive as seen by the raymarcher for one frame.
// Entities are plain values: copying one is how it is cloned.
type Entity struct {
	Shape     Shape
	Operation Operation
	// Color is linear RGB in [0,1].
	Color    ms3.Vec
	Position ms3.Vec
	Rotation Quat
	Scale    ms3.Vec
	// Material indexes the compositor's material table. Index 0 is the
	// material built from the global roughness and metalness parameters.
	Material int32
}

// NewEntity returns a white unit-scale entity of the given shape at the origin
// which is combined by union.
func NewEntity(shape Shape) Entity {
	return Entity{
		Shape:     shape,
		Operation: OpUnion,
		Color:     ms3.Vec{X: 1, Y: 1, Z: 1},
		Rotation:  IdentityQuat(),
		Scale:     ms3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// Bounds returns the entity's world space bounding sphere.
func (e Entity) Bounds() Sphere {
	if e.Shape >= numShapes {
		// Unknown shapes get the most conservative bound in the table.
		return shapeBounds[ShapeBox].Transform(e.Position, e.Rotation, e.Scale)
	}
	return shapeBounds[e.Shape].Transform(e.Position, e.Rotation, e.Scale)
}

// Quat is a rotation quaternion. The zero value is not a valid rotation, use [IdentityQuat].
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat returns the quaternion representing no rotation.
func IdentityQuat() Quat { return Quat{W: 1} }

// QuatFromAxisAngle returns the rotation of radians around axis.
// The axis need not be normalized.
func QuatFromAxisAngle(axis ms3.Vec, radians float32) Quat {
	axis = ms3.Unit(axis)
	s, c := math32.Sincos(radians / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: c}
}

// Normalize returns q scaled to unit length. A zero quaternion yields the identity.
func (q Quat) Normalize() Quat {
	n := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityQuat()
	}
	inv := 1 / n
	return Quat{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// Rotate applies the rotation q to v. q is expected to be of unit length.
func (q Quat) Rotate(v ms3.Vec) ms3.Vec {
	u := ms3.Vec{X: q.X, Y: q.Y, Z: q.Z}
	// v' = v + 2w(u×v) + 2u×(u×v)
	t := ms3.Scale(2, cross(u, v))
	return ms3.Add(ms3.Add(v, ms3.Scale(q.W, t)), cross(u, t))
}

// Array returns the quaternion as x,y,z,w, the layout expected by shaders.
func (q Quat) Array() [4]float32 {
	return [4]float32{q.X, q.Y, q.Z, q.W}
}

package rmaux

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
	"github.com/soypat/raymarch"
)

const maxPitch = math32.Pi/2 - 0.01

// OrbitCamera is a perspective camera orbiting around Target.
type OrbitCamera struct {
	Target ms3.Vec
	// Yaw and Pitch are in radians. Yaw 0 and Pitch 0 places the camera on +Z of Target.
	Yaw, Pitch float32
	Distance   float32
	// MinDistance and MaxDistance bound Zoom.
	MinDistance, MaxDistance float32
	// FovY is the vertical field of view in radians.
	FovY      float32
	NearPlane float32
	FarPlane  float32
	Aspect    float32
}

var _ raymarch.PerspectiveCamera = (*OrbitCamera)(nil)

// NewOrbitCamera returns a camera looking at the origin from distance with a 60° field of view.
func NewOrbitCamera(distance, aspect float32) *OrbitCamera {
	return &OrbitCamera{
		Distance:    distance,
		MinDistance: distance * 1e-3,
		MaxDistance: distance * 10,
		FovY:        math32.Pi / 3,
		NearPlane:   0.1,
		FarPlane:    1000,
		Aspect:      aspect,
	}
}

func (c *OrbitCamera) Fov() float32  { return c.FovY }
func (c *OrbitCamera) Near() float32 { return c.NearPlane }
func (c *OrbitCamera) Far() float32  { return c.FarPlane }

// WorldPosition returns the camera eye position.
func (c *OrbitCamera) WorldPosition() ms3.Vec {
	sp, cp := math32.Sincos(c.Pitch)
	sy, cy := math32.Sincos(c.Yaw)
	dir := ms3.Vec{X: cp * sy, Y: sp, Z: cp * cy}
	return ms3.Add(c.Target, ms3.Scale(c.Distance, dir))
}

// WorldDirection returns the unit vector from the eye to Target.
func (c *OrbitCamera) WorldDirection() ms3.Vec {
	return ms3.Unit(ms3.Sub(c.Target, c.WorldPosition()))
}

// ProjView returns projection×view.
func (c *OrbitCamera) ProjView() [16]float32 {
	proj := Perspective(c.FovY, c.Aspect, c.NearPlane, c.FarPlane)
	view := LookAt(c.WorldPosition(), c.Target, ms3.Vec{Y: 1})
	return Mul4(proj, view)
}

// Rotate adds to yaw and pitch. Pitch is kept short of the poles so the view never flips.
func (c *OrbitCamera) Rotate(dyaw, dpitch float32) {
	c.Yaw += dyaw
	c.Pitch = ms1.Clamp(c.Pitch+dpitch, -maxPitch, maxPitch)
}

// Zoom scales the orbit distance by factor within [MinDistance, MaxDistance].
func (c *OrbitCamera) Zoom(factor float32) {
	c.Distance = ms1.Clamp(c.Distance*factor, c.MinDistance, c.MaxDistance)
}

// Perspective returns an OpenGL projection matrix mapping depth to [-1,1].
// All matrices are column-major.
func Perspective(fovY, aspect, near, far float32) (m [16]float32) {
	f := 1 / math32.Tan(fovY/2)
	m[0] = f / aspect
	m[5] = f
	m[10] = (far + near) / (near - far)
	m[11] = -1
	m[14] = 2 * far * near / (near - far)
	return m
}

// LookAt returns a right-handed view matrix.
func LookAt(eye, center, up ms3.Vec) (m [16]float32) {
	f := ms3.Unit(ms3.Sub(center, eye))
	s := ms3.Unit(cross(f, up))
	u := cross(s, f)
	m[0], m[4], m[8], m[12] = s.X, s.Y, s.Z, -ms3.Dot(s, eye)
	m[1], m[5], m[9], m[13] = u.X, u.Y, u.Z, -ms3.Dot(u, eye)
	m[2], m[6], m[10], m[14] = -f.X, -f.Y, -f.Z, ms3.Dot(f, eye)
	m[15] = 1
	return m
}

// Mul4 returns a×b.
func Mul4(a, b [16]float32) (m [16]float32) {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			m[col*4+row] = sum
		}
	}
	return m
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

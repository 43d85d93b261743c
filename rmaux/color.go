package rmaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// HSV converts hue, saturation and value on [0,1] to the linear RGB used by entity colors.
func HSV(h, s, v float32) ms3.Vec {
	// Each channel is v minus the chroma scaled by how far the hue sits from
	// the channel's own sector, with n selecting the channel offset.
	channel := func(n float32) float32 {
		k := math.Mod(n+h*6, 6)
		return srgbToLinear(v - v*s*max(0, min(k, 4-k, 1)))
	}
	return ms3.Vec{X: channel(5), Y: channel(3), Z: channel(1)}
}

// ColorVec converts an sRGB color to linear RGB.
func ColorVec(c color.Color) ms3.Vec {
	rgb := unitRGB(c)
	return ms3.Vec{X: srgbToLinear(rgb.X), Y: srgbToLinear(rgb.Y), Z: srgbToLinear(rgb.Z)}
}

// Palette returns n colors interpolated in HSV space from c0 to c1, taking the
// short way around the hue circle.
func Palette(c0, c1 color.Color, n int) []ms3.Vec {
	h0, s0, v0 := colorHSV(c0)
	h1, s1, v1 := colorHSV(c1)
	dh := h1 - h0
	dh -= math.Floor(dh + 0.5)
	palette := make([]ms3.Vec, n)
	for i := range palette {
		var t float32
		if n > 1 {
			t = float32(i) / float32(n-1)
		}
		h := h0 + dh*t
		palette[i] = HSV(h-math.Floor(h), ms1.Interp(s0, s1, t), ms1.Interp(v0, v1, t))
	}
	return palette
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// unitRGB returns the sRGB components of c on [0,1].
func unitRGB(c color.Color) ms3.Vec {
	r, g, b, _ := c.RGBA()
	return ms3.Vec{X: float32(r) / 0xffff, Y: float32(g) / 0xffff, Z: float32(b) / 0xffff}
}

// colorHSV returns the hue, saturation and value of c on [0,1].
func colorHSV(c color.Color) (h, s, v float32) {
	rgb := unitRGB(c)
	v = max(rgb.X, rgb.Y, rgb.Z)
	chroma := v - min(rgb.X, rgb.Y, rgb.Z)
	if v > 0 {
		s = chroma / v
	}
	if chroma == 0 {
		return 0, s, v
	}
	var sector float32
	switch v {
	case rgb.X:
		sector = math.Mod((rgb.Y-rgb.Z)/chroma+6, 6)
	case rgb.Y:
		sector = (rgb.Z-rgb.X)/chroma + 2
	default:
		sector = (rgb.X-rgb.Y)/chroma + 4
	}
	return sector / 6, s, v
}

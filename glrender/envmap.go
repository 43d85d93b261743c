package glrender

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"
)

// envMapImage converts img to RGBA with a power of two height so cube UV mip
// levels fall on whole texels. The width is scaled by the same factor.
func envMapImage(img image.Image) (*image.RGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, errors.New("empty environment map image")
	}
	ph := nextPow2(h)
	pw := max(1, w*ph/h)
	dst := image.NewRGBA(image.Rect(0, 0, pw, ph))
	if ph == h {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}
	return dst, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

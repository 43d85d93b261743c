package raymarch

import (
	"github.com/chewxy/math32"
)

// targetSize returns the offscreen target size for a viewport scaled by resolution,
// never smaller than 1×1.
func targetSize(viewWidth, viewHeight int, resolution float32) (width, height int) {
	width = int(math32.Floor(float32(viewWidth) * resolution))
	height = int(math32.Floor(float32(viewHeight) * resolution))
	return max(width, 1), max(height, 1)
}

// renderTarget keeps a [Target] sized to the viewport.
type renderTarget struct {
	target   Target
	reallocs int
}

// fit reallocates the target if its size differs from the one required for the viewport.
// On error the previous target, if any, remains valid and in place.
func (rt *renderTarget) fit(dev Device, viewWidth, viewHeight int, resolution float32) (resized bool, err error) {
	width, height := targetSize(viewWidth, viewHeight, resolution)
	if rt.target != nil {
		w, h := rt.target.Size()
		if w == width && h == height {
			return false, nil
		}
	}
	t, err := dev.NewTarget(width, height)
	if err != nil {
		return false, err
	}
	if rt.target != nil {
		rt.target.Release()
	}
	rt.target = t
	rt.reallocs++
	return true, nil
}

// size returns the live target size or 0,0 if none was allocated.
func (rt *renderTarget) size() (width, height int) {
	if rt.target == nil {
		return 0, 0
	}
	return rt.target.Size()
}

func (rt *renderTarget) release() {
	if rt.target != nil {
		rt.target.Release()
		rt.target = nil
	}
}

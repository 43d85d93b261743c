//go:build !tinygo && cgo

package rmaux

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/raymarch"
	"github.com/soypat/raymarch/glrender"
)

func ui(root raymarch.Node, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer term()
	dev, err := glrender.NewDevice()
	if err != nil {
		return err
	}
	defer dev.Release()
	fbWidth, fbHeight := window.GetFramebufferSize()
	renderer := glrender.NewRenderer(fbWidth, fbHeight)
	renderer.SetClearColor(0.05, 0.05, 0.08)
	if cfg.EnvMap != nil {
		env, err := glrender.NewEnvMap(cfg.EnvMap)
		if err != nil {
			return fmt.Errorf("uploading environment map: %w", err)
		}
		defer env.Release()
		cfg.Raymarch.EnvMap = env
	}
	comp, err := raymarch.New(root, dev, cfg.Raymarch)
	if err != nil {
		return err
	}
	defer comp.Dispose()
	cam := NewOrbitCamera(cfg.Distance, float32(fbWidth)/float32(fbHeight))

	var (
		lastMouseX       float64
		lastMouseY       float64
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		if firstMouseMove {
			lastMouseX, lastMouseY = xpos, ypos
			firstMouseMove = false
			return
		}
		dx := xpos - lastMouseX
		dy := ypos - lastMouseY
		lastMouseX, lastMouseY = xpos, ypos
		cam.Rotate(float32(-dx*yawSensitivity), float32(dy*pitchSensitivity))
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		cam.Zoom(float32(math.Pow(0.9, yoff)))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	logf := func(format string, args ...any) {
		if cfg.Logger != nil {
			cfg.Logger.Printf(format, args...)
		}
	}
	ctx := cfg.Context
	start := glfw.GetTime()
	lastReport := time.Now()
	frames := 0
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		fbWidth, fbHeight = window.GetFramebufferSize()
		if fbWidth == 0 || fbHeight == 0 {
			glfw.WaitEvents() // Minimized.
			continue
		}
		renderer.SetSize(fbWidth, fbHeight)
		cam.Aspect = float32(fbWidth) / float32(fbHeight)
		if cfg.Animate != nil {
			cfg.Animate(float32(glfw.GetTime() - start))
		}
		err = renderer.BeginFrame()
		if err != nil {
			return err
		}
		err = comp.Render(renderer, cam)
		if err != nil {
			return fmt.Errorf("rendering frame: %w", err)
		}
		window.SwapBuffers()
		glfw.PollEvents()

		frames++
		if elapsed := time.Since(lastReport); elapsed > time.Second {
			stats := comp.Stats()
			logf("%.1f fps, %d/%d layers visible, entity capacity %d", float64(frames)/elapsed.Seconds(), stats.Visible, stats.Layers, comp.Capacity())
			frames = 0
			lastReport = time.Now()
		}
	}
	return nil
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}

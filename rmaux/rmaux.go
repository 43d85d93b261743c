// Package rmaux provides helpers to get a raymarch scene on screen quickly:
// an orbit camera, color helpers and a GLFW window loop. Applications with
// their own render loop should drive a [raymarch.Compositor] directly.
package rmaux

import (
	"context"
	"image"
	"log"

	"github.com/soypat/raymarch"
)

// UIConfig configures [UI].
type UIConfig struct {
	Width, Height int
	Title         string
	// Context cancels the window loop when done.
	Context context.Context
	// Raymarch is the compositor configuration. The zero value selects [raymarch.DefaultConfig].
	Raymarch raymarch.Config
	// EnvMap is an equirectangular image uploaded as the environment map once
	// the window's context exists. It overrides Raymarch.EnvMap.
	EnvMap image.Image
	// Distance is the initial camera orbit distance. Zero selects 10.
	Distance float32
	// Animate is called every frame before rendering with the seconds elapsed since
	// the window opened. It may modify the scene graph.
	Animate func(seconds float32)
	// Logger receives window and per-second frame statistics. nil is silent.
	Logger *log.Logger
}

// UI opens a window and renders the layers under root until the window is closed
// or the context is done. Drag with the left mouse button to orbit and scroll to zoom.
func UI(root raymarch.Node, cfg UIConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	if cfg.Title == "" {
		cfg.Title = "raymarch"
	}
	if cfg.Distance <= 0 {
		cfg.Distance = 10
	}
	if cfg.Raymarch.Resolution == 0 {
		logger := cfg.Raymarch.Logger
		cfg.Raymarch = raymarch.DefaultConfig()
		cfg.Raymarch.Logger = logger
	}
	return ui(root, cfg)
}

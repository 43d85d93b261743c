//go:build tinygo || !cgo

package glrender

import (
	"image"

	"github.com/soypat/raymarch"
	"github.com/soypat/raymarch/glbuild"
)

// Device is not available without CGo.
type Device struct{}

func NewDevice() (*Device, error) { return nil, errNoCGO }

func (dev *Device) MaxEntities(materials int) int { return 0 }
func (dev *Device) Release()                      {}

func (dev *Device) NewTarget(width, height int) (raymarch.Target, error) {
	return nil, errNoCGO
}

func (dev *Device) NewRaymarchPipeline(defs glbuild.Defines) (raymarch.RaymarchPipeline, error) {
	return nil, errNoCGO
}

func (dev *Device) NewScreenPipeline(defs glbuild.Defines) (raymarch.ScreenPipeline, error) {
	return nil, errNoCGO
}

// EnvMap is not available without CGo.
type EnvMap struct{}

func NewEnvMap(img image.Image) (*EnvMap, error) { return nil, errNoCGO }

func (env *EnvMap) Size() (width, height int) { return 0, 0 }
func (env *EnvMap) Release()                  {}

package raymarch

import (
	"errors"
	"fmt"
	"log"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/raymarch/glbuild"
)

// Material overrides surface parameters for entities that reference it by index.
type Material struct {
	// Color tints the entity color.
	Color ms3.Vec
	// Params holds roughness, metalness and environment intensity. The fourth component is reserved.
	Params [4]float32
}

// Config configures a [Compositor]. Start from [DefaultConfig].
type Config struct {
	// Blending is the smoothing distance used when combining entities of a layer.
	Blending float32
	// Conetracing accumulates partial coverage along each ray and makes layers
	// blend as translucent surfaces. Layers are then drawn back to front.
	Conetracing bool
	// EnvMap is the reflection map. nil disables environment reflections.
	EnvMap          EnvMap
	EnvMapIntensity float32
	Metalness       float32
	Roughness       float32
	// Resolution scales the offscreen target relative to the output surface.
	Resolution float32
	// Materials are addressed by Entity.Material starting at index 1.
	// Index 0 is always built from Roughness, Metalness and EnvMapIntensity.
	Materials []Material
	// Logger receives relink, resize and configuration error messages. nil is silent.
	Logger *log.Logger
}

// DefaultConfig returns the configuration the compositor uses when none is specified.
func DefaultConfig() Config {
	return Config{
		Blending:        0.5,
		Conetracing:     true,
		EnvMapIntensity: 1,
		Metalness:       0,
		Roughness:       1,
		Resolution:      1,
	}
}

// Validate returns all problems found in cfg joined.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Blending < 0 || math32.IsNaN(cfg.Blending) {
		errs = append(errs, errors.New("negative or NaN blending"))
	}
	if !(cfg.Resolution > 0) || math32.IsInf(cfg.Resolution, 0) {
		errs = append(errs, fmt.Errorf("resolution must be positive and finite, got %g", cfg.Resolution))
	}
	if cfg.Roughness < 0 || cfg.Roughness > 1 {
		errs = append(errs, fmt.Errorf("roughness %g out of [0,1]", cfg.Roughness))
	}
	if cfg.Metalness < 0 || cfg.Metalness > 1 {
		errs = append(errs, fmt.Errorf("metalness %g out of [0,1]", cfg.Metalness))
	}
	if cfg.EnvMapIntensity < 0 {
		errs = append(errs, errors.New("negative environment map intensity"))
	}
	if cfg.EnvMap != nil {
		_, h := cfg.EnvMap.Size()
		if h < 4 {
			errs = append(errs, fmt.Errorf("environment map height %d too small for cube UV layout", h))
		}
	}
	return errors.Join(errs...)
}

// defines returns the compile-time defines cfg requires for a raymarcher
// holding maxEntities entities.
func (cfg *Config) defines(maxEntities int) glbuild.Defines {
	defs := glbuild.DefaultDefines()
	defs.MaxEntities = maxEntities
	defs.MaxMaterials = 1 + len(cfg.Materials)
	defs.Conetracing = cfg.Conetracing
	if cfg.EnvMap != nil {
		_, h := cfg.EnvMap.Size()
		defs.SetEnvMapSize(h)
	}
	return defs
}

// appendMaterials appends the material table uploaded to the raymarcher to dst.
func (cfg *Config) appendMaterials(dst []GPUMaterial) []GPUMaterial {
	dst = append(dst, GPUMaterial{
		Color:  [3]float32{1, 1, 1},
		Params: [4]float32{cfg.Roughness, cfg.Metalness, cfg.EnvMapIntensity, 0},
	})
	for _, m := range cfg.Materials {
		dst = append(dst, GPUMaterial{Color: vec3(m.Color), Params: m.Params})
	}
	return dst
}

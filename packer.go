package raymarch

import "fmt"

// packer owns the CPU copy of the raymarcher's entity array. Its capacity only grows.
type packer struct {
	entities []GPUEntity
}

// capacity is the length of the entity array the live raymarcher was compiled with.
func (p *packer) capacity() int { return len(p.entities) }

// checkCapacity reports whether n entities require growing the array and
// returns an error if n is beyond the device limit.
func (p *packer) checkCapacity(n, limit int) (grow bool, err error) {
	if n <= len(p.entities) {
		return false, nil
	}
	if n > limit {
		return false, fmt.Errorf("%w: %d entities in layer, device limit is %d", ErrCapacityExceeded, n, limit)
	}
	return true, nil
}

// grow reallocates the array to exactly n entries. Previous contents are discarded
// since every pass rewrites the region it uses.
func (p *packer) grow(n int) {
	if n <= len(p.entities) {
		panic("packer grow must increase capacity")
	}
	p.entities = make([]GPUEntity, n)
}

// pack writes entities to the front of the array and returns the whole array.
// Entries past len(entities) keep whatever a previous pass wrote there.
// Material indices outside [0,numMaterials) are replaced by 0.
func (p *packer) pack(entities []Entity, numMaterials int) []GPUEntity {
	if len(entities) > len(p.entities) {
		panic("packer capacity not reserved for layer")
	}
	for i := range entities {
		e := &entities[i]
		mat := e.Material
		if mat < 0 || int(mat) >= numMaterials {
			mat = 0
		}
		p.entities[i] = GPUEntity{
			Color:     vec3(e.Color),
			Operation: int32(e.Operation),
			Position:  vec3(e.Position),
			Shape:     int32(e.Shape),
			Rotation:  e.Rotation.Array(),
			Scale:     vec3(e.Scale),
			Material:  mat,
		}
	}
	return p.entities
}

package raymarch

import (
	"cmp"
	"slices"

	"github.com/soypat/geometry/ms3"
)

// Layer is a group of entities raymarched together in one pass. Layers are
// recomputed from the scene graph every frame.
type Layer struct {
	// Node is the scene graph node that defines the layer.
	Node Node
	// Entities in combination order: each entity is combined with the result of
	// the ones before it using its Operation.
	Entities []Entity
	// Bounds is the union of all entity bounding spheres. Empty for layers without entities.
	Bounds Sphere
	// Distance from the bounds center to the camera.
	Distance float32
}

func (l *Layer) reset() {
	l.Node = nil
	l.Entities = l.Entities[:0]
	l.Bounds = EmptySphere()
	l.Distance = 0
}

// computeBounds sets the layer bounds to the union of its entities' world bounds.
func (l *Layer) computeBounds() {
	bounds := EmptySphere()
	for i := range l.Entities {
		bounds = bounds.Union(l.Entities[i].Bounds())
	}
	l.Bounds = bounds
}

// cull computes bounds for every layer and appends the layers that intersect
// the frustum to dst, with their camera distance set.
func cull(dst []*Layer, layers []Layer, frustum *Frustum, camPos ms3.Vec) []*Layer {
	for i := range layers {
		l := &layers[i]
		l.computeBounds()
		if !frustum.IntersectsSphere(l.Bounds) {
			continue // Also discards empty layers.
		}
		l.Distance = ms3.Norm(ms3.Sub(l.Bounds.Center, camPos))
		dst = append(dst, l)
	}
	return dst
}

// sortLayers orders layers by camera distance, farthest first when backToFront is set.
// Layers at equal distance keep their discovery order.
func sortLayers(layers []*Layer, backToFront bool) {
	slices.SortStableFunc(layers, func(a, b *Layer) int {
		if backToFront {
			return cmp.Compare(b.Distance, a.Distance)
		}
		return cmp.Compare(a.Distance, b.Distance)
	})
}

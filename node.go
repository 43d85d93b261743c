package raymarch

import "slices"

// NodeKind tags what a [Node] represents to the scanner.
type NodeKind uint8

const (
	// KindGroup nodes are neither layers nor primitives. Their subtree is still scanned.
	KindGroup NodeKind = iota
	// KindLayer nodes start a new [Layer]. Primitives below belong to the nearest enclosing layer.
	KindLayer
	// KindPrimitive nodes carry an [Entity].
	KindPrimitive
)

// Node is a scene graph node as seen by the compositor. Host scene graphs
// adapt their own node types to this interface; the compositor only reads it.
type Node interface {
	Kind() NodeKind
	// Children returns the node's direct children in order. The compositor does not modify the returned slice.
	Children() []Node
	// Entity returns the world space primitive description of a KindPrimitive node.
	// Other kinds may return the zero Entity.
	Entity() Entity
}

// Group is a ready to use [Node] implementation for hosts without a scene graph of their own.
type Group struct {
	kind     NodeKind
	entity   Entity
	children []Node
}

var _ Node = (*Group)(nil)

// NewGroup returns a plain grouping node.
func NewGroup() *Group { return &Group{kind: KindGroup} }

// NewLayer returns a node whose primitive descendants are raymarched together.
func NewLayer() *Group { return &Group{kind: KindLayer} }

// NewPrimitive returns a primitive node carrying e.
func NewPrimitive(e Entity) *Group { return &Group{kind: KindPrimitive, entity: e} }

func (g *Group) Kind() NodeKind   { return g.kind }
func (g *Group) Children() []Node { return g.children }
func (g *Group) Entity() Entity   { return g.entity }

// SetEntity replaces the primitive description of the node.
func (g *Group) SetEntity(e Entity) { g.entity = e }

// Add appends children to the node.
func (g *Group) Add(children ...Node) {
	for _, c := range children {
		if c == nil {
			panic("nil Node argument to Add")
		}
	}
	g.children = append(g.children, children...)
}

// Remove removes the first occurrence of child. It reports whether child was found.
func (g *Group) Remove(child Node) bool {
	i := slices.Index(g.children, child)
	if i < 0 {
		return false
	}
	g.children = slices.Delete(g.children, i, i+1)
	return true
}

type scanItem struct {
	node  Node
	layer int // Index of nearest enclosing layer, -1 if none.
}

// scanner discovers layers and their entities. Its buffers are reused between
// frames but it keeps no layer membership across calls.
type scanner struct {
	queue   []scanItem
	visited map[Node]struct{}
	layers  []Layer
}

// scan walks the graph under root breadth-first and returns the layers found
// in discovery order. A node reachable through several paths is visited once,
// on the first path found, so shared subgraphs and cycles are safe.
// The returned slice is valid until the next call.
func (sc *scanner) scan(root Node) []Layer {
	for i := range sc.layers {
		sc.layers[i].reset()
	}
	sc.layers = sc.layers[:0]
	if root == nil {
		return sc.layers
	}
	if sc.visited == nil {
		sc.visited = make(map[Node]struct{})
	}
	sc.visited[root] = struct{}{}
	sc.queue = append(sc.queue[:0], scanItem{node: root, layer: -1})
	for head := 0; head < len(sc.queue); head++ {
		item := sc.queue[head]
		layer := item.layer
		switch item.node.Kind() {
		case KindLayer:
			layer = len(sc.layers)
			sc.layers = slices.Grow(sc.layers, 1)[:layer+1]
			sc.layers[layer].Node = item.node
		case KindPrimitive:
			if layer >= 0 {
				l := &sc.layers[layer]
				l.Entities = append(l.Entities, item.node.Entity())
			}
		}
		for _, child := range item.node.Children() {
			if _, seen := sc.visited[child]; seen {
				continue
			}
			sc.visited[child] = struct{}{}
			sc.queue = append(sc.queue, scanItem{node: child, layer: layer})
		}
	}
	// Do not retain host nodes between frames.
	clear(sc.queue)
	clear(sc.visited)
	sc.queue = sc.queue[:0]
	return sc.layers
}

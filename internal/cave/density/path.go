package density

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/path"
)

// Field is a scalar density field. Implementations must be pure functions of
// position; sc is caller-owned scratch space and may be nil.
type Field interface {
	Sample(p r3.Vec, sc *Scratch) float64
}

// FieldFunc adapts a plain function to Field.
type FieldFunc func(p r3.Vec) float64

// Sample calls f(p).
func (f FieldFunc) Sample(p r3.Vec, _ *Scratch) float64 { return f(p) }

// Scratch holds per-worker buffers reused across Sample calls. A Scratch must
// not be used by two goroutines at once.
type Scratch struct {
	nodes []int
	edges []int
}

// NewScratch returns scratch buffers sized for typical queries.
func NewScratch() *Scratch {
	return &Scratch{nodes: make([]int, 0, 64), edges: make([]int, 0, 64)}
}

// PathDensity blends the contributions of every edge near a sample point.
type PathDensity struct {
	path        *path.Path
	edge        *EdgeDensity
	maxSq       float64
	queryRadius float64
}

// NewPathDensity returns the density field of p. p must not be modified
// afterwards.
func NewPathDensity(p *path.Path, edge *EdgeDensity) *PathDensity {
	r := edge.MaxInfluenceRadius()
	return &PathDensity{
		path:  p,
		edge:  edge,
		maxSq: r * r,
		// An edge within r of the sample has an endpoint within r + len/2.
		queryRadius: r + p.MaxEdgeLength()/2,
	}
}

// Density samples the field with freshly allocated scratch buffers.
func (d *PathDensity) Density(p r3.Vec) float64 {
	return d.Sample(p, nil)
}

// Sample returns the density at p in [Open, Solid]. Points farther than the
// max influence radius from every edge return exactly Solid.
func (d *PathDensity) Sample(p r3.Vec, sc *Scratch) float64 {
	if sc == nil {
		sc = NewScratch()
	}

	sc.nodes = d.path.AppendNodesWithin(sc.nodes[:0], p, d.queryRadius)
	if len(sc.nodes) == 0 {
		return Solid
	}

	// Every edge is keyed by its child node so shared edges are counted once.
	sc.edges = sc.edges[:0]
	for _, n := range sc.nodes {
		if d.path.Parent(n) != path.NoParent {
			sc.edges = append(sc.edges, n)
		}
		sc.edges = append(sc.edges, d.path.Children(n)...)
	}
	slices.Sort(sc.edges)
	sc.edges = slices.Compact(sc.edges)

	var sumWV, sumW float64
	for _, child := range sc.edges {
		a := d.path.Position(d.path.Parent(child))
		b := d.path.Position(child)
		closest, distSq := path.ClosestPointOnSegment(p, a, b)
		if distSq > d.maxSq {
			continue
		}

		// (1 - d²/R²)^16 so only the nearest edges shape the surface.
		w := 1 - distSq/d.maxSq
		w *= w
		w *= w
		w *= w
		w *= w

		sumWV += w * d.edge.Apply(p, closest, distSq)
		sumW += w
	}

	if sumW <= 0 {
		return Solid
	}
	return clamp01(1 + sumWV/sumW)
}

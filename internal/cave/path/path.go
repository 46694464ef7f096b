// Package path holds the branching cave path: an append-only tree of
// waypoints stored in a contiguous arena with a uniform grid index.
package path

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/coord"
)

// NoParent marks the root node.
const NoParent = -1

// Node is a single waypoint. Parent and Children are indices into the arena.
type Node struct {
	Position r3.Vec
	Parent   int
	Children []int
}

// Edge is the segment between a node and one of its children. Every non-root
// node owns exactly one edge, so Child alone identifies it.
type Edge struct {
	Parent, Child int
}

// Path is a tree of nodes. Nodes are only ever appended; once generation is
// complete the path is read-only and safe for concurrent queries.
type Path struct {
	nodes    []Node
	grid     map[uint64][]int
	cellSize float64
	maxEdge  float64
}

// New creates an empty path whose spatial grid uses cubic cells of cellSize.
func New(cellSize float64) *Path {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		panic(fmt.Sprintf("path: invalid grid cell size %v", cellSize))
	}
	return &Path{
		grid:     make(map[uint64][]int),
		cellSize: cellSize,
	}
}

// Append adds a node at pos as a child of parent and returns its index.
// The first node must be the root (parent == NoParent); every later node must
// name an existing parent. Anything else is a construction bug and panics.
func (p *Path) Append(pos r3.Vec, parent int) int {
	idx := len(p.nodes)
	switch {
	case parent == NoParent && idx != 0:
		panic(fmt.Sprintf("path: node %d has no parent but root already exists", idx))
	case parent != NoParent && (parent < 0 || parent >= idx):
		panic(fmt.Sprintf("path: node %d has dangling parent %d (len %d)", idx, parent, idx))
	}

	p.nodes = append(p.nodes, Node{Position: pos, Parent: parent})
	if parent != NoParent {
		p.nodes[parent].Children = append(p.nodes[parent].Children, idx)
		if l := r3.Norm(r3.Sub(pos, p.nodes[parent].Position)); l > p.maxEdge {
			p.maxEdge = l
		}
	}

	key := coord.CellOf(pos, p.cellSize).Key()
	p.grid[key] = append(p.grid[key], idx)
	return idx
}

// Len returns the number of nodes.
func (p *Path) Len() int { return len(p.nodes) }

// Node returns node i.
func (p *Path) Node(i int) Node { return p.nodes[i] }

// Position returns the position of node i.
func (p *Path) Position(i int) r3.Vec { return p.nodes[i].Position }

// Parent returns the parent index of node i, or NoParent for the root.
func (p *Path) Parent(i int) int { return p.nodes[i].Parent }

// Children returns the child indices of node i in insertion order.
// The returned slice must not be modified.
func (p *Path) Children(i int) []int { return p.nodes[i].Children }

// Root returns the position of the first node. It panics on an empty path.
func (p *Path) Root() r3.Vec { return p.nodes[0].Position }

// CellSize returns the spatial grid cell size.
func (p *Path) CellSize() float64 { return p.cellSize }

// MaxEdgeLength returns the length of the longest parent→child segment.
func (p *Path) MaxEdgeLength() float64 { return p.maxEdge }

// Positions returns every node position in generation order.
func (p *Path) Positions() []r3.Vec {
	out := make([]r3.Vec, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = n.Position
	}
	return out
}

// Edges returns every parent→child edge ordered by child index.
func (p *Path) Edges() []Edge {
	if len(p.nodes) < 2 {
		return nil
	}
	out := make([]Edge, 0, len(p.nodes)-1)
	for i := 1; i < len(p.nodes); i++ {
		out = append(out, Edge{Parent: p.nodes[i].Parent, Child: i})
	}
	return out
}

// IncidentEdges appends every edge touching node i to dst: the parent edge
// if there is one, then one edge per child.
func (p *Path) IncidentEdges(dst []Edge, i int) []Edge {
	n := &p.nodes[i]
	if n.Parent != NoParent {
		dst = append(dst, Edge{Parent: n.Parent, Child: i})
	}
	for _, c := range n.Children {
		dst = append(dst, Edge{Parent: i, Child: c})
	}
	return dst
}

// Segment returns the endpoints of e.
func (p *Path) Segment(e Edge) (a, b r3.Vec) {
	return p.nodes[e.Parent].Position, p.nodes[e.Child].Position
}

// NodesWithin returns the indices of all nodes within radius of pos.
func (p *Path) NodesWithin(pos r3.Vec, radius float64) []int {
	return p.AppendNodesWithin(nil, pos, radius)
}

// AppendNodesWithin appends the indices of all nodes within radius of pos to
// dst. Only grid cells within ceil(radius/cellSize) of the query cell are
// visited. Indices are appended in grid-visit order, not sorted.
func (p *Path) AppendNodesWithin(dst []int, pos r3.Vec, radius float64) []int {
	if radius < 0 || len(p.nodes) == 0 {
		return dst
	}
	r := int(math.Ceil(radius / p.cellSize))
	center := coord.CellOf(pos, p.cellSize)
	rSq := radius * radius

	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				bucket, ok := p.grid[coord.Pack(center.X+dx, center.Y+dy, center.Z+dz)]
				if !ok {
					continue
				}
				for _, idx := range bucket {
					if r3.Norm2(r3.Sub(p.nodes[idx].Position, pos)) <= rSq {
						dst = append(dst, idx)
					}
				}
			}
		}
	}
	return dst
}

// ClosestPointOnSegment returns the point on segment ab nearest to pos and
// the squared distance to it. A degenerate segment collapses to a.
func ClosestPointOnSegment(pos, a, b r3.Vec) (r3.Vec, float64) {
	ab := r3.Sub(b, a)
	lenSq := r3.Norm2(ab)
	if lenSq < 1e-12 {
		return a, r3.Norm2(r3.Sub(pos, a))
	}
	t := r3.Dot(r3.Sub(pos, a), ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	pt := r3.Add(a, r3.Scale(t, ab))
	return pt, r3.Norm2(r3.Sub(pos, pt))
}

// ClosestPointOnPath returns the point on the path nearest to pos, the child
// index of the edge it lies on (0 if the path is a single node) and the
// squared distance. The search widens over the grid until a hit is provably
// nearest. It panics on an empty path.
func (p *Path) ClosestPointOnPath(pos r3.Vec) (r3.Vec, int, float64) {
	if len(p.nodes) == 1 {
		return p.nodes[0].Position, 0, r3.Norm2(r3.Sub(pos, p.nodes[0].Position))
	}

	var (
		nodes []int
		edges []Edge
	)
	for radius := p.cellSize; ; radius *= 2 {
		nodes = p.AppendNodesWithin(nodes[:0], pos, radius+p.maxEdge)
		if len(nodes) == len(p.nodes) {
			return p.closestAmongAll(pos)
		}

		edges = edges[:0]
		for _, n := range nodes {
			edges = p.IncidentEdges(edges, n)
		}
		best, bestChild, bestSq := r3.Vec{}, -1, math.Inf(1)
		for _, e := range edges {
			a, b := p.Segment(e)
			pt, dSq := ClosestPointOnSegment(pos, a, b)
			if dSq < bestSq {
				best, bestChild, bestSq = pt, e.Child, dSq
			}
		}
		// Any edge closer than radius has an endpoint within radius+maxEdge.
		if bestChild >= 0 && bestSq <= radius*radius {
			return best, bestChild, bestSq
		}
	}
}

func (p *Path) closestAmongAll(pos r3.Vec) (r3.Vec, int, float64) {
	best, bestChild, bestSq := r3.Vec{}, -1, math.Inf(1)
	for i := 1; i < len(p.nodes); i++ {
		pt, dSq := ClosestPointOnSegment(pos, p.nodes[p.nodes[i].Parent].Position, p.nodes[i].Position)
		if dSq < bestSq {
			best, bestChild, bestSq = pt, i, dSq
		}
	}
	return best, bestChild, bestSq
}

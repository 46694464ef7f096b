package mesh

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/sample"
)

// edgeCorners lists each cube edge's endpoints, always ordered from the
// lower lattice coordinate to the higher one along edgeAxis.
var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {3, 2}, {0, 3},
	{4, 5}, {5, 6}, {7, 6}, {4, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// edgeAxis is the lattice axis (0=x, 1=y, 2=z) each edge runs along.
var edgeAxis = [12]int{0, 1, 0, 1, 0, 1, 0, 1, 2, 2, 2, 2}

// cubeFaces lists each face's corners in cyclic order.
var cubeFaces = [6][4]int{
	{0, 1, 2, 3},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{3, 2, 6, 7},
	{0, 3, 7, 4},
	{1, 2, 6, 5},
}

// EdgeTable maps a corner case to the bitmask of edges the surface crosses.
// Bit i of a case is set when corner i is solid (density >= surface level).
var EdgeTable [256]uint16

// TriTable maps a corner case to triangle edge indices, three per triangle.
// Triangles wind counter-clockwise when seen from the open side.
var TriTable [256][]int8

func init() {
	for c := 0; c < 256; c++ {
		EdgeTable[c], TriTable[c] = buildCase(uint8(c))
	}
}

func edgeBetween(a, b int) int {
	for e, ec := range edgeCorners {
		if (ec[0] == a && ec[1] == b) || (ec[0] == b && ec[1] == a) {
			return e
		}
	}
	panic("mesh: corners do not share an edge")
}

func cornerPos(c int) r3.Vec {
	o := sample.CornerOffsets[c]
	return r3.Vec{X: float64(o[0]), Y: float64(o[1]), Z: float64(o[2])}
}

func edgeMid(e int) r3.Vec {
	return r3.Scale(0.5, r3.Add(cornerPos(edgeCorners[e][0]), cornerPos(edgeCorners[e][1])))
}

// buildCase chains the iso-line segments on each cube face into closed loops
// and fan-triangulates them. On a face with two diagonal solid corners the
// segments cut off each solid corner, so neighboring cubes agree on every
// shared face.
func buildCase(c uint8) (uint16, []int8) {
	solid := func(corner int) bool { return c&(1<<corner) != 0 }

	var (
		mask uint16
		nbr  [12][]int
	)
	link := func(a, b int) {
		nbr[a] = append(nbr[a], b)
		nbr[b] = append(nbr[b], a)
	}

	for _, f := range cubeFaces {
		var edges [4]int
		var crossing []int
		for i := 0; i < 4; i++ {
			a, b := f[i], f[(i+1)%4]
			edges[i] = edgeBetween(a, b)
			if solid(a) != solid(b) {
				crossing = append(crossing, edges[i])
				mask |= 1 << edges[i]
			}
		}
		switch len(crossing) {
		case 2:
			link(crossing[0], crossing[1])
		case 4:
			for i := 0; i < 4; i++ {
				if solid(f[i]) {
					link(edges[(i+3)%4], edges[i])
				}
			}
		}
	}

	var (
		tris    []int8
		visited [12]bool
	)
	for start := 0; start < 12; start++ {
		if visited[start] || len(nbr[start]) == 0 {
			continue
		}
		loop := []int{start}
		visited[start] = true
		prev, cur := start, nbr[start][0]
		for cur != start {
			loop = append(loop, cur)
			visited[cur] = true
			next := nbr[cur][0]
			if next == prev {
				next = nbr[cur][1]
			}
			prev, cur = cur, next
		}

		if r3.Dot(loopNormal(loop), openDirection(loop, solid)) < 0 {
			for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
				loop[i], loop[j] = loop[j], loop[i]
			}
		}
		for i := 1; i+1 < len(loop); i++ {
			tris = append(tris, int8(loop[0]), int8(loop[i]), int8(loop[i+1]))
		}
	}
	return mask, tris
}

// loopNormal is the Newell normal of the loop through the edge midpoints.
func loopNormal(loop []int) r3.Vec {
	var n r3.Vec
	for i := range loop {
		cur, next := edgeMid(loop[i]), edgeMid(loop[(i+1)%len(loop)])
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// openDirection sums the solid→open direction of every edge in the loop.
func openDirection(loop []int, solid func(int) bool) r3.Vec {
	var d r3.Vec
	for _, e := range loop {
		a, b := cornerPos(edgeCorners[e][0]), cornerPos(edgeCorners[e][1])
		if solid(edgeCorners[e][0]) {
			d = r3.Add(d, r3.Sub(b, a))
		} else {
			d = r3.Add(d, r3.Sub(a, b))
		}
	}
	return d
}

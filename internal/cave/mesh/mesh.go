package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/coord"
	"github.com/OCharnyshevich/cavegen/internal/cave/density"
	"github.com/OCharnyshevich/cavegen/internal/cave/sample"
)

// NormalMode selects how vertex normals are computed.
type NormalMode int

const (
	// NormalGradient uses the negated density gradient at each vertex.
	NormalGradient NormalMode = iota
	// NormalFace averages the area-weighted normals of adjacent triangles.
	NormalFace
)

// ParseNormalMode parses "gradient" or "face".
func ParseNormalMode(s string) (NormalMode, error) {
	switch s {
	case "gradient", "":
		return NormalGradient, nil
	case "face":
		return NormalFace, nil
	default:
		return 0, fmt.Errorf("unknown normal mode %q", s)
	}
}

func (m NormalMode) String() string {
	if m == NormalFace {
		return "face"
	}
	return "gradient"
}

// Options configures chunk meshing.
type Options struct {
	SurfaceLevel float64
	Normals      NormalMode
	Workers      int
}

// Mesh is the triangle mesh of one chunk in world coordinates. Indices are
// local to the chunk and 0-based; Normals parallels Positions.
type Mesh struct {
	Coord     coord.Cell
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool { return len(m.Indices) == 0 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// up is the fallback normal for vertices whose normal cannot be normalized.
var up = r3.Vec{Y: 1}

// mesher holds one worker's reusable buffers. It must not be shared between
// goroutines.
type mesher struct {
	space   *sample.Space
	opts    Options
	scratch *density.Scratch

	vertIdx []int32  // lattice edge -> vertex index, -1 when unset
	pos     []r3.Vec // float64 positions of the current chunk
	faceN   []r3.Vec // accumulated face normals of the current chunk
}

func newMesher(space *sample.Space, opts Options) *mesher {
	n := space.ChunkSize() + 1
	return &mesher{
		space:   space,
		opts:    opts,
		scratch: density.NewScratch(),
		vertIdx: make([]int32, n*n*n*3),
	}
}

// MeshChunk triangulates every cell of ch. It allocates its own buffers; the
// Generator reuses them per worker instead.
func MeshChunk(space *sample.Space, ch *sample.Chunk, opts Options) *Mesh {
	return newMesher(space, opts).mesh(ch)
}

func (m *mesher) mesh(ch *sample.Chunk) *Mesh {
	for i := range m.vertIdx {
		m.vertIdx[i] = -1
	}
	m.pos = m.pos[:0]
	m.faceN = m.faceN[:0]

	out := &Mesh{Coord: ch.Coord}
	size := ch.Size()
	iso := m.opts.SurfaceLevel

	for z := 0; z < size; z++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				d := ch.Corners(x, y, z)
				idx := caseIndex(&d, iso)
				mask := EdgeTable[idx]
				if mask == 0 {
					continue
				}

				var local [12]uint32
				for e := 0; e < 12; e++ {
					if mask&(1<<e) != 0 {
						local[e] = m.vertex(ch, x, y, z, e, &d)
					}
				}

				tris := TriTable[idx]
				for i := 0; i+2 < len(tris); i += 3 {
					a, b, c := local[tris[i]], local[tris[i+1]], local[tris[i+2]]
					out.Indices = append(out.Indices, a, b, c)

					// Unnormalized cross product weights by triangle area.
					n := r3.Cross(r3.Sub(m.pos[b], m.pos[a]), r3.Sub(m.pos[c], m.pos[a]))
					m.faceN[a] = r3.Add(m.faceN[a], n)
					m.faceN[b] = r3.Add(m.faceN[b], n)
					m.faceN[c] = r3.Add(m.faceN[c], n)
				}
			}
		}
	}

	out.Positions = make([]mgl32.Vec3, len(m.pos))
	out.Normals = make([]mgl32.Vec3, len(m.pos))
	for i, p := range m.pos {
		out.Positions[i] = vec32(p)
		out.Normals[i] = vec32(m.normal(p, m.faceN[i]))
	}
	return out
}

// vertex returns the index of the vertex on edge e of cell (x, y, z),
// creating it on first use. Vertices are welded by lattice edge.
func (m *mesher) vertex(ch *sample.Chunk, x, y, z, e int, d *[8]float64) uint32 {
	n := ch.Size() + 1
	a, b := edgeCorners[e][0], edgeCorners[e][1]
	oa, ob := sample.CornerOffsets[a], sample.CornerOffsets[b]
	lx, ly, lz := x+oa[0], y+oa[1], z+oa[2]

	key := (lx+ly*n+lz*n*n)*3 + edgeAxis[e]
	if idx := m.vertIdx[key]; idx >= 0 {
		return uint32(idx)
	}

	gx, gy, gz := ch.Origin()
	pa := m.space.LatticePos(gx+lx, gy+ly, gz+lz)
	pb := m.space.LatticePos(gx+x+ob[0], gy+y+ob[1], gz+z+ob[2])
	p := interpolate(pa, pb, d[a], d[b], m.opts.SurfaceLevel)

	idx := len(m.pos)
	m.pos = append(m.pos, p)
	m.faceN = append(m.faceN, r3.Vec{})
	m.vertIdx[key] = int32(idx)
	return uint32(idx)
}

// normal returns the unit normal at p, pointing into open space.
func (m *mesher) normal(p, faceSum r3.Vec) r3.Vec {
	if m.opts.Normals == NormalGradient {
		if g, ok := m.gradientNormal(p); ok {
			return g
		}
	}
	if l := r3.Norm(faceSum); l > 1e-12 {
		return r3.Scale(1/l, faceSum)
	}
	return up
}

// gradientNormal is the negated central-difference density gradient. Density
// rises toward rock, so the negation points into the cave.
func (m *mesher) gradientNormal(p r3.Vec) (r3.Vec, bool) {
	h := m.space.Unit() * 0.5
	f := m.space.Field()
	at := func(dx, dy, dz float64) float64 {
		return f.Sample(r3.Vec{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}, m.scratch)
	}
	g := r3.Vec{
		X: at(-h, 0, 0) - at(h, 0, 0),
		Y: at(0, -h, 0) - at(0, h, 0),
		Z: at(0, 0, -h) - at(0, 0, h),
	}
	l := r3.Norm(g)
	if l < 1e-12 || math.IsNaN(l) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/l, g), true
}

func vec32(v r3.Vec) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

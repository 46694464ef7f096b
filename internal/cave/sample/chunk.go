package sample

import "github.com/OCharnyshevich/cavegen/internal/cave/coord"

// CornerOffsets lists the eight corners of a lattice cell in Marching Cubes
// order: the z=0 face counter-clockwise from the origin, then the z=1 face.
var CornerOffsets = [8][3]int{
	{0, 0, 0},
	{1, 0, 0},
	{1, 1, 0},
	{0, 1, 0},
	{0, 0, 1},
	{1, 0, 1},
	{1, 1, 1},
	{0, 1, 1},
}

// Chunk is the sampled lattice of one chunk: (size+1)³ densities, the last
// layer on each axis shared with the next chunk. A Chunk is read-only once
// returned by Space.Chunk.
type Chunk struct {
	Coord coord.Cell

	size    int
	samples []float64 // x + y*(size+1) + z*(size+1)²
}

// Size returns the number of cells along each edge.
func (c *Chunk) Size() int { return c.size }

// At returns the density at local lattice point (x, y, z), each in [0, size].
func (c *Chunk) At(x, y, z int) float64 {
	n := c.size + 1
	return c.samples[x+y*n+z*n*n]
}

// Origin returns the global lattice index of local point (0, 0, 0).
func (c *Chunk) Origin() (gx, gy, gz int) {
	return c.Coord.X * c.size, c.Coord.Y * c.size, c.Coord.Z * c.size
}

// Corners returns the eight corner densities of cell (x, y, z), each in
// [0, size), ordered as CornerOffsets.
func (c *Chunk) Corners(x, y, z int) [8]float64 {
	var d [8]float64
	for i, o := range CornerOffsets {
		d[i] = c.At(x+o[0], y+o[1], z+o[2])
	}
	return d
}

// Classify reports whether the chunk holds any open sample (below iso) and
// any solid sample (at or above iso).
func (c *Chunk) Classify(iso float64) (hasOpen, hasSolid bool) {
	for _, v := range c.samples {
		if v < iso {
			hasOpen = true
		} else {
			hasSolid = true
		}
		if hasOpen && hasSolid {
			return
		}
	}
	return
}

// FaceOpen reports whether any sample on face f lies below iso. Adjacent
// chunks see the same samples on their shared face.
func (c *Chunk) FaceOpen(f coord.Face, iso float64) bool {
	n := c.size
	for a := 0; a <= n; a++ {
		for b := 0; b <= n; b++ {
			var v float64
			switch f {
			case coord.NegX:
				v = c.At(0, a, b)
			case coord.PosX:
				v = c.At(n, a, b)
			case coord.NegY:
				v = c.At(a, 0, b)
			case coord.PosY:
				v = c.At(a, n, b)
			case coord.NegZ:
				v = c.At(a, b, 0)
			default:
				v = c.At(a, b, n)
			}
			if v < iso {
				return true
			}
		}
	}
	return false
}

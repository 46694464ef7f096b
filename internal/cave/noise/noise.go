// Package noise provides seeded 3D simplex noise used to roughen cave walls.
package noise

import "gonum.org/v1/gonum/spatial/r3"

const (
	f3 = 1.0 / 3.0
	g3 = 1.0 / 6.0
)

// grad3 are the 12 edge-midpoint gradients of a cube.
var grad3 = [12]r3.Vec{
	{X: 1, Y: 1, Z: 0},
	{X: -1, Y: 1, Z: 0},
	{X: 1, Y: -1, Z: 0},
	{X: -1, Y: -1, Z: 0},
	{X: 1, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 1},
	{X: 1, Y: 0, Z: -1},
	{X: -1, Y: 0, Z: -1},
	{X: 0, Y: 1, Z: 1},
	{X: 0, Y: -1, Z: 1},
	{X: 0, Y: 1, Z: -1},
	{X: 0, Y: -1, Z: -1},
}

// Generator produces deterministic simplex noise from a seed.
// It is immutable after construction and safe for concurrent use.
type Generator struct {
	perm [512]int
	seed int64
}

// NewGenerator creates a Generator with a seeded permutation table.
func NewGenerator(seed int64) *Generator {
	g := &Generator{seed: seed}
	g.perm = Permutation(seed)
	return g
}

// Seed returns the seed the permutation table was built from.
func (g *Generator) Seed() int64 { return g.seed }

// Permutation builds the doubled permutation table for seed. Identical seeds
// always produce identical tables.
func Permutation(seed int64) [512]int {
	var p [256]int
	for i := range p {
		p[i] = i
	}

	// Fisher-Yates shuffle driven by a 64-bit LCG.
	s := seed
	for i := 255; i > 0; i-- {
		s = s*6364136223846793005 + 1442695040888963407
		j := int((s>>33)&0x7FFFFFFF) % (i + 1)
		p[i], p[j] = p[j], p[i]
	}

	var perm [512]int
	for i := range perm {
		perm[i] = p[i&255]
	}
	return perm
}

// Evaluate returns Noise3D at p.
func (g *Generator) Evaluate(p r3.Vec) float64 {
	return g.Noise3D(p.X, p.Y, p.Z)
}

// Noise3D returns 3D simplex noise in [-1, 1].
func (g *Generator) Noise3D(x, y, z float64) float64 {
	// Skew into the simplex lattice.
	s := (x + y + z) * f3
	i := fastFloor(x + s)
	j := fastFloor(y + s)
	k := fastFloor(z + s)

	t := float64(i+j+k) * g3
	x0 := x - (float64(i) - t)
	y0 := y - (float64(j) - t)
	z0 := z - (float64(k) - t)

	var i1, j1, k1, i2, j2, k2 int
	if x0 >= y0 {
		switch {
		case y0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 1, 0
		case x0 >= z0:
			i1, j1, k1, i2, j2, k2 = 1, 0, 0, 1, 0, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 1, 0, 1
		}
	} else {
		switch {
		case y0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 0, 1, 0, 1, 1
		case x0 < z0:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 0, 1, 1
		default:
			i1, j1, k1, i2, j2, k2 = 0, 1, 0, 1, 1, 0
		}
	}

	ii := i & 255
	jj := j & 255
	kk := k & 255
	p := &g.perm
	gi0 := p[ii+p[jj+p[kk]]] % 12
	gi1 := p[ii+i1+p[jj+j1+p[kk+k1]]] % 12
	gi2 := p[ii+i2+p[jj+j2+p[kk+k2]]] % 12
	gi3 := p[ii+1+p[jj+1+p[kk+1]]] % 12

	n := corner(gi0, x0, y0, z0) +
		corner(gi1, x0-float64(i1)+g3, y0-float64(j1)+g3, z0-float64(k1)+g3) +
		corner(gi2, x0-float64(i2)+2*g3, y0-float64(j2)+2*g3, z0-float64(k2)+2*g3) +
		corner(gi3, x0-1+3*g3, y0-1+3*g3, z0-1+3*g3)

	return 32.0 * n
}

// OctaveNoise3D layers octaves of Noise3D. The result stays in [-1, 1].
func (g *Generator) OctaveNoise3D(x, y, z float64, octaves int, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	var total, maxVal float64
	frequency, amplitude := 1.0, 1.0

	for range octaves {
		total += g.Noise3D(x*frequency, y*frequency, z*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2.0
	}
	return total / maxVal
}

// corner is the contribution of one simplex corner: (0.6 - r²)⁴ · (g·d).
func corner(gi int, x, y, z float64) float64 {
	t := 0.6 - x*x - y*y - z*z
	if t < 0 {
		return 0
	}
	t *= t
	gr := grad3[gi]
	return t * t * (gr.X*x + gr.Y*y + gr.Z*z)
}

func fastFloor(x float64) int {
	xi := int(x)
	if x < float64(xi) {
		return xi - 1
	}
	return xi
}

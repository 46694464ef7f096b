// Package density turns distance-to-path into a bounded scalar field.
//
// Convention: PathDensity yields values in [Open, Solid] = [0, 1]. A value at
// or above the surface level is rock; below it is open cave.
package density

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/noise"
)

// Per-edge contributions are openness deltas folded into [Open, Solid] by
// PathDensity as clamp(1 + weighted average).
const (
	EdgeOpen  = -1.0
	EdgeSolid = 0.0

	Open  = 0.0
	Solid = 1.0
)

const (
	// zeroDistSq treats samples this close to an edge as lying on it.
	zeroDistSq = 1e-12

	floorBias      = 0.25
	floorSteepness = 2.5
	persistence    = 0.5

	// Fraction of the influence radius where the fade starts when the cave
	// radius leaves no room for one.
	degenerateFadeStart = 0.75
)

// EdgeParams configures an EdgeDensity.
type EdgeParams struct {
	CaveRadius         float64
	MaxInfluenceRadius float64
	FloorFlatness      float64
	NoiseScale         float64
	NoiseOctaves       int
	NoiseFactor        float64
}

// EdgeDensity computes the contribution of a single path edge. It holds no
// mutable state and is safe for concurrent use.
type EdgeDensity struct {
	params    EdgeParams
	maxSq     float64
	fadeStart float64
	fadeSpan  float64
	noise     *noise.Generator
}

// NewEdgeDensity returns an EdgeDensity overlaying noise from ng. A nil ng
// disables the noise overlay.
func NewEdgeDensity(params EdgeParams, ng *noise.Generator) *EdgeDensity {
	if params.NoiseOctaves < 1 {
		params.NoiseOctaves = 1
	}
	// The fade to solid must end at the influence radius even when the cave
	// radius reaches it.
	fadeStart := params.CaveRadius
	if fadeStart >= params.MaxInfluenceRadius {
		fadeStart = params.MaxInfluenceRadius * degenerateFadeStart
	}
	return &EdgeDensity{
		params:    params,
		maxSq:     params.MaxInfluenceRadius * params.MaxInfluenceRadius,
		fadeStart: fadeStart,
		fadeSpan:  params.MaxInfluenceRadius - fadeStart,
		noise:     ng,
	}
}

// MaxInfluenceRadius returns the distance beyond which Apply is EdgeSolid.
func (e *EdgeDensity) MaxInfluenceRadius() float64 { return e.params.MaxInfluenceRadius }

// Range returns the bounds of every value Apply can return.
func (e *EdgeDensity) Range() (lo, hi float64) {
	nf := math.Abs(e.params.NoiseFactor)
	return EdgeOpen - nf, EdgeSolid + nf
}

// Apply returns the contribution of an edge whose closest point to pos is
// closest, at squared distance distSq.
func (e *EdgeDensity) Apply(pos, closest r3.Vec, distSq float64) float64 {
	if distSq > e.maxSq {
		return EdgeSolid
	}
	if distSq < zeroDistSq {
		return EdgeOpen
	}

	dist := math.Sqrt(distSq)
	alpha := math.Min(1, dist/e.params.CaveRadius)
	value := lerp(EdgeOpen, EdgeSolid, alpha)

	// Below the path the wall blends toward a steeper curve to flatten the floor.
	var floorWeight float64
	if pos.Y < closest.Y {
		toPath := r3.Scale(1/dist, r3.Sub(closest, pos))
		w := clamp01((toPath.Y - floorBias) / (1 - floorBias))
		floorWeight = clamp01(w * w * e.params.FloorFlatness)
		floorValue := lerp(EdgeOpen, EdgeSolid, math.Min(1, alpha*floorSteepness))
		value = lerp(value, floorValue, floorWeight)
	}

	if e.noise != nil && e.params.NoiseFactor != 0 {
		s := e.params.NoiseScale
		n := e.noise.OctaveNoise3D(pos.X*s, pos.Y*s, pos.Z*s, e.params.NoiseOctaves, persistence)
		detail := n * alpha * (1 - floorWeight)
		value += e.params.NoiseFactor * alpha * detail
	}

	if dist > e.fadeStart && e.fadeSpan > 0 {
		value = lerp(value, EdgeSolid, clamp01((dist-e.fadeStart)/e.fadeSpan))
	}
	return value
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

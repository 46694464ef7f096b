// Package mesh extracts the cave surface from the sample space with
// Marching Cubes, visiting chunks by flood fill from the path.
package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is three vertices wound counter-clockwise seen from open space.
type Triangle [3]r3.Vec

// caseIndex sets bit i when corner i is solid.
func caseIndex(d *[8]float64, iso float64) uint8 {
	var idx uint8
	for i, v := range d {
		if v >= iso {
			idx |= 1 << i
		}
	}
	return idx
}

// interpolate finds the iso crossing between pa and pb.
func interpolate(pa, pb r3.Vec, da, db, iso float64) r3.Vec {
	delta := db - da
	if math.Abs(delta) < 1e-12 {
		return r3.Scale(0.5, r3.Add(pa, pb))
	}
	t := (iso - da) / delta
	t = math.Max(0, math.Min(1, t))
	return r3.Add(pa, r3.Scale(t, r3.Sub(pb, pa)))
}

// PolygonizeCell appends the triangles of one cell with corner positions p
// and densities d (ordered as sample.CornerOffsets) to dst.
func PolygonizeCell(p [8]r3.Vec, d [8]float64, iso float64, dst []Triangle) []Triangle {
	idx := caseIndex(&d, iso)
	mask := EdgeTable[idx]
	if mask == 0 {
		return dst
	}

	var verts [12]r3.Vec
	for e := 0; e < 12; e++ {
		if mask&(1<<e) == 0 {
			continue
		}
		a, b := edgeCorners[e][0], edgeCorners[e][1]
		verts[e] = interpolate(p[a], p[b], d[a], d[b], iso)
	}

	tris := TriTable[idx]
	for i := 0; i+2 < len(tris); i += 3 {
		dst = append(dst, Triangle{verts[tris[i]], verts[tris[i+1]], verts[tris[i+2]]})
	}
	return dst
}

// Normal returns the unit face normal of t, or the zero vector when t is
// degenerate.
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l < 1e-12 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

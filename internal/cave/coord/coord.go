package coord

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Keys pack three signed 21-bit integers: x<<42 | y<<21 | z, each biased by 1<<20.
const (
	keyBits = 21
	keyMask = 1<<keyBits - 1
	keyBias = 1 << (keyBits - 1)
)

// Cell identifies an integer cell in a uniform 3D grid.
type Cell struct{ X, Y, Z int }

// FloorDiv returns floor(v / size).
func FloorDiv(v, size float64) int {
	return int(math.Floor(v / size))
}

// CellOf returns the grid cell containing p for the given cell size.
func CellOf(p r3.Vec, size float64) Cell {
	return Cell{X: FloorDiv(p.X, size), Y: FloorDiv(p.Y, size), Z: FloorDiv(p.Z, size)}
}

// Pack packs x, y, z into a single 64-bit key.
// Each component must lie in [-2^20, 2^20).
func Pack(x, y, z int) uint64 {
	return uint64(x+keyBias)&keyMask<<(2*keyBits) |
		uint64(y+keyBias)&keyMask<<keyBits |
		uint64(z+keyBias)&keyMask
}

// Unpack is the inverse of Pack.
func Unpack(k uint64) (x, y, z int) {
	x = int(k>>(2*keyBits)&keyMask) - keyBias
	y = int(k>>keyBits&keyMask) - keyBias
	z = int(k&keyMask) - keyBias
	return
}

// Key returns the packed key of c.
func (c Cell) Key() uint64 { return Pack(c.X, c.Y, c.Z) }

// Add returns c offset by (dx, dy, dz).
func (c Cell) Add(dx, dy, dz int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Face names one of the six faces of a cell.
type Face int

const (
	NegX Face = iota
	PosX
	NegY
	PosY
	NegZ
	PosZ
)

// Faces lists every face in a fixed order.
var Faces = [6]Face{NegX, PosX, NegY, PosY, NegZ, PosZ}

// Opposite returns the face on the other side of the shared boundary.
func (f Face) Opposite() Face { return f ^ 1 }

// Offset returns the unit step across face f.
func (f Face) Offset() (dx, dy, dz int) {
	switch f {
	case NegX:
		return -1, 0, 0
	case PosX:
		return 1, 0, 0
	case NegY:
		return 0, -1, 0
	case PosY:
		return 0, 1, 0
	case NegZ:
		return 0, 0, -1
	default:
		return 0, 0, 1
	}
}

// Neighbor returns the face-adjacent cell across f.
func (c Cell) Neighbor(f Face) Cell {
	dx, dy, dz := f.Offset()
	return c.Add(dx, dy, dz)
}

func (f Face) String() string {
	return [...]string{"-x", "+x", "-y", "+y", "-z", "+z"}[f]
}

// Package sample lazily samples a density field on a chunked lattice.
package sample

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/coord"
	"github.com/OCharnyshevich/cavegen/internal/cave/density"
)

// Space partitions the lattice into cubic chunks of ChunkSize cells and
// caches each chunk's samples after the first request.
type Space struct {
	field     density.Field
	chunkSize int
	unit      float64

	mu     sync.RWMutex
	chunks map[uint64]*Chunk
}

// New creates a Space sampling field every unit world units with chunks of
// chunkSize cells per edge.
func New(field density.Field, chunkSize int, unit float64) (*Space, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size %d must be at least 1", chunkSize)
	}
	if !(unit > 0) {
		return nil, fmt.Errorf("unit size %v must be positive", unit)
	}
	return &Space{
		field:     field,
		chunkSize: chunkSize,
		unit:      unit,
		chunks:    make(map[uint64]*Chunk),
	}, nil
}

// Field returns the sampled density field.
func (s *Space) Field() density.Field { return s.field }

// ChunkSize returns the number of cells along a chunk edge.
func (s *Space) ChunkSize() int { return s.chunkSize }

// Unit returns the world-space distance between adjacent lattice points.
func (s *Space) Unit() float64 { return s.unit }

// CoordOf returns the coordinates of the chunk containing pos.
func (s *Space) CoordOf(pos r3.Vec) coord.Cell {
	return coord.CellOf(pos, float64(s.chunkSize)*s.unit)
}

// LatticePos returns the world position of global lattice point (gx, gy, gz).
// Positions derive from global indices only, so a corner shared by two chunks
// is sampled with bit-identical input.
func (s *Space) LatticePos(gx, gy, gz int) r3.Vec {
	return r3.Vec{X: float64(gx) * s.unit, Y: float64(gy) * s.unit, Z: float64(gz) * s.unit}
}

// Density samples the field at global lattice point (gx, gy, gz) without
// touching the cache.
func (s *Space) Density(gx, gy, gz int, sc *density.Scratch) float64 {
	return s.field.Sample(s.LatticePos(gx, gy, gz), sc)
}

// Chunk returns the chunk at c, sampling and caching it on first request.
// sc is used while sampling and may be nil.
func (s *Space) Chunk(c coord.Cell, sc *density.Scratch) *Chunk {
	key := c.Key()

	s.mu.RLock()
	if ch, ok := s.chunks[key]; ok {
		s.mu.RUnlock()
		return ch
	}
	s.mu.RUnlock()

	ch := s.sampleChunk(c, sc)

	s.mu.Lock()
	// Another worker may have sampled the same chunk meanwhile.
	if existing, ok := s.chunks[key]; ok {
		s.mu.Unlock()
		return existing
	}
	s.chunks[key] = ch
	s.mu.Unlock()
	return ch
}

// Lookup returns the cached chunk at c without sampling.
func (s *Space) Lookup(c coord.Cell) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chunks[c.Key()]
	return ch, ok
}

// Len returns the number of cached chunks.
func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Space) sampleChunk(c coord.Cell, sc *density.Scratch) *Chunk {
	if sc == nil {
		sc = density.NewScratch()
	}
	n := s.chunkSize + 1
	ch := &Chunk{
		Coord:   c,
		size:    s.chunkSize,
		samples: make([]float64, n*n*n),
	}

	gx0, gy0, gz0 := c.X*s.chunkSize, c.Y*s.chunkSize, c.Z*s.chunkSize
	i := 0
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				ch.samples[i] = s.Density(gx0+x, gy0+y, gz0+z, sc)
				i++
			}
		}
	}
	return ch
}

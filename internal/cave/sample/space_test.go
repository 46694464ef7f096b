package sample

import (
	"sync"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/coord"
	"github.com/OCharnyshevich/cavegen/internal/cave/density"
	"github.com/OCharnyshevich/cavegen/internal/cave/noise"
	"github.com/OCharnyshevich/cavegen/internal/cave/path"
)

func caveField(t *testing.T) density.Field {
	t.Helper()
	p, err := path.Generate(path.Params{
		Seed:         420,
		NodeBudget:   60,
		Spacing:      10,
		BranchChance: 0.05,
		MaxTips:      3,
		MaxTurn:      0.4,
		MaxPitch:     0.3,
		CellSize:     60,
	})
	if err != nil {
		t.Fatal(err)
	}
	edge := density.NewEdgeDensity(density.EdgeParams{
		CaveRadius:         40,
		MaxInfluenceRadius: 60,
		FloorFlatness:      0.8,
		NoiseScale:         0.05,
		NoiseOctaves:       2,
		NoiseFactor:        0.35,
	}, noise.NewGenerator(420))
	return density.NewPathDensity(p, edge)
}

func TestSeamsAreBitIdentical(t *testing.T) {
	s, err := New(caveField(t), 8, 3.7)
	if err != nil {
		t.Fatal(err)
	}
	n := s.ChunkSize()

	pairs := []struct {
		a, b coord.Cell
		face coord.Face
	}{
		{coord.Cell{X: 0, Y: 0, Z: 0}, coord.Cell{X: 1, Y: 0, Z: 0}, coord.PosX},
		{coord.Cell{X: -1, Y: 0, Z: 0}, coord.Cell{X: 0, Y: 0, Z: 0}, coord.PosX},
		{coord.Cell{X: 0, Y: -1, Z: 0}, coord.Cell{X: 0, Y: 0, Z: 0}, coord.PosY},
		{coord.Cell{X: 0, Y: 0, Z: -1}, coord.Cell{X: 0, Y: 0, Z: 0}, coord.PosZ},
	}
	for _, pr := range pairs {
		a := s.Chunk(pr.a, nil)
		b := s.Chunk(pr.b, nil)
		for u := 0; u <= n; u++ {
			for v := 0; v <= n; v++ {
				var va, vb float64
				switch pr.face {
				case coord.PosX:
					va, vb = a.At(n, u, v), b.At(0, u, v)
				case coord.PosY:
					va, vb = a.At(u, n, v), b.At(u, 0, v)
				default:
					va, vb = a.At(u, v, n), b.At(u, v, 0)
				}
				if va != vb {
					t.Fatalf("%v|%v seam sample (%d,%d): %v != %v", pr.a, pr.b, u, v, va, vb)
				}
			}
		}
	}
}

func TestChunkIsSampledOnce(t *testing.T) {
	var calls atomic.Int64
	field := density.FieldFunc(func(p r3.Vec) float64 {
		calls.Add(1)
		return p.Y
	})
	s, err := New(field, 4, 1)
	if err != nil {
		t.Fatal(err)
	}

	c := coord.Cell{X: 2, Y: -1, Z: 0}
	first := s.Chunk(c, nil)
	if got := calls.Load(); got != 125 {
		t.Fatalf("sampled %d points, want 125", got)
	}
	if second := s.Chunk(c, nil); second != first {
		t.Error("second request returned a different chunk")
	}
	if got := calls.Load(); got != 125 {
		t.Errorf("cached chunk was resampled: %d calls", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if _, ok := s.Lookup(coord.Cell{}); ok {
		t.Error("Lookup found a chunk that was never requested")
	}

	// Local (1, 2, 3) in chunk (2,-1,0) is global (9, -2, 3).
	if got := first.At(1, 2, 3); got != -2 {
		t.Errorf("At(1,2,3) = %f, want -2", got)
	}
}

func TestChunkConcurrentRequestsShareResult(t *testing.T) {
	s, err := New(density.FieldFunc(func(p r3.Vec) float64 { return p.X }), 8, 1)
	if err != nil {
		t.Fatal(err)
	}

	const workers = 16
	got := make([]*Chunk, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = s.Chunk(coord.Cell{X: 1}, density.NewScratch())
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a different chunk", i)
		}
	}
}

func TestCoordOf(t *testing.T) {
	s, err := New(density.FieldFunc(func(r3.Vec) float64 { return 0 }), 16, 4)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		pos  r3.Vec
		want coord.Cell
	}{
		{r3.Vec{X: 0, Y: 0, Z: 0}, coord.Cell{X: 0, Y: 0, Z: 0}},
		{r3.Vec{X: 63.9, Y: 64, Z: -0.1}, coord.Cell{X: 0, Y: 1, Z: -1}},
		{r3.Vec{X: -64, Y: -64.1, Z: 128}, coord.Cell{X: -1, Y: -2, Z: 2}},
	}
	for _, tt := range tests {
		if got := s.CoordOf(tt.pos); got != tt.want {
			t.Errorf("CoordOf(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestClassifyAndFaceOpen(t *testing.T) {
	// Open below x = 2 world units, solid above.
	s, err := New(density.FieldFunc(func(p r3.Vec) float64 {
		if p.X < 2 {
			return 0
		}
		return 1
	}), 4, 1)
	if err != nil {
		t.Fatal(err)
	}

	ch := s.Chunk(coord.Cell{}, nil)
	hasOpen, hasSolid := ch.Classify(0.5)
	if !hasOpen || !hasSolid {
		t.Errorf("Classify = (%v, %v), want (true, true)", hasOpen, hasSolid)
	}
	for _, f := range coord.Faces {
		want := f != coord.PosX
		if got := ch.FaceOpen(f, 0.5); got != want {
			t.Errorf("FaceOpen(%v) = %v, want %v", f, got, want)
		}
	}

	solid := s.Chunk(coord.Cell{X: 1}, nil)
	if hasOpen, _ := solid.Classify(0.5); hasOpen {
		t.Error("chunk beyond x=4 should be fully solid")
	}
}

func TestNewRejectsBadDimensions(t *testing.T) {
	field := density.FieldFunc(func(r3.Vec) float64 { return 0 })
	if _, err := New(field, 0, 1); err == nil {
		t.Error("expected error for chunk size 0")
	}
	if _, err := New(field, 16, 0); err == nil {
		t.Error("expected error for unit size 0")
	}
}

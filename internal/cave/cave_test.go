package cave

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/OCharnyshevich/cavegen/internal/cave/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CaveLength = 200
	cfg.NodeSpacing = 10
	cfg.CaveRadius = 8
	cfg.MaxInfluenceRadius = 12
	cfg.SamplesPerUnit = 0.5
	cfg.ChunkSize = 8
	cfg.Workers = 2
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInfluenceRadius = 4
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected error for influence radius below cave radius")
	}
}

func TestGenerate(t *testing.T) {
	cfg := testConfig()
	g, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(res.Path) != cfg.NodeBudget() {
		t.Errorf("path has %d nodes, want %d", len(res.Path), cfg.NodeBudget())
	}
	if len(res.Edges) != cfg.NodeBudget()-1 {
		t.Errorf("path has %d edges, want %d", len(res.Edges), cfg.NodeBudget()-1)
	}
	if len(res.Chunks) == 0 || res.TriangleCount() == 0 {
		t.Fatalf("no geometry: %d chunks, %d triangles", len(res.Chunks), res.TriangleCount())
	}
	if res.TriangleCount() != res.Stats.Triangles {
		t.Errorf("TriangleCount() = %d, stats say %d", res.TriangleCount(), res.Stats.Triangles)
	}

	for i := range g.Path().Len() {
		if d := g.Density(g.Path().Position(i)); d >= cfg.SurfaceLevel {
			t.Errorf("node %d density %f is not open", i, d)
		}
	}

	lo, hi, ok := res.Bounds()
	if !ok {
		t.Fatal("Bounds() reported no geometry")
	}
	for i, p := range res.Path {
		for a := range 3 {
			if p[a] < lo[a] || p[a] > hi[a] {
				t.Errorf("node %d at %v outside mesh bounds %v..%v", i, p, lo, hi)
				break
			}
		}
	}
}

func TestSeedsStartAtRoot(t *testing.T) {
	g, err := New(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seeds := g.Seeds()
	if len(seeds) == 0 {
		t.Fatal("no seeds")
	}
	if root := g.Space().CoordOf(g.Path().Root()); seeds[0] != root {
		t.Errorf("first seed %v, want root chunk %v", seeds[0], root)
	}
	seen := make(map[uint64]bool)
	for _, c := range seeds {
		if seen[c.Key()] {
			t.Errorf("duplicate seed %v", c)
		}
		seen[c.Key()] = true
	}
}

func TestGenerateDeterministic(t *testing.T) {
	run := func(workers int) *Result {
		cfg := testConfig()
		cfg.Workers = workers
		g, err := New(cfg, testLogger())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return res
	}

	a, b := run(1), run(4)
	if !reflect.DeepEqual(a.Path, b.Path) || !reflect.DeepEqual(a.Edges, b.Edges) {
		t.Error("paths differ between runs")
	}
	if a.Stats != b.Stats {
		t.Errorf("stats differ: %+v vs %+v", a.Stats, b.Stats)
	}
	if !reflect.DeepEqual(a.Chunks, b.Chunks) {
		t.Error("meshes differ between runs")
	}
}

func TestGenerateCancelled(t *testing.T) {
	g, err := New(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestBoundsEmpty(t *testing.T) {
	var r Result
	if _, _, ok := r.Bounds(); ok {
		t.Error("Bounds() of empty result reported geometry")
	}
}

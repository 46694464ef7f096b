// Package cave ties the cave pipeline together: a branching path is grown
// from the seed, a density field is anchored to it, and the field is sampled
// and meshed chunk by chunk outward from the path.
package cave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/OCharnyshevich/cavegen/internal/cave/config"
	"github.com/OCharnyshevich/cavegen/internal/cave/coord"
	"github.com/OCharnyshevich/cavegen/internal/cave/density"
	"github.com/OCharnyshevich/cavegen/internal/cave/mesh"
	"github.com/OCharnyshevich/cavegen/internal/cave/noise"
	"github.com/OCharnyshevich/cavegen/internal/cave/path"
	"github.com/OCharnyshevich/cavegen/internal/cave/sample"
)

// Generator owns every stage built from one Config.
type Generator struct {
	cfg    *config.Config
	log    *slog.Logger
	path   *path.Path
	field  *density.PathDensity
	space  *sample.Space
	mesher *mesh.Generator
}

// Result is the output of one generation run.
type Result struct {
	Path     []mgl32.Vec3 // node positions in generation order
	Edges    [][2]int     // parent, child index pairs
	Chunks   []*mesh.Mesh // non-empty chunk meshes in visitation order
	Stats    mesh.Stats
	Duration time.Duration
}

// New validates cfg and builds the path, density field, sample space and
// mesher. The path is generated here.
func New(cfg *config.Config, log *slog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	normals, err := mesh.ParseNormalMode(cfg.Normals)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	p, err := path.Generate(path.Params{
		Seed:         cfg.Seed,
		NodeBudget:   cfg.NodeBudget(),
		Spacing:      cfg.NodeSpacing,
		BranchChance: cfg.BranchChance,
		MaxTips:      cfg.MaxTips,
		MaxTurn:      cfg.MaxTurn(),
		MaxPitch:     cfg.MaxPitch(),
		CellSize:     cfg.CellSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate path: %w", err)
	}
	log.Info("path generated",
		"nodes", p.Len(),
		"seed", cfg.Seed,
		"elapsed", time.Since(start),
	)

	edge := density.NewEdgeDensity(density.EdgeParams{
		CaveRadius:         cfg.CaveRadius,
		MaxInfluenceRadius: cfg.MaxInfluenceRadius,
		FloorFlatness:      cfg.FloorFlatness,
		NoiseScale:         cfg.NoiseScale,
		NoiseOctaves:       cfg.NoiseOctaves,
		NoiseFactor:        cfg.NoiseFactor,
	}, noise.NewGenerator(cfg.Seed))
	field := density.NewPathDensity(p, edge)

	space, err := sample.New(field, cfg.ChunkSize, cfg.UnitSize())
	if err != nil {
		return nil, fmt.Errorf("create sample space: %w", err)
	}

	opts := mesh.Options{
		SurfaceLevel: cfg.SurfaceLevel,
		Normals:      normals,
		Workers:      cfg.WorkerCount(),
	}

	return &Generator{
		cfg:    cfg,
		log:    log,
		path:   p,
		field:  field,
		space:  space,
		mesher: mesh.NewGenerator(space, opts, log),
	}, nil
}

// Path returns the generated cave path.
func (g *Generator) Path() *path.Path { return g.path }

// Density returns the path density at p.
func (g *Generator) Density(p r3.Vec) float64 { return g.field.Density(p) }

// Space returns the chunk sample space.
func (g *Generator) Space() *sample.Space { return g.space }

// Seeds returns the traversal seeds: the root chunk followed by the chunk of
// every path node, without duplicates.
func (g *Generator) Seeds() []coord.Cell {
	seen := make(map[uint64]struct{})
	var seeds []coord.Cell
	for i := range g.path.Len() {
		c := g.space.CoordOf(g.path.Position(i))
		if _, ok := seen[c.Key()]; ok {
			continue
		}
		seen[c.Key()] = struct{}{}
		seeds = append(seeds, c)
	}
	return seeds
}

// Generate meshes every chunk reachable through open space from the path.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()

	meshes, stats, err := g.mesher.Generate(ctx, g.Seeds())
	if err != nil {
		return nil, fmt.Errorf("mesh chunks: %w", err)
	}

	res := &Result{
		Path:     make([]mgl32.Vec3, g.path.Len()),
		Chunks:   meshes,
		Stats:    stats,
		Duration: time.Since(start),
	}
	for i := range g.path.Len() {
		p := g.path.Position(i)
		res.Path[i] = mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
	}
	for _, e := range g.path.Edges() {
		res.Edges = append(res.Edges, [2]int{e.Parent, e.Child})
	}

	g.log.Info("cave generated",
		"chunks", stats.Visited,
		"meshed", stats.Meshed,
		"vertices", stats.Vertices,
		"triangles", stats.Triangles,
		"waves", stats.Waves,
		"elapsed", res.Duration,
	)
	return res, nil
}

// Bounds returns the bounding box of every mesh vertex. ok is false when no
// chunk produced geometry.
func (r *Result) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	for _, m := range r.Chunks {
		for _, p := range m.Positions {
			if !ok {
				lo, hi, ok = p, p, true
				continue
			}
			for i := range 3 {
				lo[i] = min(lo[i], p[i])
				hi[i] = max(hi[i], p[i])
			}
		}
	}
	return lo, hi, ok
}

// TriangleCount returns the total triangle count over all chunks.
func (r *Result) TriangleCount() int {
	n := 0
	for _, m := range r.Chunks {
		n += m.TriangleCount()
	}
	return n
}

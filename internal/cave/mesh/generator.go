package mesh

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/cavegen/internal/cave/coord"
	"github.com/OCharnyshevich/cavegen/internal/cave/sample"
)

// Stats summarizes one traversal.
type Stats struct {
	Waves     int
	Visited   int
	Meshed    int
	Vertices  int
	Triangles int
}

// Generator walks the sample space chunk by chunk, following open space from
// the seed chunks instead of scanning a bounding box.
type Generator struct {
	space *sample.Space
	opts  Options
	log   *slog.Logger
	pool  chan *mesher
}

// NewGenerator creates a Generator with opts.Workers meshing workers
// (runtime.NumCPU() when zero or negative).
func NewGenerator(space *sample.Space, opts Options, log *slog.Logger) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	pool := make(chan *mesher, opts.Workers)
	for range opts.Workers {
		pool <- newMesher(space, opts)
	}
	return &Generator{space: space, opts: opts, log: log, pool: pool}
}

type chunkResult struct {
	mesh *Mesh
	open [6]bool
}

// Generate runs a breadth-first traversal from seeds. Each wave of the
// frontier is meshed in parallel; a face-adjacent chunk joins the next wave
// when the shared face holds an open sample. Only this goroutine touches the
// visited set. Non-empty meshes are returned in visitation order, which does
// not depend on scheduling.
func (g *Generator) Generate(ctx context.Context, seeds []coord.Cell) ([]*Mesh, Stats, error) {
	var stats Stats
	visited := make(map[uint64]struct{}, len(seeds))

	frontier := make([]coord.Cell, 0, len(seeds))
	for _, c := range seeds {
		if _, ok := visited[c.Key()]; ok {
			continue
		}
		visited[c.Key()] = struct{}{}
		frontier = append(frontier, c)
	}

	var meshes []*Mesh
	for len(frontier) > 0 {
		results := make([]chunkResult, len(frontier))

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.opts.Workers)
		for i, c := range frontier {
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				m := <-g.pool
				defer func() { g.pool <- m }()
				results[i] = g.build(m, c)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, stats, err
		}

		var next []coord.Cell
		for i, r := range results {
			stats.Visited++
			if !r.mesh.Empty() {
				stats.Meshed++
				stats.Vertices += r.mesh.VertexCount()
				stats.Triangles += r.mesh.TriangleCount()
				meshes = append(meshes, r.mesh)
			}
			for _, f := range coord.Faces {
				if !r.open[f] {
					continue
				}
				nb := frontier[i].Neighbor(f)
				if _, ok := visited[nb.Key()]; ok {
					continue
				}
				visited[nb.Key()] = struct{}{}
				next = append(next, nb)
			}
		}

		stats.Waves++
		g.log.Debug("chunk wave done",
			"wave", stats.Waves,
			"chunks", len(frontier),
			"next", len(next),
			"visited", stats.Visited,
		)
		frontier = next
	}
	return meshes, stats, nil
}

func (g *Generator) build(m *mesher, c coord.Cell) chunkResult {
	ch := g.space.Chunk(c, m.scratch)
	res := chunkResult{mesh: &Mesh{Coord: c}}

	hasOpen, hasSolid := ch.Classify(g.opts.SurfaceLevel)
	if !hasOpen {
		return res
	}
	for _, f := range coord.Faces {
		res.open[f] = ch.FaceOpen(f, g.opts.SurfaceLevel)
	}
	if hasSolid {
		res.mesh = m.mesh(ch)
	}
	return res
}

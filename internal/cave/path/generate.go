package path

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params configures the randomized branching walk.
type Params struct {
	Seed         int64
	Origin       r3.Vec
	NodeBudget   int     // total node count, root included
	Spacing      float64 // parent→child distance
	BranchChance float64 // per-step chance of forking the active tip
	MaxTips      int     // upper bound on simultaneously growing tips
	MaxTurn      float64 // max yaw change per step, radians
	MaxPitch     float64 // heading pitch clamp, radians
	CellSize     float64 // spatial grid cell size
}

func (p Params) validate() error {
	var errs []error
	if p.NodeBudget < 1 {
		errs = append(errs, fmt.Errorf("node budget %d must be at least 1", p.NodeBudget))
	}
	if !(p.Spacing > 0) {
		errs = append(errs, fmt.Errorf("spacing %v must be positive", p.Spacing))
	}
	if p.BranchChance < 0 || p.BranchChance > 1 {
		errs = append(errs, fmt.Errorf("branch chance %v outside [0,1]", p.BranchChance))
	}
	if p.MaxTips < 1 {
		errs = append(errs, fmt.Errorf("max tips %d must be at least 1", p.MaxTips))
	}
	if p.MaxPitch < 0 || p.MaxPitch >= math.Pi/2 {
		errs = append(errs, fmt.Errorf("max pitch %v outside [0,π/2)", p.MaxPitch))
	}
	if !(p.CellSize > 0) {
		errs = append(errs, fmt.Errorf("grid cell size %v must be positive", p.CellSize))
	}
	return errors.Join(errs...)
}

// tip is a growing end of the path.
type tip struct {
	id    int
	node  int
	yaw   float64
	pitch float64
	steps int
}

// Generate builds a path by walking tips outward from Origin, one node per
// step, until NodeBudget nodes exist. The same Params always produce the
// same tree.
func Generate(params Params) (*Path, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("path params: %w", err)
	}

	rng := rand.New(rand.NewSource(params.Seed))
	drift := opensimplex.New(params.Seed)

	p := New(params.CellSize)
	root := p.Append(params.Origin, NoParent)

	tips := []tip{{node: root, yaw: rng.Float64() * 2 * math.Pi}}
	nextID := 1
	retireChance := params.BranchChance / 2

	for p.Len() < params.NodeBudget {
		ti := rng.Intn(len(tips))
		t := &tips[ti]

		// Slow drift keeps tunnels winding instead of jittering.
		d := drift.Eval2(float64(t.id)*17.31, float64(t.steps)*0.15)
		t.yaw += d*params.MaxTurn + (rng.Float64()*2-1)*params.MaxTurn*0.25
		t.pitch = clamp(t.pitch*0.9+(rng.Float64()*2-1)*params.MaxTurn*0.5, -params.MaxPitch, params.MaxPitch)

		pos := r3.Add(p.Position(t.node), r3.Scale(params.Spacing, heading(t.yaw, t.pitch)))
		t.node = p.Append(pos, t.node)
		t.steps++

		if len(tips) < params.MaxTips && rng.Float64() < params.BranchChance {
			side := 1.0
			if rng.Intn(2) == 0 {
				side = -1
			}
			tips = append(tips, tip{
				id:    nextID,
				node:  t.node,
				yaw:   t.yaw + side*(math.Pi/4+rng.Float64()*math.Pi/4),
				pitch: t.pitch,
			})
			nextID++
			continue
		}
		if len(tips) > 1 && rng.Float64() < retireChance {
			tips = append(tips[:ti], tips[ti+1:]...)
		}
	}
	return p, nil
}

func heading(yaw, pitch float64) r3.Vec {
	cp := math.Cos(pitch)
	return r3.Vec{X: cp * math.Cos(yaw), Y: math.Sin(pitch), Z: cp * math.Sin(yaw)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

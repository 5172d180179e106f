package smc

import (
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

// Classical is a first-order sliding-mode law: a saturated switching
// term plus linear surface damping. No internal adaptation.
type Classical struct {
	Gains         SurfaceGains
	K             float64 // switching gain
	Kd            float64 // surface damping
	BoundaryLayer float64
	MaxForce      float64
}

func NewClassical(maxForce float64) *Classical {
	return &Classical{
		Gains:         DefaultSurfaceGains(),
		K:             18.0,
		Kd:            4.0,
		BoundaryLayer: 0.05,
		MaxForce:      maxForce,
	}
}

func (c *Classical) Name() string { return "classical" }

func (c *Classical) Compute(x dynamo.State) (dynamo.StrategyOutput, error) {
	if err := checkState(x); err != nil {
		return dynamo.StrategyOutput{}, err
	}
	s := c.Gains.Surface(x)
	u := -c.K*sat(s, c.BoundaryLayer) - c.Kd*s
	u = clampAbs(u, c.MaxForce)
	return dynamo.StrategyOutput{
		U:       u,
		Surface: s,
		Metrics: map[string]float64{
			"surface": math.Abs(s),
		},
	}, nil
}

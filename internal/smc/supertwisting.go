package smc

import (
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

// SuperTwisting is a second-order sliding-mode law producing a
// continuous control signal:
//
//	u = -K1*sqrt(|s|)*sign(s) + z
//	zdot = -K2*sign(s)
//
// The integral term z is the law's adaptation memory.
type SuperTwisting struct {
	Gains    SurfaceGains
	K1, K2   float64
	MaxForce float64

	dt float64
	z  float64
}

func NewSuperTwisting(maxForce, dt float64) *SuperTwisting {
	return &SuperTwisting{
		Gains:    DefaultSurfaceGains(),
		K1:       22.0,
		K2:       15.0,
		MaxForce: maxForce,
		dt:       dt,
	}
}

func (st *SuperTwisting) Name() string { return "supertwisting" }

func (st *SuperTwisting) Compute(x dynamo.State) (dynamo.StrategyOutput, error) {
	if err := checkState(x); err != nil {
		return dynamo.StrategyOutput{}, err
	}
	s := st.Gains.Surface(x)

	st.z += -st.K2 * sign(s) * st.dt
	st.z = clampAbs(st.z, st.MaxForce)

	u := -st.K1*math.Sqrt(math.Abs(s))*sign(s) + st.z
	u = clampAbs(u, st.MaxForce)
	return dynamo.StrategyOutput{
		U:       u,
		Surface: s,
		Metrics: map[string]float64{
			"surface":  math.Abs(s),
			"integral": st.z,
		},
	}, nil
}

package smc

import (
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

// AdaptiveGains bound the online gain adaptation.
type AdaptiveGains struct {
	K0    float64 // nominal gain the leak pulls back to
	KMin  float64
	KMax  float64
	Gamma float64 // adaptation rate on |s|
	Leak  float64 // decay toward K0
}

// Adaptive is a sliding-mode law whose switching gain grows while the
// state is off the surface and leaks back toward nominal on it:
//
//	Kdot = Gamma*|s| - Leak*(K - K0), K clamped to [KMin, KMax]
//
// The instantaneous |Kdot| is reported as the adaptation_rate metric
// the switching core's ADAPTATION_RATE criterion keys on.
type Adaptive struct {
	Gains         SurfaceGains
	Adapt         AdaptiveGains
	BoundaryLayer float64
	MaxForce      float64

	dt float64
	k  float64
}

func NewAdaptive(maxForce, dt float64) *Adaptive {
	a := AdaptiveGains{
		K0:    10.0,
		KMin:  2.0,
		KMax:  80.0,
		Gamma: 25.0,
		Leak:  0.5,
	}
	return &Adaptive{
		Gains:         DefaultSurfaceGains(),
		Adapt:         a,
		BoundaryLayer: 0.05,
		MaxForce:      maxForce,
		dt:            dt,
		k:             a.K0,
	}
}

func (a *Adaptive) Name() string { return "adaptive" }

// Gain returns the current adapted switching gain.
func (a *Adaptive) Gain() float64 { return a.k }

func (a *Adaptive) Compute(x dynamo.State) (dynamo.StrategyOutput, error) {
	if err := checkState(x); err != nil {
		return dynamo.StrategyOutput{}, err
	}
	s := a.Gains.Surface(x)

	kdot := a.Adapt.Gamma*math.Abs(s) - a.Adapt.Leak*(a.k-a.Adapt.K0)
	a.k += kdot * a.dt
	if a.k < a.Adapt.KMin {
		a.k = a.Adapt.KMin
	}
	if a.k > a.Adapt.KMax {
		a.k = a.Adapt.KMax
	}

	u := clampAbs(-a.k*sat(s, a.BoundaryLayer), a.MaxForce)
	return dynamo.StrategyOutput{
		U:       u,
		Surface: s,
		Metrics: map[string]float64{
			"surface":         math.Abs(s),
			"gain":            a.k,
			"adaptation_rate": math.Abs(kdot),
		},
	}, nil
}

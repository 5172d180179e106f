// Package smc implements the sliding-mode control laws the hybrid
// switching core arbitrates between: classical, adaptive-gain and
// super-twisting variants over a shared linear sliding surface.
package smc

import (
	"github.com/avolkov/hybridsmc/internal/dynamo"
)

// State layout expected by every law: [x, th1, th2, xdot, th1dot, th2dot].
const stateDim = 6

// SurfaceGains defines the linear sliding surface
//
//	s = C1*(th1dot + L1*th1) + C2*(th2dot + L2*th2) + Cx*(xdot + Lx*x)
//
// whose zero set is the target manifold for all three laws.
type SurfaceGains struct {
	C1, L1 float64
	C2, L2 float64
	Cx, Lx float64
}

func DefaultSurfaceGains() SurfaceGains {
	return SurfaceGains{
		C1: 12.0, L1: 6.0,
		C2: 8.0, L2: 5.0,
		Cx: 2.0, Lx: 1.0,
	}
}

func (g SurfaceGains) Surface(x dynamo.State) float64 {
	return g.C1*(x[4]+g.L1*x[1]) +
		g.C2*(x[5]+g.L2*x[2]) +
		g.Cx*(x[3]+g.Lx*x[0])
}

func checkState(x dynamo.State) error {
	if len(x) != stateDim {
		return dynamo.ErrDimensionMismatch
	}
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	return nil
}

// sat is the boundary-layer saturation that replaces sign(s) inside
// |s| < eps to suppress chattering.
func sat(s, eps float64) float64 {
	if eps <= 0 {
		return sign(s)
	}
	if s > eps {
		return 1
	}
	if s < -eps {
		return -1
	}
	return s / eps
}

func sign(s float64) float64 {
	switch {
	case s > 0:
		return 1
	case s < 0:
		return -1
	default:
		return 0
	}
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// Package plant provides the double-inverted-pendulum-on-cart dynamics
// the hybrid controller stabilizes.
package plant

import (
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

const (
	DefaultCartMass = 1.5
	DefaultMass1    = 0.5
	DefaultMass2    = 0.35
	DefaultLength1  = 0.5
	DefaultLength2  = 0.35
	DefaultGravity  = 9.81
)

// DoubleInvertedPendulum models a cart with two independent inverted
// pendulums. State: [x, th1, th2, xdot, th1dot, th2dot], angles
// measured from the upright. Control: horizontal force on the cart.
type DoubleInvertedPendulum struct {
	CartMass float64
	M1, M2   float64
	L1, L2   float64
	Gravity  float64

	CartDamping  float64
	JointDamping float64
}

func NewDoubleInvertedPendulum() *DoubleInvertedPendulum {
	return &DoubleInvertedPendulum{
		CartMass:     DefaultCartMass,
		M1:           DefaultMass1,
		M2:           DefaultMass2,
		L1:           DefaultLength1,
		L2:           DefaultLength2,
		Gravity:      DefaultGravity,
		CartDamping:  0.1,
		JointDamping: 0.02,
	}
}

func (d *DoubleInvertedPendulum) StateDim() int   { return 6 }
func (d *DoubleInvertedPendulum) ControlDim() int { return 1 }

func (d *DoubleInvertedPendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	th1, th2 := x[1], x[2]
	vel, om1, om2 := x[3], x[4], x[5]
	g := d.Gravity

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	s1, c1 := math.Sin(th1), math.Cos(th1)
	s2, c2 := math.Sin(th2), math.Cos(th2)

	den := d.CartMass + d.M1*s1*s1 + d.M2*s2*s2
	acc := (force - d.CartDamping*vel +
		d.M1*s1*(d.L1*om1*om1-g*c1) +
		d.M2*s2*(d.L2*om2*om2-g*c2)) / den

	al1 := (g*s1 - acc*c1 - d.JointDamping*om1) / d.L1
	al2 := (g*s2 - acc*c2 - d.JointDamping*om2) / d.L2

	return dynamo.State{vel, om1, om2, acc, al1, al2}
}

// Energy is the total mechanical energy with the upright position as
// the potential reference.
func (d *DoubleInvertedPendulum) Energy(x dynamo.State) float64 {
	th1, th2 := x[1], x[2]
	vel, om1, om2 := x[3], x[4], x[5]
	g := d.Gravity

	v1x := vel + d.L1*om1*math.Cos(th1)
	v1y := d.L1 * om1 * math.Sin(th1)
	v2x := vel + d.L2*om2*math.Cos(th2)
	v2y := d.L2 * om2 * math.Sin(th2)

	ke := 0.5*d.CartMass*vel*vel +
		0.5*d.M1*(v1x*v1x+v1y*v1y) +
		0.5*d.M2*(v2x*v2x+v2y*v2y)
	pe := d.M1*g*d.L1*(math.Cos(th1)-1) + d.M2*g*d.L2*(math.Cos(th2)-1)

	return ke + pe
}

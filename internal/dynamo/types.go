package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// StrategyOutput is what a single control law produces for one cycle:
// a scalar actuator force plus the sliding-surface diagnostic the
// switching core keys its decisions on.
type StrategyOutput struct {
	U       float64
	Surface float64
	Metrics map[string]float64
}

// Strategy is one control law of the hybrid set. Compute must depend
// only on the given state and the strategy's own adaptation memory.
type Strategy interface {
	Name() string
	Compute(x State) (StrategyOutput, error)
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type RunConfig struct {
	Dt            float64
	Duration      float64
	Seed          int64
	ValidateState bool
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Controls   []float64
	Times      []float64
	Active     []string
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

package hybrid

import (
	"fmt"
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

const (
	// historyCap bounds the step history; on overflow the buffer is
	// truncated to historyKeep most recent entries.
	historyCap  = 1000
	historyKeep = 500
)

// StepResult is what one control cycle returns to the real-time
// caller: the saturated control value plus diagnostics.
type StepResult struct {
	U        float64
	Raw      float64
	Active   ControllerState
	Switched bool

	// SafeMode is set when an unexpected internal fault was contained;
	// U is then zero and Message describes the fault.
	SafeMode bool
	Message  string

	// Degraded lists strategies whose computation failed this cycle
	// and contributed a zero placeholder.
	Degraded []string

	// Outputs holds every strategy's raw control value for telemetry.
	Outputs map[string]float64

	Stats Stats
}

// StepRecord is one entry of the bounded step history.
type StepRecord struct {
	Time     float64
	Active   string
	U        float64
	Raw      float64
	Switched bool
	Outputs  map[string]float64
}

// Controller orchestrates the hybrid loop: it invokes every active
// strategy each cycle, asks SwitchingLogic for a decision, applies it,
// filters, saturates and returns the final control value. A failing
// strategy never propagates out of a cycle.
type Controller struct {
	cfg        Config
	strategies [numControllerStates]dynamo.Strategy
	logic      *SwitchingLogic
	filter     *TransitionFilter

	simTime float64
	history []StepRecord
}

// NewController validates the configuration and checks that every
// strategy the mode activates is present.
func NewController(cfg Config, strategies map[ControllerState]dynamo.Strategy) (*Controller, error) {
	logic, err := NewSwitchingLogic(cfg)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:    cfg,
		logic:  logic,
		filter: NewTransitionFilter(cfg.SmoothingTimeConstant),
	}
	for _, s := range cfg.Mode.Active() {
		strat, ok := strategies[s]
		if !ok || strat == nil {
			return nil, configErrorf("strategies", "mode %s requires strategy %s", cfg.Mode, s)
		}
		c.strategies[s] = strat
	}
	return c, nil
}

// Current returns the active controller state. Pure accessor.
func (c *Controller) Current() ControllerState { return c.logic.Current() }

// Time returns the controller's internal simulation time.
func (c *Controller) Time() float64 { return c.simTime }

// Logic exposes the switching logic for telemetry consumers.
func (c *Controller) Logic() *SwitchingLogic { return c.logic }

// SetTunable updates the runtime-tunable block, re-validating it, and
// propagates the smoothing time constant to the transition filter.
func (c *Controller) SetTunable(t Tunable) error {
	if err := c.logic.SetTunable(t); err != nil {
		return err
	}
	c.filter.SetTimeConstant(t.SmoothingTimeConstant)
	return nil
}

// ComputeControl runs one control cycle. It always returns a result:
// any uncaught internal failure is converted into a safe-mode zero
// output rather than propagated to the real-time caller.
func (c *Controller) ComputeControl(x dynamo.State, dt float64) (result StepResult) {
	defer func() {
		if r := recover(); r != nil {
			result = StepResult{
				Active:   c.logic.Current(),
				SafeMode: true,
				Message:  fmt.Sprintf("internal fault: %v", r),
				Stats:    c.logic.Stats(),
			}
		}
	}()

	c.simTime += dt

	results := make(map[ControllerState]dynamo.StrategyOutput, len(c.cfg.Mode.Active()))
	outputs := make(map[string]float64, len(c.cfg.Mode.Active()))
	var degraded []string
	for _, s := range c.cfg.Mode.Active() {
		out, err := computeGuarded(c.strategies[s], x)
		if err != nil {
			degraded = append(degraded, s.String())
			out = dynamo.StrategyOutput{}
		}
		results[s] = out
		outputs[s.String()] = out.U
	}

	decision := c.logic.EvaluateSwitching(x, results, c.simTime)
	switched := false
	if decision != nil && c.logic.ExecuteSwitch(decision, c.simTime) {
		switched = true
		c.filter.Reset()
	}

	active := c.logic.Current()
	raw := results[active].U
	for _, name := range degraded {
		if name == active.String() {
			raw = 0
		}
	}

	u := c.filter.Filter(raw, dt)
	u = clamp(u, -c.cfg.MaxForce, c.cfg.MaxForce)

	c.record(StepRecord{
		Time:     c.simTime,
		Active:   active.String(),
		U:        u,
		Raw:      raw,
		Switched: switched,
		Outputs:  outputs,
	})

	return StepResult{
		U:        u,
		Raw:      raw,
		Active:   active,
		Switched: switched,
		Degraded: degraded,
		Outputs:  outputs,
		Stats:    c.logic.Stats(),
	}
}

// computeGuarded invokes one strategy with panic containment. A panic
// inside a control law becomes an error, never a crashed cycle.
func computeGuarded(s dynamo.Strategy, x dynamo.State) (out dynamo.StrategyOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StrategyError{Strategy: s.Name(), Wrapped: fmt.Errorf("panic: %v", r)}
		}
	}()
	out, err = s.Compute(x)
	if err != nil {
		return dynamo.StrategyOutput{}, &StrategyError{Strategy: s.Name(), Wrapped: err}
	}
	if math.IsNaN(out.U) || math.IsInf(out.U, 0) {
		return dynamo.StrategyOutput{}, &StrategyError{Strategy: s.Name(), Wrapped: fmt.Errorf("non-finite output %v", out.U)}
	}
	return out, nil
}

func (c *Controller) record(r StepRecord) {
	c.history = append(c.history, r)
	if len(c.history) > historyCap {
		kept := c.history[len(c.history)-historyKeep:]
		c.history = append(c.history[:0], kept...)
	}
}

// History returns a copy of the bounded step history.
func (c *Controller) History() []StepRecord {
	return append([]StepRecord(nil), c.history...)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

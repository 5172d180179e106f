// Package sim runs the closed loop: plant, integrator and the hybrid
// switching controller, stepped once per fixed timestep.
package sim

import (
	"context"
	"fmt"

	"github.com/avolkov/hybridsmc/internal/dynamo"
	"github.com/avolkov/hybridsmc/internal/hybrid"
)

// Runner owns one closed-loop session. Not safe for concurrent use.
type Runner struct {
	plant      dynamo.System
	integrator dynamo.Integrator
	ctrl       *hybrid.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(plant dynamo.System, integrator dynamo.Integrator, ctrl *hybrid.Controller) *Runner {
	return &Runner{
		plant:      plant,
		integrator: integrator,
		ctrl:       ctrl,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

// Controller exposes the hybrid controller for telemetry consumers.
func (r *Runner) Controller() *hybrid.Controller { return r.ctrl }

// Result is a run trace plus the switch audit log.
type Result struct {
	dynamo.Result
	Switches  []hybrid.SwitchRecord
	SafeSteps int
}

func (r *Runner) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.RunConfig) (*Result, error) {
	if err := r.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != r.plant.StateDim() {
		return nil, dynamo.ErrDimensionMismatch
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Result: dynamo.Result{
			States:   make([]dynamo.State, 0, steps+1),
			Controls: make([]float64, 0, steps),
			Times:    make([]float64, 0, steps+1),
			Active:   make([]string, 0, steps),
			Metrics:  make(map[string]float64),
			Errors:   make([]error, 0),
		},
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		step := r.ctrl.ComputeControl(x, dt)
		if step.SafeMode {
			result.SafeSteps++
			result.Errors = append(result.Errors, dynamo.SimError{Time: t, Step: i, Message: step.Message})
		}
		u := dynamo.Control{step.U}

		for _, m := range r.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(x, u, t)
		}

		x = r.integrator.Step(r.plant, x, u, t, dt)
		t += dt
		result.StepsTaken++

		if cfg.ValidateState && !x.IsValid() {
			result.Errors = append(result.Errors, &dynamo.RunError{
				Step: i, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState,
			})
			break
		}

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, step.U)
		result.Active = append(result.Active, step.Active.String())
		result.Times = append(result.Times, t)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Switches = r.ctrl.Logic().History()

	return result, nil
}

func (r *Runner) validateConfig(cfg dynamo.RunConfig) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

package hybrid

import "math"

const weightSumTolerance = 1e-6

// Weights blend the per-cycle performance sample recorded for the
// active strategy. They must be non-negative and sum to 1.
type Weights struct {
	TrackingError    float64
	ControlEffort    float64
	SurfaceMagnitude float64
}

func (w Weights) sum() float64 {
	return w.TrackingError + w.ControlEffort + w.SurfaceMagnitude
}

// Tunable is the small runtime-adjustable parameter block. Everything
// else in Config is immutable after construction; Tunable values change
// only through SetTunable, which re-runs validation.
type Tunable struct {
	SmoothingTimeConstant float64
	HysteresisMargin      float64
}

// Config is the validated, immutable configuration of the switching
// core. Validate is called once at construction; a Config that fails
// validation is never used.
type Config struct {
	Mode      HybridMode
	Criterion SwitchingCriterion

	// Thresholds for the surface-magnitude criterion, strictly
	// ascending, at least two entries.
	Thresholds []float64

	HysteresisMargin float64
	MinSwitchingTime float64
	SwitchingPeriod  float64

	PerformanceWindow int
	Weights           Weights

	MaxForce              float64
	SmoothingTimeConstant float64

	PredictionEnabled bool
	PredictionHorizon int

	LearningEnabled bool
}

func DefaultConfig() Config {
	return Config{
		Mode:              ClassicalAdaptive,
		Criterion:         SurfaceMagnitude,
		Thresholds:        []float64{0.1, 1.0},
		HysteresisMargin:  0.02,
		MinSwitchingTime:  0.5,
		SwitchingPeriod:   2.0,
		PerformanceWindow: 50,
		Weights: Weights{
			TrackingError:    0.5,
			ControlEffort:    0.3,
			SurfaceMagnitude: 0.2,
		},
		MaxForce:              100.0,
		SmoothingTimeConstant: 0.05,
		PredictionHorizon:     10,
	}
}

func (c Config) Validate() error {
	if c.Mode.Active() == nil {
		return configErrorf("mode", "unknown mode %d", int(c.Mode))
	}
	if len(c.Thresholds) < 2 {
		return configErrorf("thresholds", "need at least 2, got %d", len(c.Thresholds))
	}
	minGap := math.Inf(1)
	for i := 1; i < len(c.Thresholds); i++ {
		gap := c.Thresholds[i] - c.Thresholds[i-1]
		if gap <= 0 {
			return configErrorf("thresholds", "must be strictly ascending, got %v", c.Thresholds)
		}
		if gap < minGap {
			minGap = gap
		}
	}
	if err := validateTunable(Tunable{c.SmoothingTimeConstant, c.HysteresisMargin}, minGap); err != nil {
		return err
	}
	if c.MinSwitchingTime < 0 {
		return configErrorf("min_switching_time", "must be non-negative, got %g", c.MinSwitchingTime)
	}
	if c.SwitchingPeriod <= 0 {
		return configErrorf("switching_period", "must be positive, got %g", c.SwitchingPeriod)
	}
	if c.PerformanceWindow <= 0 {
		return configErrorf("performance_window", "must be positive, got %d", c.PerformanceWindow)
	}
	if c.Weights.TrackingError < 0 || c.Weights.ControlEffort < 0 || c.Weights.SurfaceMagnitude < 0 {
		return configErrorf("performance_weights", "must be non-negative, got %+v", c.Weights)
	}
	if s := c.Weights.sum(); math.Abs(s-1.0) > weightSumTolerance {
		return configErrorf("performance_weights", "must sum to 1.0, got %g", s)
	}
	if c.MaxForce <= 0 {
		return configErrorf("max_force", "must be positive, got %g", c.MaxForce)
	}
	if c.PredictionEnabled && c.PredictionHorizon < trendFitPoints {
		return configErrorf("prediction_horizon", "must be at least %d, got %d", trendFitPoints, c.PredictionHorizon)
	}
	return nil
}

func validateTunable(t Tunable, minThresholdGap float64) error {
	if t.SmoothingTimeConstant < 0 {
		return configErrorf("smoothing_time_constant", "must be non-negative, got %g", t.SmoothingTimeConstant)
	}
	if t.HysteresisMargin < 0 {
		return configErrorf("hysteresis_margin", "must be non-negative, got %g", t.HysteresisMargin)
	}
	if t.HysteresisMargin >= minThresholdGap {
		return configErrorf("hysteresis_margin",
			"must be smaller than the smallest threshold gap %g, got %g", minThresholdGap, t.HysteresisMargin)
	}
	return nil
}

// minThresholdGap assumes Validate has already passed.
func (c Config) minThresholdGap() float64 {
	gap := math.Inf(1)
	for i := 1; i < len(c.Thresholds); i++ {
		if g := c.Thresholds[i] - c.Thresholds[i-1]; g < gap {
			gap = g
		}
	}
	return gap
}

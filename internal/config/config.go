package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avolkov/hybridsmc/internal/hybrid"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultMaxForce = 100.0
)

type Config struct {
	Mode       string  `yaml:"mode"`
	Criterion  string  `yaml:"criterion"`
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`

	InitState InitStateConfig `yaml:"init_state"`
	Switching SwitchingConfig `yaml:"switching"`
}

type InitStateConfig struct {
	Pos    float64 `yaml:"pos"`
	Theta1 float64 `yaml:"theta1"`
	Theta2 float64 `yaml:"theta2"`
	Vel    float64 `yaml:"vel"`
	Omega1 float64 `yaml:"omega1"`
	Omega2 float64 `yaml:"omega2"`
}

type SwitchingConfig struct {
	Thresholds        []float64     `yaml:"thresholds"`
	HysteresisMargin  float64       `yaml:"hysteresis_margin"`
	MinSwitchingTime  float64       `yaml:"min_switching_time"`
	SwitchingPeriod   float64       `yaml:"switching_period"`
	PerformanceWindow int           `yaml:"performance_window"`
	Weights           WeightsConfig `yaml:"weights"`
	MaxForce          float64       `yaml:"max_force"`
	SmoothingTau      float64       `yaml:"smoothing_tau"`
	PredictionEnabled bool          `yaml:"prediction_enabled"`
	PredictionHorizon int           `yaml:"prediction_horizon"`
	LearningEnabled   bool          `yaml:"learning_enabled"`
}

type WeightsConfig struct {
	TrackingError    float64 `yaml:"tracking_error"`
	ControlEffort    float64 `yaml:"control_effort"`
	SurfaceMagnitude float64 `yaml:"surface_magnitude"`
}

func DefaultConfig() *Config {
	h := hybrid.DefaultConfig()
	return &Config{
		Mode:       h.Mode.String(),
		Criterion:  h.Criterion.String(),
		Integrator: "rk4",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		InitState: InitStateConfig{
			Theta1: 0.15,
			Theta2: -0.1,
		},
		Switching: SwitchingConfig{
			Thresholds:        h.Thresholds,
			HysteresisMargin:  h.HysteresisMargin,
			MinSwitchingTime:  h.MinSwitchingTime,
			SwitchingPeriod:   h.SwitchingPeriod,
			PerformanceWindow: h.PerformanceWindow,
			Weights: WeightsConfig{
				TrackingError:    h.Weights.TrackingError,
				ControlEffort:    h.Weights.ControlEffort,
				SurfaceMagnitude: h.Weights.SurfaceMagnitude,
			},
			MaxForce:          h.MaxForce,
			SmoothingTau:      h.SmoothingTimeConstant,
			PredictionHorizon: h.PredictionHorizon,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ToHybrid maps the file config onto the switching core's validated
// configuration. Validation failures surface here, at construction.
func (c *Config) ToHybrid() (hybrid.Config, error) {
	mode, err := hybrid.ParseHybridMode(c.Mode)
	if err != nil {
		return hybrid.Config{}, err
	}
	crit, err := hybrid.ParseSwitchingCriterion(c.Criterion)
	if err != nil {
		return hybrid.Config{}, err
	}
	h := hybrid.Config{
		Mode:              mode,
		Criterion:         crit,
		Thresholds:        c.Switching.Thresholds,
		HysteresisMargin:  c.Switching.HysteresisMargin,
		MinSwitchingTime:  c.Switching.MinSwitchingTime,
		SwitchingPeriod:   c.Switching.SwitchingPeriod,
		PerformanceWindow: c.Switching.PerformanceWindow,
		Weights: hybrid.Weights{
			TrackingError:    c.Switching.Weights.TrackingError,
			ControlEffort:    c.Switching.Weights.ControlEffort,
			SurfaceMagnitude: c.Switching.Weights.SurfaceMagnitude,
		},
		MaxForce:              c.Switching.MaxForce,
		SmoothingTimeConstant: c.Switching.SmoothingTau,
		PredictionEnabled:     c.Switching.PredictionEnabled,
		PredictionHorizon:     c.Switching.PredictionHorizon,
		LearningEnabled:       c.Switching.LearningEnabled,
	}
	if err := h.Validate(); err != nil {
		return hybrid.Config{}, err
	}
	return h, nil
}

func (c *Config) GetInitState() []float64 {
	s := c.InitState
	return []float64{s.Pos, s.Theta1, s.Theta2, s.Vel, s.Omega1, s.Omega2}
}

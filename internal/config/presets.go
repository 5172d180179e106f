package config

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

var Presets = map[string]*Config{
	"gentle": preset(func(c *Config) {
		c.Mode = "classical_adaptive"
		c.Criterion = "surface_magnitude"
		c.InitState = InitStateConfig{Theta1: 0.1, Theta2: -0.05}
	}),
	"aggressive": preset(func(c *Config) {
		c.Mode = "all"
		c.Criterion = "surface_magnitude"
		c.InitState = InitStateConfig{Theta1: 0.6, Theta2: 0.4, Omega1: 0.5}
		c.Switching.Thresholds = []float64{0.2, 2.0}
		c.Switching.MinSwitchingTime = 0.2
	}),
	"effort_guard": preset(func(c *Config) {
		c.Mode = "classical_supertwisting"
		c.Criterion = "control_effort"
		c.InitState = InitStateConfig{Theta1: 0.4, Theta2: 0.3}
		c.Switching.MaxForce = 40.0
	}),
	"perf_seeking": preset(func(c *Config) {
		c.Mode = "all"
		c.Criterion = "performance_index"
		c.Duration = 30.0
		c.InitState = InitStateConfig{Theta1: 0.3, Theta2: -0.2}
	}),
	"roundrobin": preset(func(c *Config) {
		c.Mode = "all"
		c.Criterion = "time_based"
		c.Switching.SwitchingPeriod = 2.0
		c.Switching.MinSwitchingTime = 0.1
		c.InitState = InitStateConfig{Theta1: 0.2, Theta2: 0.1}
	}),
	"predictive": preset(func(c *Config) {
		c.Mode = "classical_adaptive"
		c.Criterion = "surface_magnitude"
		c.Switching.PredictionEnabled = true
		c.Switching.PredictionHorizon = 10
		c.InitState = InitStateConfig{Theta1: 0.3, Theta2: 0.2}
	}),
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}

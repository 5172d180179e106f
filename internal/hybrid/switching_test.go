package hybrid

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

func testConfig(mutate func(*Config)) Config {
	cfg := Config{
		Mode:              ClassicalAdaptive,
		Criterion:         SurfaceMagnitude,
		Thresholds:        []float64{0.1, 1.0},
		HysteresisMargin:  0,
		MinSwitchingTime:  0,
		SwitchingPeriod:   2.0,
		PerformanceWindow: 20,
		Weights:           Weights{TrackingError: 0.5, ControlEffort: 0.3, SurfaceMagnitude: 0.2},
		MaxForce:          100.0,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return cfg
}

func mustLogic(cfg Config) *SwitchingLogic {
	l, err := NewSwitchingLogic(cfg)
	Expect(err).NotTo(HaveOccurred())
	return l
}

func restState() dynamo.State {
	return dynamo.State{0, 0, 0, 0, 0, 0}
}

func surfaceResult(s ControllerState, surface, u float64) map[ControllerState]dynamo.StrategyOutput {
	return map[ControllerState]dynamo.StrategyOutput{
		s: {U: u, Surface: surface},
	}
}

var _ = Describe("SwitchingLogic", func() {
	Describe("construction", func() {
		It("rejects non-ascending thresholds", func() {
			_, err := NewSwitchingLogic(testConfig(func(c *Config) {
				c.Thresholds = []float64{1.0, 0.1}
			}))
			Expect(err).To(HaveOccurred())

			_, err = NewSwitchingLogic(testConfig(func(c *Config) {
				c.Thresholds = []float64{0.5, 0.5}
			}))
			Expect(err).To(HaveOccurred())
		})

		It("rejects fewer than two thresholds", func() {
			_, err := NewSwitchingLogic(testConfig(func(c *Config) {
				c.Thresholds = []float64{0.5}
			}))
			Expect(err).To(HaveOccurred())
		})

		It("rejects a hysteresis margin as large as the smallest gap", func() {
			_, err := NewSwitchingLogic(testConfig(func(c *Config) {
				c.HysteresisMargin = 0.9
			}))
			Expect(err).To(HaveOccurred())
		})

		It("rejects weights that do not sum to one", func() {
			_, err := NewSwitchingLogic(testConfig(func(c *Config) {
				c.Weights = Weights{TrackingError: 0.5, ControlEffort: 0.5, SurfaceMagnitude: 0.5}
			}))
			Expect(err).To(HaveOccurred())
		})

		It("starts at the first entry of the mode's active list", func() {
			Expect(mustLogic(testConfig(nil)).Current()).To(Equal(Classical))
			Expect(mustLogic(testConfig(func(c *Config) {
				c.Mode = AdaptiveSuperTwisting
			})).Current()).To(Equal(Adaptive))
		})
	})

	Describe("accessors", func() {
		It("is idempotent between cycles", func() {
			l := mustLogic(testConfig(nil))
			first := l.Current()
			for i := 0; i < 5; i++ {
				Expect(l.Current()).To(Equal(first))
			}
		})
	})

	Describe("surface magnitude criterion", func() {
		It("escalates on a large surface and executes the switch", func() {
			// thresholds [0.1, 1.0], classical reports |s| = 1.5
			l := mustLogic(testConfig(nil))

			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Adaptive))
			Expect(d.Confidence).To(BeNumerically(">", 0.6))

			Expect(l.ExecuteSwitch(d, 0.0)).To(BeTrue())
			Expect(l.Current()).NotTo(Equal(Classical))
		})

		It("prefers the most aggressive active law when all are active", func() {
			l := mustLogic(testConfig(func(c *Config) { c.Mode = AllStrategies }))
			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 2.0, 5), 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(SuperTwisting))
		})

		It("de-escalates to classical on a small surface", func() {
			l := mustLogic(testConfig(nil))
			l.current = Adaptive
			d := l.EvaluateSwitching(restState(), surfaceResult(Adaptive, 0.01, 1), 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Classical))
		})

		It("holds inside the hysteresis band", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = AllStrategies
				c.HysteresisMargin = 0.05
			}))
			// just past the high threshold but inside the margin: the
			// mid-band rule applies instead of escalation
			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.02, 5), 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Adaptive))

			d = l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.2, 5), 0.1)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(SuperTwisting))
		})

		It("returns nil when the target equals the current state", func() {
			l := mustLogic(testConfig(nil))
			l.current = Adaptive
			// mid-band proposes adaptive, which is already active
			d := l.EvaluateSwitching(restState(), surfaceResult(Adaptive, 0.5, 1), 0.0)
			Expect(d).To(BeNil())
		})
	})

	Describe("timing gate", func() {
		It("suppresses the second of two closely spaced evaluations", func() {
			l := mustLogic(testConfig(func(c *Config) { c.MinSwitchingTime = 0.5 }))

			// t=0.0 is gated too: no switch has ever executed and the
			// gate covers the settling period
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.0)).To(BeNil())
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.1)).To(BeNil())

			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.6)
			Expect(d).NotTo(BeNil())
		})

		It("never executes a switch inside the minimum interval", func() {
			l := mustLogic(testConfig(func(c *Config) { c.MinSwitchingTime = 0.5 }))
			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 1.0)
			Expect(d).NotTo(BeNil())
			Expect(l.ExecuteSwitch(d, 1.0)).To(BeTrue())

			for _, now := range []float64{1.1, 1.2, 1.4, 1.49} {
				Expect(l.EvaluateSwitching(restState(), surfaceResult(Adaptive, 0.01, 1), now)).To(BeNil())
			}
		})
	})

	Describe("confidence gate", func() {
		It("refuses a switch at or below the gate", func() {
			l := mustLogic(testConfig(nil))
			d := &Decision{Target: Adaptive, Confidence: 0.6}
			Expect(l.ExecuteSwitch(d, 0.0)).To(BeFalse())
			Expect(l.Current()).To(Equal(Classical))

			d.Confidence = 0.61
			Expect(l.ExecuteSwitch(d, 0.0)).To(BeTrue())
			Expect(l.Current()).To(Equal(Adaptive))
		})

		It("refuses a target outside the active set", func() {
			l := mustLogic(testConfig(nil)) // classical_adaptive
			d := &Decision{Target: SuperTwisting, Confidence: 1.0}
			Expect(l.ExecuteSwitch(d, 0.0)).To(BeFalse())
			Expect(l.Current()).To(Equal(Classical))
		})
	})

	Describe("control effort criterion", func() {
		It("proposes classical below the gate and refuses to act on it", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = ClassicalSuperTwisting
				c.Criterion = ControlEffort
				c.MaxForce = 20.0
			}))
			l.current = SuperTwisting

			d := l.EvaluateSwitching(restState(), surfaceResult(SuperTwisting, 0.5, 18), 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Classical))
			Expect(d.Confidence).To(BeNumerically("~", 0.5, 1e-9))

			Expect(l.ExecuteSwitch(d, 0.0)).To(BeFalse())
			Expect(l.Current()).To(Equal(SuperTwisting))
		})

		It("stays silent while effort is under 80% of max force", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = ClassicalSuperTwisting
				c.Criterion = ControlEffort
				c.MaxForce = 20.0
			}))
			l.current = SuperTwisting
			Expect(l.EvaluateSwitching(restState(), surfaceResult(SuperTwisting, 0.5, 15), 0.0)).To(BeNil())
		})
	})

	Describe("tracking error criterion", func() {
		It("escalates when the combined error exceeds the limit", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = AllStrategies
				c.Criterion = TrackingError
			}))
			x := dynamo.State{0.1, 0.08, -0.05, 0, 0, 0} // combined 0.23
			d := l.EvaluateSwitching(x, surfaceResult(Classical, 0.1, 1), 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(SuperTwisting))
			Expect(d.Confidence).To(BeNumerically("~", 1.0, 1e-9)) // min(1, 0.23/0.2)
		})

		It("stays silent near the manifold", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = AllStrategies
				c.Criterion = TrackingError
			}))
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 0.1, 1), 0.0)).To(BeNil())
		})
	})

	Describe("adaptation rate criterion", func() {
		It("hands over to super-twisting when adaptation races", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = AdaptiveSuperTwisting
				c.Criterion = AdaptationRate
			}))
			results := map[ControllerState]dynamo.StrategyOutput{
				Adaptive: {U: 2, Surface: 0.4, Metrics: map[string]float64{"adaptation_rate": 15.0}},
			}
			d := l.EvaluateSwitching(restState(), results, 0.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(SuperTwisting))
			Expect(d.Confidence).To(BeNumerically("~", 0.75, 1e-9))
			Expect(l.ExecuteSwitch(d, 0.0)).To(BeTrue())
		})

		It("only ever fires from the adaptive law", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Mode = AllStrategies
				c.Criterion = AdaptationRate
			}))
			results := map[ControllerState]dynamo.StrategyOutput{
				Classical: {U: 2, Surface: 0.4, Metrics: map[string]float64{"adaptation_rate": 50.0}},
			}
			Expect(l.EvaluateSwitching(restState(), results, 0.0)).To(BeNil())
		})
	})

	Describe("performance index criterion", func() {
		It("needs a full sample set for every candidate", func() {
			l := mustLogic(testConfig(func(c *Config) { c.Criterion = PerformanceIndex }))
			for i := 0; i < 6; i++ {
				// fills only the classical window
				Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 0.5, 1), float64(i))).To(BeNil())
			}
		})

		It("switches to a clearly better candidate", func() {
			l := mustLogic(testConfig(func(c *Config) { c.Criterion = PerformanceIndex }))
			for i := 0; i < 5; i++ {
				l.windows[Classical].Push(1.0)
				l.windows[Adaptive].Push(0.1)
			}
			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 0.5, 1), 10.0)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Adaptive))
			Expect(d.Confidence).To(BeNumerically(">", 0.6))
		})

		It("ignores marginal improvements", func() {
			l := mustLogic(testConfig(func(c *Config) { c.Criterion = PerformanceIndex }))
			for i := 0; i < 5; i++ {
				l.windows[Classical].Push(1.0)
				l.windows[Adaptive].Push(0.95) // not below 0.9x
			}
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 0.5, 1), 10.0)).To(BeNil())
		})
	})

	Describe("time based criterion", func() {
		It("round-robins over the active strategies", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Criterion = TimeBased
				c.MinSwitchingTime = 0.1
			}))

			d := l.EvaluateSwitching(restState(), nil, 2.1)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Adaptive))
			Expect(d.Confidence).To(Equal(1.0))
			Expect(l.ExecuteSwitch(d, 2.1)).To(BeTrue())
			Expect(l.Current()).To(Equal(Adaptive))

			d = l.EvaluateSwitching(restState(), nil, 4.1)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Classical))
			Expect(l.ExecuteSwitch(d, 4.1)).To(BeTrue())
			Expect(l.Current()).To(Equal(Classical))
		})

		It("fires only when the slot changes", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.Criterion = TimeBased
				c.MinSwitchingTime = 0
			}))
			d := l.EvaluateSwitching(restState(), nil, 2.1)
			Expect(d).NotTo(BeNil())
			Expect(l.EvaluateSwitching(restState(), nil, 2.2)).To(BeNil())
			Expect(l.EvaluateSwitching(restState(), nil, 3.9)).To(BeNil())
		})
	})

	Describe("predictive trend gate", func() {
		It("suppresses escalation on a decreasing surface trend", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.PredictionEnabled = true
				c.PredictionHorizon = 10
			}))
			// all samples above the high threshold, but falling
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 3.0, 5), 0.0)).NotTo(BeNil())
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 2.5, 5), 0.1)).NotTo(BeNil())
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 2.0, 5), 0.2)).To(BeNil())
		})

		It("allows escalation on an increasing surface trend", func() {
			l := mustLogic(testConfig(func(c *Config) {
				c.PredictionEnabled = true
				c.PredictionHorizon = 10
			}))
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.0)).NotTo(BeNil())
			Expect(l.EvaluateSwitching(restState(), surfaceResult(Classical, 2.0, 5), 0.1)).NotTo(BeNil())
			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 2.5, 5), 0.2)
			Expect(d).NotTo(BeNil())
			Expect(d.Target).To(Equal(Adaptive))
		})
	})

	Describe("learning log", func() {
		It("records decisions without mutating thresholds", func() {
			l := mustLogic(testConfig(func(c *Config) { c.LearningEnabled = true }))
			before := append([]float64(nil), l.cfg.Thresholds...)

			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.0)
			Expect(d).NotTo(BeNil())

			log := l.AdaptationLog()
			Expect(log).To(HaveLen(1))
			Expect(log[0].Thresholds).To(Equal(before))
			Expect(l.cfg.Thresholds).To(Equal(before))
		})
	})

	Describe("history and stats", func() {
		It("appends one audit record per executed switch", func() {
			l := mustLogic(testConfig(nil))
			d := l.EvaluateSwitching(restState(), surfaceResult(Classical, 1.5, 5), 0.0)
			Expect(l.ExecuteSwitch(d, 0.0)).To(BeTrue())

			hist := l.History()
			Expect(hist).To(HaveLen(1))
			Expect(hist[0].From).To(Equal("classical"))
			Expect(hist[0].To).To(Equal("adaptive"))
			Expect(hist[0].Confidence).To(BeNumerically(">", 0.6))

			stats := l.Stats()
			Expect(stats.TotalSwitches).To(Equal(1))
			Expect(stats.Current).To(Equal("adaptive"))
			Expect(stats.ByTarget["adaptive"]).To(Equal(1))
		})
	})

	Describe("invariants", func() {
		It("keeps the current state inside the mode's active set", func() {
			for _, mode := range []HybridMode{ClassicalAdaptive, ClassicalSuperTwisting, AdaptiveSuperTwisting, AllStrategies} {
				l := mustLogic(testConfig(func(c *Config) { c.Mode = mode }))
				surfaces := []float64{1.5, 0.01, 2.5, 0.5, 3.0, 0.02}
				for i, s := range surfaces {
					now := float64(i)
					d := l.EvaluateSwitching(restState(), surfaceResult(l.Current(), s, 5), now)
					l.ExecuteSwitch(d, now)
					Expect(mode.Contains(l.Current())).To(BeTrue())
				}
			}
		})
	})

	Describe("tunable block", func() {
		It("re-validates on update", func() {
			l := mustLogic(testConfig(nil))
			Expect(l.SetTunable(Tunable{SmoothingTimeConstant: 0.1, HysteresisMargin: 0.9})).To(HaveOccurred())
			Expect(l.SetTunable(Tunable{SmoothingTimeConstant: -1, HysteresisMargin: 0})).To(HaveOccurred())
			Expect(l.SetTunable(Tunable{SmoothingTimeConstant: 0.1, HysteresisMargin: 0.05})).To(Succeed())
			Expect(l.tun.HysteresisMargin).To(Equal(0.05))
		})
	})
})

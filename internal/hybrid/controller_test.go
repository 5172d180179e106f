package hybrid

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

type stubStrategy struct {
	name string
	fn   func(x dynamo.State) (dynamo.StrategyOutput, error)
}

func (s *stubStrategy) Name() string { return s.name }
func (s *stubStrategy) Compute(x dynamo.State) (dynamo.StrategyOutput, error) {
	return s.fn(x)
}

func constant(name string, u, surface float64) *stubStrategy {
	return &stubStrategy{name: name, fn: func(dynamo.State) (dynamo.StrategyOutput, error) {
		return dynamo.StrategyOutput{U: u, Surface: surface}, nil
	}}
}

func stubSet(classical, adaptive *stubStrategy) map[ControllerState]dynamo.Strategy {
	return map[ControllerState]dynamo.Strategy{
		Classical: classical,
		Adaptive:  adaptive,
	}
}

var _ = Describe("Controller", func() {
	Describe("construction", func() {
		It("fails when an active strategy is missing", func() {
			_, err := NewController(testConfig(nil), map[ControllerState]dynamo.Strategy{
				Classical: constant("classical", 1, 0.1),
			})
			Expect(err).To(HaveOccurred())
			var cfgErr *ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("fails on an invalid configuration", func() {
			_, err := NewController(testConfig(func(c *Config) { c.MaxForce = 0 }),
				stubSet(constant("classical", 1, 0.1), constant("adaptive", 1, 0.1)))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("one control cycle", func() {
		It("selects the active strategy's output and saturates it", func() {
			c, err := NewController(testConfig(func(cfg *Config) { cfg.MaxForce = 10 }),
				stubSet(constant("classical", 50, 0.05), constant("adaptive", 2, 0.05)))
			Expect(err).NotTo(HaveOccurred())

			res := c.ComputeControl(restState(), 0.01)
			Expect(res.SafeMode).To(BeFalse())
			Expect(res.Active).To(Equal(Classical))
			Expect(res.Raw).To(Equal(50.0))
			Expect(res.U).To(Equal(10.0))
			Expect(res.Outputs).To(HaveKeyWithValue("classical", 50.0))
			Expect(res.Outputs).To(HaveKeyWithValue("adaptive", 2.0))
		})

		It("switches and bypasses smoothing on the switch cycle", func() {
			c, err := NewController(testConfig(func(cfg *Config) {
				cfg.SmoothingTimeConstant = 0.5
			}), stubSet(constant("classical", 1, 1.5), constant("adaptive", -8, 1.5)))
			Expect(err).NotTo(HaveOccurred())

			res := c.ComputeControl(restState(), 0.01)
			Expect(res.Switched).To(BeTrue())
			Expect(res.Active).To(Equal(Adaptive))
			// filter reset: the freshly selected output passes through
			Expect(res.U).To(Equal(-8.0))

			// subsequent cycles smooth again
			res = c.ComputeControl(restState(), 0.01)
			Expect(res.Switched).To(BeFalse())
			Expect(res.U).To(Equal(-8.0))
		})
	})

	Describe("failure containment", func() {
		It("substitutes zero for an erroring strategy and flags it", func() {
			failing := &stubStrategy{name: "classical", fn: func(dynamo.State) (dynamo.StrategyOutput, error) {
				return dynamo.StrategyOutput{}, errors.New("matrix singular")
			}}
			c, err := NewController(testConfig(nil), stubSet(failing, constant("adaptive", 2, 0.5)))
			Expect(err).NotTo(HaveOccurred())

			res := c.ComputeControl(restState(), 0.01)
			Expect(res.SafeMode).To(BeFalse())
			Expect(res.Degraded).To(ConsistOf("classical"))
			Expect(res.U).To(Equal(0.0))
		})

		It("contains a panicking strategy", func() {
			panicking := &stubStrategy{name: "adaptive", fn: func(dynamo.State) (dynamo.StrategyOutput, error) {
				panic("gain blew up")
			}}
			c, err := NewController(testConfig(nil), stubSet(constant("classical", 1, 0.05), panicking))
			Expect(err).NotTo(HaveOccurred())

			res := c.ComputeControl(restState(), 0.01)
			Expect(res.SafeMode).To(BeFalse())
			Expect(res.Degraded).To(ConsistOf("adaptive"))
			Expect(res.U).To(Equal(1.0))
		})

		It("rejects non-finite strategy output", func() {
			naughty := &stubStrategy{name: "classical", fn: func(dynamo.State) (dynamo.StrategyOutput, error) {
				return dynamo.StrategyOutput{U: math.NaN()}, nil
			}}
			c, err := NewController(testConfig(nil), stubSet(naughty, constant("adaptive", 2, 0.5)))
			Expect(err).NotTo(HaveOccurred())

			res := c.ComputeControl(restState(), 0.01)
			Expect(res.Degraded).To(ConsistOf("classical"))
			Expect(res.U).To(Equal(0.0))
		})

		It("degrades to safe mode on an internal fault", func() {
			c, err := NewController(testConfig(nil),
				stubSet(constant("classical", 1, 0.5), constant("adaptive", 2, 0.5)))
			Expect(err).NotTo(HaveOccurred())

			c.filter = nil // simulate internal corruption
			res := c.ComputeControl(restState(), 0.01)
			Expect(res.SafeMode).To(BeTrue())
			Expect(res.U).To(Equal(0.0))
			Expect(res.Message).NotTo(BeEmpty())
		})
	})

	Describe("history", func() {
		It("caps the buffer and keeps the most recent entries", func() {
			c, err := NewController(testConfig(nil),
				stubSet(constant("classical", 1, 0.5), constant("adaptive", 2, 0.5)))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 1100; i++ {
				c.ComputeControl(restState(), 0.01)
			}

			hist := c.History()
			Expect(len(hist)).To(BeNumerically("<=", historyCap))
			// overflow at 1001 truncates to 500; 99 more follow
			Expect(hist).To(HaveLen(599))
			Expect(hist[len(hist)-1].Time).To(BeNumerically("~", 11.0, 1e-6))
		})
	})

	Describe("tunable propagation", func() {
		It("pushes the smoothing constant into the filter", func() {
			c, err := NewController(testConfig(nil),
				stubSet(constant("classical", 1, 0.5), constant("adaptive", 2, 0.5)))
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetTunable(Tunable{SmoothingTimeConstant: 0.2, HysteresisMargin: 0.01})).To(Succeed())
			Expect(c.filter.tau).To(Equal(0.2))

			Expect(c.SetTunable(Tunable{SmoothingTimeConstant: -1})).To(HaveOccurred())
		})
	})
})

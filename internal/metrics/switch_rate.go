package metrics

import (
	"github.com/avolkov/hybridsmc/internal/dynamo"
)

// SwitchRate reports executed strategy switches per simulated second.
// It reads the count through a callback so the metric stays decoupled
// from the switching core.
type SwitchRate struct {
	name    string
	count   func() int
	firstT  float64
	lastT   float64
	samples int
}

func NewSwitchRate(count func() int) *SwitchRate {
	return &SwitchRate{
		name:  "switch_rate",
		count: count,
	}
}

func (m *SwitchRate) Name() string {
	return m.name
}

func (m *SwitchRate) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if m.samples == 0 {
		m.firstT = t
	}
	m.lastT = t
	m.samples++
}

func (m *SwitchRate) Value() float64 {
	elapsed := m.lastT - m.firstT
	if elapsed <= 0 || m.count == nil {
		return 0
	}
	return float64(m.count()) / elapsed
}

func (m *SwitchRate) Reset() {
	m.firstT = 0
	m.lastT = 0
	m.samples = 0
}

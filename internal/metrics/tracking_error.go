package metrics

import (
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

// TrackingError averages the combined cart-position and joint-angle
// magnitude over a run. State convention: the first half of the vector
// holds positions, index 0 being the cart.
type TrackingError struct {
	name    string
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{
		name: "tracking_error",
	}
}

func (m *TrackingError) Name() string {
	return m.name
}

func (m *TrackingError) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) == 0 {
		return
	}
	err := math.Abs(x[0])
	for i := 1; i < len(x)/2; i++ {
		err += math.Abs(x[i])
	}
	m.sum += err
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *TrackingError) Reset() {
	m.sum = 0
	m.samples = 0
}

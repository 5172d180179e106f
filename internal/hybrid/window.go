package hybrid

// trendFitPoints is the number of recent samples the least-squares
// slope is fitted over.
const trendFitPoints = 3

// PerformanceWindow is a bounded FIFO of scalar weighted-performance
// samples for one strategy. Lower samples mean better performance.
type PerformanceWindow struct {
	samples []float64
	cap     int
}

func NewPerformanceWindow(capacity int) *PerformanceWindow {
	return &PerformanceWindow{
		samples: make([]float64, 0, capacity),
		cap:     capacity,
	}
}

func (w *PerformanceWindow) Push(v float64) {
	if len(w.samples) == w.cap {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.cap-1]
	}
	w.samples = append(w.samples, v)
}

func (w *PerformanceWindow) Len() int { return len(w.samples) }

// MeanLast averages the most recent n samples. It returns (0, false)
// when fewer than n samples have been recorded.
func (w *PerformanceWindow) MeanLast(n int) (float64, bool) {
	if len(w.samples) < n || n <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range w.samples[len(w.samples)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// trendBuffer is a fixed-capacity ring of recent surface magnitudes
// used by the predictive gate.
type trendBuffer struct {
	buf   []float64
	head  int
	count int
}

func newTrendBuffer(capacity int) *trendBuffer {
	return &trendBuffer{buf: make([]float64, capacity)}
}

func (b *trendBuffer) push(v float64) {
	b.buf[b.head] = v
	b.head = (b.head + 1) % len(b.buf)
	if b.count < len(b.buf) {
		b.count++
	}
}

// lastN returns the most recent n entries, oldest first.
func (b *trendBuffer) lastN(n int) []float64 {
	if n > b.count {
		n = b.count
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := (b.head - n + i + len(b.buf)) % len(b.buf)
		out[i] = b.buf[idx]
	}
	return out
}

// slope fits a closed-form least-squares line over the last
// trendFitPoints entries and returns its slope. The boolean is false
// until enough samples exist. Sample spacing is treated as uniform, so
// the slope's sign is all that is meaningful.
func (b *trendBuffer) slope() (float64, bool) {
	pts := b.lastN(trendFitPoints)
	if len(pts) < trendFitPoints {
		return 0, false
	}
	// x = 0..n-1; slope = sum((x-mx)(y-my)) / sum((x-mx)^2)
	n := float64(len(pts))
	mx := (n - 1) / 2
	my := 0.0
	for _, y := range pts {
		my += y
	}
	my /= n
	num, den := 0.0, 0.0
	for i, y := range pts {
		dx := float64(i) - mx
		num += dx * (y - my)
		den += dx * dx
	}
	return num / den, true
}

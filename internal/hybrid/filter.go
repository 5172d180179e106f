package hybrid

// TransitionFilter is a first-order exponential smoother applied to
// the selected control output across strategy switches:
//
//	y = alpha*u + (1-alpha)*prev,  alpha = dt/(tau+dt)
//
// A time constant tau <= 0 disables smoothing entirely. On the cycle a
// switch executes the filter is reset, so the first post-switch sample
// passes through unsmoothed; one law's output never blends with an
// unrelated one's.
type TransitionFilter struct {
	tau    float64
	prev   float64
	primed bool
}

func NewTransitionFilter(tau float64) *TransitionFilter {
	return &TransitionFilter{tau: tau}
}

// SetTimeConstant changes tau. It takes effect on the next sample.
func (f *TransitionFilter) SetTimeConstant(tau float64) { f.tau = tau }

// Reset drops the filter memory; the next sample passes through.
func (f *TransitionFilter) Reset() { f.primed = false }

func (f *TransitionFilter) Filter(u, dt float64) float64 {
	if f.tau <= 0 {
		f.prev = u
		f.primed = true
		return u
	}
	if !f.primed || dt <= 0 {
		f.prev = u
		f.primed = true
		return u
	}
	alpha := dt / (f.tau + dt)
	f.prev = alpha*u + (1-alpha)*f.prev
	return f.prev
}

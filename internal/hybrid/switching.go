package hybrid

import (
	"fmt"
	"math"

	"github.com/avolkov/hybridsmc/internal/dynamo"
)

const (
	// confidenceGate is the minimum decision confidence required
	// before a switch executes. The comparison is strict.
	confidenceGate = 0.6

	// effortFraction of MaxForce above which the control-effort
	// criterion de-escalates to the classical law.
	effortFraction = 0.8

	// trackingErrorLimit is the combined position+angle error above
	// which the tracking-error criterion escalates.
	trackingErrorLimit = 0.1

	// adaptationRateLimit is the reported adaptation rate above which
	// the adaptive law hands over to super-twisting.
	adaptationRateLimit = 10.0

	// perfSampleCount is the number of recent window samples averaged
	// by the performance-index criterion.
	perfSampleCount = 5

	// perfImprovementFactor: a candidate must beat the active law's
	// windowed mean by this factor before a switch is proposed.
	perfImprovementFactor = 0.9
)

// SwitchingLogic owns the active-strategy state machine. It evaluates
// the configured switching criterion once per cycle behind timing and
// hysteresis gates, and records switch history, rolling performance
// windows and (optionally) an adaptation log for offline threshold
// analysis.
type SwitchingLogic struct {
	cfg Config
	tun Tunable

	active  []ControllerState
	current ControllerState

	lastSwitchTime float64
	lastSlot       int

	windows [numControllerStates]*PerformanceWindow
	trend   *trendBuffer

	history  []SwitchRecord
	adaptLog []AdaptationRecord
	confSum  float64
}

// NewSwitchingLogic validates cfg and builds the state machine. The
// initial state is the first entry of the mode's active list.
func NewSwitchingLogic(cfg Config) (*SwitchingLogic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &SwitchingLogic{
		cfg:      cfg,
		tun:      Tunable{cfg.SmoothingTimeConstant, cfg.HysteresisMargin},
		active:   cfg.Mode.Active(),
		lastSlot: -1,
	}
	l.current = l.active[0]
	for _, s := range l.active {
		l.windows[s] = NewPerformanceWindow(cfg.PerformanceWindow)
	}
	horizon := cfg.PredictionHorizon
	if horizon < trendFitPoints {
		horizon = trendFitPoints
	}
	l.trend = newTrendBuffer(horizon)
	return l, nil
}

// Current returns the active controller state. Pure accessor.
func (l *SwitchingLogic) Current() ControllerState { return l.current }

// LastSwitchTime returns the time of the last executed switch. It is
// zero until the first switch, so the timing gate also covers the
// session's settling period.
func (l *SwitchingLogic) LastSwitchTime() float64 { return l.lastSwitchTime }

// SetTunable replaces the runtime-tunable block after re-validating it
// against the immutable base configuration.
func (l *SwitchingLogic) SetTunable(t Tunable) error {
	if err := validateTunable(t, l.cfg.minThresholdGap()); err != nil {
		return err
	}
	l.tun = t
	return nil
}

func (l *SwitchingLogic) isActive(s ControllerState) bool {
	for _, a := range l.active {
		if a == s {
			return true
		}
	}
	return false
}

// EvaluateSwitching runs one decision cycle. It returns nil when no
// strategy change is warranted, which is the normal outcome of the
// timing and hysteresis gates rather than an error.
func (l *SwitchingLogic) EvaluateSwitching(x dynamo.State, results map[ControllerState]dynamo.StrategyOutput, now float64) *Decision {
	if now-l.lastSwitchTime < l.cfg.MinSwitchingTime {
		return nil
	}

	res, ok := results[l.current]
	if ok {
		l.recordPerformance(x, res)
		if l.cfg.PredictionEnabled {
			l.trend.push(math.Abs(res.Surface))
		}
	}

	var d *Decision
	switch l.cfg.Criterion {
	case SurfaceMagnitude:
		d = l.evalSurfaceMagnitude(res, now)
	case ControlEffort:
		d = l.evalControlEffort(res, now)
	case TrackingError:
		d = l.evalTrackingError(x, now)
	case AdaptationRate:
		d = l.evalAdaptationRate(res, now)
	case PerformanceIndex:
		d = l.evalPerformanceIndex(now)
	case TimeBased:
		d = l.evalTimeBased(now)
	}
	if d == nil {
		return nil
	}

	if l.cfg.PredictionEnabled && !l.trendSupports(d.Target) {
		return nil
	}
	if l.cfg.LearningEnabled {
		l.adaptLog = append(l.adaptLog, AdaptationRecord{
			Time:       now,
			Target:     d.Target,
			Reason:     d.Reason,
			Confidence: d.Confidence,
			Thresholds: append([]float64(nil), l.cfg.Thresholds...),
			Metrics:    copyMetrics(d.Metrics),
		})
	}
	return d
}

// recordPerformance pushes the active law's weighted sample into its
// rolling window. Lower is better.
func (l *SwitchingLogic) recordPerformance(x dynamo.State, res dynamo.StrategyOutput) {
	w := l.cfg.Weights
	sample := w.TrackingError*combinedError(x) +
		w.ControlEffort*math.Abs(res.U) +
		w.SurfaceMagnitude*math.Abs(res.Surface)
	l.windows[l.current].Push(sample)
}

// combinedError sums the cart position magnitude with the joint-angle
// magnitudes. The first half of the state vector holds positions; the
// leading entry is the cart, the rest of that half are angles.
func combinedError(x dynamo.State) float64 {
	if len(x) == 0 {
		return 0
	}
	err := math.Abs(x[0])
	for i := 1; i < len(x)/2; i++ {
		err += math.Abs(x[i])
	}
	return err
}

// trendSupports applies the predictive gate: escalating to a more
// aggressive law requires an increasing surface trend, de-escalating a
// decreasing one. With fewer than three samples no slope can be fitted
// and the decision passes through.
func (l *SwitchingLogic) trendSupports(target ControllerState) bool {
	slope, ok := l.trend.slope()
	if !ok {
		return true
	}
	if target.aggressiveness() > l.current.aggressiveness() {
		return slope > 0
	}
	return slope < 0
}

func (l *SwitchingLogic) evalSurfaceMagnitude(res dynamo.StrategyOutput, now float64) *Decision {
	m := math.Abs(res.Surface)
	tLow := l.cfg.Thresholds[0]
	tHigh := l.cfg.Thresholds[len(l.cfg.Thresholds)-1]
	h := l.tun.HysteresisMargin

	var target ControllerState
	found := false
	switch {
	case m > tHigh+h:
		// most aggressive active law
		for _, cand := range []ControllerState{SuperTwisting, Adaptive} {
			if l.isActive(cand) {
				target, found = cand, true
				break
			}
		}
	case m < tLow-h:
		if l.isActive(Classical) {
			target, found = Classical, true
		}
	default:
		if l.isActive(Adaptive) {
			target, found = Adaptive, true
		}
	}
	if !found || target == l.current {
		return nil
	}

	// Confidence grows with distance to the nearest threshold,
	// normalized by half the threshold span.
	minDist := math.Inf(1)
	for _, t := range l.cfg.Thresholds {
		if d := math.Abs(m - t); d < minDist {
			minDist = d
		}
	}
	conf := clamp01(minDist / (0.5 * (tHigh - tLow)))

	return &Decision{
		Target:     target,
		Reason:     fmt.Sprintf("surface magnitude %.4f vs band [%.4f, %.4f]", m, tLow, tHigh),
		Confidence: conf,
		Metrics:    map[string]float64{"surface_magnitude": m},
		Timestamp:  now,
	}
}

func (l *SwitchingLogic) evalControlEffort(res dynamo.StrategyOutput, now float64) *Decision {
	uAbs := math.Abs(res.U)
	limit := effortFraction * l.cfg.MaxForce
	if uAbs <= limit {
		return nil
	}
	if !l.isActive(Classical) || l.current == Classical {
		return nil
	}
	conf := clamp01((uAbs - limit) / ((1 - effortFraction) * l.cfg.MaxForce))
	return &Decision{
		Target:     Classical,
		Reason:     fmt.Sprintf("control effort %.2f above %.0f%% of max force", uAbs, effortFraction*100),
		Confidence: conf,
		Metrics:    map[string]float64{"control_effort": uAbs},
		Timestamp:  now,
	}
}

func (l *SwitchingLogic) evalTrackingError(x dynamo.State, now float64) *Decision {
	errMag := combinedError(x)
	if errMag <= trackingErrorLimit {
		return nil
	}
	var target ControllerState
	found := false
	for _, cand := range []ControllerState{SuperTwisting, Adaptive} {
		if l.isActive(cand) && cand != l.current {
			target, found = cand, true
			break
		}
	}
	if !found {
		return nil
	}
	return &Decision{
		Target:     target,
		Reason:     fmt.Sprintf("tracking error %.4f above %.2f", errMag, trackingErrorLimit),
		Confidence: math.Min(1, errMag/(2*trackingErrorLimit)),
		Metrics:    map[string]float64{"tracking_error": errMag},
		Timestamp:  now,
	}
}

func (l *SwitchingLogic) evalAdaptationRate(res dynamo.StrategyOutput, now float64) *Decision {
	if l.current != Adaptive {
		return nil
	}
	rate := res.Metrics["adaptation_rate"]
	if rate <= adaptationRateLimit {
		return nil
	}
	if !l.isActive(SuperTwisting) {
		return nil
	}
	return &Decision{
		Target:     SuperTwisting,
		Reason:     fmt.Sprintf("adaptation rate %.2f above %.1f", rate, adaptationRateLimit),
		Confidence: math.Min(1, rate/(2*adaptationRateLimit)),
		Metrics:    map[string]float64{"adaptation_rate": rate},
		Timestamp:  now,
	}
}

func (l *SwitchingLogic) evalPerformanceIndex(now float64) *Decision {
	currentMean, ok := l.windows[l.current].MeanLast(perfSampleCount)
	if !ok {
		return nil
	}
	best := l.current
	bestMean := currentMean
	for _, s := range l.active {
		mean, ok := l.windows[s].MeanLast(perfSampleCount)
		if !ok {
			// every candidate needs a full sample set
			return nil
		}
		if mean < bestMean {
			best, bestMean = s, mean
		}
	}
	if best == l.current || bestMean >= currentMean*perfImprovementFactor {
		return nil
	}
	improvement := 0.0
	if currentMean > 0 {
		improvement = (currentMean - bestMean) / currentMean
	}
	return &Decision{
		Target:     best,
		Reason:     fmt.Sprintf("windowed mean %.4f beats active %.4f", bestMean, currentMean),
		Confidence: math.Min(1, improvement/0.5),
		Metrics: map[string]float64{
			"best_mean":    bestMean,
			"current_mean": currentMean,
		},
		Timestamp: now,
	}
}

func (l *SwitchingLogic) evalTimeBased(now float64) *Decision {
	slot := int(math.Floor(now/l.cfg.SwitchingPeriod)) % len(l.active)
	if slot == l.lastSlot {
		return nil
	}
	l.lastSlot = slot
	target := l.active[slot]
	if target == l.current {
		return nil
	}
	return &Decision{
		Target:     target,
		Reason:     fmt.Sprintf("round-robin slot %d", slot),
		Confidence: 1.0,
		Timestamp:  now,
	}
}

// ExecuteSwitch applies a decision. It refuses — returning false with
// no state mutation — unless the confidence strictly exceeds the gate
// and the target is an active strategy other than the current one.
func (l *SwitchingLogic) ExecuteSwitch(d *Decision, now float64) bool {
	if d == nil || d.Confidence <= confidenceGate {
		return false
	}
	if !l.isActive(d.Target) || d.Target == l.current {
		return false
	}
	l.history = append(l.history, SwitchRecord{
		Time:       now,
		From:       l.current.String(),
		To:         d.Target.String(),
		Reason:     d.Reason,
		Confidence: d.Confidence,
		Metrics:    copyMetrics(d.Metrics),
	})
	l.current = d.Target
	l.lastSwitchTime = now
	l.confSum += d.Confidence
	return true
}

// History returns a copy of the switch audit log.
func (l *SwitchingLogic) History() []SwitchRecord {
	return append([]SwitchRecord(nil), l.history...)
}

// AdaptationLog returns a copy of the recorded learning entries.
func (l *SwitchingLogic) AdaptationLog() []AdaptationRecord {
	return append([]AdaptationRecord(nil), l.adaptLog...)
}

func (l *SwitchingLogic) Stats() Stats {
	s := Stats{
		TotalSwitches:  len(l.history),
		LastSwitchTime: l.lastSwitchTime,
		Current:        l.current.String(),
		ByTarget:       make(map[string]int),
	}
	for _, r := range l.history {
		s.ByTarget[r.To]++
	}
	if len(l.history) > 0 {
		s.MeanConfidence = l.confSum / float64(len(l.history))
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

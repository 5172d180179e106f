package hybrid

import "fmt"

// ControllerState identifies one control law of the hybrid set.
// Exactly one is active at any time.
type ControllerState int

const (
	Classical ControllerState = iota
	Adaptive
	SuperTwisting

	numControllerStates
)

func (s ControllerState) String() string {
	switch s {
	case Classical:
		return "classical"
	case Adaptive:
		return "adaptive"
	case SuperTwisting:
		return "supertwisting"
	default:
		return fmt.Sprintf("controller(%d)", int(s))
	}
}

// aggressiveness orders the laws from gentle to aggressive. The
// predictive trend gate uses it to tell escalation from de-escalation.
func (s ControllerState) aggressiveness() int { return int(s) }

// ParseControllerState maps a config string to its enum value.
func ParseControllerState(name string) (ControllerState, error) {
	switch name {
	case "classical":
		return Classical, nil
	case "adaptive":
		return Adaptive, nil
	case "supertwisting", "super_twisting", "sta":
		return SuperTwisting, nil
	default:
		return 0, fmt.Errorf("unknown controller state %q", name)
	}
}

// HybridMode names which strategies are combined. The first entry of a
// mode's active list is the initial ControllerState.
type HybridMode int

const (
	ClassicalAdaptive HybridMode = iota
	ClassicalSuperTwisting
	AdaptiveSuperTwisting
	AllStrategies
)

var modeActive = [...][]ControllerState{
	ClassicalAdaptive:      {Classical, Adaptive},
	ClassicalSuperTwisting: {Classical, SuperTwisting},
	AdaptiveSuperTwisting:  {Adaptive, SuperTwisting},
	AllStrategies:          {Classical, Adaptive, SuperTwisting},
}

// Active returns the ordered strategy list for the mode. The returned
// slice is shared; callers must not mutate it.
func (m HybridMode) Active() []ControllerState {
	if m < 0 || int(m) >= len(modeActive) {
		return nil
	}
	return modeActive[m]
}

func (m HybridMode) Contains(s ControllerState) bool {
	for _, a := range m.Active() {
		if a == s {
			return true
		}
	}
	return false
}

func (m HybridMode) String() string {
	switch m {
	case ClassicalAdaptive:
		return "classical_adaptive"
	case ClassicalSuperTwisting:
		return "classical_supertwisting"
	case AdaptiveSuperTwisting:
		return "adaptive_supertwisting"
	case AllStrategies:
		return "all"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseHybridMode(name string) (HybridMode, error) {
	switch name {
	case "classical_adaptive":
		return ClassicalAdaptive, nil
	case "classical_supertwisting":
		return ClassicalSuperTwisting, nil
	case "adaptive_supertwisting":
		return AdaptiveSuperTwisting, nil
	case "all":
		return AllStrategies, nil
	default:
		return 0, fmt.Errorf("unknown hybrid mode %q", name)
	}
}

// SwitchingCriterion selects the decision policy used by
// SwitchingLogic.
type SwitchingCriterion int

const (
	SurfaceMagnitude SwitchingCriterion = iota
	ControlEffort
	TrackingError
	AdaptationRate
	PerformanceIndex
	TimeBased
)

func (c SwitchingCriterion) String() string {
	switch c {
	case SurfaceMagnitude:
		return "surface_magnitude"
	case ControlEffort:
		return "control_effort"
	case TrackingError:
		return "tracking_error"
	case AdaptationRate:
		return "adaptation_rate"
	case PerformanceIndex:
		return "performance_index"
	case TimeBased:
		return "time_based"
	default:
		return fmt.Sprintf("criterion(%d)", int(c))
	}
}

func ParseSwitchingCriterion(name string) (SwitchingCriterion, error) {
	switch name {
	case "surface_magnitude":
		return SurfaceMagnitude, nil
	case "control_effort":
		return ControlEffort, nil
	case "tracking_error":
		return TrackingError, nil
	case "adaptation_rate":
		return AdaptationRate, nil
	case "performance_index":
		return PerformanceIndex, nil
	case "time_based":
		return TimeBased, nil
	default:
		return 0, fmt.Errorf("unknown switching criterion %q", name)
	}
}

// Package hybrid implements the supervisory switching core of the
// hybrid sliding-mode controller. Once per control cycle it selects
// which of the configured control laws drives the actuator, decides
// when to change that selection, and smooths the transition.
//
// The moving parts, leaves first:
//
//   - [TransitionFilter]: first-order exponential smoother applied to
//     the selected output across switches
//   - [SwitchingLogic]: owns the active-strategy state, evaluates one
//     of six switching criteria behind hysteresis and timing gates,
//     and records the audit history and rolling performance windows
//   - [Controller]: per-cycle orchestrator with per-strategy failure
//     containment, saturation, and a safe-mode fallback
//
// A misbehaving control law must never crash or destabilize the loop:
// strategy panics and errors are contained per cycle, and any fault in
// the orchestrator itself degrades to a zero-output safe-mode result.
package hybrid

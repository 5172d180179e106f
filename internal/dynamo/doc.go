// Package dynamo provides the core primitives shared across the
// hybrid sliding-mode control loop.
//
// The package defines the fundamental contracts the rest of the module
// is built on:
//
//   - [State]: vector representing plant state
//   - [System]: interface for plant dynamics (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Strategy]: a single control law producing a force and a
//     sliding-surface diagnostic
//   - [Metric]: streaming performance metric observed once per step
//
// # Thread Safety
//
// Nothing in this package is thread-safe. One real-time loop owns one
// controller instance; concurrent callers must serialize externally.
package dynamo

// Package matching implements the task assignment engine.
//
// The engine scores every (available user, pending task) pair with a
// weighted sum of skill overlap, experience and workload headroom, then
// resolves assignments greedily from the highest score down while tracking
// the workload each user takes on during the run. Every resolved task gets a
// priority bucket, a deadline estimate in business days and a confidence
// value; unresolved tasks are reported as unassigned with zero confidence.
//
// All functions are pure: inputs are never mutated and no state is kept
// between calls, so a Service may be shared between goroutines.
package matching

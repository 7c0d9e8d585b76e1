// Package sequencing implements the SCORM 2004 sequencing and navigation
// engine: the three canonical processes (navigation request, sequencing
// request, rollup) plus the navigation handler that serializes one
// learner attempt.
//
// ARCHITECTURE:
//
// Pure Decision Core:
// Engine methods compute deliveries from the activity tree and a
// navigation request. They mutate only tree tracking state and the
// current/suspended pointers - no I/O, no sessions, no locks. This keeps
// every rule decision unit-testable node by node.
//
// Single-Attempt Serialization:
// Attempt wraps the engine with the per-attempt mutex. All mutating
// operations against one attempt (session terminate hooks, rollup,
// ProcessNavigationRequest) run under that lock; independent attempts
// share no mutable state and run fully in parallel.
//
// Deterministic Traversal:
// Flow and rollup are iterative work-list algorithms over the arena's
// document order. Rules evaluate in declaration order. No randomness, no
// recursion, no wall-clock dependence.
package sequencing

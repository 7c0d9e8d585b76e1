// Package rte implements the SCORM 2004 run-time environment API surface:
// the per-attempt Session state machine and the numeric error-code register
// content polls through GetLastError.
//
// BOUNDARY CONTRACT:
//
// Content only ever receives strings and booleans. No method on Session
// returns a Go error or panics across the API boundary; every call resets
// the error register to NoError and records a specific code on failure,
// exactly as the RTE conformance requirements demand.
//
// State machine: NotInitialized -> Running -> Terminated, strictly
// monotonic. Each API method is valid in exactly the states the code table
// describes; invalid calls fail with the state-specific code and leave the
// session state unchanged.
//
// Storage is delegated to cmi.DataModel. Sequencing reactions to
// Terminate (rollup, pending navigation) are injected via TerminateHook so
// this package stays free of tree knowledge.
package rte

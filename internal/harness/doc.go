// Package harness runs YAML-defined conformance scenarios against the
// full runtime: course loading, activity tree construction, the
// navigation handler and the RTE session API, backed by a fresh
// in-memory store per scenario.
//
// A scenario is a sequence of steps. Navigation steps issue host
// requests (start, continue, choice, ...), API steps drive the current
// session's RTE calls (Initialize, SetValue, Terminate, ...), and a
// resolve step consumes whatever navigation the terminated session left
// behind. Every step appends to an ordered trace stamped with
// deterministic sequence numbers, so the same scenario always produces
// a byte-identical trace suitable for golden comparison (see
// RunWithGolden).
//
// Expect clauses on steps and final assertions on tracking state,
// navigation availability and persisted attempts turn a scenario into a
// self-checking conformance case.
package harness

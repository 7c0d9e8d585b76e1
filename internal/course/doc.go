// Package course loads author-defined course structure files: the input
// the manifest-parsing collaborator hands to the runtime.
//
// A course file is YAML, decoded strictly (unknown fields are typos and
// rejected), then validated against the embedded CUE schema before being
// compiled into an activity tree definition plus data model seeds. Schema
// validation catches vocabulary mistakes (bad condition names, rollup
// actions, control mode fields) with field paths; the activity builder
// enforces the structural invariants on top.
package course

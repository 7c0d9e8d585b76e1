// Package activity defines the activity tree: the author-defined hierarchy
// of clusters and SCOs, their control modes, sequencing and rollup rule
// definitions, limit conditions, and per-activity tracking state.
//
// ARCHITECTURE:
//
// Flat Arena:
// Activities live in a single slice indexed by integer id; parent/child
// relationships are index lists, never pointers. The builder assigns
// indices in document (preorder) order, so index order IS document order.
// This eliminates ownership cycles and makes traversal order trivial to
// reason about and test.
//
// Construction:
// Build validates the manifest collaborator's payload in full before any
// node is used - malformed rules or links are configuration errors fatal to
// attempt construction, never runtime faults.
//
// Mutation discipline: tracking state on non-leaf activities is only
// written by the sequencing package's rollup pass; everything else reads.
package activity

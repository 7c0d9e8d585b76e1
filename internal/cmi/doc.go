// Package cmi implements the SCORM 2004 run-time data model: a typed,
// access-controlled key/value store for the cmi.* and adl.nav.* element
// namespaces.
//
// ARCHITECTURE:
//
// Schema-Driven Validation:
// Every element path is resolved against a static schema table keyed by
// template path (collection indices normalized to "n"). The schema entry
// carries the value type, access mode, default value and, for collection
// members, the dependency element that must be written first.
//
// Collection Invariant:
// Collection indices are assigned strictly in order 0..count-1. A write to
// index == count appends and increments the count; writes beyond the count
// are rejected. Counts are derived state and never stored as elements.
//
// Error Model:
// All failures are reported as *cmi.Error carrying a closed ErrorKind.
// The RTE session layer maps kinds to the numeric SCORM error-code table;
// this package knows nothing about session state or numeric codes.
//
// The data model performs no I/O and holds no locks. Serialization against
// concurrent mutation is the owning attempt's responsibility.
package cmi

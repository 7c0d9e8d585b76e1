package cmi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DataModel is the per-attempt element store.
//
// Values are stored under their concrete paths exactly as written. Schema
// defaults are never materialized: a read of an unwritten element falls back
// to the schema default at lookup time, which keeps Snapshot limited to
// state that actually needs persisting.
//
// INVARIANTS:
//   - counts[c] == number of entries in collection instance c
//   - every stored path resolves against the schema table
//   - a stored value has passed its element's type check
type DataModel struct {
	values map[string]string
	counts map[string]int
}

// New creates an empty data model. Element defaults come from the schema;
// manifest-supplied values are applied with Seed.
func New() *DataModel {
	return &DataModel{
		values: make(map[string]string),
		counts: make(map[string]int),
	}
}

// Seed applies manifest-supplied initial values (learner identity, mastery
// score, launch data, time limits). Access control is bypassed: seeding is
// the one way read-only elements receive values. Types are still validated.
func (d *DataModel) Seed(defaults map[string]string) error {
	// Deterministic application order so validation failures are stable.
	paths := make([]string, 0, len(defaults))
	for p := range defaults {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := d.setAny(path, defaults[path]); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
	}
	return nil
}

// GetValue reads an element value.
//
// Pseudo-elements _count and _children resolve from collection state and the
// schema respectively. Unwritten elements fall back to their schema default;
// elements with no default fail with the not-initialized kind.
func (d *DataModel) GetValue(path string) (string, error) {
	res, err := resolvePath(path)
	if err != nil {
		return "", err
	}

	if res.countOf != "" {
		return strconv.Itoa(d.counts[res.countOf]), nil
	}
	if res.childrenOf != nil {
		return strings.Join(res.childrenOf, ","), nil
	}

	el := elements[res.template]
	if el.Access == WriteOnly {
		return "", newError(KindWriteOnly, path, "")
	}

	// Collection entries must exist before their members are readable.
	for _, ref := range res.refs {
		if ref.index >= d.counts[ref.instance] {
			return "", newError(KindNotInitialized, path,
				fmt.Sprintf("collection %s has %d entries", ref.instance, d.counts[ref.instance]))
		}
	}

	if v, ok := d.values[path]; ok {
		return v, nil
	}
	if el.HasDefault {
		return el.Default, nil
	}
	return "", newError(KindNotInitialized, path, "")
}

// SetValue writes an element value on behalf of content.
//
// Check order: element existence, access mode, collection cardinality and
// entry-creation dependency, write-once, then type/range. Counts increment
// only after the write itself succeeds.
func (d *DataModel) SetValue(path, value string) error {
	res, err := resolvePath(path)
	if err != nil {
		return err
	}

	if res.countOf != "" || res.childrenOf != nil {
		return newError(KindReadOnly, path, "pseudo-element")
	}

	el := elements[res.template]
	if el.Access == ReadOnly {
		return newError(KindReadOnly, path, "")
	}

	if err := d.checkCollectionWrite(res, path); err != nil {
		return err
	}

	if el.WriteOnce {
		if prev, ok := d.values[path]; ok && prev != value {
			return newError(KindWriteOnce, path, "value already established")
		}
	}

	if res.template == "adl.nav.request" {
		if !navRequestValid(value) {
			return newError(KindTypeMismatch, path,
				fmt.Sprintf("%q is not a navigation request", value))
		}
	} else if err := checkValue(el, path, value); err != nil {
		return err
	}

	d.store(res, path, value)
	return nil
}

// checkCollectionWrite enforces the append-only index invariant and the
// key-element creation dependency for every collection segment of the path.
func (d *DataModel) checkCollectionWrite(res *resolved, path string) error {
	for i, ref := range res.refs {
		count := d.counts[ref.instance]
		switch {
		case ref.index < count:
			// Overwrite of an existing entry's member.
		case ref.index == count:
			// Append: only permitted through the collection's key element,
			// and only for the innermost collection segment.
			col := collections[ref.template]
			if col.Key != "" {
				leaf := res.template[strings.LastIndex(res.template, ".")+1:]
				if i != len(res.refs)-1 || leaf != col.Key {
					return newError(KindDependency, path,
						fmt.Sprintf("new %s entry must be created via %q", ref.instance, col.Key))
				}
			}
		default:
			return newError(KindIndexOutOfOrder, path,
				fmt.Sprintf("index %d exceeds count %d of %s", ref.index, count, ref.instance))
		}
	}
	return nil
}

// setAny writes a value ignoring access mode. Used by Seed, the RTE's
// system-level updates, and snapshot restore.
func (d *DataModel) setAny(path, value string) error {
	res, err := resolvePath(path)
	if err != nil {
		return err
	}
	if res.countOf != "" || res.childrenOf != nil {
		return newError(KindReadOnly, path, "pseudo-element")
	}

	el := elements[res.template]
	if err := d.checkCollectionWrite(res, path); err != nil {
		return err
	}
	if res.template == "adl.nav.request" {
		if !navRequestValid(value) {
			return newError(KindTypeMismatch, path, "not a navigation request")
		}
	} else if err := checkValue(el, path, value); err != nil {
		return err
	}

	d.store(res, path, value)
	return nil
}

// SetSystem writes a value on behalf of the runtime itself (total_time
// accumulation, entry mode on resume, request_valid projections).
func (d *DataModel) SetSystem(path, value string) error {
	return d.setAny(path, value)
}

// store records the value and bumps counts for any appended entries.
func (d *DataModel) store(res *resolved, path, value string) {
	for _, ref := range res.refs {
		if ref.index == d.counts[ref.instance] {
			d.counts[ref.instance]++
		}
	}
	d.values[path] = value
}

// Raw returns the stored value for a path, bypassing access control.
// Used by the runtime to read write-only elements (cmi.exit, session_time)
// when an attempt ends. Returns ok=false when nothing was written.
func (d *DataModel) Raw(path string) (string, bool) {
	v, ok := d.values[path]
	return v, ok
}

// IsSet reports whether content or the runtime has written the element.
// Schema defaults do not count as set.
func (d *DataModel) IsSet(path string) bool {
	_, ok := d.values[path]
	return ok
}

// Count returns the entry count of a collection instance
// (e.g. "cmi.interactions" or "cmi.interactions.2.objectives").
func (d *DataModel) Count(instance string) int {
	return d.counts[instance]
}

// Snapshot returns a copy of every stored value, keyed by concrete path.
// The copy is what Commit hands to the persistence collaborator.
func (d *DataModel) Snapshot() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Restore rebuilds a data model from a persisted snapshot.
//
// Collection counts are re-derived from the highest index present per
// instance. Values are applied in sorted path order so entry-creation
// dependencies resolve the same way they were originally written.
func Restore(values map[string]string) (*DataModel, error) {
	d := New()

	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	// First pass: establish counts so non-key members of existing entries
	// restore without tripping the dependency check.
	for _, path := range paths {
		res, err := resolvePath(path)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", path, err)
		}
		for _, ref := range res.refs {
			if ref.index+1 > d.counts[ref.instance] {
				d.counts[ref.instance] = ref.index + 1
			}
		}
	}

	for _, path := range paths {
		res, err := resolvePath(path)
		if err != nil {
			return nil, fmt.Errorf("restore %s: %w", path, err)
		}
		if elements[res.template] == nil {
			return nil, newError(KindUndefined, path, "")
		}
		d.values[path] = values[path]
	}
	return d, nil
}

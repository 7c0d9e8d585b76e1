package activity

// Activity is one node of the tree: a cluster (has children) or a SCO
// (leaf). Parent and Children are arena indices, never pointers.
type Activity struct {
	Index    int
	ID       string
	Title    string
	Launch   string
	Parent   int // -1 for the root
	Children []int

	Modes     ControlModes
	PreRules  []SequencingRule
	ExitRules []SequencingRule
	PostRules []SequencingRule

	RollupRules []RollupRule
	Rollup      RollupControls
	Limits      LimitConditions

	Tracking Tracking
}

// IsLeaf reports whether the activity is a deliverable SCO.
func (a *Activity) IsLeaf() bool {
	return len(a.Children) == 0
}

// Tree is the flat arena of activities for one attempt.
//
// The builder assigns indices in preorder, so ascending index order is
// document order. The tree also carries the two global pointers the
// sequencer maintains: the current activity and the suspended activity.
type Tree struct {
	nodes []*Activity
	byID  map[string]int

	// Current is the arena index of the current activity, -1 when no
	// activity has been delivered or the attempt has ended.
	Current int

	// Suspended is the arena index recorded by SuspendAll, -1 when no
	// suspension is pending. ResumeAll delivers it.
	Suspended int
}

// Len returns the number of activities.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root activity.
func (t *Tree) Root() *Activity { return t.nodes[0] }

// Node returns the activity at an arena index.
func (t *Tree) Node(i int) *Activity { return t.nodes[i] }

// ByID resolves an activity identifier to its node.
func (t *Tree) ByID(id string) (*Activity, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return t.nodes[i], true
}

// ParentOf returns an activity's parent, or nil for the root.
func (t *Tree) ParentOf(a *Activity) *Activity {
	if a.Parent < 0 {
		return nil
	}
	return t.nodes[a.Parent]
}

// CurrentActivity returns the current activity, or nil.
func (t *Tree) CurrentActivity() *Activity {
	if t.Current < 0 {
		return nil
	}
	return t.nodes[t.Current]
}

// SuspendedActivity returns the suspended activity, or nil.
func (t *Tree) SuspendedActivity() *Activity {
	if t.Suspended < 0 {
		return nil
	}
	return t.nodes[t.Suspended]
}

// DocumentOrder returns all arena indices in document (preorder) order,
// computed with an explicit stack so traversal never recurses.
func (t *Tree) DocumentOrder() []int {
	if len(t.nodes) == 0 {
		return nil
	}
	order := make([]int, 0, len(t.nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)

		// Push children reversed so the first child pops first.
		children := t.nodes[i].Children
		for c := len(children) - 1; c >= 0; c-- {
			stack = append(stack, children[c])
		}
	}
	return order
}

// Ancestors returns the chain from an activity's parent up to the root.
func (t *Tree) Ancestors(a *Activity) []*Activity {
	var out []*Activity
	for p := t.ParentOf(a); p != nil; p = t.ParentOf(p) {
		out = append(out, p)
	}
	return out
}

// IsDescendant reports whether node is anc or lies beneath it.
func (t *Tree) IsDescendant(anc, node *Activity) bool {
	for a := node; a != nil; a = t.ParentOf(a) {
		if a.Index == anc.Index {
			return true
		}
	}
	return false
}

// CommonAncestor returns the deepest activity containing both a and b
// (which may be a or b itself).
func (t *Tree) CommonAncestor(a, b *Activity) *Activity {
	on := make(map[int]bool)
	for n := a; n != nil; n = t.ParentOf(n) {
		on[n.Index] = true
	}
	for n := b; n != nil; n = t.ParentOf(n) {
		if on[n.Index] {
			return n
		}
	}
	return t.Root()
}

// Leaves returns arena indices of all leaf activities in document order.
func (t *Tree) Leaves() []int {
	var out []int
	for _, i := range t.DocumentOrder() {
		if t.nodes[i].IsLeaf() {
			out = append(out, i)
		}
	}
	return out
}

// ResetSubtree clears per-attempt tracking of an activity and everything
// beneath it. Used by retry and retryAll.
func (t *Tree) ResetSubtree(a *Activity) {
	stack := []int{a.Index}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodes[i].Tracking.Reset()
		stack = append(stack, t.nodes[i].Children...)
	}
}

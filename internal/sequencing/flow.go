package sequencing

import (
	"github.com/svincent240/scormrt/internal/activity"
)

// Flow traversal works directly on arena indices: the builder assigns
// indices in preorder, so ascending index order IS document order and a
// subtree occupies the contiguous index range
// [node.Index, lastDescendant(node)].

// lastDescendant returns the highest arena index inside a's subtree.
func lastDescendant(t *activity.Tree, a *activity.Activity) int {
	n := a
	for !n.IsLeaf() {
		n = t.Node(n.Children[len(n.Children)-1])
	}
	return n.Index
}

// flowAllowedInto reports whether every cluster ancestor of a permits flow
// traversal into its children.
func flowAllowedInto(t *activity.Tree, a *activity.Activity) bool {
	for _, anc := range t.Ancestors(a) {
		if !anc.Modes.Flow {
			return false
		}
	}
	return true
}

// forwardFrom scans document order for the first deliverable leaf at index
// >= start. Clusters that are skipped, disabled or closed to flow have
// their whole subtree jumped over. A firing stop-forward rule halts the
// scan.
func forwardFrom(t *activity.Tree, start int) (*activity.Activity, *NavError) {
	i := start
	for i < t.Len() {
		n := t.Node(i)
		if stopsForward(n) {
			return nil, navErr(CodeNothingToDeliver, n.ID,
				"forward traversal stopped at %q", n.ID)
		}
		if skippedFor(n) || disabledFor(n) {
			i = lastDescendant(t, n) + 1
			continue
		}
		if !n.IsLeaf() {
			if !n.Modes.Flow {
				i = lastDescendant(t, n) + 1
				continue
			}
			i++
			continue
		}
		return n, nil
	}
	return nil, navErr(CodeNothingToDeliver, "", "no activity beyond the end of the tree")
}

// backwardFrom scans document order in reverse for the first deliverable
// leaf at index <= start, applying the same cluster gating as forwardFrom:
// a leaf inside a skipped or disabled cluster is passed over.
// Stop-forward rules do not apply to backward traversal.
func backwardFrom(t *activity.Tree, start int) (*activity.Activity, *NavError) {
	for i := start; i >= 0; i-- {
		n := t.Node(i)
		if !n.IsLeaf() {
			continue
		}
		if skippedFor(n) || disabledFor(n) || clusterClosed(t, n) {
			continue
		}
		if !flowAllowedInto(t, n) {
			continue
		}
		return n, nil
	}
	return nil, navErr(CodeNothingToDeliver, "", "no activity before the start of the tree")
}

// clusterClosed reports whether any ancestor of a is skipped or disabled,
// putting its whole subtree off limits to flow traversal.
func clusterClosed(t *activity.Tree, a *activity.Activity) bool {
	for _, anc := range t.Ancestors(a) {
		if skippedFor(anc) || disabledFor(anc) {
			return true
		}
	}
	return false
}

// nextAfter computes the continue target: the first deliverable leaf
// strictly after the current activity's subtree, with flow permission
// checked on the candidate's ancestor chain.
func nextAfter(t *activity.Tree, cur *activity.Activity) (*activity.Activity, *NavError) {
	i := lastDescendant(t, cur) + 1
	for i < t.Len() {
		n, err := forwardFrom(t, i)
		if err != nil {
			return nil, err
		}
		if flowAllowedInto(t, n) && !clusterClosed(t, n) {
			return n, nil
		}
		i = n.Index + 1
	}
	return nil, navErr(CodeNothingToDeliver, "", "no activity beyond the end of the tree")
}

// prevBefore computes the previous target: the first deliverable leaf
// strictly before the current activity in document order. Any activity on
// the current activity's ancestor chain up to (and including) the common
// ancestor with the candidate that sets forwardOnly blocks the move.
func prevBefore(t *activity.Tree, cur *activity.Activity) (*activity.Activity, *NavError) {
	cand, err := backwardFrom(t, cur.Index-1)
	if err != nil {
		return nil, err
	}
	common := t.CommonAncestor(cur, cand)
	for n := t.ParentOf(cur); n != nil; n = t.ParentOf(n) {
		if n.Modes.ForwardOnly {
			return nil, navErr(CodeFlowNotPermitted, cand.ID,
				"cluster %q is forward-only", n.ID)
		}
		if n.Index == common.Index {
			break
		}
	}
	return cand, nil
}

// firstLeafIn flows into a subtree: the first deliverable leaf within it.
// The root of the subtree itself may be the result when it is a leaf.
func firstLeafIn(t *activity.Tree, a *activity.Activity) (*activity.Activity, *NavError) {
	end := lastDescendant(t, a)
	n, err := forwardFrom(t, a.Index)
	if err != nil {
		return nil, err
	}
	if n.Index > end {
		return nil, navErr(CodeNothingToDeliver, a.ID,
			"no deliverable activity inside %q", a.ID)
	}
	return n, nil
}

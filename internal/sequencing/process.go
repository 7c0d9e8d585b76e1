package sequencing

import (
	"log/slog"

	"github.com/svincent240/scormrt/internal/activity"
)

// Engine is the pure decision core: it maps navigation requests to
// deliveries against one activity tree, mutating only tracking state and
// the current/suspended pointers. It performs no I/O and holds no lock;
// the owning Attempt serializes access.
type Engine struct {
	tree *activity.Tree
	log  *slog.Logger
}

// NewEngine wraps an activity tree. A nil logger defaults to slog.Default.
func NewEngine(tree *activity.Tree, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{tree: tree, log: log}
}

// Tree exposes the underlying tree for rollup inspection and tests.
func (e *Engine) Tree() *activity.Tree { return e.tree }

// Navigate resolves one navigation request. The caller guarantees that
// the current activity's session, if any, has already terminated.
//
// A nil error with a zero Delivery means the request succeeded without
// launching anything (Exit, Abandon): the current activity's attempt ended
// and the host decides the next move. Delivery.End marks the end of the
// whole attempt on the tree.
func (e *Engine) Navigate(req Request) (Delivery, *NavError) {
	d, err := e.navigate(req)
	if err != nil {
		e.log.Debug("navigation rejected",
			"request", req.String(),
			"code", string(err.Code),
			"detail", err.Detail)
		return Delivery{}, err
	}
	e.log.Debug("navigation resolved",
		"request", req.String(),
		"activity", d.ActivityID,
		"end", d.End,
		"resume", d.Resume)
	return d, nil
}

func (e *Engine) navigate(req Request) (Delivery, *NavError) {
	t := e.tree
	switch req.Type {
	case Start:
		if t.Current >= 0 {
			return Delivery{}, navErr(CodeRequestNotValid, "", "attempt already in progress")
		}
		leaf, err := firstLeafIn(t, t.Root())
		if err != nil {
			return Delivery{}, err
		}
		e.clearSuspension()
		return e.deliver(leaf, false), nil

	case ResumeAll:
		if t.Current >= 0 {
			return Delivery{}, navErr(CodeRequestNotValid, "", "attempt already in progress")
		}
		leaf := t.SuspendedActivity()
		if leaf == nil {
			return Delivery{}, navErr(CodeNoSuspension, "", "nothing is suspended")
		}
		e.clearSuspension()
		return e.deliver(leaf, true), nil

	case Continue:
		cur := t.CurrentActivity()
		if cur == nil {
			return Delivery{}, navErr(CodeRequestNotValid, "", "no current activity")
		}
		if p := t.ParentOf(cur); p != nil && !p.Modes.Flow {
			return Delivery{}, navErr(CodeFlowNotPermitted, "",
				"cluster %q does not permit flow", p.ID)
		}
		next, err := nextAfter(t, cur)
		if err != nil {
			if err.Code == CodeNothingToDeliver {
				// Flowing past the last activity ends the attempt.
				e.endAll()
				return Delivery{End: true}, nil
			}
			return Delivery{}, err
		}
		return e.deliver(next, false), nil

	case Previous:
		cur := t.CurrentActivity()
		if cur == nil {
			return Delivery{}, navErr(CodeRequestNotValid, "", "no current activity")
		}
		if p := t.ParentOf(cur); p != nil && !p.Modes.Flow {
			return Delivery{}, navErr(CodeFlowNotPermitted, "",
				"cluster %q does not permit flow", p.ID)
		}
		prev, err := prevBefore(t, cur)
		if err != nil {
			return Delivery{}, err
		}
		return e.deliver(prev, false), nil

	case Choice:
		target, ok := t.ByID(req.Target)
		if !ok {
			return Delivery{}, navErr(CodeUnknownTarget, req.Target, "no such activity")
		}
		if err := e.choiceCheck(target); err != nil {
			return Delivery{}, err
		}
		leaf := target
		if !target.IsLeaf() {
			var err *NavError
			leaf, err = firstLeafIn(t, target)
			if err != nil {
				return Delivery{}, err
			}
		}
		e.deactivateOutsidePathTo(leaf)
		return e.deliver(leaf, false), nil

	case Exit, Abandon:
		cur := t.CurrentActivity()
		if cur == nil {
			return Delivery{}, navErr(CodeRequestNotValid, "", "no current activity")
		}
		cur.Tracking.Active = false
		return Delivery{}, nil

	case ExitAll, AbandonAll:
		if t.Current < 0 {
			return Delivery{}, navErr(CodeRequestNotValid, "", "no current activity")
		}
		e.endAll()
		return Delivery{End: true}, nil

	case SuspendAll:
		cur := t.CurrentActivity()
		if cur == nil {
			return Delivery{}, navErr(CodeRequestNotValid, "", "no current activity")
		}
		cur.Tracking.Suspended = true
		for _, anc := range t.Ancestors(cur) {
			anc.Tracking.Suspended = true
		}
		t.Suspended = cur.Index
		e.endAll()
		return Delivery{End: true}, nil

	case Retry:
		cur := t.CurrentActivity()
		if cur == nil {
			return Delivery{}, navErr(CodeRequestNotValid, "", "no current activity")
		}
		if limitExceeded(cur) {
			return Delivery{}, navErr(CodeHiddenOrDisabled, cur.ID,
				"attempt limit reached on %q", cur.ID)
		}
		t.ResetSubtree(cur)
		leaf := cur
		if !cur.IsLeaf() {
			var err *NavError
			leaf, err = firstLeafIn(t, cur)
			if err != nil {
				return Delivery{}, err
			}
		}
		return e.deliver(leaf, false), nil
	}
	return Delivery{}, navErr(CodeRequestNotValid, "", "unknown request %q", req.Type)
}

// choiceCheck validates a choice target: hidden/disabled state on the
// target and its ancestors, choice permission from the target up to the
// common ancestor, and choice-exit permission from the current activity up
// to the common ancestor.
func (e *Engine) choiceCheck(target *activity.Activity) *NavError {
	t := e.tree
	if hiddenFromChoice(target) || disabledFor(target) {
		return navErr(CodeHiddenOrDisabled, target.ID,
			"activity %q is hidden from choice or disabled", target.ID)
	}
	for _, anc := range t.Ancestors(target) {
		if hiddenFromChoice(anc) || disabledFor(anc) {
			return navErr(CodeHiddenOrDisabled, target.ID,
				"ancestor %q is hidden from choice or disabled", anc.ID)
		}
	}

	cur := t.CurrentActivity()
	common := t.Root()
	if cur != nil {
		common = t.CommonAncestor(cur, target)
	}

	// Choice must be permitted by every cluster from the target's parent
	// up to and including the common ancestor.
	for n := t.ParentOf(target); n != nil; n = t.ParentOf(n) {
		if !n.Modes.Choice {
			return navErr(CodeChoiceNotPermitted, target.ID,
				"cluster %q does not permit choice", n.ID)
		}
		if n.Index == common.Index {
			break
		}
	}

	// Leaving the current branch needs choiceExit on every cluster from
	// the current activity up to (excluding) the common ancestor.
	if cur != nil {
		for n := cur; n != nil && n.Index != common.Index; n = t.ParentOf(n) {
			if !n.Modes.ChoiceExit {
				return navErr(CodeChoiceNotPermitted, target.ID,
					"activity %q does not permit choice exit", n.ID)
			}
		}
	}
	return nil
}

// AfterTermination runs exit-condition rule processing on the active path
// and post-condition rule processing on the just-terminated current
// activity. handled is false when no rule produced an outcome; the host
// then decides the next move.
func (e *Engine) AfterTermination() (Delivery, bool, *NavError) {
	t := e.tree
	cur := t.CurrentActivity()
	if cur == nil {
		return Delivery{}, false, nil
	}

	// Exit rules evaluate root-down along the active path; the first
	// firing rule wins.
	path := append(reverse(t.Ancestors(cur)), cur)
	for _, n := range path {
		action, ok := firstAction(n, n.ExitRules, nil)
		if !ok {
			continue
		}
		switch action {
		case activity.ActionExitAll:
			e.endAll()
			return Delivery{End: true}, true, nil
		case activity.ActionExitParent:
			return e.continueAfter(t.ParentOf(n))
		case activity.ActionExit:
			if n.Index != cur.Index {
				return e.continueAfter(n)
			}
			// The leaf's own attempt has already ended.
		}
		break
	}

	action, ok := firstAction(cur, cur.PostRules, nil)
	if !ok {
		return Delivery{}, false, nil
	}
	switch action {
	case activity.ActionRetry:
		d, err := e.navigate(Request{Type: Retry})
		return d, true, err
	case activity.ActionRetryAll:
		t.ResetSubtree(t.Root())
		t.Current = -1
		e.clearSuspension()
		d, err := e.navigate(Request{Type: Start})
		return d, true, err
	case activity.ActionContinue:
		d, err := e.navigate(Request{Type: Continue})
		return d, true, err
	case activity.ActionPrevious:
		d, err := e.navigate(Request{Type: Previous})
		return d, true, err
	case activity.ActionExitParent:
		return e.continueAfter(t.ParentOf(cur))
	case activity.ActionExitAll:
		e.endAll()
		return Delivery{End: true}, true, nil
	}
	return Delivery{}, false, nil
}

// continueAfter ends the attempt on a cluster and flows to the first
// deliverable leaf after its subtree; flowing past the end of the tree
// ends the whole attempt.
func (e *Engine) continueAfter(n *activity.Activity) (Delivery, bool, *NavError) {
	if n == nil {
		e.endAll()
		return Delivery{End: true}, true, nil
	}
	e.deactivateSubtree(n)
	next, err := nextAfter(e.tree, n)
	if err != nil {
		if err.Code == CodeNothingToDeliver {
			e.endAll()
			return Delivery{End: true}, true, nil
		}
		return Delivery{}, true, err
	}
	return e.deliver(next, false), true, nil
}

// AvailableNavigation recomputes which requests would currently succeed.
// Choice is reported per activity identifier, the root excluded.
func (e *Engine) AvailableNavigation() Available {
	t := e.tree
	av := Available{Choice: make(map[string]bool, t.Len())}

	if cur := t.CurrentActivity(); cur != nil {
		av.Exit = true
		if p := t.ParentOf(cur); p == nil || p.Modes.Flow {
			_, err := nextAfter(t, cur)
			av.Continue = err == nil
			_, err = prevBefore(t, cur)
			av.Previous = err == nil
		}
	}

	for _, i := range t.DocumentOrder() {
		n := t.Node(i)
		if n.Parent < 0 {
			continue
		}
		av.Choice[n.ID] = e.choiceCheck(n) == nil
	}
	return av
}

// Rollup recomputes rolled-up status for the whole tree.
func (e *Engine) Rollup() {
	rollupAll(e.tree)
}

// deliver activates the path to a leaf and moves the current pointer.
// A fresh delivery begins a new attempt on every newly activated node;
// resume reactivates without touching attempt counts.
func (e *Engine) deliver(leaf *activity.Activity, resume bool) Delivery {
	t := e.tree
	path := append(reverse(t.Ancestors(leaf)), leaf)
	for _, n := range path {
		if n.Tracking.Active {
			continue
		}
		n.Tracking.Active = true
		if !resume {
			n.Tracking.AttemptCount++
			n.Tracking.Attempted = true
		}
	}
	t.Current = leaf.Index
	return Delivery{ActivityID: leaf.ID, Launch: leaf.Launch, Resume: resume}
}

// deactivateOutsidePathTo ends attempts on active nodes that are not
// ancestors of the next delivery target (used by choice across branches).
func (e *Engine) deactivateOutsidePathTo(leaf *activity.Activity) {
	t := e.tree
	onPath := map[int]bool{leaf.Index: true}
	for _, anc := range t.Ancestors(leaf) {
		onPath[anc.Index] = true
	}
	for i := 0; i < t.Len(); i++ {
		if !onPath[i] {
			t.Node(i).Tracking.Active = false
		}
	}
}

func (e *Engine) deactivateSubtree(n *activity.Activity) {
	t := e.tree
	for i := n.Index; i <= lastDescendant(t, n); i++ {
		t.Node(i).Tracking.Active = false
	}
}

func (e *Engine) endAll() {
	t := e.tree
	for i := 0; i < t.Len(); i++ {
		t.Node(i).Tracking.Active = false
	}
	t.Current = -1
}

func (e *Engine) clearSuspension() {
	t := e.tree
	if t.Suspended < 0 {
		return
	}
	for i := 0; i < t.Len(); i++ {
		t.Node(i).Tracking.Suspended = false
	}
	t.Suspended = -1
}

func reverse(nodes []*activity.Activity) []*activity.Activity {
	out := make([]*activity.Activity, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

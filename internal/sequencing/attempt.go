package sequencing

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/svincent240/scormrt/internal/activity"
	"github.com/svincent240/scormrt/internal/cmi"
	"github.com/svincent240/scormrt/internal/rte"
)

// Result is the outcome of one ProcessNavigationRequest call.
type Result struct {
	Success bool `json:"success"`

	// Reason names the failed validity check when Success is false.
	Reason string `json:"reason,omitempty"`

	// Delivery is present when the request resolved an activity to launch
	// or ended the attempt.
	Delivery *Delivery `json:"delivery,omitempty"`

	// Available reports which requests would succeed after this call.
	Available Available `json:"available"`
}

// Attempt is one learner attempt on an activity tree: the navigation
// handler plus the per-attempt lock that serializes every mutating
// operation against the tree. Independent attempts share no mutable state.
type Attempt struct {
	mu      sync.Mutex
	engine  *Engine
	tree    *activity.Tree
	manager *rte.Manager

	persister rte.Persister
	seeds     map[string]string
	log       *slog.Logger

	current *rte.Session

	// pendingNav holds the adl.nav.request value captured when the last
	// session terminated, consumed by ResolvePending.
	pendingNav string

	// lastRequest is recorded into snapshots for resume diagnostics.
	lastRequest string

	// suspendedData keeps the data model snapshot of an activity that
	// terminated with cmi.exit "suspend", reapplied on its next delivery.
	suspendedData map[string]map[string]string
}

// AttemptOption configures an Attempt at construction.
type AttemptOption func(*Attempt)

// WithPersister installs the persistence collaborator snapshots are
// handed to on Commit and Terminate.
func WithPersister(p rte.Persister) AttemptOption {
	return func(a *Attempt) { a.persister = p }
}

// WithSessionIDs overrides session id generation (tests use fixed ids).
func WithSessionIDs(ids rte.IDGenerator) AttemptOption {
	return func(a *Attempt) { a.manager = rte.NewManager(ids) }
}

// WithSeeds installs manifest-supplied data model defaults, applied to
// every session spawned for this attempt.
func WithSeeds(seeds map[string]string) AttemptOption {
	return func(a *Attempt) { a.seeds = seeds }
}

// WithLogger sets the attempt's logger.
func WithLogger(log *slog.Logger) AttemptOption {
	return func(a *Attempt) { a.log = log }
}

// NewAttempt builds the navigation handler for one attempt on a tree.
func NewAttempt(tree *activity.Tree, opts ...AttemptOption) *Attempt {
	a := &Attempt{
		tree:          tree,
		manager:       rte.NewManager(nil),
		log:           slog.Default(),
		suspendedData: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.engine = NewEngine(tree, a.log)
	return a
}

// Session returns the live session for the currently delivered activity,
// or nil between deliveries.
func (a *Attempt) Session() *rte.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Tree exposes the attempt's activity tree for inspection and tests.
func (a *Attempt) Tree() *activity.Tree { return a.tree }

// ProcessNavigationRequest is the sole mutating navigation entry point.
//
// The current activity's session must have terminated first; a request
// issued while content is still running fails with activityStillActive.
// On success with a delivery, a fresh session is spawned for the
// delivered activity and exposed through Session.
func (a *Attempt) ProcessNavigationRequest(req Request) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.process(req)
}

func (a *Attempt) process(req Request) Result {
	if a.current != nil && a.current.State() == rte.Running {
		return Result{
			Success:   false,
			Reason:    reasons[CodeActivityActive],
			Available: a.engine.AvailableNavigation(),
		}
	}
	a.lastRequest = req.String()
	a.pendingNav = ""

	d, err := a.engine.Navigate(req)
	if err != nil {
		return Result{
			Success:   false,
			Reason:    err.Reason(),
			Available: a.engine.AvailableNavigation(),
		}
	}
	return a.resolved(d)
}

// ResolvePending consumes the navigation the terminated session left
// behind: an adl.nav.request set by content, or failing that a request
// derived from exit/post-condition rules. ok is false when neither
// produced an outcome and the host decides the next move.
func (a *Attempt) ResolvePending() (Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if req, ok := ParseNavRequest(a.pendingNav); ok {
		a.pendingNav = ""
		return a.process(req), true
	}
	a.pendingNav = ""

	d, handled, err := a.engine.AfterTermination()
	if !handled {
		return Result{}, false
	}
	if err != nil {
		return Result{
			Success:   false,
			Reason:    err.Reason(),
			Available: a.engine.AvailableNavigation(),
		}, true
	}
	return a.resolved(d), true
}

// AvailableNavigation recomputes request availability without mutating
// anything.
func (a *Attempt) AvailableNavigation() Available {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.AvailableNavigation()
}

// resolved turns a successful engine delivery into a Result, spawning the
// session for a delivered activity.
func (a *Attempt) resolved(d Delivery) Result {
	if d.ActivityID != "" {
		a.spawn(d)
	} else {
		a.current = nil
	}
	res := Result{
		Success:   true,
		Available: a.engine.AvailableNavigation(),
	}
	if d.ActivityID != "" || d.End {
		dd := d
		res.Delivery = &dd
	}
	a.projectAvailability(res.Available)
	return res
}

// spawn creates the RTE session for a delivered activity, seeding
// manifest defaults and, on resume or re-entry of a suspended activity,
// the previously captured data model.
func (a *Attempt) spawn(d Delivery) {
	data := cmi.New()
	if prior, ok := a.suspendedData[d.ActivityID]; ok {
		// Seeded values were part of the captured snapshot, so a restore
		// replaces seeding entirely.
		restored, err := cmi.Restore(prior)
		if err != nil {
			a.log.Error("suspended data restore failed",
				"activity", d.ActivityID, "error", err)
		} else {
			data = restored
		}
		delete(a.suspendedData, d.ActivityID)
		if err := data.SetSystem("cmi.entry", "resume"); err != nil {
			a.log.Error("entry write failed", "activity", d.ActivityID, "error", err)
		}
		// A navigation request is per-session state; never carry one into
		// the resumed session.
		if err := data.SetSystem("adl.nav.request", "_none_"); err != nil {
			a.log.Error("nav request reset failed", "activity", d.ActivityID, "error", err)
		}
	} else if len(a.seeds) > 0 {
		if err := data.Seed(a.seeds); err != nil {
			a.log.Error("seed rejected", "activity", d.ActivityID, "error", err)
		}
	}

	a.current = a.manager.Spawn(d.ActivityID, data,
		rte.WithPersister(a.persister),
		rte.WithTreeState(a.treeState),
		rte.WithTerminateHook(a.onTerminate),
	)
}

// projectAvailability mirrors the continue/previous validity into the
// current session's adl.nav.request_valid elements.
func (a *Attempt) projectAvailability(av Available) {
	if a.current == nil {
		return
	}
	data := a.current.Data()
	set := func(path string, valid bool) {
		v := "false"
		if valid {
			v = "true"
		}
		if err := data.SetSystem(path, v); err != nil {
			a.log.Error("request_valid write failed", "element", path, "error", err)
		}
	}
	set("adl.nav.request_valid.continue", av.Continue)
	set("adl.nav.request_valid.previous", av.Previous)
}

// onTerminate runs as the session's terminate hook: record the leaf's
// tracking from its final data model, run rollup, persist the snapshot
// and archive the session. It acquires the attempt lock; the engine never
// calls Terminate itself, so this cannot deadlock.
func (a *Attempt) onTerminate(s *rte.Session, exit, navRequest string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	leaf, ok := a.tree.ByID(s.ActivityID())
	if !ok {
		a.log.Error("terminated session for unknown activity",
			"session", s.ID(), "activity", s.ActivityID())
		return
	}

	recordTracking(leaf, s.Data())
	leaf.Tracking.Active = false

	if exit == "suspend" {
		leaf.Tracking.Suspended = true
		a.suspendedData[leaf.ID] = s.Data().Snapshot()
	} else {
		leaf.Tracking.Suspended = false
		delete(a.suspendedData, leaf.ID)
	}

	a.pendingNav = navRequest
	a.engine.Rollup()

	if a.persister != nil {
		if err := a.persister.SaveSnapshot(context.Background(), s.BuildSnapshot()); err != nil {
			a.log.Error("terminate snapshot hand-off failed",
				"session", s.ID(), "error", err)
		}
	}
	a.manager.Archive(s.ID())
}

// recordTracking maps the session's final CMI values onto the leaf's
// tracking state. Success falls back to comparing the scaled score
// against cmi.scaled_passing_score when content reported a measure but no
// explicit success status.
func recordTracking(leaf *activity.Activity, data *cmi.DataModel) {
	t := &leaf.Tracking

	if v, ok := data.Raw("cmi.completion_status"); ok {
		switch v {
		case "completed":
			t.CompletionKnown, t.Completed = true, true
		case "incomplete":
			t.CompletionKnown, t.Completed = true, false
		default:
			t.CompletionKnown = false
		}
	}

	if v, ok := data.Raw("cmi.progress_measure"); ok {
		if m, err := strconv.ParseFloat(v, 64); err == nil {
			t.ProgressMeasureKnown, t.ProgressMeasure = true, m
		}
	}

	if v, ok := data.Raw("cmi.score.scaled"); ok {
		if m, err := strconv.ParseFloat(v, 64); err == nil {
			t.MeasureKnown, t.Measure = true, m
		}
	}

	switch v, _ := data.Raw("cmi.success_status"); v {
	case "passed":
		t.SatisfiedKnown, t.Satisfied = true, true
	case "failed":
		t.SatisfiedKnown, t.Satisfied = true, false
	default:
		if t.MeasureKnown {
			if p, ok := data.Raw("cmi.scaled_passing_score"); ok {
				if threshold, err := strconv.ParseFloat(p, 64); err == nil {
					t.SatisfiedKnown = true
					t.Satisfied = t.Measure >= threshold
				}
			}
		}
	}

	if v, ok := data.Raw("cmi.session_time"); ok {
		if d, err := cmi.ParseTimeInterval(v); err == nil {
			t.AttemptDuration += d
		}
	}
}

// treeState exports the tracking slice of every activity for snapshots.
func (a *Attempt) treeState() (map[string]rte.ActivityState, string) {
	out := make(map[string]rte.ActivityState, a.tree.Len())
	for _, i := range a.tree.DocumentOrder() {
		n := a.tree.Node(i)
		t := n.Tracking
		out[n.ID] = rte.ActivityState{
			AttemptCount:            t.AttemptCount,
			CompletionStatus:        completionString(t),
			SuccessStatus:           successString(t),
			ObjectiveSatisfied:      t.Satisfied,
			ObjectiveSatisfiedKnown: t.SatisfiedKnown,
			ObjectiveMeasure:        t.Measure,
			ObjectiveMeasureKnown:   t.MeasureKnown,
			ProgressMeasure:         t.ProgressMeasure,
			ProgressMeasureKnown:    t.ProgressMeasureKnown,
			Suspended:               t.Suspended,
		}
	}
	return out, a.lastRequest
}

// RestoreSnapshot reapplies a persisted snapshot to a fresh attempt:
// tracking state per activity, the suspended pointer, and the suspended
// activity's data model for its next delivery.
func (a *Attempt) RestoreSnapshot(snap rte.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, st := range snap.ActivityTree {
		n, ok := a.tree.ByID(id)
		if !ok {
			a.log.Warn("snapshot references unknown activity", "activity", id)
			continue
		}
		t := &n.Tracking
		t.AttemptCount = st.AttemptCount
		t.Attempted = st.AttemptCount > 0
		t.Suspended = st.Suspended
		switch st.CompletionStatus {
		case "completed":
			t.CompletionKnown, t.Completed = true, true
		case "incomplete":
			t.CompletionKnown, t.Completed = true, false
		default:
			t.CompletionKnown, t.Completed = false, false
		}
		switch st.SuccessStatus {
		case "passed":
			t.SatisfiedKnown, t.Satisfied = true, true
		case "failed":
			t.SatisfiedKnown, t.Satisfied = true, false
		default:
			t.SatisfiedKnown = st.ObjectiveSatisfiedKnown
			t.Satisfied = st.ObjectiveSatisfied
		}
		t.MeasureKnown = st.ObjectiveMeasureKnown
		t.Measure = st.ObjectiveMeasure
		t.ProgressMeasureKnown = st.ProgressMeasureKnown
		t.ProgressMeasure = st.ProgressMeasure

		if st.Suspended && n.IsLeaf() {
			a.tree.Suspended = n.Index
		}
	}
	if snap.ActivityID != "" && len(snap.DataModel) > 0 {
		a.suspendedData[snap.ActivityID] = snap.DataModel
	}
	a.lastRequest = snap.LastNavigationRequest
}

func completionString(t activity.Tracking) string {
	if !t.CompletionKnown {
		return "unknown"
	}
	if t.Completed {
		return "completed"
	}
	return "incomplete"
}

func successString(t activity.Tracking) string {
	if !t.SatisfiedKnown {
		return "unknown"
	}
	if t.Satisfied {
		return "passed"
	}
	return "failed"
}

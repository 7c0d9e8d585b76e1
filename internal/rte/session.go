package rte

import (
	"context"
	"log/slog"

	"github.com/svincent240/scormrt/internal/cmi"
)

// State is the session lifecycle state.
// Transitions are strictly monotonic: NotInitialized -> Running -> Terminated.
type State int

const (
	NotInitialized State = iota
	Running
	Terminated
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case NotInitialized:
		return "not_initialized"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ActivityState is the persisted tracking slice of one activity, as it
// appears inside a snapshot.
type ActivityState struct {
	AttemptCount            int     `json:"attemptCount"`
	CompletionStatus        string  `json:"completionStatus"`
	SuccessStatus           string  `json:"successStatus"`
	ObjectiveSatisfied      bool    `json:"objectiveSatisfied"`
	ObjectiveSatisfiedKnown bool    `json:"objectiveSatisfiedKnown"`
	ObjectiveMeasure        float64 `json:"objectiveMeasure"`
	ObjectiveMeasureKnown   bool    `json:"objectiveMeasureKnown"`
	ProgressMeasure         float64 `json:"progressMeasure"`
	ProgressMeasureKnown    bool    `json:"progressMeasureKnown"`
	Suspended               bool    `json:"suspended"`
}

// Snapshot is the persisted shape of one attempt's state, handed to the
// persistence collaborator on Commit and on Terminate.
type Snapshot struct {
	SessionID             string                   `json:"sessionId"`
	ActivityID            string                   `json:"activityId"`
	DataModel             map[string]string        `json:"dataModel"`
	ActivityTree          map[string]ActivityState `json:"activityTree"`
	LastNavigationRequest string                   `json:"lastNavigationRequest"`
}

// Persister is the persistence collaborator. Commit hands a snapshot over
// and returns once the hand-off is accepted; durability is the
// collaborator's concern.
type Persister interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

// TreeStateFunc supplies the activity-tree slice of a snapshot. Installed
// by the owning attempt; nil leaves ActivityTree empty.
type TreeStateFunc func() (map[string]ActivityState, string)

// TerminateHook fires after the Running -> Terminated transition with the
// session's exit mode and any pending adl.nav.request. The owning attempt
// uses it to run rollup and resolve post-session navigation.
type TerminateHook func(s *Session, exit, navRequest string)

// Session is one attempt's RTE API surface.
//
// Failure semantics: every method returns a result and updates the error
// register; nothing escapes as a Go error or panic across this boundary.
// Callers poll GetLastError for diagnostics.
//
// Sessions are not self-locking. All mutating calls against one attempt
// are serialized by the owning attempt (see sequencing.Attempt).
type Session struct {
	id         string
	activityID string
	state      State
	data       *cmi.DataModel

	lastError      ErrorCode
	lastDiagnostic string

	persister   Persister
	treeState   TreeStateFunc
	onTerminate TerminateHook
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithPersister installs the persistence collaborator Commit hands
// snapshots to.
func WithPersister(p Persister) SessionOption {
	return func(s *Session) { s.persister = p }
}

// WithTreeState installs the snapshot enricher for activity-tree state.
func WithTreeState(f TreeStateFunc) SessionOption {
	return func(s *Session) { s.treeState = f }
}

// WithTerminateHook installs the post-termination callback.
func WithTerminateHook(h TerminateHook) SessionOption {
	return func(s *Session) { s.onTerminate = h }
}

// NewSession creates a session in NotInitialized state for the given
// activity, owning the supplied data model instance.
func NewSession(id, activityID string, data *cmi.DataModel, opts ...SessionOption) *Session {
	s := &Session{
		id:         id,
		activityID: activityID,
		state:      NotInitialized,
		data:       data,
		lastError:  NoError,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ActivityID returns the activity this session is an attempt on.
func (s *Session) ActivityID() string { return s.activityID }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Data exposes the session's data model to the owning attempt.
func (s *Session) Data() *cmi.DataModel { return s.data }

// setError records a code and diagnostic in the error register.
func (s *Session) setError(code ErrorCode, diagnostic string) {
	s.lastError = code
	s.lastDiagnostic = diagnostic
}

// Initialize transitions NotInitialized -> Running.
//
// A second call fails with AlreadyInitialized; a call after Terminate fails
// with ContentInstanceTerminated. State is unchanged on failure.
func (s *Session) Initialize() bool {
	s.setError(NoError, "")

	switch s.state {
	case Running:
		s.setError(AlreadyInitialized, "session is already running")
		return false
	case Terminated:
		s.setError(ContentInstanceTerminated, "session was terminated")
		return false
	}

	s.state = Running
	slog.Info("session initialized", "session", s.id, "activity", s.activityID)
	return true
}

// GetValue reads a data model element. Valid only while Running.
func (s *Session) GetValue(path string) string {
	s.setError(NoError, "")

	switch s.state {
	case NotInitialized:
		s.setError(RetrieveDataBeforeInit, "")
		return ""
	case Terminated:
		s.setError(RetrieveDataAfterTerm, "")
		return ""
	}

	if path == "" {
		s.setError(GeneralArgumentError, "empty element path")
		return ""
	}

	v, err := s.data.GetValue(path)
	if err != nil {
		s.setError(getCode(cmi.KindOf(err)), err.Error())
		return ""
	}
	return v
}

// SetValue writes a data model element. Valid only while Running.
func (s *Session) SetValue(path, value string) bool {
	s.setError(NoError, "")

	switch s.state {
	case NotInitialized:
		s.setError(StoreDataBeforeInit, "")
		return false
	case Terminated:
		s.setError(StoreDataAfterTerm, "")
		return false
	}

	if path == "" {
		s.setError(GeneralArgumentError, "empty element path")
		return false
	}

	if err := s.data.SetValue(path, value); err != nil {
		s.setError(setCode(cmi.KindOf(err)), err.Error())
		slog.Debug("set rejected",
			"session", s.id,
			"element", path,
			"code", s.lastError.String(),
		)
		return false
	}
	return true
}

// Commit hands the current snapshot to the persistence collaborator.
// Valid only while Running. Never mutates data model values.
func (s *Session) Commit() bool {
	s.setError(NoError, "")

	switch s.state {
	case NotInitialized:
		s.setError(CommitBeforeInit, "")
		return false
	case Terminated:
		s.setError(CommitAfterTermination, "")
		return false
	}

	if s.persister == nil {
		return true
	}
	if err := s.persister.SaveSnapshot(context.Background(), s.BuildSnapshot()); err != nil {
		s.setError(GeneralCommitFailure, err.Error())
		slog.Error("commit hand-off failed", "session", s.id, "error", err)
		return false
	}
	slog.Debug("snapshot committed", "session", s.id)
	return true
}

// BuildSnapshot assembles the persisted shape of this attempt's state.
func (s *Session) BuildSnapshot() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		ActivityID: s.activityID,
		DataModel:  s.data.Snapshot(),
	}
	if s.treeState != nil {
		snap.ActivityTree, snap.LastNavigationRequest = s.treeState()
	}
	return snap
}

// Terminate transitions Running -> Terminated.
//
// Before the transition: cmi.exit defaults to "normal" when content never
// set it, and session_time is folded into total_time. After the transition
// the terminate hook runs rollup and surfaces any pending adl.nav.request.
func (s *Session) Terminate() bool {
	s.setError(NoError, "")

	switch s.state {
	case NotInitialized:
		s.setError(TerminationBeforeInit, "")
		return false
	case Terminated:
		s.setError(TerminationAfterTermination, "")
		return false
	}

	if !s.data.IsSet("cmi.exit") {
		// Default applied on behalf of content that never declared an exit.
		if err := s.data.SetSystem("cmi.exit", "normal"); err != nil {
			s.setError(GeneralTerminationFailure, err.Error())
			return false
		}
	}
	s.accumulateTotalTime()

	s.state = Terminated
	exit, _ := s.data.Raw("cmi.exit")
	navRequest, _ := s.data.Raw("adl.nav.request")

	slog.Info("session terminated",
		"session", s.id,
		"activity", s.activityID,
		"exit", exit,
		"nav_request", navRequest,
	)

	if s.onTerminate != nil {
		s.onTerminate(s, exit, navRequest)
	}
	return true
}

// accumulateTotalTime adds a content-reported session_time into total_time.
func (s *Session) accumulateTotalTime() {
	session, ok := s.data.Raw("cmi.session_time")
	if !ok {
		return
	}
	total, err := s.data.GetValue("cmi.total_time")
	if err != nil {
		total = "PT0S"
	}
	sum, err := cmi.AddTimeIntervals(total, session)
	if err != nil {
		slog.Error("total_time accumulation failed", "session", s.id, "error", err)
		return
	}
	if err := s.data.SetSystem("cmi.total_time", sum); err != nil {
		slog.Error("total_time write failed", "session", s.id, "error", err)
	}
}

// GetLastError returns the error register as its decimal string form.
// Always callable; never mutates state.
func (s *Session) GetLastError() string {
	return s.lastError.String()
}

// GetErrorString returns the static message for a code. Always callable.
// Unknown codes yield "" per the conformance requirements.
func (s *Session) GetErrorString(code string) string {
	c, ok := ParseErrorCode(code)
	if !ok {
		return ""
	}
	return c.Message()
}

// GetDiagnostic returns implementation-specific detail for a code.
// An empty argument, or the code currently in the register, yields the
// diagnostic recorded with the last error. Always callable.
func (s *Session) GetDiagnostic(code string) string {
	if code == "" {
		return s.lastDiagnostic
	}
	c, ok := ParseErrorCode(code)
	if !ok {
		return ""
	}
	if c == s.lastError && s.lastDiagnostic != "" {
		return s.lastDiagnostic
	}
	return c.Message()
}

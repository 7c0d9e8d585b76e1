package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/svincent240/scormrt/internal/activity"
	"github.com/svincent240/scormrt/internal/course"
	"github.com/svincent240/scormrt/internal/sequencing"
	"github.com/svincent240/scormrt/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Requests []string // navigation requests to issue in order
	Resume   bool     // restore the latest stored attempt first
	Complete bool     // mark each delivered activity completed
}

// RunStep is the outcome of one issued navigation request.
type RunStep struct {
	Request  string `json:"request"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
	Activity string `json:"activity,omitempty"`
	Launch   string `json:"launch,omitempty"`
	End      bool   `json:"end,omitempty"`
}

// RunReport is the full run outcome.
type RunReport struct {
	Course    string               `json:"course"`
	Steps     []RunStep            `json:"steps"`
	Available sequencing.Available `json:"available"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <course-file>",
		Short: "Issue navigation requests against a course attempt",
		Long: `Start an attempt on a course and issue navigation requests in order.

Each request is processed by the sequencing engine; deliveries report
the activity and its launch reference. With --complete, every delivered
activity is initialized, marked completed and terminated before the
next request, so tracking rolls up and snapshots land in the attempt
database. With --resume, the latest stored snapshot is restored first
and the flow starts with resumeAll.

Choice requests name their target as choice:<activity-id>.

Examples:
  scormrt run course.yaml
  scormrt run course.yaml --request start --request continue --complete
  scormrt run course.yaml --request choice:module-2
  scormrt run course.yaml --resume`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Requests, "request", []string{"start"},
		"navigation request to issue, in order (repeatable)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "restore the latest stored attempt and resume")
	cmd.Flags().BoolVar(&opts.Complete, "complete", false,
		"initialize, complete and terminate each delivered activity")

	return cmd
}

func runRun(opts *RunOptions, coursePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := context.Background()

	// Reject malformed requests before touching the database.
	requests := opts.Requests
	if opts.Resume {
		requests = append([]string{"resumeAll"}, trimStart(requests)...)
	}
	parsed := make([]sequencing.Request, 0, len(requests))
	for _, raw := range requests {
		req, err := parseRunRequest(raw)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid request", err)
		}
		parsed = append(parsed, req)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "open attempt database", err)
	}
	defer st.Close()

	tree, seeds, err := buildTree(coursePath)
	if err != nil {
		formatter.Error(ErrCodeCourse, err.Error(), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("course %s is not runnable", coursePath))
	}

	attempt := sequencing.NewAttempt(tree,
		sequencing.WithPersister(st),
		sequencing.WithSeeds(seeds),
	)
	if opts.Resume {
		snap, err := st.LatestSnapshot(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "nothing to resume", err)
		}
		attempt.RestoreSnapshot(snap)
		formatter.VerboseLog("Restored attempt %s (last request %s)", snap.SessionID, snap.LastNavigationRequest)
	}

	report := RunReport{Course: coursePath}
	rejected := 0
	for i, req := range parsed {
		res := attempt.ProcessNavigationRequest(req)
		report.Steps = append(report.Steps, toRunStep(requests[i], res))
		if !res.Success {
			rejected++
			continue
		}
		if opts.Complete {
			report.Steps = append(report.Steps, completeCurrent(attempt)...)
		}
	}
	report.Available = attempt.AvailableNavigation()

	if err := outputRun(formatter, report); err != nil {
		return err
	}
	if rejected > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d request(s) rejected", rejected))
	}
	return nil
}

// buildTree loads, compiles and builds the course's activity tree.
func buildTree(path string) (*activity.Tree, map[string]string, error) {
	crs, errs := course.LoadFile(path)
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("load %s: %w", path, errs[0])
	}
	def, seeds, err := course.Compile(crs)
	if err != nil {
		return nil, nil, fmt.Errorf("compile %s: %w", path, err)
	}
	tree, err := activity.Build(def)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s: %w", path, err)
	}
	return tree, seeds, nil
}

// completeCurrent drives the delivered activity's session through a
// minimal completed run so tracking rolls up and a snapshot persists,
// then resolves any navigation the termination produced.
func completeCurrent(attempt *sequencing.Attempt) []RunStep {
	s := attempt.Session()
	if s == nil {
		return nil
	}
	s.Initialize()
	s.SetValue("cmi.completion_status", "completed")
	s.Terminate()

	res, handled := attempt.ResolvePending()
	if !handled {
		return nil
	}
	return []RunStep{toRunStep("(resolved)", res)}
}

func toRunStep(request string, res sequencing.Result) RunStep {
	step := RunStep{
		Request: request,
		Success: res.Success,
		Reason:  res.Reason,
	}
	if res.Delivery != nil {
		step.Activity = res.Delivery.ActivityID
		step.Launch = res.Delivery.Launch
		step.End = res.Delivery.End
	}
	return step
}

// parseRunRequest maps a command-line request string to an engine
// request. Choice targets use the form "choice:<activity-id>".
func parseRunRequest(raw string) (sequencing.Request, error) {
	if target, ok := strings.CutPrefix(raw, "choice:"); ok {
		if target == "" {
			return sequencing.Request{}, fmt.Errorf("choice request needs a target: %q", raw)
		}
		return sequencing.ChoiceRequest(target), nil
	}
	switch raw {
	case "start", "resumeAll", "continue", "previous", "exit", "exitAll",
		"retry", "abandon", "abandonAll", "suspendAll":
		return sequencing.Request{Type: sequencing.RequestType(raw)}, nil
	}
	return sequencing.Request{}, fmt.Errorf("unknown navigation request %q", raw)
}

// trimStart drops a leading default "start" so --resume does not try to
// start a fresh attempt over the restored one.
func trimStart(requests []string) []string {
	if len(requests) > 0 && requests[0] == "start" {
		return requests[1:]
	}
	return requests
}

func outputRun(f *OutputFormatter, report RunReport) error {
	if f.Format == "json" {
		return f.Success(report)
	}

	for _, step := range report.Steps {
		switch {
		case !step.Success:
			fmt.Fprintf(f.Writer, "✗ %s rejected: %s\n", step.Request, step.Reason)
		case step.Activity != "":
			fmt.Fprintf(f.Writer, "✓ %s delivered %s (%s)\n", step.Request, step.Activity, step.Launch)
		case step.End:
			fmt.Fprintf(f.Writer, "✓ %s ended the attempt\n", step.Request)
		default:
			fmt.Fprintf(f.Writer, "✓ %s\n", step.Request)
		}
	}
	fmt.Fprintf(f.Writer, "available: continue=%t previous=%t exit=%t\n",
		report.Available.Continue, report.Available.Previous, report.Available.Exit)
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/svincent240/scormrt/internal/store"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [session-id]",
		Short: "Inspect stored attempt snapshots",
		Long: `Inspect the attempt database.

Without arguments, lists every stored attempt, most recent first. With
a session id, dumps that attempt's full snapshot: final data model
values and per-activity tracking state.

Examples:
  scormrt trace
  scormrt trace 0190f1f2-7d4e-7c44-b3c1-9adfe1b0e3da
  scormrt trace --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runTraceShow(rootOpts, args[0], cmd)
			}
			return runTraceList(rootOpts, cmd)
		},
	}
	return cmd
}

func runTraceList(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "open attempt database", err)
	}
	defer st.Close()

	infos, err := st.ListAttempts(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "list attempts", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No stored attempts.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(formatter.Writer, "%s  %s  %s  %s\n",
			info.SavedAt, info.SessionID, info.ActivityID, info.LastNavigationRequest)
	}
	return nil
}

func runTraceShow(opts *RootOptions, sessionID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "open attempt database", err)
	}
	defer st.Close()

	snap, err := st.LoadSnapshot(context.Background(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("no attempt %s", sessionID), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no attempt %s", sessionID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "load snapshot", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(snap)
	}

	fmt.Fprintf(formatter.Writer, "session %s on %s (last request %s)\n",
		snap.SessionID, snap.ActivityID, snap.LastNavigationRequest)
	fmt.Fprintln(formatter.Writer, "data model:")
	for _, element := range sortedKeys(snap.DataModel) {
		fmt.Fprintf(formatter.Writer, "  %s = %s\n", element, snap.DataModel[element])
	}
	fmt.Fprintln(formatter.Writer, "activities:")
	for _, id := range sortedKeys(snap.ActivityTree) {
		st := snap.ActivityTree[id]
		fmt.Fprintf(formatter.Writer, "  %s: attempts=%d completion=%s success=%s suspended=%t\n",
			id, st.AttemptCount, st.CompletionStatus, st.SuccessStatus, st.Suspended)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

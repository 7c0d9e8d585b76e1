package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/svincent240/scormrt/internal/activity"
	"github.com/svincent240/scormrt/internal/course"
)

// ValidationIssue is one course problem with its field path.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results for a course file.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <course-file>",
		Short: "Validate a course structure file",
		Long: `Validate a course structure file without starting an attempt.

Checks YAML shape and schema conformance, then compiles the course into
an activity tree to catch structural problems (duplicate ids, missing
launch references, inadmissible rule actions). Every violation is
reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := validateCourse(path, formatter)
	if !result.Valid {
		if err := outputValidation(formatter, path, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d issue(s) in %s", len(result.Issues), path))
	}
	return outputValidation(formatter, path, result)
}

// validateCourse runs the full load-compile-build pipeline and collects
// every issue it can surface.
func validateCourse(path string, formatter *OutputFormatter) ValidationResult {
	crs, errs := course.LoadFile(path)
	if len(errs) > 0 {
		issues := make([]ValidationIssue, 0, len(errs))
		for _, err := range errs {
			issues = append(issues, toIssue(err))
		}
		return ValidationResult{Issues: issues}
	}
	formatter.VerboseLog("Schema accepted: %s (%s)", crs.ID, path)

	def, _, err := course.Compile(crs)
	if err != nil {
		return ValidationResult{Issues: []ValidationIssue{toIssue(err)}}
	}
	formatter.VerboseLog("Compiled organization %q", def.ID)

	if _, err := activity.Build(def); err != nil {
		return ValidationResult{Issues: []ValidationIssue{toIssue(err)}}
	}
	return ValidationResult{Valid: true}
}

// toIssue extracts the field path from the typed course and tree errors.
func toIssue(err error) ValidationIssue {
	var loadErr *course.LoadError
	if errors.As(err, &loadErr) {
		return ValidationIssue{Field: loadErr.Field, Message: loadErr.Message}
	}
	var compileErr *course.CompileError
	if errors.As(err, &compileErr) {
		return ValidationIssue{Field: compileErr.Field, Message: compileErr.Message}
	}
	var configErr *activity.ConfigError
	if errors.As(err, &configErr) {
		field := configErr.Field
		if configErr.ActivityID != "" {
			field = configErr.ActivityID + "." + configErr.Field
		}
		return ValidationIssue{Field: field, Message: configErr.Message}
	}
	return ValidationIssue{Message: err.Error()}
}

func outputValidation(f *OutputFormatter, path string, result ValidationResult) error {
	if f.Format == "json" {
		if result.Valid {
			return f.Success(result)
		}
		return f.Error(ErrCodeCourse, fmt.Sprintf("%d issue(s) in %s", len(result.Issues), path), result.Issues)
	}

	if result.Valid {
		fmt.Fprintf(f.Writer, "✓ %s is valid\n", path)
		return nil
	}
	fmt.Fprintf(f.Writer, "✗ %s\n", path)
	for _, issue := range result.Issues {
		if issue.Field != "" {
			fmt.Fprintf(f.Writer, "  %s: %s\n", issue.Field, issue.Message)
		} else {
			fmt.Fprintf(f.Writer, "  %s\n", issue.Message)
		}
	}
	return nil
}

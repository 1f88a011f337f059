package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Queries int                        `json:"queries"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query-file>...",
		Short: "Validate query files without running them",
		Long: `Validate .cue and .yaml query files without touching a database.

Checks that every query compiles, that its key, criteria and where
expressions are well formed, and that no relation is listed twice.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var (
		validationErrors []compiler.ValidationError
		count            int
	)
	for _, path := range paths {
		queries, err := LoadQueries(path, "")
		if err != nil {
			var loadErr *LoadError
			if !errors.As(err, &loadErr) || loadErr.Code == ErrCodeNotFound {
				return loadFailure(formatter, err)
			}
			// Compile errors are reported like validation errors.
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   path,
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
			continue
		}

		formatter.VerboseLog("Loaded %d query(ies) from %s", len(queries), path)
		count += len(queries)
		validationErrors = append(validationErrors, validateQueries(queries)...)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter, count)
}

// validateQueries validates each query, prefixing fields with the query
// name.
func validateQueries(queries []*compiler.QuerySpec) []compiler.ValidationError {
	var errs []compiler.ValidationError
	for _, q := range queries {
		for _, e := range compiler.Validate(q) {
			e.Field = q.Name + "." + e.Field
			errs = append(errs, e)
		}
	}
	return errs
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Queries: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ All queries valid (%d)\n", count)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

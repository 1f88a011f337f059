package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/ir"
	"github.com/roach88/relq/internal/relcache"
	"github.com/roach88/relq/internal/store"
)

// Values of --missing: what to do with sources that reference nothing.
const (
	MissingError = "error"
	MissingMatch = "match"
	MissingSkip  = "skip"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Name     string
	Limit    int
	Missing  string
}

// MatchedRecord is one source record returned by a query.
type MatchedRecord struct {
	ID     string      `json:"id"`
	Fields ir.IRObject `json:"fields"`
}

// QueryResult is the outcome of running one query.
type QueryResult struct {
	Name        string          `json:"name"`
	Source      string          `json:"source"`
	Total       int             `json:"total"`
	Matches     []MatchedRecord `json:"matches"`
	Resolutions int             `json:"resolutions"`
	Reads       int             `json:"reads"`
	Match       string          `json:"match"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <query-file>",
		Short: "Run queries against a database",
		Long: `Run the queries defined in a .cue or .yaml file against a database.

Every source record is tested against the query's relations. Each distinct
referenced record is read from the database once; the resolution and read
counts are reported with the matches.

Example:
  relq query --db ./relq.db ./queries/layers.cue
  relq query --db ./relq.db --name unlocked --limit 10 ./queries/layers.cue
  relq query --db ./relq.db --missing skip --format json ./queries/x.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "run only the query with this name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "print at most this many matches per query (0 = all)")
	cmd.Flags().StringVar(&opts.Missing, "missing", MissingError, "sources without a relation: error|match|skip")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Limit < 0 {
		return commandError(formatter, ErrCodeGeneric, "--limit must not be negative")
	}
	buildOpts, err := missingOptions(opts.Missing)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}

	queries, err := LoadQueries(path, opts.Name)
	if err != nil {
		return loadFailure(formatter, err)
	}
	if errs := validateQueries(queries); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return loadFailure(formatter, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]QueryResult, 0, len(queries))
	for _, spec := range queries {
		res, err := executeQuery(ctx, spec, st, logger, opts.Limit, buildOpts)
		if err != nil {
			return queryFailure(formatter, spec.Name, err)
		}
		results = append(results, res)
	}

	if opts.Format == "json" {
		return formatter.Success(results)
	}
	for _, res := range results {
		writeQueryText(formatter.Writer, res)
	}
	return nil
}

// missingOptions returns the cache options implementing --missing.
func missingOptions(missing string) ([]relcache.Option, error) {
	switch missing {
	case MissingError, "":
		return nil, nil
	case MissingMatch, MissingSkip:
		answer := missing == MissingMatch
		return []relcache.Option{relcache.WithDefault(func(context.Context, store.Record) (bool, error) {
			return answer, nil
		})}, nil
	default:
		return nil, fmt.Errorf("invalid --missing %q: must be one of error, match, skip", missing)
	}
}

// executeQuery builds spec's filter graph and runs it once.
func executeQuery(ctx context.Context, spec *compiler.QuerySpec, st *store.Store, logger *slog.Logger, limit int, opts []relcache.Option) (QueryResult, error) {
	opts = append([]relcache.Option{relcache.WithLogger(logger)}, opts...)
	q, err := compiler.Build(spec, st, opts...)
	if err != nil {
		return QueryResult{}, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}

	logger.Info("running query", "name", spec.Name, "source", spec.Source, "relation", spec.Relation)
	records, err := q.Run(ctx, st)
	if err != nil {
		return QueryResult{}, err
	}

	res := QueryResult{
		Name:        spec.Name,
		Source:      spec.Source,
		Total:       len(records),
		Matches:     []MatchedRecord{},
		Resolutions: q.Filter.Graph().Stats().Resolutions,
		Reads:       q.Reads(),
		Match:       q.Filter.MatchExpression().String(),
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	for _, rec := range records {
		res.Matches = append(res.Matches, MatchedRecord{ID: rec.ID, Fields: rec.Fields})
	}
	logger.Debug("query completed", "name", spec.Name, "matches", res.Total, "resolutions", res.Resolutions)
	return res, nil
}

func writeQueryText(w io.Writer, res QueryResult) {
	fmt.Fprintf(w, "%s: %d match(es) in %s (%d resolution(s), %d read(s))\n",
		res.Name, res.Total, res.Source, res.Resolutions, res.Reads)
	for _, m := range res.Matches {
		fmt.Fprintf(w, "  %s %s\n", m.ID, ir.Format(m.Fields))
	}
	if more := res.Total - len(res.Matches); more > 0 {
		fmt.Fprintf(w, "  ... %d more\n", more)
	}
}

// commandError reports a usage problem and returns exit code 2.
func commandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// loadFailure reports a LoadError (or any other setup error) with exit
// code 2.
func loadFailure(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return commandError(formatter, loadErr.Code, loadErr.Message)
	}
	return commandError(formatter, ErrCodeGeneric, err.Error())
}

// queryFailure reports an error from building or running a query. Build
// errors are command errors; evaluation errors (a missing relation, a
// dangling reference) fail with exit code 1.
func queryFailure(formatter *OutputFormatter, name string, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadFailure(formatter, err)
	}
	_ = formatter.Error(ErrCodeQueryFailed, err.Error(), nil)
	return WrapExitError(ExitFailure, fmt.Sprintf("%s: query %s failed", ErrCodeQueryFailed, name), err)
}

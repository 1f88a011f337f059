package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/relcache"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Database string
	Name     string
	Missing  string
	NoRun    bool
}

// DumpResult is the filter graph of one query.
type DumpResult struct {
	Name  string         `json:"name"`
	Nodes int            `json:"nodes"`
	Stats relcache.Stats `json:"stats"`
	Dump  string         `json:"dump"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <query-file>",
		Short: "Show the filter graph of queries",
		Long: `Build the filter graph of each query and print it.

The dump lists every relation in the graph with its key selector,
criteria, match predicate and cache counters. By default the query is
run once first so the counters are populated; --no-run prints the graph
as built.

Example:
  relq dump --db ./relq.db ./queries/layers.cue
  relq dump --db ./relq.db --name visible_active --no-run ./queries/layers.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "dump only the query with this name")
	cmd.Flags().StringVar(&opts.Missing, "missing", MissingError, "sources without a relation: error|match|skip")
	cmd.Flags().BoolVar(&opts.NoRun, "no-run", false, "do not run the query before dumping")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runDump(opts *DumpOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cacheOpts, err := missingOptions(opts.Missing)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}
	cacheOpts = append(cacheOpts, relcache.WithLogger(logger))

	queries, err := LoadQueries(path, opts.Name)
	if err != nil {
		return loadFailure(formatter, err)
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

	results := make([]DumpResult, 0, len(queries))
	for _, spec := range queries {
		q, err := compiler.Build(spec, st, cacheOpts...)
		if err != nil {
			return loadFailure(formatter, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()})
		}
		if !opts.NoRun {
			if _, err := q.Run(ctx, st); err != nil {
				return queryFailure(formatter, spec.Name, err)
			}
		}

		var sb strings.Builder
		if err := q.Filter.Dump(&sb); err != nil {
			return commandError(formatter, ErrCodeGeneric, err.Error())
		}
		g := q.Filter.Graph()
		results = append(results, DumpResult{
			Name:  spec.Name,
			Nodes: g.Len(),
			Stats: g.Stats(),
			Dump:  sb.String(),
		})
	}

	if opts.Format == "json" {
		return formatter.Success(results)
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprintf(formatter.Writer, "# %s\n%s", res.Name, res.Dump)
	}
	return nil
}

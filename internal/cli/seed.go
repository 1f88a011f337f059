package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/relq/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string

	// Handles overrides the id generator for rows without an id (for
	// testing). If nil, the store's UUIDv7 generator is used.
	Handles store.HandleGenerator
}

// KindCount is the number of records of one kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// SeedResult reports what a seed run wrote.
type SeedResult struct {
	Written int         `json:"written"`
	Kinds   []KindCount `json:"kinds"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <seed-file>...",
		Short: "Load records from YAML seed files",
		Long: `Load records into a database from YAML seed files.

A seed file maps record kinds to lists of rows. Rows with an id replace
the stored record of the same kind and id; rows without one get a fresh
UUIDv7 handle. Each file is written in one transaction.

Example:
  relq seed --db ./relq.db ./testdata/layers.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(opts *SeedOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	var storeOpts []store.Option
	if opts.Handles != nil {
		storeOpts = append(storeOpts, store.WithHandleGenerator(opts.Handles))
	}
	st, err := openStore(opts.Database, storeOpts...)
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

	result := SeedResult{Kinds: []KindCount{}}
	for _, path := range paths {
		n, err := seedFile(ctx, st, path)
		if err != nil {
			return loadFailure(formatter, err)
		}
		logger.Info("seed file loaded", "path", path, "records", n)
		formatter.VerboseLog("Seeded %d record(s) from %s", n, path)
		result.Written += n
	}

	kinds, err := st.Kinds(ctx)
	if err != nil {
		return commandError(formatter, ErrCodeStore, err.Error())
	}
	for _, kind := range kinds {
		n, err := st.Count(ctx, kind)
		if err != nil {
			return commandError(formatter, ErrCodeStore, err.Error())
		}
		result.Kinds = append(result.Kinds, KindCount{Kind: kind, Count: n})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Seeded %d record(s)\n", result.Written)
	for _, k := range result.Kinds {
		fmt.Fprintf(formatter.Writer, "  %s: %d\n", k.Kind, k.Count)
	}
	return nil
}

func seedFile(ctx context.Context, st *store.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("seed file not found: %s", path)}
		}
		return 0, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	defer f.Close()

	n, err := st.LoadSeed(ctx, f)
	if err != nil {
		return 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return n, nil
}

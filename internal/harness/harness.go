package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/expr"
	"github.com/roach88/relq/internal/filter"
	"github.com/roach88/relq/internal/relcache"
	"github.com/roach88/relq/internal/store"
	"github.com/roach88/relq/internal/testutil"
)

// Harness holds the state of one scenario execution.
type Harness struct {
	store  *store.Store
	query  *compiler.Query
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, and
// records without an id get sequential handles, so repeated runs produce
// identical results.
//
// Execution flow:
// 1. Create fresh in-memory database and seed it
// 2. Compile the query and build its filter graph
// 3. Run the query and check the initial expectations
// 4. Apply each step, run again, and check its expectations
// 5. Evaluate assertions against the final graph
//
// An error is returned only when the scenario cannot be executed at all
// (bad seed, query that does not compile). Failed expectations are
// reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithHandleGenerator(testutil.NewSequenceHandles(scenario.HandlePrefix)))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if _, err := st.PutSeed(ctx, scenario.Records); err != nil {
		return nil, fmt.Errorf("failed to seed records: %w", err)
	}

	spec, err := scenario.Query.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	if spec.Name == "" {
		spec.Name = scenario.Name
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	opts := []relcache.Option{relcache.WithLogger(logger)}
	if scenario.Default != nil {
		answer := *scenario.Default
		opts = append(opts, relcache.WithDefault(func(context.Context, store.Record) (bool, error) {
			return answer, nil
		}))
	}
	q, err := compiler.Build(spec, st, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	h := &Harness{store: st, query: q, logger: logger}
	result := NewResult()

	h.execute(ctx, "initial", scenario.Expect, result)
	for i, step := range scenario.Steps {
		if err := h.apply(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Name, err)
		}
		h.execute(ctx, step.Name, step.Expect, result)
	}

	for _, msg := range EvaluateAssertions(q.Filter, scenario.Assertions) {
		result.AddError(msg)
	}

	result.Match = q.Filter.MatchExpression().String()
	return result, nil
}

// execute runs the query once and records the outcome against expect.
func (h *Harness) execute(ctx context.Context, name string, expect Expect, result *Result) {
	got, err := h.query.Run(ctx, h.store)
	stats := h.query.Filter.Graph().Stats()

	run := RunResult{
		Step:        name,
		Matches:     []string{},
		Resolutions: stats.Resolutions,
		Entries:     graphEntries(h.query.Filter.Graph()),
	}
	if err != nil {
		run.Error = err.Error()
	} else {
		for _, rec := range got {
			run.Matches = append(run.Matches, rec.ID)
		}
	}
	result.Runs = append(result.Runs, run)

	h.logger.Info("scenario run completed",
		"step", name,
		"matches", len(run.Matches),
		"resolutions", run.Resolutions,
	)

	for _, msg := range checkExpect(run, expect) {
		result.AddError(fmt.Sprintf("%s: %s", name, msg))
	}
}

// apply performs a step's mutations.
func (h *Harness) apply(ctx context.Context, step Step) error {
	f := h.query.Filter

	if step.AndCriteria != nil {
		l, err := expr.DecodeLambda(compiler.RelatedParam, step.AndCriteria)
		if err != nil {
			return fmt.Errorf("and_criteria: %w", err)
		}
		f.Criteria().And(l)
	}
	if step.OrCriteria != nil {
		l, err := expr.DecodeLambda(compiler.RelatedParam, step.OrCriteria)
		if err != nil {
			return fmt.Errorf("or_criteria: %w", err)
		}
		f.Criteria().Or(l)
	}
	if step.AndWhere != nil {
		l, err := expr.DecodeLambda(compiler.SourceParam, step.AndWhere)
		if err != nil {
			return fmt.Errorf("and_where: %w", err)
		}
		f.And(l)
	}
	if len(step.Put) > 0 {
		if _, err := h.store.PutSeed(ctx, step.Put); err != nil {
			return err
		}
	}
	for _, id := range step.Invalidate {
		f.Invalidate(relcache.ID(id))
	}
	if step.InvalidateAll {
		f.Graph().InvalidateAll()
	}
	return nil
}

func checkExpect(run RunResult, expect Expect) []string {
	var errs []string

	if expect.Error != "" {
		if run.Error == "" {
			errs = append(errs, fmt.Sprintf("expected error containing %q, run succeeded", expect.Error))
		} else if !strings.Contains(run.Error, expect.Error) {
			errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", expect.Error, run.Error))
		}
	} else {
		if run.Error != "" {
			errs = append(errs, fmt.Sprintf("unexpected error: %s", run.Error))
		} else if !slices.Equal(run.Matches, expect.Matches) {
			errs = append(errs, fmt.Sprintf("matches: expected %v, got %v", expect.Matches, run.Matches))
		}
	}

	if expect.Resolutions != nil && *expect.Resolutions != run.Resolutions {
		errs = append(errs, fmt.Sprintf("resolutions: expected %d, got %d", *expect.Resolutions, run.Resolutions))
	}
	if expect.Entries != nil && *expect.Entries != run.Entries {
		errs = append(errs, fmt.Sprintf("entries: expected %d, got %d", *expect.Entries, run.Entries))
	}
	return errs
}

func graphEntries(g *filter.Graph[store.Record]) int {
	n := 0
	for _, node := range g.Nodes() {
		n += node.Len()
	}
	return n
}

// ErrUnknownRelation is reported when an assertion names a relation the
// graph does not hold.
var ErrUnknownRelation = errors.New("unknown relation")

// relationNodes returns the graph nodes whose related kind is kind.
func relationNodes(g *filter.Graph[store.Record], kind string) []filter.Node[store.Record] {
	var out []filter.Node[store.Record]
	for _, n := range g.Nodes() {
		if strings.HasSuffix(n.Key().Type, ":"+kind) {
			out = append(out, n)
		}
	}
	return out
}

package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/relq/internal/filter"
	"github.com/roach88/relq/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the graph dump to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Dump     string // Filter graph at the time of the failure
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Dump != "" {
		fmt.Fprintf(&buf, "\nFilter graph:\n%s", e.Dump)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against the filter's graph and
// returns the failure messages.
func EvaluateAssertions(f *filter.Filter[store.Record, store.Record], assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(f, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(f *filter.Filter[store.Record, store.Record], a Assertion) error {
	g := f.Graph()

	var expected, actual string
	switch a.Type {
	case AssertGraphSize:
		expected, actual = fmt.Sprint(a.Count), fmt.Sprint(g.Len())

	case AssertMatchExpression:
		expected, actual = a.Expression, f.MatchExpression().String()

	case AssertCacheSize, AssertResolutions, AssertCriteriaExpression:
		nodes := relationNodes(g, a.Relation)
		if len(nodes) == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownRelation, a.Relation)
		}
		switch a.Type {
		case AssertCacheSize:
			n := 0
			for _, node := range nodes {
				n += node.Len()
			}
			expected, actual = fmt.Sprint(a.Count), fmt.Sprint(n)
		case AssertResolutions:
			n := 0
			for _, node := range nodes {
				n += node.Stats().Resolutions
			}
			expected, actual = fmt.Sprint(a.Count), fmt.Sprint(n)
		default:
			expected, actual = a.Expression, nodes[0].CriteriaExpression().String()
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	if expected == actual {
		return nil
	}

	var dump strings.Builder
	_ = f.Dump(&dump)
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   actual,
		Dump:     dump.String(),
	}
}

package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relq/internal/compiler"
	"github.com/roach88/relq/internal/store"
)

// Scenario defines a filter scenario: seed records, a query, and what the
// query must return on each run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Records are seeded into a fresh database before the first run.
	Records store.Seed `yaml:"records"`

	// HandlePrefix names the handles given to records without an id.
	// Defaults to "handle".
	HandlePrefix string `yaml:"handle_prefix,omitempty"`

	// Query is the query under test.
	Query compiler.QueryDef `yaml:"query"`

	// Default, when set, is the answer for sources without a relation.
	// Without it such sources fail the run.
	Default *bool `yaml:"default,omitempty"`

	// Expect validates the initial run.
	Expect Expect `yaml:"expect"`

	// Steps change the filter or the store and run the query again.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the filter graph after the last run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect specifies the outcome of one run.
type Expect struct {
	// Matches lists the matching source ids in scan order.
	Matches []string `yaml:"matches"`

	// Resolutions is the cumulative number of resolver calls across the
	// graph. Nil skips the check.
	Resolutions *int `yaml:"resolutions,omitempty"`

	// Entries is the total number of cached relations. Nil skips the
	// check.
	Entries *int `yaml:"entries,omitempty"`

	// Error, when set, is a substring the run's error must contain.
	// Matches is ignored for failing runs.
	Error string `yaml:"error,omitempty"`
}

// Step mutates the query or its data before the next run. Mutations are
// applied in field order.
type Step struct {
	Name string `yaml:"name"`

	// AndCriteria is ANDed into the root relation's criteria.
	AndCriteria any `yaml:"and_criteria,omitempty"`

	// OrCriteria is ORed into the root relation's criteria.
	OrCriteria any `yaml:"or_criteria,omitempty"`

	// AndWhere is ANDed into the root match predicate.
	AndWhere any `yaml:"and_where,omitempty"`

	// Put seeds more records (replacing existing ones).
	Put store.Seed `yaml:"put,omitempty"`

	// Invalidate drops root cache entries by relation id.
	Invalidate []string `yaml:"invalidate,omitempty"`

	// InvalidateAll clears every cache in the graph.
	InvalidateAll bool `yaml:"invalidate_all,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Assertion validates the final filter graph.
type Assertion struct {
	// Type specifies the assertion type:
	// - "cache_size": entries cached for Relation equal Count
	// - "resolutions": resolver calls for Relation equal Count
	// - "match_expression": the root match predicate renders as Expression
	// - "criteria_expression": Relation's criteria render as Expression
	// - "graph_size": the graph holds Count relations
	Type string `yaml:"type"`

	// Relation is the related record kind (cache_size, resolutions,
	// criteria_expression).
	Relation string `yaml:"relation,omitempty"`

	// Count is the expected number.
	Count int `yaml:"count,omitempty"`

	// Expression is the expected rendering.
	Expression string `yaml:"expression,omitempty"`
}

// Assertion type constants.
const (
	AssertCacheSize          = "cache_size"
	AssertResolutions        = "resolutions"
	AssertMatchExpression    = "match_expression"
	AssertCriteriaExpression = "criteria_expression"
	AssertGraphSize          = "graph_size"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Query.Source == "" {
		return fmt.Errorf("query.source is required")
	}

	if s.Query.Relation == "" {
		return fmt.Errorf("query.relation is required")
	}

	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCacheSize, AssertResolutions:
		if a.Relation == "" {
			return fmt.Errorf("assertions[%d]: relation is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertCriteriaExpression:
		if a.Relation == "" {
			return fmt.Errorf("assertions[%d]: relation is required for %s", index, a.Type)
		}
		if a.Expression == "" {
			return fmt.Errorf("assertions[%d]: expression is required for %s", index, a.Type)
		}
	case AssertMatchExpression:
		if a.Expression == "" {
			return fmt.Errorf("assertions[%d]: expression is required for %s", index, a.Type)
		}
	case AssertGraphSize:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be positive for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

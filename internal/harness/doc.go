// Package harness provides scenario testing for relq queries.
//
// A scenario seeds a fresh database, compiles a query, runs it, and then
// applies a sequence of steps (criteria changes, record updates, cache
// invalidation), running the query again after each one. Every run is
// checked against its expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	records:
//	  layers:
//	    - { id: L1, name: Base, locked: false }
//	  entities:
//	    - { id: E1, layer_id: L1 }
//	query:
//	  source: entities
//	  relation: layers
//	  key: layer_id
//	  criteria: { not: { field: locked } }
//	expect:
//	  matches: [E1]
//	  resolutions: 1
//	steps:
//	  - name: x_only
//	    and_criteria:
//	      call: starts_with
//	      args: [{field: name}, "X"]
//	    expect:
//	      matches: []
//	assertions:
//	  - type: cache_size
//	    relation: layers
//	    count: 1
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - cache_size: entries cached for a relation
//   - resolutions: resolver calls made for a relation
//   - match_expression: rendering of the root match predicate
//   - criteria_expression: rendering of a relation's criteria
//   - graph_size: number of relations in the graph
//
// # Deterministic Testing
//
// Each scenario runs against an isolated in-memory SQLite database, and
// seed records without an id get sequential handles
// (testutil.SequenceHandles), so runs are reproducible and can be compared
// against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/locked_layers.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
